package operations

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"climatedash/internal/infrastructure"
	"climatedash/pkg/contracts/events"
)

// Manager runs the pipeline steps sequentially, one run at a time
type Manager struct {
	registry *Registry
	config   *Config
	reporter ProgressReporter
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	running atomic.Bool

	mu   sync.RWMutex
	last *RunState
}

// NewManager creates a pipeline manager. reporter may be nil.
func NewManager(reporter ProgressReporter, registry *Registry, config *Config) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	return &Manager{
		registry: registry,
		config:   config,
		reporter: reporter,
		logger:   infrastructure.WithComponent(nil, "operations"),
	}
}

// SetLogger replaces the manager logger
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetMetrics enables run and step metrics
func (m *Manager) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	m.metrics = metrics
}

// Registry returns the registered steps
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsRunning reports whether a run is active
func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// Run executes every step in order. A failed step marks all later steps
// skipped and its error is returned wrapped in a StepError.
func (m *Manager) Run(ctx context.Context) (*RunResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer m.running.Store(false)

	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	steps := m.registry.List()
	state := NewRunState(uuid.New().String(), steps)
	m.mu.Lock()
	m.last = state
	m.mu.Unlock()

	logger := m.logger.With(slog.String("run_id", state.ID))
	logger.InfoContext(ctx, "pipeline run started", slog.Int("steps", len(steps)))

	state.Start()
	m.reportProgress(state)

	var runErr error
	for _, step := range steps {
		stepState := state.GetStep(step.ID())
		if runErr != nil {
			stepState.Skip("previous step failed")
			continue
		}

		if err := ctx.Err(); err != nil {
			runErr = err
			stepState.Skip("run cancelled")
			continue
		}

		stepState.Start()
		m.reportProgress(state)
		logger.InfoContext(ctx, "step started", slog.String("step", step.ID()))

		err := step.Execute(ctx, state)
		infrastructure.RecordPipelineStep(ctx, m.metrics, step.ID(), stepState.Duration(), err == nil)
		if err != nil {
			stepState.Fail(err)
			runErr = NewStepError(step.ID(), err)
			logger.ErrorContext(ctx, "step failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
		} else {
			stepState.Complete()
			logger.InfoContext(ctx, "step completed",
				slog.String("step", step.ID()),
				slog.Int("rows", stepState.Result().Rows),
				slog.Duration("duration", stepState.Duration()))
		}
		m.reportProgress(state)
	}

	if runErr != nil {
		state.Fail(runErr, errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded))
	} else {
		state.Complete()
	}

	infrastructure.RecordPipelineRun(ctx, m.metrics, state.ID, state.Duration(), runErr)
	if m.reporter != nil {
		m.reporter.ReportComplete(state.Snapshot())
	}

	result := state.Result()
	logger.InfoContext(ctx, "pipeline run finished",
		slog.String("status", string(result.Status)),
		slog.Int("rows", result.Rows),
		slog.Duration("duration", result.Duration))
	return result, runErr
}

// Status returns the snapshot of the last run, or an idle snapshot
func (m *Manager) Status() events.OperationSnapshot {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	if last == nil {
		return events.OperationSnapshot{
			Status:    string(RunStatusIdle),
			UpdatedAt: time.Now(),
		}
	}
	return last.Snapshot()
}

// LastResult returns the result of the last run, or nil
func (m *Manager) LastResult() *RunResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.last == nil {
		return nil
	}
	return m.last.Result()
}

func (m *Manager) reportProgress(state *RunState) {
	if m.reporter == nil {
		return
	}
	m.reporter.ReportProgress(state.Snapshot())
}
