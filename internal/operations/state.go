package operations

import (
	"sync"
	"time"

	"climatedash/internal/dataprocessing"
	"climatedash/pkg/contracts/domain"
	"climatedash/pkg/contracts/events"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState represents the complete state of one pipeline run.
// Steps hand their results to later steps through the data fields.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	steps map[string]*StepState
	order []string

	Datasets dataprocessing.Datasets
	Cleaned  dataprocessing.CleanedDatasets
	Table    domain.Table
	Stats    dataprocessing.SummaryStats
	Outputs  []string
}

// NewRunState creates a pending run with one state per step
func NewRunState(id string, steps []Step) *RunState {
	s := &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState, len(steps)),
		order:     make([]string, 0, len(steps)),
	}
	for _, step := range steps {
		s.steps[step.ID()] = NewStepState(step.ID(), step.Name())
		s.order = append(s.order, step.ID())
	}
	return s
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed, or cancelled when err came from the context
func (r *RunState) Fail(err error, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	if cancelled {
		r.Status = RunStatusCancelled
	}
	r.Error = err
}

// GetStep returns the state of a specific step
func (r *RunState) GetStep(stepID string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps[stepID]
}

// AddOutput records a written file or table
func (r *RunState) AddOutput(output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outputs = append(r.Outputs, output)
}

// GetStatus returns the run status
func (r *RunState) GetStatus() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// Result summarizes the run
func (r *RunState) Result() *RunResult {
	d := r.Duration()

	r.mu.RLock()
	defer r.mu.RUnlock()

	res := &RunResult{
		RunID:    r.ID,
		Status:   r.Status,
		Duration: d,
		Rows:     r.Table.Len(),
		Outputs:  append([]string(nil), r.Outputs...),
		Steps:    make([]StepResult, 0, len(r.order)),
		Summary:  r.Stats,
	}
	for _, id := range r.order {
		res.Steps = append(res.Steps, r.steps[id].Result())
	}
	return res
}

// Snapshot returns the websocket view of the run
func (r *RunState) Snapshot() events.OperationSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := events.OperationSnapshot{
		RunID:       r.ID,
		Status:      string(r.Status),
		Steps:       make([]events.StepSnapshot, 0, len(r.order)),
		StartedAt:   r.StartTime,
		UpdatedAt:   time.Now(),
		CompletedAt: r.EndTime,
	}
	if r.Error != nil {
		snap.Error = r.Error.Error()
	}

	done := 0
	for _, id := range r.order {
		res := r.steps[id].Result()
		step := events.StepSnapshot{
			ID:     res.ID,
			Name:   res.Name,
			Status: string(res.Status),
			Error:  res.Error,
		}
		switch res.Status {
		case StepStatusCompleted:
			step.Progress = 100
			done++
		case StepStatusActive:
			snap.CurrentStep = res.Name
		}
		if res.Rows > 0 {
			step.Metadata = map[string]interface{}{"rows": res.Rows}
		}
		snap.Steps = append(snap.Steps, step)
	}
	if len(r.order) > 0 {
		snap.Progress = done * 100 / len(r.order)
	}
	return snap
}
