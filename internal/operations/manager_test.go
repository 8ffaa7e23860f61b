package operations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"climatedash/internal/config"
	"climatedash/pkg/contracts/events"
)

// MockReporter records the snapshots it receives
type MockReporter struct {
	mock.Mock
	mu        sync.Mutex
	snapshots []events.OperationSnapshot
}

func (m *MockReporter) ReportProgress(snapshot events.OperationSnapshot) {
	m.mu.Lock()
	m.snapshots = append(m.snapshots, snapshot)
	m.mu.Unlock()
}

func (m *MockReporter) ReportComplete(snapshot events.OperationSnapshot) {
	m.Called(snapshot.Status)
}

// funcStep is a step backed by a function
type funcStep struct {
	BaseStep
	fn func(ctx context.Context, state *RunState) error
}

func newFuncStep(id string, fn func(ctx context.Context, state *RunState) error) *funcStep {
	return &funcStep{BaseStep: NewBaseStep(id, "Step "+id), fn: fn}
}

func (s *funcStep) Execute(ctx context.Context, state *RunState) error {
	return s.fn(ctx, state)
}

func newTestManager(t *testing.T, reporter ProgressReporter, steps ...Step) *Manager {
	t.Helper()
	registry := NewRegistry()
	for _, s := range steps {
		require.NoError(t, registry.Register(s))
	}
	return NewManager(reporter, registry, NewConfig())
}

func TestManagerRunSuccess(t *testing.T) {
	var order []string
	record := func(id string) func(context.Context, *RunState) error {
		return func(_ context.Context, state *RunState) error {
			order = append(order, id)
			state.GetStep(id).SetRows(len(order))
			return nil
		}
	}

	reporter := &MockReporter{}
	reporter.On("ReportComplete", string(RunStatusCompleted)).Once()

	m := newTestManager(t, reporter,
		newFuncStep("a", record("a")),
		newFuncStep("b", record("b")),
	)

	result, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, RunStatusCompleted, result.Status)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, StepStatusCompleted, result.Steps[0].Status)
	assert.Equal(t, 2, result.Steps[1].Rows)

	reporter.AssertExpectations(t)
	require.NotEmpty(t, reporter.snapshots)
	first := reporter.snapshots[0]
	assert.Equal(t, string(RunStatusRunning), first.Status)
	assert.Equal(t, 0, first.Progress)

	status := m.Status()
	assert.Equal(t, string(RunStatusCompleted), status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.NotNil(t, status.CompletedAt)
}

func TestManagerRunFailureSkipsLaterSteps(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	reporter := &MockReporter{}
	reporter.On("ReportComplete", string(RunStatusFailed)).Once()

	m := newTestManager(t, reporter,
		newFuncStep("a", func(context.Context, *RunState) error { return nil }),
		newFuncStep("b", func(context.Context, *RunState) error { return boom }),
		newFuncStep("c", func(context.Context, *RunState) error { ran = true; return nil }),
	)

	result, err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "b", stepErr.Step)

	assert.False(t, ran)
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.Equal(t, StepStatusCompleted, result.Steps[0].Status)
	assert.Equal(t, StepStatusFailed, result.Steps[1].Status)
	assert.Equal(t, "boom", result.Steps[1].Error)
	assert.Equal(t, StepStatusSkipped, result.Steps[2].Status)

	status := m.Status()
	assert.Contains(t, status.Error, "boom")
	reporter.AssertExpectations(t)
}

func TestManagerRejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	m := newTestManager(t, nil, newFuncStep("slow", func(context.Context, *RunState) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, m.IsRunning())
	_, err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.IsRunning())
}

func TestManagerRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newTestManager(t, nil,
		newFuncStep("a", func(context.Context, *RunState) error { cancel(); return nil }),
		newFuncStep("b", func(context.Context, *RunState) error { return nil }),
	)

	result, err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusCancelled, result.Status)
	assert.Equal(t, StepStatusSkipped, result.Steps[1].Status)
}

func TestManagerStatusIdle(t *testing.T) {
	m := NewManager(nil, nil, nil)
	assert.Equal(t, string(RunStatusIdle), m.Status().Status)
	assert.Nil(t, m.LastResult())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFuncStep("a", nil)))
	assert.Error(t, r.Register(newFuncStep("a", nil)))
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFuncStep("", nil)))

	step, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", step.ID())
	_, err = r.Get("missing")
	assert.Error(t, err)
	assert.Equal(t, 1, r.Count())
}

func writeMinimalSources(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"global_temperatures.csv":   "Source,Year,Mean\nGISTEMP,2000,0.4\n",
		"co2_emissions.csv":         "Country,2000\nChina,1\n",
		"GDP_per_capita.csv":        "Country,2000\nChina,\"1,000\"\n",
		"renewable_energy.csv":      "Entity,Code,Year,Renewables (% equivalent primary energy)\nChina,CHN,2000,3\n",
		"per_capita_energy_use.csv": "Entity,Code,Year,Primary energy consumption per capita (kWh/person)\nChina,CHN,2000,7000\n",
		"population.csv":            "Country Name,2000\nChina,5\n",
		"Emission_per_GDP.csv":      "Country,2000\nChina,0.5\n",
		"Emission_per_capita.csv":   "Country,2000\nChina,0.7\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestPipelineRegistryEndToEnd(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeMinimalSources(t, input)

	pipeline := config.PipelineConfig{ExcelFile: "processed_data.xlsx", SQLDriver: "sqlite"}
	paths, err := config.ResolvePaths(config.PathsConfig{
		InputDir:      input,
		OutputDir:     output,
		LogsDir:       filepath.Join(output, "logs"),
		ProcessedFile: "processed_data.csv",
		SummaryFile:   "summary_statistics.csv",
	}, pipeline)
	require.NoError(t, err)

	m := NewManager(nil, NewPipelineRegistry(paths, pipeline, nil, nil), &Config{Timeout: time.Minute})

	result, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 54, result.Rows)
	assert.Len(t, result.Outputs, 4)
	for _, p := range []string{paths.ProcessedCSV, paths.SummaryCSV, paths.ExcelFile, paths.SQLiteFile} {
		assert.FileExists(t, p)
	}

	ids := make([]string, 0, len(result.Steps))
	for _, s := range result.Steps {
		ids = append(ids, s.ID)
		assert.Equal(t, StepStatusCompleted, s.Status, s.ID)
	}
	assert.Equal(t, []string{StepIDLoad, StepIDClean, StepIDUnify, StepIDExport}, ids)
}

func TestPipelineRegistryMissingInput(t *testing.T) {
	output := t.TempDir()
	paths, err := config.ResolvePaths(config.PathsConfig{
		InputDir:      filepath.Join(output, "missing"),
		OutputDir:     output,
		LogsDir:       output,
		ProcessedFile: "processed_data.csv",
	}, config.PipelineConfig{})
	require.NoError(t, err)

	m := NewManager(nil, NewPipelineRegistry(paths, config.PipelineConfig{}, nil, nil), nil)
	result, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepStatusFailed, result.Steps[0].Status)
	assert.NoFileExists(t, paths.ProcessedCSV)
}
