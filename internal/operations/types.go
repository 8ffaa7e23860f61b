package operations

import (
	"time"

	"climatedash/internal/dataprocessing"
)

// Pipeline step identifiers
const (
	StepIDLoad   = "load"
	StepIDClean  = "clean"
	StepIDUnify  = "unify"
	StepIDExport = "export"
)

// Pipeline step names
const (
	StepNameLoad   = "Load Sources"
	StepNameClean  = "Clean Sources"
	StepNameUnify  = "Unify Dataset"
	StepNameExport = "Export Results"
)

// DefaultRunTimeout bounds one complete pipeline run
const DefaultRunTimeout = 10 * time.Minute

// Config configures the pipeline manager
type Config struct {
	Timeout time.Duration
}

// NewConfig returns the default manager configuration
func NewConfig() *Config {
	return &Config{Timeout: DefaultRunTimeout}
}

// RunResult summarizes a finished run
type RunResult struct {
	RunID    string                      `json:"run_id"`
	Status   RunStatus                   `json:"status"`
	Duration time.Duration               `json:"duration"`
	Rows     int                         `json:"rows"`
	Outputs  []string                    `json:"outputs"`
	Steps    []StepResult                `json:"steps"`
	Summary  dataprocessing.SummaryStats `json:"summary"`
}

// StepResult is the outcome of one step of a run
type StepResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Rows     int           `json:"rows"`
	Error    string        `json:"error,omitempty"`
}
