package operations

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("pipeline run already in progress")

// StepError wraps the failure of one pipeline step
type StepError struct {
	Step  string
	Cause error
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Cause
}

// NewStepError creates a step failure
func NewStepError(step string, cause error) *StepError {
	return &StepError{Step: step, Cause: cause}
}
