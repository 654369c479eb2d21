package executor

import (
	"fmt"
	"time"
)

// SetupError is fatal to a run: the sandbox or scenario pre-conditions could
// not be established, so no further phases execute.
type SetupError struct {
	Scenario string
	Message  string
	Err      error
}

// NewSetupError creates a SetupError for the given scenario.
func NewSetupError(scenario, msg string, err error) *SetupError {
	return &SetupError{Scenario: scenario, Message: msg, Err: err}
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scenario %s setup: %s: %v", e.Scenario, e.Message, e.Err)
	}
	return fmt.Sprintf("scenario %s setup: %s", e.Scenario, e.Message)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// TimeoutError records a command that exceeded its type-driven deadline.
// A timeout is a failure for the command; there is no mid-command
// cancellation beyond killing the process tree.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}
