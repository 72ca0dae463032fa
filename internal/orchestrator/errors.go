package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNotRunnable indicates ExecuteTask was called on an orchestrator that
// already ran or was terminated. One orchestrator instance serves exactly
// one task.
var ErrNotRunnable = errors.New("orchestrator is not runnable: already used or terminated")

// PlanningError indicates the planning phase failed, either because the
// engine call failed or because no plan could be parsed from its output.
// Planning failures are fatal and never retried.
type PlanningError struct {
	Err error
}

// Error implements the error interface for PlanningError.
func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PlanningError) Unwrap() error {
	return e.Err
}

// RecoveryExhaustedError indicates an iteration failed and the single
// recovery attempt also failed. The original iteration error is what
// callers should diagnose.
type RecoveryExhaustedError struct {
	Original error
}

// Error implements the error interface for RecoveryExhaustedError.
func (e *RecoveryExhaustedError) Error() string {
	return fmt.Sprintf("recovery failed, original error: %v", e.Original)
}

// Unwrap returns the original iteration error.
func (e *RecoveryExhaustedError) Unwrap() error {
	return e.Original
}

// IsPlanningError checks if the error is or wraps a PlanningError.
func IsPlanningError(err error) bool {
	var pe *PlanningError
	return errors.As(err, &pe)
}
