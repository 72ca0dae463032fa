package engine

import (
	"context"
	"errors"
	"fmt"
)

// SpawnError indicates the engine process could not be started at all,
// e.g. the binary was not found on PATH.
type SpawnError struct {
	Path string // Engine binary path that failed to start
	Err  error  // Underlying error from the OS
}

// Error implements the error interface for SpawnError.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("engine %s: failed to spawn: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError indicates the engine process ran but exited non-zero.
type ExitError struct {
	Code   int    // Process exit code
	Stderr string // Tail of captured stderr for diagnostics (optional)
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("engine exited with code %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("engine exited with code %d", e.Code)
}

// TimeoutError indicates the engine exceeded its wall-clock timeout and
// was force-terminated.
type TimeoutError struct {
	Timeout string // Human-readable timeout that was exceeded
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine timed out after %s and was killed", e.Timeout)
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsSpawnError checks if the error is or wraps a SpawnError.
func IsSpawnError(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}

// IsExitError checks if the error is or wraps an ExitError.
func IsExitError(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError or
// context.DeadlineExceeded.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
