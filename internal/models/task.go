package models

import (
	"errors"
)

// DefaultMaxIterations bounds the iterating phase when a task does not
// specify its own limit. Policy choice, not tuned; override per task.
const DefaultMaxIterations = 20

// Task represents a single unit of work submitted to the orchestrator
type Task struct {
	ID            string   // Caller-supplied identifier, unique per run
	Description   string   // High-level description of what to build
	WorkingDir    string   // Directory the engine runs in (optional, defaults to cwd)
	ContextFiles  []string // Files injected verbatim into the planning prompt (optional)
	Requirements  []string // Explicit requirements injected into the planning prompt (optional)
	MaxIterations int      // Iteration bound (optional, defaults to DefaultMaxIterations)
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Description == "" {
		return errors.New("task description is required")
	}
	if t.MaxIterations < 0 {
		return errors.New("task max iterations cannot be negative")
	}
	return nil
}

// IterationBound returns the effective iteration limit for the task.
func (t *Task) IterationBound() int {
	if t.MaxIterations > 0 {
		return t.MaxIterations
	}
	return DefaultMaxIterations
}
