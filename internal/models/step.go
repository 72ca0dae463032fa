package models

import "time"

// Step status constants
const (
	StepPending   = "pending"
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
)

// Step is one recorded action in a task's execution ledger. Sequence
// numbers start at 1 and are never reused, even across recovery attempts,
// so the ledger is a single globally ordered audit trail for the task.
type Step struct {
	Sequence  int       `json:"sequence"`             // Monotonically increasing, assigned by the ledger
	Action    string    `json:"action"`               // Short label describing the action
	Command   string    `json:"command,omitempty"`    // Command or prompt summary (optional)
	Output    string    `json:"output,omitempty"`     // Captured output (optional, may arrive late)
	Decision  string    `json:"decision,omitempty"`   // Rationale from the decision engine (optional)
	NextSteps []string  `json:"next_steps,omitempty"` // Suggested follow-up actions (optional)
	Status    string    `json:"status"`               // pending, running, completed, failed
	Timestamp time.Time `json:"timestamp"`            // Creation instant
}

// Complete marks the step completed and attaches its output.
func (s *Step) Complete(output string) {
	s.Output = output
	s.Status = StepCompleted
}

// Fail marks the step failed and records the failure message as output.
func (s *Step) Fail(message string) {
	s.Output = message
	s.Status = StepFailed
}
