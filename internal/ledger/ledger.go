// Package ledger maintains the append-only step history for one task.
package ledger

import (
	"sync"
	"time"

	"github.com/harrison/foreman/internal/models"
)

// Ledger is an append-only, strictly increasing sequence of execution
// steps. Sequence numbers start at 1 and increase by exactly 1 per step,
// across planning, iteration, recovery, and testing alike, producing one
// unified audit trail for a task.
//
// Thread-safe: step creation and snapshots may happen from different
// goroutines (e.g. a live progress feed reading while the orchestrator
// appends).
type Ledger struct {
	mu    sync.Mutex
	steps []*models.Step
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// NewStep appends a step with the next sequence number and status running,
// and returns the live handle. The orchestrator mutates the handle;
// snapshots taken via All/LastN are copies.
func (l *Ledger) NewStep(action string) *models.Step {
	l.mu.Lock()
	defer l.mu.Unlock()

	step := &models.Step{
		Sequence:  len(l.steps) + 1,
		Action:    action,
		Status:    models.StepRunning,
		Timestamp: time.Now(),
	}
	l.steps = append(l.steps, step)
	return step
}

// Len returns the number of recorded steps.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Get returns a copy of the step with the given sequence number.
// The second return value is false if no such step exists.
func (l *Ledger) Get(seq int) (models.Step, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq < 1 || seq > len(l.steps) {
		return models.Step{}, false
	}
	return *l.steps[seq-1], true
}

// LastN returns copies of the most recent n steps in ledger order.
// Fewer are returned when the ledger is shorter than n.
func (l *Ledger) LastN(n int) []models.Step {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.steps) {
		n = len(l.steps)
	}
	if n <= 0 {
		return nil
	}

	out := make([]models.Step, 0, n)
	for _, step := range l.steps[len(l.steps)-n:] {
		out = append(out, *step)
	}
	return out
}

// All returns copies of every recorded step in order.
func (l *Ledger) All() []models.Step {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Step, 0, len(l.steps))
	for _, step := range l.steps {
		out = append(out, *step)
	}
	return out
}

// FailRunning marks every step still in the running state as failed with
// the given message. Used to reconcile the ledger after termination so no
// step is left permanently running.
func (l *Ledger) FailRunning(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, step := range l.steps {
		if step.Status == models.StepRunning {
			step.Fail(message)
		}
	}
}
