package orchestrator

import (
	"context"

	"github.com/harrison/foreman/internal/engine"
	"github.com/harrison/foreman/internal/models"
)

// MaxRecoveryAttempts is the number of remediation calls made per
// iteration failure. Exactly one: recovery is never recursively retried.
// Policy choice, named so it is visible rather than inlined.
const MaxRecoveryAttempts = 1

// Recoverer makes a single remediation attempt after an iteration
// failure. It builds one prompt embedding the raw error and the task
// description, issues one engine call with no further branching, and
// reports whether that call succeeded.
type Recoverer struct {
	runner engine.Runner
}

// NewRecoverer creates a Recoverer using the given engine runner.
func NewRecoverer(runner engine.Runner) *Recoverer {
	return &Recoverer{runner: runner}
}

// Recover issues the single remediation call. Returns true iff the engine
// accepted the remediation prompt and exited cleanly. Any failure of the
// recovery call itself, including a timeout, returns false; the caller
// then treats the original error as fatal.
func (r *Recoverer) Recover(ctx context.Context, failure error, task models.Task, onChunk func(string)) bool {
	prompt := buildRecoveryPrompt(failure, task)

	_, err := r.runner.Run(ctx, prompt, engine.RunOptions{OnChunk: onChunk})
	return err == nil
}
