// Package decision classifies engine output into continue/stop verdicts.
//
// The classifier is a pure function over a text blob, driven by ordered
// signal tables with a fixed precedence. Keeping the policy table-driven
// lets the decision logic be unit-tested independent of process I/O.
package decision

import (
	"regexp"
)

// Decision is the continue/stop verdict for one iteration's full output.
type Decision struct {
	ShouldContinue bool     // False when the run looks complete
	Reasoning      string   // Human-readable rationale
	NextSteps      []string // Suggested follow-up actions
}

// Reasoning strings attached to decisions.
const (
	ReasonComplete   = "apparent completion"
	ReasonErrors     = "errors detected, needs fix"
	ReasonInProgress = "in progress"
)

// Signal is one tagged pattern in a classification table.
type Signal struct {
	Name    string         // Short tag for logs and notifications
	Pattern *regexp.Regexp // Case-insensitive match over the output
}

// CompletionSignals indicate the engine believes the task is done.
var CompletionSignals = []Signal{
	{Name: "task-complete", Pattern: regexp.MustCompile(`(?i)\btask\s+(is\s+)?complete`)},
	{Name: "implementation-complete", Pattern: regexp.MustCompile(`(?i)\bimplementation\s+(is\s+)?complete`)},
	{Name: "all-tests-passing", Pattern: regexp.MustCompile(`(?i)\ball\s+tests\s+pass(ing|ed)?\b`)},
	{Name: "deploy-success", Pattern: regexp.MustCompile(`(?i)(successful(ly)?\s+deploy(ed|ment)|deployment\s+successful)`)},
	{Name: "no-errors", Pattern: regexp.MustCompile(`(?i)\bno\s+errors?\b`)},
}

// ErrorSignals indicate a failure somewhere in the output. Any error
// signal outranks every completion signal: a run that claims success while
// also emitting an error token is treated as still failing, which biases
// the controller toward more iterations rather than premature success.
var ErrorSignals = []Signal{
	{Name: "error-marker", Pattern: regexp.MustCompile(`(?i)\berror:`)},
	{Name: "failure", Pattern: regexp.MustCompile(`(?i)\bfail(ed|ure)\b`)},
	{Name: "exception", Pattern: regexp.MustCompile(`(?i)\bexception\b`)},
	{Name: "null-reference", Pattern: regexp.MustCompile(`(?i)(null\s+reference|null.reference|nil\s+pointer)`)},
	{Name: "undefined-reference", Pattern: regexp.MustCompile(`(?i)\bundefined\b`)},
	{Name: "cannot", Pattern: regexp.MustCompile(`(?i)\bcannot\s+\w+`)},
}

// Next-step suggestions returned with each verdict.
var (
	errorNextSteps    = []string{"analyze error", "apply fix", "re-test"}
	progressNextSteps = []string{"continue implementation", "verify progress"}
)

// Decide classifies the full output of one iteration. Precedence, first
// match wins:
//  1. completion signal present and no error signal: stop.
//  2. any error signal present: continue, fix errors.
//  3. otherwise: continue, still in progress.
func Decide(output string) Decision {
	hasError := matchAny(ErrorSignals, output) != ""
	hasCompletion := matchAny(CompletionSignals, output) != ""

	if hasCompletion && !hasError {
		return Decision{
			ShouldContinue: false,
			Reasoning:      ReasonComplete,
		}
	}

	if hasError {
		return Decision{
			ShouldContinue: true,
			Reasoning:      ReasonErrors,
			NextSteps:      append([]string(nil), errorNextSteps...),
		}
	}

	return Decision{
		ShouldContinue: true,
		Reasoning:      ReasonInProgress,
		NextSteps:      append([]string(nil), progressNextSteps...),
	}
}

// matchAny returns the name of the first matching signal, or "".
func matchAny(signals []Signal, output string) string {
	if output == "" {
		return ""
	}
	for i := range signals {
		if signals[i].Pattern.MatchString(output) {
			return signals[i].Name
		}
	}
	return ""
}
