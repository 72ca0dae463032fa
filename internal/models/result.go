package models

import "time"

// TestResult represents one parsed test record from the validation pass
type TestResult struct {
	Name   string `json:"name"`             // Test name from the TEST: field
	Passed bool   `json:"passed"`           // True when STATUS: is PASS
	Output string `json:"output,omitempty"` // Captured output from the OUTPUT: field (optional)
	Error  string `json:"error,omitempty"`  // Failure detail for non-passing tests (optional)
}

// TaskResult is the terminal artifact of one ExecuteTask call
type TaskResult struct {
	TaskID      string        `json:"task_id"`                // The task this result belongs to
	Success     bool          `json:"success"`                // True only if all tests passed (or none ran) and the final step completed
	Steps       []Step        `json:"steps"`                  // Ordered snapshot of the full step ledger
	TestResults []TestResult  `json:"test_results,omitempty"` // Parsed validation results (possibly empty)
	FinalOutput string        `json:"final_output,omitempty"` // Concatenation of all streamed output (optional)
	Error       string        `json:"error,omitempty"`        // Failure message for failed tasks (optional)
	Duration    time.Duration `json:"duration"`               // Elapsed wall-clock time
}

// AllTestsPassed reports whether every recorded test result passed.
// An empty result list counts as passing.
func (r *TaskResult) AllTestsPassed() bool {
	for _, tr := range r.TestResults {
		if !tr.Passed {
			return false
		}
	}
	return true
}

// LastStep returns the final step of the snapshot, or nil if there are none.
func (r *TaskResult) LastStep() *Step {
	if len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}
