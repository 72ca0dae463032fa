package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name           string
		output         string
		shouldContinue bool
		reasoning      string
	}{
		{
			name:           "task complete stops",
			output:         "All edits made. Task complete.",
			shouldContinue: false,
			reasoning:      ReasonComplete,
		},
		{
			name:           "implementation is complete stops",
			output:         "The implementation is complete and documented.",
			shouldContinue: false,
			reasoning:      ReasonComplete,
		},
		{
			name:           "all tests passing stops",
			output:         "Ran the suite: all tests passing.",
			shouldContinue: false,
			reasoning:      ReasonComplete,
		},
		{
			name:           "successful deployment stops",
			output:         "Rolled out: successful deployment to staging.",
			shouldContinue: false,
			reasoning:      ReasonComplete,
		},
		{
			name:           "no errors stops",
			output:         "Build finished with no errors.",
			shouldContinue: false,
			reasoning:      ReasonComplete,
		},
		{
			name:           "error marker continues with fixes",
			output:         "compile error: undefined symbol frobnicate",
			shouldContinue: true,
			reasoning:      ReasonErrors,
		},
		{
			name:           "failure token continues with fixes",
			output:         "2 tests failed in the cache package",
			shouldContinue: true,
			reasoning:      ReasonErrors,
		},
		{
			name:           "nil pointer continues with fixes",
			output:         "panic: runtime error caused by nil pointer dereference",
			shouldContinue: true,
			reasoning:      ReasonErrors,
		},
		{
			name:           "undefined reference continues with fixes",
			output:         "TypeError: undefined is not a function",
			shouldContinue: true,
			reasoning:      ReasonErrors,
		},
		{
			name:           "error outranks completion claim",
			output:         "Task complete! (but one test failed on the way)",
			shouldContinue: true,
			reasoning:      ReasonErrors,
		},
		{
			name:           "neutral output keeps iterating",
			output:         "Refactored the handler, moving on to the store next.",
			shouldContinue: true,
			reasoning:      ReasonInProgress,
		},
		{
			name:           "empty output keeps iterating",
			output:         "",
			shouldContinue: true,
			reasoning:      ReasonInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.output)
			assert.Equal(t, tt.shouldContinue, d.ShouldContinue)
			assert.Equal(t, tt.reasoning, d.Reasoning)
		})
	}
}

func TestDecideNextSteps(t *testing.T) {
	d := Decide("error: broken build")
	assert.Equal(t, []string{"analyze error", "apply fix", "re-test"}, d.NextSteps)

	d = Decide("halfway through the refactor")
	assert.Equal(t, []string{"continue implementation", "verify progress"}, d.NextSteps)

	d = Decide("task complete")
	assert.Empty(t, d.NextSteps)
}

// Decide is pure: identical input, identical verdict.
func TestDecideIsDeterministic(t *testing.T) {
	const output = "Task complete, though one check failed earlier."
	first := Decide(output)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(output))
	}
}

func TestScanChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		kinds []StreamEventKind
	}{
		{
			name:  "error token",
			chunk: "hit an error while linking",
			kinds: []StreamEventKind{StreamError},
		},
		{
			name:  "test pass",
			chunk: "=== RUN TestThing\n--- PASS: TestThing",
			kinds: []StreamEventKind{StreamTestPass},
		},
		{
			name:  "file write",
			chunk: "created internal/cache/cache.go with the new type",
			kinds: []StreamEventKind{StreamFileWrite},
		},
		{
			name:  "command run",
			chunk: "$ go test ./...",
			kinds: []StreamEventKind{StreamCommandRun},
		},
		{
			name:  "quiet chunk",
			chunk: "thinking about the next change",
			kinds: nil,
		},
		{
			name:  "empty chunk",
			chunk: "",
			kinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := ScanChunk(tt.chunk)
			var kinds []StreamEventKind
			for _, ev := range events {
				kinds = append(kinds, ev.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}
