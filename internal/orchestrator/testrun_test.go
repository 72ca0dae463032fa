package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestResults(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{
			name: "single passing block",
			output: `TEST: build
STATUS: PASS
OUTPUT: ok`,
			want: 1,
		},
		{
			name: "multiple blocks with surrounding prose",
			output: `Ran the suite, results below.

TEST: build
STATUS: PASS
OUTPUT: compiled cleanly

TEST: unit
STATUS: FAIL
OUTPUT: want 3, got 4

All done.`,
			want: 2,
		},
		{
			name:   "no blocks at all",
			output: "everything looks fine to me",
			want:   0,
		},
		{
			name:   "empty output",
			output: "",
			want:   0,
		},
		{
			name: "missing STATUS line drops the block",
			output: `TEST: broken
OUTPUT: no status here

TEST: good
STATUS: PASS
OUTPUT: fine`,
			want: 1,
		},
		{
			name: "fields out of order drop the block",
			output: `STATUS: PASS
TEST: reversed
OUTPUT: nope`,
			want: 0,
		},
		{
			name: "truncated final block is dropped",
			output: `TEST: good
STATUS: PASS
OUTPUT: fine

TEST: truncated
STATUS: PASS`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := ParseTestResults(tt.output)
			assert.Len(t, results, tt.want)
		})
	}
}

func TestParseTestResultsFields(t *testing.T) {
	output := `TEST: integration
STATUS: fail
OUTPUT: connection refused
retrying did not help

TEST: smoke
STATUS: PASS
OUTPUT: 200 OK`

	results := ParseTestResults(output)
	require.Len(t, results, 2)

	assert.Equal(t, "integration", results[0].Name)
	assert.False(t, results[0].Passed, "status matching is exact on PASS, case-insensitive")
	assert.Contains(t, results[0].Output, "retrying did not help", "output spans lines until the next TEST:")
	assert.Equal(t, results[0].Output, results[0].Error)

	assert.Equal(t, "smoke", results[1].Name)
	assert.True(t, results[1].Passed)
	assert.Equal(t, "200 OK", results[1].Output)
	assert.Empty(t, results[1].Error)
}

// ParseTestResults is pure: parsing the same report twice yields identical
// result lists.
func TestParseTestResultsIsIdempotent(t *testing.T) {
	const output = `TEST: build
STATUS: PASS
OUTPUT: ok

TEST: unit
STATUS: FAIL
OUTPUT: want 3, got 4`

	first := ParseTestResults(output)
	second := ParseTestResults(output)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestParseTestResultsFailWithEmptyOutput(t *testing.T) {
	results := ParseTestResults("TEST: t\nSTATUS: FAIL\nOUTPUT:")
	require.Len(t, results, 1)
	assert.Equal(t, "test failed", results[0].Error)
}
