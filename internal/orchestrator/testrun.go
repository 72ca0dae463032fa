package orchestrator

import (
	"strings"

	"github.com/harrison/foreman/internal/models"
)

// ParseTestResults parses the fixed validation-report grammar into
// structured records. Each well-formed block is exactly:
//
//	TEST: <name>
//	STATUS: <PASS or FAIL>
//	OUTPUT: <text, possibly spanning lines until the next TEST: or EOF>
//
// Malformed blocks are silently dropped; a report with no well-formed
// blocks yields an empty list, which is not an error condition.
func ParseTestResults(output string) []models.TestResult {
	lines := strings.Split(output, "\n")
	var results []models.TestResult

	for i := 0; i < len(lines); i++ {
		name, ok := fieldValue(lines[i], "TEST:")
		if !ok {
			continue
		}

		// STATUS: and OUTPUT: must follow immediately, in order.
		if i+2 >= len(lines) {
			continue
		}
		status, ok := fieldValue(lines[i+1], "STATUS:")
		if !ok {
			continue
		}
		firstOutput, ok := fieldValue(lines[i+2], "OUTPUT:")
		if !ok {
			continue
		}

		// Output continues until the next TEST: line or EOF.
		outputLines := []string{firstOutput}
		next := i + 3
		for next < len(lines) {
			if _, isTest := fieldValue(lines[next], "TEST:"); isTest {
				break
			}
			outputLines = append(outputLines, lines[next])
			next++
		}
		i = next - 1

		result := models.TestResult{
			Name:   name,
			Passed: strings.EqualFold(status, "PASS"),
			Output: strings.TrimSpace(strings.Join(outputLines, "\n")),
		}
		if !result.Passed {
			result.Error = result.Output
			if result.Error == "" {
				result.Error = "test failed"
			}
		}
		results = append(results, result)
	}

	return results
}

// fieldValue returns the trimmed value of a "PREFIX value" line and
// whether the line carries that prefix.
func fieldValue(line, prefix string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix)), true
}
