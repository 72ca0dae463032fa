package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/harrison/foreman/internal/models"
)

// extractJSON attempts to extract a JSON object from mixed content by
// finding the first '{' and the last '}'. Engines often wrap the plan in
// prose; the scan tolerates that. Returns empty string if no boundaries
// are found.
func extractJSON(content string) string {
	start := -1
	end := -1

	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			start = i
			break
		}
	}

	for i := len(content) - 1; i >= 0; i-- {
		if content[i] == '}' {
			end = i
			break
		}
	}

	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}

// parsePlan extracts and decodes the plan JSON embedded in engine output.
func parsePlan(output string) (*models.Plan, error) {
	content := extractJSON(output)
	if content == "" {
		return nil, fmt.Errorf("no JSON object found in planning output")
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	return &plan, nil
}
