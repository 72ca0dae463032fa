package orchestrator

import (
	"fmt"
	"strings"

	"github.com/harrison/foreman/internal/models"
)

// outputSnippetLimit caps how much of a step's captured output is replayed
// into the next iteration's context.
const outputSnippetLimit = 600

// buildPlanPrompt asks the engine for a structured execution plan. The
// response must embed a JSON object with analysis, steps, testing and
// risks fields.
func buildPlanPrompt(task models.Task) string {
	var sb strings.Builder

	sb.WriteString("Create an execution plan for the following task.\n\n")
	fmt.Fprintf(&sb, "Task: %s\n", task.Description)

	if task.WorkingDir != "" {
		fmt.Fprintf(&sb, "Working directory: %s\n", task.WorkingDir)
	}

	if len(task.ContextFiles) > 0 {
		sb.WriteString("\nContext files:\n")
		for _, file := range task.ContextFiles {
			fmt.Fprintf(&sb, "- %s\n", file)
		}
	}

	if len(task.Requirements) > 0 {
		sb.WriteString("\nRequirements:\n")
		for _, req := range task.Requirements {
			fmt.Fprintf(&sb, "- %s\n", req)
		}
	}

	sb.WriteString("\nRespond with a JSON object of the form ")
	sb.WriteString(`{"analysis": "...", "steps": ["..."], "testing": "...", "risks": ["..."]}.`)
	sb.WriteString(" Keep steps small and independently verifiable.\n")

	return sb.String()
}

// buildIterationPrompt asks the engine to continue work, embedding the
// most recent ledger steps as context.
func buildIterationPrompt(task models.Task, recent []models.Step, iteration, bound int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Continue working on the task (iteration %d of %d).\n\n", iteration, bound)
	fmt.Fprintf(&sb, "Task: %s\n", task.Description)

	if len(recent) > 0 {
		sb.WriteString("\nRecent progress:\n")
		for _, step := range recent {
			fmt.Fprintf(&sb, "- step %d [%s] %s", step.Sequence, step.Status, step.Action)
			if step.Decision != "" {
				fmt.Fprintf(&sb, " (%s)", step.Decision)
			}
			sb.WriteString("\n")
			if snippet := tailSnippet(step.Output, outputSnippetLimit); snippet != "" {
				fmt.Fprintf(&sb, "  output: %s\n", snippet)
			}
		}
	}

	sb.WriteString("\nPick up where the previous step left off. ")
	sb.WriteString("State clearly when the task is complete and all tests pass.\n")

	return sb.String()
}

// buildRecoveryPrompt asks the engine to remediate a captured failure.
// Exactly one recovery call is made per failure, so the prompt carries the
// raw error verbatim.
func buildRecoveryPrompt(failure error, task models.Task) string {
	var sb strings.Builder

	sb.WriteString("The previous attempt failed. Analyze the error and fix the underlying problem.\n\n")
	fmt.Fprintf(&sb, "Task: %s\n\n", task.Description)
	sb.WriteString("Error:\n")
	sb.WriteString(failure.Error())
	sb.WriteString("\n\nApply the smallest fix that addresses the error, then stop.\n")

	return sb.String()
}

// buildTestPrompt asks the engine to run the task's validation pass and
// report results in the fixed TEST/STATUS/OUTPUT block grammar.
func buildTestPrompt(task models.Task) string {
	var sb strings.Builder

	sb.WriteString("Run the tests that validate the completed task and report every result.\n\n")
	fmt.Fprintf(&sb, "Task: %s\n", task.Description)

	sb.WriteString("\nReport each test as a block of exactly three lines:\n")
	sb.WriteString("TEST: <name>\n")
	sb.WriteString("STATUS: <PASS or FAIL>\n")
	sb.WriteString("OUTPUT: <relevant output>\n")
	sb.WriteString("\nSeparate blocks with a blank line.\n")

	return sb.String()
}

// tailSnippet returns the last max bytes of s, trimmed, or "" when empty.
func tailSnippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
