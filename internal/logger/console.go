// Package logger provides logging implementations for foreman execution.
//
// The logger package offers structured logging of task progress at the
// phase and summary levels. Implementations are thread-safe and support
// console and file destinations.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/foreman/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs task progress to a writer with timestamps and thread
// safety. All output is prefixed with [HH:MM:SS] timestamps. It supports
// log level filtering, and color output is automatically enabled when
// writing to a TTY.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok && (w == os.Stdout || w == os.Stderr) {
		// color.NoColor honors the NO_COLOR convention
		return !color.NoColor && isatty.IsTerminal(f.Fd())
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates
// it. Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel logs a message at the specified level if filtering allows it.
// Format: "[HH:MM:SS] [LEVEL] <message>"
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string

	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// colorLevel returns the level tag with its ANSI color applied.
func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogPhaseStart logs a phase transition at INFO level.
// Format: "[HH:MM:SS] Task <id>: entering <phase>"
func (cl *ConsoleLogger) LogPhaseStart(taskID, phase string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		phaseText := color.New(color.Bold).Sprint(phase)
		fmt.Fprintf(cl.writer, "[%s] Task %s: entering %s\n", ts, taskID, phaseText)
	} else {
		fmt.Fprintf(cl.writer, "[%s] Task %s: entering %s\n", ts, taskID, phase)
	}
}

// LogSummary logs the terminal task summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.TaskResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(result.Duration)

	passed := 0
	for _, tr := range result.TestResults {
		if tr.Passed {
			passed++
		}
	}

	var output string
	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Task Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Task: %s\n", ts, result.TaskID)

		var outcome string
		if result.Success {
			outcome = color.New(color.FgGreen).Sprint("succeeded")
		} else {
			outcome = color.New(color.FgRed).Sprint("failed")
		}
		output += fmt.Sprintf("[%s] Outcome: %s\n", ts, outcome)
		output += fmt.Sprintf("[%s] Steps: %d\n", ts, len(result.Steps))
		output += fmt.Sprintf("[%s] Tests: %d/%d passed\n", ts, passed, len(result.TestResults))
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)
		if result.Error != "" {
			errText := color.New(color.FgRed).Sprintf("Error: %s", result.Error)
			output += fmt.Sprintf("[%s] %s\n", ts, errText)
		}
	} else {
		output = fmt.Sprintf("[%s] === Task Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Task: %s\n", ts, result.TaskID)
		if result.Success {
			output += fmt.Sprintf("[%s] Outcome: succeeded\n", ts)
		} else {
			output += fmt.Sprintf("[%s] Outcome: failed\n", ts)
		}
		output += fmt.Sprintf("[%s] Steps: %d\n", ts, len(result.Steps))
		output += fmt.Sprintf("[%s] Tests: %d/%d passed\n", ts, passed, len(result.TestResults))
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)
		if result.Error != "" {
			output += fmt.Sprintf("[%s] Error: %s\n", ts, result.Error)
		}
	}

	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders a duration with second precision for readability.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// NoOpLogger discards all log output. Useful in tests.
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards everything.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogTrace discards the message.
func (n *NoOpLogger) LogTrace(message string) {}

// LogDebug discards the message.
func (n *NoOpLogger) LogDebug(message string) {}

// LogInfo discards the message.
func (n *NoOpLogger) LogInfo(message string) {}

// LogWarn discards the message.
func (n *NoOpLogger) LogWarn(message string) {}

// LogError discards the message.
func (n *NoOpLogger) LogError(message string) {}

// LogPhaseStart discards the phase transition.
func (n *NoOpLogger) LogPhaseStart(taskID, phase string) {}

// LogSummary discards the summary.
func (n *NoOpLogger) LogSummary(result models.TaskResult) {}
