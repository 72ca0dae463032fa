package decision

import "regexp"

// StreamEventKind tags a lightweight real-time match over a streamed chunk.
type StreamEventKind int

const (
	// StreamError marks an error token seen mid-stream.
	StreamError StreamEventKind = iota
	// StreamTestPass marks a passing-test token seen mid-stream.
	StreamTestPass
	// StreamFileWrite marks a file create/modify heuristic.
	StreamFileWrite
	// StreamCommandRun marks a command-execution heuristic.
	StreamCommandRun
)

// String returns the string representation of StreamEventKind.
func (k StreamEventKind) String() string {
	switch k {
	case StreamError:
		return "error"
	case StreamTestPass:
		return "test-pass"
	case StreamFileWrite:
		return "file-write"
	case StreamCommandRun:
		return "command-run"
	default:
		return "unknown"
	}
}

// StreamEvent is one real-time match in a streamed chunk. Stream events
// are purely for progress notification; they never gate control flow —
// only Decide over the full output does.
type StreamEvent struct {
	Kind StreamEventKind
}

// streamSignal pairs a kind with its chunk pattern.
type streamSignal struct {
	kind    StreamEventKind
	pattern *regexp.Regexp
}

var streamSignals = []streamSignal{
	{StreamError, regexp.MustCompile(`(?i)\berror\b`)},
	{StreamTestPass, regexp.MustCompile(`(?i)(\btests?\s+pass|\bPASS\b|✓)`)},
	{StreamFileWrite, regexp.MustCompile(`(?i)\b(wrote|writing|created|creating|modified|modifying)\b\s+\S*\.\w+`)},
	{StreamCommandRun, regexp.MustCompile(`(?i)(\brunning\b\s+\S+|^\$\s+|\bexecuting\b)`)},
}

// ScanChunk returns the stream events matched in one chunk, at most one
// per kind, in table order.
func ScanChunk(chunk string) []StreamEvent {
	if chunk == "" {
		return nil
	}
	var events []StreamEvent
	for _, sig := range streamSignals {
		if sig.pattern.MatchString(chunk) {
			events = append(events, StreamEvent{Kind: sig.kind})
		}
	}
	return events
}
