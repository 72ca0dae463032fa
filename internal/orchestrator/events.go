package orchestrator

import (
	"sync"
	"time"
)

// EventBufferSize is the capacity of the lifecycle event channel. Events
// beyond a full buffer are dropped, never blocking supervision.
const EventBufferSize = 256

// EventType identifies a lifecycle event.
type EventType string

// Lifecycle event types emitted during task execution. All events are
// advisory; no consumer response is awaited.
const (
	EventTaskStarted   EventType = "task:started"
	EventStepStarted   EventType = "step:started"
	EventOutput        EventType = "output"
	EventWarning       EventType = "warning"
	EventTestPassed    EventType = "test:passed"
	EventFileModified  EventType = "file:modified"
	EventCommandRun    EventType = "command:run"
	EventTaskCompleted EventType = "task:completed"
	EventTaskFailed    EventType = "task:failed"
	EventTerminated    EventType = "terminated"
)

// Event is one lifecycle notification for in-process observers.
type Event struct {
	Type      EventType
	TaskID    string
	Sequence  int    // Step sequence number, when applicable
	Message   string // Event payload: raw chunk for output events, detail otherwise
	Timestamp time.Time
}

// Notifier is the external notification sink. Delivery is fire-and-forget
// and best-effort: errors are logged and swallowed, never affecting task
// outcome.
type Notifier interface {
	Notify(message string) error
}

// eventBus fans lifecycle events out to a bounded buffered channel.
// Sends never block: when the buffer is full the event is counted as
// dropped instead, so a slow observer cannot stall process supervision.
type eventBus struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped uint64
}

func newEventBus(size int) *eventBus {
	if size <= 0 {
		size = EventBufferSize
	}
	return &eventBus{ch: make(chan Event, size)}
}

func (b *eventBus) emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	select {
	case b.ch <- ev:
	default:
		b.dropped++
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

func (b *eventBus) droppedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
