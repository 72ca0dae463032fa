// Package history persists terminal task results. Storage is injected
// into the orchestrator as an interface so tests can substitute an
// in-memory fake; persistence is always best-effort and never affects
// task outcome.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/harrison/foreman/internal/models"
)

// ErrNotFound indicates no stored result exists for the requested task id.
var ErrNotFound = errors.New("task result not found")

// Record is one persisted task outcome summary.
type Record struct {
	TaskID      string
	Success     bool
	Error       string
	StepCount   int
	TestsPassed int
	TestsTotal  int
	Duration    time.Duration
	RecordedAt  time.Time
}

// Store defines the interface for task-result storage.
type Store interface {
	// SaveResult records the terminal result of one task.
	SaveResult(ctx context.Context, result *models.TaskResult) error

	// GetResult returns the stored record for a task id, or ErrNotFound.
	GetResult(ctx context.Context, taskID string) (*Record, error)

	// ListResults returns stored records, most recent first, up to limit
	// (0 means no limit).
	ListResults(ctx context.Context, limit int) ([]*Record, error)

	// Close releases any underlying resources.
	Close() error
}

// MemoryStore is an in-memory Store used in tests and when persistence is
// disabled.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveResult records the result in memory.
func (s *MemoryStore) SaveResult(ctx context.Context, result *models.TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recordFromResult(result, time.Now()))
	return nil
}

// GetResult returns the most recent record for the task id.
func (s *MemoryStore) GetResult(ctx context.Context, taskID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].TaskID == taskID {
			rec := *s.records[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// ListResults returns records most recent first.
func (s *MemoryStore) ListResults(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		copied := *rec
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// recordFromResult summarizes a TaskResult into a storable record.
func recordFromResult(result *models.TaskResult, now time.Time) *Record {
	passed := 0
	for _, tr := range result.TestResults {
		if tr.Passed {
			passed++
		}
	}
	return &Record{
		TaskID:      result.TaskID,
		Success:     result.Success,
		Error:       result.Error,
		StepCount:   len(result.Steps),
		TestsPassed: passed,
		TestsTotal:  len(result.TestResults),
		Duration:    result.Duration,
		RecordedAt:  now,
	}
}
