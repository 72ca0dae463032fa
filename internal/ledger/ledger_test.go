package ledger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/foreman/internal/models"
)

func TestSequencesStartAtOneAndIncrement(t *testing.T) {
	l := New()

	for i := 1; i <= 5; i++ {
		step := l.NewStep(fmt.Sprintf("action %d", i))
		assert.Equal(t, i, step.Sequence)
		assert.Equal(t, models.StepRunning, step.Status)
		assert.False(t, step.Timestamp.IsZero())
	}
	assert.Equal(t, 5, l.Len())
}

func TestGet(t *testing.T) {
	l := New()
	l.NewStep("first")
	l.NewStep("second")

	step, ok := l.Get(2)
	require.True(t, ok)
	assert.Equal(t, "second", step.Action)

	_, ok = l.Get(0)
	assert.False(t, ok)
	_, ok = l.Get(3)
	assert.False(t, ok)
}

func TestLastN(t *testing.T) {
	l := New()
	for i := 1; i <= 4; i++ {
		l.NewStep(fmt.Sprintf("action %d", i))
	}

	recent := l.LastN(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Sequence)
	assert.Equal(t, 4, recent[1].Sequence)

	assert.Len(t, l.LastN(10), 4, "window larger than ledger returns everything")
	assert.Empty(t, l.LastN(0))
}

func TestSnapshotsAreCopies(t *testing.T) {
	l := New()
	live := l.NewStep("work")

	snapshot := l.All()
	require.Len(t, snapshot, 1)

	live.Complete("done")
	assert.Equal(t, models.StepRunning, snapshot[0].Status, "snapshot must not track later mutations")

	fresh := l.All()
	assert.Equal(t, models.StepCompleted, fresh[0].Status)
}

func TestFailRunning(t *testing.T) {
	l := New()
	done := l.NewStep("done already")
	done.Complete("ok")
	l.NewStep("still running")
	l.NewStep("also running")

	l.FailRunning("terminated")

	steps := l.All()
	assert.Equal(t, models.StepCompleted, steps[0].Status)
	for _, step := range steps[1:] {
		assert.Equal(t, models.StepFailed, step.Status)
		assert.Equal(t, "terminated", step.Output)
	}
}

func TestConcurrentAppendsKeepSequencesUnique(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.NewStep("concurrent")
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, step := range l.All() {
		assert.False(t, seen[step.Sequence], "duplicate sequence %d", step.Sequence)
		seen[step.Sequence] = true
	}
	assert.Equal(t, 50, l.Len())
}
