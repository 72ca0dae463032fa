package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/foreman/internal/models"
)

func sampleResult(taskID string, success bool) *models.TaskResult {
	return &models.TaskResult{
		TaskID:  taskID,
		Success: success,
		Steps: []models.Step{
			{Sequence: 1, Action: "create execution plan", Status: models.StepCompleted},
			{Sequence: 2, Action: "iteration 1", Status: models.StepCompleted},
		},
		TestResults: []models.TestResult{
			{Name: "build", Passed: true},
			{Name: "unit", Passed: success},
		},
		Duration: 42 * time.Second,
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveResult(ctx, sampleResult("alpha", true)))

	rec, err := store.GetResult(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", rec.TaskID)
	assert.True(t, rec.Success)
	assert.Equal(t, 2, rec.StepCount)
	assert.Equal(t, 2, rec.TestsPassed)
	assert.Equal(t, 2, rec.TestsTotal)
	assert.Equal(t, 42*time.Second, rec.Duration)
}

func TestSQLiteStoreGetResultNotFound(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreListResults(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveResult(ctx, sampleResult("one", true)))
	require.NoError(t, store.SaveResult(ctx, sampleResult("two", false)))
	require.NoError(t, store.SaveResult(ctx, sampleResult("three", true)))

	records, err := store.ListResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	limited, err := store.ListResults(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStoreCreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state", "history.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveResult(context.Background(), sampleResult("persisted", false)))

	rec, err := store.GetResult(context.Background(), "persisted")
	require.NoError(t, err)
	assert.False(t, rec.Success)
}
