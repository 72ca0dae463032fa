package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, sampleResult("m1", true)))

	rec, err := store.GetResult(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, 2, rec.StepCount)

	_, err = store.GetResult(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetReturnsLatest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, sampleResult("m1", false)))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.SaveResult(ctx, sampleResult("m1", true)))

	rec, err := store.GetResult(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, rec.Success, "GetResult returns the most recent record")
}

func TestMemoryStoreListLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveResult(ctx, sampleResult(id, true)))
	}

	records, err := store.ListResults(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	all, err := store.ListResults(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
