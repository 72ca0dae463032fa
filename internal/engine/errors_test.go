package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	spawn := &SpawnError{Path: "engine", Err: errors.New("not found")}
	exit := &ExitError{Code: 2, Stderr: "boom"}
	timeout := &TimeoutError{Timeout: "10m"}

	assert.True(t, IsSpawnError(spawn))
	assert.False(t, IsSpawnError(exit))

	assert.True(t, IsExitError(exit))
	assert.False(t, IsExitError(timeout))

	assert.True(t, IsTimeoutError(timeout))
	assert.False(t, IsTimeoutError(spawn))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("iteration 3: %w", &ExitError{Code: 1})
	assert.True(t, IsExitError(wrapped))

	wrappedTimeout := fmt.Errorf("outer: %w", &TimeoutError{Timeout: "1m"})
	assert.True(t, IsTimeoutError(wrappedTimeout))
}

func TestTimeoutErrorUnwrapsToDeadlineExceeded(t *testing.T) {
	err := &TimeoutError{Timeout: "30s"}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTimeoutError(fmt.Errorf("x: %w", context.DeadlineExceeded)))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&SpawnError{Path: "engine", Err: errors.New("no such file")}).Error(), "failed to spawn")
	assert.Equal(t, "engine exited with code 7", (&ExitError{Code: 7}).Error())
	assert.Contains(t, (&ExitError{Code: 7, Stderr: "tail"}).Error(), "tail")
	assert.Contains(t, (&TimeoutError{Timeout: "5m"}).Error(), "5m")
}
