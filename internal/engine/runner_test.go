package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeEngine writes an executable shell script standing in for the
// engine binary and returns its path.
func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "engine")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755)
	require.NoError(t, err)
	return path
}

func TestRunCapturesStdout(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `echo "hello"; echo "world"`)

	out, err := runner.Run(context.Background(), "do something", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", out)
}

func TestRunStreamsChunksInOrder(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `printf "one "; sleep 0.05; printf "two "; sleep 0.05; printf "three"`)

	var chunks []string
	out, err := runner.Run(context.Background(), "stream", RunOptions{
		OnChunk: func(text string) { chunks = append(chunks, text) },
	})
	require.NoError(t, err)

	assert.Equal(t, "one two three", out)
	assert.Equal(t, out, strings.Join(chunks, ""), "chunks concatenate to the full output")
	assert.GreaterOrEqual(t, len(chunks), 2, "output should arrive in multiple chunks")
}

func TestRunPassesPromptAndApprovalFlag(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `printf '%s\n' "$@"`)

	out, err := runner.Run(context.Background(), "fix the bug", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "-p\nfix the bug\n--auto-approve\n", out)

	runner = NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `printf '%s\n' "$@"`)
	runner.AutoApprove = false
	out, err = runner.Run(context.Background(), "fix the bug", RunOptions{})
	require.NoError(t, err)
	assert.NotContains(t, out, "--auto-approve")
}

func TestRunSpawnError(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := runner.Run(context.Background(), "anything", RunOptions{})
	require.Error(t, err)
	assert.True(t, IsSpawnError(err), "expected SpawnError, got %v", err)
}

func TestRunExitErrorCarriesCodeAndStderr(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `echo "partial output"; echo "disk on fire" >&2; exit 3`)

	_, err := runner.Run(context.Background(), "doomed", RunOptions{})
	require.Error(t, err)
	require.True(t, IsExitError(err))

	exitErr := err.(*ExitError)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "disk on fire")
}

func TestRunTimeout(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `sleep 5`)

	start := time.Now()
	_, err := runner.Run(context.Background(), "slow", RunOptions{Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), "expected TimeoutError, got %v", err)
	assert.Less(t, time.Since(start), 3*time.Second, "timeout must kill the process promptly")
}

func TestRunForwardsStderr(t *testing.T) {
	var stderr strings.Builder
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `echo "out"; echo "diagnostic line" >&2`)
	runner.Stderr = &stderr

	out, err := runner.Run(context.Background(), "diag", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "out\n", out, "stderr must never leak into stdout")
	assert.Contains(t, stderr.String(), "diagnostic line")
}

func TestRunDeclaredEnv(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `printf '%s|%s|%s' "$FOREMAN_TOKEN" "$UNDECLARED_VAR" "$TMPDIR"`)
	runner.Env = map[string]string{"FOREMAN_TOKEN": "secret"}

	t.Setenv("UNDECLARED_VAR", "leaked")

	out, err := runner.Run(context.Background(), "env", RunOptions{})
	require.NoError(t, err)

	parts := strings.Split(out, "|")
	require.Len(t, parts, 3)
	assert.Equal(t, "secret", parts[0], "declared variables reach the child")
	assert.Empty(t, parts[1], "undeclared host variables must not leak")
	assert.Equal(t, CleanTmpDir(), parts[2], "TMPDIR is pinned to the clean directory")
}

func TestKillWithoutProcessIsSafe(t *testing.T) {
	runner := NewCLIRunner()
	runner.Kill()
}

func TestKillTerminatesRunningProcess(t *testing.T) {
	runner := NewCLIRunner()
	runner.EnginePath = writeFakeEngine(t, `sleep 5`)

	go func() {
		time.Sleep(100 * time.Millisecond)
		runner.Kill()
	}()

	start := time.Now()
	_, err := runner.Run(context.Background(), "kill me", RunOptions{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestClassifyRunError(t *testing.T) {
	waitErr := errors.New("wait: bad file descriptor")
	readErr := errors.New("read |0: file already closed")

	t.Run("deadline maps to timeout", func(t *testing.T) {
		err := classifyRunError(context.DeadlineExceeded, time.Minute, "engine", waitErr, nil, "")
		assert.True(t, IsTimeoutError(err))
	})

	t.Run("wait failure maps to spawn error", func(t *testing.T) {
		err := classifyRunError(nil, time.Minute, "engine", waitErr, nil, "")
		assert.True(t, IsSpawnError(err))
	})

	t.Run("read failure on clean exit is a plain error", func(t *testing.T) {
		err := classifyRunError(nil, time.Minute, "engine", nil, readErr, "")
		require.Error(t, err)
		assert.False(t, IsSpawnError(err), "the process spawned fine")
		assert.False(t, IsExitError(err), "the process exited zero")
		assert.ErrorIs(t, err, readErr)
	})
}
