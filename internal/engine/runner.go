package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout is the per-invocation wall-clock bound applied when
// neither the runner nor the call options specify one.
const DefaultTimeout = 10 * time.Minute

// chunkSize is the stdout read granularity. Chunks are delivered to the
// caller exactly as they arrive, so the value only caps chunk length.
const chunkSize = 4096

// RunOptions holds per-invocation configuration for an engine call.
type RunOptions struct {
	// Timeout overrides the runner's default wall-clock timeout (optional).
	Timeout time.Duration

	// OnChunk receives each stdout chunk synchronously, in arrival order,
	// before the chunk is appended to the accumulated buffer (optional).
	// It must not block for long; the engine keeps emitting regardless.
	OnChunk func(text string)
}

// Runner abstracts the execution engine so orchestration logic can be
// tested against fakes.
type Runner interface {
	// Run invokes the engine once with the given prompt. It resolves with
	// the full accumulated stdout on exit code 0, or fails with a
	// *SpawnError, *ExitError, or *TimeoutError. A stdout read failure on
	// an otherwise clean exit is reported as a plain wrapped error.
	Run(ctx context.Context, prompt string, opts RunOptions) (string, error)

	// Kill force-terminates the live engine process, if any. Safe to call
	// concurrently with Run and when no process is running.
	Kill()
}

// CLIRunner invokes the engine binary as a subprocess. One subprocess per
// Run call; callers are responsible for not overlapping calls on the same
// runner (the orchestrator owns at most one live process at a time).
type CLIRunner struct {
	// EnginePath is the engine binary. Defaults to "engine" (found in PATH).
	EnginePath string

	// AutoApprove passes the engine's non-interactive approval flag so it
	// never stalls on permission prompts.
	AutoApprove bool

	// Dir is the working directory for the engine process. Empty means the
	// current process's working directory.
	Dir string

	// Env is the declared environment for the engine beyond the passthrough
	// allowlist. Nil is valid.
	Env map[string]string

	// Stderr receives the engine's stderr stream for diagnostics. Stderr
	// never affects success or failure. Nil discards it.
	Stderr io.Writer

	// Timeout is the default per-invocation timeout. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	mu      sync.Mutex
	current *exec.Cmd
}

// NewCLIRunner creates a CLIRunner with default settings.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{
		EnginePath:  "engine",
		AutoApprove: true,
	}
}

// Run executes the engine binary with the given prompt, streaming stdout
// chunks to opts.OnChunk as they arrive.
func (r *CLIRunner) Run(ctx context.Context, prompt string, opts RunOptions) (string, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = r.Timeout
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := r.EnginePath
	if path == "" {
		path = "engine"
	}

	args := []string{"-p", prompt}
	if r.AutoApprove {
		args = append(args, "--auto-approve")
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.Dir
	setDeclaredEnv(cmd, r.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &SpawnError{Path: path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &SpawnError{Path: path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return "", &SpawnError{Path: path, Err: err}
	}
	r.setCurrent(cmd)
	defer r.setCurrent(nil)

	// Drain stderr concurrently so the child never blocks on a full pipe.
	var stderrTail strings.Builder
	var drained sync.WaitGroup
	drained.Add(1)
	go func() {
		defer drained.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, chunkSize), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			recordStderrTail(&stderrTail, line)
			if r.Stderr != nil {
				io.WriteString(r.Stderr, line+"\n")
			}
		}
	}()

	// Stdout is consumed on the calling goroutine so OnChunk delivery is
	// synchronous and strictly ordered.
	var output strings.Builder
	buf := make([]byte, chunkSize)
	var readErr error
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if opts.OnChunk != nil {
				opts.OnChunk(chunk)
			}
			output.WriteString(chunk)
		}
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break
		}
	}

	drained.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil || readErr != nil {
		return "", classifyRunError(ctx.Err(), timeout, path, waitErr, readErr, strings.TrimSpace(stderrTail.String()))
	}

	return output.String(), nil
}

// classifyRunError maps the raw wait/read outcome of a finished engine call
// onto the typed error set. A stdout read failure after a clean exit is a
// plain wrapped error: the process spawned and ran, so neither SpawnError
// nor ExitError fits.
func classifyRunError(ctxErr error, timeout time.Duration, path string, waitErr, readErr error, stderrTail string) error {
	if ctxErr == context.DeadlineExceeded {
		return &TimeoutError{Timeout: timeout.String()}
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: stderrTail}
	}
	if waitErr != nil {
		return &SpawnError{Path: path, Err: waitErr}
	}
	return fmt.Errorf("engine %s: reading stdout: %w", path, readErr)
}

// Kill force-terminates the live engine process, if any.
func (r *CLIRunner) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.Process != nil {
		r.current.Process.Kill()
	}
}

func (r *CLIRunner) setCurrent(cmd *exec.Cmd) {
	r.mu.Lock()
	r.current = cmd
	r.mu.Unlock()
}

// stderrTailLimit caps how much stderr is kept for error messages.
const stderrTailLimit = 600

func recordStderrTail(sb *strings.Builder, line string) {
	sb.WriteString(line)
	sb.WriteString("\n")
	if sb.Len() > stderrTailLimit*2 {
		tail := sb.String()
		tail = tail[len(tail)-stderrTailLimit:]
		sb.Reset()
		sb.WriteString(tail)
	}
}
