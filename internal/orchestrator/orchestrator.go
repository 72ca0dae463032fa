// Package orchestrator drives a task through its full lifecycle: planning,
// bounded iteration, validation, and reporting. One Orchestrator instance
// executes exactly one task; fatal conditions inside the lifecycle surface
// as a failed TaskResult, not as a Go error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harrison/foreman/internal/decision"
	"github.com/harrison/foreman/internal/engine"
	"github.com/harrison/foreman/internal/history"
	"github.com/harrison/foreman/internal/ledger"
	"github.com/harrison/foreman/internal/models"
)

// ContextWindowSteps is how many recent ledger steps are replayed into each
// iteration prompt. Small on purpose: the engine keeps its own working
// state, the window only re-anchors it.
const ContextWindowSteps = 3

// Logger is the logging surface the orchestrator needs. Satisfied by
// logger.ConsoleLogger, logger.FileLogger and logger.NoOpLogger.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogPhaseStart(taskID, phase string)
}

// Options configures optional orchestrator collaborators. The zero value
// means: no persistence, no notifications, discard logs, default event
// buffer and context window.
type Options struct {
	Store         history.Store // Best-effort result persistence (optional)
	Logger        Logger        // Progress logging (optional)
	Notifier      Notifier      // External notification sink (optional)
	EventBuffer   int           // Event channel capacity, 0 means EventBufferSize
	ContextWindow int           // Recent steps per iteration prompt, 0 means ContextWindowSteps
}

// Orchestrator executes one task against an engine runner, recording every
// step in an append-only ledger.
type Orchestrator struct {
	runner        engine.Runner
	recoverer     *Recoverer
	ledger        *ledger.Ledger
	store         history.Store
	log           Logger
	notifier      Notifier
	bus           *eventBus
	contextWindow int

	mu         sync.Mutex
	started    bool
	finished   bool
	terminated bool
	taskID     string
	output     strings.Builder
}

// noopLogger backs the zero-value Options.Logger.
type noopLogger struct{}

func (noopLogger) LogDebug(string) {}

func (noopLogger) LogInfo(string) {}

func (noopLogger) LogWarn(string) {}

func (noopLogger) LogError(string) {}

func (noopLogger) LogPhaseStart(_, _ string) {}

// New creates an Orchestrator for a single task execution.
func New(runner engine.Runner, opts Options) (*Orchestrator, error) {
	if runner == nil {
		return nil, errors.New("engine runner is required")
	}

	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	window := opts.ContextWindow
	if window <= 0 {
		window = ContextWindowSteps
	}

	return &Orchestrator{
		runner:        runner,
		recoverer:     NewRecoverer(runner),
		ledger:        ledger.New(),
		store:         opts.Store,
		log:           log,
		notifier:      opts.Notifier,
		bus:           newEventBus(opts.EventBuffer),
		contextWindow: window,
	}, nil
}

// Events returns the lifecycle event channel. It is closed when the task
// reaches a terminal state. Consumers that fall behind lose events rather
// than slowing execution down.
func (o *Orchestrator) Events() <-chan Event {
	return o.bus.ch
}

// DroppedEvents reports how many lifecycle events were discarded because
// the event buffer was full.
func (o *Orchestrator) DroppedEvents() uint64 {
	return o.bus.droppedCount()
}

// Ledger returns the live step ledger for observation.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// ExecuteTask runs the task through planning, iterating, testing and
// reporting. The returned error is non-nil only for caller misuse (invalid
// task, reusing an orchestrator); every failure inside the lifecycle is
// reported through TaskResult.Success and TaskResult.Error instead.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task models.Task) (*models.TaskResult, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrNotRunnable
	}
	o.started = true
	o.taskID = task.ID
	o.mu.Unlock()

	start := time.Now()
	o.emit(EventTaskStarted, 0, task.Description)
	o.notify(fmt.Sprintf("task %s started", task.ID))

	var fatalErr error
	if !o.isTerminated() {
		fatalErr = o.runPlanning(ctx, task)
	}

	if fatalErr == nil && !o.isTerminated() {
		fatalErr = o.runIterations(ctx, task)
	}

	var testResults []models.TestResult
	if fatalErr == nil && !o.isTerminated() {
		testResults = o.runTesting(ctx, task)
	}

	return o.report(task, start, fatalErr, testResults), nil
}

// Terminate kills the engine subprocess and marks the run terminated. Safe
// to call from another goroutine and idempotent; the lifecycle observes the
// flag and proceeds straight to reporting.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	if o.terminated || o.finished {
		o.mu.Unlock()
		return
	}
	o.terminated = true
	taskID := o.taskID
	o.mu.Unlock()

	o.runner.Kill()
	o.log.LogWarn(fmt.Sprintf("task %s terminated", taskID))
	o.emit(EventTerminated, 0, "terminated by caller")
	o.notify(fmt.Sprintf("task %s terminated", taskID))
}

// enterPhase announces a lifecycle phase transition to the logger and the
// notification sink.
func (o *Orchestrator) enterPhase(taskID, phase string) {
	o.log.LogPhaseStart(taskID, phase)
	o.notify(fmt.Sprintf("task %s: %s phase started", taskID, phase))
}

// runPlanning executes the planning phase. Any failure here is fatal.
func (o *Orchestrator) runPlanning(ctx context.Context, task models.Task) error {
	o.enterPhase(task.ID, "planning")

	step := o.ledger.NewStep("create execution plan")
	o.emit(EventStepStarted, step.Sequence, step.Action)

	output, err := o.runner.Run(ctx, buildPlanPrompt(task), engine.RunOptions{
		OnChunk: o.chunkSink(step.Sequence),
	})
	if err != nil {
		step.Fail(err.Error())
		return &PlanningError{Err: err}
	}

	plan, err := parsePlan(output)
	if err != nil {
		step.Fail(err.Error())
		return &PlanningError{Err: err}
	}

	step.NextSteps = append([]string(nil), plan.Steps...)
	step.Decision = plan.Analysis
	step.Complete(output)

	o.log.LogDebug(fmt.Sprintf("plan accepted with %d steps", len(plan.Steps)))
	return nil
}

// runIterations executes the bounded iteration loop. Each iteration failure
// gets exactly one recovery attempt; a failed recovery is fatal. Reaching
// the iteration bound without a stop verdict is a warning, never an error.
func (o *Orchestrator) runIterations(ctx context.Context, task models.Task) error {
	o.enterPhase(task.ID, "iterating")

	bound := task.IterationBound()
	stopped := false

	for i := 1; i <= bound; i++ {
		if o.isTerminated() {
			return errors.New("task terminated")
		}

		recent := o.ledger.LastN(o.contextWindow)
		step := o.ledger.NewStep(fmt.Sprintf("iteration %d", i))
		o.emit(EventStepStarted, step.Sequence, step.Action)
		o.notify(fmt.Sprintf("task %s: iteration %d started", task.ID, i))

		output, err := o.runner.Run(ctx, buildIterationPrompt(task, recent, i, bound), engine.RunOptions{
			OnChunk: o.chunkSink(step.Sequence),
		})
		if err != nil {
			step.Fail(err.Error())
			if o.isTerminated() {
				return errors.New("task terminated")
			}

			o.log.LogWarn(fmt.Sprintf("iteration %d failed: %v", i, err))
			o.notify(fmt.Sprintf("task %s: iteration %d failed: %v", task.ID, i, err))
			if !o.attemptRecovery(ctx, task, err) {
				return &RecoveryExhaustedError{Original: err}
			}
			continue
		}

		verdict := decision.Decide(output)
		step.Decision = verdict.Reasoning
		step.NextSteps = verdict.NextSteps
		step.Complete(output)
		o.log.LogDebug(fmt.Sprintf("iteration %d: %s", i, verdict.Reasoning))
		o.notify(fmt.Sprintf("task %s: iteration %d finished: %s", task.ID, i, verdict.Reasoning))

		if !verdict.ShouldContinue {
			stopped = true
			break
		}
	}

	if !stopped && !o.isTerminated() {
		msg := fmt.Sprintf("reached iteration limit (%d) without a completion signal", bound)
		o.log.LogWarn(msg)
		o.emit(EventWarning, 0, msg)
	}
	return nil
}

// attemptRecovery makes the single remediation call for a failed iteration,
// recording it as its own ledger step. Returns true when the run may
// continue.
func (o *Orchestrator) attemptRecovery(ctx context.Context, task models.Task, failure error) bool {
	step := o.ledger.NewStep("recover from iteration failure")
	o.emit(EventStepStarted, step.Sequence, step.Action)

	var captured strings.Builder
	sink := o.chunkSink(step.Sequence)
	ok := o.recoverer.Recover(ctx, failure, task, func(chunk string) {
		captured.WriteString(chunk)
		sink(chunk)
	})

	if !ok {
		step.Fail("recovery attempt failed")
		o.log.LogError(fmt.Sprintf("recovery failed for: %v", failure))
		return false
	}

	step.Decision = "recovered, resuming iterations"
	step.Complete(captured.String())
	o.log.LogInfo("recovery succeeded, resuming iterations")
	return true
}

// runTesting executes the validation pass. A failed validation run degrades
// to empty results; it never aborts the task on its own, though the failed
// step still counts against overall success.
func (o *Orchestrator) runTesting(ctx context.Context, task models.Task) []models.TestResult {
	o.enterPhase(task.ID, "testing")

	step := o.ledger.NewStep("run validation tests")
	o.emit(EventStepStarted, step.Sequence, step.Action)

	output, err := o.runner.Run(ctx, buildTestPrompt(task), engine.RunOptions{
		OnChunk: o.chunkSink(step.Sequence),
	})
	if err != nil {
		step.Fail(err.Error())
		o.log.LogWarn(fmt.Sprintf("validation run failed, continuing without test results: %v", err))
		return nil
	}

	step.Complete(output)
	results := ParseTestResults(output)
	o.log.LogDebug(fmt.Sprintf("parsed %d test results", len(results)))
	return results
}

// report assembles the terminal TaskResult, reconciles the ledger,
// persists the result best-effort, and closes the event channel.
func (o *Orchestrator) report(task models.Task, start time.Time, fatalErr error, testResults []models.TestResult) *models.TaskResult {
	o.enterPhase(task.ID, "reporting")

	if o.isTerminated() {
		o.ledger.FailRunning("terminated")
		if fatalErr == nil {
			fatalErr = errors.New("task terminated")
		}
	} else {
		o.ledger.FailRunning("interrupted")
	}

	o.mu.Lock()
	finalOutput := o.output.String()
	o.finished = true
	o.mu.Unlock()

	result := &models.TaskResult{
		TaskID:      task.ID,
		Steps:       o.ledger.All(),
		TestResults: testResults,
		FinalOutput: finalOutput,
		Duration:    time.Since(start),
	}

	last := result.LastStep()
	result.Success = fatalErr == nil &&
		result.AllTestsPassed() &&
		last != nil && last.Status == models.StepCompleted

	switch {
	case fatalErr != nil:
		result.Error = fatalErr.Error()
	case !result.AllTestsPassed():
		result.Error = "one or more validation tests failed"
	case !result.Success:
		result.Error = "final step did not complete"
	}

	o.persist(result)

	if result.Success {
		o.emit(EventTaskCompleted, 0, "task completed")
		o.notify(fmt.Sprintf("task %s completed", task.ID))
	} else {
		o.emit(EventTaskFailed, 0, result.Error)
		o.notify(fmt.Sprintf("task %s failed: %s", task.ID, result.Error))
	}

	if dropped := o.bus.droppedCount(); dropped > 0 {
		o.log.LogDebug(fmt.Sprintf("dropped %d lifecycle events", dropped))
	}
	o.bus.close()

	return result
}

// persist saves the result best-effort; storage failures are logged and
// swallowed.
func (o *Orchestrator) persist(result *models.TaskResult) {
	if o.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.store.SaveResult(ctx, result); err != nil {
		o.log.LogWarn(fmt.Sprintf("failed to save task result: %v", err))
	}
}

// chunkSink returns the synchronous per-chunk callback for a step: it
// appends the chunk to the accumulated final output, publishes an output
// event, and maps stream matches to progress events.
func (o *Orchestrator) chunkSink(sequence int) func(string) {
	return func(chunk string) {
		o.mu.Lock()
		o.output.WriteString(chunk)
		o.mu.Unlock()

		o.emit(EventOutput, sequence, chunk)

		for _, ev := range decision.ScanChunk(chunk) {
			switch ev.Kind {
			case decision.StreamError:
				o.emit(EventWarning, sequence, "error token in output stream")
			case decision.StreamTestPass:
				o.emit(EventTestPassed, sequence, "passing test in output stream")
			case decision.StreamFileWrite:
				o.emit(EventFileModified, sequence, "file write in output stream")
				o.notify("file write in output stream")
			case decision.StreamCommandRun:
				o.emit(EventCommandRun, sequence, "command run in output stream")
				o.notify("command run in output stream")
			}
		}
	}
}

func (o *Orchestrator) emit(eventType EventType, sequence int, message string) {
	o.mu.Lock()
	taskID := o.taskID
	o.mu.Unlock()

	o.bus.emit(Event{
		Type:      eventType,
		TaskID:    taskID,
		Sequence:  sequence,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) notify(message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(message); err != nil {
		o.log.LogWarn(fmt.Sprintf("notification failed: %v", err))
	}
}

func (o *Orchestrator) isTerminated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.terminated
}
