package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/foreman/internal/config"
	"github.com/harrison/foreman/internal/engine"
	"github.com/harrison/foreman/internal/filelock"
	"github.com/harrison/foreman/internal/history"
	"github.com/harrison/foreman/internal/logger"
	"github.com/harrison/foreman/internal/models"
	"github.com/harrison/foreman/internal/orchestrator"
	"github.com/harrison/foreman/internal/taskfile"
)

// multiLogger fans log calls out to several loggers, typically console plus
// a per-run log file.
type multiLogger struct {
	loggers []orchestrator.Logger
}

func (m *multiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *multiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *multiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *multiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *multiLogger) LogPhaseStart(taskID, phase string) {
	for _, l := range m.loggers {
		l.LogPhaseStart(taskID, phase)
	}
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task-file]",
		Short: "Execute a task through the full lifecycle",
		Long: `Execute a task: plan it, iterate until completion, validate, report.

The task is given either as a markdown task file or inline via --description.
Configuration is loaded from .foreman/config.yaml in the working directory;
CLI flags override configuration file settings.

Examples:
  # Inline task
  foreman run -d "add a /healthz endpoint to the HTTP server"

  # Task file with frontmatter
  foreman run tasks/add-healthz.md

  # Other options
  foreman run -d "fix the flaky cache test" --max-iterations 5
  foreman run task.md --engine /usr/local/bin/engine --timeout 30m
  foreman run task.md --report result.json --workdir ./service`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: <workdir>/.foreman/config.yaml)")
	cmd.Flags().StringP("description", "d", "", "Inline task description (alternative to a task file)")
	cmd.Flags().String("task-id", "", "Task identifier (default: task file name or a random UUID)")
	cmd.Flags().String("workdir", ".", "Working directory the engine runs in")
	cmd.Flags().String("engine", "", "Engine executable name or path")
	cmd.Flags().String("timeout", "", "Wall-clock limit per engine call (e.g. 30m, 2h)")
	cmd.Flags().Int("max-iterations", 0, "Iteration bound for the task (0 = use config)")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("log-level", "", "Log verbosity: trace, debug, info, warn, error")
	cmd.Flags().String("report", "", "Write the task result as JSON to this file")
	cmd.Flags().Bool("no-history", false, "Disable result persistence for this run")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	workdir, _ := cmd.Flags().GetString("workdir")

	cfg, err := loadRunConfig(cmd, workdir)
	if err != nil {
		return err
	}

	task, err := buildTask(cmd, args, cfg)
	if err != nil {
		return err
	}
	task.WorkingDir = workdir

	// One foreman run per workspace at a time.
	lock, err := filelock.Acquire(workdir)
	if err != nil {
		return err
	}
	defer lock.Release()

	console := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	log := orchestrator.Logger(console)

	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(resolvePath(workdir, cfg.LogDir), cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		log = &multiLogger{loggers: []orchestrator.Logger{console, fileLog}}
	}

	var store history.Store
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		sqlStore, err := history.NewSQLiteStore(resolvePath(workdir, cfg.History.DBPath))
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	runner := engine.NewCLIRunner()
	runner.EnginePath = cfg.Engine.Path
	runner.AutoApprove = cfg.Engine.AutoApprove
	runner.Dir = workdir
	runner.Timeout = cfg.Engine.Timeout
	runner.Stderr = cmd.ErrOrStderr()

	orch, err := orchestrator.New(runner, orchestrator.Options{
		Store:  store,
		Logger: log,
	})
	if err != nil {
		return err
	}

	// Terminate on interrupt; a second interrupt kills the process the
	// usual way.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			orch.Terminate()
		}
	}()

	// Drain lifecycle events so slow output never stalls execution.
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		for ev := range orch.Events() {
			switch ev.Type {
			case orchestrator.EventStepStarted:
				log.LogInfo(fmt.Sprintf("step %d: %s", ev.Sequence, ev.Message))
			case orchestrator.EventWarning:
				log.LogDebug(fmt.Sprintf("step %d: %s", ev.Sequence, ev.Message))
			case orchestrator.EventTestPassed, orchestrator.EventFileModified, orchestrator.EventCommandRun:
				log.LogDebug(fmt.Sprintf("step %d: %s", ev.Sequence, ev.Message))
			}
		}
	}()

	result, err := orch.ExecuteTask(context.Background(), *task)
	<-eventsDone
	if err != nil {
		return err
	}

	console.LogSummary(*result)

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := writeReport(reportPath, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)
	}

	if !result.Success {
		return fmt.Errorf("task %s failed: %s", result.TaskID, result.Error)
	}
	return nil
}

// loadRunConfig loads configuration and merges CLI flags over it.
func loadRunConfig(cmd *cobra.Command, workdir string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(workdir)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var enginePtr *string
	if cmd.Flags().Changed("engine") {
		enginePath, _ := cmd.Flags().GetString("engine")
		enginePtr = &enginePath
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeoutStr, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var maxIterationsPtr *int
	if cmd.Flags().Changed("max-iterations") {
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		maxIterationsPtr = &maxIterations
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		logDir, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &logDir
	}

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &logLevel
	}

	cfg.MergeWithFlags(enginePtr, timeoutPtr, maxIterationsPtr, logDirPtr, logLevelPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildTask assembles the task from a task file or inline flags.
func buildTask(cmd *cobra.Command, args []string, cfg *config.Config) (*models.Task, error) {
	description, _ := cmd.Flags().GetString("description")
	taskID, _ := cmd.Flags().GetString("task-id")

	var task *models.Task
	if len(args) == 1 {
		if description != "" {
			return nil, fmt.Errorf("cannot use both a task file and --description")
		}
		parsed, err := taskfile.NewParser().ParseFile(args[0])
		if err != nil {
			return nil, err
		}
		task = parsed
	} else {
		if description == "" {
			return nil, fmt.Errorf("either a task file or --description is required")
		}
		task = &models.Task{Description: description}
	}

	if taskID != "" {
		task.ID = taskID
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.MaxIterations == 0 {
		task.MaxIterations = cfg.MaxIterations
	}
	return task, nil
}

// writeReport writes the task result as indented JSON, atomically.
func writeReport(path string, result *models.TaskResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return filelock.AtomicWrite(path, append(data, '\n'))
}

// resolvePath anchors relative paths at the working directory.
func resolvePath(workdir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workdir, path)
}
