package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLogger writes timestamped log lines to a per-run log file inside a
// log directory. The file is named foreman-YYYYMMDD-HHMMSS.log.
type FileLogger struct {
	file     *os.File
	logLevel string
	mutex    sync.Mutex
}

// NewFileLogger creates a FileLogger writing into logDir, creating the
// directory if needed.
func NewFileLogger(logDir, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	name := fmt.Sprintf("foreman-%s.log", time.Now().Format("20060102-150405"))
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{
		file:     file,
		logLevel: normalizeLogLevel(logLevel),
	}, nil
}

// Path returns the path of the underlying log file.
func (fl *FileLogger) Path() string {
	return fl.file.Name()
}

// Close flushes and closes the underlying log file.
func (fl *FileLogger) Close() error {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()
	return fl.file.Close()
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// LogPhaseStart logs a phase transition at INFO level.
func (fl *FileLogger) LogPhaseStart(taskID, phase string) {
	fl.logWithLevel("INFO", fmt.Sprintf("Task %s: entering %s", taskID, phase))
}

func (fl *FileLogger) logWithLevel(level, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}

	fl.mutex.Lock()
	defer fl.mutex.Unlock()

	fmt.Fprintf(fl.file, "[%s] [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), level, message)
}
