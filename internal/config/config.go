// Package config loads foreman configuration from .foreman/config.yaml,
// merging file values over defaults and CLI flags over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig configures the engine subprocess invocation.
type EngineConfig struct {
	// Path is the engine executable name or path
	Path string `yaml:"path"`

	// AutoApprove passes --auto-approve so the engine never blocks on prompts
	AutoApprove bool `yaml:"auto_approve"`

	// Timeout is the wall-clock limit per engine invocation
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig configures task-result persistence.
type HistoryConfig struct {
	// Enabled enables result persistence
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents foreman configuration options
type Config struct {
	// Engine configures the engine subprocess
	Engine EngineConfig `yaml:"engine"`

	// MaxIterations bounds the iteration loop per task
	MaxIterations int `yaml:"max_iterations"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where logs will be written
	LogDir string `yaml:"log_dir"`

	// History contains result persistence configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:        "engine",
			AutoApprove: true,
			Timeout:     10 * time.Minute,
		},
		MaxIterations: 20,
		LogLevel:      "info",
		LogDir:        ".foreman/logs",
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".foreman/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Temporary struct so the engine timeout can be given as a duration
	// string like "10m". Booleans use pointers so an explicit false in the
	// file is distinguishable from absence.
	type yamlEngine struct {
		Path        string `yaml:"path"`
		AutoApprove *bool  `yaml:"auto_approve"`
		Timeout     string `yaml:"timeout"`
	}
	type yamlHistory struct {
		Enabled *bool  `yaml:"enabled"`
		DBPath  string `yaml:"db_path"`
	}
	type yamlConfig struct {
		Engine        yamlEngine  `yaml:"engine"`
		MaxIterations int         `yaml:"max_iterations"`
		LogLevel      string      `yaml:"log_level"`
		LogDir        string      `yaml:"log_dir"`
		History       yamlHistory `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply set values from the file, merging with defaults
	if yamlCfg.Engine.Path != "" {
		cfg.Engine.Path = yamlCfg.Engine.Path
	}
	if yamlCfg.Engine.AutoApprove != nil {
		cfg.Engine.AutoApprove = *yamlCfg.Engine.AutoApprove
	}
	if yamlCfg.Engine.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Engine.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid engine.timeout format %q: %w", yamlCfg.Engine.Timeout, err)
		}
		cfg.Engine.Timeout = timeout
	}
	if yamlCfg.MaxIterations != 0 {
		cfg.MaxIterations = yamlCfg.MaxIterations
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.History.Enabled != nil {
		cfg.History.Enabled = *yamlCfg.History.Enabled
	}
	if yamlCfg.History.DBPath != "" {
		cfg.History.DBPath = yamlCfg.History.DBPath
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .foreman/config.yaml in the
// specified directory. If the directory or file doesn't exist, returns
// default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".foreman", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(enginePath *string, timeout *time.Duration, maxIterations *int, logDir *string, logLevel *string) {
	if enginePath != nil {
		c.Engine.Path = *enginePath
	}
	if timeout != nil {
		c.Engine.Timeout = *timeout
	}
	if maxIterations != nil {
		c.MaxIterations = *maxIterations
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	if c.Engine.Path == "" {
		return fmt.Errorf("engine.path cannot be empty")
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must be >= 0, got %v", c.Engine.Timeout)
	}

	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0, got %d", c.MaxIterations)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
