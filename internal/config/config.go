// Package config handles Loom configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Loom.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Engine settings for the merge/threading core
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// GlobalConfig contains global Loom settings.
type GlobalConfig struct {
	// DataDir is where Loom stores its data (default: ~/.local/share/loom).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/loom).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// EngineConfig contains settings for the thread reconstruction engine.
type EngineConfig struct {
	// GapThreshold is the maximum silence between consecutive messages
	// still treated as the same thread absent explicit grouping hints.
	GapThreshold time.Duration `yaml:"gap_threshold" mapstructure:"gap_threshold"`

	// MaxThreads caps how many threads are materialized for display.
	// Zero means unlimited.
	MaxThreads int `yaml:"max_threads" mapstructure:"max_threads"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "loom"),
			ConfigDir: filepath.Join(homeDir, ".config", "loom"),
		},
		Engine: EngineConfig{
			GapThreshold: 30 * time.Minute,
			MaxThreads:   0,
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/loom.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.GapThreshold < time.Second {
		return fmt.Errorf("engine.gap_threshold must be at least 1s")
	}
	if c.Engine.MaxThreads < 0 {
		return fmt.Errorf("engine.max_threads must not be negative")
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
		// ok
	default:
		return fmt.Errorf("logging.format must be json or console")
	}
	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "loom.db")
}
