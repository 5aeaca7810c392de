// Package config loads agentops configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. They override file values so a
// deployment can tighten or relax the shell policy without editing config.
const (
	EnvAllowShell      = "AGENTOPS_ALLOW_SHELL"
	EnvAllowedCommands = "AGENTOPS_ALLOWED_COMMANDS"
	EnvLogStdout       = "AGENTOPS_LOG_STDOUT"
	EnvDBPath          = "AGENTOPS_DB"
)

// Config holds all agentops configuration.
type Config struct {
	Exec    ExecConfig    `yaml:"exec"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Pool    PoolConfig    `yaml:"pool"`
}

// ExecConfig configures the command runner.
type ExecConfig struct {
	// AllowShell permits arbitrary shell script execution.
	AllowShell bool `yaml:"allow_shell"`

	// AllowedCommands lists command names whose scripts may run through the
	// shell even when AllowShell is false.
	AllowedCommands []string `yaml:"allowed_commands"`

	// TimeoutSeconds is the default per-command timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level        string `yaml:"level"`
	JSON         bool   `yaml:"json"`
	MirrorStdout bool   `yaml:"mirror_stdout"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	// Path is the SQLite database path; ":memory:" keeps history in process.
	Path string `yaml:"path"`
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MinWorkers           int     `yaml:"min_workers"`
	MaxWorkers           int     `yaml:"max_workers"`
	InitialSize          int     `yaml:"initial_size"`
	AutoScale            bool    `yaml:"auto_scale"`
	ScaleUpThreshold     float64 `yaml:"scale_up_threshold"`
	ScaleDownThreshold   float64 `yaml:"scale_down_threshold"`
	ScaleCooldownSeconds int     `yaml:"scale_cooldown_seconds"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Exec: ExecConfig{
			AllowShell:      false,
			AllowedCommands: []string{},
			TimeoutSeconds:  60,
			MaxOutputBytes:  50000,
		},
		Log: LogConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Path: ":memory:",
		},
		Pool: PoolConfig{
			MinWorkers:           1,
			MaxWorkers:           8,
			InitialSize:          4,
			AutoScale:            true,
			ScaleUpThreshold:     0.8,
			ScaleDownThreshold:   0.2,
			ScaleCooldownSeconds: 30,
		},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist, then applies environment
// overrides. A present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAllowShell); v != "" {
		c.Exec.AllowShell = strings.EqualFold(v, "true")
	}
	if v := os.Getenv(EnvAllowedCommands); v != "" {
		cmds := make([]string, 0)
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cmds = append(cmds, part)
			}
		}
		c.Exec.AllowedCommands = cmds
	}
	if v := os.Getenv(EnvLogStdout); v != "" {
		c.Log.MirrorStdout = strings.EqualFold(v, "true")
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.History.Path = v
	}
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.Exec.TimeoutSeconds <= 0 {
		return fmt.Errorf("exec.timeout_seconds must be positive, got %d", c.Exec.TimeoutSeconds)
	}
	if c.Exec.MaxOutputBytes <= 0 {
		return fmt.Errorf("exec.max_output_bytes must be positive, got %d", c.Exec.MaxOutputBytes)
	}
	if c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}
	if c.Pool.MinWorkers < 1 {
		return fmt.Errorf("pool.min_workers must be at least 1, got %d", c.Pool.MinWorkers)
	}
	if c.Pool.MaxWorkers < c.Pool.MinWorkers {
		return fmt.Errorf("pool.max_workers %d is below pool.min_workers %d", c.Pool.MaxWorkers, c.Pool.MinWorkers)
	}
	if c.Pool.InitialSize < c.Pool.MinWorkers || c.Pool.InitialSize > c.Pool.MaxWorkers {
		return fmt.Errorf("pool.initial_size %d is outside [%d, %d]", c.Pool.InitialSize, c.Pool.MinWorkers, c.Pool.MaxWorkers)
	}
	if c.Pool.ScaleUpThreshold < 0 || c.Pool.ScaleUpThreshold > 1 {
		return fmt.Errorf("pool.scale_up_threshold must be between 0 and 1")
	}
	if c.Pool.ScaleDownThreshold < 0 || c.Pool.ScaleDownThreshold >= c.Pool.ScaleUpThreshold {
		return fmt.Errorf("pool.scale_down_threshold must be below pool.scale_up_threshold")
	}
	return nil
}
