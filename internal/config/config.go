// Package config loads client settings from ~/.tada/config.yaml, applies
// TADA_* environment overrides, and manages the stored bearer token.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirName        = ".tada"
	configFileName = "config.yaml"
	logFileName    = "todo.log"
)

// Config is the full client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`

	// Dir holds credentials and the default log file. Not read from YAML.
	Dir string `yaml:"-"`
}

// ServerConfig describes the todo backend.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	// ListPath is the task-listing route. The backend ships it as
	// "/getTodods"; override here if a deployment spells it differently.
	ListPath          string  `yaml:"list_path"`
	Timeout           string  `yaml:"timeout"` // "" or "0s" means no client timeout
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// UIConfig tunes rendering.
type UIConfig struct {
	Theme string `yaml:"theme"` // classic, neon, mono
	Color string `yaml:"color"` // auto, always, never
}

// LoggingConfig controls the diagnostic log.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // "" means the default file under Dir
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://127.0.0.1:4000/api",
			ListPath:          "/getTodods",
			RequestsPerSecond: 5,
		},
		UI: UIConfig{
			Theme: "classic",
			Color: "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDir is ~/.tada.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load reads the config file at path (or <dir>/config.yaml when path is
// empty), layering it over the defaults and then the environment.
// A missing file is fine.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	if path == "" {
		path = filepath.Join(dir, configFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("TADA_BASE_URL")); v != "" {
		c.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TADA_THEME")); v != "" {
		c.UI.Theme = v
	}
	if v := strings.TrimSpace(os.Getenv("TADA_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TADA_LOG_FILE")); v != "" {
		c.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv("TADA_RPS")); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Server.RequestsPerSecond = rps
		}
	}
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("server.base_url is empty")
	}
	if !strings.HasPrefix(c.Server.ListPath, "/") {
		return fmt.Errorf("server.list_path must start with /: %q", c.Server.ListPath)
	}
	if _, err := c.Server.TimeoutDuration(); err != nil {
		return err
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("server.requests_per_second must be >= 0")
	}
	switch strings.ToLower(c.UI.Color) {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("ui.color must be auto, always or never: %q", c.UI.Color)
	}
	return nil
}

// TimeoutDuration parses Timeout; empty means zero (no timeout).
func (s ServerConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(s.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("server.timeout: %w", err)
	}
	return d, nil
}

// LogPath resolves the log file. Interactive sessions never log to the
// terminal, so an unset file falls back to <Dir>/todo.log.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Dir, logFileName)
}
