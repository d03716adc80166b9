package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml; every field can be overridden from the environment.
type Config struct {
	InboxSize   int    `yaml:"inbox_size" env:"TYPESCHED_INBOX_SIZE"`     // 64 (by default)
	MaxWorkers  int    `yaml:"max_workers" env:"TYPESCHED_MAX_WORKERS"`   // 0 = unbounded
	EventBuffer int    `yaml:"event_buffer" env:"TYPESCHED_EVENT_BUFFER"` // 0 = no event stream
	LogLevel    string `yaml:"log_level" env:"TYPESCHED_LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"TYPESCHED_LOG_FORMAT"`
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		InboxSize: 64,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads YAML over the defaults, then applies environment overrides.
// An empty path or a missing file yields defaults (plus environment).
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config env overrides: %w", err)
	}

	return cfg.sanitize(), nil
}

// sanity clamps
func (c Config) sanitize() Config {
	if c.InboxSize < 0 {
		c.InboxSize = 0
	}
	if c.MaxWorkers < 0 {
		c.MaxWorkers = 0
	}
	if c.EventBuffer < 0 {
		c.EventBuffer = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return c
}
