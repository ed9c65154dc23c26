// Package config resolves worldcal's runtime settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// WORLDCAL_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/worldcal/internal/cache"
)

// Config holds worldcal's runtime configuration.
type Config struct {
	// Listen is the HTTP listen address used by `worldcal serve`.
	Listen string `yaml:"listen" env:"WORLDCAL_LISTEN"`

	// DBPath is the SQLite calendar store. Empty serves built-in templates
	// only.
	DBPath string `yaml:"db" env:"WORLDCAL_DB"`

	// RedisURL enables cross-process cache invalidation when set.
	RedisURL string `yaml:"redis_url" env:"WORLDCAL_REDIS_URL"`

	// InvalidateChannel is the Redis pub/sub channel for invalidations.
	InvalidateChannel string `yaml:"invalidate_channel" env:"WORLDCAL_INVALIDATE_CHANNEL"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"WORLDCAL_LOG_LEVEL"`

	// Templates lists the built-in templates served from memory alongside
	// the store.
	Templates []string `yaml:"templates" env:"WORLDCAL_TEMPLATES" envSeparator:","`

	// RequestTimeout bounds each HTTP request, anchor generation included.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"WORLDCAL_REQUEST_TIMEOUT"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"WORLDCAL_SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		InvalidateChannel: cache.DefaultChannel,
		LogLevel:          "info",
		Templates:         []string{"darian", "golarion", "gregorian", "quadrum"},
		RequestTimeout:    10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Load layers the YAML file at path (skipped when path is empty) and the
// environment over Default. A path that does not exist is an error; an
// unknown YAML key is too.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.InvalidateChannel == "" {
		c.InvalidateChannel = cache.DefaultChannel
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
