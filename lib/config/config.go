// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gitfs configuration.
type Config struct {
	// Mount configures kernel cache windows and mount options.
	Mount MountConfig `yaml:"mount"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// MountConfig configures mount behavior.
type MountConfig struct {
	// EntryTimeout is how long the kernel may cache directory
	// entries, as a Go duration string. Default: 1s.
	EntryTimeout string `yaml:"entry_timeout"`

	// AttrTimeout is how long the kernel may cache attributes.
	// Default: 1s.
	AttrTimeout string `yaml:"attr_timeout"`

	// NegativeTimeout is how long the kernel may cache lookup
	// misses. Default: 100ms.
	NegativeTimeout string `yaml:"negative_timeout"`

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	// Default: false.
	AllowOther bool `yaml:"allow_other"`

	// FSName is the source name shown in the mount table.
	// Default: the repository path given on the command line.
	FSName string `yaml:"fsname"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn, or
	// error. Default: info.
	Level string `yaml:"level"`

	// Format selects the handler: text, json, or auto. Auto picks
	// text on a terminal and json otherwise. Default: auto.
	Format string `yaml:"format"`
}

// Default returns the built-in defaults. A config file, when one is
// given, is merged over these.
func Default() *Config {
	return &Config{
		Mount: MountConfig{
			EntryTimeout:    "1s",
			AttrTimeout:     "1s",
			NegativeTimeout: "100ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by the GITFS_CONFIG
// environment variable. When the variable is unset the defaults are
// returned; gitfs runs fine without a config file.
func Load() (*Config, error) {
	path := os.Getenv("GITFS_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults and validating the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	for _, field := range []struct{ name, value string }{
		{"mount.entry_timeout", c.Mount.EntryTimeout},
		{"mount.attr_timeout", c.Mount.AttrTimeout},
		{"mount.negative_timeout", c.Mount.NegativeTimeout},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", field.name, field.value))
		}
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}

	formats := []string{"auto", "text", "json"}
	if !contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EntryTimeoutDuration returns the parsed entry timeout. Values that
// fail to parse fall back to the default; Validate catches them
// first on any loaded file.
func (m MountConfig) EntryTimeoutDuration() time.Duration {
	return parseDuration(m.EntryTimeout, 1*time.Second)
}

// AttrTimeoutDuration returns the parsed attribute timeout.
func (m MountConfig) AttrTimeoutDuration() time.Duration {
	return parseDuration(m.AttrTimeout, 1*time.Second)
}

// NegativeTimeoutDuration returns the parsed negative-entry timeout.
func (m MountConfig) NegativeTimeoutDuration() time.Duration {
	return parseDuration(m.NegativeTimeout, 100*time.Millisecond)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// SlogLevel maps the configured level onto slog's scale. Unknown
// values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
