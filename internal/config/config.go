// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

// Package config loads workstation configuration from built-in defaults,
// an optional YAML file, and command-line flags, in that order of
// precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/xdg"
)

// Config holds all operational settings. Protocol constants such as the
// session lifetime and the bcrypt cost are compiled in, not configured.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	URL string `koanf:"url"`
	// AutoMigrate runs pending migrations during serve startup.
	AutoMigrate bool `koanf:"automigrate"`
}

// LogConfig holds structured-logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is json or text.
	Format string `koanf:"format"`
}

// MetricsConfig holds observability server settings.
type MetricsConfig struct {
	// Addr is the metrics/health HTTP listen address. Empty disables the
	// server.
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration. DATABASE_URL is honored as
// the database default so the common case needs no config file.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// DefaultPath returns the default config file location under the XDG
// config directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// Load builds the effective configuration. Precedence, lowest to highest:
// built-in defaults, the YAML file at path, explicitly set flags. An empty
// path falls back to DefaultPath, which may be absent; a non-empty path
// must exist. A nil flag set skips the flag layer.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		// Passing k makes posflag skip unchanged flags whose keys the
		// file already set, so flag defaults don't shadow file values.
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	// An empty URL means "not configured anywhere". Restore the
	// environment default here: an unchanged --database.url flag merges
	// its empty default into the map, which the unmarshal above would
	// otherwise let mask DATABASE_URL.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value constraints. The database URL is checked by the
// commands that need one, so commands like status work without it.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("log_format", c.Log.Format).
			Errorf("log format must be 'json' or 'text'")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").With("log_level", c.Log.Level).
			Errorf("log level must be one of debug, info, warn, error")
	}
	return nil
}
