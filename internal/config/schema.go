// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for mindcanvas.
package config

import (
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the directory used for persistent module data.
	DataDir string `yaml:"data_dir,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "store.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LoggingConfig controls the root logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info;
// Validate rejects them beforehand.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JSON reports whether logs should be emitted as JSON.
func (l LoggingConfig) JSON() bool {
	return strings.EqualFold(l.Format, "json")
}
