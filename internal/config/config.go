// Package config loads engine configuration from a YAML file, with sensible
// defaults when no file is present. Command-line flags override file values.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

// Config holds all engine configuration.
type Config struct {
	// MaxNodes caps the combined outline/CFG node count per analysis.
	MaxNodes int `yaml:"max_nodes"`

	// SnapshotDB is the path of the SQLite snapshot database. Empty
	// disables persistence.
	SnapshotDB string `yaml:"snapshot_db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces (e.g.
	// "localhost:4317"). Empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxNodes: ir.DefaultMaxNodes,
		LogLevel: "info",
	}
}

// Load reads a YAML config file. A missing path returns defaults; an
// unreadable or malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = ir.DefaultMaxNodes
	}
	return cfg, nil
}

// SlogLevel maps the configured log level to a slog.Level, defaulting to
// info for unknown values.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
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
