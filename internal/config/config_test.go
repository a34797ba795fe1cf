package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zouzou-2006/algovision/internal/ir"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "algovision.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ir.DefaultMaxNodes, cfg.MaxNodes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SnapshotDB)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
max_nodes: 500
snapshot_db: /tmp/snap.db
log_level: debug
otlp_endpoint: localhost:4317
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxNodes)
	assert.Equal(t, "/tmp/snap.db", cfg.SnapshotDB)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ir.DefaultMaxNodes, cfg.MaxNodes)
}

func TestLoad_InvalidMaxNodesNormalized(t *testing.T) {
	path := writeConfig(t, "max_nodes: -5\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ir.DefaultMaxNodes, cfg.MaxNodes)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "max_nodes: [not a number\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Config{LogLevel: tt.level}.SlogLevel(), "level %q", tt.level)
	}
}
