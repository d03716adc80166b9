package sched

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
inbox_size: 8
max_workers: 4
event_buffer: 128
log_level: debug
log_format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		InboxSize:   8,
		MaxWorkers:  4,
		EventBuffer: 128,
		LogLevel:    "debug",
		LogFormat:   "json",
	}, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "max_workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxWorkers)
	assert.Equal(t, 64, cfg.InboxSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TYPESCHED_MAX_WORKERS", "16")
	t.Setenv("TYPESCHED_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "max_workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.MaxWorkers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("TYPESCHED_INBOX_SIZE", "lots")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "inbox_size: [1, 2\n"))
	require.Error(t, err)
}

func TestLoad_Clamps(t *testing.T) {
	cfg, err := Load(writeConfig(t, "inbox_size: -3\nmax_workers: -1\nevent_buffer: -9\nlog_level: \"\"\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.InboxSize)
	assert.Zero(t, cfg.MaxWorkers)
	assert.Zero(t, cfg.EventBuffer)
	assert.Equal(t, "info", cfg.LogLevel)
}
