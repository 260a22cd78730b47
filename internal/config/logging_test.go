package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelDebug)

	logger.Info("reconciled collection", "kind", "tasks", "inserted", 1)
	logger.Warn("gateway failed", "error", "timeout")

	assert.NotContains(t, stderr.String(), "reconciled collection", "info stays off the terminal")
	assert.Contains(t, stderr.String(), "gateway failed")

	lines := bytes.Split(bytes.TrimSpace(file.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "reconciled collection", entry["msg"])
	assert.Equal(t, "tasks", entry["kind"])
}

func TestSetupLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sidekick.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	require.NotNil(t, logger)
	logger.Info("hello")
	require.NoError(t, cleanup())
	assert.FileExists(t, path)
}

func TestSetupLoggerFileFallback(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	logger, cleanup := SetupLogger(filepath.Join(blocker, "x.log"), slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}

func TestSetupLoggerStderrOnly(t *testing.T) {
	logger, cleanup := SetupLogger("", slog.LevelInfo)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidekick.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	require.NoError(t, cleanup())
	assert.FileExists(t, path)
}
