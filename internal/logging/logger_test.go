// Package logging includes tests for the zap logger helpers.
package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, closeLog, err := New(Config{Development: true, Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("development logger ready")
	require.NoError(t, closeLog())
}

// TestNewWritesRunLogFile checks the run log lands in Dir and is truncated.
func TestNewWritesRunLogFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	path := filepath.Join(dir, FileName(time.Now()))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale previous run\n"), 0o600))

	logger, closeLog, err := New(Config{Dir: dir, Level: "info"})
	require.NoError(t, err)
	logger.Info("scraping document", zap.String("url", "https://www.bde.es/doc"))
	logger.Debug("filtered out")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scraping document")
	assert.Contains(t, string(data), "https://www.bde.es/doc")
	assert.NotContains(t, string(data), "stale previous run")
	assert.NotContains(t, string(data), "filtered out")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Level: "chatty"})
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2022-12-31-run.log", FileName(time.Date(2022, 12, 31, 23, 0, 0, 0, time.UTC)))
}
