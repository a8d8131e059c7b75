package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestNewLogHandler_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	handler, closeLog, err := newLogHandler(logSinks{Level: slog.LevelWarn, Console: &console})
	require.NoError(t, err)
	defer closeLog()

	logger := slog.New(handler)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("path", "a.md"))

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "msg=shown")
	assert.Contains(t, console.String(), "path=a.md")
}

func TestNewLogHandler_JSONFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "build.log")
	handler, closeLog, err := newLogHandler(logSinks{Level: slog.LevelInfo, Console: &console, File: file})
	require.NoError(t, err)

	slog.New(handler).Info("Build finished", slog.String("outcome", "success"))
	closeLog()

	assert.Contains(t, console.String(), "Build finished")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "Build finished", record["msg"])
	assert.Equal(t, "success", record["outcome"])
}

func TestNewLogHandler_BadFile(t *testing.T) {
	_, _, err := newLogHandler(logSinks{
		Console: &bytes.Buffer{},
		File:    filepath.Join(t.TempDir(), "missing", "build.log"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestCLI_CloseLoggingIdempotent(t *testing.T) {
	calls := 0
	cli := &CLI{closeLog: func() { calls++ }}
	cli.CloseLogging()
	cli.CloseLogging()
	assert.Equal(t, 1, calls)
}
