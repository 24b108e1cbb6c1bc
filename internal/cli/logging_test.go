package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileworld/sfxmix/internal/config"
)

func TestMultiLevelHandler_DifferentLevels(t *testing.T) {
	var stderrBuf, fileBuf bytes.Buffer
	stderrHandler := slog.NewTextHandler(&stderrBuf, &slog.HandlerOptions{Level: slog.LevelError})
	fileHandler := slog.NewTextHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(NewMultiLevelHandler(stderrHandler, fileHandler))
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	assert.Contains(t, stderrBuf.String(), "error message")
	assert.NotContains(t, stderrBuf.String(), "warn message")
	assert.NotContains(t, stderrBuf.String(), "debug message")

	for _, msg := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, fileBuf.String(), msg)
	}
}

func TestMultiLevelHandler_Enabled(t *testing.T) {
	warn := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewMultiLevelHandler(warn, info)

	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))
	assert.False(t, NewMultiLevelHandler().Enabled(ctx, slog.LevelError))
}

func TestMultiLevelHandler_AttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiLevelHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))

	logger := slog.New(h).With("slot", 3).WithGroup("decode")
	logger.Info("done", "bytes", 10)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "slot=3")
		assert.Contains(t, out, "decode.bytes=10")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiLevelHandler_FailureDoesNotStarveOthers(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiLevelHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "still logged", 0))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "still logged")
}

func TestSetupLogging(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	cm := config.NewConfigManagerWithFilesystem(afero.NewMemMapFs())

	t.Run("stderr only", func(t *testing.T) {
		var stderr bytes.Buffer
		cfg := cm.GetDefaultConfig()
		cfg.LogLevel = "info"

		setupLogging(cm, cfg, &stderr)
		slog.Debug("hidden")
		slog.Info("shown")

		assert.NotContains(t, stderr.String(), "hidden")
		assert.Contains(t, stderr.String(), "shown")
	})

	t.Run("rotating file gets debug", func(t *testing.T) {
		var stderr bytes.Buffer
		logPath := filepath.Join(t.TempDir(), "logs", "sfxmix.log")
		cfg := cm.GetDefaultConfig()
		cfg.LogLevel = "error"
		cfg.FileLogging.Enabled = true
		cfg.FileLogging.Filename = logPath

		setupLogging(cm, cfg, &stderr)
		slog.Debug("file only")

		assert.NotContains(t, stderr.String(), "file only")
		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "file only")
	})
}
