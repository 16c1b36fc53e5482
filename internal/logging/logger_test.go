package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo)

	logger.Info("dial failed", "error", errors.New("refused"))

	assert.Contains(t, buf.String(), "err=refused")
	assert.NotContains(t, buf.String(), "error=")
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, expected := range tests {
		level, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, level, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
