package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSONDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("backup created", "key", "edgemetrics_backup_x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "backup created", entry["msg"])
	assert.Equal(t, "edgemetrics_backup_x", entry["key"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "text", Output: &buf})
	require.NoError(t, err)

	logger.Debug("tick", "trigger", "interval")
	assert.Contains(t, buf.String(), "trigger=interval")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	require.NoError(t, err)

	logger.With("encryption_key", "deadbeef").Info("loaded",
		"value", "plain session data",
		slog.Group("item", slog.String("secret", "hunter2"), slog.String("key", "edgemetrics_theme")))

	out := buf.String()
	assert.NotContains(t, out, "deadbeef")
	assert.NotContains(t, out, "plain session data")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "edgemetrics_theme")
	assert.Equal(t, 3, strings.Count(out, redacted))
}

func TestRedactingHandlerGroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	slog.New(h).WithGroup("store").Warn("write failed", "Token", "abc123", "key", "edgemetrics_sessions")

	out := buf.String()
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, `"store":{`)
	assert.Contains(t, out, "edgemetrics_sessions")
}
