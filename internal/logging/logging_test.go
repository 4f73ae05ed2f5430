package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sd/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"Warning", slog.LevelWarn, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"CRITICAL", slog.LevelError, true},
		{"fatal", slog.LevelError, true},
		{"", slog.LevelWarn, true},
		{"verbose", slog.LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := ParseLevel(tt.name)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.GeneralConfig{LogLevel: "info", LogFormat: "json"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "test").Info("visible", "api", "gamma")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "gamma", entry["api"])
}

func TestNew_InvalidLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.GeneralConfig{LogLevel: "loud", LogFormat: "json"}, &buf)

	assert.Contains(t, buf.String(), "invalid log level")
	assert.Contains(t, buf.String(), "loud")

	buf.Reset()
	logger.Info("below warn")
	assert.Empty(t, buf.String())
}

func TestColorHandler_Text(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := New(config.GeneralConfig{LogLevel: "debug"}, &buf)

	logger.With("component", "store").WithGroup("req").Debug("inserted", "id", 7)

	assert.Contains(t, buf.String(), "DBG inserted")
	assert.Contains(t, buf.String(), " component=store")
	assert.Contains(t, buf.String(), " req.id=7")
}
