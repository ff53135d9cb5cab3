package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()
	Initialize()

	t.Run("InfoContext", func(t *testing.T) {
		InfoContext(ctx, "Test info message", "key", "value", "number", 42)
	})

	t.Run("Warn", func(t *testing.T) {
		Warn("Test warning message", "component", "test")
	})

	t.Run("ErrorContext", func(t *testing.T) {
		ErrorContext(ctx, "Test error message", "error", "sample error")
	})

	t.Run("DebugContext", func(t *testing.T) {
		DebugContext(ctx, "Test debug message", "debug", true)
	})
}

func TestLoggerInitialization(t *testing.T) {
	l := Get()
	require.NotNil(t, l)
	assert.Same(t, l, Get())
	assert.NotNil(t, With("service", "test"))
	assert.NotNil(t, WithGroup("test_group"))
}

func TestDisableEnable(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)

	Disable()
	Info("hidden")
	assert.Empty(t, buf.String())

	Enable()
	Info("visible", "row", "r1")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
	assert.Contains(t, buf.String(), `"row":"r1"`)
}

func TestCaptureToRing(t *testing.T) {
	ring := CaptureToRing(2, slog.LevelInfo)
	defer Enable()

	Info("one")
	WithGroup("session").Warn("two", "code", 10)
	Info("three")
	Debug("dropped")

	recent := ring.Recent(5)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Message)
	assert.Equal(t, "two", recent[1].Message)
	assert.Equal(t, "session.code=10", recent[1].Attrs)
	assert.Equal(t, "WRN", FormatLevel(recent[1].Level))
}
