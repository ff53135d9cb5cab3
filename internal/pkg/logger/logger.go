package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
	mu            sync.RWMutex
	saved         *slog.Logger
)

// Initialize sets up the structured logger
func Initialize() {
	once.Do(func() {
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     levelFromEnv(),
			AddSource: false,
		})
		defaultLogger = slog.New(handler)
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the default structured logger
func Get() *slog.Logger {
	Initialize()
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetOutput replaces the logger destination, keeping the JSON format.
func SetOutput(w io.Writer, level slog.Level) {
	Initialize()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Disable discards all log output until Enable is called. The terminal UI
// owns stdout while it runs.
func Disable() {
	Initialize()
	mu.Lock()
	defer mu.Unlock()
	if saved != nil {
		return
	}
	saved = defaultLogger
	defaultLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Enable restores the logger replaced by Disable
func Enable() {
	mu.Lock()
	defer mu.Unlock()
	if saved == nil {
		return
	}
	defaultLogger = saved
	saved = nil
}

// Info logs an info level message
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// InfoContext logs an info level message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

// Warn logs a warning level message
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// WarnContext logs a warning level message with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

// Error logs an error level message
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

// ErrorContext logs an error level message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// Debug logs a debug level message
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// DebugContext logs a debug level message with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// WithGroup returns a logger with the given group name
func WithGroup(name string) *slog.Logger {
	return Get().WithGroup(name)
}
