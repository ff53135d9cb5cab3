package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record, kept for the terminal UI status line.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   string
}

// Ring holds the most recent log entries.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// NewRing creates a ring with the given capacity
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Add appends an entry, overwriting the oldest when full
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.head] = e
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// Recent returns up to n entries, newest first
func (r *Ring) Recent(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	size := len(r.entries)
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = r.entries[(r.head-1-i+size)%size]
	}
	return out
}

// Len returns the number of stored entries
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// RingHandler is a slog.Handler that stores records in a Ring.
type RingHandler struct {
	ring  *Ring
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewRingHandler creates a handler writing into ring
func NewRingHandler(ring *Ring, level slog.Level) *RingHandler {
	return &RingHandler{ring: ring, level: level}
}

func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	write := func(a slog.Attr) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if h.group != "" {
			b.WriteString(h.group)
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%s=%v", a.Key, a.Value.Any())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	h.ring.Add(Entry{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: b.String()})
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RingHandler{ring: h.ring, level: h.level, attrs: merged, group: h.group}
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	return &RingHandler{ring: h.ring, level: h.level, attrs: h.attrs, group: name}
}

// CaptureToRing routes the default logger into a fresh ring and returns it.
// Used while the terminal UI owns stdout.
func CaptureToRing(capacity int, level slog.Level) *Ring {
	Initialize()
	ring := NewRing(capacity)
	mu.Lock()
	defer mu.Unlock()
	if saved == nil {
		saved = defaultLogger
	}
	defaultLogger = slog.New(NewRingHandler(ring, level))
	return ring
}

// FormatLevel returns a short string for the log level
func FormatLevel(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return "???"
	}
}
