// Package constants provides shared constants used across gridsync components.
package constants

import "time"

// Session timing
const (
	// FlushDelay is the default debounce window before queued events are sent
	FlushDelay = 0 * time.Millisecond

	// BusyIndicatorDelay is the grace period before a busy indicator is shown
	BusyIndicatorDelay = 500 * time.Millisecond

	// ReconnectDelay is how long after going offline the reconnector starts
	ReconnectDelay = 100 * time.Millisecond

	// ReconnectMaxBackoff caps the interval between reconnect attempts
	ReconnectMaxBackoff = 60 * time.Second

	// RequestTimeout bounds a single user request round trip
	RequestTimeout = 30 * time.Second

	// PollTimeout bounds a background polling request; the server may hold it open
	PollTimeout = 90 * time.Second

	// MaxSessionRestarts limits Reload/Retry restarts without a successful
	// response in between
	MaxSessionRestarts = 5

	// GracefulShutdownTimeout is the time to wait for the unload beacon and loop shutdown
	GracefulShutdownTimeout = 2 * time.Second
)

// Server error codes carried in the JSON error envelope
const (
	ErrorCodeStartupFailed      = 5
	ErrorCodeSessionTimeout     = 10
	ErrorCodeUIProcessing       = 20
	ErrorCodeConnectionLostBase = 12000
)

// Viewport defaults
const (
	// DefaultRowHeight is used for rows that were never measured
	DefaultRowHeight = 1

	// DefaultAggregateRowHeight is used for aggregate rows that were never measured
	DefaultAggregateRowHeight = 1

	// MinViewRangeSize keeps at least this many rows rendered in virtual mode
	MinViewRangeSize = 10
)

// Channel buffer sizes
const (
	// SignalChannelBuffer is the buffer size for OS signal channels
	SignalChannelBuffer = 1

	// ListenChannelBuffer is the buffer size for Session.Listen result channels
	ListenChannelBuffer = 1

	// LogRingCapacity is the number of log entries the terminal UI keeps
	LogRingCapacity = 200
)
