// Package circuitbreaker guards reconnect attempts against a failing server.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/endorses/gridsync/internal/pkg/logger"
)

var (
	// ErrOpen is returned by Call while the circuit is open
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned when a half-open probe is already running
	ErrProbeInFlight = errors.New("circuit breaker probe already in flight")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Pings go through
	StateOpen                  // Server failing, pings rejected
	StateHalfOpen              // One probe ping allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config contains circuit breaker configuration
type Config struct {
	Name         string        // Used in errors and log lines
	MaxFailures  int           // Consecutive failures before opening (default: 5)
	ResetTimeout time.Duration // Open period before a probe is allowed (default: 30s)

	// OnStateChange, if set, is called after every transition, outside the lock
	OnStateChange func(from, to State)
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Stats is a snapshot of the breaker's counters
type Stats struct {
	State       State
	Failures    int // consecutive
	Attempts    int
	Rejections  int
	LastFailure time.Time
}

// CircuitBreaker counts consecutive failed pings and rejects further pings
// for ResetTimeout once MaxFailures is reached. After that one probe is let
// through; its result closes or reopens the circuit.
type CircuitBreaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
	attempts    int
	rejections  int
}

// New creates a closed circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Name == "" {
		cfg.Name = "reconnect"
	}
	return &CircuitBreaker{cfg: cfg}
}

// Call runs fn unless the circuit rejects it. Rejections wrap ErrOpen or
// ErrProbeInFlight; otherwise fn's error is returned unchanged.
func (cb *CircuitBreaker) Call(fn func() error) error {
	from, to, err := cb.admit()
	cb.notify(from, to)
	if err != nil {
		return err
	}

	callErr := fn()
	from, to = cb.record(callErr)
	cb.notify(from, to)
	return callErr
}

func (cb *CircuitBreaker) admit() (from, to State, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.attempts++
	from = cb.state
	switch cb.state {
	case StateOpen:
		since := cb.cfg.Now().Sub(cb.lastFailure)
		if since < cb.cfg.ResetTimeout {
			cb.rejections++
			return from, from, fmt.Errorf("%s: %w (last failure %v ago)", cb.cfg.Name, ErrOpen, since.Round(time.Second))
		}
		cb.state = StateHalfOpen
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.rejections++
			return from, from, fmt.Errorf("%s: %w", cb.cfg.Name, ErrProbeInFlight)
		}
		cb.probing = true
	}
	return from, cb.state, nil
}

func (cb *CircuitBreaker) record(err error) (from, to State) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from = cb.state
	cb.probing = false
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return from, cb.state
	}

	cb.failures++
	cb.lastFailure = cb.cfg.Now()
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.state = StateOpen
	}
	return from, cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to {
		return
	}
	switch to {
	case StateOpen:
		logger.Warn("Reconnect circuit opened", "name", cb.cfg.Name, "reset_timeout", cb.cfg.ResetTimeout)
	case StateHalfOpen:
		logger.Info("Reconnect circuit half-open, probing server", "name", cb.cfg.Name)
	case StateClosed:
		logger.Info("Reconnect circuit closed", "name", cb.cfg.Name)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// RetryAfter returns how long an open circuit keeps rejecting calls, or zero
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return 0
	}
	return max(cb.cfg.ResetTimeout-cb.cfg.Now().Sub(cb.lastFailure), 0)
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the counters
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		State:       cb.state,
		Failures:    cb.failures,
		Attempts:    cb.attempts,
		Rejections:  cb.rejections,
		LastFailure: cb.lastFailure,
	}
}
