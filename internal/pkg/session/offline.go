package session

import (
	"context"
	"time"

	"github.com/endorses/gridsync/internal/pkg/constants"
)

// goOffline switches to offline mode after a connectivity failure. Requests
// are merged into the queued request until a reconnect succeeds.
func (s *Session) goOffline() {
	if s.offline.Load() {
		return
	}
	s.offline.Store(true)
	s.recorder.SetOffline(true)
	s.log().Warn("Connection lost, going offline")

	// Short grace period so a session unloading anyway does not flash the
	// offline state.
	s.loop.After(s.opts.ReconnectDelay, func() {
		if s.unloading || !s.offline.Load() {
			return
		}
		s.presenter.SetOffline(true)
		for _, a := range s.registry.all() {
			if oa, ok := a.(OfflineAware); ok {
				oa.GoOffline()
			}
		}
		s.startReconnect()
	})
}

func (s *Session) startReconnect() {
	if s.reconnecting {
		return
	}
	s.reconnecting = true
	s.reconnectAttempt = 0
	s.reconnect()
}

// reconnect pings the server once. The breaker keeps a flapping server from
// being hammered; while it is open, attempts wait for it to half-open.
func (s *Session) reconnect() {
	if s.ctx.Err() != nil {
		s.reconnecting = false
		return
	}
	s.reconnectAttempt++
	attempt := s.reconnectAttempt
	s.log().Debug("Reconnect attempt", "attempt", attempt)
	go func() {
		err := s.breaker.Call(func() error {
			ctx, cancel := context.WithTimeout(s.ctx, constants.RequestTimeout)
			defer cancel()
			return s.transport.Ping(ctx)
		})
		s.loop.Post(func() { s.reconnectDone(attempt, err) })
	}()
}

func (s *Session) reconnectDone(attempt int, err error) {
	s.recorder.ReconnectAttempt(err == nil)
	if err == nil {
		s.log().Info("Reconnected", "attempts", attempt)
		s.reconnecting = false
		s.reconnectAttempt = 0
		s.goOnline()
		return
	}
	if s.ctx.Err() != nil {
		s.reconnecting = false
		return
	}

	next := max(s.opts.ReconnectBackoff(attempt), s.breaker.RetryAfter())
	s.log().Warn("Reconnect failed",
		"attempt", attempt,
		"error", err,
		"next_in", next)
	s.presenter.Reconnecting(attempt, next)
	s.loop.After(next, s.reconnect)
}

// goOnline leaves offline mode and sends the queued request, or resumes
// polling when nothing was queued.
func (s *Session) goOnline() {
	s.offline.Store(false)
	s.recorder.SetOffline(false)
	s.presenter.SetOffline(false)
	for _, a := range s.registry.all() {
		if oa, ok := a.(OfflineAware); ok {
			oa.GoOnline()
		}
	}
	if s.queuedRequest != nil || s.flushPending {
		s.drain()
		return
	}
	s.resumePolling()
}

// ReconnectBackoffWithin is a helper for callers that cap the backoff below
// ReconnectMaxBackoff.
func ReconnectBackoffWithin(limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return min(DefaultReconnectBackoff(attempt), limit)
	}
}
