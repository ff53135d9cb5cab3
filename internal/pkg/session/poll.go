package session

import (
	"context"
	"errors"
	"time"

	"github.com/endorses/gridsync/internal/pkg/constants"
)

// resumePolling starts a poll cycle unless one is running, polling is
// disabled or the session is offline.
func (s *Session) resumePolling() {
	if !s.pollingEnabled.Load() || s.unloading || s.offline.Load() || s.ctx.Err() != nil {
		return
	}
	if s.PollingStatus() == PollingRunning {
		return
	}
	s.poll()
}

// poll sends a long-held request that only retrieves server-pushed events.
// It neither counts as pending nor shows the busy indicator.
func (s *Session) poll() {
	s.setPollStatus(PollingRunning)
	req := &Request{UISessionID: s.opts.UISessionID, PollForBackgroundJobs: true}
	start := time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, constants.PollTimeout)
		resp, err := s.transport.Send(ctx, req)
		cancel()
		s.loop.Post(func() { s.pollDone(req, resp, err, start) })
	}()
}

// pollDone handles a poll response. Any failure halts polling until the next
// successful user request.
func (s *Session) pollDone(req *Request, resp *Response, err error, start time.Time) {
	switch {
	case err != nil:
		s.setPollStatus(PollingFailure)
		if s.ctx.Err() != nil {
			s.recorder.RequestFinished(req.Kind(), ResultFailed, time.Since(start))
			return
		}
		var te *TransportError
		if errors.As(err, &te) && te.Offline() {
			s.recorder.RequestFinished(req.Kind(), ResultOffline, time.Since(start))
			s.goOffline()
			return
		}
		s.recorder.RequestFinished(req.Kind(), ResultFailed, time.Since(start))
		s.log().Warn("Polling failed, halted until next request", "error", err)

	case resp.Error != nil:
		s.setPollStatus(PollingFailure)
		s.recorder.RequestFinished(req.Kind(), ResultError, time.Since(start))
		s.processErrorJSON(resp.Error)

	case resp.SessionTerminated:
		s.setPollStatus(PollingStopped)
		s.recorder.RequestFinished(req.Kind(), ResultOK, time.Since(start))
		s.log().Info("Server terminated the session, polling stopped")

	default:
		s.recorder.RequestFinished(req.Kind(), ResultOK, time.Since(start))
		if err := s.processSuccess(resp); err != nil {
			s.setPollStatus(PollingFailure)
			s.reportError(err)
			return
		}
		s.setPollStatus(PollingStopped)
		s.resumePolling()
	}
}

func (s *Session) setPollStatus(status PollingStatus) {
	if PollingStatus(s.pollStatus.Swap(int32(status))) != status {
		s.recorder.SetPollingStatus(status.String())
	}
}
