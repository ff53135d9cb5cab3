// Package session implements the client side of the server-driven UI
// protocol: outgoing events are queued, coalesced and sent in batches,
// responses are applied to registered adapters in order, and connectivity
// loss is bridged by an offline queue, a reconnector and background polling.
//
// All protocol state lives on a single Loop goroutine. Public methods are
// safe for concurrent use; they post work to the loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/endorses/gridsync/internal/pkg/circuitbreaker"
	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
)

// RootAdapterID is the id of the adapter that parents top-level adapters
const RootAdapterID = "1"

// PollingStatus is the state of background job polling
type PollingStatus int32

const (
	PollingStopped PollingStatus = iota
	PollingRunning
	PollingFailure
)

func (p PollingStatus) String() string {
	switch p {
	case PollingRunning:
		return "running"
	case PollingFailure:
		return "failure"
	default:
		return "stopped"
	}
}

// Options configures a Session
type Options struct {
	UISessionID       string
	ClientSessionID   string // generated when empty
	ParentUISessionID string
	Platform          PlatformInfo
	CustomParams      map[string]string

	// DisablePolling turns off background job polling
	DisablePolling bool

	Factories    map[string]FactoryFunc
	Presenter    Presenter
	Recorder     Recorder
	ErrorHandler func(error)

	// OnInitialized is called on the loop once the server reports the
	// session as initialized. desktop is nil when the server sent none.
	OnInitialized func(desktop Adapter)
	// OnFatalAction replaces the default handling of a chosen fatal action,
	// which restarts the session for Reload and Retry. Consecutive restarts
	// wait ReconnectBackoff and stop after constants.MaxSessionRestarts.
	OnFatalAction func(FatalAction)
	// OnLogout is called after the server logged the session out. The
	// default stops the session.
	OnLogout func(redirectURL string)

	BusyIndicatorDelay time.Duration
	ReconnectDelay     time.Duration
	// ReconnectBackoff returns the wait after the given failed attempt
	ReconnectBackoff func(attempt int) time.Duration
	Breaker          circuitbreaker.Config
}

// DefaultReconnectBackoff doubles from one second up to ReconnectMaxBackoff
func DefaultReconnectBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<uint(min(max(attempt-1, 0), 6))) * time.Second // #nosec G115 - bounded shift
	return min(backoff, constants.ReconnectMaxBackoff)
}

// Session synchronizes local adapters with the server
type Session struct {
	opts      Options
	transport Transport
	loop      *Loop
	registry  *registry
	factory   *ObjectFactory
	root      *rootAdapter
	presenter Presenter
	recorder  Recorder
	breaker   *circuitbreaker.CircuitBreaker

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the loop
	asyncEvents      []*Event
	sendTimer        *Timer
	startup          bool
	unloading        bool
	userInFlight     bool
	flushPending     bool
	requestsPending  int
	busyCounter      int
	busyTimer        *Timer
	busyShown        bool
	queuedRequest    *Request
	fatalOnScreen    map[int]bool
	listeners        []chan []string
	listenTypes      []string
	reconnecting     bool
	reconnectAttempt int
	restarts         int
	restartTimer     *Timer

	// Readable from any goroutine
	started        atomic.Bool
	offline        atomic.Bool
	busy           atomic.Bool
	initialized    atomic.Bool
	pending        atomic.Int32
	queued         atomic.Int32
	pollStatus     atomic.Int32
	pollingEnabled atomic.Bool
	locale         atomic.Value
	desktop        atomic.Value
}

// New creates a session. Nothing is sent until Start.
func New(transport Transport, opts Options) *Session {
	if opts.ClientSessionID == "" {
		opts.ClientSessionID = uuid.NewString()
	}
	if opts.Platform.DeviceType == "" {
		opts.Platform.DeviceType = DeviceTypeDesktop
	}
	if opts.Presenter == nil {
		opts.Presenter = LogPresenter{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.BusyIndicatorDelay <= 0 {
		opts.BusyIndicatorDelay = constants.BusyIndicatorDelay
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = constants.ReconnectDelay
	}
	if opts.ReconnectBackoff == nil {
		opts.ReconnectBackoff = DefaultReconnectBackoff
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = "session-reconnect"
	}

	s := &Session{
		opts:          opts,
		transport:     transport,
		loop:          NewLoop(),
		registry:      newRegistry(),
		factory:       NewObjectFactory(opts.Factories),
		presenter:     opts.Presenter,
		recorder:      opts.Recorder,
		breaker:       circuitbreaker.New(opts.Breaker),
		fatalOnScreen: make(map[int]bool),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pollingEnabled.Store(!opts.DisablePolling)

	s.root = &rootAdapter{}
	s.root.Init(RootAdapterID, "GlobalAdapter")
	own := &sessionAdapter{s: s}
	own.Init(opts.UISessionID, "Session")
	// Both ids are distinct and non-empty for a valid session
	if err := s.registry.put(s.root); err != nil {
		s.log().Error("Failed to register root adapter", "error", err)
	}
	if err := s.registry.put(own); err != nil {
		s.log().Error("Failed to register session adapter", "error", err)
	}
	return s
}

func (s *Session) log() *slog.Logger {
	return logger.With("ui_session_id", s.opts.UISessionID)
}

// Start runs the loop and sends the startup request
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.loop.Run(s.ctx)
	s.loop.Post(func() {
		s.startup = true
		s.sendNow()
	})
}

// Stop unloads the session and stops the loop
func (s *Session) Stop() {
	if !s.started.Load() {
		s.cancel()
		return
	}
	s.Unload()
	s.cancel()
	select {
	case <-s.loop.Done():
	case <-time.After(constants.GracefulShutdownTimeout):
		s.log().Warn("Session loop did not stop in time")
	}
}

// Done is closed once the session loop has stopped
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }

func (s *Session) UISessionID() string     { return s.opts.UISessionID }
func (s *Session) ClientSessionID() string { return s.opts.ClientSessionID }

// Locale returns the language tag last reported by the server
func (s *Session) Locale() string {
	l, _ := s.locale.Load().(string)
	return l
}

// Desktop returns the adapter created on initialization, or nil
func (s *Session) Desktop() Adapter {
	d, _ := s.desktop.Load().(adapterHolder)
	return d.a
}

type adapterHolder struct{ a Adapter }

func (s *Session) Initialized() bool        { return s.initialized.Load() }
func (s *Session) IsOffline() bool          { return s.offline.Load() }
func (s *Session) IsBusy() bool             { return s.busy.Load() }
func (s *Session) AreRequestsPending() bool { return s.pending.Load() > 0 }
func (s *Session) AreEventsQueued() bool    { return s.queued.Load() > 0 }

// AdapterCount returns the number of registered adapters
func (s *Session) AdapterCount() int { return s.registry.len() }

// PollingStatus returns the background polling state
func (s *Session) PollingStatus() PollingStatus {
	return PollingStatus(s.pollStatus.Load())
}

// EnableBackgroundPolling turns polling on or off. Enabling it takes effect
// after the next successful request.
func (s *Session) EnableBackgroundPolling(enabled bool) {
	s.pollingEnabled.Store(enabled)
}

// Send queues an event for target. See SendEvent.
func (s *Session) Send(target, eventType string, data map[string]any, delay time.Duration) {
	s.SendEvent(NewEvent(target, eventType, data), delay)
}

// SendEvent queues ev after removing the queued events it supersedes, and
// (re)starts the flush timer. Events queued while a request is in flight go
// out with the next request.
func (s *Session) SendEvent(ev *Event, delay time.Duration) {
	s.loop.Post(func() {
		var dropped int
		s.asyncEvents, dropped = coalesceEvents(s.asyncEvents, ev)
		s.asyncEvents = append(s.asyncEvents, ev)
		s.queued.Store(int32(len(s.asyncEvents)))
		if dropped > 0 {
			s.recorder.EventsCoalesced(dropped)
		}

		s.sendTimer.Stop()
		s.sendTimer = s.loop.After(delay, s.sendNow)
	})
}

// CancelProcessing asks the server to abort the running request. The request
// itself still completes. While offline there is nothing to cancel and the
// call is ignored.
func (s *Session) CancelProcessing() {
	s.loop.Post(func() {
		if s.offline.Load() {
			s.log().Debug("Not cancelling, session is offline")
			return
		}
		s.log().Info("Cancelling server processing")
		s.sendRequest(&Request{UISessionID: s.opts.UISessionID, Cancel: true})
	})
}

// Unload sends queued events with the unload flag through the transport's
// beacon and waits until it was handed off.
func (s *Session) Unload() {
	if !s.started.Load() {
		return
	}
	done := make(chan struct{})
	posted := s.loop.Post(func() {
		defer close(done)
		if s.unloading {
			return
		}
		s.unloading = true
		s.pollingEnabled.Store(false)
		s.sendTimer.Stop()
		s.sendNow()
	})
	if !posted {
		return
	}
	select {
	case <-done:
	case <-s.loop.Done():
	case <-time.After(constants.GracefulShutdownTimeout):
	}
}

// Listen returns a channel that receives the event types of all responses
// processed from now until no request is pending, then closes.
func (s *Session) Listen() <-chan []string {
	ch := make(chan []string, constants.ListenChannelBuffer)
	if !s.loop.Post(func() { s.listeners = append(s.listeners, ch) }) {
		close(ch)
	}
	return ch
}

// sendNow builds one request from the queued events
func (s *Session) sendNow() {
	if s.userInFlight && !s.unloading {
		s.flushPending = true
		return
	}
	if !s.startup && !s.unloading && len(s.asyncEvents) == 0 {
		return
	}

	req := &Request{UISessionID: s.opts.UISessionID}
	if s.startup {
		s.startup = false
		req.Startup = true
		req.ClientSessionID = s.opts.ClientSessionID
		req.ParentUISessionID = s.opts.ParentUISessionID
		if s.opts.Platform.DeviceType != DeviceTypeDesktop {
			platform := s.opts.Platform
			req.UserAgent = &platform
		}
		req.CustomParams = s.opts.CustomParams
	}
	if s.unloading {
		req.Unload = true
	}
	if len(s.asyncEvents) > 0 {
		req.Events = s.asyncEvents
	}
	s.asyncEvents = nil
	s.queued.Store(0)
	s.sendRequest(req)
}

// sendRequest transmits req, or merges it into the offline queue
func (s *Session) sendRequest(req *Request) {
	if s.offline.Load() && !req.Unload {
		if req.Cancel {
			// Cancel requests are never queued
			return
		}
		if s.queuedRequest == nil {
			s.queuedRequest = req
			return
		}
		if dropped := s.queuedRequest.merge(req); dropped > 0 {
			s.recorder.EventsCoalesced(dropped)
		}
		return
	}

	if req.Unload {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), constants.GracefulShutdownTimeout)
		defer cancel()
		start := time.Now()
		result := ResultOK
		if err := s.transport.Beacon(ctx, req); err != nil {
			s.log().Warn("Unload beacon failed", "error", err)
			result = ResultFailed
		}
		s.recorder.EventsSent(len(req.Events))
		s.recorder.RequestFinished(req.Kind(), result, time.Since(start))
		return
	}

	user := !req.Cancel
	busyHandling := s.requestsPending == 0
	if busyHandling {
		s.setBusy(true)
	}
	s.requestsPending++
	s.pending.Store(int32(s.requestsPending))
	if user {
		s.userInFlight = true
	}
	s.recorder.EventsSent(len(req.Events))

	snapshot := req.snapshot()
	start := time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, constants.RequestTimeout)
		resp, err := s.transport.Send(ctx, snapshot)
		cancel()
		s.loop.Post(func() {
			s.requestDone(req, resp, err, busyHandling, user, start)
		})
	}()
}

func (s *Session) requestDone(req *Request, resp *Response, err error, busyHandling, user bool, start time.Time) {
	var procErr error
	success := false
	result := ResultOK
	switch {
	case err != nil:
		result = s.processErrorResponse(req, err)
	case resp.Error != nil:
		result = ResultError
		s.processErrorJSON(resp.Error)
	default:
		procErr = s.processSuccess(resp)
		success = true
	}

	s.requestsPending--
	s.pending.Store(int32(s.requestsPending))
	if user {
		s.userInFlight = false
	}
	if busyHandling {
		s.setBusy(false)
	}
	s.recorder.RequestFinished(req.Kind(), result, time.Since(start))

	if success {
		s.restarts = 0
		s.resumePolling()
		s.fireRequestFinished(resp)
	}
	if procErr != nil {
		s.reportError(procErr)
	}
	s.drain()
}

// drain sends what accumulated while a user request was in flight
func (s *Session) drain() {
	if s.userInFlight || s.offline.Load() {
		return
	}
	if req := s.queuedRequest; req != nil {
		s.queuedRequest = nil
		s.sendRequest(req)
		return
	}
	if s.flushPending {
		s.flushPending = false
		s.sendNow()
	}
}

// processErrorResponse classifies a transport failure. Connectivity loss
// takes the session offline and keeps req for resending.
func (s *Session) processErrorResponse(req *Request, err error) string {
	if s.ctx.Err() != nil {
		return ResultFailed
	}
	var te *TransportError
	if errors.As(err, &te) && te.Offline() {
		s.log().Warn("Request failed, server unreachable", "kind", req.Kind(), "error", err)
		s.goOffline()
		if !req.PollForBackgroundJobs && !req.Cancel {
			// The failed request was sent first, so its events go first
			if s.queuedRequest != nil {
				req.merge(s.queuedRequest)
			}
			s.queuedRequest = req
		}
		return ResultOffline
	}
	s.reportError(&ProcessingError{Kind: req.Kind(), Err: err})
	return ResultFailed
}

func (s *Session) processSuccess(resp *Response) error {
	if len(resp.AdapterData) > 0 {
		if err := s.registry.storeData(resp.AdapterData); err != nil {
			return err
		}
		s.log().Debug("Stored adapter data", "count", len(resp.AdapterData))
	}
	if len(resp.Events) > 0 {
		if err := s.processEvents(resp.Events); err != nil {
			return err
		}
	}
	s.log().Debug("Response processed",
		"adapters", s.registry.len(),
		"cached_adapter_data", s.registry.dataLen())
	return nil
}

// processEvents applies events strictly in order. The first failure stops
// processing of the remaining events.
func (s *Session) processEvents(events []*Event) error {
	for _, ev := range events {
		s.recorder.EventReceived(ev.Type)
		adapter := s.registry.get(ev.Target)
		if adapter == nil {
			// Lazily link adapters the server announced but nobody created yet
			var err error
			adapter, err = s.GetOrCreateAdapter(ev.Target, s.root)
			if err != nil {
				return &UnknownAdapterError{ID: ev.Target, Err: err}
			}
		}

		targets := append([]Adapter{adapter}, s.AdapterClones(adapter)...)
		for _, target := range targets {
			var err error
			if ev.Type == EventTypeProperty {
				err = target.OnModelPropertyChange(ev)
			} else {
				err = target.OnModelAction(ev)
			}
			if err != nil {
				return fmt.Errorf("apply %s to %s: %w", ev, target.Base(), err)
			}
		}
	}
	return nil
}

func (s *Session) processErrorJSON(e *ErrorInfo) {
	s.log().Error("Server reported error", "code", e.Code, "message", e.Message)
	s.showFatalMessage(fatalMessageFor(e))
}

// showFatalMessage shows msg unless a message with the same code is still on
// screen.
func (s *Session) showFatalMessage(msg FatalMessage) {
	if s.fatalOnScreen[msg.Code] {
		return
	}
	s.fatalOnScreen[msg.Code] = true
	s.recorder.FatalMessage(msg.Code)
	s.presenter.ShowFatalMessage(msg, func(action FatalAction) {
		s.loop.Post(func() {
			delete(s.fatalOnScreen, msg.Code)
			s.onFatalAction(action)
		})
	})
}

func (s *Session) onFatalAction(action FatalAction) {
	if s.opts.OnFatalAction != nil {
		s.opts.OnFatalAction(action)
		return
	}
	switch action {
	case ActionReload, ActionRetry:
		if s.restarts >= constants.MaxSessionRestarts {
			s.log().Error("Giving up restarting session", "restarts", s.restarts)
			return
		}
		s.restarts++
		var delay time.Duration
		if s.restarts > 1 {
			delay = s.opts.ReconnectBackoff(s.restarts - 1)
		}
		s.log().Info("Restarting session", "action", action, "attempt", s.restarts, "delay", delay)
		s.restartTimer.Stop()
		s.restartTimer = s.loop.After(delay, s.restart)
	}
}

func (s *Session) restart() {
	s.asyncEvents = nil
	s.queued.Store(0)
	s.queuedRequest = nil
	s.startup = true
	s.sendNow()
}

func (s *Session) fireRequestFinished(resp *Response) {
	if len(s.listeners) == 0 {
		return
	}
	s.listenTypes = append(s.listenTypes, resp.EventTypes()...)
	if s.requestsPending > 0 {
		return
	}
	for _, ch := range s.listeners {
		ch <- append([]string(nil), s.listenTypes...)
		close(ch)
	}
	s.listeners = nil
	s.listenTypes = nil
}

func (s *Session) setBusy(busy bool) {
	if busy {
		if s.busyCounter == 0 {
			s.renderBusy()
		}
		s.busyCounter++
		return
	}
	s.busyCounter--
	if s.busyCounter == 0 {
		s.removeBusy()
	}
}

// renderBusy shows the busy indicator after a grace delay, so fast round
// trips do not flicker.
func (s *Session) renderBusy() {
	s.busyTimer = s.loop.After(s.opts.BusyIndicatorDelay, func() {
		s.busyShown = true
		s.busy.Store(true)
		s.recorder.SetBusy(true)
		s.presenter.ShowBusy(s.CancelProcessing)
	})
}

func (s *Session) removeBusy() {
	s.busyTimer.Stop()
	s.busyTimer = nil
	if s.busyShown {
		s.busyShown = false
		s.busy.Store(false)
		s.recorder.SetBusy(false)
		s.presenter.HideBusy()
	}
}

func (s *Session) reportError(err error) {
	if s.opts.ErrorHandler != nil {
		s.opts.ErrorHandler(err)
		return
	}
	s.log().Error("Session error", "error", err)
}
