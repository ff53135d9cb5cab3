package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/gridsync/internal/pkg/constants"
)

func TestSession_StartupRequest(t *testing.T) {
	tr := &fakeTransport{}
	opts := testOptions()
	opts.ClientSessionID = "c1"
	opts.CustomParams = map[string]string{"theme": "dark"}
	s := New(tr, opts)
	startSession(t, s, tr)

	reqs := tr.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].Startup)
	assert.Equal(t, "s1", reqs[0].UISessionID)
	assert.Equal(t, "c1", reqs[0].ClientSessionID)
	assert.Equal(t, "dark", reqs[0].CustomParams["theme"])
	assert.Nil(t, reqs[0].UserAgent, "desktop platform is implied")
}

func TestSession_GeneratesClientSessionID(t *testing.T) {
	a := New(&fakeTransport{}, testOptions())
	b := New(&fakeTransport{}, testOptions())
	assert.NotEmpty(t, a.ClientSessionID())
	assert.NotEqual(t, a.ClientSessionID(), b.ClientSessionID())
}

func TestSession_NonDesktopSendsUserAgent(t *testing.T) {
	tr := &fakeTransport{}
	opts := testOptions()
	opts.Platform = PlatformInfo{DeviceType: "MOBILE", System: "linux"}
	s := New(tr, opts)
	startSession(t, s, tr)

	reqs := tr.Requests()
	require.NotNil(t, reqs[0].UserAgent)
	assert.Equal(t, "MOBILE", reqs[0].UserAgent.DeviceType)
}

func TestSession_CoalescesQueuedEvents(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, testOptions())
	startSession(t, s, tr)

	s.SendEvent(NewPropertyEvent("7", "value", "a"), 20*time.Millisecond)
	s.SendEvent(NewEvent("7", "click", nil), 20*time.Millisecond)
	s.SendEvent(NewPropertyEvent("7", "value", "ab"), 20*time.Millisecond)

	require.Eventually(t, func() bool { return len(tr.userRequests()) == 1 }, waitFor, tick)
	events := tr.userRequests()[0].Events
	require.Len(t, events, 2)
	assert.Equal(t, "click", events[0].Type)
	assert.Equal(t, EventTypeProperty, events[1].Type)
	assert.Equal(t, "ab", events[1].Properties()["value"])
	assert.False(t, s.AreEventsQueued())
}

func TestSession_OneUserRequestInFlight(t *testing.T) {
	release := make(chan struct{})
	var blocked atomic.Bool
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" && blocked.CompareAndSwap(false, true) {
			<-release
		}
		return &Response{}, nil
	}
	s := New(tr, testOptions())
	startSession(t, s, tr)

	s.Send("7", "first", nil, 0)
	require.Eventually(t, func() bool { return blocked.Load() }, waitFor, tick)

	s.Send("7", "second", nil, 0)
	s.Send("7", "third", nil, 0)
	// Nothing is sent while the first request is running
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, tr.userRequests(), 1)
	assert.True(t, s.AreEventsQueued())

	close(release)
	require.Eventually(t, func() bool { return len(tr.userRequests()) == 2 && !s.AreRequestsPending() }, waitFor, tick)
	second := tr.userRequests()[1]
	require.Len(t, second.Events, 2)
	assert.Equal(t, "second", second.Events[0].Type)
	assert.Equal(t, "third", second.Events[1].Type)
}

func TestSession_BusyIndicator(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			<-release
		}
		return &Response{}, nil
	}
	presenter := &recordingPresenter{}
	opts := testOptions()
	opts.Presenter = presenter
	opts.BusyIndicatorDelay = 10 * time.Millisecond
	s := New(tr, opts)
	startSession(t, s, tr)

	s.Send("7", "slow", nil, 0)
	require.Eventually(t, s.IsBusy, waitFor, tick)
	assert.True(t, s.AreRequestsPending())

	close(release)
	require.Eventually(t, func() bool { return !s.IsBusy() && !s.AreRequestsPending() }, waitFor, tick)
	shown, hidden := presenter.busyCounts()
	assert.Equal(t, 1, shown)
	assert.Equal(t, 1, hidden)
}

func TestSession_CancelProcessing(t *testing.T) {
	release := make(chan struct{})
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			<-release
		}
		return &Response{}, nil
	}
	s := New(tr, testOptions())
	startSession(t, s, tr)

	s.Send("7", "slow", nil, 0)
	require.Eventually(t, func() bool { return len(tr.userRequests()) == 1 }, waitFor, tick)

	// The cancel request does not wait for the running user request
	s.CancelProcessing()
	require.Eventually(t, func() bool {
		for _, r := range tr.Requests() {
			if r.Cancel {
				return true
			}
		}
		return false
	}, waitFor, tick)
	close(release)
	require.Eventually(t, func() bool { return !s.AreRequestsPending() }, waitFor, tick)
}

func TestSession_FatalMessageDeduplicated(t *testing.T) {
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			return &Response{Error: &ErrorInfo{Code: 20, Message: "boom"}}, nil
		}
		return &Response{}, nil
	}
	presenter := &recordingPresenter{}
	opts := testOptions()
	opts.Presenter = presenter
	s := New(tr, opts)
	startSession(t, s, tr)

	s.Send("7", "a", nil, 0)
	require.Eventually(t, func() bool { return len(tr.userRequests()) == 1 && !s.AreRequestsPending() }, waitFor, tick)
	s.Send("7", "b", nil, 0)
	require.Eventually(t, func() bool { return len(tr.userRequests()) == 2 && !s.AreRequestsPending() }, waitFor, tick)

	msgs := presenter.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Unexpected Problem", msgs[0].Header)
	assert.Equal(t, []FatalAction{ActionReload, ActionIgnore}, msgs[0].Actions)

	// Reload restarts the session
	presenter.mu.Lock()
	respond := presenter.respond[0]
	presenter.mu.Unlock()
	respond(ActionReload)
	require.Eventually(t, func() bool {
		n := 0
		for _, r := range tr.Requests() {
			if r.Startup {
				n++
			}
		}
		return n == 2
	}, waitFor, tick)
}

func TestSession_ProcessingErrorReported(t *testing.T) {
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			return nil, &TransportError{Status: 500, Err: errors.New("internal")}
		}
		return &Response{}, nil
	}
	var mu sync.Mutex
	var reported []error
	opts := testOptions()
	opts.ErrorHandler = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}
	s := New(tr, opts)
	startSession(t, s, tr)

	s.Send("7", "a", nil, 0)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) == 1
	}, waitFor, tick)

	mu.Lock()
	err := reported[0]
	mu.Unlock()
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "user", pe.Kind)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Offline())
	assert.False(t, s.IsOffline())
}

func TestSession_OfflineMergeAndReconnect(t *testing.T) {
	var down atomic.Bool
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if down.Load() {
			return nil, &TransportError{Err: errors.New("connection refused")}
		}
		return &Response{}, nil
	}
	tr.ping = func() error {
		if down.Load() {
			return &TransportError{Err: errors.New("connection refused")}
		}
		return nil
	}
	presenter := &recordingPresenter{}
	opts := testOptions()
	opts.Presenter = presenter
	opts.Factories = recordingFactory(nil)
	s := New(tr, opts)
	startSession(t, s, tr)

	aware := &recordingAdapter{}
	aware.Init("42", "Recording")
	require.NoError(t, s.RegisterAdapter(aware))

	down.Store(true)
	s.SendEvent(NewPropertyEvent("7", "value", 1), 0)
	require.Eventually(t, s.IsOffline, waitFor, tick)

	s.SendEvent(NewEvent("7", "click", nil), 0)
	s.SendEvent(NewPropertyEvent("7", "value", 2), 0)
	require.Eventually(t, func() bool { return !s.AreEventsQueued() }, waitFor, tick)
	require.Eventually(t, func() bool { return len(presenter.Offline()) == 1 }, waitFor, tick)
	sentWhileOffline := len(tr.userRequests())

	down.Store(false)
	require.Eventually(t, func() bool {
		return !s.IsOffline() && len(tr.userRequests()) == sentWhileOffline+1 && !s.AreRequestsPending()
	}, waitFor, tick)

	resent := tr.userRequests()[sentWhileOffline]
	require.Len(t, resent.Events, 2, "superseded property change is dropped")
	assert.Equal(t, "click", resent.Events[0].Type)
	assert.Equal(t, 2, resent.Events[1].Properties()["value"])
	assert.Equal(t, []bool{true, false}, presenter.Offline())
	assert.Equal(t, []bool{false, true}, aware.Online())
}

func TestSession_Listen(t *testing.T) {
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			return &Response{Events: []*Event{
				NewEvent(RootAdapterID, "opened", nil),
				NewEvent(RootAdapterID, "focused", nil),
			}}, nil
		}
		return &Response{}, nil
	}
	s := New(tr, testOptions())
	startSession(t, s, tr)

	ch := s.Listen()
	s.Send("7", "open", nil, 0)

	select {
	case types, ok := <-ch:
		require.True(t, ok)
		assert.Equal(t, []string{"opened", "focused"}, types)
	case <-time.After(waitFor):
		t.Fatal("listener not resolved")
	}
	_, ok := <-ch
	assert.False(t, ok, "channel is closed after delivery")
}

func TestSession_Unload(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, testOptions())
	startSession(t, s, tr)

	s.SendEvent(NewEvent("7", "pending", nil), time.Hour)
	s.Unload()

	beacons := tr.Beacons()
	require.Len(t, beacons, 1)
	assert.True(t, beacons[0].Unload)
	require.Len(t, beacons[0].Events, 1)
	assert.Equal(t, "pending", beacons[0].Events[0].Type)

	// A second unload is a no-op
	s.Unload()
	assert.Len(t, tr.Beacons(), 1)
}

func TestSession_StopWithoutStart(t *testing.T) {
	s := New(&fakeTransport{}, testOptions())
	s.Stop()
	s.Unload()
}

func TestSession_Polling(t *testing.T) {
	var polls atomic.Int32
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if !req.PollForBackgroundJobs {
			return &Response{}, nil
		}
		n := polls.Add(1)
		switch {
		case n == 1:
			return nil, &TransportError{Status: 502, Err: errors.New("bad gateway")}
		case n == 2:
			return &Response{Events: []*Event{NewEvent(RootAdapterID, "jobDone", nil)}}, nil
		default:
			return &Response{SessionTerminated: true}, nil
		}
	}
	opts := testOptions()
	opts.DisablePolling = false
	s := New(tr, opts)
	startSession(t, s, tr)

	require.Eventually(t, func() bool {
		return polls.Load() == 1 && s.PollingStatus() == PollingFailure
	}, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), polls.Load(), "polling halts after a failure")

	// A successful user request resumes polling
	s.Send("7", "a", nil, 0)
	require.Eventually(t, func() bool {
		return polls.Load() == 3 && s.PollingStatus() == PollingStopped
	}, waitFor, tick)
	assert.False(t, s.IsOffline())
}

func TestSession_SessionAdapterInitialized(t *testing.T) {
	var desktop Adapter
	opts := testOptions()
	opts.Factories = recordingFactory(nil)
	opts.OnInitialized = func(d Adapter) { desktop = d }
	s := New(&fakeTransport{}, opts)

	resp := decodeResponse(t, `{
		"adapterData": {
			"cs1": {"objectType": "ClientSession", "desktop": "d1"},
			"d1": {"objectType": "Recording"}
		},
		"events": [
			{"target": "s1", "type": "initialized", "clientSessionId": "c9",
			 "locale": {"languageTag": "de-CH"}, "clientSession": "cs1"},
			{"target": "d1", "type": "ready"}
		]
	}`)
	require.NoError(t, s.processSuccess(resp))

	assert.True(t, s.Initialized())
	assert.Equal(t, "de-CH", s.Locale())
	require.NotNil(t, s.Desktop())
	assert.Equal(t, "d1", s.Desktop().Base().ID())
	assert.Same(t, s.Desktop(), desktop)
	assert.Equal(t, []string{"ready"}, desktop.(*recordingAdapter).Received())
	assert.Same(t, s.RootAdapter(), desktop.Base().Parent())

	resp = decodeResponse(t, `{"events": [{"target": "s1", "type": "localeChanged", "languageTag": "fr"}]}`)
	require.NoError(t, s.processSuccess(resp))
	assert.Equal(t, "fr", s.Locale())
}

func TestSession_Logout(t *testing.T) {
	logout := decodeResponse(t, `{"events": [{"target": "s1", "type": "logout", "redirectUrl": "/bye"}]}`)
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.Kind() == "user" {
			return logout, nil
		}
		return &Response{}, nil
	}
	redirect := make(chan string, 1)
	opts := testOptions()
	opts.OnLogout = func(url string) { redirect <- url }
	s := New(tr, opts)
	startSession(t, s, tr)

	s.Send("7", "logout", nil, 0)
	select {
	case url := <-redirect:
		assert.Equal(t, "/bye", url)
	case <-time.After(waitFor):
		t.Fatal("logout not reported")
	}
}

func TestSession_StartTwice(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, testOptions())
	startSession(t, s, tr)
	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, tr.Requests(), 1)
}

func TestDefaultReconnectBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 4, want: 8 * time.Second},
		{attempt: 7, want: 60 * time.Second},
		{attempt: 30, want: 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultReconnectBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
	assert.Equal(t, 5*time.Second, ReconnectBackoffWithin(5*time.Second)(10))
}

func TestPollingStatus_String(t *testing.T) {
	assert.Equal(t, "stopped", PollingStopped.String())
	assert.Equal(t, "running", PollingRunning.String())
	assert.Equal(t, "failure", PollingFailure.String())
}

func startupCount(tr *fakeTransport) int {
	n := 0
	for _, r := range tr.Requests() {
		if r.Startup {
			n++
		}
	}
	return n
}

func alwaysStartupFailed(*Request) (*Response, error) {
	return &Response{Error: &ErrorInfo{Code: constants.ErrorCodeStartupFailed, Message: "startup failed"}}, nil
}

func TestSession_LogPresenterDoesNotRestart(t *testing.T) {
	tr := &fakeTransport{handle: alwaysStartupFailed}
	fatals := make(chan FatalMessage, 4)
	opts := testOptions()
	opts.Presenter = LogPresenter{OnFatal: func(msg FatalMessage) { fatals <- msg }}
	s := New(tr, opts)
	startSession(t, s, tr)

	select {
	case msg := <-fatals:
		assert.Equal(t, constants.ErrorCodeStartupFailed, msg.Code)
		assert.Equal(t, []FatalAction{ActionRetry}, msg.Actions)
	case <-time.After(waitFor):
		t.Fatal("fatal message not reported")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, startupCount(tr))
	assert.Empty(t, fatals)
}

// retryingPresenter answers every fatal message with its first action
type retryingPresenter struct {
	recordingPresenter
}

func (p *retryingPresenter) ShowFatalMessage(msg FatalMessage, respond func(FatalAction)) {
	p.recordingPresenter.ShowFatalMessage(msg, respond)
	respond(msg.Actions[0])
}

func TestSession_RestartsBackOffAndGiveUp(t *testing.T) {
	tr := &fakeTransport{handle: alwaysStartupFailed}
	var mu sync.Mutex
	var backoffs []int
	opts := testOptions()
	opts.Presenter = &retryingPresenter{}
	opts.ReconnectBackoff = func(attempt int) time.Duration {
		mu.Lock()
		backoffs = append(backoffs, attempt)
		mu.Unlock()
		return 5 * time.Millisecond
	}
	s := New(tr, opts)
	startSession(t, s, tr)

	want := 1 + constants.MaxSessionRestarts
	require.Eventually(t, func() bool {
		return startupCount(tr) == want && !s.AreRequestsPending()
	}, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, want, startupCount(tr))

	mu.Lock()
	defer mu.Unlock()
	// The first restart is immediate
	assert.Equal(t, []int{1, 2, 3, 4}, backoffs)
}

func TestSession_SuccessResetsRestarts(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if failing.Load() {
			return alwaysStartupFailed(req)
		}
		return &Response{}, nil
	}
	opts := testOptions()
	opts.Presenter = &retryingPresenter{}
	s := New(tr, opts)
	startSession(t, s, tr)
	require.Eventually(t, func() bool {
		return startupCount(tr) == 1+constants.MaxSessionRestarts && !s.AreRequestsPending()
	}, waitFor, tick)

	// A successful request makes restarts available again
	failing.Store(false)
	s.Send("7", "click", nil, 0)
	require.Eventually(t, func() bool { return len(tr.userRequests()) == 1 && !s.AreRequestsPending() }, waitFor, tick)

	failing.Store(true)
	s.Send("7", "click", nil, 0)
	require.Eventually(t, func() bool {
		return startupCount(tr) == 2*(1+constants.MaxSessionRestarts)-1 && !s.AreRequestsPending()
	}, waitFor, tick)
}

func TestSession_CancelWhileOfflineIsDropped(t *testing.T) {
	var down atomic.Bool
	var polls atomic.Int32
	cut := make(chan struct{})
	hold := make(chan struct{})
	offlineErr := &TransportError{Err: errors.New("connection reset")}

	tr := &fakeTransport{}
	tr.handle = func(req *Request) (*Response, error) {
		if req.PollForBackgroundJobs {
			if polls.Add(1) == 1 {
				<-cut
				return nil, offlineErr
			}
			<-hold
		}
		return &Response{}, nil
	}
	tr.ping = func() error {
		if down.Load() {
			return offlineErr
		}
		return nil
	}
	opts := testOptions()
	opts.DisablePolling = false
	s := New(tr, opts)
	startSession(t, s, tr)
	t.Cleanup(func() { close(hold) })

	require.Eventually(t, func() bool { return polls.Load() == 1 }, waitFor, tick)
	down.Store(true)
	close(cut)
	require.Eventually(t, s.IsOffline, waitFor, tick)

	s.CancelProcessing()
	s.SendEvent(NewEvent("7", "click", nil), 0)
	require.Eventually(t, func() bool { return !s.AreEventsQueued() }, waitFor, tick)

	down.Store(false)
	require.Eventually(t, func() bool {
		return !s.IsOffline() && len(tr.userRequests()) == 1 && !s.AreRequestsPending()
	}, waitFor, tick)

	for _, r := range tr.Requests() {
		assert.False(t, r.Cancel, "no cancel request is sent")
	}
	resent := tr.userRequests()[0]
	require.Len(t, resent.Events, 1)
	assert.Equal(t, "click", resent.Events[0].Type)
}
