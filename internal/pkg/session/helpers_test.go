package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/endorses/gridsync/internal/pkg/circuitbreaker"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []*Request
	beacons  []*Request
	pings    int
	handle   func(req *Request) (*Response, error)
	ping     func() error
}

func (f *fakeTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return &Response{}, nil
	}
	return handle(req)
}

func (f *fakeTransport) Beacon(ctx context.Context, req *Request) error {
	f.mu.Lock()
	f.beacons = append(f.beacons, req)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Ping(ctx context.Context) error {
	f.mu.Lock()
	f.pings++
	ping := f.ping
	f.mu.Unlock()
	if ping == nil {
		return nil
	}
	return ping()
}

func (f *fakeTransport) Requests() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Request(nil), f.requests...)
}

func (f *fakeTransport) Beacons() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Request(nil), f.beacons...)
}

// userRequests filters out startup and poll requests
func (f *fakeTransport) userRequests() []*Request {
	var out []*Request
	for _, r := range f.Requests() {
		if r.Kind() == "user" {
			out = append(out, r)
		}
	}
	return out
}

type recordingAdapter struct {
	AdapterBase
	mu        sync.Mutex
	received  []string
	online    []bool
	destroyed *[]string
}

func (a *recordingAdapter) OnModelAction(ev *Event) error {
	a.mu.Lock()
	a.received = append(a.received, ev.Type)
	a.mu.Unlock()
	return nil
}

func (a *recordingAdapter) OnModelPropertyChange(ev *Event) error {
	a.mu.Lock()
	for name := range ev.Properties() {
		a.received = append(a.received, "property:"+name)
	}
	a.mu.Unlock()
	return nil
}

func (a *recordingAdapter) GoOffline() {
	a.mu.Lock()
	a.online = append(a.online, false)
	a.mu.Unlock()
}

func (a *recordingAdapter) GoOnline() {
	a.mu.Lock()
	a.online = append(a.online, true)
	a.mu.Unlock()
}

func (a *recordingAdapter) Destroy() {
	if a.destroyed != nil {
		*a.destroyed = append(*a.destroyed, a.ID())
	}
}

func (a *recordingAdapter) Received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.received...)
}

func (a *recordingAdapter) Online() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.online...)
}

func recordingFactory(destroyed *[]string) map[string]FactoryFunc {
	return map[string]FactoryFunc{
		"Recording": func(s *Session, data *AdapterData) (Adapter, error) {
			a := &recordingAdapter{destroyed: destroyed}
			a.Init(data.ID, data.ObjectType)
			return a, nil
		},
	}
}

type recordingPresenter struct {
	mu       sync.Mutex
	shown    int
	hidden   int
	offline  []bool
	messages []FatalMessage
	respond  []func(FatalAction)
}

func (p *recordingPresenter) ShowBusy(func()) {
	p.mu.Lock()
	p.shown++
	p.mu.Unlock()
}

func (p *recordingPresenter) HideBusy() {
	p.mu.Lock()
	p.hidden++
	p.mu.Unlock()
}

func (p *recordingPresenter) ShowFatalMessage(msg FatalMessage, respond func(FatalAction)) {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.respond = append(p.respond, respond)
	p.mu.Unlock()
}

func (p *recordingPresenter) SetOffline(offline bool) {
	p.mu.Lock()
	p.offline = append(p.offline, offline)
	p.mu.Unlock()
}

func (p *recordingPresenter) Reconnecting(int, time.Duration) {}

func (p *recordingPresenter) Messages() []FatalMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FatalMessage(nil), p.messages...)
}

func (p *recordingPresenter) busyCounts() (shown, hidden int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown, p.hidden
}

func (p *recordingPresenter) Offline() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.offline...)
}

func testOptions() Options {
	return Options{
		UISessionID:        "s1",
		DisablePolling:     true,
		BusyIndicatorDelay: time.Hour,
		ReconnectDelay:     time.Millisecond,
		ReconnectBackoff:   func(int) time.Duration { return 5 * time.Millisecond },
		Breaker:            circuitbreaker.Config{ResetTimeout: 10 * time.Millisecond},
	}
}

// startSession starts s and waits until the startup round trip finished
func startSession(t *testing.T, s *Session, tr *fakeTransport) {
	t.Helper()
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	require.Eventually(t, func() bool {
		return len(tr.Requests()) >= 1 && !s.AreRequestsPending()
	}, waitFor, tick)
}

func decodeResponse(t *testing.T, body string) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}
