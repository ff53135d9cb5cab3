package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/endorses/gridsync/internal/pkg/session"
)

// ApplyMsg runs Fn on the UI goroutine, which owns the table
type ApplyMsg struct {
	Fn func()
}

// BusyMsg is sent when a request has been running past the grace delay
type BusyMsg struct {
	Cancel func()
}

// IdleMsg hides the busy indicator
type IdleMsg struct{}

// OfflineMsg reports a connection state change
type OfflineMsg struct {
	Offline bool
}

// ReconnectingMsg reports a scheduled reconnect attempt
type ReconnectingMsg struct {
	Attempt int
	Next    time.Duration
}

// FatalMsg asks the user to pick one of the message's actions
type FatalMsg struct {
	Message session.FatalMessage
	Respond func(session.FatalAction)
}

// Forwarder delivers messages to a tea program in order without blocking
// the sender. The session loop and table dispatch use it since
// tea.Program.Send blocks until the program reads.
type Forwarder struct {
	mu     sync.Mutex
	queue  []tea.Msg
	wake   chan struct{}
	closed bool
}

// NewForwarder creates an idle forwarder; call Run to start delivery
func NewForwarder() *Forwarder {
	return &Forwarder{wake: make(chan struct{}, 1)}
}

// Send queues msg
func (f *Forwarder) Send(msg tea.Msg) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, msg)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Dispatch runs fn on the program goroutine. It matches tableadapter.Dispatcher.
func (f *Forwarder) Dispatch(fn func()) {
	f.Send(ApplyMsg{Fn: fn})
}

// Run delivers queued messages to send until ctx is done
func (f *Forwarder) Run(ctx context.Context, send func(tea.Msg)) {
	defer func() {
		f.mu.Lock()
		f.closed = true
		f.queue = nil
		f.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}
		f.mu.Lock()
		batch := f.queue
		f.queue = nil
		f.mu.Unlock()
		for _, msg := range batch {
			send(msg)
		}
	}
}

// Presenter shows session state in the TUI
type Presenter struct {
	send func(tea.Msg)
}

// NewPresenter creates a presenter delivering through send, usually
// Forwarder.Send.
func NewPresenter(send func(tea.Msg)) *Presenter {
	return &Presenter{send: send}
}

func (p *Presenter) ShowBusy(cancel func()) { p.send(BusyMsg{Cancel: cancel}) }

func (p *Presenter) HideBusy() { p.send(IdleMsg{}) }

func (p *Presenter) ShowFatalMessage(msg session.FatalMessage, respond func(session.FatalAction)) {
	p.send(FatalMsg{Message: msg, Respond: respond})
}

func (p *Presenter) SetOffline(offline bool) { p.send(OfflineMsg{Offline: offline}) }

func (p *Presenter) Reconnecting(attempt int, next time.Duration) {
	p.send(ReconnectingMsg{Attempt: attempt, Next: next})
}
