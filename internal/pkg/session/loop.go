package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs posted tasks one at a time on a single goroutine. Session state
// is only touched from tasks, so it needs no locking.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that point
// are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.tasks = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		l.mu.Lock()
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, task := range batch {
			if ctx.Err() != nil {
				return
			}
			task()
		}

		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Post queues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} { return l.done }

// Timer is a delayed task created by After
type Timer struct {
	t         *time.Timer
	cancelled atomic.Bool
}

// Stop cancels the task. Called from a loop task, it guarantees fn will not run
// even if the timer already fired.
func (t *Timer) Stop() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
	t.t.Stop()
}

// After runs fn on the loop once d has elapsed. A zero delay still defers fn
// to a later task.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	timer := &Timer{}
	timer.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !timer.cancelled.Load() {
				fn()
			}
		})
	})
	return timer
}
