package session

import (
	"sync"
	"time"
)

// Timer is the independent session countdown. It owns its interval: no shared
// mutable counter is exposed to callbacks. It ticks once per second from the
// allotted duration and fires onExpire exactly once at zero, regardless of
// what the turn controller is doing at that moment.
type Timer struct {
	mu        sync.Mutex
	remaining int
	stop      chan struct{}
	running   bool
}

func NewTimer() *Timer {
	return &Timer{}
}

// Start begins the countdown. Calling Start on a running timer is a no-op.
func (t *Timer) Start(durationSeconds int, onExpire func()) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.remaining = durationSeconds
	t.stop = make(chan struct{})
	t.running = true
	stop := t.stop
	t.mu.Unlock()

	if durationSeconds <= 0 {
		t.Cancel()
		onExpire()
		return
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				t.remaining--
				expired := t.remaining <= 0
				t.mu.Unlock()

				if expired {
					t.Cancel()
					onExpire()
					return
				}
			}
		}
	}()
}

// Cancel stops the countdown. Safe to call more than once and after expiry.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Remaining returns the seconds left on the countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining < 0 {
		return 0
	}
	return t.remaining
}
