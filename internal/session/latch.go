package session

import "sync"

// Latch is a one-shot guard: the first TryFire wins, every later call loses.
// The three termination triggers (timer, proctoring, explicit end) race
// through it so completion runs exactly once per session.
type Latch struct {
	mu    sync.Mutex
	fired bool
}

// TryFire returns true exactly once.
func (l *Latch) TryFire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired {
		return false
	}
	l.fired = true
	return true
}

// Fired reports whether the latch has been consumed.
func (l *Latch) Fired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}
