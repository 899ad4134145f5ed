package session

import (
	"context"
	"sync"
)

// AwaitableSpeaker forwards utterances to whichever live connection is
// currently attached. Speak blocks until a connection attaches, so the
// controller can start before the candidate's websocket arrives. Only one
// connection is attached at a time; a reconnect replaces the old delegate.
type AwaitableSpeaker struct {
	mu       sync.Mutex
	delegate Speaker
	waiters  []chan Speaker
}

func NewAwaitableSpeaker() *AwaitableSpeaker {
	return &AwaitableSpeaker{}
}

// Attach sets the active delegate and releases any blocked Speak calls.
func (s *AwaitableSpeaker) Attach(delegate Speaker) {
	s.mu.Lock()
	s.delegate = delegate
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w <- delegate
	}
}

// Detach clears the delegate if it is still the given one. Speak calls made
// after a detach block again until the next Attach.
func (s *AwaitableSpeaker) Detach(delegate Speaker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delegate == delegate {
		s.delegate = nil
	}
}

// Speak delivers the utterance through the attached connection, waiting for
// one if necessary.
func (s *AwaitableSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	delegate := s.delegate
	if delegate == nil {
		wait := make(chan Speaker, 1)
		s.waiters = append(s.waiters, wait)
		s.mu.Unlock()

		select {
		case delegate = <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		s.mu.Unlock()
	}

	return delegate.Speak(ctx, text)
}
