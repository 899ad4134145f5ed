package session

import (
	"sync"

	"go.uber.org/zap"
)

// Live bundles one session's controller with its utterance forwarder so the
// websocket handler can attach a connection to a running session.
type Live struct {
	Controller *Controller
	Speaker    *AwaitableSpeaker
}

// Registry tracks the live sessions in this process, keyed by interview ID.
// The HTTP handlers resolve sessions through it and the janitor sweeps it
// for controllers that have finished.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Live
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Live),
		logger:   logger,
	}
}

// Add registers a session. Returns false if a live session already exists
// for the interview.
func (r *Registry) Add(interviewID string, s *Live) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[interviewID]; ok {
		return false
	}
	r.sessions[interviewID] = s
	r.logger.Info("session registered", zap.String("interview_id", interviewID))
	return true
}

// Get returns the live session for an interview, if any.
func (r *Registry) Get(interviewID string) (*Live, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[interviewID]
	return s, ok
}

// Remove drops a controller from the registry.
func (r *Registry) Remove(interviewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[interviewID]; ok {
		delete(r.sessions, interviewID)
		r.logger.Info("session removed", zap.String("interview_id", interviewID))
	}
}

// Each calls fn for every live session. fn must not call back into the
// registry.
func (r *Registry) Each(fn func(interviewID string, s *Live)) {
	r.mu.RLock()
	snapshot := make(map[string]*Live, len(r.sessions))
	for id, s := range r.sessions {
		snapshot[id] = s
	}
	r.mu.RUnlock()

	for id, s := range snapshot {
		fn(id, s)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
