package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"intervu/interview/internal/models"
)

// TerminationReason names which trigger ended a session.
type TerminationReason string

const (
	ReasonTimerExpired       TerminationReason = "timer_expired"
	ReasonViolationLimit     TerminationReason = "violation_limit"
	ReasonFullscreenGrace    TerminationReason = "fullscreen_grace_expired"
	ReasonCandidateEnded     TerminationReason = "candidate_ended"
	ReasonEnvironmentFailure TerminationReason = "environment_failure"
)

// Monitor tracks proctoring violations for one live session. It is the
// single writer of the violation list; everyone else only reads its length.
// Attach and Detach are each called exactly once, at session start and at
// termination.
type Monitor struct {
	mu         sync.Mutex
	violations []models.Violation
	limit      int
	grace      time.Duration
	graceTimer *time.Timer
	attached   bool

	onTerminate func(TerminationReason)
	logger      *zap.Logger
}

func NewMonitor(limit int, grace time.Duration, onTerminate func(TerminationReason), logger *zap.Logger) *Monitor {
	return &Monitor{
		limit:       limit,
		grace:       grace,
		onTerminate: onTerminate,
		logger:      logger,
	}
}

// Attach starts accepting client signals.
func (m *Monitor) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = true
}

// Detach stops accepting signals and cancels any pending fullscreen grace
// countdown. Called once on the termination path.
func (m *Monitor) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = false
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
}

// Report appends one violation and enforces the count policy: strictly more
// than limit violations force-terminates immediately, overriding any open
// acknowledgment prompt. Fullscreen exits additionally start the grace
// countdown.
func (m *Monitor) Report(kind models.ViolationKind) {
	m.mu.Lock()
	if !m.attached {
		m.mu.Unlock()
		return
	}

	m.violations = append(m.violations, models.Violation{
		Kind:      kind,
		Severity:  "medium",
		Timestamp: time.Now(),
	})
	count := len(m.violations)
	overLimit := count > m.limit

	if kind == models.ViolationFullscreenExit && !overLimit {
		m.startGraceLocked()
	}
	m.mu.Unlock()

	m.logger.Info("proctoring violation recorded",
		zap.String("kind", string(kind)),
		zap.Int("count", count))

	if overLimit {
		m.onTerminate(ReasonViolationLimit)
	}
}

// FullscreenRestored cancels the grace countdown. Restoring within the grace
// window leaves the session running; the recorded violation still counts.
func (m *Monitor) FullscreenRestored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
}

// startGraceLocked arms the fullscreen countdown. If fullscreen is not
// restored before it fires, the session terminates regardless of the
// violation count. An already-running countdown is left alone.
func (m *Monitor) startGraceLocked() {
	if m.graceTimer != nil {
		return
	}
	m.graceTimer = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		stillAttached := m.attached
		m.graceTimer = nil
		m.mu.Unlock()
		if stillAttached {
			m.onTerminate(ReasonFullscreenGrace)
		}
	})
}

// Count returns the number of recorded violations.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.violations)
}

// Violations returns a copy of the recorded violations.
func (m *Monitor) Violations() []models.Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Violation, len(m.violations))
	copy(out, m.violations)
	return out
}
