package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"intervu/interview/internal/session"
)

// SessionJanitorJob periodically sweeps the live-session registry. It is a
// backstop: the countdown and the completion watcher normally clean up after
// themselves, but a crashed goroutine must not leak a session forever.
type SessionJanitorJob struct {
	registry *session.Registry
	config   *JanitorConfig
	cron     *cron.Cron
	logger   *zap.Logger
}

// JanitorConfig contains configuration for the janitor job
type JanitorConfig struct {
	Schedule string // Cron schedule (e.g., "@every 1m")
	Enabled  bool   // Whether to run sweeps
}

func NewSessionJanitorJob(registry *session.Registry, config *JanitorConfig, logger *zap.Logger) *SessionJanitorJob {
	return &SessionJanitorJob{
		registry: registry,
		config:   config,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins the scheduled sweep job
func (sj *SessionJanitorJob) Start() error {
	if !sj.config.Enabled {
		sj.logger.Info("session janitor is disabled, skipping scheduler")
		return nil
	}

	sj.logger.Info("starting session janitor", zap.String("schedule", sj.config.Schedule))

	_, err := sj.cron.AddFunc(sj.config.Schedule, func() {
		sj.RunSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule janitor job: %w", err)
	}

	sj.cron.Start()
	return nil
}

// Stop stops the scheduled sweep job
func (sj *SessionJanitorJob) Stop() {
	if sj.cron != nil {
		sj.cron.Stop()
		sj.logger.Info("session janitor stopped")
	}
}

// RunSweep performs a single sweep: overdue sessions are force-terminated
// and finished ones are dropped from the registry.
func (sj *SessionJanitorJob) RunSweep() {
	swept := 0
	sj.registry.Each(func(interviewID string, live *session.Live) {
		state := live.Controller.State()

		if state != session.StateTerminated && live.Controller.Timer.Remaining() == 0 {
			sj.logger.Warn("janitor terminating overdue session",
				zap.String("interview_id", interviewID))
			live.Controller.Terminate(session.ReasonTimerExpired)
			state = session.StateTerminated
		}

		if state == session.StateTerminated {
			sj.registry.Remove(interviewID)
			swept++
		}
	})

	if swept > 0 {
		sj.logger.Info("janitor sweep finished",
			zap.Int("swept", swept),
			zap.Int("live", sj.registry.Len()))
	}
}

// RunManual runs a sweep manually (for testing or on-demand cleanup)
func (sj *SessionJanitorJob) RunManual() {
	sj.RunSweep()
}
