package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"intervu/interview/internal/repositories"
)

// ErrAlreadyFinalized means a second termination trigger lost the latch race.
// Not an anomaly: triggers are expected to race.
var ErrAlreadyFinalized = errors.New("session already finalized")

// CompletionPublisher notifies downstream consumers (the profile scorer) that
// an interview finished. Fire-and-forget: a publish failure never blocks
// completion.
type CompletionPublisher interface {
	PublishCompleted(ctx context.Context, interviewID, candidateID string) error
}

// Lifecycle owns the end of an interview record. Whatever trigger fired
// termination, Complete runs its store update at most once per session; the
// store's conditioned update is the backstop for races across processes.
type Lifecycle struct {
	repo      *repositories.InterviewRepository
	publisher CompletionPublisher
	logger    *zap.Logger
	latch     Latch
}

func NewLifecycle(repo *repositories.InterviewRepository, publisher CompletionPublisher, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Complete finalizes the interview: conditioned status flip to COMPLETED,
// elapsed-time accounting, and the downstream completion event. The first
// caller wins the latch; later callers get ErrAlreadyFinalized. A store-level
// conflict is reported, never retried: retrying a second completion would
// double-charge the elapsed-time accounting.
func (l *Lifecycle) Complete(ctx context.Context, interviewID, candidateID string, elapsedMin float64, reason TerminationReason) error {
	if !l.latch.TryFire() {
		return ErrAlreadyFinalized
	}

	interview, err := l.repo.CompleteInterview(interviewID, candidateID, elapsedMin)
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyCompleted) {
			l.logger.Error("completion conflict: interview was finalized elsewhere",
				zap.String("interview_id", interviewID),
				zap.String("reason", string(reason)))
			return err
		}
		return fmt.Errorf("complete interview: %w", err)
	}

	l.logger.Info("interview completed",
		zap.String("interview_id", interviewID),
		zap.String("reason", string(reason)),
		zap.Float64("completion_min", elapsedMin),
		zap.String("status", string(interview.Status)))

	if l.publisher != nil {
		if err := l.publisher.PublishCompleted(ctx, interviewID, candidateID); err != nil {
			l.logger.Warn("failed to publish completion event", zap.Error(err))
		}
	}
	return nil
}

// Finalized reports whether Complete has already run.
func (l *Lifecycle) Finalized() bool {
	return l.latch.Fired()
}
