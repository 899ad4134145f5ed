// Package services holds the cross-service integrations backing a session:
// the Redis event fan-out consumed by the profile scorer.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const completionChannel = "interview_completed"

// InterviewCompletedEvent is the payload published when a session finalizes.
// EventID lets consumers deduplicate redelivered events.
type InterviewCompletedEvent struct {
	EventID     string    `json:"eventId"`
	InterviewID string    `json:"interviewId"`
	CandidateID string    `json:"candidateId"`
	CompletedAt time.Time `json:"completedAt"`
}

// RedisCompletionPublisher fans completion events out over Redis pub/sub.
type RedisCompletionPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisCompletionPublisher(redisAddr string, logger *zap.Logger) *RedisCompletionPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	return &RedisCompletionPublisher{rdb: rdb, logger: logger}
}

// NewRedisCompletionPublisherWithClient wires an existing client, used by
// tests.
func NewRedisCompletionPublisherWithClient(rdb *redis.Client, logger *zap.Logger) *RedisCompletionPublisher {
	return &RedisCompletionPublisher{rdb: rdb, logger: logger}
}

// PublishCompleted emits one interview_completed event.
func (p *RedisCompletionPublisher) PublishCompleted(ctx context.Context, interviewID, candidateID string) error {
	event := InterviewCompletedEvent{
		EventID:     uuid.NewString(),
		InterviewID: interviewID,
		CandidateID: candidateID,
		CompletedAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}

	if err := p.rdb.Publish(ctx, completionChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish completion event: %w", err)
	}

	p.logger.Info("published completion event",
		zap.String("interview_id", interviewID),
		zap.String("channel", completionChannel))
	return nil
}

// Close releases the Redis connection.
func (p *RedisCompletionPublisher) Close() error {
	return p.rdb.Close()
}
