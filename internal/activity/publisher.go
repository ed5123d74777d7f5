// Package activity captures writing activity events and rolls them up
// into daily aggregates for the admin statistics surface.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftline/draftline/internal/metrics"
)

const (
	// StreamKey is the Redis stream for activity events.
	StreamKey = "stream:activity_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:activity_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compressed event format for the Redis stream.
type EventPayload struct {
	UserID     string `json:"u"`
	PaperID    string `json:"p"`
	WordsDelta int    `json:"w"`
	OccurredAt int64  `json:"t"` // Unix milliseconds
}

// Publisher enqueues activity events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new activity event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activity.publisher"),
		metrics: recorder,
	}
}

// Publish adds an activity event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// RecordProgress publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) RecordProgress(userID, paperID string, wordsDelta int, at time.Time) {
	event := EventPayload{
		UserID:     userID,
		PaperID:    paperID,
		WordsDelta: wordsDelta,
		OccurredAt: at.UnixMilli(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish activity event",
				"paper_id", event.PaperID,
				"error", err,
			)
			p.metrics.IncActivityDropped()
			return
		}

		p.logger.Debug("activity event published",
			"paper_id", event.PaperID,
			"stream_id", streamID,
		)
		p.metrics.IncActivityPublished()
	}()
}

// ValidatePayload rejects events that cannot be aggregated.
func ValidatePayload(event EventPayload) error {
	if event.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	if event.PaperID == "" {
		return fmt.Errorf("missing paper id")
	}
	if event.OccurredAt <= 0 {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}
