package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/draftline/draftline/internal/model"
)

// Publisher creates webhook delivery records when paper events occur.
// It fans out to every active endpoint the owner subscribed to the
// event type; actual delivery happens asynchronously in the worker.
type Publisher struct {
	repo   *Repository
	logger *slog.Logger
}

// NewPublisher creates a new webhook publisher.
func NewPublisher(repo *Repository, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo:   repo,
		logger: logger.With("component", "webhook.publisher"),
	}
}

// PublishPaperEvent creates deliveries for a paper event. Failures are
// logged and swallowed so the request path never depends on webhooks.
func (p *Publisher) PublishPaperEvent(ctx context.Context, userID string, eventType model.EventType, eventID string, data map[string]any) {
	endpoints, err := p.repo.ListActiveEndpointsByUserAndEvent(ctx, userID, eventType)
	if err != nil {
		p.logger.Warn("failed to list endpoints",
			"user_id", userID,
			"event_type", eventType,
			"error", err,
		)
		return
	}

	if len(endpoints) == 0 {
		return
	}

	// Build payload once, reuse for all endpoints
	payload := model.WebhookPayload{
		EventType: string(eventType),
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal payload",
			"event_type", eventType,
			"error", err,
		)
		return
	}

	now := time.Now()
	for _, endpoint := range endpoints {
		delivery := &model.WebhookDelivery{
			ID:           NewID(),
			EndpointID:   endpoint.ID,
			EventID:      eventID,
			EventType:    eventType,
			PayloadJSON:  string(payloadJSON),
			Status:       model.DeliveryStatusPending,
			AttemptCount: 0,
			MaxAttempts:  DefaultMaxAttempts,
			NextRetryAt:  now, // Immediate delivery
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := p.repo.CreateDelivery(ctx, delivery); err != nil {
			p.logger.Warn("failed to create delivery",
				"endpoint_id", endpoint.ID,
				"event_id", eventID,
				"error", err,
			)
			continue
		}

		p.logger.Debug("webhook delivery created",
			"delivery_id", delivery.ID,
			"endpoint_id", endpoint.ID,
			"event_type", eventType,
		)
	}
}
