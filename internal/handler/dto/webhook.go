package dto

import (
	"time"

	"github.com/draftline/draftline/internal/model"
)

// CreateWebhookRequest represents the request body for creating a
// webhook endpoint.
type CreateWebhookRequest struct {
	TargetURL   string            `json:"target_url"`
	EventTypes  []model.EventType `json:"event_types,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
}

// UpdateWebhookRequest represents a partial webhook endpoint update.
type UpdateWebhookRequest struct {
	TargetURL   *string            `json:"target_url,omitempty"`
	EventTypes  *[]model.EventType `json:"event_types,omitempty"`
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Enabled     *bool              `json:"enabled,omitempty"`
}

// WebhookResponse represents a webhook endpoint in API responses.
// The signing secret is only present in the creation response.
type WebhookResponse struct {
	ID          string            `json:"id"`
	TargetURL   string            `json:"target_url"`
	Enabled     bool              `json:"enabled"`
	EventTypes  []model.EventType `json:"event_types"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CreateWebhookResponse carries the plaintext secret exactly once.
type CreateWebhookResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

// WebhookListResponse represents a user's webhook endpoints.
type WebhookListResponse struct {
	Data  []WebhookResponse `json:"data"`
	Count int               `json:"count"`
}

// DeliveryResponse represents a webhook delivery attempt record.
type DeliveryResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attempt_count"`
	MaxAttempts    int        `json:"max_attempts"`
	LastHTTPStatus *int       `json:"last_http_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DeliveryListResponse represents delivery history for an endpoint.
type DeliveryListResponse struct {
	Data  []DeliveryResponse `json:"data"`
	Count int                `json:"count"`
}

// ToWebhookResponse converts an endpoint model to its API shape.
func ToWebhookResponse(e *model.WebhookEndpoint) WebhookResponse {
	return WebhookResponse{
		ID:          e.ID,
		TargetURL:   e.TargetURL,
		Enabled:     e.Enabled,
		EventTypes:  e.EventTypes,
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToWebhookListResponse converts endpoints to the list shape.
func ToWebhookListResponse(endpoints []*model.WebhookEndpoint) *WebhookListResponse {
	responses := make([]WebhookResponse, len(endpoints))
	for i, e := range endpoints {
		responses[i] = ToWebhookResponse(e)
	}
	return &WebhookListResponse{Data: responses, Count: len(responses)}
}

// ToDeliveryResponse converts a delivery model to its API shape.
func ToDeliveryResponse(d *model.WebhookDelivery) DeliveryResponse {
	return DeliveryResponse{
		ID:             d.ID,
		EventID:        d.EventID,
		EventType:      string(d.EventType),
		Status:         string(d.Status),
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		LastHTTPStatus: d.LastHTTPStatus,
		LastError:      d.LastError,
		LastAttemptAt:  d.LastAttemptAt,
		CreatedAt:      d.CreatedAt,
	}
}

// ToDeliveryListResponse converts deliveries to the list shape.
func ToDeliveryListResponse(deliveries []*model.WebhookDelivery) *DeliveryListResponse {
	responses := make([]DeliveryResponse, len(deliveries))
	for i, d := range deliveries {
		responses[i] = ToDeliveryResponse(d)
	}
	return &DeliveryListResponse{Data: responses, Count: len(responses)}
}
