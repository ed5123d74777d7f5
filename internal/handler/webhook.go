package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/handler/dto"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/webhook"
)

// WebhookHandler handles webhook endpoint management.
type WebhookHandler struct {
	repo   *webhook.Repository
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(repo *webhook.Repository, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		repo:   repo,
		logger: logger.With("handler", "webhook"),
	}
}

// Create handles POST /api/v1/webhooks.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	var req dto.CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := webhook.ValidateTargetURL(req.TargetURL); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_URL", err.Error())
		return
	}

	eventTypes := req.EventTypes
	if len(eventTypes) == 0 {
		eventTypes = model.ValidEventTypes
	}
	for _, et := range eventTypes {
		if !model.IsValidEventType(et) {
			writeError(w, http.StatusBadRequest, "INVALID_EVENT_TYPE", "Invalid event type: "+string(et))
			return
		}
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		h.logger.Error("failed to generate secret", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create webhook")
		return
	}

	now := time.Now().UTC()
	endpoint := &model.WebhookEndpoint{
		ID:          webhook.NewID(),
		UserID:      authCtx.UserID,
		TargetURL:   req.TargetURL,
		SecretHash:  webhook.HashSecret(secret),
		Enabled:     true,
		EventTypes:  eventTypes,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.CreateEndpoint(r.Context(), endpoint); err != nil {
		h.logger.Error("failed to create endpoint", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create webhook")
		return
	}

	h.logger.Info("webhook endpoint created",
		"endpoint_id", endpoint.ID,
		"user_id", authCtx.UserID,
	)

	// The plaintext secret is only shown once
	writeJSON(w, http.StatusCreated, dto.CreateWebhookResponse{
		WebhookResponse: dto.ToWebhookResponse(endpoint),
		Secret:          secret,
	})
}

// List handles GET /api/v1/webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	endpoints, err := h.repo.ListEndpointsByUser(r.Context(), authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list endpoints", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list webhooks")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWebhookListResponse(endpoints))
}

// Get handles GET /api/v1/webhooks/{id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	endpoint, err := h.repo.GetEndpointByUser(r.Context(), chi.URLParam(r, "id"), authCtx.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWebhookResponse(endpoint))
}

// Update handles PATCH /api/v1/webhooks/{id}.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	endpoint, err := h.repo.GetEndpointByUser(r.Context(), chi.URLParam(r, "id"), authCtx.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	var req dto.UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if req.TargetURL != nil {
		if err := webhook.ValidateTargetURL(*req.TargetURL); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_URL", err.Error())
			return
		}
		endpoint.TargetURL = *req.TargetURL
	}
	if req.EventTypes != nil {
		for _, et := range *req.EventTypes {
			if !model.IsValidEventType(et) {
				writeError(w, http.StatusBadRequest, "INVALID_EVENT_TYPE", "Invalid event type: "+string(et))
				return
			}
		}
		endpoint.EventTypes = *req.EventTypes
	}
	if req.Name != nil {
		endpoint.Name = *req.Name
	}
	if req.Description != nil {
		endpoint.Description = *req.Description
	}
	if req.Enabled != nil {
		endpoint.Enabled = *req.Enabled
	}

	if err := h.repo.UpdateEndpoint(r.Context(), endpoint); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("webhook endpoint updated", "endpoint_id", endpoint.ID)

	writeJSON(w, http.StatusOK, dto.ToWebhookResponse(endpoint))
}

// Delete handles DELETE /api/v1/webhooks/{id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteEndpoint(r.Context(), id, authCtx.UserID); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("webhook endpoint deleted", "endpoint_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// Deliveries handles GET /api/v1/webhooks/{id}/deliveries.
func (h *WebhookHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	// Ownership check first
	endpoint, err := h.repo.GetEndpointByUser(r.Context(), chi.URLParam(r, "id"), authCtx.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	deliveries, err := h.repo.ListDeliveriesByEndpoint(r.Context(), endpoint.ID, 50)
	if err != nil {
		h.logger.Error("failed to list deliveries", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list deliveries")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDeliveryListResponse(deliveries))
}

func (h *WebhookHandler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, webhook.ErrEndpointNotFound) {
		writeError(w, http.StatusNotFound, "WEBHOOK_NOT_FOUND", "Webhook endpoint not found")
		return
	}
	h.logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}
