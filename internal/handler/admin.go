package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/draftline/draftline/internal/metrics"
	"github.com/draftline/draftline/internal/service"
)

// StatsProvider abstracts the admin service for testability.
type StatsProvider interface {
	GetStats(ctx context.Context) (*service.Stats, error)
}

// AdminHandler serves the administrator surface.
type AdminHandler struct {
	svc     StatsProvider
	metrics *metrics.InMemory
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
// metrics may be nil when in-process counters are not collected.
func NewAdminHandler(svc StatsProvider, m *metrics.InMemory, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:     svc,
		metrics: m,
		logger:  logger,
	}
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Metrics handles GET /api/v1/admin/metrics.
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeError(w, http.StatusNotFound, "METRICS_DISABLED", "Metrics collection is disabled")
		return
	}

	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}
