package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/handler/dto"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/service"
)

// PaperManager abstracts the paper service for testability.
type PaperManager interface {
	CreatePaper(ctx context.Context, ownerID string, input service.CreatePaperInput) (*service.PaperView, error)
	GetPaper(ctx context.Context, ownerID, id string) (*service.PaperView, error)
	ListPapers(ctx context.Context, ownerID string) ([]*service.PaperView, error)
	UpdatePaper(ctx context.Context, ownerID, id string, input service.UpdatePaperInput) (*service.PaperView, *service.UpdateMeta, error)
	DeletePaper(ctx context.Context, ownerID, id string) (*model.Paper, int, error)
	ListProgress(ctx context.Context, ownerID, id string, limit int) ([]*model.ProgressEntry, error)
}

// PaperHandler handles HTTP requests for paper operations.
type PaperHandler struct {
	svc    PaperManager
	logger *slog.Logger
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(svc PaperManager, logger *slog.Logger) *PaperHandler {
	return &PaperHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/papers.
func (h *PaperHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	var req dto.CreatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	view, err := h.svc.CreatePaper(r.Context(), authCtx.UserID, service.CreatePaperInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		TargetWords: req.TargetWords,
		DailyTarget: req.DailyTarget,
		Progress:    req.Progress,
	})
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	h.logger.Info("paper_created",
		"paper_id", view.Paper.ID,
		"owner_id", authCtx.UserID,
		"target_words", view.Paper.TargetWords,
	)

	writeJSON(w, http.StatusCreated, dto.ToPaperResponse(view))
}

// List handles GET /api/v1/papers.
func (h *PaperHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	views, err := h.svc.ListPapers(r.Context(), authCtx.UserID)
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPaperListResponse(views))
}

// Get handles GET /api/v1/papers/{id}.
func (h *PaperHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Paper ID is required")
		return
	}

	view, err := h.svc.GetPaper(r.Context(), authCtx.UserID, id)
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPaperResponse(view))
}

// Update handles PUT /api/v1/papers/{id}.
func (h *PaperHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Paper ID is required")
		return
	}

	var req dto.UpdatePaperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	view, meta, err := h.svc.UpdatePaper(r.Context(), authCtx.UserID, id, service.UpdatePaperInput{
		Description:    req.Description,
		Deadline:       req.Deadline,
		Progress:       req.Progress,
		CompletedWords: req.CompletedWords,
		DailyTarget:    req.DailyTarget,
		Note:           req.Note,
	})
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	h.logger.Info("paper_updated",
		"paper_id", view.Paper.ID,
		"owner_id", authCtx.UserID,
		"progress_change", meta.ProgressChange,
	)

	writeJSON(w, http.StatusOK, dto.UpdatePaperResponse{
		PaperResponse:   *dto.ToPaperResponse(view),
		ProgressChange:  meta.ProgressChange,
		ProgressMessage: meta.ProgressMessage,
	})
}

// Delete handles DELETE /api/v1/papers/{id}.
func (h *PaperHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Paper ID is required")
		return
	}

	paper, remaining, err := h.svc.DeletePaper(r.Context(), authCtx.UserID, id)
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	h.logger.Info("paper_deleted",
		"paper_id", paper.ID,
		"owner_id", authCtx.UserID,
	)

	writeJSON(w, http.StatusOK, dto.DeletePaperResponse{
		ID:             paper.ID,
		Title:          paper.Title,
		RemainingCount: remaining,
	})
}

// Progress handles GET /api/v1/papers/{id}/progress.
func (h *PaperHandler) Progress(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Paper ID is required")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	entries, err := h.svc.ListProgress(r.Context(), authCtx.UserID, id, limit)
	if err != nil {
		handleCommonError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProgressListResponse(entries))
}
