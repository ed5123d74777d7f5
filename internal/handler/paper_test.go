package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/handler/dto"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/pace"
	"github.com/draftline/draftline/internal/service"
)

type fakePaperService struct {
	err       error
	view      *service.PaperView
	views     []*service.PaperView
	meta      *service.UpdateMeta
	entries   []*model.ProgressEntry
	remaining int

	gotOwnerID string
	gotPaperID string
	gotLimit   int
}

func (f *fakePaperService) CreatePaper(ctx context.Context, ownerID string, input service.CreatePaperInput) (*service.PaperView, error) {
	f.gotOwnerID = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func (f *fakePaperService) GetPaper(ctx context.Context, ownerID, id string) (*service.PaperView, error) {
	f.gotOwnerID, f.gotPaperID = ownerID, id
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func (f *fakePaperService) ListPapers(ctx context.Context, ownerID string) ([]*service.PaperView, error) {
	f.gotOwnerID = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.views, nil
}

func (f *fakePaperService) UpdatePaper(ctx context.Context, ownerID, id string, input service.UpdatePaperInput) (*service.PaperView, *service.UpdateMeta, error) {
	f.gotOwnerID, f.gotPaperID = ownerID, id
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.view, f.meta, nil
}

func (f *fakePaperService) DeletePaper(ctx context.Context, ownerID, id string) (*model.Paper, int, error) {
	f.gotOwnerID, f.gotPaperID = ownerID, id
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.view.Paper, f.remaining, nil
}

func (f *fakePaperService) ListProgress(ctx context.Context, ownerID, id string, limit int) ([]*model.ProgressEntry, error) {
	f.gotOwnerID, f.gotPaperID, f.gotLimit = ownerID, id, limit
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func testView() *service.PaperView {
	deadline := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &service.PaperView{
		Paper: &model.Paper{
			ID:          "01HPAPER000000000000000000",
			OwnerID:     "01HUSER0000000000000000000",
			Title:       "Master thesis draft",
			Deadline:    deadline,
			TargetWords: 10000,
		},
		Latest: &model.ProgressEntry{
			Percentage:     40,
			CompletedWords: 4000,
			DailyTarget:    600,
		},
		Percentage:  40,
		DailyTarget: 600,
		Countdown:   pace.Countdown{Days: 10},
	}
}

// authedRequest builds a request with auth context and an optional
// chi route parameter.
func authedRequest(method, target, body, paperID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))

	ctx := auth.ContextWithAuth(req.Context(), &model.AuthContext{
		UserID:   "01HUSER0000000000000000000",
		Username: "ada",
		Role:     model.RoleUser,
	})

	if paperID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", paperID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

func TestPaperHandler_Create(t *testing.T) {
	svc := &fakePaperService{view: testView()}
	h := NewPaperHandler(svc, discardLogger())

	body := `{"title":"Master thesis draft","deadline":"2025-06-01T00:00:00Z","target_words":10000}`
	rec := httptest.NewRecorder()

	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/papers", body, ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotOwnerID != "01HUSER0000000000000000000" {
		t.Errorf("owner id = %q", svc.gotOwnerID)
	}

	var resp dto.PaperResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ProgressPercentage != 40 {
		t.Errorf("progress = %d, want 40", resp.ProgressPercentage)
	}
	if resp.DailyTarget != 600 {
		t.Errorf("daily target = %d, want 600", resp.DailyTarget)
	}
}

func TestPaperHandler_CreateDuplicateTitle(t *testing.T) {
	h := NewPaperHandler(&fakePaperService{err: service.ErrTitleExists}, discardLogger())

	body := `{"title":"Master thesis draft","deadline":"2025-06-01T00:00:00Z","target_words":10000}`
	rec := httptest.NewRecorder()

	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/papers", body, ""))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "TITLE_TAKEN" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestPaperHandler_GetNotFound(t *testing.T) {
	h := NewPaperHandler(&fakePaperService{err: service.ErrPaperNotFound}, discardLogger())

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(http.MethodGet, "/api/v1/papers/unknown", "", "unknown"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestPaperHandler_List(t *testing.T) {
	svc := &fakePaperService{views: []*service.PaperView{testView(), testView()}}
	h := NewPaperHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/v1/papers", "", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.PaperListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestPaperHandler_Update(t *testing.T) {
	svc := &fakePaperService{
		view: testView(),
		meta: &service.UpdateMeta{ProgressChange: 15, ProgressMessage: "progress increased by 15%"},
	}
	h := NewPaperHandler(svc, discardLogger())

	body := `{"progress":40,"note":"finished chapter 2"}`
	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPut, "/api/v1/papers/01HPAPER000000000000000000", body, "01HPAPER000000000000000000"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.UpdatePaperResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ProgressChange != 15 {
		t.Errorf("progress_change = %d, want 15", resp.ProgressChange)
	}
	if resp.ProgressMessage != "progress increased by 15%" {
		t.Errorf("progress_message = %q", resp.ProgressMessage)
	}
}

func TestPaperHandler_UpdateMissingID(t *testing.T) {
	h := NewPaperHandler(&fakePaperService{}, discardLogger())

	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPut, "/api/v1/papers/", "{}", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestPaperHandler_Delete(t *testing.T) {
	svc := &fakePaperService{view: testView(), remaining: 2}
	h := NewPaperHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/api/v1/papers/01HPAPER000000000000000000", "", "01HPAPER000000000000000000"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.DeletePaperResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Title != "Master thesis draft" {
		t.Errorf("title = %q", resp.Title)
	}
	if resp.RemainingCount != 2 {
		t.Errorf("remaining_count = %d, want 2", resp.RemainingCount)
	}
}

func TestPaperHandler_Progress(t *testing.T) {
	svc := &fakePaperService{
		entries: []*model.ProgressEntry{
			{ID: "e2", Percentage: 40, CompletedWords: 4000},
			{ID: "e1", Percentage: 20, CompletedWords: 2000},
		},
	}
	h := NewPaperHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Progress(rec, authedRequest(http.MethodGet, "/api/v1/papers/p1/progress?limit=10", "", "p1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.gotLimit != 10 {
		t.Errorf("limit = %d, want 10", svc.gotLimit)
	}

	var resp dto.ProgressListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}
