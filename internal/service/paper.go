package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/draftline/draftline/internal/cache"
	"github.com/draftline/draftline/internal/metrics"
	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/pace"
	"github.com/draftline/draftline/internal/repository"
)

// EventPublisher fans paper events out to webhook endpoints.
// Implementations must not block the request path.
type EventPublisher interface {
	PublishPaperEvent(ctx context.Context, userID string, eventType model.EventType, eventID string, data map[string]any)
}

// ActivityRecorder records writing activity for aggregate statistics.
// Best effort: failures never affect the calling operation.
type ActivityRecorder interface {
	RecordProgress(userID, paperID string, wordsDelta int, at time.Time)
}

// PaperService handles paper and progress-ledger business logic.
type PaperService struct {
	repo     *repository.Repository
	cache    *cache.Cache
	events   EventPublisher
	activity ActivityRecorder
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewPaperService creates a new PaperService.
// events and activity may be nil when the corresponding feature is disabled.
func NewPaperService(
	repo *repository.Repository,
	cacheClient *cache.Cache,
	events EventPublisher,
	activity ActivityRecorder,
	recorder metrics.Recorder,
) *PaperService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PaperService{
		repo:     repo,
		cache:    cacheClient,
		events:   events,
		activity: activity,
		metrics:  recorder,
		now:      time.Now,
	}
}

// PaperView is a paper together with its current ledger state and the
// values derived from it at read time. Countdown and DailyTarget are
// always recomputed against wall-clock time, never read from storage.
type PaperView struct {
	Paper       *model.Paper
	Latest      *model.ProgressEntry
	Percentage  int
	DailyTarget int
	Countdown   pace.Countdown
	Overdue     bool
}

// UpdateMeta describes how an update changed a paper's progress.
type UpdateMeta struct {
	ProgressChange  int
	ProgressMessage string
}

// CreatePaperInput defines input for creating a paper.
type CreatePaperInput struct {
	Title       string    `json:"title" validate:"required,min=5,max=200"`
	Description string    `json:"description" validate:"omitempty,max=1000"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	TargetWords int       `json:"target_words" validate:"required,gt=0"`
	DailyTarget *int      `json:"daily_target" validate:"omitempty,gte=1,lte=10000"`
	Progress    *int      `json:"progress" validate:"omitempty,gte=0,lte=100"`
}

// CreatePaper creates a paper with its initial progress entry.
// All validation failures are reported together before any write.
func (s *PaperService) CreatePaper(ctx context.Context, ownerID string, input CreatePaperInput) (*PaperView, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	now := s.now().UTC()

	msgs := checkStruct(input)
	if !input.Deadline.IsZero() && !input.Deadline.After(now) {
		msgs = append(msgs, "deadline must be a date in the future")
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Errors: msgs}
	}

	taken, err := s.repo.TitleExists(ctx, ownerID, input.Title, "")
	if err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if taken {
		return nil, ErrTitleExists
	}

	paper := &model.Paper{
		ID:          newID(),
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Deadline:    input.Deadline.UTC(),
		TargetWords: input.TargetWords,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	percentage := 0
	if input.Progress != nil {
		percentage = *input.Progress
	}
	dailyTarget := pace.DailyTarget(now, paper.Deadline, paper.TargetWords, 0)
	if input.DailyTarget != nil {
		dailyTarget = *input.DailyTarget
	}

	initial := &model.ProgressEntry{
		ID:          newID(),
		PaperID:     paper.ID,
		Percentage:  percentage,
		DailyTarget: dailyTarget,
		CreatedAt:   now,
	}

	if err := s.repo.CreatePaper(ctx, paper, initial); err != nil {
		if errors.Is(err, repository.ErrTitleExists) {
			return nil, ErrTitleExists
		}
		return nil, fmt.Errorf("create paper: %w", err)
	}

	s.cacheLatest(ctx, initial)
	s.metrics.IncPaperCreated()

	if s.events != nil {
		s.events.PublishPaperEvent(ctx, ownerID, model.EventTypePaperCreated, paper.ID, map[string]any{
			"paper_id":     paper.ID,
			"title":        paper.Title,
			"deadline":     paper.Deadline,
			"target_words": paper.TargetWords,
		})
	}

	return s.view(paper, initial), nil
}

// GetPaper retrieves a paper with its current progress and live countdown.
func (s *PaperService) GetPaper(ctx context.Context, ownerID, id string) (*PaperView, error) {
	paper, err := s.repo.GetPaper(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			return nil, ErrPaperNotFound
		}
		return nil, err
	}

	latest, err := s.latestProgress(ctx, paper.ID)
	if err != nil {
		return nil, err
	}

	return s.view(paper, latest), nil
}

// ListPapers retrieves all papers owned by the caller, each annotated
// with its latest progress and derived values.
func (s *PaperService) ListPapers(ctx context.Context, ownerID string) ([]*PaperView, error) {
	papers, err := s.repo.ListPapers(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(papers))
	for i, paper := range papers {
		ids[i] = paper.ID
	}

	latestByPaper, err := s.repo.LatestProgressBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*PaperView, len(papers))
	for i, paper := range papers {
		views[i] = s.view(paper, latestByPaper[paper.ID])
	}
	return views, nil
}

// UpdatePaperInput defines a partial update. All fields are optional;
// only supplied fields are validated and applied.
type UpdatePaperInput struct {
	Description    *string    `json:"description" validate:"omitempty,max=1000"`
	Deadline       *time.Time `json:"deadline"`
	Progress       *int       `json:"progress" validate:"omitempty,gte=0,lte=100"`
	CompletedWords *int       `json:"completed_words" validate:"omitempty,gte=0"`
	DailyTarget    *int       `json:"daily_target" validate:"omitempty,gte=1,lte=10000"`
	Note           *string    `json:"note" validate:"omitempty,max=1000"`
}

// touchesProgress reports whether the update needs a new ledger entry.
func (in UpdatePaperInput) touchesProgress() bool {
	return in.Progress != nil || in.CompletedWords != nil || in.DailyTarget != nil || in.Note != nil
}

// UpdatePaper applies field updates and appends a progress entry as one
// atomic unit. Omitted progress fields carry over from the prior latest
// entry; the recorded daily target is re-derived unless supplied.
func (s *PaperService) UpdatePaper(ctx context.Context, ownerID, id string, input UpdatePaperInput) (*PaperView, *UpdateMeta, error) {
	now := s.now().UTC()

	msgs := checkStruct(input)
	if input.Deadline != nil && !input.Deadline.After(now) {
		msgs = append(msgs, "deadline must be a date in the future")
	}
	if len(msgs) > 0 {
		return nil, nil, &ValidationError{Errors: msgs}
	}

	upd := repository.PaperUpdate{
		Deadline: input.Deadline,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		upd.Description = &trimmed
	}

	oldPercentage := 0
	wordsDelta := 0

	paper, entry, err := s.repo.UpdatePaper(ctx, id, ownerID, upd,
		func(paper *model.Paper, latest *model.ProgressEntry) *model.ProgressEntry {
			if latest != nil {
				oldPercentage = latest.Percentage
			}
			if !input.touchesProgress() {
				return nil
			}
			next := s.nextEntry(now, paper, latest, input)
			if latest != nil {
				wordsDelta = next.CompletedWords - latest.CompletedWords
			} else {
				wordsDelta = next.CompletedWords
			}
			return next
		})
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			return nil, nil, ErrPaperNotFound
		}
		return nil, nil, fmt.Errorf("update paper: %w", err)
	}

	if entry != nil {
		s.cacheLatest(ctx, entry)
	} else {
		// Paper fields changed without a ledger append; derived values
		// depend on the paper row, so drop any stale cached summary.
		s.invalidateLatest(ctx, paper.ID)
		var ferr error
		entry, ferr = s.latestProgress(ctx, paper.ID)
		if ferr != nil {
			return nil, nil, ferr
		}
	}

	s.metrics.IncPaperUpdated()
	if input.touchesProgress() {
		s.metrics.IncProgressLogged()
		if s.activity != nil && wordsDelta != 0 {
			s.activity.RecordProgress(ownerID, paper.ID, wordsDelta, now)
		}
		if s.events != nil {
			s.events.PublishPaperEvent(ctx, ownerID, model.EventTypeProgressLogged, entry.ID, map[string]any{
				"paper_id":            paper.ID,
				"progress_percentage": entry.Percentage,
				"completed_words":     entry.CompletedWords,
				"daily_target":        entry.DailyTarget,
			})
		}
	}

	newPercentage := oldPercentage
	if entry != nil {
		newPercentage = entry.Percentage
	}

	return s.view(paper, entry), progressMeta(oldPercentage, newPercentage), nil
}

// DeletePaper removes a paper and its whole ledger.
// Returns the deleted snapshot and the owner's remaining paper count.
func (s *PaperService) DeletePaper(ctx context.Context, ownerID, id string) (*model.Paper, int, error) {
	paper, remaining, err := s.repo.DeletePaper(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			return nil, 0, ErrPaperNotFound
		}
		return nil, 0, fmt.Errorf("delete paper: %w", err)
	}

	s.invalidateLatest(ctx, id)
	s.metrics.IncPaperDeleted()

	if s.events != nil {
		s.events.PublishPaperEvent(ctx, ownerID, model.EventTypePaperDeleted, paper.ID, map[string]any{
			"paper_id": paper.ID,
			"title":    paper.Title,
		})
	}

	return paper, remaining, nil
}

// ListProgress returns the recent ledger history for a paper.
func (s *PaperService) ListProgress(ctx context.Context, ownerID, id string, limit int) ([]*model.ProgressEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Ownership first: history of another user's paper is "not found".
	if _, err := s.repo.GetPaper(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrPaperNotFound) {
			return nil, ErrPaperNotFound
		}
		return nil, err
	}

	return s.repo.ListProgress(ctx, id, limit)
}

// nextEntry builds the ledger entry for an update, defaulting omitted
// fields from the prior latest entry and deriving the rest.
func (s *PaperService) nextEntry(now time.Time, paper *model.Paper, latest *model.ProgressEntry, input UpdatePaperInput) *model.ProgressEntry {
	entry := &model.ProgressEntry{
		ID:        newID(),
		PaperID:   paper.ID,
		CreatedAt: now,
	}

	if latest != nil {
		entry.Percentage = latest.Percentage
		entry.CompletedWords = latest.CompletedWords
	}

	if input.CompletedWords != nil {
		entry.CompletedWords = *input.CompletedWords
		entry.Percentage = pace.Completion(entry.CompletedWords, paper.TargetWords)
	}
	if input.Progress != nil {
		entry.Percentage = *input.Progress
	}
	if input.Note != nil {
		entry.Note = strings.TrimSpace(*input.Note)
	}

	if input.DailyTarget != nil {
		entry.DailyTarget = *input.DailyTarget
	} else {
		entry.DailyTarget = pace.DailyTarget(now, paper.Deadline, paper.TargetWords, entry.CompletedWords)
	}

	return entry
}

// view assembles the read model, recomputing time-derived values.
func (s *PaperService) view(paper *model.Paper, latest *model.ProgressEntry) *PaperView {
	now := s.now().UTC()

	// The countdown floors to whole seconds, so it can read all-zero a
	// moment before the deadline. Overdue comes from the deadline itself.
	view := &PaperView{
		Paper:     paper,
		Latest:    latest,
		Countdown: pace.TimeRemaining(now, paper.Deadline),
		Overdue:   paper.IsOverdue(now),
	}
	completedWords := 0
	if latest != nil {
		view.Percentage = latest.Percentage
		completedWords = latest.CompletedWords
	}
	view.DailyTarget = pace.DailyTarget(now, paper.Deadline, paper.TargetWords, completedWords)
	return view
}

// latestProgress reads the current ledger entry, via cache when possible.
func (s *PaperService) latestProgress(ctx context.Context, paperID string) (*model.ProgressEntry, error) {
	if s.cache != nil {
		if entry, _ := s.cache.GetLatestProgress(ctx, paperID); entry != nil {
			return entry, nil
		}
	}

	entry, err := s.repo.LatestProgress(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		s.cacheLatest(ctx, entry)
	}
	return entry, nil
}

func (s *PaperService) cacheLatest(ctx context.Context, entry *model.ProgressEntry) {
	if s.cache != nil {
		_ = s.cache.SetLatestProgress(ctx, entry.PaperID, entry)
	}
}

func (s *PaperService) invalidateLatest(ctx context.Context, paperID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateProgress(ctx, paperID)
	}
}

// progressMeta summarizes a percentage change for response metadata.
func progressMeta(oldPct, newPct int) *UpdateMeta {
	change := newPct - oldPct
	msg := "progress unchanged"
	switch {
	case change > 0:
		msg = fmt.Sprintf("progress increased by %d%%", change)
	case change < 0:
		msg = fmt.Sprintf("progress decreased by %d%%", -change)
	}
	return &UpdateMeta{ProgressChange: change, ProgressMessage: msg}
}
