// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/pace"
	"github.com/draftline/draftline/internal/service"
)

// CreatePaperRequest represents the request body for creating a paper.
type CreatePaperRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`
	TargetWords int       `json:"target_words"`
	DailyTarget *int      `json:"daily_target,omitempty"`
	Progress    *int      `json:"progress,omitempty"`
}

// UpdatePaperRequest represents the request body for updating a paper.
// All fields are optional; progress fields append to the ledger.
type UpdatePaperRequest struct {
	Description    *string    `json:"description,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Progress       *int       `json:"progress,omitempty"`
	CompletedWords *int       `json:"completed_words,omitempty"`
	DailyTarget    *int       `json:"daily_target,omitempty"`
	Note           *string    `json:"note,omitempty"`
}

// CountdownResponse is the remaining time until a deadline.
type CountdownResponse struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// PaperResponse represents a paper in API responses, including values
// derived at response time.
type PaperResponse struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Deadline           time.Time         `json:"deadline"`
	TargetWords        int               `json:"target_words"`
	CompletedWords     int               `json:"completed_words"`
	ProgressPercentage int               `json:"progress_percentage"`
	DailyTarget        int               `json:"daily_target"`
	TimeRemaining      CountdownResponse `json:"time_remaining"`
	IsOverdue          bool              `json:"is_overdue"`
	LastNote           string            `json:"last_note,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// PaperListResponse represents the caller's papers.
type PaperListResponse struct {
	Data  []PaperResponse `json:"data"`
	Count int             `json:"count"`
}

// UpdatePaperResponse is a paper plus metadata about how the update
// changed its progress.
type UpdatePaperResponse struct {
	PaperResponse
	ProgressChange  int    `json:"progress_change"`
	ProgressMessage string `json:"progress_message"`
}

// DeletePaperResponse confirms a deletion.
type DeletePaperResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	RemainingCount int    `json:"remaining_count"`
}

// ProgressEntryResponse represents one ledger entry.
type ProgressEntryResponse struct {
	ID                 string    `json:"id"`
	ProgressPercentage int       `json:"progress_percentage"`
	CompletedWords     int       `json:"completed_words"`
	DailyTarget        int       `json:"daily_target"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// ProgressListResponse represents a paper's ledger history.
type ProgressListResponse struct {
	Data  []ProgressEntryResponse `json:"data"`
	Count int                     `json:"count"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// ToCountdownResponse converts a pace.Countdown.
func ToCountdownResponse(c pace.Countdown) CountdownResponse {
	return CountdownResponse{
		Days:    c.Days,
		Hours:   c.Hours,
		Minutes: c.Minutes,
		Seconds: c.Seconds,
	}
}

// ToPaperResponse converts a service view to a PaperResponse DTO.
func ToPaperResponse(view *service.PaperView) *PaperResponse {
	resp := &PaperResponse{
		ID:                 view.Paper.ID,
		Title:              view.Paper.Title,
		Description:        view.Paper.Description,
		Deadline:           view.Paper.Deadline,
		TargetWords:        view.Paper.TargetWords,
		ProgressPercentage: view.Percentage,
		DailyTarget:        view.DailyTarget,
		TimeRemaining:      ToCountdownResponse(view.Countdown),
		IsOverdue:          view.Overdue,
		CreatedAt:          view.Paper.CreatedAt,
		UpdatedAt:          view.Paper.UpdatedAt,
	}
	if view.Latest != nil {
		resp.CompletedWords = view.Latest.CompletedWords
		resp.LastNote = view.Latest.Note
	}
	return resp
}

// ToPaperListResponse converts views to a PaperListResponse.
func ToPaperListResponse(views []*service.PaperView) *PaperListResponse {
	responses := make([]PaperResponse, len(views))
	for i, view := range views {
		responses[i] = *ToPaperResponse(view)
	}
	return &PaperListResponse{
		Data:  responses,
		Count: len(responses),
	}
}

// ToProgressEntryResponse converts a ledger entry.
func ToProgressEntryResponse(entry *model.ProgressEntry) ProgressEntryResponse {
	return ProgressEntryResponse{
		ID:                 entry.ID,
		ProgressPercentage: entry.Percentage,
		CompletedWords:     entry.CompletedWords,
		DailyTarget:        entry.DailyTarget,
		Note:               entry.Note,
		CreatedAt:          entry.CreatedAt,
	}
}

// ToProgressListResponse converts ledger entries.
func ToProgressListResponse(entries []*model.ProgressEntry) *ProgressListResponse {
	responses := make([]ProgressEntryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = ToProgressEntryResponse(entry)
	}
	return &ProgressListResponse{
		Data:  responses,
		Count: len(responses),
	}
}
