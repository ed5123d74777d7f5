package model

import "time"

// Paper represents a tracked writing project.
// A paper is owned exclusively by one user; progress is recorded in an
// append-only ledger of ProgressEntry rows, never by mutating the paper.
type Paper struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Deadline    time.Time `json:"deadline"`
	TargetWords int       `json:"target_words"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOverdue returns true if the deadline has passed at the given instant.
func (p *Paper) IsOverdue(now time.Time) bool {
	return !p.Deadline.After(now)
}

// ProgressEntry is one immutable record in a paper's progress ledger.
// The entry with the latest CreatedAt defines the paper's current progress.
type ProgressEntry struct {
	ID             string    `json:"id"`
	PaperID        string    `json:"paper_id"`
	Percentage     int       `json:"progress_percentage"`
	CompletedWords int       `json:"completed_words"`
	DailyTarget    int       `json:"daily_target"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
