package model

import "time"

// ActivityEvent is one unit of writing activity as placed on the
// activity stream. WordsDelta may be negative when an author revises
// their word count downward.
type ActivityEvent struct {
	UserID     string    `json:"user_id"`
	PaperID    string    `json:"paper_id"`
	WordsDelta int       `json:"words_delta"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DailyActivity is the per-day rollup of writing activity across all
// users, maintained by the activity worker.
type DailyActivity struct {
	Day         time.Time `json:"day"`
	Entries     int       `json:"entries"`
	WordsAdded  int       `json:"words_added"`
	ActiveUsers int       `json:"active_users"`
}
