package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/draftline/draftline/internal/model"
)

const progressColumns = `id, paper_id, progress_percentage, completed_words, daily_target, note, created_at`

// LatestProgress returns the most recent progress entry for a paper,
// or nil if the paper has never had progress recorded.
func (r *Repository) LatestProgress(ctx context.Context, paperID string) (*model.ProgressEntry, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress_entries
		WHERE paper_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	entry, err := scanProgress(r.pool.QueryRow(ctx, query, paperID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// LatestProgressBatch returns the most recent progress entry for each of
// the given papers. Papers without entries are absent from the result.
func (r *Repository) LatestProgressBatch(ctx context.Context, paperIDs []string) (map[string]*model.ProgressEntry, error) {
	if len(paperIDs) == 0 {
		return map[string]*model.ProgressEntry{}, nil
	}

	query := `
		SELECT DISTINCT ON (paper_id) ` + progressColumns + `
		FROM progress_entries
		WHERE paper_id = ANY($1)
		ORDER BY paper_id, created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, paperIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to batch latest progress: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*model.ProgressEntry, len(paperIDs))
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result[entry.PaperID] = entry
	}

	return result, rows.Err()
}

// ListProgress returns a paper's full ledger, newest first.
func (r *Repository) ListProgress(ctx context.Context, paperID string, limit int) ([]*model.ProgressEntry, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress_entries
		WHERE paper_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, paperID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.ProgressEntry
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CountProgressEntries returns the total number of progress entries.
func (r *Repository) CountProgressEntries(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM progress_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count progress entries: %w", err)
	}
	return count, nil
}

// insertProgressEntry appends an entry inside an existing transaction.
func insertProgressEntry(ctx context.Context, tx pgx.Tx, entry *model.ProgressEntry) error {
	query := `
		INSERT INTO progress_entries (id, paper_id, progress_percentage, completed_words, daily_target, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.PaperID,
		entry.Percentage,
		entry.CompletedWords,
		entry.DailyTarget,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert progress entry: %w", err)
	}
	return nil
}

// latestProgressTx reads the latest entry inside an existing transaction.
func latestProgressTx(ctx context.Context, tx pgx.Tx, paperID string) (*model.ProgressEntry, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM progress_entries
		WHERE paper_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	entry, err := scanProgress(tx.QueryRow(ctx, query, paperID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// scanProgress scans a single row into a ProgressEntry model.
func scanProgress(row pgx.Row) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	err := row.Scan(
		&entry.ID,
		&entry.PaperID,
		&entry.Percentage,
		&entry.CompletedWords,
		&entry.DailyTarget,
		&entry.Note,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan progress entry: %w", err)
	}
	return &entry, nil
}
