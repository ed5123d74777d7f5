package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/draftline/draftline/internal/model"
)

// Common errors for paper repository operations.
var (
	// ErrPaperNotFound is returned both when no paper has the requested ID
	// and when the paper belongs to another user. Callers must not
	// distinguish the two cases.
	ErrPaperNotFound = errors.New("paper not found")
	ErrTitleExists   = errors.New("paper title already exists for owner")
)

// PaperUpdate holds optional field updates for a paper.
// Nil fields are left unchanged.
type PaperUpdate struct {
	Description *string
	Deadline    *time.Time
}

// CreatePaper inserts a paper together with its initial progress entry
// as a single transaction.
func (r *Repository) CreatePaper(ctx context.Context, paper *model.Paper, initial *model.ProgressEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO papers (id, owner_id, title, description, deadline, target_words, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, query,
		paper.ID,
		paper.OwnerID,
		paper.Title,
		paper.Description,
		paper.Deadline,
		paper.TargetWords,
		paper.CreatedAt,
		paper.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "papers_owner_title_key") {
			return ErrTitleExists
		}
		return fmt.Errorf("failed to create paper: %w", err)
	}

	if err := insertProgressEntry(ctx, tx, initial); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit paper creation: %w", err)
	}
	return nil
}

// GetPaper retrieves a paper by ID scoped to its owner.
// A paper owned by someone else is reported as not found.
func (r *Repository) GetPaper(ctx context.Context, id, ownerID string) (*model.Paper, error) {
	query := `
		SELECT id, owner_id, title, description, deadline, target_words, created_at, updated_at
		FROM papers
		WHERE id = $1 AND owner_id = $2
	`
	return scanPaper(r.pool.QueryRow(ctx, query, id, ownerID))
}

// ListPapers retrieves all papers owned by a user, newest first.
func (r *Repository) ListPapers(ctx context.Context, ownerID string) ([]*model.Paper, error) {
	query := `
		SELECT id, owner_id, title, description, deadline, target_words, created_at, updated_at
		FROM papers
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, paper)
	}

	return papers, rows.Err()
}

// CountPapersByOwner returns the number of papers a user owns.
func (r *Repository) CountPapersByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM papers WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count papers: %w", err)
	}
	return count, nil
}

// CountPapers returns the total number of papers across all users.
func (r *Repository) CountPapers(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM papers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count papers: %w", err)
	}
	return count, nil
}

// TitleExists checks whether the owner already has a paper with the given
// title (case-insensitive). excludeID skips one paper, for updates.
func (r *Repository) TitleExists(ctx context.Context, ownerID, title, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM papers
			WHERE owner_id = $1 AND LOWER(title) = LOWER($2) AND id <> $3
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, ownerID, title, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}
	return exists, nil
}

// UpdatePaper applies field updates and appends a progress entry as a
// single transaction. The paper row is locked for the duration, so
// concurrent updates to the same paper serialize and no update is lost.
//
// The build callback receives the locked paper (with updates already
// applied in memory) and its latest progress entry (nil if none), and
// returns the entry to append, or nil to skip the append.
func (r *Repository) UpdatePaper(
	ctx context.Context,
	id, ownerID string,
	upd PaperUpdate,
	build func(paper *model.Paper, latest *model.ProgressEntry) *model.ProgressEntry,
) (*model.Paper, *model.ProgressEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the paper row; ownership is part of the predicate so other
	// users' papers surface as not found.
	query := `
		SELECT id, owner_id, title, description, deadline, target_words, created_at, updated_at
		FROM papers
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`
	paper, err := scanPaper(tx.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, nil, err
	}

	if upd.Description != nil {
		paper.Description = *upd.Description
	}
	if upd.Deadline != nil {
		paper.Deadline = *upd.Deadline
	}
	paper.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE papers
		SET description = $2, deadline = $3, target_words = $4, updated_at = $5
		WHERE id = $1
	`, paper.ID, paper.Description, paper.Deadline, paper.TargetWords, paper.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update paper: %w", err)
	}

	latest, err := latestProgressTx(ctx, tx, paper.ID)
	if err != nil {
		return nil, nil, err
	}

	entry := build(paper, latest)
	if entry != nil {
		if err := insertProgressEntry(ctx, tx, entry); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit paper update: %w", err)
	}
	return paper, entry, nil
}

// DeletePaper removes a paper and all its progress entries as a single
// transaction. Returns the deleted paper snapshot and the owner's
// remaining paper count.
func (r *Repository) DeletePaper(ctx context.Context, id, ownerID string) (*model.Paper, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, owner_id, title, description, deadline, target_words, created_at, updated_at
		FROM papers
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`
	paper, err := scanPaper(tx.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, 0, err
	}

	// Progress entries first, then the paper itself.
	if _, err := tx.Exec(ctx, `DELETE FROM progress_entries WHERE paper_id = $1`, paper.ID); err != nil {
		return nil, 0, fmt.Errorf("failed to delete progress entries: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM papers WHERE id = $1`, paper.ID); err != nil {
		return nil, 0, fmt.Errorf("failed to delete paper: %w", err)
	}

	var remaining int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM papers WHERE owner_id = $1`, ownerID).Scan(&remaining); err != nil {
		return nil, 0, fmt.Errorf("failed to count remaining papers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit paper deletion: %w", err)
	}
	return paper, remaining, nil
}

// scanPaper scans a single row into a Paper model.
func scanPaper(row pgx.Row) (*model.Paper, error) {
	var paper model.Paper
	err := row.Scan(
		&paper.ID,
		&paper.OwnerID,
		&paper.Title,
		&paper.Description,
		&paper.Deadline,
		&paper.TargetWords,
		&paper.CreatedAt,
		&paper.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("failed to scan paper: %w", err)
	}
	return &paper, nil
}
