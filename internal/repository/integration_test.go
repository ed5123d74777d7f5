//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/draftline/draftline/internal/model"
	"github.com/draftline/draftline/internal/testutil"
)

// ============================================================================
// Paper Persistence Integration Tests
// ============================================================================

func TestIntegrationPaper_CreateAndGet(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	owner := newTestUser(t, ctx, repo)
	paper := newTestPaper(owner.ID)

	if err := repo.CreatePaper(ctx, paper, initialEntry(paper)); err != nil {
		t.Fatalf("CreatePaper failed: %v", err)
	}

	retrieved, err := repo.GetPaper(ctx, paper.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetPaper failed: %v", err)
	}
	if retrieved.Title != paper.Title {
		t.Errorf("Title mismatch: got %q, want %q", retrieved.Title, paper.Title)
	}
	if retrieved.TargetWords != paper.TargetWords {
		t.Errorf("TargetWords mismatch: got %d, want %d", retrieved.TargetWords, paper.TargetWords)
	}

	latest, err := repo.LatestProgress(ctx, paper.ID)
	if err != nil {
		t.Fatalf("LatestProgress failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected the initial progress entry")
	}
	if latest.CompletedWords != 0 {
		t.Errorf("initial CompletedWords should be 0, got %d", latest.CompletedWords)
	}

	// Another user must not be able to see the paper.
	stranger := newTestUser(t, ctx, repo)
	if _, err := repo.GetPaper(ctx, paper.ID, stranger.ID); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("expected ErrPaperNotFound for another user, got %v", err)
	}
}

func TestIntegrationPaper_DuplicateTitleCaseInsensitive(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	owner := newTestUser(t, ctx, repo)
	first := newTestPaper(owner.ID)
	first.Title = "Dissertation Draft"
	if err := repo.CreatePaper(ctx, first, initialEntry(first)); err != nil {
		t.Fatalf("CreatePaper failed: %v", err)
	}

	// The unique index is on LOWER(title), so case must not matter.
	second := newTestPaper(owner.ID)
	second.Title = "DISSERTATION draft"
	if err := repo.CreatePaper(ctx, second, initialEntry(second)); !errors.Is(err, ErrTitleExists) {
		t.Errorf("expected ErrTitleExists, got %v", err)
	}

	// A different owner may reuse the title.
	other := newTestUser(t, ctx, repo)
	third := newTestPaper(other.ID)
	third.Title = "Dissertation Draft"
	if err := repo.CreatePaper(ctx, third, initialEntry(third)); err != nil {
		t.Errorf("same title under another owner should succeed, got %v", err)
	}
}

func TestIntegrationPaper_ConcurrentUpdates(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	owner := newTestUser(t, ctx, repo)
	paper := newTestPaper(owner.ID)
	if err := repo.CreatePaper(ctx, paper, initialEntry(paper)); err != nil {
		t.Fatalf("CreatePaper failed: %v", err)
	}

	const (
		workers = 8
		delta   = 250
	)

	// Every worker reads the latest entry and appends delta words on top
	// of it. The row lock must serialize them so no increment is lost.
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.UpdatePaper(ctx, paper.ID, owner.ID, PaperUpdate{},
				func(p *model.Paper, latest *model.ProgressEntry) *model.ProgressEntry {
					words := delta
					if latest != nil {
						words = latest.CompletedWords + delta
					}
					return &model.ProgressEntry{
						ID:             testutil.UniqueID("entry"),
						PaperID:        p.ID,
						Percentage:     words * 100 / p.TargetWords,
						CompletedWords: words,
						CreatedAt:      time.Now().UTC(),
					}
				})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("UpdatePaper failed: %v", err)
	}

	var maxWords, count int
	err := repo.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(completed_words), 0), COUNT(*)
		FROM progress_entries WHERE paper_id = $1
	`, paper.ID).Scan(&maxWords, &count)
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}

	if want := workers * delta; maxWords != want {
		t.Errorf("lost update: max completed_words = %d, want %d", maxWords, want)
	}
	if want := workers + 1; count != want {
		t.Errorf("ledger entry count = %d, want %d", count, want)
	}
}

func TestIntegrationPaper_DeleteCascades(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	owner := newTestUser(t, ctx, repo)
	paper := newTestPaper(owner.ID)
	if err := repo.CreatePaper(ctx, paper, initialEntry(paper)); err != nil {
		t.Fatalf("CreatePaper failed: %v", err)
	}

	keep := newTestPaper(owner.ID)
	if err := repo.CreatePaper(ctx, keep, initialEntry(keep)); err != nil {
		t.Fatalf("CreatePaper failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, _, err := repo.UpdatePaper(ctx, paper.ID, owner.ID, PaperUpdate{},
			func(p *model.Paper, latest *model.ProgressEntry) *model.ProgressEntry {
				words := 100
				if latest != nil {
					words = latest.CompletedWords + 100
				}
				return &model.ProgressEntry{
					ID:             testutil.UniqueID("entry"),
					PaperID:        p.ID,
					CompletedWords: words,
					CreatedAt:      time.Now().UTC(),
				}
			})
		if err != nil {
			t.Fatalf("UpdatePaper failed: %v", err)
		}
	}

	deleted, remaining, err := repo.DeletePaper(ctx, paper.ID, owner.ID)
	if err != nil {
		t.Fatalf("DeletePaper failed: %v", err)
	}
	if deleted.ID != paper.ID {
		t.Errorf("deleted ID mismatch: got %q, want %q", deleted.ID, paper.ID)
	}
	if remaining != 1 {
		t.Errorf("remaining count = %d, want 1", remaining)
	}

	var orphans int
	err = repo.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_entries WHERE paper_id = $1`, paper.ID,
	).Scan(&orphans)
	if err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 0 {
		t.Errorf("progress entries left behind after delete: %d", orphans)
	}

	if _, err := repo.GetPaper(ctx, paper.ID, owner.ID); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("expected ErrPaperNotFound after delete, got %v", err)
	}
}

func TestIntegrationUser_DuplicateConstraints(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user := newTestUser(t, ctx, repo)

	dup := &model.User{
		ID:           testutil.UniqueID("user"),
		Username:     user.Username,
		Email:        testutil.UniqueID("mail") + "@example.com",
		PasswordHash: "x",
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}

	dup.ID = testutil.UniqueID("user")
	dup.Username = testutil.UniqueID("writer")
	dup.Email = user.Email
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func newTestUser(t testing.TB, ctx context.Context, repo *Repository) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:           testutil.UniqueID("user"),
		Username:     testutil.UniqueID("writer"),
		Email:        testutil.UniqueID("mail") + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func newTestPaper(ownerID string) *model.Paper {
	now := time.Now().UTC()
	return &model.Paper{
		ID:          testutil.UniqueID("paper"),
		OwnerID:     ownerID,
		Title:       testutil.UniqueID("Thesis"),
		Description: "integration test paper",
		Deadline:    now.Add(30 * 24 * time.Hour),
		TargetWords: 10000,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func initialEntry(paper *model.Paper) *model.ProgressEntry {
	return &model.ProgressEntry{
		ID:        testutil.UniqueID("entry"),
		PaperID:   paper.ID,
		CreatedAt: paper.CreatedAt,
	}
}

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	resetCoreTables(t, ctx, repo)

	return ctx, repo
}

func resetCoreTables(t *testing.T, ctx context.Context, repo *Repository) {
	t.Helper()

	// Drop and recreate the core tables so each run starts clean. The
	// index names must match the ones the unique-violation mapping
	// expects, so this mirrors the migrations.
	downSQL := `
		DROP TABLE IF EXISTS progress_entries;
		DROP TABLE IF EXISTS papers;
		DROP TABLE IF EXISTS users;
	`
	if _, err := repo.pool.Exec(ctx, downSQL); err != nil {
		t.Fatalf("drop core tables: %v", err)
	}

	upSQL := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'USER',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (LOWER(username));
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));

		CREATE TABLE IF NOT EXISTS papers (
			id           TEXT PRIMARY KEY,
			owner_id     TEXT NOT NULL REFERENCES users(id),
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			deadline     TIMESTAMPTZ NOT NULL,
			target_words INT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_papers_owner ON papers (owner_id);
		CREATE UNIQUE INDEX IF NOT EXISTS papers_owner_title_key ON papers (owner_id, LOWER(title));

		CREATE TABLE IF NOT EXISTS progress_entries (
			id                  TEXT PRIMARY KEY,
			paper_id            TEXT NOT NULL REFERENCES papers(id),
			progress_percentage INT NOT NULL DEFAULT 0,
			completed_words     INT NOT NULL DEFAULT 0,
			daily_target        INT NOT NULL DEFAULT 0,
			note                TEXT NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_progress_entries_paper_created
			ON progress_entries (paper_id, created_at DESC);
	`
	if _, err := repo.pool.Exec(ctx, upSQL); err != nil {
		t.Fatalf("create core tables: %v", err)
	}
}
