package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/draftline/draftline/internal/model"
)

// ActivityRollup is a pre-aggregated batch of activity for one day,
// produced by the activity worker before it touches the database.
type ActivityRollup struct {
	Day        time.Time
	Entries    int
	WordsAdded int
	UserIDs    []string
}

// UpsertDailyActivity folds a batch of rollups into the daily_activity
// table and records which users were active on each day. The whole
// batch is applied in one transaction.
func (r *Repository) UpsertDailyActivity(ctx context.Context, rollups []ActivityRollup) error {
	if len(rollups) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rollup := range rollups {
		day := rollup.Day.UTC().Truncate(24 * time.Hour)

		_, err := tx.Exec(ctx, `
			INSERT INTO daily_activity (day, entries, words_added)
			VALUES ($1, $2, $3)
			ON CONFLICT (day) DO UPDATE SET
				entries = daily_activity.entries + EXCLUDED.entries,
				words_added = daily_activity.words_added + EXCLUDED.words_added`,
			day, rollup.Entries, rollup.WordsAdded)
		if err != nil {
			return fmt.Errorf("upsert daily activity: %w", err)
		}

		for _, userID := range rollup.UserIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO daily_active_users (day, user_id)
				VALUES ($1, $2)
				ON CONFLICT (day, user_id) DO NOTHING`,
				day, userID)
			if err != nil {
				return fmt.Errorf("upsert active user: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// RecentActivity returns per-day activity for the last n days,
// newest first. Days with no activity are absent.
func (r *Repository) RecentActivity(ctx context.Context, days int) ([]*model.DailyActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.day, a.entries, a.words_added,
		       (SELECT COUNT(*) FROM daily_active_users u WHERE u.day = a.day)
		FROM daily_activity a
		WHERE a.day > NOW() - ($1 * INTERVAL '1 day')
		ORDER BY a.day DESC`,
		days)
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}
	defer rows.Close()

	var out []*model.DailyActivity
	for rows.Next() {
		var day model.DailyActivity
		if err := rows.Scan(&day.Day, &day.Entries, &day.WordsAdded, &day.ActiveUsers); err != nil {
			return nil, fmt.Errorf("scan daily activity: %w", err)
		}
		out = append(out, &day)
	}
	return out, rows.Err()
}
