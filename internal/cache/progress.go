package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/draftline/draftline/internal/model"
)

// Cache key prefixes and TTLs.
const (
	progressKeyPrefix = "progress:"

	// DefaultProgressTTL is the TTL for cached latest-progress entries.
	DefaultProgressTTL = 6 * time.Hour
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetLatestProgress retrieves the cached latest ledger entry for a paper.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetLatestProgress(ctx context.Context, paperID string) (*model.ProgressEntry, error) {
	key := progressKeyPrefix + paperID

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	entry := &model.ProgressEntry{
		ID:      result["id"],
		PaperID: paperID,
		Note:    result["note"],
	}

	entry.Percentage, err = strconv.Atoi(result["percentage"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached percentage: %w", err)
	}
	entry.CompletedWords, err = strconv.Atoi(result["completed_words"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached completed words: %w", err)
	}
	entry.DailyTarget, err = strconv.Atoi(result["daily_target"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached daily target: %w", err)
	}
	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, result["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cached timestamp: %w", err)
	}

	return entry, nil
}

// SetLatestProgress stores the latest ledger entry for a paper.
func (c *Cache) SetLatestProgress(ctx context.Context, paperID string, entry *model.ProgressEntry) error {
	key := progressKeyPrefix + paperID

	fields := map[string]any{
		"id":              entry.ID,
		"percentage":      strconv.Itoa(entry.Percentage),
		"completed_words": strconv.Itoa(entry.CompletedWords),
		"daily_target":    strconv.Itoa(entry.DailyTarget),
		"created_at":      entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if entry.Note != "" {
		fields["note"] = entry.Note
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultProgressTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to cache progress entry: %w", err)
	}

	return nil
}

// InvalidateProgress removes a paper's cached entry.
func (c *Cache) InvalidateProgress(ctx context.Context, paperID string) error {
	err := c.client.Del(ctx, progressKeyPrefix+paperID).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate progress cache: %w", err)
	}
	return nil
}
