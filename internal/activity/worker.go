package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftline/draftline/internal/metrics"
	"github.com/draftline/draftline/internal/repository"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "activity_rollup"

	// DefaultBatchSize is how many events to read per iteration.
	DefaultBatchSize = 100

	// DefaultBlockTimeout is how long XREADGROUP blocks waiting for events.
	DefaultBlockTimeout = 5 * time.Second

	// ClaimMinIdle is how long a pending message must be idle before
	// another consumer may claim it.
	ClaimMinIdle = 30 * time.Second

	// MaxProcessAttempts before giving up on a database batch.
	MaxProcessAttempts = 3

	queueDepthInterval = 10 * time.Second
)

// Store persists aggregated activity batches.
type Store interface {
	UpsertDailyActivity(ctx context.Context, rollups []repository.ActivityRollup) error
}

// Worker consumes activity events from the Redis stream and folds them
// into per-day aggregates.
type Worker struct {
	redis      *redis.Client
	store      Store
	logger     *slog.Logger
	metrics    metrics.Recorder
	consumerID string

	batchSize    int64
	blockTimeout time.Duration

	draining atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	lastDepthUpdate time.Time
}

// NewWorker creates an activity rollup worker.
func NewWorker(client *redis.Client, store Store, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:        client,
		store:        store,
		logger:       logger.With("component", "activity.worker"),
		metrics:      recorder,
		consumerID:   NewConsumerID(),
		batchSize:    DefaultBatchSize,
		blockTimeout: DefaultBlockTimeout,
		done:         make(chan struct{}),
	}
}

// Run processes events until the context is cancelled or Shutdown is
// called. It blocks; run it in a goroutine.
func (w *Worker) Run(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		w.logger.Error("failed to create consumer group", "error", err)
		return
	}

	w.logger.Info("activity worker started", "consumer_id", w.consumerID)

	for {
		if ctx.Err() != nil || w.draining.Load() {
			w.logger.Info("activity worker stopping")
			return
		}

		messages, err := w.readBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Warn("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if len(messages) == 0 {
			// Idle; take the chance to reclaim stuck messages.
			claimed, err := w.maybeClaimPending(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.Warn("failed to claim pending messages", "error", err)
			}
			messages = claimed
		}

		if len(messages) > 0 {
			w.processMessages(ctx, messages)
		}

		w.maybeUpdateQueueDepth(ctx)
	}
}

// Shutdown stops the worker and waits for the in-flight batch to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.draining.Store(true)
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    w.batchSize,
		Block:    w.blockTimeout,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []redis.XMessage
	for _, stream := range streams {
		messages = append(messages, stream.Messages...)
	}
	return messages, nil
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	messages, _, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  ClaimMinIdle,
		Start:    "0-0",
		Count:    w.batchSize,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return messages, err
}

// processMessages parses, aggregates and persists a batch, then acks.
// Unparseable messages are dead-lettered and acked so they never block
// the group.
func (w *Worker) processMessages(ctx context.Context, messages []redis.XMessage) {
	events, ackIDs := w.parseMessages(ctx, messages)

	if len(events) > 0 {
		rollups := Aggregate(events)
		if err := w.processBatchWithRetry(ctx, rollups); err != nil {
			w.logger.Error("failed to persist activity batch",
				"events", len(events),
				"error", err,
			)
			// Leave unacked; another consumer will reclaim.
			return
		}
	}

	w.ackMessages(ctx, ackIDs)
}

func (w *Worker) parseMessages(ctx context.Context, messages []redis.XMessage) ([]EventPayload, []string) {
	events := make([]EventPayload, 0, len(messages))
	ackIDs := make([]string, 0, len(messages))

	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			w.deadLetter(ctx, msg, "missing payload field")
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		var event EventPayload
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			w.deadLetter(ctx, msg, "invalid json: "+err.Error())
			ackIDs = append(ackIDs, msg.ID)
			continue
		}
		if err := ValidatePayload(event); err != nil {
			w.deadLetter(ctx, msg, err.Error())
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		events = append(events, event)
		ackIDs = append(ackIDs, msg.ID)
	}

	return events, ackIDs
}

// Aggregate groups events into one rollup per UTC day.
func Aggregate(events []EventPayload) []repository.ActivityRollup {
	byDay := make(map[time.Time]*repository.ActivityRollup)
	seen := make(map[time.Time]map[string]bool)

	for _, event := range events {
		day := time.UnixMilli(event.OccurredAt).UTC().Truncate(24 * time.Hour)

		rollup, ok := byDay[day]
		if !ok {
			rollup = &repository.ActivityRollup{Day: day}
			byDay[day] = rollup
			seen[day] = make(map[string]bool)
		}

		rollup.Entries++
		rollup.WordsAdded += event.WordsDelta
		if !seen[day][event.UserID] {
			seen[day][event.UserID] = true
			rollup.UserIDs = append(rollup.UserIDs, event.UserID)
		}
	}

	out := make([]repository.ActivityRollup, 0, len(byDay))
	for _, rollup := range byDay {
		out = append(out, *rollup)
	}
	return out
}

func (w *Worker) processBatchWithRetry(ctx context.Context, rollups []repository.ActivityRollup) error {
	var err error
	for attempt := 0; attempt < MaxProcessAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = w.store.UpsertDailyActivity(ctx, rollups); err == nil {
			return nil
		}
		w.logger.Warn("activity batch insert failed",
			"attempt", attempt+1,
			"error", err,
		)
	}
	return err
}

func (w *Worker) ackMessages(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		w.logger.Warn("failed to ack messages", "count", len(ids), "error", err)
	}
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	w.logger.Warn("dead-lettering activity message", "id", msg.ID, "reason", reason)
	w.metrics.IncActivityDropped()

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id": msg.ID,
			"reason":      reason,
			"payload":     msg.Values["payload"],
		},
	}).Err()
	if err != nil {
		w.logger.Error("failed to write dead letter", "id", msg.ID, "error", err)
	}
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if time.Since(w.lastDepthUpdate) < queueDepthInterval {
		return
	}
	w.lastDepthUpdate = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetActivityQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}
