package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
)

const (
	// ConsumerGroup is shared by every API instance draining the stream.
	ConsumerGroup = "login_audit_workers"

	DefaultBatchSize    = 200
	DefaultBlockTimeout = 5 * time.Second
	DefaultMaxAttempts  = 3

	// DefaultClaimIdle is how long a delivered event may stay unacked before
	// another consumer takes it over.
	DefaultClaimIdle = 30 * time.Second

	claimEvery    = 10 * time.Second
	depthEvery    = 5 * time.Second
	errorCooldown = time.Second
	deadLetterCap = 10000
)

// Repository persists batches of login events.
type Repository interface {
	BulkInsertLoginHistory(ctx context.Context, events []model.LoginEvent) error
}

// Worker drains the login event stream into login history.
type Worker struct {
	rdb      *redis.Client
	repo     Repository
	log      *slog.Logger
	metrics  metrics.Recorder
	consumer string

	batchSize    int
	blockTimeout time.Duration
	maxAttempts  int
	retryBase    time.Duration
	claimIdle    time.Duration

	claimCursor string
	nextClaim   time.Time
	nextDepth   time.Time

	mu      sync.Mutex
	closed  bool
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewWorker creates a worker reading as consumer within ConsumerGroup.
func NewWorker(client *redis.Client, repo Repository, logger *slog.Logger, consumer string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		rdb:          client,
		repo:         repo,
		log:          logger.With("component", "audit.worker", "consumer_id", consumer),
		metrics:      recorder,
		consumer:     consumer,
		batchSize:    DefaultBatchSize,
		blockTimeout: DefaultBlockTimeout,
		maxAttempts:  DefaultMaxAttempts,
		retryBase:    time.Second,
		claimIdle:    DefaultClaimIdle,
		claimCursor:  "0-0",
	}
}

// SetBlockTimeout overrides DefaultBlockTimeout. Non-positive values are ignored.
func (w *Worker) SetBlockTimeout(d time.Duration) {
	if d > 0 {
		w.blockTimeout = d
	}
}

// SetClaimIdle overrides DefaultClaimIdle.
func (w *Worker) SetClaimIdle(d time.Duration) {
	if d > 0 {
		w.claimIdle = d
	}
}

// Run consumes the stream until ctx is canceled or Shutdown is called.
// After Shutdown it returns immediately.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	if w.stopped != nil {
		w.mu.Unlock()
		return errors.New("audit worker already running")
	}
	ctx, w.stop = context.WithCancel(ctx)
	w.stopped = make(chan struct{})
	done := w.stopped
	w.mu.Unlock()
	defer close(done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}
	w.log.Info("audit worker started")

	for ctx.Err() == nil {
		err := w.processOnce(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}
		w.log.Error("audit pass failed", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(errorCooldown):
		}
	}

	w.log.Info("audit worker stopped")
	return nil
}

// Shutdown stops Run and waits for it to return. It implements
// server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	stop, stopped := w.stop, w.stopped
	w.mu.Unlock()
	if stopped == nil {
		return nil
	}

	stop()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		w.log.Warn("audit worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce handles one batch: reclaimed events first, new ones otherwise.
// A batch whose insert keeps failing stays pending for a later reclaim.
func (w *Worker) processOnce(ctx context.Context) error {
	now := time.Now()
	if !now.Before(w.nextDepth) {
		w.nextDepth = now.Add(depthEvery)
		w.reportDepth(ctx)
	}

	var msgs []redis.XMessage
	if !now.Before(w.nextClaim) {
		w.nextClaim = now.Add(claimEvery)
		var err error
		if msgs, err = w.reclaim(ctx); err != nil {
			w.log.Warn("reclaim pending events", "error", err)
		}
	}
	if len(msgs) == 0 {
		var err error
		if msgs, err = w.readBatch(ctx); err != nil {
			return err
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	b := w.decode(ctx, msgs)
	if len(b.events) > 0 {
		if err := w.persist(ctx, b.events); err != nil {
			return err
		}
	}
	if err := w.rdb.XAck(ctx, StreamKey, ConsumerGroup, b.ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	res, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("xreadgroup: %w", err)
	case len(res) == 0:
		return nil, nil
	}
	return res[0].Messages, nil
}

func (w *Worker) reclaim(ctx context.Context) ([]redis.XMessage, error) {
	msgs, cursor, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumer,
		MinIdle:  w.claimIdle,
		Start:    w.claimCursor,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if cursor != "" {
		w.claimCursor = cursor
	}
	return msgs, nil
}

func (w *Worker) reportDepth(ctx context.Context) {
	groups, err := w.rdb.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			w.log.Warn("read stream group info", "error", err)
		}
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetAuditQueueDepth(g.Pending + g.Lag)
			return
		}
	}
}

// batch pairs the stream ids to ack with the events that decoded cleanly.
type batch struct {
	ids    []string
	events []model.LoginEvent
}

// decode turns stream entries into login events. The stream id becomes the
// event id so a redelivered entry is inserted once. Entries that cannot be
// decoded go to the dead-letter stream but are still acked.
func (w *Worker) decode(ctx context.Context, msgs []redis.XMessage) batch {
	b := batch{
		ids:    make([]string, 0, len(msgs)),
		events: make([]model.LoginEvent, 0, len(msgs)),
	}
	for _, msg := range msgs {
		b.ids = append(b.ids, msg.ID)

		ev, reason, err := eventFromMessage(msg)
		if err != nil {
			w.deadLetter(ctx, msg, reason, err)
			continue
		}
		b.events = append(b.events, ev)
	}
	return b
}

func eventFromMessage(msg redis.XMessage) (model.LoginEvent, string, error) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return model.LoginEvent{}, "invalid_format", errors.New("payload field missing or not a string")
	}
	var p LoginEventPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.LoginEvent{}, "unmarshal_error", err
	}
	if err := ValidateLoginEventPayload(p); err != nil {
		return model.LoginEvent{}, "validation_error", err
	}
	return model.LoginEvent{
		ID:         msg.ID,
		UserID:     p.UserID,
		IPAddress:  p.IPAddress,
		UserAgent:  p.UserAgent,
		LoggedInAt: time.UnixMilli(p.LoggedInAt),
	}, "", nil
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason string, cause error) {
	w.log.Warn("dead-lettering login event", "message_id", msg.ID, "reason", reason, "error", cause)
	w.metrics.IncAuditEventProcessed("dead_lettered")

	err := w.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: deadLetterCap,
		Approx: true,
		Values: map[string]any{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           cause.Error(),
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.log.Error("write dead-letter entry", "message_id", msg.ID, "error", err)
	}
}

// persist inserts events, retrying with exponential backoff up to maxAttempts.
func (w *Worker) persist(ctx context.Context, events []model.LoginEvent) error {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		start := time.Now()
		if err = w.repo.BulkInsertLoginHistory(ctx, events); err == nil {
			elapsed := time.Since(start)
			w.log.Info("login events stored", "events_count", len(events), "duration_ms", elapsed.Milliseconds())
			w.metrics.ObserveAuditBatchSize(len(events))
			w.metrics.ObserveAuditBatchDuration(elapsed)
			for range events {
				w.metrics.IncAuditEventProcessed("success")
			}
			return nil
		}
		if attempt == w.maxAttempts {
			break
		}

		backoff := w.retryBase << attempt
		w.log.Warn("store login events failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	for range events {
		w.metrics.IncAuditEventProcessed("failed")
	}
	return fmt.Errorf("bulk insert login history: %w", err)
}
