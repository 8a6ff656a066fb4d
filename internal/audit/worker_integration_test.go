//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/testutil"
)

type fakeRepo struct {
	mu       sync.Mutex
	events   []model.LoginEvent
	inserted []model.LoginEvent
	failures int
}

func (f *fakeRepo) BulkInsertLoginHistory(_ context.Context, events []model.LoginEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("database unavailable")
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeRepo) CreateLoginHistory(_ context.Context, ev *model.LoginEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, *ev)
	return nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	opts, err := redis.ParseURL(testutil.RedisURL(t))
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, testutil.FlushRedis(context.Background(), client))
	return client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_ProcessOnce(t *testing.T) {
	client := newRedis(t)
	repo := &fakeRepo{}
	rec := metrics.NewInMemory()
	ctx := context.Background()

	pub := NewPublisher(client, repo, discardLogger(), rec)
	w := NewWorker(client, repo, discardLogger(), "test-consumer", rec)
	w.SetBlockTimeout(100 * time.Millisecond)
	require.NoError(t, w.ensureConsumerGroup(ctx))

	for i := 1; i <= 3; i++ {
		pub.RecordLogin(ctx, model.LoginEvent{UserID: int64(i), IPAddress: "192.0.2.1", LoggedInAt: time.Now()})
	}

	require.NoError(t, w.processOnce(ctx))
	assert.Equal(t, 3, repo.count())
	assert.Empty(t, repo.inserted, "publisher should not fall back while redis is up")

	for _, ev := range repo.events {
		assert.NotEmpty(t, ev.ID, "stream id becomes event id")
	}

	pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	snap := rec.Snapshot()
	assert.Equal(t, float64(3), snap.Counter("audit_events_published_total", `status="success"`))
	assert.Equal(t, float64(3), snap.Counter("audit_events_processed_total", `status="success"`))
}

func TestWorker_DeadLettersPoisonMessages(t *testing.T) {
	client := newRedis(t)
	repo := &fakeRepo{}
	ctx := context.Background()

	w := NewWorker(client, repo, discardLogger(), "test-consumer", nil)
	w.SetBlockTimeout(100 * time.Millisecond)
	require.NoError(t, w.ensureConsumerGroup(ctx))

	bad, _ := json.Marshal(LoginEventPayload{UserID: 0, LoggedInAt: 1})
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey, Values: map[string]interface{}{"payload": string(bad)}}).Err())
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: StreamKey, Values: map[string]interface{}{"payload": "{not json"}}).Err())

	require.NoError(t, w.processOnce(ctx))
	assert.Zero(t, repo.count())

	dlq, err := client.XLen(ctx, DeadLetterStreamKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), dlq)

	pending, err := client.XPending(ctx, StreamKey, ConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count, "poison messages are acked")
}

func TestWorker_RetriesFailedBatch(t *testing.T) {
	client := newRedis(t)
	repo := &fakeRepo{failures: 1}
	ctx := context.Background()

	w := NewWorker(client, repo, discardLogger(), "test-consumer", nil)
	w.SetBlockTimeout(100 * time.Millisecond)
	w.retryBase = time.Millisecond
	require.NoError(t, w.ensureConsumerGroup(ctx))

	_, err := NewPublisher(client, repo, discardLogger(), nil).Publish(ctx, LoginEventPayload{UserID: 5, LoggedInAt: time.Now().UnixMilli()})
	require.NoError(t, err)

	require.NoError(t, w.processOnce(ctx))
	assert.Equal(t, 1, repo.count())
}

func TestWorker_ReclaimsIdleMessages(t *testing.T) {
	client := newRedis(t)
	repo := &fakeRepo{}
	ctx := context.Background()

	stalled := NewWorker(client, repo, discardLogger(), "stalled", nil)
	require.NoError(t, stalled.ensureConsumerGroup(ctx))

	_, err := NewPublisher(client, repo, discardLogger(), nil).Publish(ctx, LoginEventPayload{UserID: 9, LoggedInAt: time.Now().UnixMilli()})
	require.NoError(t, err)

	// Read without acking to leave the message pending on "stalled".
	stalled.SetBlockTimeout(100 * time.Millisecond)
	msgs, err := stalled.readBatch(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	w := NewWorker(client, repo, discardLogger(), "rescuer", nil)
	w.SetClaimIdle(time.Millisecond)
	w.SetBlockTimeout(100 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, w.processOnce(ctx))
	assert.Equal(t, 1, repo.count())
}

func TestPublisher_FallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	repo := &fakeRepo{}
	rec := metrics.NewInMemory()

	NewPublisher(client, repo, discardLogger(), rec).RecordLogin(context.Background(), model.LoginEvent{UserID: 3})

	require.Len(t, repo.inserted, 1)
	assert.NotEmpty(t, repo.inserted[0].ID)
	assert.Equal(t, float64(1), rec.Snapshot().Counter("audit_events_published_total", `status="fallback"`))
}

func TestWorker_RunAndShutdown(t *testing.T) {
	client := newRedis(t)
	repo := &fakeRepo{}

	w := NewWorker(client, repo, discardLogger(), "runner", nil)
	w.SetBlockTimeout(50 * time.Millisecond)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(context.Background()) }()

	_, err := NewPublisher(client, repo, discardLogger(), nil).Publish(context.Background(), LoginEventPayload{UserID: 1, LoggedInAt: time.Now().UnixMilli()})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return repo.count() == 1 }, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))
	require.NoError(t, <-errCh)
}
