// Package audit records login history through a Redis stream.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
)

const (
	// StreamKey is the Redis stream for login events.
	StreamKey = "stream:login_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:login_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 200 * time.Millisecond

	maxUserAgentLength = 500
)

// LoginEventPayload is the compact event format for the Redis stream.
type LoginEventPayload struct {
	UserID     int64  `json:"uid"`
	IPAddress  string `json:"ip,omitempty"`
	UserAgent  string `json:"ua,omitempty"`
	LoggedInAt int64  `json:"t"` // Unix milliseconds
}

// Recorder records successful logins.
type Recorder interface {
	RecordLogin(ctx context.Context, ev model.LoginEvent)
}

// Store writes login events directly.
type Store interface {
	CreateLoginHistory(ctx context.Context, ev *model.LoginEvent) error
}

// Publisher enqueues login events to the Redis stream and falls back to a
// direct insert when Redis is unavailable.
type Publisher struct {
	redis   *redis.Client
	store   Store
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new login event publisher.
func NewPublisher(client *redis.Client, store Store, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		store:   store,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Publish adds a login event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event LoginEventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// RecordLogin publishes the event, inserting it directly if the stream is
// unreachable. It never fails the login.
func (p *Publisher) RecordLogin(ctx context.Context, ev model.LoginEvent) {
	payload := PayloadFromEvent(ev)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	streamID, err := p.Publish(pubCtx, payload)
	if err == nil {
		p.logger.DebugContext(ctx, "login event published", "user_id", ev.UserID, "stream_id", streamID)
		p.metrics.IncAuditEventPublished("success")
		return
	}

	p.logger.WarnContext(ctx, "failed to publish login event, writing directly",
		"user_id", ev.UserID,
		"error", err,
	)

	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if err := p.store.CreateLoginHistory(context.WithoutCancel(ctx), &ev); err != nil {
		p.logger.ErrorContext(ctx, "failed to record login", "user_id", ev.UserID, "error", err)
		p.metrics.IncAuditEventPublished("dropped")
		return
	}
	p.metrics.IncAuditEventPublished("fallback")
}

// DirectRecorder writes login events straight to the store. It is used when
// the audit worker is disabled.
type DirectRecorder struct {
	store  Store
	logger *slog.Logger
}

// NewDirectRecorder creates a DirectRecorder.
func NewDirectRecorder(store Store, logger *slog.Logger) *DirectRecorder {
	return &DirectRecorder{store: store, logger: logger}
}

// RecordLogin inserts the event, logging failures.
func (d *DirectRecorder) RecordLogin(ctx context.Context, ev model.LoginEvent) {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if err := d.store.CreateLoginHistory(context.WithoutCancel(ctx), &ev); err != nil {
		d.logger.ErrorContext(ctx, "failed to record login", "user_id", ev.UserID, "error", err)
	}
}

// PayloadFromEvent converts a login event to its stream payload.
func PayloadFromEvent(ev model.LoginEvent) LoginEventPayload {
	at := ev.LoggedInAt
	if at.IsZero() {
		at = time.Now()
	}
	return LoginEventPayload{
		UserID:     ev.UserID,
		IPAddress:  ev.IPAddress,
		UserAgent:  TruncateUserAgent(ev.UserAgent),
		LoggedInAt: at.UnixMilli(),
	}
}

// TruncateUserAgent truncates user agent to max 500 chars.
func TruncateUserAgent(ua string) string {
	if len(ua) > maxUserAgentLength {
		return ua[:maxUserAgentLength]
	}
	return ua
}
