package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aichatbot/chatbot-api/internal/cache"
	"github.com/aichatbot/chatbot-api/internal/metrics"
)

// bucketLimiter allows the first n calls per IP.
type bucketLimiter struct {
	n     int
	calls map[string]int
	err   error
}

func (b *bucketLimiter) CheckLoginRateLimit(_ context.Context, ip string, _ float64, _ int) (*cache.RateLimitResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.calls == nil {
		b.calls = map[string]int{}
	}
	b.calls[ip]++
	remaining := int64(b.n - b.calls[ip])
	if remaining < 0 {
		return &cache.RateLimitResult{Allowed: false, ResetAt: time.Now().Add(time.Second), RetryAfter: 1500 * time.Millisecond}, nil
	}
	return &cache.RateLimitResult{Allowed: true, Remaining: remaining, ResetAt: time.Now().Add(time.Second)}, nil
}

func TestRateLimitLogin(t *testing.T) {
	limiter := &bucketLimiter{n: 2}
	rec := metrics.NewInMemory()
	handler := RateLimitLogin(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Metrics: rec,
		Enabled: true,
		RPS:     1,
		Burst:   2,
	})(okHandler())

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":51234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, do("198.51.100.1").Code)

	blocked := do("198.51.100.1")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "2", blocked.Header().Get("Retry-After"))
	assert.Equal(t, "로그인 시도가 너무 많습니다. 2초 후에 다시 시도해주세요.", decodeDetail(t, blocked))

	// Buckets are per client IP.
	assert.Equal(t, http.StatusOK, do("198.51.100.2").Code)
	assert.Equal(t, 1.0, rec.Snapshot().Counter("logins_total", `status="rate_limited"`))
}

func TestRateLimitLoginFailOpen(t *testing.T) {
	handler := RateLimitLogin(RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: &bucketLimiter{err: errors.New("redis down")},
		Enabled: true,
		RPS:     1,
		Burst:   1,
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitLoginDisabled(t *testing.T) {
	limiter := &bucketLimiter{n: 0}
	handler := RateLimitLogin(RateLimitConfig{Logger: discardLogger(), Limiter: limiter})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, limiter.calls)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		xff     string
		realIP  string
		remote  string
		want    string
	}{
		{"forwarded chain", "203.0.113.9, 10.0.0.1", "", "10.0.0.2:80", "203.0.113.9"},
		{"real ip", "", "203.0.113.10", "10.0.0.2:80", "203.0.113.10"},
		{"remote addr", "", "", "192.0.2.4:5555", "192.0.2.4"},
		{"remote without port", "", "", "192.0.2.5", "192.0.2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
