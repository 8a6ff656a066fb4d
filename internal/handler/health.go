package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aichatbot/chatbot-api/internal/handler/dto"
)

const pingTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// MailStatus reports whether the mail server answered the last probe.
type MailStatus interface {
	Available() bool
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
	mail  MailStatus
}

// NewHealthHandler creates a new HealthHandler.
// Any dependency may be nil when it is not configured.
func NewHealthHandler(db, cache HealthChecker, mail MailStatus) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, mail: mail}
}

// HealthResponse represents the probe response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports the server, database and mail server state. It always answers 200;
// clients read the booleans.
//
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, dto.HealthStatus{
		Status: dto.HealthComponents{
			Server:      true,
			Database:    h.db != nil && h.db.Ping(ctx) == nil,
			EmailServer: h.mail != nil && h.mail.Available(),
		},
	})
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if PostgreSQL and Redis are reachable. The mail server is
// not required: registration degrades to a note when mail is down.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	probe := func(name string, c HealthChecker) {
		if c == nil {
			checks[name] = "not configured"
			return
		}
		if err := c.Ping(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	probe("postgres", h.db)
	probe("redis", h.cache)

	if h.mail != nil && h.mail.Available() {
		checks["smtp"] = "ok"
	} else {
		checks["smtp"] = "unavailable"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
}
