package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const (
	msgUserActivated   = "사용자 계정이 활성화되었습니다."
	msgUserDeactivated = "사용자 계정이 비활성화되었습니다."
	msgEmailRequired   = "email 쿼리 파라미터가 필요합니다."
)

// AdminUserStore defines the storage operations used by the admin endpoints.
type AdminUserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	CountLogins(ctx context.Context, userID int64) (int64, error)
	ListAPIKeysByUserID(ctx context.Context, userID int64) ([]*model.APIKey, error)
}

// UserCache drops cached user records after an admin change.
type UserCache interface {
	DeleteUser(ctx context.Context, id int64) error
}

// AdminHandler provides admin-only endpoints for account support.
type AdminHandler struct {
	store   AdminUserStore
	cache   UserCache
	version string
	started time.Time
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminUserStore, cache UserCache, version string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		store:   store,
		cache:   cache,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

// AdminUserResponse is a user with support details.
type AdminUserResponse struct {
	model.UserOut
	LoginCount  int64 `json:"login_count"`
	APIKeyCount int   `json:"api_key_count"`
}

// LookupUser handles GET /api/admin/users?email=
func (h *AdminHandler) LookupUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, msgEmailRequired)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			err = service.ErrUserNotFound
		}
		handleServiceError(w, r, h.logger, err)
		return
	}

	logins, err := h.store.CountLogins(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	keys, err := h.store.ListAPIKeysByUserID(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminUserResponse{
		UserOut:     user.Out(),
		LoginCount:  logins,
		APIKeyCount: len(keys),
	})
}

// Activate handles PUT /api/admin/users/{id}/activate.
// Used for accounts whose verification email could not be delivered.
func (h *AdminHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles PUT /api/admin/users/{id}/deactivate.
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.SetUserActive(r.Context(), id, active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			err = service.ErrUserNotFound
		}
		handleServiceError(w, r, h.logger, err)
		return
	}
	if err := h.cache.DeleteUser(r.Context(), id); err != nil {
		h.logger.Warn("user cache invalidation failed",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	h.logger.Info("user active state changed",
		slog.Int64("user_id", id),
		slog.Bool("active", active),
	)

	msg := msgUserDeactivated
	if active {
		msg = msgUserActivated
	}
	writeMessage(w, msg)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "chatbot-api",
		Version:   h.version,
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
	})
}
