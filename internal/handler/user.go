package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

// UserService is the account surface used by UserHandler.
// *service.UserService implements it.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	VerifyEmail(ctx context.Context, token string) error
	Me(ctx context.Context, userID int64) (*model.User, error)
	UpdateMe(ctx context.Context, userID int64, in service.UpdateProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID int64, in service.ChangePasswordInput) error
	PasswordStatus(ctx context.Context, userID int64) (service.PasswordStatus, error)
	Delete(ctx context.Context, userID int64) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) error
	Search(ctx context.Context, callerID int64, query string, limit int) ([]model.UserInfo, error)
	InviteByEmail(ctx context.Context, inviter *model.User, email string, groupID int64) (string, error)
}

// UserHandler handles /api/users endpoints.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Register handles POST /api/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// VerifyEmail handles POST /api/users/verify-email.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, service.MsgEmailVerified)
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateMe(r.Context(), currentUserID(r), service.UpdateProfileInput{
		Username:    req.Username,
		Description: req.Description,
		ProfileURL:  req.ProfileURL,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles PUT /api/users/me/password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.ChangePassword(r.Context(), currentUserID(r), service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, service.MsgPasswordChanged)
}

// PasswordStatus handles GET /api/users/me/password-status.
func (h *UserHandler) PasswordStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.PasswordStatus(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Delete handles DELETE /api/users/me. The account is deactivated, not removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), currentUserID(r)); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, service.MsgAccountDeleted)
}

// RequestPasswordReset handles POST /api/users/reset-password/request.
// The answer is the same whether or not the email is registered.
func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, service.MsgResetRequested)
}

// ResetPassword handles POST /api/users/reset-password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.ResetPassword(r.Context(), service.ResetPasswordInput{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, service.MsgPasswordReset)
}

// Search handles GET /api/users/search?query=&limit=.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "limit 값이 올바르지 않습니다.")
			return
		}
		limit = parsed
	}

	users, err := h.svc.Search(r.Context(), currentUserID(r), q.Get("query"), limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Invite handles POST /api/users/invite?email=&group_id=.
func (h *UserHandler) Invite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groupID, err := strconv.ParseInt(q.Get("group_id"), 10, 64)
	if err != nil || groupID <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "group_id 값이 올바르지 않습니다.")
		return
	}

	msg, err := h.svc.InviteByEmail(r.Context(), auth.UserFromContext(r.Context()), q.Get("email"), groupID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, msg)
}

// currentUserID returns the authenticated user's id. Routes using it sit
// behind the Auth middleware.
func currentUserID(r *http.Request) int64 {
	return auth.MustAuthFromContext(r.Context()).UserID()
}
