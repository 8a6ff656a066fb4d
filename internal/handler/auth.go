package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/middleware"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const (
	msgLoggedOut       = "로그아웃 되었습니다"
	msgLoginFormFields = "username과 password 필드가 필요합니다."
)

// Authenticator is the part of service.AuthService the login endpoints use.
type Authenticator interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// CookieConfig controls the access_token cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles login and logout.
type AuthHandler struct {
	svc    Authenticator
	cookie CookieConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc Authenticator, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, logger: logger}
}

// Login handles POST /api/auth/login.
// The body is an OAuth2 password form: username carries the email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, msgLoginFormFields)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, msgLoginFormFields)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:     email,
		Password:  password,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "Bearer " + res.Token.Token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		AccessToken: res.Token.Token,
		TokenType:   auth.TokenType,
		User:        res.User.Out(),
		PasswordAge: res.PasswordStatus,
	})
}

// Logout handles POST /api/auth/logout.
// The presented token is revoked when there is one; the cookie is always cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, msgLoggedOut)
}
