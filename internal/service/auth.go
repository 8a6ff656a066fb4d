package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aichatbot/chatbot-api/internal/audit"
	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

// Credentials reads the account data needed to log a user in.
type Credentials interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserPassword(ctx context.Context, userID int64) (*model.UserPassword, error)
	UpdatePassword(ctx context.Context, userID int64, hash string, rehash bool) error
}

// Sessions holds revoked tokens and cached users. *cache.Cache implements it.
type Sessions interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// PasswordStatus describes how old the current password is.
type PasswordStatus struct {
	DaysSinceChange int        `json:"days_since_change"`
	ChangeRequired  bool       `json:"change_required"`
	LastChanged     *time.Time `json:"last_changed"`
}

func passwordStatus(p *model.UserPassword, maxAge time.Duration, now time.Time) PasswordStatus {
	if p == nil {
		return PasswordStatus{}
	}
	days := p.DaysSinceChange(now)
	changed := p.UpdatedAt
	return PasswordStatus{
		DaysSinceChange: days,
		ChangeRequired:  days >= int(maxAge/(24*time.Hour)),
		LastChanged:     &changed,
	}
}

// AuthService handles login, logout and bearer token authentication.
type AuthService struct {
	users          Credentials
	sessions       Sessions
	tokens         *auth.TokenManager
	logins         audit.Recorder
	passwordMaxAge time.Duration
	logger         *slog.Logger
	metrics        metrics.Recorder
	now            func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users Credentials,
	sessions Sessions,
	tokens *auth.TokenManager,
	logins audit.Recorder,
	passwordMaxAge time.Duration,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		tokens:         tokens,
		logins:         logins,
		passwordMaxAge: passwordMaxAge,
		logger:         logger,
		metrics:        recorder,
		now:            time.Now,
	}
}

// Tokens returns the token manager used to sign access tokens.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokens
}

// LoginInput defines input for a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is a successful login.
type LoginResult struct {
	Token          *auth.IssuedToken
	User           *model.User
	PasswordStatus PasswordStatus
}

// Login verifies credentials and issues an access token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	pwd, err := s.users.GetUserPassword(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPasswordNotFound) {
			s.metrics.IncLogin("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup password: %w", err)
	}

	ok, err := auth.VerifyPassword(in.Password, pwd.Hash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.metrics.IncLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.metrics.IncLogin("disabled")
		return nil, ErrAccountDisabled
	}

	if auth.NeedsRehash(pwd.Hash) {
		s.upgradeHash(ctx, user.ID, in.Password)
	}

	now := s.now()
	status := passwordStatus(pwd, s.passwordMaxAge, now)

	token, err := s.tokens.Issue(user.ID, user.Email, status.ChangeRequired)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logins.RecordLogin(ctx, model.LoginEvent{
		UserID:     user.ID,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		LoggedInAt: now,
	})

	if err := s.sessions.SetUser(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to cache user", "user_id", user.ID, "error", err)
	}

	s.metrics.IncLogin("success")
	return &LoginResult{Token: token, User: user, PasswordStatus: status}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to rehash password", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, true); err != nil {
		s.logger.WarnContext(ctx, "failed to store rehashed password", "user_id", userID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "user_id", userID)
}

// Logout revokes the token so it cannot be used again before it expires.
// A missing or invalid token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}

	ttl := s.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	if err := s.sessions.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to the active user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	revoked, err := s.sessions.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		// Denylist errors fail open.
		s.logger.WarnContext(ctx, "token denylist unavailable", "error", err)
	}
	if revoked {
		return nil, ErrTokenInvalid
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return &model.AuthContext{
		User:                   user,
		TokenID:                claims.ID,
		ExpiresAt:              claims.ExpiresAt.Time,
		PasswordChangeRequired: claims.PasswordChangeRequired,
	}, nil
}

func (s *AuthService) loadUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.sessions.GetUser(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "user cache unavailable", "error", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := s.sessions.SetUser(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "failed to cache user", "user_id", id, "error", err)
	}
	return user, nil
}
