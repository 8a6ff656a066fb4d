package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/mailer"
	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

// Response messages of the user endpoints.
const (
	MsgRegistered           = "회원가입이 완료되었습니다. 이메일 인증을 진행해주세요."
	MsgRegisteredNoEmail    = "회원가입이 완료되었지만 이메일 서버 문제로 인증 이메일을 발송하지 못했습니다."
	MsgRegisteredNoEmailFix = "관리자에게 문의하여 계정 활성화를 요청하세요."
	MsgEmailVerified        = "이메일 인증이 완료되었습니다. 이제 로그인할 수 있습니다."
	MsgPasswordChanged      = "비밀번호가 성공적으로 변경되었습니다."
	MsgAccountDeleted       = "계정이 성공적으로 삭제되었습니다."
	MsgResetRequested       = "비밀번호 재설정 이메일이 발송되었습니다."
	MsgPasswordReset        = "비밀번호가 성공적으로 재설정되었습니다. 이제 로그인할 수 있습니다."
)

// Email delivery outcome reported by Register.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// Field limits.
const (
	minUsernameLength    = 2
	maxUsernameLength    = 20
	maxDescriptionLength = 50
	minSearchLength      = 2
	defaultSearchLimit   = 10
	maxSearchLimit       = 50
)

// UserStore is the persistence UserService needs. *repository.Repository implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User, passwordHash string) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	SearchUsers(ctx context.Context, term string, limit int, exclude []int64) ([]model.UserInfo, error)
	GetUserPassword(ctx context.Context, userID int64) (*model.UserPassword, error)
	UpdatePassword(ctx context.Context, userID int64, hash string, rehash bool) error
	StoreVerificationToken(ctx context.Context, tok *model.VerificationToken) error
	ConsumeVerificationToken(ctx context.Context, tokenHash string, typ model.TokenType) (int64, error)
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
}

// InvitationCache stores email invitations. *cache.Cache implements it.
type InvitationCache interface {
	StoreInvitation(ctx context.Context, token string, inv *model.EmailInvitation) error
	GetInvitation(ctx context.Context, token string) (*model.EmailInvitation, error)
	DeleteInvitation(ctx context.Context, token string) error
}

// UserConfig holds token lifetimes and the password policy age.
type UserConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	InvitationTTL   time.Duration
	PasswordMaxAge  time.Duration
}

// UserService handles account lifecycle and profile operations.
type UserService struct {
	store       UserStore
	sessions    Sessions
	invitations InvitationCache
	mailer      mailer.Mailer
	composer    *mailer.Composer
	cfg         UserConfig
	logger      *slog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(
	store UserStore,
	sessions Sessions,
	invitations InvitationCache,
	m mailer.Mailer,
	composer *mailer.Composer,
	cfg UserConfig,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:       store,
		sessions:    sessions,
		invitations: invitations,
		mailer:      m,
		composer:    composer,
		cfg:         cfg,
		logger:      logger,
		metrics:     recorder,
		now:         time.Now,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// RegisterResult reports the outcome of a registration.
type RegisterResult struct {
	Message     string `json:"message"`
	EmailStatus string `json:"email_status"`
	Note        string `json:"note,omitempty"`
}

// Register creates an inactive account and emails a verification link.
// A mail failure does not fail the registration.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateNewPassword("password", in.Password, in.ConfirmPassword, "비밀번호가 일치하지 않습니다"); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:    email,
		Username: strings.TrimSpace(in.Username),
		IsActive: false,
	}
	if err := s.store.CreateUser(ctx, user, hash); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(ctx, user.ID, model.TokenEmailVerification, s.cfg.VerificationTTL)
	if err != nil {
		return nil, err
	}

	sent := s.send(ctx, "verification", func() (mailer.Message, error) {
		return s.composer.Verification(user.Email, token)
	})

	s.logger.InfoContext(ctx, "user_registered", "user_id", user.ID, "email_sent", sent)

	if !sent {
		s.metrics.IncRegistration(EmailStatusFailed)
		return &RegisterResult{
			Message:     MsgRegisteredNoEmail,
			EmailStatus: EmailStatusFailed,
			Note:        MsgRegisteredNoEmailFix,
		}, nil
	}

	s.metrics.IncRegistration(EmailStatusSent)
	return &RegisterResult{Message: MsgRegistered, EmailStatus: EmailStatusSent}, nil
}

// VerifyEmail consumes a verification token and activates its account.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.store.ConsumeVerificationToken(ctx, auth.QuickHash(token), model.TokenEmailVerification)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return ErrVerificationInvalid
		}
		return fmt.Errorf("consume token: %w", err)
	}

	if err := s.store.SetUserActive(ctx, userID, true); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	s.forget(ctx, userID)
	return nil
}

// Me returns the current state of the user.
func (s *UserService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput carries optional profile fields.
type UpdateProfileInput struct {
	Username    *string
	Description *string
	ProfileURL  *string
}

// UpdateMe applies profile changes of the user.
func (s *UserService) UpdateMe(ctx context.Context, userID int64, in UpdateProfileInput) (*model.User, error) {
	if in.Username != nil {
		if err := validateUsername(*in.Username); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*in.Username)
		in.Username = &trimmed
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLength {
		return nil, invalid("description", fmt.Sprintf("설명은 %d자 이하여야 합니다.", maxDescriptionLength))
	}

	user, err := s.store.UpdateUser(ctx, userID, model.UserUpdate{
		Username:    in.Username,
		Description: in.Description,
		ProfileURL:  in.ProfileURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.forget(ctx, userID)
	return user, nil
}

// ChangePasswordInput defines input for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	if err := validateNewPassword("new_password", in.NewPassword, in.ConfirmPassword, "새 비밀번호가 일치하지 않습니다"); err != nil {
		return err
	}

	pwd, err := s.store.GetUserPassword(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPasswordNotFound) {
			return ErrWrongPassword
		}
		return fmt.Errorf("get password: %w", err)
	}

	ok, _ := auth.VerifyPassword(in.CurrentPassword, pwd.Hash)
	if !ok {
		return ErrWrongPassword
	}

	if err := s.setPassword(ctx, userID, in.NewPassword); err != nil {
		return err
	}
	s.metrics.IncPasswordChanged("change")
	return nil
}

// PasswordStatus reports how long ago the user changed their password.
func (s *UserService) PasswordStatus(ctx context.Context, userID int64) (PasswordStatus, error) {
	pwd, err := s.store.GetUserPassword(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPasswordNotFound) {
			return PasswordStatus{}, nil
		}
		return PasswordStatus{}, fmt.Errorf("get password: %w", err)
	}
	return passwordStatus(pwd, s.cfg.PasswordMaxAge, s.now()), nil
}

// Delete deactivates the account.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	if err := s.store.SetUserActive(ctx, userID, false); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("deactivate user: %w", err)
	}
	s.forget(ctx, userID)
	s.logger.InfoContext(ctx, "user_deactivated", "user_id", userID)
	return nil
}

// RequestPasswordReset emails a reset link if the address belongs to a user.
// The caller cannot tell whether the address exists.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	token, err := s.issueToken(ctx, user.ID, model.TokenPasswordReset, s.cfg.ResetTTL)
	if err != nil {
		return err
	}

	s.send(ctx, "password_reset", func() (mailer.Message, error) {
		return s.composer.PasswordReset(user.Email, token)
	})
	return nil
}

// ResetPasswordInput defines input for completing a password reset.
type ResetPasswordInput struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// ResetPassword sets a new password using a reset token.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateNewPassword("new_password", in.NewPassword, in.ConfirmPassword, "새 비밀번호가 일치하지 않습니다"); err != nil {
		return err
	}

	userID, err := s.store.ConsumeVerificationToken(ctx, auth.QuickHash(in.Token), model.TokenPasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume token: %w", err)
	}

	if err := s.setPassword(ctx, userID, in.NewPassword); err != nil {
		return err
	}
	s.metrics.IncPasswordChanged("reset")
	return nil
}

// Search finds other active users by email or username.
func (s *UserService) Search(ctx context.Context, callerID int64, query string, limit int) ([]model.UserInfo, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return nil, invalid("query", fmt.Sprintf("검색어는 최소 %d자 이상이어야 합니다.", minSearchLength))
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return nil, invalid("limit", fmt.Sprintf("limit은 1에서 %d 사이여야 합니다.", maxSearchLimit))
	}

	users, err := s.store.SearchUsers(ctx, query, limit, []int64{callerID})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// InviteByEmail sends a group invitation link to an email address.
// Only the owner of the group may invite. It returns the response message.
func (s *UserService) InviteByEmail(ctx context.Context, inviter *model.User, email string, groupID int64) (string, error) {
	if !inviter.IsGroupOwner {
		return "", ErrNotGroupOwner
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return "", ErrGroupNotFound
		}
		return "", fmt.Errorf("get group: %w", err)
	}
	if !group.IsOwner(inviter.ID) {
		return "", ErrNotGroupOwner
	}

	token, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.invitations.StoreInvitation(ctx, token.Hash, &model.EmailInvitation{
		GroupID:   group.ID,
		Email:     email,
		InvitedBy: inviter.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.InvitationTTL),
	}); err != nil {
		return "", fmt.Errorf("store invitation: %w", err)
	}

	sent := s.send(ctx, "invitation", func() (mailer.Message, error) {
		return s.composer.Invitation(email, inviter.Username, group.Name, token.Plaintext)
	})
	s.metrics.IncInvitation("email")
	s.logger.InfoContext(ctx, "email_invitation_created",
		"group_id", group.ID,
		"invited_by", inviter.ID,
		"email_sent", sent,
	)

	return fmt.Sprintf("%s에게 초대 이메일이 발송되었습니다.", email), nil
}

func (s *UserService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash, false); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// issueToken stores the hash of a new single-use token and returns its plaintext.
func (s *UserService) issueToken(ctx context.Context, userID int64, typ model.TokenType, ttl time.Duration) (string, error) {
	token, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.store.StoreVerificationToken(ctx, &model.VerificationToken{
		TokenHash: token.Hash,
		UserID:    userID,
		Type:      typ,
		ExpiresAt: s.now().Add(ttl),
	}); err != nil {
		return "", fmt.Errorf("store %s token: %w", typ, err)
	}
	return token.Plaintext, nil
}

// send composes and delivers a message, reporting whether it went out.
func (s *UserService) send(ctx context.Context, kind string, compose func() (mailer.Message, error)) bool {
	msg, err := compose()
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "email not sent", "kind", kind, "error", err)
		s.metrics.IncEmailSent(kind, "failed")
		return false
	}
	s.metrics.IncEmailSent(kind, "sent")
	return true
}

func (s *UserService) forget(ctx context.Context, userID int64) {
	if err := s.sessions.DeleteUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to evict cached user", "user_id", userID, "error", err)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", invalid("email", "올바른 이메일 주소가 아닙니다.")
	}
	return email, nil
}

func validateUsername(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minUsernameLength || n > maxUsernameLength {
		return invalid("username", fmt.Sprintf("사용자 이름은 %d자 이상 %d자 이하여야 합니다.", minUsernameLength, maxUsernameLength))
	}
	return nil
}

func validateNewPassword(field, password, confirm, mismatch string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return invalid(field, err.Error())
	}
	if password != confirm {
		return invalid("confirm_password", mismatch)
	}
	return nil
}
