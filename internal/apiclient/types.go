package apiclient

import (
	"time"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Message is the body of operations that only report an outcome.
type Message struct {
	Message string `json:"message"`
}

// PasswordStatus reports the age of the caller's password.
type PasswordStatus struct {
	DaysSinceChange int        `json:"days_since_change"`
	ChangeRequired  bool       `json:"change_required"`
	LastChanged     *time.Time `json:"last_changed"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	User        model.UserOut  `json:"user"`
	PasswordAge PasswordStatus `json:"password_age"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterResult reports the outcome of a registration.
type RegisterResult struct {
	Message     string `json:"message"`
	EmailStatus string `json:"email_status"`
	Note        string `json:"note,omitempty"`
}

// UpdateUserRequest changes profile fields; nil fields are left alone.
type UpdateUserRequest struct {
	Username    *string `json:"username,omitempty"`
	Description *string `json:"description,omitempty"`
	ProfileURL  *string `json:"profile_url,omitempty"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status struct {
		Server      bool `json:"server"`
		Database    bool `json:"database"`
		EmailServer bool `json:"email_server"`
	} `json:"status"`
}

// CreateAPIKeyRequest registers a provider key.
type CreateAPIKeyRequest struct {
	Vendor   string `json:"vendor"`
	APIKey   string `json:"api_key"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpdateAPIKeyRequest changes a stored key; nil fields are left alone.
type UpdateAPIKeyRequest struct {
	Vendor   *string `json:"vendor,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	APIKey   *string `json:"api_key,omitempty"`
}

// VerifyResult is the outcome of a key check against its provider.
type VerifyResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// CreateGroupRequest creates a group backed by one of the caller's keys.
type CreateGroupRequest struct {
	Name     string `json:"name"`
	APIKeyID int64  `json:"api_key_id"`
}

// UpdateGroupRequest changes group fields; nil fields are left alone.
type UpdateGroupRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	APIKeyID *int64  `json:"api_key_id,omitempty"`
}

// AddMemberRequest adds a user to a group directly.
type AddMemberRequest struct {
	UserID int64   `json:"user_id"`
	Note   *string `json:"note,omitempty"`
}

// UpdateMemberRequest changes a membership; nil fields are left alone.
type UpdateMemberRequest struct {
	IsAccepted *bool   `json:"is_accpet,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	Note       *string `json:"note,omitempty"`
}

// InviteUserRequest invites a registered user to a group.
type InviteUserRequest struct {
	UserID int64   `json:"user_id"`
	Note   *string `json:"note,omitempty"`
}

// InviteResult is the outcome of a user invitation. InvitationID is nil when
// a pending invitation already existed.
type InviteResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	InvitationID *int64         `json:"invitation_id"`
	UserInfo     model.UserInfo `json:"user_info"`
}

// AcceptResult is the outcome of accepting an invitation.
type AcceptResult struct {
	Message   string `json:"message"`
	GroupID   int64  `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// AdminUser is a user as seen by administrators.
type AdminUser struct {
	model.UserOut
	LoginCount  int64 `json:"login_count"`
	APIKeyCount int   `json:"api_key_count"`
}

// Stats describes the running service.
type Stats struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}
