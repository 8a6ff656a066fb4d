// Package dto provides Data Transfer Objects for API requests and responses.
// Field names follow the wire format existing web clients already use.
package dto

// RegisterRequest is the body of POST /api/users.
type RegisterRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// VerifyEmailRequest is the body of POST /api/users/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// UpdateUserRequest is the body of PUT /api/users/me.
type UpdateUserRequest struct {
	Username    *string `json:"username,omitempty"`
	Description *string `json:"description,omitempty"`
	ProfileURL  *string `json:"profile_url,omitempty"`
}

// ChangePasswordRequest is the body of PUT /api/users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// PasswordResetRequest is the body of POST /api/users/reset-password/request.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/users/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// CreateAPIKeyRequest is the body of POST /api/api-keys.
type CreateAPIKeyRequest struct {
	Vendor   string `json:"vendor"`
	APIKey   string `json:"api_key"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpdateAPIKeyRequest is the body of PUT /api/api-keys/{id}.
type UpdateAPIKeyRequest struct {
	Vendor   *string `json:"vendor,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	APIKey   *string `json:"api_key,omitempty"`
}

// VerifyAPIKeyRequest is the body of POST /api/api-keys/verify.
type VerifyAPIKeyRequest struct {
	Vendor string `json:"vendor"`
	APIKey string `json:"api_key"`
}

// CreateGroupRequest is the body of POST /api/groups.
type CreateGroupRequest struct {
	Name     string `json:"name"`
	APIKeyID int64  `json:"api_key_id"`
}

// UpdateGroupRequest is the body of PUT /api/groups/{id}.
type UpdateGroupRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	APIKeyID *int64  `json:"api_key_id,omitempty"`
}

// AddMemberRequest is the body of POST /api/groups/{id}/members.
type AddMemberRequest struct {
	UserID int64   `json:"user_id"`
	Note   *string `json:"note,omitempty"`
}

// UpdateMemberRequest is the body of PUT /api/groups/{id}/members/{mid}.
type UpdateMemberRequest struct {
	IsAccepted *bool   `json:"is_accpet,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
	Note       *string `json:"note,omitempty"`
}

// InviteUserRequest is the body of POST /api/groups/{id}/invite-user.
type InviteUserRequest struct {
	UserID int64   `json:"user_id"`
	Note   *string `json:"note,omitempty"`
}

// AcceptEmailInvitationRequest is the body of POST /api/groups/accept-invitation.
type AcceptEmailInvitationRequest struct {
	InvitationToken string `json:"invitation_token"`
}
