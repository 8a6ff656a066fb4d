package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var out RegisterResult
	if err := c.call(ctx, http.MethodPost, "/api/users", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail activates an account with the token from the verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*Message, error) {
	return c.message(ctx, http.MethodPost, "/api/users/verify-email", nil, map[string]string{"token": token})
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.call(ctx, http.MethodGet, "/api/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe changes the caller's profile.
func (c *Client) UpdateMe(ctx context.Context, req UpdateUserRequest) (*model.User, error) {
	var out model.User
	if err := c.call(ctx, http.MethodPut, "/api/users/me", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMe deactivates the caller's account.
func (c *Client) DeleteMe(ctx context.Context) (*Message, error) {
	return c.message(ctx, http.MethodDelete, "/api/users/me", nil, nil)
}

// ChangePassword replaces the caller's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*Message, error) {
	return c.message(ctx, http.MethodPut, "/api/users/me/password", nil, req)
}

// PasswordStatus reports the age of the caller's password.
func (c *Client) PasswordStatus(ctx context.Context) (*PasswordStatus, error) {
	var out PasswordStatus
	if err := c.call(ctx, http.MethodGet, "/api/users/me/password-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPasswordReset mails a reset link if the address is registered.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*Message, error) {
	return c.message(ctx, http.MethodPost, "/api/users/reset-password/request", nil, map[string]string{"email": email})
}

// ResetPassword sets a new password with a reset token.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*Message, error) {
	return c.message(ctx, http.MethodPost, "/api/users/reset-password", nil, req)
}

// SearchUsers finds other users by email or username. A zero limit uses the
// server default.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]model.UserInfo, error) {
	q := url.Values{"query": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out []model.UserInfo
	if err := c.call(ctx, http.MethodGet, "/api/users/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InviteByEmail mails a group invitation to an address.
func (c *Client) InviteByEmail(ctx context.Context, email string, groupID int64) (*Message, error) {
	q := url.Values{
		"email":    {email},
		"group_id": {strconv.FormatInt(groupID, 10)},
	}
	return c.message(ctx, http.MethodPost, "/api/users/invite", q, nil)
}

func (c *Client) message(ctx context.Context, method, path string, query url.Values, body any) (*Message, error) {
	var out Message
	if err := c.call(ctx, method, path, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
