package apiclient

import (
	"context"
	"net/http"
	"net/url"
)

// AccessTokenCookie is the cookie the API sets on login.
const AccessTokenCookie = "access_token"

// Login signs in with the OAuth2 password form and keeps the returned token
// for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", nil, form, &out); err != nil {
		return nil, err
	}
	c.token = out.AccessToken
	return &out, nil
}

// Logout revokes the current session and forgets the token.
func (c *Client) Logout(ctx context.Context) (*Message, error) {
	var out Message
	if err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil, &out); err != nil {
		return nil, err
	}
	c.token = ""
	return &out, nil
}

// Health reports dependency reachability.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.call(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
