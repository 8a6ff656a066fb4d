package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// LookupUser finds a user by email. Requires an admin token.
func (c *Client) LookupUser(ctx context.Context, email string) (*AdminUser, error) {
	var out AdminUser
	if err := c.call(ctx, http.MethodGet, "/api/admin/users", url.Values{"email": {email}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserActive activates or deactivates an account. Requires an admin token.
func (c *Client) SetUserActive(ctx context.Context, userID int64, active bool) (*Message, error) {
	action := "/deactivate"
	if active {
		action = "/activate"
	}
	return c.message(ctx, http.MethodPut, "/api/admin/users/"+strconv.FormatInt(userID, 10)+action, nil, nil)
}

// Stats returns service build and uptime details. Requires an admin token.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.call(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
