package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/model"
)

func apiKeyPath(id int64) string {
	return "/api/api-keys/" + strconv.FormatInt(id, 10)
}

// CreateAPIKey registers a provider key after the provider accepts it.
func (c *Client) CreateAPIKey(ctx context.Context, req CreateAPIKeyRequest) (*model.APIKeyResponse, error) {
	var out model.APIKeyResponse
	if err := c.call(ctx, http.MethodPost, "/api/api-keys", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAPIKeys returns the caller's keys, masked.
func (c *Client) ListAPIKeys(ctx context.Context) ([]model.APIKeyResponse, error) {
	var out []model.APIKeyResponse
	if err := c.call(ctx, http.MethodGet, "/api/api-keys", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAPIKey returns one key including its plaintext.
func (c *Client) GetAPIKey(ctx context.Context, id int64) (*model.APIKeyResponse, error) {
	var out model.APIKeyResponse
	if err := c.call(ctx, http.MethodGet, apiKeyPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAPIKey changes a stored key.
func (c *Client) UpdateAPIKey(ctx context.Context, id int64, req UpdateAPIKeyRequest) (*model.APIKeyResponse, error) {
	var out model.APIKeyResponse
	if err := c.call(ctx, http.MethodPut, apiKeyPath(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAPIKey removes a key that no group uses.
func (c *Client) DeleteAPIKey(ctx context.Context, id int64) (*Message, error) {
	return c.message(ctx, http.MethodDelete, apiKeyPath(id), nil, nil)
}

// VerifyAPIKey checks a key with its provider without storing it.
func (c *Client) VerifyAPIKey(ctx context.Context, vendor, key string) (*VerifyResult, error) {
	body := map[string]string{"vendor": vendor, "api_key": key}

	var out VerifyResult
	if err := c.call(ctx, http.MethodPost, "/api/api-keys/verify", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OwnedAPIKeys returns the compact list used by group forms.
func (c *Client) OwnedAPIKeys(ctx context.Context) ([]model.APIKeySummary, error) {
	var out []model.APIKeySummary
	if err := c.call(ctx, http.MethodGet, "/api/user/api-keys", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
