package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aichatbot/chatbot-api/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for cached users.
	userCachePrefix = "auth:user:"
	// userCacheTTL is the time-to-live for cached users.
	userCacheTTL = 5 * time.Minute
	// revokedTokenPrefix is the Redis key prefix for logged-out token ids.
	revokedTokenPrefix = "auth:revoked:"
)

func userKey(id int64) string {
	return userCachePrefix + strconv.FormatInt(id, 10)
}

func revokedKey(jti string) string {
	return revokedTokenPrefix + jti
}

// GetUser retrieves a cached user.
// Returns nil if not found (cache miss).
func (c *Cache) GetUser(ctx context.Context, id int64) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &user, nil
}

// SetUser caches a user for the auth middleware.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return c.client.Set(ctx, userKey(user.ID), data, userCacheTTL).Err()
}

// DeleteUser removes a cached user.
// Called whenever the user row changes.
func (c *Cache) DeleteUser(ctx context.Context, id int64) error {
	return c.client.Del(ctx, userKey(id)).Err()
}

// RevokeToken denylists a token id until it would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether a token id was denylisted.
func (c *Cache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := c.client.Get(ctx, revokedKey(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case err == redis.Nil:
		return false, nil
	default:
		return false, fmt.Errorf("check revoked token: %w", err)
	}
}
