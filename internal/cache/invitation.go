package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/aichatbot/chatbot-api/internal/model"
)

const invitationPrefix = "invitation:"

// ErrInvitationExpired is returned for an email invitation past its expiry.
var ErrInvitationExpired = errors.New("invitation expired")

func invitationTokenKey(token string) string {
	return invitationPrefix + token
}

func invitationEmailKey(email string, groupID int64) string {
	return invitationPrefix + "email:" + strings.ToLower(email) + ":" + strconv.FormatInt(groupID, 10)
}

// StoreInvitation saves an email invitation under token. An older token for
// the same email and group is discarded.
func (c *Cache) StoreInvitation(ctx context.Context, token string, inv *model.EmailInvitation) error {
	ttl := inv.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return ErrInvitationExpired
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invitation: %w", err)
	}

	emailKey := invitationEmailKey(inv.Email, inv.GroupID)

	previous, err := c.client.Get(ctx, emailKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("lookup previous invitation: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" && previous != token {
			pipe.Del(ctx, invitationTokenKey(previous))
		}
		pipe.Set(ctx, invitationTokenKey(token), data, ttl)
		pipe.Set(ctx, emailKey, token, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store invitation: %w", err)
	}

	return nil
}

// GetInvitation loads an email invitation by token. Returns ErrCacheMiss for
// unknown tokens and ErrInvitationExpired for expired ones, which are removed.
func (c *Cache) GetInvitation(ctx context.Context, token string) (*model.EmailInvitation, error) {
	data, err := c.client.Get(ctx, invitationTokenKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	var inv model.EmailInvitation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, ErrCacheMiss
	}

	if inv.IsExpired(c.now()) {
		_ = c.DeleteInvitation(ctx, token)
		return nil, ErrInvitationExpired
	}

	return &inv, nil
}

// DeleteInvitation removes an email invitation and its email reference.
func (c *Cache) DeleteInvitation(ctx context.Context, token string) error {
	data, err := c.client.Get(ctx, invitationTokenKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("get invitation: %w", err)
	}

	keys := []string{invitationTokenKey(token)}
	var inv model.EmailInvitation
	if json.Unmarshal(data, &inv) == nil {
		keys = append(keys, invitationEmailKey(inv.Email, inv.GroupID))
	}

	return c.client.Del(ctx, keys...).Err()
}
