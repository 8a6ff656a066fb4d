package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aichatbot/chatbot-api/internal/model"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", time.Hour)

	issued, err := m.Issue(42, "test@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(issued.Token, ".")))

	claims, err := m.Parse(issued.Token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.True(t, claims.PasswordChangeRequired)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), m.Remaining(claims).Seconds(), 5)
}

func TestTokenManager_UniqueIDs(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", time.Hour)
	a, err := m.Issue(1, "a@example.com", false)
	require.NoError(t, err)
	b, err := m.Issue(1, "a@example.com", false)
	require.NoError(t, err)

	assert.NotEqual(t, a.Claims.ID, b.Claims.ID)
}

func TestTokenManager_Rejects(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", time.Hour)
	good, err := m.Issue(1, "a@example.com", false)
	require.NoError(t, err)

	other := NewTokenManager("other-secret", time.Hour)
	forged, err := other.Issue(1, "a@example.com", false)
	require.NoError(t, err)

	expiredMgr := NewTokenManager("test-secret", time.Minute)
	expiredMgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredMgr.Issue(1, "a@example.com", false)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", forged.Token},
		{"expired", expired.Token},
		{"truncated", good.Token[:len(good.Token)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := m.Parse(tt.token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateOpaqueToken()
	require.NoError(t, err)
	b, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.NotEqual(t, a.Plaintext, b.Plaintext)
	assert.Len(t, a.Plaintext, 43)
	assert.NotContains(t, a.Plaintext, "+")
	assert.NotContains(t, a.Plaintext, "/")
	assert.Equal(t, QuickHash(a.Plaintext), a.Hash)
}

func TestAuthContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, AuthFromContext(ctx))
	assert.Nil(t, UserFromContext(ctx))
	assert.Panics(t, func() { MustAuthFromContext(ctx) })

	user := &model.User{ID: 9, Email: "u@example.com"}
	ctx = ContextWithAuth(ctx, &model.AuthContext{User: user, TokenID: "jti"})

	assert.Equal(t, user, UserFromContext(ctx))
	assert.Equal(t, int64(9), MustAuthFromContext(ctx).UserID())
}
