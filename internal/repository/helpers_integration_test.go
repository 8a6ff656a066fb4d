//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/testutil"
)

// freshSchema takes the shared database lock for the test and rebuilds the
// schema from migrations/.
func freshSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	require.NoError(t, err, "acquire db lock")
	t.Cleanup(func() { _ = unlock() })

	require.NoError(t, testutil.ResetSchema(ctx, pool), "reset schema")
}

func newTestRepo(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	repo, err := New(ctx, testutil.PostgresURL(t))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	freshSchema(t, ctx, repo.Pool())
	return ctx, repo
}

func createTestUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t)
	require.NoError(t, repo.CreateUser(ctx, user, "hash"))
	return user
}

func createTestGroup(t *testing.T, ctx context.Context, repo *Repository, owner *model.User) *model.Group {
	t.Helper()
	key := testutil.NewTestAPIKey(t, owner.ID)
	require.NoError(t, repo.CreateAPIKey(ctx, key))

	group := testutil.NewTestGroup(t, owner.ID, key.ID)
	require.NoError(t, repo.CreateGroup(ctx, group))
	return group
}
