package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// CreateLoginHistory records a single login.
func (r *Repository) CreateLoginHistory(ctx context.Context, ev *model.LoginEvent) error {
	query := `
		INSERT INTO login_hist (event_id, user_id, ip_address, user_agent, last_login_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		nullIfEmpty(ev.ID),
		ev.UserID,
		nullIfEmpty(ev.IPAddress),
		nullIfEmpty(ev.UserAgent),
		ev.LoggedInAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login history: %w", err)
	}

	return nil
}

// BulkInsertLoginHistory records many logins in one batch.
// Events already stored (by event id) are skipped.
func (r *Repository) BulkInsertLoginHistory(ctx context.Context, events []model.LoginEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO login_hist (event_id, user_id, ip_address, user_agent, last_login_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(query,
			nullIfEmpty(ev.ID),
			ev.UserID,
			nullIfEmpty(ev.IPAddress),
			nullIfEmpty(ev.UserAgent),
			ev.LoggedInAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert login history: %w", err)
		}
	}

	return nil
}

// CountLogins returns how many logins are recorded for a user.
func (r *Repository) CountLogins(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM login_hist WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count logins: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
