package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// ErrTokenInvalid indicates the token does not exist, has the wrong type or is expired.
var ErrTokenInvalid = errors.New("token invalid or expired")

// StoreVerificationToken persists a single-use token. Earlier tokens of the
// same type for the user are discarded, along with any expired token.
func (r *Repository) StoreVerificationToken(ctx context.Context, tok *model.VerificationToken) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM verification_token
			 WHERE (user_id = $1 AND token_type = $2) OR expires_at <= NOW()`,
			tok.UserID, string(tok.Type),
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO verification_token (token_hash, user_id, token_type, expires_at)
			VALUES ($1, $2, $3, $4)
		`, tok.TokenHash, tok.UserID, string(tok.Type), tok.ExpiresAt)
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	return nil
}

// ConsumeVerificationToken deletes the token and returns its user id.
// Expired tokens are deleted too but reported as ErrTokenInvalid.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, tokenHash string, typ model.TokenType) (int64, error) {
	query := `
		DELETE FROM verification_token
		WHERE token_hash = $1 AND token_type = $2
		RETURNING user_id, expires_at
	`

	var tok model.VerificationToken
	err := r.pool.QueryRow(ctx, query, tokenHash, string(typ)).Scan(&tok.UserID, &tok.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		return 0, fmt.Errorf("failed to consume verification token: %w", err)
	}

	if tok.IsExpired(now()) {
		return 0, ErrTokenInvalid
	}

	return tok.UserID, nil
}
