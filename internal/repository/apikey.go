package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrAPIKeyInUse    = errors.New("API key is used by a group")
)

const apiKeyColumns = `api_key_id, user_id, vendor, api_key, is_active, create_at, update_at`

// CreateAPIKey inserts a vendor API key. ID and timestamps are written back to key.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_key (user_id, vendor, api_key, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING api_key_id, create_at, update_at
	`

	err := r.pool.QueryRow(ctx, query,
		key.UserID,
		key.Vendor,
		key.EncryptedKey,
		key.IsActive,
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_key WHERE api_key_id = $1`

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return key, nil
}

// ListAPIKeysByUserID retrieves all API keys of a user, most recently updated first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID int64) ([]*model.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_key
		WHERE user_id = $1
		ORDER BY update_at DESC, api_key_id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*model.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}

// UpdateAPIKey applies the set fields of upd and returns the updated key.
func (r *Repository) UpdateAPIKey(ctx context.Context, id int64, upd model.APIKeyUpdate) (*model.APIKey, error) {
	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Vendor != nil {
		add("vendor", *upd.Vendor)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.EncryptedKey != nil {
		add("api_key", *upd.EncryptedKey)
	}
	if len(sets) == 0 {
		return r.GetAPIKeyByID(ctx, id)
	}
	sets = append(sets, "update_at = NOW()")

	query := `UPDATE api_key SET ` + strings.Join(sets, ", ") + ` WHERE api_key_id = $1 RETURNING ` + apiKeyColumns

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}

	return key, nil
}

// DeleteAPIKey removes an API key. Keys referenced by a group cannot be removed.
func (r *Repository) DeleteAPIKey(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_key WHERE api_key_id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrAPIKeyInUse
		}
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// IsAPIKeyInUse reports whether any active group uses the key.
func (r *Repository) IsAPIKeyInUse(ctx context.Context, id int64) (bool, error) {
	var inUse bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE api_key_id = $1 AND is_active = TRUE)`,
		id,
	).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check API key usage: %w", err)
	}
	return inUse, nil
}

func scanAPIKey(row scanner) (*model.APIKey, error) {
	var key model.APIKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Vendor,
		&key.EncryptedKey,
		&key.IsActive,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
