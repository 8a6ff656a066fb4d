package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrPasswordNotFound = errors.New("password not found")
)

const userColumns = `user_id, email, username, is_active, is_admin, is_group_owner, description, profile_url, create_at, update_at`

// CreateUser inserts a user and its password hash in one transaction.
// The generated id and timestamps are written back to user.
func (r *Repository) CreateUser(ctx context.Context, user *model.User, passwordHash string) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO users (email, username, is_active, description, profile_url)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING user_id, create_at, update_at
		`
		if err := tx.QueryRow(ctx, query,
			user.Email,
			user.Username,
			user.IsActive,
			user.Description,
			user.ProfileURL,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO user_password (user_id, password) VALUES ($1, $2)`,
			user.ID, passwordHash,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateUser applies the set fields of upd and returns the updated user.
func (r *Repository) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	if upd.IsEmpty() {
		return r.GetUserByID(ctx, id)
	}

	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ProfileURL != nil {
		add("profile_url", *upd.ProfileURL)
	}
	sets = append(sets, "update_at = NOW()")

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE user_id = $1 RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// SetUserActive activates or deactivates a user.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, update_at = NOW() WHERE user_id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SearchUsers finds active users whose email or username contains term.
// Users in exclude are left out.
func (r *Repository) SearchUsers(ctx context.Context, term string, limit int, exclude []int64) ([]model.UserInfo, error) {
	query := `
		SELECT user_id, username, email, profile_url
		FROM users
		WHERE is_active = TRUE
		  AND (email ILIKE $1 OR username ILIKE $1)
		  AND NOT (user_id = ANY($2))
		ORDER BY username ASC
		LIMIT $3
	`

	pattern := "%" + escapeLike(term) + "%"
	if exclude == nil {
		exclude = []int64{}
	}

	rows, err := r.pool.Query(ctx, query, pattern, pq.Array(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserInfo, 0)
	for rows.Next() {
		var u model.UserInfo
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ProfileURL); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetUserPassword retrieves the credential row of a user.
func (r *Repository) GetUserPassword(ctx context.Context, userID int64) (*model.UserPassword, error) {
	query := `
		SELECT user_id, password, previous_password, update_at
		FROM user_password
		WHERE user_id = $1
	`

	var p model.UserPassword
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Hash, &p.PreviousHash, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPasswordNotFound
		}
		return nil, fmt.Errorf("failed to get user password: %w", err)
	}

	return &p, nil
}

// UpdatePassword stores a new hash and keeps the current one as previous.
// When rehash is true the change timestamp is preserved, since the password itself did not change.
func (r *Repository) UpdatePassword(ctx context.Context, userID int64, hash string, rehash bool) error {
	query := `
		UPDATE user_password
		SET previous_password = password, password = $2, update_at = NOW()
		WHERE user_id = $1
	`
	if rehash {
		query = `UPDATE user_password SET password = $2 WHERE user_id = $1`
	}

	result, err := r.pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPasswordNotFound
	}

	return nil
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.IsActive,
		&u.IsAdmin,
		&u.IsGroupOwner,
		&u.Description,
		&u.ProfileURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// now is the clock used for expiry comparisons done in Go.
var now = time.Now
