package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Common errors for group repository operations.
var (
	ErrGroupNotFound = errors.New("group not found")
)

const groupSelect = `
	SELECT g.group_id, g.name, g.owner_user_id, g.api_key_id, g.is_active, g.create_at, g.update_at,
		(SELECT COUNT(*) FROM group_member m
			WHERE m.group_id = g.group_id AND m.is_accpet = TRUE AND m.is_active = TRUE) AS members_count
	FROM groups g
`

// CreateGroup creates a group owned by group.OwnerUserID. The owner is flagged
// as a group owner and added as an accepted, active member in the same transaction.
func (r *Repository) CreateGroup(ctx context.Context, group *model.Group) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET is_group_owner = TRUE, update_at = NOW() WHERE user_id = $1`,
			group.OwnerUserID,
		); err != nil {
			return fmt.Errorf("mark owner: %w", err)
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO groups (owner_user_id, api_key_id, name, is_active)
			VALUES ($1, $2, $3, TRUE)
			RETURNING group_id, is_active, create_at, update_at
		`, group.OwnerUserID, group.APIKeyID, group.Name,
		).Scan(&group.ID, &group.IsActive, &group.CreatedAt, &group.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO group_member (group_id, user_id, is_accpet, is_active)
			VALUES ($1, $2, TRUE, TRUE)
		`, group.ID, group.OwnerUserID); err != nil {
			return fmt.Errorf("insert owner member: %w", err)
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	group.MembersCount = 1
	return nil
}

// GetGroup retrieves an active group by ID.
func (r *Repository) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	return r.getGroup(ctx, id, true)
}

func (r *Repository) getGroup(ctx context.Context, id int64, activeOnly bool) (*model.Group, error) {
	query := groupSelect + ` WHERE g.group_id = $1`
	if activeOnly {
		query += ` AND g.is_active = TRUE`
	}

	group, err := scanGroup(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// GetGroupDetail retrieves a group with its API key, owner and active members.
func (r *Repository) GetGroupDetail(ctx context.Context, id int64) (*model.GroupDetail, error) {
	query := `
		SELECT g.group_id, g.name, g.owner_user_id, g.api_key_id, g.is_active, g.create_at, g.update_at,
			(SELECT COUNT(*) FROM group_member m
				WHERE m.group_id = g.group_id AND m.is_accpet = TRUE AND m.is_active = TRUE),
			k.api_key_id, k.vendor, k.is_active,
			u.user_id, u.username, u.email, u.profile_url
		FROM groups g
		JOIN api_key k ON k.api_key_id = g.api_key_id
		JOIN users u ON u.user_id = g.owner_user_id
		WHERE g.group_id = $1 AND g.is_active = TRUE
	`

	var (
		g     model.Group
		key   model.GroupAPIKeyInfo
		owner model.UserInfo
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.OwnerUserID, &g.APIKeyID, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
		&g.MembersCount,
		&key.ID, &key.Vendor, &key.IsActive,
		&owner.ID, &owner.Username, &owner.Email, &owner.ProfileURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group detail: %w", err)
	}
	g.APIKeyInfo = &key
	g.OwnerInfo = &owner

	members, err := r.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.GroupDetail{Group: &g, Members: members}, nil
}

// ListUserGroups lists active groups the user owns or belongs to.
// When includePending is set, groups with an unaccepted membership are included.
func (r *Repository) ListUserGroups(ctx context.Context, userID int64, includePending bool) ([]*model.Group, error) {
	query := `
		SELECT g.group_id, g.name, g.owner_user_id, g.api_key_id, g.is_active, g.create_at, g.update_at,
			(SELECT COUNT(*) FROM group_member c
				WHERE c.group_id = g.group_id AND c.is_accpet = TRUE AND c.is_active = TRUE),
			k.vendor, k.is_active,
			u.username, u.email,
			COALESCE(m.is_accpet, TRUE), COALESCE(m.is_active, TRUE)
		FROM groups g
		JOIN api_key k ON k.api_key_id = g.api_key_id
		JOIN users u ON u.user_id = g.owner_user_id
		LEFT JOIN group_member m ON m.group_id = g.group_id AND m.user_id = $1
		WHERE g.is_active = TRUE
		  AND (
			g.owner_user_id = $1
			OR (m.is_active = TRUE AND (m.is_accpet = TRUE OR $2))
		  )
		ORDER BY g.create_at DESC, g.group_id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, includePending)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*model.Group, 0)
	for rows.Next() {
		var (
			g     model.Group
			key   model.GroupAPIKeyInfo
			owner model.UserInfo
			ms    model.Membership
		)
		if err := rows.Scan(
			&g.ID, &g.Name, &g.OwnerUserID, &g.APIKeyID, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
			&g.MembersCount,
			&key.Vendor, &key.IsActive,
			&owner.Username, &owner.Email,
			&ms.IsAccepted, &ms.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		key.ID = g.APIKeyID
		owner.ID = g.OwnerUserID
		ms.IsOwner = g.OwnerUserID == userID
		g.APIKeyInfo = &key
		g.OwnerInfo = &owner
		g.Membership = &ms
		groups = append(groups, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}

// UpdateGroup applies the set fields of upd and returns the updated group.
func (r *Repository) UpdateGroup(ctx context.Context, id int64, upd model.GroupUpdate) (*model.Group, error) {
	if upd.IsEmpty() {
		return r.GetGroup(ctx, id)
	}

	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.APIKeyID != nil {
		add("api_key_id", *upd.APIKeyID)
	}
	sets = append(sets, "update_at = NOW()")

	query := `UPDATE groups SET ` + strings.Join(sets, ", ") + ` WHERE group_id = $1 AND is_active = TRUE`

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrGroupNotFound
	}

	return r.getGroup(ctx, id, false)
}

// DeactivateGroup soft-deletes a group together with all its memberships.
func (r *Repository) DeactivateGroup(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE groups SET is_active = FALSE, update_at = NOW() WHERE group_id = $1 AND is_active = TRUE`,
			id,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrGroupNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE group_member SET is_active = FALSE, update_at = NOW() WHERE group_id = $1`,
			id,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return err
		}
		return fmt.Errorf("failed to deactivate group: %w", err)
	}

	return nil
}

// ListOwnedAPIKeys lists the active keys a group owner can attach to a group.
func (r *Repository) ListOwnedAPIKeys(ctx context.Context, userID int64) ([]model.APIKeySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT api_key_id, vendor, is_active, create_at, update_at
		FROM api_key
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY update_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned API keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.APIKeySummary, error) {
		var s model.APIKeySummary
		err := row.Scan(&s.ID, &s.Vendor, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan owned API keys: %w", err)
	}

	return keys, nil
}

func scanGroup(row scanner) (*model.Group, error) {
	var g model.Group
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.OwnerUserID,
		&g.APIKeyID,
		&g.IsActive,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.MembersCount,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
