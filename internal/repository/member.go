package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Common errors for group member repository operations.
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyActive = errors.New("member already active")
)

const memberSelect = `
	SELECT m.member_id, m.group_id, m.user_id, m.is_accpet, m.is_active, m.note, m.create_at, m.update_at,
		u.user_id, u.username, u.email, u.profile_url
	FROM group_member m
	JOIN users u ON u.user_id = m.user_id
`

// AddMember adds userID to a group. An existing inactive or unaccepted row is
// reactivated instead of inserting a duplicate. ErrMemberAlreadyActive is
// returned when the user is already an accepted, active member.
func (r *Repository) AddMember(ctx context.Context, groupID, userID int64, accepted bool, note *string) (*model.GroupMember, error) {
	var memberID int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var isAccepted, isActive bool
		err := tx.QueryRow(ctx, `
			SELECT member_id, is_accpet, is_active
			FROM group_member
			WHERE group_id = $1 AND user_id = $2
			FOR UPDATE
		`, groupID, userID).Scan(&memberID, &isAccepted, &isActive)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return tx.QueryRow(ctx, `
				INSERT INTO group_member (group_id, user_id, is_accpet, is_active, note)
				VALUES ($1, $2, $3, TRUE, $4)
				RETURNING member_id
			`, groupID, userID, accepted, note).Scan(&memberID)
		case err != nil:
			return err
		case isAccepted && isActive:
			return ErrMemberAlreadyActive
		}

		_, err = tx.Exec(ctx, `
			UPDATE group_member
			SET is_accpet = $2, is_active = TRUE, note = $3, update_at = NOW()
			WHERE member_id = $1
		`, memberID, accepted, note)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrMemberAlreadyActive) {
			return nil, err
		}
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return r.GetMember(ctx, memberID)
}

// GetMember retrieves a membership row with the member's user info.
func (r *Repository) GetMember(ctx context.Context, memberID int64) (*model.GroupMember, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, memberSelect+` WHERE m.member_id = $1`, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// GetMemberByUser retrieves the membership of userID in groupID.
func (r *Repository) GetMemberByUser(ctx context.Context, groupID, userID int64) (*model.GroupMember, error) {
	m, err := scanMember(r.pool.QueryRow(ctx,
		memberSelect+` WHERE m.group_id = $1 AND m.user_id = $2`,
		groupID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member by user: %w", err)
	}
	return m, nil
}

// ListMembers lists every membership row of a group, oldest first.
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	return r.listMembers(ctx, memberSelect+` WHERE m.group_id = $1 ORDER BY m.create_at ASC, m.member_id ASC`, groupID)
}

// ListPendingMembers lists the memberships of a group awaiting owner approval.
func (r *Repository) ListPendingMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	return r.listMembers(ctx,
		memberSelect+` WHERE m.group_id = $1 AND m.is_accpet = FALSE ORDER BY m.create_at ASC, m.member_id ASC`,
		groupID,
	)
}

func (r *Repository) listMembers(ctx context.Context, query string, args ...any) ([]model.GroupMember, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]model.GroupMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// UpdateMember applies the set fields of upd and returns the updated row.
func (r *Repository) UpdateMember(ctx context.Context, memberID int64, upd model.MemberUpdate) (*model.GroupMember, error) {
	if upd.IsEmpty() {
		return r.GetMember(ctx, memberID)
	}

	sets := make([]string, 0, 4)
	args := []any{memberID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.IsAccepted != nil {
		add("is_accpet", *upd.IsAccepted)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.Note != nil {
		add("note", *upd.Note)
	}
	sets = append(sets, "update_at = NOW()")

	result, err := r.pool.Exec(ctx,
		`UPDATE group_member SET `+strings.Join(sets, ", ")+` WHERE member_id = $1`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrMemberNotFound
	}

	return r.GetMember(ctx, memberID)
}

// RemoveMember deactivates a membership.
func (r *Repository) RemoveMember(ctx context.Context, memberID int64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE group_member SET is_active = FALSE, update_at = NOW() WHERE member_id = $1`,
		memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func scanMember(row scanner) (*model.GroupMember, error) {
	var (
		m    model.GroupMember
		info model.UserInfo
	)
	err := row.Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.IsAccepted, &m.IsActive, &m.Note, &m.CreatedAt, &m.UpdatedAt,
		&info.ID, &info.Username, &info.Email, &info.ProfileURL,
	)
	if err != nil {
		return nil, err
	}
	m.UserInfo = &info
	return &m, nil
}
