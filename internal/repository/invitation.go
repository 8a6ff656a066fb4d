package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Common errors for invitation repository operations.
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationPending is returned by CreateInvitation together with the
	// existing pending invitation.
	ErrInvitationPending = errors.New("invitation already pending")
	// ErrInvitationAccepted means the user already joined through an invitation.
	ErrInvitationAccepted = errors.New("invitation already accepted")
)

const invitationSelect = `
	SELECT i.invitation_id, i.group_id, i.user_id, i.invited_by, i.note, i.status, i.create_at, i.update_at,
		g.name, u.username, u.email, inv.username, inv.email
	FROM group_invitation i
	JOIN groups g ON g.group_id = i.group_id
	JOIN users u ON u.user_id = i.user_id
	JOIN users inv ON inv.user_id = i.invited_by
`

// CreateInvitation records a pending invitation of inv.UserID to inv.GroupID.
// If a pending invitation already exists it is returned with ErrInvitationPending.
// If an accepted one exists ErrInvitationAccepted is returned.
func (r *Repository) CreateInvitation(ctx context.Context, inv *model.Invitation) (*model.Invitation, error) {
	var (
		existingID     int64
		existingStatus model.InvitationStatus
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT invitation_id, status
			FROM group_invitation
			WHERE group_id = $1 AND user_id = $2 AND status IN ('pending', 'accepted')
			ORDER BY create_at DESC
			LIMIT 1
		`, inv.GroupID, inv.UserID).Scan(&existingID, &existingStatus)

		switch {
		case err == nil:
			if existingStatus == model.InvitationAccepted {
				return ErrInvitationAccepted
			}
			return ErrInvitationPending
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO group_invitation (group_id, user_id, invited_by, note, status)
			VALUES ($1, $2, $3, $4, 'pending')
			RETURNING invitation_id, status, create_at, update_at
		`, inv.GroupID, inv.UserID, inv.InvitedBy, inv.Note,
		).Scan(&inv.ID, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	})

	switch {
	case errors.Is(err, ErrInvitationPending):
		existing, getErr := r.GetInvitation(ctx, existingID)
		if getErr != nil {
			return nil, getErr
		}
		return existing, ErrInvitationPending
	case errors.Is(err, ErrInvitationAccepted):
		return nil, err
	case err != nil:
		if isForeignKeyViolation(err) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return inv, nil
}

// GetInvitation retrieves an invitation with group, invitee and inviter names.
func (r *Repository) GetInvitation(ctx context.Context, id int64) (*model.Invitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx, invitationSelect+` WHERE i.invitation_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// ListUserInvitations lists invitations received by userID, newest first.
// An empty status lists all states.
func (r *Repository) ListUserInvitations(ctx context.Context, userID int64, status model.InvitationStatus) ([]*model.Invitation, error) {
	return r.listInvitations(ctx, `i.user_id = $1`, userID, status)
}

// ListGroupInvitations lists invitations of a group, newest first.
// An empty status lists all states.
func (r *Repository) ListGroupInvitations(ctx context.Context, groupID int64, status model.InvitationStatus) ([]*model.Invitation, error) {
	return r.listInvitations(ctx, `i.group_id = $1`, groupID, status)
}

func (r *Repository) listInvitations(ctx context.Context, where string, id int64, status model.InvitationStatus) ([]*model.Invitation, error) {
	query := invitationSelect + ` WHERE ` + where
	args := []any{id}
	if status != "" {
		query += ` AND i.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY i.create_at DESC, i.invitation_id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]*model.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invitations, nil
}

// UpdateInvitationStatus moves a pending invitation to status.
// ErrInvitationNotFound is returned if it is missing or no longer pending.
func (r *Repository) UpdateInvitationStatus(ctx context.Context, id int64, status model.InvitationStatus) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE group_invitation SET status = $2, update_at = NOW() WHERE invitation_id = $1 AND status = 'pending'`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// AcceptInvitation marks the invitation accepted and makes the invitee an
// accepted, active member of the group in one transaction.
func (r *Repository) AcceptInvitation(ctx context.Context, inv *model.Invitation) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE group_invitation SET status = 'accepted', update_at = NOW()
			WHERE invitation_id = $1 AND status = 'pending'
		`, inv.ID)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return ErrInvitationNotFound
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO group_member (group_id, user_id, is_accpet, is_active, note)
			VALUES ($1, $2, TRUE, TRUE, $3)
			ON CONFLICT (group_id, user_id)
			DO UPDATE SET is_accpet = TRUE, is_active = TRUE, update_at = NOW()
		`, inv.GroupID, inv.UserID, inv.Note)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			return err
		}
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	inv.Status = model.InvitationAccepted
	return nil
}

func scanInvitation(row scanner) (*model.Invitation, error) {
	var inv model.Invitation
	err := row.Scan(
		&inv.ID, &inv.GroupID, &inv.UserID, &inv.InvitedBy, &inv.Note, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.GroupName, &inv.Username, &inv.Email, &inv.InviterUsername, &inv.InviterEmail,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
