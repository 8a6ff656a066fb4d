package model

import "time"

// InvitationStatus is the lifecycle state of a group invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationCanceled InvitationStatus = "canceled"
)

// IsValid checks if the status is one of the known states.
func (s InvitationStatus) IsValid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined, InvitationCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationPending
}

// Invitation is a group owner's invitation of an existing user.
type Invitation struct {
	ID        int64            `json:"invitation_id"`
	GroupID   int64            `json:"group_id"`
	UserID    int64            `json:"user_id"`
	InvitedBy int64            `json:"invited_by"`
	Note      *string          `json:"note"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"create_at"`
	UpdatedAt time.Time        `json:"update_at"`

	GroupName       string `json:"group_name,omitempty"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	InviterUsername string `json:"inviter_username,omitempty"`
	InviterEmail    string `json:"inviter_email,omitempty"`
}

// EmailInvitation is a token-based invitation sent to an email address.
// It lives in Redis until accepted or expired.
type EmailInvitation struct {
	GroupID   int64     `json:"group_id"`
	Email     string    `json:"email"`
	InvitedBy int64     `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the invitation is past its expiry.
func (i *EmailInvitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
