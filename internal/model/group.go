package model

import "time"

// Group shares one vendor API key among its members.
type Group struct {
	ID           int64     `json:"group_id"`
	Name         string    `json:"name"`
	OwnerUserID  int64     `json:"owner_user_id"`
	APIKeyID     int64     `json:"api_key_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"create_at"`
	UpdatedAt    time.Time `json:"update_at"`
	MembersCount int       `json:"members_count"`

	APIKeyInfo *GroupAPIKeyInfo `json:"api_key_info,omitempty"`
	OwnerInfo  *UserInfo        `json:"owner_info,omitempty"`
	Membership *Membership      `json:"membership,omitempty"`
}

// IsOwner reports whether userID owns the group.
func (g *Group) IsOwner(userID int64) bool {
	return g.OwnerUserID == userID
}

// GroupAPIKeyInfo is the key reference shown on a group.
type GroupAPIKeyInfo struct {
	ID       int64  `json:"api_key_id"`
	Vendor   string `json:"vendor"`
	IsActive bool   `json:"is_active"`
}

// Membership describes the caller's relation to a listed group.
type Membership struct {
	IsAccepted bool `json:"is_accpet"`
	IsActive   bool `json:"is_active"`
	IsOwner    bool `json:"is_owner"`
}

// GroupDetail is a group together with its members.
type GroupDetail struct {
	*Group
	Members []GroupMember `json:"members"`
}

// GroupUpdate carries optional fields for a group update.
type GroupUpdate struct {
	Name     *string
	IsActive *bool
	APIKeyID *int64
}

// IsEmpty reports whether no field is set.
func (u GroupUpdate) IsEmpty() bool {
	return u.Name == nil && u.IsActive == nil && u.APIKeyID == nil
}

// GroupMember is a user's membership row in a group.
// The is_accpet spelling is kept for wire compatibility with existing clients.
type GroupMember struct {
	ID         int64     `json:"member_id"`
	GroupID    int64     `json:"group_id"`
	UserID     int64     `json:"user_id"`
	IsAccepted bool      `json:"is_accpet"`
	IsActive   bool      `json:"is_active"`
	Note       *string   `json:"note"`
	CreatedAt  time.Time `json:"create_at"`
	UpdatedAt  time.Time `json:"update_at"`
	UserInfo   *UserInfo `json:"user_info,omitempty"`
}

// IsActiveMember reports whether the membership grants access to the group.
func (m *GroupMember) IsActiveMember() bool {
	return m != nil && m.IsAccepted && m.IsActive
}

// MemberUpdate carries optional fields for a membership update.
type MemberUpdate struct {
	IsAccepted *bool
	IsActive   *bool
	Note       *string
}

// IsEmpty reports whether no field is set.
func (u MemberUpdate) IsEmpty() bool {
	return u.IsAccepted == nil && u.IsActive == nil && u.Note == nil
}
