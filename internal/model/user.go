// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// User is an account of the chatbot service.
type User struct {
	ID           int64     `json:"user_id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	IsGroupOwner bool      `json:"is_group_owner"`
	Description  *string   `json:"description"`
	ProfileURL   *string   `json:"profile_url"`
	CreatedAt    time.Time `json:"create_at"`
	UpdatedAt    time.Time `json:"update_at"`
}

// Subject returns the JWT subject for the user.
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}

// UserOut is the short user view returned from login.
type UserOut struct {
	ID           int64   `json:"user_id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	IsAdmin      bool    `json:"is_admin"`
	IsGroupOwner bool    `json:"is_group_owner"`
	ProfileURL   *string `json:"profile_url"`
}

// Out converts the user to its login view.
func (u *User) Out() UserOut {
	return UserOut{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		IsAdmin:      u.IsAdmin,
		IsGroupOwner: u.IsGroupOwner,
		ProfileURL:   u.ProfileURL,
	}
}

// UserInfo is the compact user reference embedded in groups and invitations.
type UserInfo struct {
	ID         int64   `json:"user_id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	ProfileURL *string `json:"profile_url,omitempty"`
}

// UserPassword holds the credential row of a user.
type UserPassword struct {
	UserID       int64
	Hash         string
	PreviousHash *string
	UpdatedAt    time.Time
}

// Age returns how long ago the password was last changed.
func (p *UserPassword) Age(now time.Time) time.Duration {
	if now.Before(p.UpdatedAt) {
		return 0
	}
	return now.Sub(p.UpdatedAt)
}

// DaysSinceChange returns the whole number of days since the last change.
func (p *UserPassword) DaysSinceChange(now time.Time) int {
	return int(p.Age(now) / (24 * time.Hour))
}

// UserUpdate carries the optional profile fields a user may change.
type UserUpdate struct {
	Username    *string
	Description *string
	ProfileURL  *string
}

// IsEmpty reports whether no field is set.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Description == nil && u.ProfileURL == nil
}

// LoginEvent records one successful login.
type LoginEvent struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// AuthContext holds the authenticated principal of a request.
// It is injected into the request context by the auth middleware.
type AuthContext struct {
	User                   *User
	TokenID                string
	ExpiresAt              time.Time
	PasswordChangeRequired bool
}

// UserID returns the authenticated user's id.
func (a *AuthContext) UserID() int64 {
	if a == nil || a.User == nil {
		return 0
	}
	return a.User.ID
}
