package model

import "time"

// TokenType distinguishes single-use tokens stored in verification_token.
type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
	TokenPasswordReset     TokenType = "password_reset"
)

// VerificationToken is a single-use token bound to a user.
// Only the hash of the token is persisted.
type VerificationToken struct {
	TokenHash string
	UserID    int64
	Type      TokenType
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry.
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
