package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// opaqueTokenBytes is the entropy of verification, reset and invitation tokens.
const opaqueTokenBytes = 32

// OpaqueToken is a random URL-safe token and its lookup hash.
type OpaqueToken struct {
	Plaintext string // Sent to the user, never stored
	Hash      string // Stored for lookup
}

// GenerateOpaqueToken creates a URL-safe random token.
func GenerateOpaqueToken() (*OpaqueToken, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(b)
	return &OpaqueToken{
		Plaintext: plaintext,
		Hash:      QuickHash(plaintext),
	}, nil
}
