package model

import (
	"slices"
	"strings"
	"time"
)

// Supported AI vendors.
const (
	VendorOpenAI    = "openai"
	VendorAnthropic = "anthropic"
	VendorGoogle    = "google"
	VendorAzure     = "azure"
)

// ValidVendors contains all vendors a key can be registered for.
var ValidVendors = []string{VendorOpenAI, VendorAnthropic, VendorGoogle, VendorAzure}

// NormalizeVendor lowercases the vendor and reports whether it is supported.
func NormalizeVendor(v string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(v))
	return n, slices.Contains(ValidVendors, n)
}

// APIKey is a user's AI vendor credential. The secret is stored encrypted.
type APIKey struct {
	ID           int64     `json:"api_key_id"`
	UserID       int64     `json:"user_id"`
	Vendor       string    `json:"vendor"`
	EncryptedKey string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"create_at"`
	UpdatedAt    time.Time `json:"update_at"`
}

// APIKeyResponse is the public view of an APIKey. Key is only set on detail reads.
type APIKeyResponse struct {
	ID        int64     `json:"api_key_id"`
	UserID    int64     `json:"user_id"`
	Vendor    string    `json:"vendor"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"create_at"`
	UpdatedAt time.Time `json:"update_at"`
	MaskedKey string    `json:"masked_key"`
	Key       *string   `json:"api_key,omitempty"`
}

// ToResponse converts an APIKey to its public view with the given mask.
func (k *APIKey) ToResponse(masked string) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		UserID:    k.UserID,
		Vendor:    k.Vendor,
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
		MaskedKey: masked,
	}
}

// APIKeySummary is the short listing used when picking a key for a group.
type APIKeySummary struct {
	ID        int64     `json:"api_key_id"`
	Vendor    string    `json:"vendor"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"create_at"`
	UpdatedAt time.Time `json:"update_at"`
}

// APIKeyUpdate carries optional fields for an update.
// EncryptedKey is filled by the service after encryption.
type APIKeyUpdate struct {
	Vendor       *string
	IsActive     *bool
	EncryptedKey *string
}
