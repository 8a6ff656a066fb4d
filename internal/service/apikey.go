package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/provider"
	"github.com/aichatbot/chatbot-api/internal/repository"
	"github.com/aichatbot/chatbot-api/internal/secret"
)

// MsgAPIKeyValid is returned by Verify for an accepted key.
const MsgAPIKeyValid = "API 키가 유효합니다."

const minAPIKeyLength = 5

// APIKeyStore is the persistence APIKeyService needs.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID int64) ([]*model.APIKey, error)
	UpdateAPIKey(ctx context.Context, id int64, upd model.APIKeyUpdate) (*model.APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) error
	ListOwnedAPIKeys(ctx context.Context, userID int64) ([]model.APIKeySummary, error)
}

// KeyVerifier checks a vendor key. *provider.Verifier implements it.
type KeyVerifier interface {
	Verify(ctx context.Context, vendor, key string) (bool, string)
}

// APIKeyService manages users' AI vendor keys.
type APIKeyService struct {
	store    APIKeyStore
	verifier KeyVerifier
	cipher   *secret.Cipher
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(store APIKeyStore, verifier KeyVerifier, cipher *secret.Cipher, logger *slog.Logger, recorder metrics.Recorder) *APIKeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &APIKeyService{
		store:    store,
		verifier: verifier,
		cipher:   cipher,
		logger:   logger,
		metrics:  recorder,
	}
}

// CreateAPIKeyInput defines input for registering a key.
type CreateAPIKeyInput struct {
	Vendor   string
	APIKey   string
	IsActive *bool
}

// Create verifies and stores a new key for the user.
func (s *APIKeyService) Create(ctx context.Context, userID int64, in CreateAPIKeyInput) (*model.APIKeyResponse, error) {
	vendor, err := parseVendor(in.Vendor)
	if err != nil {
		return nil, err
	}
	if err := validateKeyValue(in.APIKey); err != nil {
		return nil, err
	}
	if err := s.verify(ctx, vendor, in.APIKey); err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(in.APIKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt key: %w", err)
	}

	key := &model.APIKey{
		UserID:       userID,
		Vendor:       vendor,
		EncryptedKey: encrypted,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}

	s.logger.InfoContext(ctx, "api_key_created", "api_key_id", key.ID, "user_id", userID, "vendor", vendor)

	resp := key.ToResponse(secret.Mask(in.APIKey))
	return &resp, nil
}

// List returns the user's keys with masked values.
func (s *APIKeyService) List(ctx context.Context, userID int64) ([]model.APIKeyResponse, error) {
	keys, err := s.store.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	out := make([]model.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.ToResponse(s.mask(ctx, k)))
	}
	return out, nil
}

// Detail returns one key with its decrypted value. Only the owner may read it.
func (s *APIKeyService) Detail(ctx context.Context, userID, id int64) (*model.APIKeyResponse, error) {
	key, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	plain, err := s.cipher.Decrypt(key.EncryptedKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to decrypt api key", "api_key_id", id, "error", err)
		return nil, ErrAPIKeyCorrupted
	}

	resp := key.ToResponse(secret.Mask(plain))
	resp.Key = &plain
	return &resp, nil
}

// UpdateAPIKeyInput carries optional fields for a key update.
type UpdateAPIKeyInput struct {
	Vendor   *string
	IsActive *bool
	APIKey   *string
}

// Update changes a key. A new key value is verified before it is stored.
func (s *APIKeyService) Update(ctx context.Context, userID, id int64, in UpdateAPIKeyInput) (*model.APIKeyResponse, error) {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	upd := model.APIKeyUpdate{IsActive: in.IsActive}
	vendor := existing.Vendor
	if in.Vendor != nil {
		v, err := parseVendor(*in.Vendor)
		if err != nil {
			return nil, err
		}
		vendor = v
		upd.Vendor = &v
	}

	var masked string
	if in.APIKey != nil && *in.APIKey != "" {
		if err := validateKeyValue(*in.APIKey); err != nil {
			return nil, err
		}
		if err := s.verify(ctx, vendor, *in.APIKey); err != nil {
			return nil, err
		}
		encrypted, err := s.cipher.Encrypt(*in.APIKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt key: %w", err)
		}
		upd.EncryptedKey = &encrypted
		masked = secret.Mask(*in.APIKey)
	}

	key, err := s.store.UpdateAPIKey(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("update key: %w", err)
	}
	if masked == "" {
		masked = s.mask(ctx, key)
	}

	s.logger.InfoContext(ctx, "api_key_updated", "api_key_id", id, "key_replaced", upd.EncryptedKey != nil)

	resp := key.ToResponse(masked)
	return &resp, nil
}

// Delete removes a key that no active group uses.
func (s *APIKeyService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrAPIKeyInUse):
			return ErrAPIKeyInUse
		case errors.Is(err, repository.ErrAPIKeyNotFound):
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("delete key: %w", err)
	}

	s.logger.InfoContext(ctx, "api_key_deleted", "api_key_id", id)
	return nil
}

// VerifyResult is the outcome of a standalone key check.
type VerifyResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// Verify checks a key without storing it.
func (s *APIKeyService) Verify(ctx context.Context, vendor, key string) (*VerifyResult, error) {
	if err := validateKeyValue(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(vendor) == "" {
		return nil, invalid("vendor", "vendor는 필수입니다.")
	}

	ok, msg := s.verifier.Verify(ctx, vendor, key)
	s.metrics.IncAPIKeyVerification(ok)
	if ok {
		return &VerifyResult{IsValid: true, Message: MsgAPIKeyValid}, nil
	}
	if msg == "" {
		msg = provider.MsgInvalidKey
	}
	return &VerifyResult{IsValid: false, Message: msg}, nil
}

// OwnedKeys lists the user's keys for picking one when creating a group.
func (s *APIKeyService) OwnedKeys(ctx context.Context, userID int64) ([]model.APIKeySummary, error) {
	keys, err := s.store.ListOwnedAPIKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned keys: %w", err)
	}
	return keys, nil
}

func (s *APIKeyService) owned(ctx context.Context, userID, id int64) (*model.APIKey, error) {
	key, err := s.store.GetAPIKeyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get key: %w", err)
	}
	if key.UserID != userID {
		return nil, ErrAPIKeyNotOwned
	}
	return key, nil
}

func (s *APIKeyService) verify(ctx context.Context, vendor, key string) error {
	ok, msg := s.verifier.Verify(ctx, vendor, key)
	s.metrics.IncAPIKeyVerification(ok)
	if ok {
		return nil
	}
	if msg == "" {
		msg = provider.MsgInvalidKey
	}
	return badRequest("%s", msg)
}

func (s *APIKeyService) mask(ctx context.Context, k *model.APIKey) string {
	plain, err := s.cipher.Decrypt(k.EncryptedKey)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to decrypt api key", "api_key_id", k.ID, "error", err)
		return ""
	}
	return secret.Mask(plain)
}

func parseVendor(v string) (string, error) {
	vendor, ok := model.NormalizeVendor(v)
	if !ok {
		return "", invalid("vendor", provider.MsgUnsupportedVendor+" 지원 제공사: "+strings.Join(model.ValidVendors, ", "))
	}
	return vendor, nil
}

func validateKeyValue(key string) error {
	if len(key) < minAPIKeyLength {
		return invalid("api_key", fmt.Sprintf("API 키는 최소 %d자 이상이어야 합니다.", minAPIKeyLength))
	}
	return nil
}
