package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const msgAPIKeyDeleted = "API 키가 성공적으로 삭제되었습니다."

// APIKeyService is the key management surface used by APIKeyHandler.
type APIKeyService interface {
	Create(ctx context.Context, userID int64, in service.CreateAPIKeyInput) (*model.APIKeyResponse, error)
	List(ctx context.Context, userID int64) ([]model.APIKeyResponse, error)
	Detail(ctx context.Context, userID, id int64) (*model.APIKeyResponse, error)
	Update(ctx context.Context, userID, id int64, in service.UpdateAPIKeyInput) (*model.APIKeyResponse, error)
	Delete(ctx context.Context, userID, id int64) error
	Verify(ctx context.Context, vendor, key string) (*service.VerifyResult, error)
	OwnedKeys(ctx context.Context, userID int64) ([]model.APIKeySummary, error)
}

// APIKeyHandler handles /api/api-keys endpoints.
type APIKeyHandler struct {
	svc    APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, logger: logger}
}

// Create handles POST /api/api-keys.
// The key is verified against its vendor before it is stored.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key, err := h.svc.Create(r.Context(), currentUserID(r), service.CreateAPIKeyInput{
		Vendor:   req.Vendor,
		APIKey:   req.APIKey,
		IsActive: req.IsActive,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// List handles GET /api/api-keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// Get handles GET /api/api-keys/{id}. Only here is the decrypted key returned.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	key, err := h.svc.Detail(r.Context(), currentUserID(r), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Update handles PUT /api/api-keys/{id}.
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key, err := h.svc.Update(r.Context(), currentUserID(r), id, service.UpdateAPIKeyInput{
		Vendor:   req.Vendor,
		IsActive: req.IsActive,
		APIKey:   req.APIKey,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Delete handles DELETE /api/api-keys/{id}.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), currentUserID(r), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, msgAPIKeyDeleted)
}

// Verify handles POST /api/api-keys/verify. Nothing is stored.
func (h *APIKeyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Verify(r.Context(), req.Vendor, req.APIKey)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Owned handles GET /api/user/api-keys, the key picker used when creating groups.
func (h *APIKeyHandler) Owned(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.OwnedKeys(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}
