// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/middleware"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const (
	msgInvalidJSON   = "요청 본문이 올바른 JSON 형식이 아닙니다."
	msgBodyTooLarge  = "요청 본문이 너무 큽니다."
	msgInternalError = "서버 내부 오류가 발생했습니다."
)

// Handler serves the unauthenticated root endpoints.
type Handler struct {
	name    string
	version string
}

// New creates a new Handler instance.
func New(name, version string) *Handler {
	return &Handler{name: name, version: version}
}

// Root reports the service name and version.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    h.name,
		"version": h.version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, dto.ErrorResponse{Detail: detail})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: msg})
}

// decodeJSON decodes the request body into v. It writes the error response
// itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return true
	case middleware.IsBodyTooLarge(err):
		writeDetail(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	default:
		writeDetail(w, http.StatusUnprocessableEntity, msgInvalidJSON)
	}
	return false
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, name+" 값이 올바르지 않습니다.")
		return 0, false
	}
	return id, true
}

// errorStatus maps a service sentinel to its HTTP status.
var errorStatus = map[error]int{
	service.ErrInvalidCredentials: http.StatusUnauthorized,
	service.ErrTokenInvalid:       http.StatusUnauthorized,
	service.ErrAccountDisabled:    http.StatusForbidden,

	service.ErrEmailExists:         http.StatusBadRequest,
	service.ErrUserNotFound:        http.StatusNotFound,
	service.ErrWrongPassword:       http.StatusBadRequest,
	service.ErrVerificationInvalid: http.StatusBadRequest,
	service.ErrResetTokenInvalid:   http.StatusBadRequest,
	service.ErrNotGroupOwner:       http.StatusForbidden,

	service.ErrAPIKeyNotFound:  http.StatusNotFound,
	service.ErrAPIKeyNotOwned:  http.StatusForbidden,
	service.ErrAPIKeyInUse:     http.StatusConflict,
	service.ErrAPIKeyCorrupted: http.StatusInternalServerError,

	service.ErrGroupNotFound:       http.StatusNotFound,
	service.ErrGroupAccessDenied:   http.StatusForbidden,
	service.ErrMemberNotFound:      http.StatusNotFound,
	service.ErrMemberUserNotFound:  http.StatusNotFound,
	service.ErrMemberAlreadyActive: http.StatusBadRequest,
	service.ErrOwnerNotRemovable:   http.StatusBadRequest,

	service.ErrInvitationNotFound:      http.StatusNotFound,
	service.ErrInviteeNotFound:         http.StatusNotFound,
	service.ErrInviteSelf:              http.StatusBadRequest,
	service.ErrAlreadyActiveMember:     http.StatusBadRequest,
	service.ErrAlreadyJoined:           http.StatusBadRequest,
	service.ErrInvitationTokenInvalid:  http.StatusBadRequest,
	service.ErrInvitationTokenExpired:  http.StatusBadRequest,
	service.ErrInvitationEmailMismatch: http.StatusForbidden,
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		verr *service.ValidationError
		ferr *service.ForbiddenError
		rerr *service.RequestError
	)
	switch {
	case errors.As(err, &verr):
		writeDetail(w, http.StatusUnprocessableEntity, verr.Message)
		return
	case errors.As(err, &ferr):
		writeDetail(w, http.StatusForbidden, ferr.Message)
		return
	case errors.As(err, &rerr):
		writeDetail(w, http.StatusBadRequest, rerr.Message)
		return
	}

	for sentinel, status := range errorStatus {
		if !errors.Is(err, sentinel) {
			continue
		}
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "internal_error",
				"error", err,
				"request_id", middleware.GetRequestID(r.Context()),
			)
		}
		writeDetail(w, status, sentinel.Error())
		return
	}

	logger.ErrorContext(r.Context(), "internal_error",
		"error", err,
		"endpoint", r.Method+" "+r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeDetail(w, http.StatusInternalServerError, msgInternalError)
}
