package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Message
}

// withUser attaches an authenticated principal the way the Auth middleware does.
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{User: user}))
}

// withParams sets chi URL parameters on the request.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_Root(t *testing.T) {
	h := New("chatbot-api", "1.2.3")

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "chatbot-api", body["name"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := New("chatbot-api", "dev")

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeDetail(t, rec))

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", decodeDetail(t, rec))
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", &service.ValidationError{Field: "email", Message: "이메일 형식이 올바르지 않습니다."}, http.StatusUnprocessableEntity, "이메일 형식이 올바르지 않습니다."},
		{"forbidden", &service.ForbiddenError{Message: "그룹 정보를 수정할 권한이 없습니다."}, http.StatusForbidden, "그룹 정보를 수정할 권한이 없습니다."},
		{"request", &service.RequestError{Message: "이미 수락한 초대입니다."}, http.StatusBadRequest, "이미 수락한 초대입니다."},
		{"wrapped_sentinel", fmt.Errorf("load: %w", service.ErrGroupNotFound), http.StatusNotFound, service.ErrGroupNotFound.Error()},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, service.ErrInvalidCredentials.Error()},
		{"in_use", service.ErrAPIKeyInUse, http.StatusConflict, service.ErrAPIKeyInUse.Error()},
		{"email_mismatch", service.ErrInvitationEmailMismatch, http.StatusForbidden, service.ErrInvitationEmailMismatch.Error()},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, msgInternalError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

			handleServiceError(rec, req, discardLogger(), test.err)

			assert.Equal(t, test.wantStatus, rec.Code)
			assert.Equal(t, test.wantDetail, decodeDetail(t, rec))
			if test.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	ok := decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`)), &v)
	assert.True(t, ok)
	assert.Equal(t, "a", v.Name)

	rec = httptest.NewRecorder()
	ok = decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`)), &v)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, msgInvalidJSON, decodeDetail(t, rec))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	ok = decodeJSON(rec, req, &v)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value  string
		wantID int64
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}

	for _, test := range tests {
		t.Run(test.value, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", test.value)

			id, ok := pathID(rec, req, "id")
			assert.Equal(t, test.wantOK, ok)
			assert.Equal(t, test.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
				assert.Equal(t, "id 값이 올바르지 않습니다.", decodeDetail(t, rec))
			}
		})
	}
}
