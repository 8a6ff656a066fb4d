package middleware

import (
	"net/http"

	"github.com/aichatbot/chatbot-api/internal/auth"
)

const msgAdminOnly = "해당 작업에 대한 권한이 없습니다. 관리자만 가능합니다."

// RequireAdmin returns middleware that only lets administrators through.
// Must be applied after Auth middleware.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				writeAuthError(w)
				return
			}
			if !user.IsAdmin {
				writeDetail(w, http.StatusForbidden, msgAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
