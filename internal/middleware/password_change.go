package middleware

import (
	"net/http"
	"strings"

	"github.com/aichatbot/chatbot-api/internal/auth"
)

// Password age headers attached to responses of users whose password is stale.
const (
	PasswordChangeRequiredHeader = "X-Password-Change-Required"
	PasswordChangeMessageHeader  = "X-Password-Change-Message"

	passwordChangeMessage = "비밀번호를 180일 이상 변경하지 않았습니다. 보안을 위해 비밀번호를 변경해주세요."
)

// DefaultPasswordChangeExcluded are path prefixes that never carry the headers.
var DefaultPasswordChangeExcluded = []string{
	"/api/auth/login",
	"/api/auth/logout",
	"/api/users",
	"/api/health",
	"/healthz",
	"/readyz",
	"/metrics",
}

// ClaimsParser verifies an access token and returns its claims.
type ClaimsParser interface {
	Parse(token string) (*auth.Claims, error)
}

// PasswordChange returns a middleware that flags responses for tokens issued with
// pwd_change_required. It never rejects a request; invalid or missing tokens pass
// through untouched and are left to the Auth middleware.
func PasswordChange(parser ClaimsParser, excluded []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path, excluded) {
				next.ServeHTTP(w, r)
				return
			}

			if token := BearerToken(r); token != "" {
				if claims, err := parser.Parse(token); err == nil && claims.PasswordChangeRequired {
					w.Header().Set(PasswordChangeRequiredHeader, "true")
					w.Header().Set(PasswordChangeMessageHeader, passwordChangeMessage)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isExcludedPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
