package auth

import (
	"context"

	"github.com/aichatbot/chatbot-api/internal/model"
)

type principalKey struct{}

// ContextWithAuth returns a copy of ctx carrying the authenticated principal.
func ContextWithAuth(ctx context.Context, principal *model.AuthContext) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// AuthFromContext returns the principal stored by ContextWithAuth, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	principal, _ := ctx.Value(principalKey{}).(*model.AuthContext)
	return principal
}

// MustAuthFromContext is AuthFromContext for handlers mounted behind the auth
// middleware. It panics when no principal is present.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	if principal := AuthFromContext(ctx); principal != nil {
		return principal
	}
	panic("auth: no principal in context; route is missing the auth middleware")
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *model.User {
	if principal := AuthFromContext(ctx); principal != nil {
		return principal.User
	}
	return nil
}
