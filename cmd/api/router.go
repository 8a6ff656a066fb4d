package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/aichatbot/chatbot-api/internal/config"
	"github.com/aichatbot/chatbot-api/internal/handler"
	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/middleware"
)

type routeHandlers struct {
	root        *handler.Handler
	health      *handler.HealthHandler
	metrics     *handler.MetricsHandler
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	apiKeys     *handler.APIKeyHandler
	groups      *handler.GroupHandler
	invitations *handler.InvitationHandler
	admin       *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routeHandlers,
	authn middleware.Authenticator,
	claims middleware.ClaimsParser,
	limiter middleware.LoginLimiter,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(cors))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.PasswordChange(claims, middleware.DefaultPasswordChangeExcluded))

	r.Get("/", h.root.Root)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Logger:        logger,
		Authenticator: authn,
	})
	loginLimit := middleware.RateLimitLogin(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: limiter,
		Metrics: recorder,
		Enabled: cfg.RateLimitLoginEnabled,
		RPS:     float64(cfg.RateLimitLoginRPS),
		Burst:   cfg.RateLimitLoginBurst,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health.Health)

		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", h.auth.Login)
			r.Post("/logout", h.auth.Logout)
		})

		// Account creation and recovery work without a session.
		r.Post("/users", h.users.Register)
		r.Post("/users/verify-email", h.users.VerifyEmail)
		r.Post("/users/reset-password/request", h.users.RequestPasswordReset)
		r.Post("/users/reset-password", h.users.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			// Flat paths: a /users sub-router would shadow POST /api/users.
			r.Get("/users/me", h.users.Me)
			r.Put("/users/me", h.users.UpdateMe)
			r.Delete("/users/me", h.users.Delete)
			r.Put("/users/me/password", h.users.ChangePassword)
			r.Get("/users/me/password-status", h.users.PasswordStatus)
			r.Get("/users/search", h.users.Search)
			r.Post("/users/invite", h.users.Invite)

			r.Route("/api-keys", func(r chi.Router) {
				r.Post("/", h.apiKeys.Create)
				r.Get("/", h.apiKeys.List)
				r.Post("/verify", h.apiKeys.Verify)
				r.Get("/{id}", h.apiKeys.Get)
				r.Put("/{id}", h.apiKeys.Update)
				r.Delete("/{id}", h.apiKeys.Delete)
			})
			r.Get("/user/api-keys", h.apiKeys.Owned)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.groups.Create)
				r.Get("/", h.groups.List)
				r.Post("/accept-invitation", h.groups.AcceptEmailInvitation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.groups.Get)
					r.Put("/", h.groups.Update)
					r.Delete("/", h.groups.Delete)

					r.Post("/members", h.groups.AddMember)
					r.Put("/members/{mid}", h.groups.UpdateMember)
					r.Delete("/members/{mid}", h.groups.RemoveMember)
					r.Post("/members/{mid}/approve", h.groups.ApproveMember)
					r.Get("/pending-members", h.groups.PendingMembers)

					r.Post("/invite-user", h.invitations.InviteUser)
					r.Get("/invitations", h.invitations.ListForGroup)
				})
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", h.invitations.ListMine)
				r.Post("/{id}/accept", h.invitations.Accept)
				r.Post("/{id}/decline", h.invitations.Decline)
				r.Post("/{id}/cancel", h.invitations.Cancel)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/users", h.admin.LookupUser)
				r.Put("/users/{id}/activate", h.admin.Activate)
				r.Put("/users/{id}/deactivate", h.admin.Deactivate)
				r.Get("/stats", h.admin.Stats)
			})
		})
	})

	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}
