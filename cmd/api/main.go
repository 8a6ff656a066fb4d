// Package main is the entrypoint for the chatbot API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aichatbot/chatbot-api/internal/audit"
	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/cache"
	"github.com/aichatbot/chatbot-api/internal/config"
	"github.com/aichatbot/chatbot-api/internal/handler"
	"github.com/aichatbot/chatbot-api/internal/mailer"
	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/provider"
	"github.com/aichatbot/chatbot-api/internal/repository"
	"github.com/aichatbot/chatbot-api/internal/secret"
	"github.com/aichatbot/chatbot-api/internal/server"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const serviceName = "chatbot-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	mail := initMailer(ctx, cfg, logger)
	recorder := metrics.NewInMemory()

	// Login history goes through the Redis stream when the worker runs,
	// otherwise it is written inline.
	var (
		logins audit.Recorder
		worker *audit.Worker
	)
	if cfg.AuditWorkerEnabled {
		logins = audit.NewPublisher(cacheClient.Client(), repo, logger, recorder)
		worker = audit.NewWorker(cacheClient.Client(), repo, logger, audit.NewConsumerID(), recorder)
	} else {
		logins = audit.NewDirectRecorder(repo, logger)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	verifier := provider.NewVerifier(
		provider.WithProbe(cfg.VendorProbeEnabled),
		provider.WithHTTPClient(provider.NewHTTPClient()),
		provider.WithLogger(logger),
	)

	authService := service.NewAuthService(repo, cacheClient, tokens, logins, cfg.PasswordMaxAge, logger, recorder)
	userService := service.NewUserService(repo, cacheClient, cacheClient, mail,
		mailer.NewComposer(cfg.FrontendURL),
		service.UserConfig{
			VerificationTTL: cfg.VerificationTTL,
			ResetTTL:        cfg.ResetTTL,
			InvitationTTL:   cfg.InvitationTTL,
			PasswordMaxAge:  cfg.PasswordMaxAge,
		},
		logger, recorder)
	apiKeyService := service.NewAPIKeyService(repo, verifier, secret.NewCipher(cfg.JWTSecret, cfg.CryptoSalt), logger, recorder)
	groupService := service.NewGroupService(repo, cacheClient, logger, recorder)
	invitationService := service.NewInvitationService(repo, cacheClient, logger, recorder)

	handlers := routeHandlers{
		root:        handler.New(serviceName, version),
		health:      handler.NewHealthHandler(repo, cacheClient, mail),
		metrics:     handler.NewMetricsHandler(recorder),
		auth:        handler.NewAuthHandler(authService, handler.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.AccessTokenTTL}, logger),
		users:       handler.NewUserHandler(userService, logger),
		apiKeys:     handler.NewAPIKeyHandler(apiKeyService, logger),
		groups:      handler.NewGroupHandler(groupService, invitationService, logger),
		invitations: handler.NewInvitationHandler(invitationService, logger),
		admin:       handler.NewAdminHandler(repo, cacheClient, version, logger),
	}

	r := setupRouter(handlers, authService, tokens, cacheClient, recorder, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: the worker drains before Redis and PostgreSQL close.
	srv.OnShutdown("repository", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("cache", func(context.Context) error {
		return cacheClient.Close()
	})
	if worker != nil {
		go func() {
			if err := worker.Run(context.Background()); err != nil {
				logger.Error("audit worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("audit-worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"email_server", mail.Available(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initMailer returns the SMTP mailer when configured, probing it once so /api/health
// can report its state. Otherwise mail is only logged.
func initMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) mailer.Mailer {
	if !cfg.SMTPEnabled {
		logger.Warn("SMTP disabled, emails will only be logged")
		return mailer.NewLogMailer(logger)
	}

	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Security: cfg.SMTPSecurityMode(),
	}, logger)
	if err != nil {
		logger.Error("invalid SMTP configuration, emails will only be logged", "error", err)
		return mailer.NewLogMailer(logger)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.Check(checkCtx); err != nil {
		logger.Warn("email server unavailable",
			slog.String("host", cfg.SMTPHost),
			slog.String("error", sanitizeError(err, cfg.SMTPPassword)),
		)
	}
	return m
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" || redacted == secret {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
