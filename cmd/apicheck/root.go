package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aichatbot/chatbot-api/internal/smoke"
)

// options are the flags shared by every command.
type options struct {
	baseURL  string
	email    string
	password string
	timeout  time.Duration
	json     bool
	verbose  bool

	inviteeEmail    string
	inviteePassword string
}

func (o *options) fixture() *smoke.Fixture {
	return &smoke.Fixture{
		BaseURL:  o.baseURL,
		Email:    o.email,
		Password: o.password,
		Timeout:  o.timeout,

		InviteeEmail:    o.inviteeEmail,
		InviteePassword: o.inviteePassword,
	}
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	// Flag defaults come from CHATBOT_* variables. An invalid value there
	// falls back to the built-in default.
	defaults, err := smoke.LoadFixture()
	if err != nil {
		defaults = &smoke.Fixture{
			BaseURL:  "http://localhost:8000",
			Email:    "test@example.com",
			Password: "TestPassword1!",
			Timeout:  10 * time.Second,

			InviteePassword: "TestPassword1!",
		}
	}

	cmd := &cobra.Command{
		Use:   "apicheck",
		Short: "End-to-end checks for the chatbot API",
		Long: `apicheck drives a running chatbot API over HTTP the way its web client
does and reports which checks pass. Authenticated checks sign in with a test
account that must exist in the target database; "apicheck seed" creates it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("apicheck version {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "API base URL (env CHATBOT_BASE_URL)")
	flags.StringVar(&opts.email, "email", defaults.Email, "test account email (env CHATBOT_TEST_EMAIL)")
	flags.StringVar(&opts.password, "password", defaults.Password, "test account password (env CHATBOT_TEST_PASSWORD)")
	flags.StringVar(&opts.inviteeEmail, "invitee-email", defaults.InviteeEmail, "second account for invitation checks (env CHATBOT_INVITEE_EMAIL)")
	flags.StringVar(&opts.inviteePassword, "invitee-password", defaults.InviteePassword, "second account password (env CHATBOT_INVITEE_PASSWORD)")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "per-request timeout (env CHATBOT_TEST_TIMEOUT)")
	flags.BoolVar(&opts.json, "json", false, "print results as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every check as it finishes")

	cmd.AddCommand(newRunCmd(opts), newListCmd(opts), newSeedCmd(opts))
	return cmd
}
