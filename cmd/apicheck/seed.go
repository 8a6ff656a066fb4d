package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

const maxUsernameLength = 20

// userSeeder is the part of the repository the seed command writes through.
type userSeeder interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User, passwordHash string) error
	UpdatePassword(ctx context.Context, userID int64, hash string, rehash bool) error
	SetUserActive(ctx context.Context, id int64, active bool) error
}

func newSeedCmd(opts *options) *cobra.Command {
	var (
		databaseURL string
		username    string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision the test account in PostgreSQL",
		Long: `Creates the test account directly in the database, active and with the
given password, so authenticated checks can sign in without email verification.
An existing account is reactivated and its password reset. With --invitee-email
the second account used by the invitation checks is provisioned as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}

			repo, err := repository.New(cmd.Context(), databaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer repo.Close()

			created, err := seedUser(cmd.Context(), repo, opts.email, username, opts.password)
			if err != nil {
				return err
			}
			reportSeed(cmd, "test account", opts.email, created)

			if opts.inviteeEmail == "" {
				return nil
			}
			created, err = seedUser(cmd.Context(), repo, opts.inviteeEmail, "", opts.inviteePassword)
			if err != nil {
				return fmt.Errorf("invitee: %w", err)
			}
			reportSeed(cmd, "invitee account", opts.inviteeEmail, created)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (env DATABASE_URL)")
	cmd.Flags().StringVar(&username, "username", "", "username for a new account (default: email local part)")
	return cmd
}

// seedUser makes sure an active account with the password exists and reports
// whether it had to be created.
func seedUser(ctx context.Context, store userSeeder, email, username, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, errors.New("email is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("password rejected by policy: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := store.UpdatePassword(ctx, existing.ID, hash, false); err != nil {
			return false, fmt.Errorf("failed to reset password: %w", err)
		}
		if !existing.IsActive {
			if err := store.SetUserActive(ctx, existing.ID, true); err != nil {
				return false, fmt.Errorf("failed to activate account: %w", err)
			}
		}
		return false, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return false, fmt.Errorf("failed to look up account: %w", err)
	}

	if username == "" {
		username = defaultUsername(email)
	}
	user := &model.User{Email: email, Username: username, IsActive: true}
	if err := store.CreateUser(ctx, user, hash); err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	return true, nil
}

func reportSeed(cmd *cobra.Command, what, email string, created bool) {
	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", verb, what, email)
}

func defaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	runes := []rune(local)
	if len(runes) < 2 {
		return "testuser"
	}
	if len(runes) > maxUsernameLength {
		runes = runes[:maxUsernameLength]
	}
	return string(runes)
}
