// Package smoke runs end-to-end checks against a live chatbot API deployment.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
)

// Fixture is the shared setup of every check: where the API lives and which
// provisioned account to sign in with.
type Fixture struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration

	// InviteeEmail and InviteePassword name a second account that answers
	// invitations. Checks that need it skip when InviteeEmail is empty.
	InviteeEmail    string
	InviteePassword string

	// HTTPClient, when set, backs every client the fixture creates. Each
	// client still gets its own cookie jar.
	HTTPClient *http.Client
}

type fixtureEnv struct {
	BaseURL  string        `env:"CHATBOT_BASE_URL" envDefault:"http://localhost:8000"`
	Email    string        `env:"CHATBOT_TEST_EMAIL" envDefault:"test@example.com"`
	Password string        `env:"CHATBOT_TEST_PASSWORD" envDefault:"TestPassword1!"`
	Timeout  time.Duration `env:"CHATBOT_TEST_TIMEOUT" envDefault:"10s"`

	InviteeEmail    string `env:"CHATBOT_INVITEE_EMAIL"`
	InviteePassword string `env:"CHATBOT_INVITEE_PASSWORD" envDefault:"TestPassword1!"`
}

// LoadFixture reads the fixture from the environment.
func LoadFixture() (*Fixture, error) {
	var e fixtureEnv
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &Fixture{
		BaseURL:  e.BaseURL,
		Email:    e.Email,
		Password: e.Password,
		Timeout:  e.Timeout,

		InviteeEmail:    e.InviteeEmail,
		InviteePassword: e.InviteePassword,
	}, nil
}

// Client returns a fresh, anonymous client.
func (f *Fixture) Client(opts ...apiclient.Option) (*apiclient.Client, error) {
	base := []apiclient.Option{apiclient.WithUserAgent("apicheck/1.0")}
	if f.HTTPClient != nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc := *f.HTTPClient
		hc.Jar = jar
		base = append(base, apiclient.WithHTTPClient(&hc))
	}
	if f.Timeout > 0 {
		base = append(base, apiclient.WithTimeout(f.Timeout))
	}
	return apiclient.New(f.BaseURL, append(base, opts...)...)
}

const cleanupTimeout = 10 * time.Second

// ErrLoginFailed is returned when the fixture account cannot sign in.
var ErrLoginFailed = errors.New("login failed")

// Login returns a client signed in as the fixture account.
func (f *Fixture) Login(ctx context.Context) (*apiclient.Client, error) {
	return f.signIn(ctx, f.Email, f.Password)
}

// LoginInvitee returns a client signed in as the invitee account, or a skip
// when none is configured.
func (f *Fixture) LoginInvitee(ctx context.Context) (*apiclient.Client, error) {
	if f.InviteeEmail == "" {
		return nil, Skipf("no invitee account configured")
	}
	return f.signIn(ctx, f.InviteeEmail, f.InviteePassword)
}

func (f *Fixture) signIn(ctx context.Context, email, password string) (*apiclient.Client, error) {
	c, err := f.Client()
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, email, password); err != nil {
		if code := apiclient.StatusCode(err); code != 0 {
			return nil, fmt.Errorf("%w: %d", ErrLoginFailed, code)
		}
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return c, nil
}

// cleanupContext outlives the check's own deadline so throwaway resources
// are still removed after a timeout.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}
