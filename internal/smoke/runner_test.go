package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureEmail    = "test@example.com"
	fixturePassword = "TestPassword1!"
	inviteeEmail    = "invitee@example.com"
	inviteePassword = "InviteePass1!"
)

func newFixture(baseURL string) *Fixture {
	return &Fixture{
		BaseURL:         baseURL,
		Email:           fixtureEmail,
		Password:        fixturePassword,
		Timeout:         5 * time.Second,
		InviteeEmail:    inviteeEmail,
		InviteePassword: inviteePassword,
	}
}

func resultsByName(r *Report) map[string]Result {
	out := make(map[string]Result, len(r.Results))
	for _, res := range r.Results {
		out[res.Suite+"/"+res.Check] = res
	}
	return out
}

func TestRunAllSuites(t *testing.T) {
	api, srv := newFakeAPI(t, fixtureEmail, fixturePassword)
	runner := &Runner{Fixture: newFixture(srv.URL)}

	report := runner.Run(context.Background(), Suites())

	for _, res := range report.Results {
		assert.Equal(t, StatusPass, res.Status, "%s/%s: %s", res.Suite, res.Check, res.Error)
	}
	assert.True(t, report.OK())
	assert.Equal(t, 35, report.Count(StatusPass))
	assert.Equal(t, fixturePassword, api.password(fixtureEmail), "fixture password must be restored")
	assert.Empty(t, api.activeGroups(), "throwaway groups must be deleted")
}

func TestRunWithoutInvitee(t *testing.T) {
	_, srv := newFakeAPI(t, fixtureEmail, fixturePassword)
	f := newFixture(srv.URL)
	f.InviteeEmail = ""

	suites, err := Select("invitation")
	require.NoError(t, err)
	report := (&Runner{Fixture: f}).Run(context.Background(), suites)
	results := resultsByName(report)

	assert.True(t, report.OK())
	for _, name := range []string{"invitation/accept_invitation", "invitation/decline_invitation"} {
		assert.Equal(t, StatusSkip, results[name].Status, name)
		assert.Equal(t, "skipped: no invitee account configured", results[name].Error, name)
	}
	assert.Equal(t, StatusPass, results["invitation/cancel_invitation"].Status)
}

func TestRunWithRejectedKeys(t *testing.T) {
	api, srv := newFakeAPI(t, fixtureEmail, fixturePassword)
	api.mu.Lock()
	api.rejectKeys = true
	api.mu.Unlock()

	suites, err := Select("apikey")
	require.NoError(t, err)
	report := (&Runner{Fixture: newFixture(srv.URL)}).Run(context.Background(), suites)
	results := resultsByName(report)

	assert.True(t, report.OK())
	for _, name := range []string{"apikey/create_api_key", "apikey/list_api_keys", "apikey/get_api_key", "apikey/update_api_key", "apikey/delete_api_key"} {
		assert.Equal(t, StatusSkip, results[name].Status, name)
		assert.Contains(t, results[name].Error, "provider rejected the test key", name)
	}
	assert.Equal(t, StatusPass, results["apikey/verify_api_key"].Status)
	assert.Equal(t, StatusPass, results["apikey/owned_api_keys"].Status)
}

func TestRunWithStaleCredentials(t *testing.T) {
	_, srv := newFakeAPI(t, fixtureEmail, "SomethingElse9#")
	runner := &Runner{Fixture: newFixture(srv.URL)}

	report := runner.Run(context.Background(), Suites())
	results := resultsByName(report)

	assert.False(t, report.OK())
	assert.Equal(t, StatusFail, results["auth/login_success"].Status)
	assert.Equal(t, "login failed: 401", results["auth/login_success"].Error)

	for _, name := range []string{"user/get_current_user", "user/update_user", "user/update_password", "user/password_status", "auth/logout"} {
		assert.Equal(t, StatusFail, results[name].Status, name)
		assert.Contains(t, results[name].Error, "login failed: 401", name)
	}

	// Checks that never sign in are unaffected.
	assert.Equal(t, StatusPass, results["health/health_check"].Status)
	assert.Equal(t, StatusPass, results["user/register_user"].Status)
	assert.Equal(t, StatusPass, results["auth/login_wrong_password"].Status)
}

func TestRunUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	runner := &Runner{Fixture: newFixture(url)}
	report := runner.Run(context.Background(), Suites())

	assert.Equal(t, len(report.Results), report.Count(StatusFail))
}

func TestRunnerOutcomes(t *testing.T) {
	suite := Suite{
		Name: "unit",
		Checks: []Check{
			{Name: "pass", Run: func(context.Context, *Fixture) error { return nil }},
			{Name: "skip", Run: func(context.Context, *Fixture) error { return Skipf("needs %s", "smtp") }},
			{Name: "fail", Run: func(context.Context, *Fixture) error { return errors.New("boom") }},
			{Name: "panic", Run: func(context.Context, *Fixture) error { panic("oops") }},
			{Name: "slow", Run: func(ctx context.Context, _ *Fixture) error {
				<-ctx.Done()
				return ctx.Err()
			}},
		},
	}

	runner := &Runner{Fixture: newFixture("http://localhost:1"), CheckTimeout: 20 * time.Millisecond}
	report := runner.Run(context.Background(), []Suite{suite})
	results := resultsByName(report)

	assert.Equal(t, StatusPass, results["unit/pass"].Status)
	assert.Equal(t, StatusSkip, results["unit/skip"].Status)
	assert.Equal(t, "skipped: needs smtp", results["unit/skip"].Error)
	assert.Equal(t, StatusFail, results["unit/fail"].Status)
	assert.Equal(t, "panic: oops", results["unit/panic"].Error)
	assert.Equal(t, StatusFail, results["unit/slow"].Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), results["unit/slow"].Error)
	assert.False(t, report.OK())
}

func TestRunnerFailFastAndCancel(t *testing.T) {
	calls := 0
	count := func(context.Context, *Fixture) error { calls++; return nil }
	suite := Suite{Name: "s", Checks: []Check{
		{Name: "a", Run: func(context.Context, *Fixture) error { return errors.New("first") }},
		{Name: "b", Run: count},
	}}

	runner := &Runner{Fixture: newFixture("http://localhost:1"), FailFast: true}
	report := runner.Run(context.Background(), []Suite{suite})
	assert.Zero(t, calls)
	assert.Equal(t, 1, report.Count(StatusSkip))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report = (&Runner{Fixture: newFixture("http://localhost:1")}).Run(ctx, []Suite{suite})
	assert.Zero(t, calls)
	assert.Equal(t, 2, report.Count(StatusSkip))
}

func TestSelect(t *testing.T) {
	all, err := Select()
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "health", all[0].Name)
	assert.Equal(t, "invitation", all[5].Name)

	picked, err := Select("user", " AUTH ", "user")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "user", picked[0].Name)
	assert.Equal(t, "auth", picked[1].Name)

	_, err = Select("auth", "webhooks", "billing")
	assert.ErrorIs(t, err, ErrUnknownSuite)
	assert.EqualError(t, err, "unknown suite: billing, webhooks")
}

func TestReportOutput(t *testing.T) {
	report := &Report{
		BaseURL:  "http://localhost:8000",
		Duration: 1500 * time.Millisecond,
		Results: []Result{
			{Suite: "auth", Check: "login_success", Status: StatusPass, Duration: 12 * time.Millisecond},
			{Suite: "auth", Check: "logout", Status: StatusFail, Error: "login failed: 401"},
		},
	}

	var text bytes.Buffer
	require.NoError(t, report.WriteText(&text))
	assert.Contains(t, text.String(), "auth/login_success")
	assert.Contains(t, text.String(), "login failed: 401")
	assert.Contains(t, text.String(), "1 passed, 1 failed, 0 skipped in 1.5s")

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.Results, decoded.Results)
}

func TestLoadFixture(t *testing.T) {
	t.Setenv("CHATBOT_BASE_URL", "https://chatbot.example.com")
	t.Setenv("CHATBOT_TEST_EMAIL", "qa@example.com")
	t.Setenv("CHATBOT_TEST_TIMEOUT", "3s")
	t.Setenv("CHATBOT_INVITEE_EMAIL", "second@example.com")

	f, err := LoadFixture()
	require.NoError(t, err)
	assert.Equal(t, "https://chatbot.example.com", f.BaseURL)
	assert.Equal(t, "qa@example.com", f.Email)
	assert.Equal(t, fixturePassword, f.Password)
	assert.Equal(t, 3*time.Second, f.Timeout)
	assert.Equal(t, "second@example.com", f.InviteeEmail)
	assert.Equal(t, fixturePassword, f.InviteePassword)
}
