package smoke

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// MsgLoggedOut is the logout confirmation.
const MsgLoggedOut = "로그아웃 되었습니다"

// AuthSuite checks login and logout with the fixture account.
func AuthSuite() Suite {
	return Suite{
		Name: "auth",
		Checks: []Check{
			{Name: "login_success", Run: checkLoginSuccess},
			{Name: "login_wrong_password", Run: checkLoginWrongPassword},
			{Name: "login_nonexistent_user", Run: checkLoginUnknownUser},
			{Name: "logout", Run: checkLogout},
		},
	}
}

func postLogin(ctx context.Context, f *Fixture, email, password string) (int, map[string]any, error) {
	c, err := f.Client()
	if err != nil {
		return 0, nil, err
	}
	form := url.Values{"username": {email}, "password": {password}}
	resp, err := c.Do(ctx, http.MethodPost, "/api/auth/login", nil, form)
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}
	body, err := decodeObject(resp.Body)
	return resp.StatusCode, body, err
}

func checkLoginSuccess(ctx context.Context, f *Fixture) error {
	code, body, err := postLogin(ctx, f, f.Email, f.Password)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrLoginFailed, code)
	}
	if err := requireKeys(body, "access_token", "user", "password_age"); err != nil {
		return err
	}
	if body["token_type"] != "bearer" {
		return fmt.Errorf("token_type = %v, want bearer", body["token_type"])
	}
	return nil
}

func checkLoginWrongPassword(ctx context.Context, f *Fixture) error {
	code, _, err := postLogin(ctx, f, f.Email, "WrongPassword1!")
	if err != nil {
		return err
	}
	if code != http.StatusUnauthorized {
		return fmt.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
	}
	return nil
}

func checkLoginUnknownUser(ctx context.Context, f *Fixture) error {
	email := "nonexistent_" + strings.ToLower(gofakeit.LetterN(10)) + "@example.com"
	code, _, err := postLogin(ctx, f, email, f.Password)
	if err != nil {
		return err
	}
	if code != http.StatusUnauthorized {
		return fmt.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
	}
	return nil
}

// checkLogout signs out with the session cookie only, as a browser would.
func checkLogout(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	c.SetToken("")

	msg, err := c.Logout(ctx)
	if err != nil {
		return err
	}
	if msg.Message != MsgLoggedOut {
		return fmt.Errorf("message = %q, want %q", msg.Message, MsgLoggedOut)
	}
	return nil
}
