package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
)

const (
	// MsgPasswordChanged is contained in a successful password change answer.
	MsgPasswordChanged = "비밀번호가 성공적으로 변경되었습니다"
	// MsgDuplicateEmail is contained in the duplicate registration answer.
	MsgDuplicateEmail = "이미 등록된 이메일"

	temporaryPassword = "NewTestPassword2@"
	updatedDesc       = "Updated user description"
)

// UserSuite checks registration and the profile of the fixture account.
// change_password restores the fixture password before it returns.
func UserSuite() Suite {
	return Suite{
		Name: "user",
		Checks: []Check{
			{Name: "register_user", Run: checkRegister},
			{Name: "register_duplicate_email", Run: checkRegisterDuplicate},
			{Name: "register_invalid_password", Run: checkRegisterInvalidPassword},
			{Name: "get_current_user", Run: checkMe},
			{Name: "update_user", Run: checkUpdateMe},
			{Name: "update_password", Run: checkChangePassword},
			{Name: "password_status", Run: checkPasswordStatus},
			{Name: "delete_account", Run: checkDeleteAccount},
		},
	}
}

// randomRegistration returns a fresh account that fits the server's limits.
func randomRegistration() apiclient.RegisterRequest {
	suffix := strings.ToLower(gofakeit.LetterN(10))
	return apiclient.RegisterRequest{
		Email:           "test_" + suffix + "@example.com",
		Username:        "user_" + suffix,
		Password:        "TestPassword1!",
		ConfirmPassword: "TestPassword1!",
	}
}

func checkRegister(ctx context.Context, f *Fixture) error {
	c, err := f.Client()
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, http.MethodPost, "/api/users", nil, randomRegistration())
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	body, err := decodeObject(resp.Body)
	if err != nil {
		return err
	}
	return requireKeys(body, "message", "email_status")
}

func checkRegisterDuplicate(ctx context.Context, f *Fixture) error {
	c, err := f.Client()
	if err != nil {
		return err
	}
	req := randomRegistration()
	if _, err := c.Register(ctx, req); err != nil {
		return fmt.Errorf("first registration: %w", err)
	}

	req.Username += "2"
	_, err = c.Register(ctx, req)
	if err := expectAPIError(err, http.StatusBadRequest); err != nil {
		return err
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && !strings.Contains(apiErr.Detail, MsgDuplicateEmail) {
		return fmt.Errorf("detail = %q, want it to contain %q", apiErr.Detail, MsgDuplicateEmail)
	}
	return nil
}

func checkRegisterInvalidPassword(ctx context.Context, f *Fixture) error {
	c, err := f.Client()
	if err != nil {
		return err
	}

	weak := []struct{ password, missing string }{
		{"TestPassword1", "special character"},
		{"testpassword1!", "uppercase letter"},
		{"TestPassword!", "digit"},
	}
	for _, w := range weak {
		req := randomRegistration()
		req.Password, req.ConfirmPassword = w.password, w.password

		_, err := c.Register(ctx, req)
		if err := expectAPIError(err, http.StatusUnprocessableEntity); err != nil {
			return fmt.Errorf("password without %s: %w", w.missing, err)
		}
	}
	return nil
}

func checkMe(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, http.MethodGet, "/api/users/me", nil, nil)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	body, err := decodeObject(resp.Body)
	if err != nil {
		return err
	}
	return requireKeys(body, "user_id", "email", "username")
}

func checkUpdateMe(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}

	username := "updated_" + strings.ToLower(gofakeit.LetterN(8))
	desc := updatedDesc
	user, err := c.UpdateMe(ctx, apiclient.UpdateUserRequest{Username: &username, Description: &desc})
	if err != nil {
		return err
	}
	if user.Username != username {
		return fmt.Errorf("username = %q, want %q", user.Username, username)
	}
	if user.Description == nil || *user.Description != desc {
		return fmt.Errorf("description = %v, want %q", user.Description, desc)
	}
	return nil
}

// checkChangePassword changes the fixture password and changes it back.
func checkChangePassword(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}

	msg, err := c.ChangePassword(ctx, apiclient.ChangePasswordRequest{
		CurrentPassword: f.Password,
		NewPassword:     temporaryPassword,
		ConfirmPassword: temporaryPassword,
	})
	if err != nil {
		return err
	}
	if !strings.Contains(msg.Message, MsgPasswordChanged) {
		return fmt.Errorf("message = %q, want it to contain %q", msg.Message, MsgPasswordChanged)
	}

	_, err = c.ChangePassword(ctx, apiclient.ChangePasswordRequest{
		CurrentPassword: temporaryPassword,
		NewPassword:     f.Password,
		ConfirmPassword: f.Password,
	})
	if err != nil {
		return fmt.Errorf("restore fixture password (account now uses %q): %w", temporaryPassword, err)
	}
	return nil
}

func checkPasswordStatus(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, http.MethodGet, "/api/users/me/password-status", nil, nil)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	body, err := decodeObject(resp.Body)
	if err != nil {
		return err
	}
	return requireKeys(body, "days_since_change", "change_required", "last_changed")
}

// checkDeleteAccount deactivates a fresh account. Where new accounts must
// verify their email first it cannot sign in, and the check skips.
func checkDeleteAccount(ctx context.Context, f *Fixture) error {
	c, err := f.Client()
	if err != nil {
		return err
	}
	req := randomRegistration()
	if _, err := c.Register(ctx, req); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if _, err := c.Login(ctx, req.Email, req.Password); err != nil {
		if apiclient.IsForbidden(err) {
			return Skipf("new accounts cannot sign in before email verification")
		}
		return fmt.Errorf("sign in as new account: %w", err)
	}

	msg, err := c.DeleteMe(ctx)
	if err != nil {
		return err
	}
	if msg.Message == "" {
		return fmt.Errorf("delete answer has no message")
	}
	_, err = c.Login(ctx, req.Email, req.Password)
	return expectAPIError(err, http.StatusForbidden)
}
