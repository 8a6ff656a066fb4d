package auth

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password length bounds.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 20
)

// specialChars is the set of characters that satisfy the special-character rule.
const specialChars = `!@#$%^&*()_+-=[]{};:'",.<>/?`

// Password policy violations. Messages are shown to end users.
var (
	ErrPasswordTooShort  = errors.New("비밀번호는 최소 6자 이상이어야 합니다.")
	ErrPasswordTooLong   = errors.New("패스워드는 20자리 이하여야 합니다.")
	ErrPasswordNoUpper   = errors.New("패스워드는 최소 하나의 영어 대문자를 포함해야 합니다.")
	ErrPasswordNoSpecial = errors.New("패스워드는 최소 하나의 특수문자를 포함해야 합니다.")
	ErrPasswordNoDigit   = errors.New("패스워드는 최소 하나의 숫자를 포함해야 합니다.")
)

// ValidatePassword checks a new password against the account policy.
// Rules are evaluated in order and the first violation is returned.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if n > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasUpper, hasSpecial, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return ErrPasswordNoUpper
	}
	if !hasSpecial {
		return ErrPasswordNoSpecial
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	return nil
}
