// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("이메일 또는 비밀번호가 올바르지 않습니다")
	ErrTokenInvalid       = errors.New("토큰이 유효하지 않거나 만료되었습니다.")
	ErrAccountDisabled    = errors.New("계정이 비활성화되어 있습니다")
)

// User errors.
var (
	ErrEmailExists         = errors.New("이미 등록된 이메일입니다.")
	ErrUserNotFound        = errors.New("사용자를 찾을 수 없습니다.")
	ErrWrongPassword       = errors.New("현재 비밀번호가 올바르지 않습니다.")
	ErrVerificationInvalid = errors.New("유효하지 않거나 만료된 인증 토큰입니다.")
	ErrResetTokenInvalid   = errors.New("유효하지 않거나 만료된 토큰입니다.")
	ErrNotGroupOwner       = errors.New("그룹 소유자만 초대할 수 있습니다.")
)

// API key errors.
var (
	ErrAPIKeyNotFound  = errors.New("API 키를 찾을 수 없습니다.")
	ErrAPIKeyNotOwned  = errors.New("이 API 키의 소유자가 아닙니다.")
	ErrAPIKeyInUse     = errors.New("그룹에서 사용 중인 API 키는 삭제할 수 없습니다.")
	ErrAPIKeyCorrupted = errors.New("저장된 API 키를 복호화할 수 없습니다.")
)

// Group errors.
var (
	ErrGroupNotFound       = errors.New("그룹을 찾을 수 없습니다.")
	ErrGroupAccessDenied   = errors.New("이 그룹에 접근할 권한이 없습니다.")
	ErrMemberNotFound      = errors.New("해당 그룹에서 멤버를 찾을 수 없습니다.")
	ErrMemberUserNotFound  = errors.New("추가할 사용자를 찾을 수 없습니다.")
	ErrMemberAlreadyActive = errors.New("이미 활성화된 그룹 멤버입니다.")
	ErrOwnerNotRemovable   = errors.New("그룹 소유자는 멤버에서 제거할 수 없습니다.")
)

// Invitation errors.
var (
	ErrInvitationNotFound      = errors.New("초대를 찾을 수 없습니다.")
	ErrInviteeNotFound         = errors.New("초대할 사용자를 찾을 수 없습니다.")
	ErrInviteSelf              = errors.New("자기 자신은 초대할 수 없습니다.")
	ErrAlreadyActiveMember     = errors.New("해당 사용자는 이미 그룹의 활성 멤버입니다.")
	ErrAlreadyJoined           = errors.New("이미 그룹에 가입된 사용자입니다.")
	ErrInvitationTokenInvalid  = errors.New("유효하지 않은 초대 토큰입니다.")
	ErrInvitationTokenExpired  = errors.New("초대 토큰이 만료되었습니다.")
	ErrInvitationEmailMismatch = errors.New("초대받은 이메일과 로그인한 계정이 일치하지 않습니다.")
)

// ForbiddenError is a permission failure with an operation-specific message.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func forbidden(msg string) error {
	return &ForbiddenError{Message: msg}
}

// RequestError is a client error whose message depends on the request,
// such as a vendor rejecting a key or an invitation in the wrong state.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed input. Handlers answer it with 422.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
