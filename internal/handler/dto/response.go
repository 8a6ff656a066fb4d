package dto

import (
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse is the body of operations that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is the body of POST /api/auth/login.
type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	TokenType   string                 `json:"token_type"`
	User        model.UserOut          `json:"user"`
	PasswordAge service.PasswordStatus `json:"password_age"`
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status HealthComponents `json:"status"`
}

// HealthComponents reports reachability of each dependency.
type HealthComponents struct {
	Server      bool `json:"server"`
	Database    bool `json:"database"`
	EmailServer bool `json:"email_server"`
}
