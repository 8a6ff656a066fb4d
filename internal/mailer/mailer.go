// Package mailer sends transactional email: account verification, password
// reset and group invitations.
package mailer

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnavailable is returned when no SMTP server is configured or reachable.
var ErrUnavailable = errors.New("mail server unavailable")

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// Check probes the mail server and updates Available.
	Check(ctx context.Context) error
	// Available reports the result of the last Check.
	Available() bool
}

// LogMailer logs messages instead of sending them. It is used when SMTP is
// disabled and always reports itself unavailable.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and returns ErrUnavailable.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "email not sent, smtp disabled",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return ErrUnavailable
}

// Check always fails.
func (m *LogMailer) Check(context.Context) error {
	return ErrUnavailable
}

// Available always returns false.
func (m *LogMailer) Available() bool {
	return false
}
