package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/oklog/ulid/v2"
)

// Transport security modes.
const (
	SecurityStartTLS = "starttls"
	SecurityTLS      = "tls"
	SecurityNone     = "none"
)

const defaultCommandTimeout = 10 * time.Second

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Security string
	// TLSConfig overrides the default TLS settings; nil uses ServerName=Host.
	TLSConfig *tls.Config
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg       SMTPConfig
	from      *mail.Address
	logger    *slog.Logger
	available atomic.Bool
}

// NewSMTPMailer creates an SMTPMailer. Call Check to mark it available.
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", cfg.From, err)
	}
	switch cfg.Security {
	case SecurityStartTLS, SecurityTLS, SecurityNone:
	default:
		return nil, fmt.Errorf("unknown smtp security %q", cfg.Security)
	}
	return &SMTPMailer{cfg: cfg, from: from, logger: logger}, nil
}

// Available reports whether the last Check or Send succeeded.
func (m *SMTPMailer) Available() bool {
	return m.available.Load()
}

// Check connects, authenticates and quits.
func (m *SMTPMailer) Check(ctx context.Context) error {
	c, err := m.dial(ctx)
	if err != nil {
		m.available.Store(false)
		return err
	}
	defer c.Close()

	if err := c.Noop(); err != nil {
		m.available.Store(false)
		return fmt.Errorf("smtp noop: %w", err)
	}
	_ = c.Quit()

	m.available.Store(true)
	return nil
}

// Send builds a multipart message and delivers it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	raw, err := m.build(msg)
	if err != nil {
		return err
	}

	c, err := m.dial(ctx)
	if err != nil {
		m.available.Store(false)
		return err
	}
	defer c.Close()

	if err := c.SendMail(m.from.Address, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	_ = c.Quit()

	m.available.Store(true)
	m.logger.DebugContext(ctx, "email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (m *SMTPMailer) build(msg Message) ([]byte, error) {
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}

	part, err := enmime.Builder().
		From(m.from.Name, m.from.Address).
		To("", msg.To).
		Subject(msg.Subject).
		Date(time.Now()).
		Header("Message-ID", "<"+ulid.Make().String()+"@"+m.cfg.Host+">").
		Text([]byte(text)).
		HTML([]byte(msg.HTML)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	tlsConfig := m.cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	}

	var (
		c   *smtp.Client
		err error
	)
	switch m.cfg.Security {
	case SecurityTLS:
		c, err = smtp.DialTLS(addr, tlsConfig)
	case SecurityStartTLS:
		c, err = smtp.DialStartTLS(addr, tlsConfig)
	default:
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	timeout := defaultCommandTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	c.CommandTimeout = timeout
	c.SubmissionTimeout = timeout

	if m.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}

	return c, nil
}
