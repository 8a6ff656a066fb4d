// Package provider checks AI vendor API keys before they are stored.
package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aichatbot/chatbot-api/internal/model"
)

// Messages returned to clients.
const (
	MsgUnsupportedVendor = "지원하지 않는 AI 제공사입니다."
	MsgInvalidKey        = "유효하지 않은 API 키입니다."
)

var formatMessages = map[string]string{
	model.VendorOpenAI:    "잘못된 OpenAI API 키 형식입니다.",
	model.VendorAnthropic: "잘못된 Anthropic API 키 형식입니다.",
	model.VendorGoogle:    "잘못된 Google AI API 키 형식입니다.",
	model.VendorAzure:     "잘못된 Azure API 키 형식입니다.",
}

var rejectedMessages = map[string]string{
	model.VendorOpenAI:    "OpenAI 서비스에서 API 키를 거부했습니다.",
	model.VendorAnthropic: "Anthropic 서비스에서 API 키를 거부했습니다.",
	model.VendorGoogle:    "Google AI 서비스에서 API 키를 거부했습니다.",
}

// Default probe endpoints. Azure keys are bound to per-resource hosts and
// are checked by format only.
var defaultEndpoints = map[string]string{
	model.VendorOpenAI:    "https://api.openai.com",
	model.VendorAnthropic: "https://api.anthropic.com",
	model.VendorGoogle:    "https://generativelanguage.googleapis.com",
}

const minKeyLength = 21

type verdict int

const (
	verdictUnknown verdict = iota
	verdictAccepted
	verdictRejected
)

// Verifier validates vendor API keys.
type Verifier struct {
	probe       bool
	client      *http.Client
	endpoints   map[string]string
	logger      *slog.Logger
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithProbe enables live probes against the vendor API.
func WithProbe(enabled bool) Option {
	return func(v *Verifier) {
		v.probe = enabled
	}
}

// WithHTTPClient sets the probe HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		v.client = c
	}
}

// WithEndpoint overrides the probe base URL of a vendor.
func WithEndpoint(vendor, baseURL string) Option {
	return func(v *Verifier) {
		v.endpoints[vendor] = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// NewVerifier creates a Verifier. Probing is off unless WithProbe(true) is given.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		client:      NewHTTPClient(),
		endpoints:   make(map[string]string, len(defaultEndpoints)),
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepCtx,
	}
	for k, u := range defaultEndpoints {
		v.endpoints[k] = u
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether key is usable for vendor. On failure the message
// explains why.
func (v *Verifier) Verify(ctx context.Context, vendor, key string) (bool, string) {
	vendor, ok := model.NormalizeVendor(vendor)
	if !ok {
		return false, MsgUnsupportedVendor
	}

	if !checkFormat(vendor, key) {
		return false, formatMessages[vendor]
	}

	if !v.probe {
		return true, ""
	}

	switch v.probeKey(ctx, vendor, key) {
	case verdictRejected:
		if msg, ok := rejectedMessages[vendor]; ok {
			return false, msg
		}
		return false, MsgInvalidKey
	default:
		return true, ""
	}
}

func checkFormat(vendor, key string) bool {
	if len(key) < minKeyLength {
		return false
	}
	if vendor == model.VendorOpenAI {
		return strings.HasPrefix(key, "sk-")
	}
	return true
}

func (v *Verifier) probeKey(ctx context.Context, vendor, key string) verdict {
	base, ok := v.endpoints[vendor]
	if !ok {
		return verdictUnknown
	}

	for attempt := 0; ; attempt++ {
		status, err := v.doProbe(ctx, vendor, base, key)
		switch {
		case err != nil:
			v.logger.WarnContext(ctx, "vendor probe failed", "vendor", vendor, "error", err)
			return verdictUnknown
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return verdictRejected
		case status >= 200 && status < 300:
			return verdictAccepted
		case !retryable(status) || attempt+1 >= v.maxAttempts:
			v.logger.WarnContext(ctx, "vendor probe inconclusive", "vendor", vendor, "status", status)
			return verdictUnknown
		}

		if err := v.sleep(ctx, NextRetryDelay(attempt)); err != nil {
			return verdictUnknown
		}
	}
}

func (v *Verifier) doProbe(ctx context.Context, vendor, base, key string) (int, error) {
	req, err := newProbeRequest(ctx, vendor, base, key)
	if err != nil {
		return 0, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

func newProbeRequest(ctx context.Context, vendor, base, key string) (*http.Request, error) {
	var target string
	switch vendor {
	case model.VendorGoogle:
		target = base + "/v1beta/models?key=" + url.QueryEscape(key)
	default:
		target = base + "/v1/models"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	switch vendor {
	case model.VendorOpenAI:
		req.Header.Set("Authorization", "Bearer "+key)
	case model.VendorAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	}

	return req, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
