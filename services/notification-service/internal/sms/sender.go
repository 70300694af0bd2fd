// Package sms delivers appointment text messages through an HTTP gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrNotConfigured = errors.New("sms webhook url not configured")
	ErrInvalidPhone  = errors.New("invalid phone number")
)

type Sender interface {
	Send(ctx context.Context, to, body string) error
	ProviderID() string
}

// StatusError is a non-2xx gateway answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sms webhook returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether the gateway may accept the same message later.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type WebhookConfig struct {
	URL   string
	Token string
	// SenderID is the alphanumeric sender shown on the handset, if the
	// gateway supports it.
	SenderID string
	// CountryCode is prefixed to numbers written without one.
	CountryCode string
	Timeout     time.Duration
}

type webhookPayload struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

// WebhookSender posts a JSON payload to a gateway URL.
type WebhookSender struct {
	cfg  WebhookConfig
	http *http.Client
}

func NewWebhookSender(cfg WebhookConfig) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "54"
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Token = strings.TrimSpace(cfg.Token)
	return &WebhookSender{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (s *WebhookSender) ProviderID() string { return "sms-webhook" }

func (s *WebhookSender) Send(ctx context.Context, to, body string) error {
	if s.cfg.URL == "" {
		return ErrNotConfigured
	}
	phone, err := NormalizePhone(to, s.cfg.CountryCode)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(webhookPayload{To: phone, Body: body, Sender: s.cfg.SenderID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return nil
}

// NormalizePhone turns a number as clients type it ("011 5555-1234",
// "+54 9 11 5555 1234") into E.164. A leading trunk 0 is dropped before the
// country code is added.
func NormalizePhone(raw, countryCode string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	n := b.String()
	if !strings.HasPrefix(n, "+") {
		n = "+" + countryCode + strings.TrimPrefix(n, "0")
	}
	if digits := len(n) - 1; digits < 8 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return n, nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (*NoopSender) ProviderID() string { return "sms-noop" }

func (*NoopSender) Send(context.Context, string, string) error { return nil }
