package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookSenderPostsJSON(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(WebhookConfig{URL: srv.URL, Token: "tok", SenderID: "Bella", Timeout: time.Second})
	if err := s.Send(context.Background(), "011 5555-1234", "Turno confirmado"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth != "Bearer tok" {
		t.Fatalf("unexpected auth %q", auth)
	}
	if got.To != "+541155551234" || got.Body != "Turno confirmado" || got.Sender != "Bella" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestWebhookSenderErrors(t *testing.T) {
	if err := NewWebhookSender(WebhookConfig{}).Send(context.Background(), "1155551234", "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	s := NewWebhookSender(WebhookConfig{URL: srv.URL, Timeout: time.Second})

	err := s.Send(context.Background(), "1155551234", "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || se.Body != "quota exceeded" || !se.Retryable() {
		t.Fatalf("expected retryable status error, got %v", err)
	}

	if err := s.Send(context.Background(), "llamar a recepción", "x"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("invalid numbers must not reach the gateway, got %d calls", calls)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"1155551234":         "+541155551234",
		"011 5555-1234":      "+541155551234",
		"+54 9 11 5555 1234": "+5491155551234",
		"(0351) 455-1234":    "+543514551234",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in, "54")
		if err != nil || got != want {
			t.Fatalf("%q: got %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "12", "11+5555", "abc12345678"} {
		if _, err := NormalizePhone(bad, "54"); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
