package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/storage"
)

type fakeLister struct {
	rows     []storage.Notification
	err      error
	gotID    string
	gotLimit int
}

func (f *fakeLister) ListByAppointment(_ context.Context, id string, limit int) ([]storage.Notification, error) {
	f.gotID, f.gotLimit = id, limit
	return f.rows, f.err
}

func setup(t *testing.T, store *fakeLister) (*http.ServeMux, string) {
	t.Helper()
	signer, err := auth.NewSigner("history-test-secret-0123", "turnos-auth", time.Hour)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	token, _, err := signer.Sign("u-1", "recepcion@clinica.test", auth.RoleStaff)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	mux := http.NewServeMux()
	NewHistoryHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux, signer)
	return mux, token
}

func list(mux http.Handler, token, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notificaciones"+query, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHistoryLists(t *testing.T) {
	at := time.Date(2030, 1, 6, 12, 0, 0, 0, time.UTC)
	store := &fakeLister{rows: []storage.Notification{
		{ID: 2, AppointmentID: "a-1", EventType: "turnos.reminder", Channel: "email", Recipient: "lucia@example.com", Status: storage.StatusSent, CreatedAt: at},
		{ID: 1, AppointmentID: "a-1", EventType: "turnos.appointment.booked.v1", Channel: "sms", Recipient: "1155551234", Status: storage.StatusFailed, Error: "timeout"},
	}}
	mux, token := setup(t, store)

	rec := list(mux, token, "?turno_id=a-1&limit=500")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if store.gotID != "a-1" || store.gotLimit != maxLimit {
		t.Fatalf("unexpected query id=%q limit=%d", store.gotID, store.gotLimit)
	}
	var out []notificationJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].ID != 2 || out[0].Channel != "email" || !out[0].CreatedAt.Equal(at) || out[1].Error != "timeout" {
		t.Fatalf("unexpected body %+v", out)
	}
}

func TestHistoryRejections(t *testing.T) {
	mux, token := setup(t, &fakeLister{})
	cases := map[string]struct {
		token string
		query string
		code  int
	}{
		"no token":    {"", "?turno_id=a-1", http.StatusUnauthorized},
		"no turno_id": {token, "", http.StatusBadRequest},
		"bad limit":   {token, "?turno_id=a-1&limit=-1", http.StatusBadRequest},
	}
	for name, tc := range cases {
		if rec := list(mux, tc.token, tc.query); rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", name, tc.code, rec.Code)
		}
	}

	mux, token = setup(t, &fakeLister{err: errors.New("db down")})
	if rec := list(mux, token, "?turno_id=a-1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	store := &fakeLister{}
	mux, token := setup(t, store)
	rec := list(mux, token, "?turno_id=a-9")
	if rec.Code != http.StatusOK || store.gotLimit != defaultLimit || rec.Body.String() != "[]\n" {
		t.Fatalf("unexpected %d %q limit=%d", rec.Code, rec.Body.String(), store.gotLimit)
	}
}
