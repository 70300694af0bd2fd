// Package handlers serves the staff view of notification delivery history.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Lister interface {
	ListByAppointment(ctx context.Context, appointmentID string, limit int) ([]storage.Notification, error)
}

type HistoryHandler struct {
	store  Lister
	logger *slog.Logger
}

func NewHistoryHandler(store Lister, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

func (h *HistoryHandler) Register(mux *http.ServeMux, v auth.Verifier) {
	staff := auth.RequireRole(v, auth.RoleAdmin, auth.RoleStaff)
	mux.Handle("GET /api/v1/notificaciones", staff(http.HandlerFunc(h.List)))
}

type notificationJSON struct {
	ID         int64     `json:"id"`
	TurnoID    string    `json:"turno_id"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"tipo_evento"`
	Channel    string    `json:"canal"`
	Recipient  string    `json:"destinatario"`
	Status     string    `json:"estado"`
	ProviderID string    `json:"proveedor,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"creado_en"`
}

// List serves GET ?turno_id=&limit=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("turno_id"))
	if id == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "invalid query", Fields: map[string]string{"turno_id": "is required"}})
		return
	}
	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "invalid query", Fields: map[string]string{"limit": "must be a positive integer"}})
			return
		}
		limit = min(n, maxLimit)
	}

	rows, err := h.store.ListByAppointment(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("list notifications failed", "request_id", httpx.RequestIDFromContext(r.Context()), "turno_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]notificationJSON, 0, len(rows))
	for _, n := range rows {
		out = append(out, notificationJSON{
			ID:         n.ID,
			TurnoID:    n.AppointmentID,
			EventID:    n.EventID,
			EventType:  n.EventType,
			Channel:    n.Channel,
			Recipient:  n.Recipient,
			Status:     n.Status,
			ProviderID: n.ProviderID,
			Error:      n.Error,
			CreatedAt:  n.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
