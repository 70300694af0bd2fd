package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/availability"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// Service is the booking API the handlers drive.
type Service interface {
	AvailableSlots(ctx context.Context, date model.Date, treatmentID *int64) ([]availability.Slot, error)
	Book(ctx context.Context, req booking.Request) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f booking.ListFilter) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
	Schedule(ctx context.Context) ([]model.ScheduleRule, error)
	ReplaceSchedule(ctx context.Context, rules []model.ScheduleRule) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
	// devErrors adds the internal error text to 500 bodies.
	devErrors bool
}

func NewHandler(svc Service, logger *slog.Logger, devErrors bool) *Handler {
	return &Handler{svc: svc, logger: logger, devErrors: devErrors}
}

// Register mounts the public booking routes behind public (may be nil) and
// the staff routes behind token checks.
func (h *Handler) Register(mux *http.ServeMux, v auth.Verifier, public httpx.Middleware) {
	if public == nil {
		public = func(next http.Handler) http.Handler { return next }
	}
	staff := auth.RequireRole(v, auth.RoleAdmin, auth.RoleStaff)
	admin := auth.RequireRole(v, auth.RoleAdmin)

	mux.Handle("GET /api/v1/public/turnos/disponibles", public(http.HandlerFunc(h.AvailableSlots)))
	mux.Handle("POST /api/v1/public/turnos", public(http.HandlerFunc(h.Create)))

	mux.Handle("GET /api/v1/turnos/horarios", staff(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/turnos/horarios", admin(http.HandlerFunc(h.PutSchedule)))
	mux.Handle("GET /api/v1/turnos", staff(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/v1/turnos/{id}", staff(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/v1/turnos/{id}/estado", staff(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("DELETE /api/v1/turnos/{id}", admin(http.HandlerFunc(h.Delete)))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrOutsideSchedule),
		errors.Is(err, booking.ErrInvalidStatus):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		body := httpx.ErrorBody{Error: "internal error"}
		if h.devErrors {
			body.Detail = err.Error()
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, body)
	}
}
