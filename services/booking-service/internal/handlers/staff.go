package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clinica-estetica/turnos/libs/auth"
	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.Schedule(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]scheduleRuleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toScheduleJSON(rule))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// PutSchedule replaces the whole weekly schedule with the posted rows.
func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var rows []scheduleRuleJSON
	if err := httpx.DecodeJSON(r, &rows); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules, fields := fromScheduleJSON(rows)
	if len(fields) > 0 {
		h.fail(w, r, &booking.ValidationError{Fields: fields})
		return
	}
	if err := h.svc.ReplaceSchedule(r.Context(), rules); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("schedule replaced",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"user_id", actor(r),
		"rules", len(rules),
	)
	w.WriteHeader(http.StatusNoContent)
}

// List serves GET ?desde=&hasta=&estado=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f booking.ListFilter
	fields := map[string]string{}
	for key, dst := range map[string]*model.Date{"desde": &f.From, "hasta": &f.To} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		d, err := model.ParseDate(v)
		if err != nil {
			fields[key] = key + " must be a valid date (YYYY-MM-DD)"
			continue
		}
		*dst = d
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fields["limit"] = "limit must be a positive integer"
		}
		f.Limit = n
	}
	if len(fields) > 0 {
		h.fail(w, r, &booking.ValidationError{Fields: fields})
		return
	}
	f.Status = strings.ToLower(strings.TrimSpace(q.Get("estado")))

	appts, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]appointmentJSON, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentJSON(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentJSON(appt))
}

type updateStatusRequest struct {
	Estado string `json:"estado"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), req.Estado)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("turno status updated",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"user_id", actor(r),
		"appointment_id", appt.ID,
		"estado", appt.Status,
	)
	httpx.WriteJSON(w, http.StatusOK, toAppointmentJSON(appt))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("turno deleted",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"user_id", actor(r),
		"appointment_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

func actor(r *http.Request) string {
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		return c.Subject
	}
	return ""
}
