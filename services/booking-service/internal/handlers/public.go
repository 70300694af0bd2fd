package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clinica-estetica/turnos/libs/httpx"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// AvailableSlots serves GET ?fecha=YYYY-MM-DD[&tratamiento_id=N].
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("fecha"))
	if raw == "" {
		httpx.WriteError(w, http.StatusBadRequest, "fecha is required")
		return
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		h.fail(w, r, booking.ErrInvalidDate)
		return
	}

	var treatmentID *int64
	if v := strings.TrimSpace(q.Get("tratamiento_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "tratamiento_id must be a positive integer")
			return
		}
		treatmentID = &id
	}

	slots, err := h.svc.AvailableSlots(r.Context(), date, treatmentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]slotJSON, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotJSON{Hora: s.Time.String(), HoraDisplay: s.Time.Display(), Disponible: true})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Create serves the public booking POST.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.Request{
		TreatmentID: string(req.TratamientoID),
		Date:        req.Fecha,
		Time:        req.Hora,
		NationalID:  string(req.DNICliente),
		FirstName:   req.NombreCliente,
		LastName:    req.ApellidoCliente,
		Email:       req.EmailCliente,
		Phone:       string(req.TelefonoCliente),
		Notes:       req.Observaciones,
		ClientID:    string(req.ClienteID),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("turno booked",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"appointment_id", appt.ID,
		"fecha", appt.Date.String(),
		"hora", appt.Time.String(),
		"tratamiento_id", appt.TreatmentID,
	)
	httpx.WriteJSON(w, http.StatusCreated, createBookingResponse{
		ID:     appt.ID,
		Fecha:  appt.Date.String(),
		Hora:   appt.Time.String(),
		Estado: appt.Status,
	})
}
