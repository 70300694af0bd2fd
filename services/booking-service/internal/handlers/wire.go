package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// flexString accepts a JSON string or number; forms send ids both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*f = flexString(n.String())
	}
	return nil
}

type slotJSON struct {
	Hora        string `json:"hora"`
	HoraDisplay string `json:"hora_display"`
	Disponible  bool   `json:"disponible"`
}

type createBookingRequest struct {
	TratamientoID   flexString `json:"tratamiento_id"`
	Fecha           string     `json:"fecha"`
	Hora            string     `json:"hora"`
	DNICliente      flexString `json:"dni_cliente"`
	NombreCliente   string     `json:"nombre_cliente"`
	ApellidoCliente string     `json:"apellido_cliente"`
	EmailCliente    string     `json:"email_cliente"`
	TelefonoCliente flexString `json:"telefono_cliente"`
	Observaciones   string     `json:"observaciones"`
	ClienteID       flexString `json:"cliente_id"`
}

type createBookingResponse struct {
	ID     string `json:"id"`
	Fecha  string `json:"fecha"`
	Hora   string `json:"hora"`
	Estado string `json:"estado"`
}

type appointmentJSON struct {
	ID              string    `json:"id"`
	TratamientoID   int64     `json:"tratamiento_id"`
	Fecha           string    `json:"fecha"`
	Hora            string    `json:"hora"`
	HoraDisplay     string    `json:"hora_display"`
	DNICliente      string    `json:"dni_cliente"`
	NombreCliente   string    `json:"nombre_cliente"`
	ApellidoCliente string    `json:"apellido_cliente"`
	EmailCliente    string    `json:"email_cliente"`
	TelefonoCliente string    `json:"telefono_cliente"`
	Observaciones   string    `json:"observaciones"`
	ClienteID       *int64    `json:"cliente_id"`
	Estado          string    `json:"estado"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentJSON(a model.Appointment) appointmentJSON {
	return appointmentJSON{
		ID:              a.ID,
		TratamientoID:   a.TreatmentID,
		Fecha:           a.Date.String(),
		Hora:            a.Time.String(),
		HoraDisplay:     a.Time.Display(),
		DNICliente:      a.NationalID,
		NombreCliente:   a.FirstName,
		ApellidoCliente: a.LastName,
		EmailCliente:    a.Email,
		TelefonoCliente: a.Phone,
		Observaciones:   a.Notes,
		ClienteID:       a.ClientID,
		Estado:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type scheduleRuleJSON struct {
	ID            int64  `json:"id,omitempty"`
	DiaSemana     int    `json:"dia_semana"`
	HoraInicio    string `json:"hora_inicio"`
	HoraFin       string `json:"hora_fin"`
	DuracionTurno int    `json:"duracion_turno"`
	Activo        *bool  `json:"activo"`
}

func toScheduleJSON(r model.ScheduleRule) scheduleRuleJSON {
	active := r.Active
	return scheduleRuleJSON{
		ID:            r.ID,
		DiaSemana:     r.Weekday,
		HoraInicio:    r.Start.String(),
		HoraFin:       r.End.String(),
		DuracionTurno: r.DurationMinutes,
		Activo:        &active,
	}
}

// fromScheduleJSON reports clock parse failures per row; activo defaults to true.
func fromScheduleJSON(rows []scheduleRuleJSON) ([]model.ScheduleRule, map[string]string) {
	fields := map[string]string{}
	out := make([]model.ScheduleRule, 0, len(rows))
	for i, row := range rows {
		key := "horarios[" + strconv.Itoa(i) + "]"
		start, err := model.ParseClock(row.HoraInicio)
		if err != nil {
			fields[key] = "hora_inicio must be HH:MM or HH:MM:SS"
			continue
		}
		end, err := model.ParseClock(row.HoraFin)
		if err != nil {
			fields[key] = "hora_fin must be HH:MM or HH:MM:SS"
			continue
		}
		active := true
		if row.Activo != nil {
			active = *row.Activo
		}
		out = append(out, model.ScheduleRule{
			Weekday:         row.DiaSemana,
			Start:           start,
			End:             end,
			DurationMinutes: row.DuracionTurno,
			Active:          active,
		})
	}
	return out, fields
}
