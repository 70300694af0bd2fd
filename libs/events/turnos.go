// Package events holds the kafka contract shared by the booking and
// notification services. Topic names equal event types.
package events

const (
	AggregateAppointment = "turno"

	AppointmentBooked        = "turnos.appointment.booked.v1"
	AppointmentStatusChanged = "turnos.appointment.status_changed.v1"
	AppointmentDeleted       = "turnos.appointment.deleted.v1"
)

// Booked is the payload of AppointmentBooked.
type Booked struct {
	AppointmentID string `json:"appointment_id"`
	TreatmentID   int64  `json:"tratamiento_id"`
	Date          string `json:"fecha"`
	Time          string `json:"hora"`
	FirstName     string `json:"nombre_cliente"`
	LastName      string `json:"apellido_cliente"`
	Email         string `json:"email_cliente"`
	Phone         string `json:"telefono_cliente"`
	Status        string `json:"estado"`
}

// StatusChanged is the payload of AppointmentStatusChanged.
type StatusChanged struct {
	AppointmentID  string `json:"appointment_id"`
	TreatmentID    int64  `json:"tratamiento_id"`
	Date           string `json:"fecha"`
	Time           string `json:"hora"`
	FirstName      string `json:"nombre_cliente"`
	Email          string `json:"email_cliente"`
	Phone          string `json:"telefono_cliente"`
	PreviousStatus string `json:"estado_anterior"`
	Status         string `json:"estado"`
}

// Deleted is the payload of AppointmentDeleted. Status is the last value the
// row held.
type Deleted struct {
	AppointmentID string `json:"appointment_id"`
	TreatmentID   int64  `json:"tratamiento_id"`
	Date          string `json:"fecha"`
	Time          string `json:"hora"`
	Status        string `json:"estado"`
}

// Topics lists every topic the notification service consumes.
func Topics() []string {
	return []string{AppointmentBooked, AppointmentStatusChanged, AppointmentDeleted}
}
