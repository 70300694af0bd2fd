package model

import "time"

const (
	StatusPending   = "pendiente"
	StatusConfirmed = "confirmado"
	StatusCompleted = "completado"
	StatusCancelled = "cancelado"
)

var statuses = map[string]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusCompleted: {},
	StatusCancelled: {},
}

func ValidStatus(s string) bool {
	_, ok := statuses[s]
	return ok
}

// Appointment is one booked turno. DNI and the contact fields are copied at
// booking time; ClientID links a registered client when known.
type Appointment struct {
	ID          string
	TreatmentID int64
	Date        Date
	Time        Clock
	NationalID  string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Notes       string
	ClientID    *int64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
