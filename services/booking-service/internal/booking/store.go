package booking

import (
	"context"

	"github.com/clinica-estetica/turnos/libs/outbox"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// ListFilter narrows the staff appointment listing. Zero values mean no bound.
type ListFilter struct {
	From   model.Date
	To     model.Date
	Status string
	Limit  int
}

// Store is the persistence the service needs outside a transaction.
type Store interface {
	ActiveRules(ctx context.Context, weekday int) ([]model.ScheduleRule, error)
	ListRules(ctx context.Context) ([]model.ScheduleRule, error)
	// BookedTimes excludes cancelled appointments. A nil treatmentID means
	// every treatment occupies the slot.
	BookedTimes(ctx context.Context, date model.Date, treatmentID *int64) ([]model.Clock, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional view used by writes. Implementations return
// ErrSlotTaken when InsertAppointment hits the slot uniqueness constraint and
// ErrAppointmentNotFound for unknown ids.
type Tx interface {
	SlotTaken(ctx context.Context, date model.Date, t model.Clock, treatmentID int64) (bool, error)
	TreatmentExists(ctx context.Context, id int64) (bool, error)
	ClientExists(ctx context.Context, id int64) (bool, error)
	// LockActiveRules reads the weekday's active rules and holds them until
	// commit, so a concurrent schedule replace waits.
	LockActiveRules(ctx context.Context, weekday int) ([]model.ScheduleRule, error)
	InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error)
	SetStatus(ctx context.Context, id, status string) (previous string, a model.Appointment, err error)
	DeleteAppointment(ctx context.Context, id string) (model.Appointment, error)
	ReplaceRules(ctx context.Context, rules []model.ScheduleRule) error
	Enqueue(ctx context.Context, evt outbox.Event) error
}
