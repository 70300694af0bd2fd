// Package booking computes free slots and validates, commits and manages
// appointments on top of a Store.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica-estetica/turnos/libs/events"
	"github.com/clinica-estetica/turnos/libs/outbox"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/availability"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService evaluates "today" in loc, the clinic's zone.
func NewService(store Store, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{store: store, loc: loc, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() model.Date { return model.DateOf(s.now(), s.loc) }

// AvailableSlots returns the free slots of date. A closed weekday yields an
// empty list; a date before today fails with ErrPastDate.
func (s *Service) AvailableSlots(ctx context.Context, date model.Date, treatmentID *int64) ([]availability.Slot, error) {
	if date.Before(s.Today()) {
		return nil, ErrPastDate
	}
	rules, err := s.store.ActiveRules(ctx, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if len(rules) == 0 {
		return []availability.Slot{}, nil
	}
	booked, err := s.store.BookedTimes(ctx, date, treatmentID)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	slots := availability.GenerateSlots(rules, availability.BookedSet(booked))
	if slots == nil {
		slots = []availability.Slot{}
	}
	return slots, nil
}

// Book validates req and stores it as a pending appointment. The re-check
// inside the transaction narrows the stale-list window; the store's unique
// constraint settles concurrent inserts.
func (s *Service) Book(ctx context.Context, req Request) (model.Appointment, error) {
	v, err := ValidateBooking(req, s.Today())
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:          s.newID(),
		TreatmentID: v.TreatmentID,
		Date:        v.Date,
		Time:        v.Time,
		NationalID:  v.NationalID,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		Email:       v.Email,
		Phone:       v.Phone,
		Notes:       v.Notes,
		ClientID:    v.ClientID,
		Status:      model.StatusPending,
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		taken, err := tx.SlotTaken(ctx, appt.Date, appt.Time, appt.TreatmentID)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}

		ok, err := tx.TreatmentExists(ctx, appt.TreatmentID)
		if err != nil {
			return fmt.Errorf("check treatment: %w", err)
		}
		if !ok {
			return fieldError("tratamiento_id", ErrTreatmentNotFound)
		}
		if appt.ClientID != nil {
			ok, err := tx.ClientExists(ctx, *appt.ClientID)
			if err != nil {
				return fmt.Errorf("check client: %w", err)
			}
			if !ok {
				return fieldError("cliente_id", ErrClientNotFound)
			}
		}

		rules, err := tx.LockActiveRules(ctx, appt.Date.Weekday())
		if err != nil {
			return fmt.Errorf("lock schedule: %w", err)
		}
		if !availability.Contains(rules, appt.Time) {
			return ErrOutsideSchedule
		}

		stored, err := tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}
		appt = stored

		evt, err := outbox.NewEvent(events.AggregateAppointment, appt.ID, events.AppointmentBooked, events.Booked{
			AppointmentID: appt.ID,
			TreatmentID:   appt.TreatmentID,
			Date:          appt.Date.String(),
			Time:          appt.Time.String(),
			FirstName:     appt.FirstName,
			LastName:      appt.LastName,
			Email:         appt.Email,
			Phone:         appt.Phone,
			Status:        appt.Status,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus sets any of the four known statuses; transitions are not
// checked. A status_changed event is enqueued only when the value changes.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (model.Appointment, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !model.ValidStatus(status) {
		return model.Appointment{}, ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrAppointmentNotFound
	}

	var out model.Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		prev, appt, err := tx.SetStatus(ctx, id, status)
		if err != nil {
			return err
		}
		out = appt
		if prev == status {
			return nil
		}
		evt, err := outbox.NewEvent(events.AggregateAppointment, appt.ID, events.AppointmentStatusChanged, events.StatusChanged{
			AppointmentID:  appt.ID,
			TreatmentID:    appt.TreatmentID,
			Date:           appt.Date.String(),
			Time:           appt.Time.String(),
			FirstName:      appt.FirstName,
			Email:          appt.Email,
			Phone:          appt.Phone,
			PreviousStatus: prev,
			Status:         status,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Delete removes the turno and enqueues a deleted event so pending
// reminders are dropped.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrAppointmentNotFound
	}
	return s.store.InTx(ctx, func(tx Tx) error {
		appt, err := tx.DeleteAppointment(ctx, id)
		if err != nil {
			return err
		}
		evt, err := outbox.NewEvent(events.AggregateAppointment, appt.ID, events.AppointmentDeleted, events.Deleted{
			AppointmentID: appt.ID,
			TreatmentID:   appt.TreatmentID,
			Date:          appt.Date.String(),
			Time:          appt.Time.String(),
			Status:        appt.Status,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, evt)
	})
}

func (s *Service) Get(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return s.store.GetAppointment(ctx, id)
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func (s *Service) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	if f.Status != "" && !model.ValidStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, &ValidationError{Fields: map[string]string{"hasta": "hasta must not be before desde"}}
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return s.store.ListAppointments(ctx, f)
}

func (s *Service) Schedule(ctx context.Context) ([]model.ScheduleRule, error) {
	return s.store.ListRules(ctx)
}

// ReplaceSchedule swaps the whole weekly rule set in one transaction. Every
// invalid rule is reported, keyed by its position.
func (s *Service) ReplaceSchedule(ctx context.Context, rules []model.ScheduleRule) error {
	fields := map[string]string{}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			fields[fmt.Sprintf("horarios[%d]", i)] = err.Error()
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return s.store.InTx(ctx, func(tx Tx) error {
		return tx.ReplaceRules(ctx, rules)
	})
}
