// Package bookingtest provides an in-memory booking.Store for tests.
package bookingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clinica-estetica/turnos/libs/outbox"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

// MemoryStore serializes transactions behind one mutex and rolls back on
// error. It enforces the same slot uniqueness as the database index.
type MemoryStore struct {
	mu sync.Mutex

	rules        []model.ScheduleRule
	appointments map[string]model.Appointment
	treatments   map[int64]bool
	clients      map[int64]bool
	events       []outbox.Event
	nextRuleID   int64

	// SkipSlotCheck makes SlotTaken always report false, so only the
	// uniqueness check in InsertAppointment guards the slot.
	SkipSlotCheck bool
	// ReadErr, when set, is returned by every non-transactional read.
	ReadErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: map[string]model.Appointment{},
		treatments:   map[int64]bool{},
		clients:      map[int64]bool{},
	}
}

func (m *MemoryStore) AddTreatment(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.treatments[id] = true
}

func (m *MemoryStore) AddClient(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[id] = true
}

func (m *MemoryStore) SetRules(rules ...model.ScheduleRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceRules(rules)
}

// Events returns the enqueued outbox events in order.
func (m *MemoryStore) Events() []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]outbox.Event(nil), m.events...)
}

func (m *MemoryStore) Appointments() []model.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, a)
	}
	sortAppointments(out)
	return out
}

func (m *MemoryStore) ActiveRules(_ context.Context, weekday int) ([]model.ScheduleRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.activeRules(weekday), nil
}

func (m *MemoryStore) ListRules(context.Context) ([]model.ScheduleRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := append([]model.ScheduleRule(nil), m.rules...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *MemoryStore) BookedTimes(_ context.Context, date model.Date, treatmentID *int64) ([]model.Clock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []model.Clock
	for _, a := range m.appointments {
		if a.Date != date || a.Status == model.StatusCancelled {
			continue
		}
		if treatmentID != nil && a.TreatmentID != *treatmentID {
			continue
		}
		out = append(out, a.Time)
	}
	return out, nil
}

func (m *MemoryStore) ListAppointments(_ context.Context, f booking.ListFilter) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []model.Appointment
	for _, a := range m.appointments {
		if !f.From.IsZero() && a.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && f.To.Before(a.Date) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sortAppointments(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return model.Appointment{}, m.ReadErr
	}
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	return a, nil
}

func (m *MemoryStore) InTx(_ context.Context, fn func(booking.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(memTx{m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	rules        []model.ScheduleRule
	appointments map[string]model.Appointment
	events       []outbox.Event
	nextRuleID   int64
}

func (m *MemoryStore) snapshot() state {
	appts := make(map[string]model.Appointment, len(m.appointments))
	for k, v := range m.appointments {
		appts[k] = v
	}
	return state{
		rules:        append([]model.ScheduleRule(nil), m.rules...),
		appointments: appts,
		events:       append([]outbox.Event(nil), m.events...),
		nextRuleID:   m.nextRuleID,
	}
}

func (m *MemoryStore) restore(s state) {
	m.rules = s.rules
	m.appointments = s.appointments
	m.events = s.events
	m.nextRuleID = s.nextRuleID
}

func (m *MemoryStore) activeRules(weekday int) []model.ScheduleRule {
	var out []model.ScheduleRule
	for _, r := range m.rules {
		if r.Weekday == weekday && r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemoryStore) replaceRules(rules []model.ScheduleRule) {
	m.rules = m.rules[:0:0]
	for _, r := range rules {
		m.nextRuleID++
		r.ID = m.nextRuleID
		m.rules = append(m.rules, r)
	}
}

// memTx runs with MemoryStore.mu already held.
type memTx struct{ m *MemoryStore }

func (t memTx) SlotTaken(_ context.Context, date model.Date, c model.Clock, treatmentID int64) (bool, error) {
	if t.m.SkipSlotCheck {
		return false, nil
	}
	return t.m.occupied(date, c, treatmentID, ""), nil
}

func (t memTx) TreatmentExists(_ context.Context, id int64) (bool, error) {
	return t.m.treatments[id], nil
}

func (t memTx) ClientExists(_ context.Context, id int64) (bool, error) {
	return t.m.clients[id], nil
}

func (t memTx) LockActiveRules(_ context.Context, weekday int) ([]model.ScheduleRule, error) {
	return t.m.activeRules(weekday), nil
}

func (t memTx) InsertAppointment(_ context.Context, a model.Appointment) (model.Appointment, error) {
	if t.m.occupied(a.Date, a.Time, a.TreatmentID, "") {
		return model.Appointment{}, booking.ErrSlotTaken
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	t.m.appointments[a.ID] = a
	return a, nil
}

func (t memTx) SetStatus(_ context.Context, id, status string) (string, model.Appointment, error) {
	a, ok := t.m.appointments[id]
	if !ok {
		return "", model.Appointment{}, booking.ErrAppointmentNotFound
	}
	// Reviving a cancelled turno must respect the slot index.
	if a.Status == model.StatusCancelled && status != model.StatusCancelled && t.m.occupied(a.Date, a.Time, a.TreatmentID, a.ID) {
		return "", model.Appointment{}, booking.ErrSlotTaken
	}
	prev := a.Status
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	t.m.appointments[id] = a
	return prev, a, nil
}

func (t memTx) DeleteAppointment(_ context.Context, id string) (model.Appointment, error) {
	a, ok := t.m.appointments[id]
	if !ok {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	delete(t.m.appointments, id)
	return a, nil
}

func (t memTx) ReplaceRules(_ context.Context, rules []model.ScheduleRule) error {
	t.m.replaceRules(rules)
	return nil
}

func (t memTx) Enqueue(_ context.Context, evt outbox.Event) error {
	t.m.events = append(t.m.events, evt)
	return nil
}

func (m *MemoryStore) occupied(date model.Date, c model.Clock, treatmentID int64, exceptID string) bool {
	for id, a := range m.appointments {
		if id == exceptID || a.Status == model.StatusCancelled {
			continue
		}
		if a.Date == date && a.Time == c && a.TreatmentID == treatmentID {
			return true
		}
	}
	return false
}

func sortAppointments(out []model.Appointment) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
}

var _ booking.Store = (*MemoryStore)(nil)
