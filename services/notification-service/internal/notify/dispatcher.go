// Package notify turns appointment events into client emails and SMS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clinica-estetica/turnos/libs/events"
	"github.com/clinica-estetica/turnos/libs/kafkax"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/email"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/reminders"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/sms"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/storage"
)

type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

// Scheduler queues and cancels appointment reminders.
type Scheduler interface {
	Schedule(ctx context.Context, j reminders.Job) error
	Cancel(ctx context.Context, appointmentID string) (int64, error)
}

type Dispatcher struct {
	email      email.Sender
	sms        sms.Sender // nil disables SMS
	store      Recorder
	logger     *slog.Logger
	clinicName string

	reminders Scheduler // nil disables reminders
	offset    time.Duration
	loc       *time.Location
	now       func() time.Time
}

func NewDispatcher(mail email.Sender, text sms.Sender, store Recorder, logger *slog.Logger, clinicName string) *Dispatcher {
	if clinicName == "" {
		clinicName = "La clínica"
	}
	return &Dispatcher{email: mail, sms: text, store: store, logger: logger, clinicName: clinicName, now: time.Now}
}

// WithReminders queues a reminder offset before each booked, confirmed or
// revived appointment. Dates and times in events are local to loc.
func (d *Dispatcher) WithReminders(s Scheduler, offset time.Duration, loc *time.Location) *Dispatcher {
	d.reminders, d.offset, d.loc = s, offset, loc
	return d
}

// outgoing is what one event asks to deliver.
type outgoing struct {
	appointmentID string
	mail          *email.Message
	phone         string
	text          string

	data   email.AppointmentData
	remind bool
	cancel bool
}

// Handle processes one kafka message. Malformed or irrelevant events are
// logged and acknowledged; only storage failures are returned for retry.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	out, err := d.plan(meta.EventType, msg.Value)
	if err != nil {
		d.logger.Error("invalid event payload", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	if out == nil {
		d.logger.Debug("event needs no notification", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := d.updateReminders(ctx, out); err != nil {
		return err
	}

	base := storage.Notification{EventID: meta.EventID, AppointmentID: out.appointmentID, EventType: meta.EventType}
	if out.mail != nil {
		n := base
		n.Channel, n.Recipient = "email", out.mail.To[0]
		d.finish(&n, d.email.ProviderID(), d.email.Send(ctx, *out.mail))
		if err := d.store.Insert(ctx, n); err != nil {
			return fmt.Errorf("record email notification: %w", err)
		}
	}
	if d.sms != nil && out.phone != "" {
		n := base
		n.Channel, n.Recipient = "sms", out.phone
		d.finish(&n, d.sms.ProviderID(), d.sms.Send(ctx, out.phone, out.text))
		if err := d.store.Insert(ctx, n); err != nil {
			return fmt.Errorf("record sms notification: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) finish(n *storage.Notification, provider string, err error) {
	n.ProviderID = provider
	switch err.(type) {
	case nil:
		n.Status = storage.StatusSent
	case email.ErrDisabled:
		n.Status = storage.StatusSkipped
	default:
		n.Status = storage.StatusFailed
		n.Error = err.Error()
		d.logger.Error("notification send failed", "channel", n.Channel, "appointment_id", n.AppointmentID, "err", err)
		return
	}
	d.logger.Info("notification processed", "channel", n.Channel, "appointment_id", n.AppointmentID, "status", n.Status)
}

func (d *Dispatcher) plan(eventType string, payload []byte) (*outgoing, error) {
	switch eventType {
	case events.AppointmentBooked:
		var e events.Booked
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		if e.AppointmentID == "" {
			return nil, fmt.Errorf("appointment_id missing")
		}
		data := d.data(e.FirstName, e.Email, e.Date, e.Time)
		out := d.outgoing(e.AppointmentID, data, email.BookedEmail(data), e.Phone,
			fmt.Sprintf("%s: recibimos tu turno del %s a las %s.", data.ClinicName, data.Date, data.Time))
		out.remind = true
		return out, nil

	case events.AppointmentStatusChanged:
		var e events.StatusChanged
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		if e.AppointmentID == "" {
			return nil, fmt.Errorf("appointment_id missing")
		}
		data := d.data(e.FirstName, e.Email, e.Date, e.Time)
		switch e.Status {
		case "confirmado":
			out := d.outgoing(e.AppointmentID, data, email.ConfirmedEmail(data), e.Phone,
				fmt.Sprintf("%s: tu turno del %s a las %s está confirmado.", data.ClinicName, data.Date, data.Time))
			out.remind = true
			return out, nil
		case "cancelado":
			out := d.outgoing(e.AppointmentID, data, email.CancelledEmail(data), e.Phone,
				fmt.Sprintf("%s: tu turno del %s a las %s fue cancelado.", data.ClinicName, data.Date, data.Time))
			out.cancel = true
			return out, nil
		case "pendiente":
			// A revived turno is announced like a new booking.
			if e.PreviousStatus != "cancelado" {
				return nil, nil
			}
			out := d.outgoing(e.AppointmentID, data, email.BookedEmail(data), e.Phone,
				fmt.Sprintf("%s: recibimos tu turno del %s a las %s.", data.ClinicName, data.Date, data.Time))
			out.remind = true
			return out, nil
		}
		return nil, nil

	case events.AppointmentDeleted:
		var e events.Deleted
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		if e.AppointmentID == "" {
			return nil, fmt.Errorf("appointment_id missing")
		}
		return &outgoing{appointmentID: e.AppointmentID, cancel: true}, nil
	}
	return nil, nil
}

func (d *Dispatcher) data(firstName, addr, date, clock string) email.AppointmentData {
	if len(clock) > 5 {
		clock = clock[:5]
	}
	return email.AppointmentData{ClinicName: d.clinicName, FirstName: firstName, Email: addr, Date: date, Time: clock}
}

func (d *Dispatcher) outgoing(id string, data email.AppointmentData, m email.Message, phone, text string) *outgoing {
	out := &outgoing{appointmentID: id, phone: phone, text: text, data: data}
	if data.Email != "" {
		out.mail = &m
	}
	return out
}

// updateReminders must run before any send; a failure here retries the event.
func (d *Dispatcher) updateReminders(ctx context.Context, out *outgoing) error {
	if d.reminders == nil {
		return nil
	}
	if out.cancel {
		n, err := d.reminders.Cancel(ctx, out.appointmentID)
		if err != nil {
			return fmt.Errorf("cancel reminders: %w", err)
		}
		d.logger.Info("reminders cancelled", "appointment_id", out.appointmentID, "count", n)
		return nil
	}
	if !out.remind {
		return nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", out.data.Date+" "+out.data.Time, d.loc)
	if err != nil {
		d.logger.Error("reminder not scheduled: bad date or time", "appointment_id", out.appointmentID, "err", err)
		return nil
	}
	remindAt := start.Add(-d.offset)
	if !remindAt.After(d.now()) {
		return nil
	}

	var jobs []reminders.Job
	if out.mail != nil {
		jobs = append(jobs, reminders.Job{AppointmentID: out.appointmentID, Channel: "email", Recipient: out.data.Email, RemindAt: remindAt, Data: out.data})
	}
	if d.sms != nil && out.phone != "" {
		jobs = append(jobs, reminders.Job{AppointmentID: out.appointmentID, Channel: "sms", Recipient: out.phone, RemindAt: remindAt, Data: out.data})
	}
	for _, j := range jobs {
		if err := d.reminders.Schedule(ctx, j); err != nil {
			return fmt.Errorf("schedule %s reminder: %w", j.Channel, err)
		}
	}
	return nil
}
