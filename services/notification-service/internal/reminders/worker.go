package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinica-estetica/turnos/services/notification-service/internal/email"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/sms"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/storage"
)

const EventType = "turnos.reminder"

type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, nextRunAt time.Time, final bool, reason string) error
}

type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
	Lease     time.Duration
}

type Worker struct {
	store  Store
	mail   email.Sender
	sms    sms.Sender
	log    Recorder
	logger *slog.Logger
	cfg    WorkerConfig
	now    func() time.Time
}

func NewWorker(store Store, mail email.Sender, text sms.Sender, rec Recorder, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Minute
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	return &Worker{store: store, mail: mail, sms: text, log: rec, logger: logger, cfg: cfg, now: time.Now}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

// RunOnce delivers one batch of due reminders and returns how many were sent.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.store.ClaimDue(ctx, w.now(), w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim reminders: %w", err)
	}
	sent := 0
	for _, job := range jobs {
		jobCtx, span := otel.Tracer("reminders").Start(job.Trace.Context(ctx), "reminder.deliver",
			trace.WithAttributes(
				attribute.String("turno.id", job.AppointmentID),
				attribute.String("notification.channel", job.Channel),
				attribute.Int("reminder.attempt", job.Attempts),
			))
		provider, sendErr := w.deliver(jobCtx, job)
		if sendErr != nil {
			span.RecordError(sendErr)
		}
		span.End()

		n := storage.Notification{
			EventID:       fmt.Sprintf("reminder-%d", job.ID),
			AppointmentID: job.AppointmentID,
			EventType:     EventType,
			Channel:       job.Channel,
			Recipient:     job.Recipient,
			ProviderID:    provider,
			Status:        storage.StatusSent,
		}
		switch {
		case sendErr == nil:
			sent++
			err = w.store.MarkSent(ctx, job.ID)
		case errors.As(sendErr, &email.ErrDisabled{}):
			// Nothing to retry until SMTP is configured.
			n.Status = storage.StatusSkipped
			w.logger.Info("reminder skipped", "job_id", job.ID, "channel", job.Channel, "err", sendErr)
			err = w.store.MarkSent(ctx, job.ID)
		default:
			n.Status, n.Error = storage.StatusFailed, sendErr.Error()
			final := job.Attempts >= job.MaxAttempts
			w.logger.Error("reminder send failed", "job_id", job.ID, "attempt", job.Attempts, "final", final, "err", sendErr)
			err = w.store.MarkFailed(ctx, job.ID, w.now().Add(w.cfg.Backoff), final, sendErr.Error())
		}
		if err != nil {
			return sent, fmt.Errorf("update reminder %d: %w", job.ID, err)
		}
		if err := w.log.Insert(ctx, n); err != nil {
			w.logger.Warn("reminder notification not recorded", "job_id", job.ID, "err", err)
		}
	}
	return sent, nil
}

func (w *Worker) deliver(ctx context.Context, job Job) (string, error) {
	switch job.Channel {
	case "email":
		return w.mail.ProviderID(), w.mail.Send(ctx, email.ReminderEmail(job.Data))
	case "sms":
		if w.sms == nil {
			return "", fmt.Errorf("sms disabled")
		}
		return w.sms.ProviderID(), w.sms.Send(ctx, job.Recipient, ReminderText(job.Data))
	default:
		return "", fmt.Errorf("unsupported channel %q", job.Channel)
	}
}

func ReminderText(d email.AppointmentData) string {
	return fmt.Sprintf("%s: te recordamos tu turno del %s a las %s.", d.ClinicName, d.Date, d.Time)
}
