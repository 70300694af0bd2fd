package reminders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clinica-estetica/turnos/libs/db"
	otelx "github.com/clinica-estetica/turnos/libs/otel"
	"github.com/clinica-estetica/turnos/services/notification-service/internal/email"
)

// Job is one reminder to deliver on one channel.
type Job struct {
	ID            int64
	AppointmentID string
	Channel       string
	Recipient     string
	RemindAt      time.Time
	Data          email.AppointmentData
	Attempts      int
	MaxAttempts   int
	Trace         otelx.TraceContext
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Schedule is idempotent per (appointment, channel, remind_at); a cancelled
// job is revived.
func (r *Repository) Schedule(ctx context.Context, j Job) error {
	data, err := json.Marshal(j.Data)
	if err != nil {
		return err
	}
	tc := otelx.CaptureTrace(ctx)
	_, err = r.pool.Exec(ctx, `
		INSERT INTO reminder_jobs (appointment_id, channel, recipient, remind_at, data, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $4, $6, $7)
		ON CONFLICT (appointment_id, channel, remind_at) DO UPDATE
		SET status = 'pending', attempts = 0, next_run_at = EXCLUDED.next_run_at, updated_at = now()
		WHERE reminder_jobs.status = 'cancelled'
	`, j.AppointmentID, j.Channel, j.Recipient, j.RemindAt, data, tc.Parent, tc.State)
	return err
}

func (r *Repository) Cancel(ctx context.Context, appointmentID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminder_jobs SET status = 'cancelled', updated_at = now()
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClaimDue leases up to limit due jobs: their next_run_at moves to
// now+lease and attempts is incremented, so a crashed worker's jobs are
// picked up again once the lease expires.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE reminder_jobs j
		SET attempts = j.attempts + 1, next_run_at = $2::timestamptz + make_interval(secs => $3), updated_at = now()
		FROM (
			SELECT id FROM reminder_jobs
			WHERE status = 'pending' AND next_run_at <= $2
			ORDER BY next_run_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) due
		WHERE j.id = due.id
		RETURNING j.id, j.appointment_id, j.channel, j.recipient, j.remind_at, j.data, j.attempts, j.max_attempts, j.traceparent, j.tracestate
	`, limit, now, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var raw []byte
		if err := rows.Scan(&j.ID, &j.AppointmentID, &j.Channel, &j.Recipient, &j.RemindAt, &raw, &j.Attempts, &j.MaxAttempts, &j.Trace.Parent, &j.Trace.State); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &j.Data); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_jobs SET status = 'sent', last_error = '', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	return err
}

// MarkFailed reschedules the job, or fails it for good when final is set.
func (r *Repository) MarkFailed(ctx context.Context, id int64, nextRunAt time.Time, final bool, reason string) error {
	status := "pending"
	if final {
		status = "failed"
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_jobs SET status = $2, next_run_at = $3, last_error = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status, nextRunAt, reason)
	return err
}
