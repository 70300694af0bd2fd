// Package storage keeps the delivery history of client notifications.
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinica-estetica/turnos/libs/db"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Notification is one delivery attempt for an appointment event.
type Notification struct {
	ID            int64
	EventID       string
	AppointmentID string
	EventType     string
	Channel       string
	Recipient     string
	Status        string
	ProviderID    string
	Error         string
	CreatedAt     time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (event_id, appointment_id, event_type, channel, recipient, status, provider_id, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.EventID, n.AppointmentID, n.EventType, n.Channel, n.Recipient, n.Status, n.ProviderID, n.Error)
	return err
}

// ListByAppointment returns the newest attempts first, at most limit rows.
func (r *Repository) ListByAppointment(ctx context.Context, appointmentID string, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, appointment_id, event_type, channel, recipient, status, provider_id, error, created_at
		FROM notifications
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, appointmentID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var n Notification
		err := row.Scan(&n.ID, &n.EventID, &n.AppointmentID, &n.EventType, &n.Channel, &n.Recipient,
			&n.Status, &n.ProviderID, &n.Error, &n.CreatedAt)
		return n, err
	})
}
