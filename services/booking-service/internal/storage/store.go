// Package storage implements booking.Store on PostgreSQL.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinica-estetica/turnos/libs/db"
	"github.com/clinica-estetica/turnos/libs/outbox"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

const slotConstraint = "turnos_slot_unique"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(txStore{tx: tx})
	})
}

func (s *Store) ActiveRules(ctx context.Context, weekday int) ([]model.ScheduleRule, error) {
	return queryRules(ctx, s.pool, selectRules+` WHERE dia_semana = $1 AND activo ORDER BY hora_inicio, id`, weekday)
}

func (s *Store) ListRules(ctx context.Context) ([]model.ScheduleRule, error) {
	return queryRules(ctx, s.pool, selectRules+` ORDER BY dia_semana, hora_inicio, id`)
}

func (s *Store) BookedTimes(ctx context.Context, date model.Date, treatmentID *int64) ([]model.Clock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(hora, 'HH24:MI:SS')
		FROM turnos
		WHERE fecha = $1::date
			AND estado <> 'cancelado'
			AND ($2::bigint IS NULL OR tratamiento_id = $2)
	`, date.String(), treatmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Clock
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		c, err := model.ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("turnos.hora: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListAppointments(ctx context.Context, f booking.ListFilter) ([]model.Appointment, error) {
	sql, args := listQuery(f)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM turnos WHERE id = $1::uuid`, id))
	if db.IsNotFound(err) {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	return a, err
}

// txStore is the booking.Tx view of an open transaction.
type txStore struct {
	tx pgx.Tx
}

func (t txStore) SlotTaken(ctx context.Context, date model.Date, c model.Clock, treatmentID int64) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM turnos
			WHERE fecha = $1::date AND hora = $2::time AND tratamiento_id = $3 AND estado <> 'cancelado'
		)
	`, date.String(), c.String(), treatmentID).Scan(&taken)
	return taken, err
}

func (t txStore) TreatmentExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM tratamientos WHERE id = $1)`, id)
}

func (t txStore) ClientExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM clientes WHERE id = $1)`, id)
}

func (t txStore) LockActiveRules(ctx context.Context, weekday int) ([]model.ScheduleRule, error) {
	return queryRules(ctx, t.tx, selectRules+` WHERE dia_semana = $1 AND activo ORDER BY hora_inicio, id FOR SHARE`, weekday)
}

func (t txStore) InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	stored, err := scanAppointment(t.tx.QueryRow(ctx, `
		INSERT INTO turnos
			(id, tratamiento_id, fecha, hora, dni_cliente, nombre_cliente, apellido_cliente,
			 email_cliente, telefono_cliente, observaciones, cliente_id, estado)
		VALUES ($1::uuid, $2, $3::date, $4::time, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+appointmentColumns,
		a.ID, a.TreatmentID, a.Date.String(), a.Time.String(), a.NationalID, a.FirstName, a.LastName,
		a.Email, a.Phone, a.Notes, a.ClientID, a.Status,
	))
	switch {
	case err == nil:
		return stored, nil
	case db.IsUniqueViolation(err) && db.ConstraintName(err) == slotConstraint:
		return model.Appointment{}, booking.ErrSlotTaken
	case db.IsForeignKeyViolation(err):
		return model.Appointment{}, &booking.ValidationError{
			Fields: map[string]string{"tratamiento_id": "treatment or client no longer exists"},
			Cause:  booking.ErrTreatmentNotFound,
		}
	default:
		return model.Appointment{}, fmt.Errorf("insert turno: %w", err)
	}
}

func (t txStore) SetStatus(ctx context.Context, id, status string) (string, model.Appointment, error) {
	var prev string
	err := t.tx.QueryRow(ctx, `SELECT estado FROM turnos WHERE id = $1::uuid FOR UPDATE`, id).Scan(&prev)
	if db.IsNotFound(err) {
		return "", model.Appointment{}, booking.ErrAppointmentNotFound
	}
	if err != nil {
		return "", model.Appointment{}, err
	}

	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		UPDATE turnos SET estado = $2, updated_at = now()
		WHERE id = $1::uuid
		RETURNING `+appointmentColumns, id, status))
	if db.IsUniqueViolation(err) && db.ConstraintName(err) == slotConstraint {
		return "", model.Appointment{}, booking.ErrSlotTaken
	}
	if err != nil {
		return "", model.Appointment{}, err
	}
	return prev, a, nil
}

func (t txStore) DeleteAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `DELETE FROM turnos WHERE id = $1::uuid RETURNING `+appointmentColumns, id))
	if db.IsNotFound(err) {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("delete turno: %w", err)
	}
	return a, nil
}

// ReplaceRules deletes every rule and inserts the new set; bookings holding
// FOR SHARE locks on the old rows finish first.
func (t txStore) ReplaceRules(ctx context.Context, rules []model.ScheduleRule) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM horarios_turnos`); err != nil {
		return fmt.Errorf("delete horarios: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rules {
		batch.Queue(`
			INSERT INTO horarios_turnos (dia_semana, hora_inicio, hora_fin, duracion_turno, activo)
			VALUES ($1, $2::time, $3::time, $4, $5)
		`, r.Weekday, r.Start.String(), r.End.String(), r.DurationMinutes, r.Active)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert horarios: %w", err)
	}
	return nil
}

func (t txStore) Enqueue(ctx context.Context, evt outbox.Event) error {
	return outbox.Insert(ctx, t.tx, evt)
}

func exists(ctx context.Context, q querier, sql string, args ...any) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, sql, args...).Scan(&ok)
	return ok, err
}
