package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/booking"
	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

const selectRules = `
	SELECT id, dia_semana, to_char(hora_inicio, 'HH24:MI:SS'), to_char(hora_fin, 'HH24:MI:SS'), duracion_turno, activo
	FROM horarios_turnos`

const appointmentColumns = `id::text, tratamiento_id, to_char(fecha, 'YYYY-MM-DD'), to_char(hora, 'HH24:MI:SS'),
	dni_cliente, nombre_cliente, apellido_cliente, email_cliente, telefono_cliente, observaciones,
	cliente_id, estado, created_at, updated_at`

func queryRules(ctx context.Context, q querier, sql string, args ...any) ([]model.ScheduleRule, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleRule
	for rows.Next() {
		var r model.ScheduleRule
		var start, end string
		if err := rows.Scan(&r.ID, &r.Weekday, &start, &end, &r.DurationMinutes, &r.Active); err != nil {
			return nil, err
		}
		if r.Start, err = model.ParseClock(start); err != nil {
			return nil, fmt.Errorf("horarios_turnos.hora_inicio: %w", err)
		}
		if r.End, err = model.ParseClock(end); err != nil {
			return nil, fmt.Errorf("horarios_turnos.hora_fin: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var date, clock string
	err := row.Scan(&a.ID, &a.TreatmentID, &date, &clock, &a.NationalID, &a.FirstName, &a.LastName,
		&a.Email, &a.Phone, &a.Notes, &a.ClientID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	if a.Date, err = model.ParseDate(date); err != nil {
		return model.Appointment{}, fmt.Errorf("turnos.fecha: %w", err)
	}
	if a.Time, err = model.ParseClock(clock); err != nil {
		return model.Appointment{}, fmt.Errorf("turnos.hora: %w", err)
	}
	return a, nil
}

// listQuery builds the staff listing with only the filters that are set.
func listQuery(f booking.ListFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("fecha >= $%d::date", f.From.String())
	}
	if !f.To.IsZero() {
		add("fecha <= $%d::date", f.To.String())
	}
	if f.Status != "" {
		add("estado = $%d", f.Status)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + appointmentColumns + ` FROM turnos`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, f.Limit)
	fmt.Fprintf(&b, " ORDER BY fecha, hora, id LIMIT $%d", len(args))
	return b.String(), args
}
