package model

import "errors"

// ScheduleRule opens one interval of a weekday for booking, cut into slots of
// DurationMinutes.
type ScheduleRule struct {
	ID              int64
	Weekday         int // 0=Sunday..6=Saturday
	Start           Clock
	End             Clock
	DurationMinutes int
	Active          bool
}

func (r ScheduleRule) Duration() Clock { return Clock(r.DurationMinutes) * Minute }

func (r ScheduleRule) Validate() error {
	switch {
	case r.Weekday < 0 || r.Weekday > 6:
		return errors.New("dia_semana must be between 0 (sunday) and 6 (saturday)")
	case !r.Start.Valid() || !r.End.Valid():
		return errors.New("hora_inicio and hora_fin must be valid times of day")
	case r.Start >= r.End:
		return errors.New("hora_inicio must be before hora_fin")
	case r.DurationMinutes <= 0:
		return errors.New("duracion_turno must be greater than zero")
	}
	return nil
}
