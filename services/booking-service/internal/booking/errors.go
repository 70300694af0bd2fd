package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrPastDate            = errors.New("date is in the past")
	ErrInvalidDate         = errors.New("fecha must be a valid date (YYYY-MM-DD)")
	ErrSlotTaken           = errors.New("the selected slot is no longer available, please choose another time")
	ErrOutsideSchedule     = errors.New("the selected time is not offered on that day")
	ErrTreatmentNotFound   = errors.New("treatment does not exist")
	ErrClientNotFound      = errors.New("client does not exist")
	ErrInvalidStatus       = errors.New("estado must be one of pendiente, confirmado, completado, cancelado")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// ValidationError maps wire field names to messages. Cause, when set, is the
// sentinel that produced a single-field error.
type ValidationError struct {
	Fields map[string]string
	Cause  error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func fieldError(field string, cause error) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: cause.Error()}, Cause: cause}
}
