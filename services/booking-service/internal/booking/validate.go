package booking

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

var (
	nationalIDPattern = regexp.MustCompile(`^\d{7,8}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern      = regexp.MustCompile(`^[\d +\-]{8,15}$`)
)

const maxNotesLen = 1000

// Request is a public booking as it arrives on the wire. IDs stay strings so
// the validator can report them per field.
type Request struct {
	TreatmentID string
	Date        string
	Time        string
	NationalID  string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Notes       string
	ClientID    string
}

// Valid is a Request that passed ValidateBooking.
type Valid struct {
	TreatmentID int64
	Date        model.Date
	Time        model.Clock
	NationalID  string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Notes       string
	ClientID    *int64
}

// ValidateBooking checks every field and reports all failures at once as a
// *ValidationError. A well formed date before today fails with ErrPastDate
// instead, ahead of any field error.
func ValidateBooking(req Request, today model.Date) (Valid, error) {
	fields := map[string]string{}
	var out Valid

	if id, msg := parseID("tratamiento_id", req.TreatmentID, true); msg != "" {
		fields["tratamiento_id"] = msg
	} else {
		out.TreatmentID = *id
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		fields["fecha"] = "fecha is required"
	} else if d, err := model.ParseDate(date); err != nil {
		fields["fecha"] = ErrInvalidDate.Error()
	} else if d.Before(today) {
		return Valid{}, ErrPastDate
	} else {
		out.Date = d
	}

	clock := strings.TrimSpace(req.Time)
	if clock == "" {
		fields["hora"] = "hora is required"
	} else if c, err := model.ParseClock(clock); err != nil {
		fields["hora"] = "hora must be HH:MM or HH:MM:SS"
	} else {
		out.Time = c
	}

	out.NationalID = strings.TrimSpace(req.NationalID)
	switch {
	case out.NationalID == "":
		fields["dni_cliente"] = "dni_cliente is required"
	case !nationalIDPattern.MatchString(out.NationalID):
		fields["dni_cliente"] = "dni_cliente must be 7 or 8 digits"
	}

	out.FirstName = strings.TrimSpace(req.FirstName)
	if msg := checkName("nombre_cliente", out.FirstName); msg != "" {
		fields["nombre_cliente"] = msg
	}
	out.LastName = strings.TrimSpace(req.LastName)
	if msg := checkName("apellido_cliente", out.LastName); msg != "" {
		fields["apellido_cliente"] = msg
	}

	out.Email = strings.TrimSpace(req.Email)
	switch {
	case out.Email == "":
		fields["email_cliente"] = "email_cliente is required"
	case !emailPattern.MatchString(out.Email):
		fields["email_cliente"] = "email_cliente must look like name@domain.tld"
	}

	out.Phone = strings.TrimSpace(req.Phone)
	switch {
	case out.Phone == "":
		fields["telefono_cliente"] = "telefono_cliente is required"
	case !phonePattern.MatchString(out.Phone):
		fields["telefono_cliente"] = "telefono_cliente must be 8 to 15 digits, spaces, + or -"
	}

	out.Notes = strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(out.Notes) > maxNotesLen {
		fields["observaciones"] = "observaciones must be at most 1000 characters"
	}

	if id, msg := parseID("cliente_id", req.ClientID, false); msg != "" {
		fields["cliente_id"] = msg
	} else {
		out.ClientID = id
	}

	if len(fields) > 0 {
		return Valid{}, &ValidationError{Fields: fields}
	}
	return out, nil
}

func checkName(field, v string) string {
	switch {
	case v == "":
		return field + " is required"
	case utf8.RuneCountInString(v) < 2:
		return field + " must be at least 2 characters"
	}
	return ""
}

// parseID returns (nil, "") for an absent optional id.
func parseID(field, raw string, required bool) (*int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return nil, field + " is required"
		}
		return nil, ""
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil, field + " must be a positive integer"
	}
	return &n, ""
}
