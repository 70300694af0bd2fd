package booking

import (
	"errors"
	"strings"
	"testing"

	"github.com/clinica-estetica/turnos/services/booking-service/internal/model"
)

var today = model.Date{Year: 2030, Month: 1, Day: 2}

func goodRequest() Request {
	return Request{
		TreatmentID: "3",
		Date:        "2030-01-07",
		Time:        "09:20",
		NationalID:  "1234567",
		FirstName:   "Ana",
		LastName:    "Paz",
		Email:       "ana.paz@clinica.com.ar",
		Phone:       "011 4444-5555",
		Notes:       "  primera visita ",
	}
}

func TestValidateBookingAccepts(t *testing.T) {
	v, err := ValidateBooking(goodRequest(), today)
	if err != nil {
		t.Fatalf("ValidateBooking: %v", err)
	}
	if v.TreatmentID != 3 || v.Date.String() != "2030-01-07" || v.Time.String() != "09:20:00" {
		t.Fatalf("unexpected result %+v", v)
	}
	if v.Notes != "primera visita" || v.ClientID != nil {
		t.Fatalf("unexpected optional fields %+v", v)
	}

	req := goodRequest()
	req.Date = "2030-01-02"
	if _, err := ValidateBooking(req, today); err != nil {
		t.Fatalf("today must be accepted: %v", err)
	}
}

func TestValidateBookingCollectsEveryField(t *testing.T) {
	req := Request{
		TreatmentID: "abc",
		Date:        "07/01/2030",
		Time:        "9h",
		NationalID:  "12.345.678",
		FirstName:   "A",
		LastName:    "",
		Email:       "ana@clinica",
		Phone:       "12345",
		Notes:       strings.Repeat("x", 1001),
		ClientID:    "-4",
	}
	_, err := ValidateBooking(req, today)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{
		"tratamiento_id", "fecha", "hora", "dni_cliente", "nombre_cliente",
		"apellido_cliente", "email_cliente", "telefono_cliente", "observaciones", "cliente_id",
	}
	for _, f := range want {
		if verr.Fields[f] == "" {
			t.Fatalf("missing error for %s in %v", f, verr.Fields)
		}
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("unexpected extra fields %v", verr.Fields)
	}
}

func TestValidateBookingRequiredFields(t *testing.T) {
	_, err := ValidateBooking(Request{}, today)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, f := range []string{"tratamiento_id", "fecha", "hora", "dni_cliente", "nombre_cliente", "apellido_cliente", "email_cliente", "telefono_cliente"} {
		if !strings.Contains(verr.Fields[f], "required") {
			t.Fatalf("%s: expected required message, got %q", f, verr.Fields[f])
		}
	}
	if _, ok := verr.Fields["cliente_id"]; ok {
		t.Fatal("cliente_id is optional")
	}
}

func TestValidateBookingPastDateWins(t *testing.T) {
	req := goodRequest()
	req.Date = "2030-01-01"
	req.Email = "broken"
	if _, err := ValidateBooking(req, today); !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
}

func TestValidateBookingPatterns(t *testing.T) {
	cases := []struct {
		field string
		value string
		ok    bool
	}{
		{"dni_cliente", "12345678", true},
		{"dni_cliente", "123456", false},
		{"dni_cliente", "123456789", false},
		{"email_cliente", "a@b.co", true},
		{"email_cliente", "a b@c.de", false},
		{"telefono_cliente", "+54-11-5555", true},
		{"telefono_cliente", "1234567890123456", false},
		{"telefono_cliente", "11 5555 abcd", false},
		{"telefono_cliente", "1234\t5678", false},
		{"telefono_cliente", "1234\n5678", false},
		{"nombre_cliente", "Íñ", true},
	}
	for _, tc := range cases {
		req := goodRequest()
		switch tc.field {
		case "dni_cliente":
			req.NationalID = tc.value
		case "email_cliente":
			req.Email = tc.value
		case "telefono_cliente":
			req.Phone = tc.value
		case "nombre_cliente":
			req.FirstName = tc.value
		}
		_, err := ValidateBooking(req, today)
		if tc.ok && err != nil {
			t.Fatalf("%s=%q should pass: %v", tc.field, tc.value, err)
		}
		if !tc.ok {
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Fields[tc.field] == "" {
				t.Fatalf("%s=%q should fail, got %v", tc.field, tc.value, err)
			}
		}
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"hora": "bad", "fecha": "bad"}}
	if got := err.Error(); got != "validation failed: fecha: bad; hora: bad" {
		t.Fatalf("unexpected message %q", got)
	}
}
