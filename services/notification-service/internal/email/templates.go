package email

import (
	"fmt"
	"html"
)

// AppointmentData fills the client-facing templates.
type AppointmentData struct {
	ClinicName string `json:"clinic_name"`
	FirstName  string `json:"first_name"`
	Email      string `json:"email"`
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:MM
}

func (d AppointmentData) clinic() string {
	if d.ClinicName == "" {
		return "la clínica"
	}
	return d.ClinicName
}

// BookedEmail acknowledges a new pending appointment.
func BookedEmail(d AppointmentData) Message {
	return build(d,
		fmt.Sprintf("Recibimos tu solicitud de turno en %s", d.clinic()),
		fmt.Sprintf("Registramos tu turno para el %s a las %s. Te avisaremos cuando quede confirmado.", d.Date, d.Time),
	)
}

func ConfirmedEmail(d AppointmentData) Message {
	return build(d,
		fmt.Sprintf("Tu turno en %s está confirmado", d.clinic()),
		fmt.Sprintf("Te esperamos el %s a las %s.", d.Date, d.Time),
	)
}

func CancelledEmail(d AppointmentData) Message {
	return build(d,
		fmt.Sprintf("Tu turno en %s fue cancelado", d.clinic()),
		fmt.Sprintf("El turno del %s a las %s fue cancelado. Podés reservar otro horario cuando quieras.", d.Date, d.Time),
	)
}

func build(d AppointmentData, subject, line string) Message {
	name := d.FirstName
	if name == "" {
		name = "Hola"
	} else {
		name = "Hola " + name
	}
	text := fmt.Sprintf("%s,\n\n%s\n\nSaludos,\n%s", name, line, d.clinic())
	body := fmt.Sprintf(`<!DOCTYPE html>
<html><body style="font-family: sans-serif; line-height: 1.5; color: #333;">
<p>%s,</p>
<p>%s</p>
<p>Saludos,<br>%s</p>
</body></html>`, html.EscapeString(name), html.EscapeString(line), html.EscapeString(d.clinic()))

	return Message{To: []string{d.Email}, Subject: subject, TextBody: text, HTMLBody: body}
}

func ReminderEmail(d AppointmentData) Message {
	return build(d,
		fmt.Sprintf("Recordatorio de tu turno en %s", d.clinic()),
		fmt.Sprintf("Te recordamos tu turno del %s a las %s.", d.Date, d.Time),
	)
}
