package model

import (
	"fmt"
	"strconv"
	"time"
)

// Date is a calendar day with no time zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate reads YYYY-MM-DD from its integer components, so the weekday never
// shifts with the server's zone.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' || !digits(s[0:4]+s[5:7]+s[8:10]) {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	d, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	date := Date{Year: y, Month: time.Month(m), Day: d}
	if m < 1 || m > 12 || d < 1 || d > daysIn(date.Year, date.Month) {
		return Date{}, fmt.Errorf("invalid date %q: no such day", s)
	}
	return date, nil
}

// DateOf returns the calendar day of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday uses 0=Sunday..6=Saturday.
func (d Date) Weekday() int {
	return int(d.noonUTC().Weekday())
}

func (d Date) Before(o Date) bool {
	return d.noonUTC().Before(o.noonUTC())
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) AddDays(n int) Date {
	return DateOf(d.noonUTC().AddDate(0, 0, n), time.UTC)
}

func (d Date) noonUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clock is a time of day in whole seconds since midnight.
type Clock int

const (
	Minute Clock = 60
	Hour   Clock = 60 * Minute
	day    Clock = 24 * Hour
)

// ParseClock accepts HH:MM or HH:MM:SS.
func ParseClock(s string) (Clock, error) {
	bad := fmt.Errorf("invalid time %q: want HH:MM or HH:MM:SS", s)
	if len(s) != 5 && len(s) != 8 {
		return 0, bad
	}
	if s[2] != ':' || (len(s) == 8 && s[5] != ':') {
		return 0, bad
	}
	if !digits(s[0:2]+s[3:5]) || (len(s) == 8 && !digits(s[6:8])) {
		return 0, bad
	}
	h, err := strconv.Atoi(s[0:2])
	if err != nil || h < 0 || h > 23 {
		return 0, bad
	}
	m, err := strconv.Atoi(s[3:5])
	if err != nil || m < 0 || m > 59 {
		return 0, bad
	}
	sec := 0
	if len(s) == 8 {
		sec, err = strconv.Atoi(s[6:8])
		if err != nil || sec < 0 || sec > 59 {
			return 0, bad
		}
	}
	return Clock(h)*Hour + Clock(m)*Minute + Clock(sec), nil
}

// String is the canonical HH:MM:SS form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c/Hour), int(c%Hour/Minute), int(c%Minute))
}

// Display is the HH:MM form shown to clients.
func (c Clock) Display() string {
	return fmt.Sprintf("%02d:%02d", int(c/Hour), int(c%Hour/Minute))
}

func (c Clock) Valid() bool { return c >= 0 && c < day }
