package domain

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for calendar dates ("2006-01-02").
// Trips store dates without a time or zone component; all arithmetic is done
// on whole days in UTC so DST transitions can never produce a short day.
const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or timezone component.
// The zero value is "unset" (IsZero reports true).
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("domain.ParseDate: %w", err)
	}
	return Date{t}, nil
}

// String returns the date in "2006-01-02" form, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n whole days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

// MarshalJSON encodes the date as a "2006-01-02" JSON string.
// The zero value encodes as "" so it survives a round-trip as unset.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "2006-01-02" JSON string; "" and null mean unset.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == `""` || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(`"`+dateLayout+`"`, s)
	if err != nil {
		return fmt.Errorf("domain.Date: unmarshal %s: %w", s, err)
	}
	*d = Date{t}
	return nil
}

// DateRange returns every calendar date from start to end inclusive, in
// ascending order. It returns nil when either date is unset or when start is
// after end, mirroring the defensive behavior callers rely on when a user is
// mid-way through editing a date field.
func DateRange(start, end Date) []Date {
	if start.IsZero() || end.IsZero() || start.After(end.Time) {
		return nil
	}
	var dates []Date
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}
