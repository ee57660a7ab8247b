package periodlock

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of a calendar date
const DateLayout = "2006-01-02"

// timestampLayouts are accepted in addition to DateLayout. A timestamp is
// reduced to the day it names in its own offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// CalendarDate is a day on the calendar without time of day or zone.
// The zero value means "no date".
type CalendarDate struct {
	t time.Time // midnight UTC of the day
}

// NewCalendarDate builds a date from its parts. Out-of-range parts are
// normalized the way time.Date does.
func NewCalendarDate(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) CalendarDate {
	if t.IsZero() {
		return CalendarDate{}
	}
	y, m, d := t.Date()
	return NewCalendarDate(y, m, d)
}

// ParseDate parses "YYYY-MM-DD" as a local calendar date. Timestamps are
// accepted and truncated to their own day; they are never shifted to UTC
// first, so "2025-06-30T23:30:00-07:00" is 2025-06-30.
func ParseDate(s string) (CalendarDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CalendarDate{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParseDate is ParseDate that panics on error. Intended for constants and tests.
func MustParseDate(s string) CalendarDate {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero date
func (d CalendarDate) IsZero() bool {
	return d.t.IsZero()
}

// Time returns midnight UTC of the day
func (d CalendarDate) Time() time.Time {
	return d.t
}

// AddDays returns the date n days after d (n may be negative)
func (d CalendarDate) AddDays(n int) CalendarDate {
	if d.IsZero() {
		return d
	}
	return CalendarDate{t: d.t.AddDate(0, 0, n)}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o
func (d CalendarDate) Compare(o CalendarDate) int {
	return d.t.Compare(o.t)
}

func (d CalendarDate) Before(o CalendarDate) bool { return d.t.Before(o.t) }
func (d CalendarDate) After(o CalendarDate) bool  { return d.t.After(o.t) }
func (d CalendarDate) Equal(o CalendarDate) bool  { return d.t.Equal(o.t) }

// String formats the date as YYYY-MM-DD; the zero date formats as "".
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Ptr returns a pointer to a copy of d, or nil for the zero date
func (d CalendarDate) Ptr() *CalendarDate {
	if d.IsZero() {
		return nil
	}
	return &d
}

// MarshalText implements encoding.TextMarshaler
func (d CalendarDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *CalendarDate) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
