package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date format used for storage, JSON and
// ordering. Being fixed-width and zero-padded, its lexicographic order is the
// chronological order.
const DateLayout = "2006-01-02"

// Date is a calendar day, stored as UTC midnight.
type Date struct {
	time.Time
}

// Period is an inclusive range of calendar days.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does (day 0 is the last day of the previous month).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar day in loc (time.Local when nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Month returns the month number (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int { return d.Time.Compare(o.Time) }

// IsWeekend reports whether the day is a Saturday or a Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(strings.Trim(s, `"`)))
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfWeek returns the Monday of d's week.
func StartOfWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// EndOfWeek returns the Sunday of d's week.
func EndOfWeek(d Date) Date {
	return StartOfWeek(d).AddDays(6)
}

func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

func EndOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

func StartOfYear(d Date) Date {
	return NewDate(d.Year(), 1, 1)
}

func EndOfYear(d Date) Date {
	return NewDate(d.Year(), 12, 31)
}

// WeekOf returns the Monday-to-Sunday week containing d.
func WeekOf(d Date) Period {
	return Period{Start: StartOfWeek(d), End: EndOfWeek(d)}
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Period {
	return Period{Start: StartOfMonth(d), End: EndOfMonth(d)}
}

// YearOf returns the calendar year containing d.
func YearOf(d Date) Period {
	return Period{Start: StartOfYear(d), End: EndOfYear(d)}
}

// PreviousWeek returns the week before the one containing d.
func PreviousWeek(d Date) Period {
	return WeekOf(d.AddDays(-7))
}

// PreviousMonth returns the calendar month before the one containing d.
func PreviousMonth(d Date) Period {
	return MonthOf(StartOfMonth(d).AddDays(-1))
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}
