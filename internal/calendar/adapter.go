package calendar

import (
	"time"
)

// Pattern selects one of the fixed label layouts an Adapter can format.
type Pattern string

const (
	PatternDay       Pattern = "d"
	PatternMonth     Pattern = "MMM"
	PatternMonthYear Pattern = "MMMM yyyy"
	PatternNumeric   Pattern = "yyyy/MM/dd"
)

// Date is an instant expressed in the fields of one calendar system.
//
// Weekday is the 0-based position of the day inside that system's week,
// so 0 is always the first column of the grid.
type Date struct {
	System  System
	Year    int
	Month   int
	Day     int
	Weekday int

	Hour       int
	Minute     int
	Second     int
	Nanosecond int
	Location   *time.Location
}

// SameDay reports whether d and o name the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.System == o.System && d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// SameMonth reports whether d and o fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.System == o.System && d.Year == o.Year && d.Month == o.Month
}

// Adapter is the date arithmetic of one calendar system. Every instant
// going in and out is a time.Time; only the field interpretation and the
// month/week boundaries differ between implementations.
type Adapter interface {
	System() System

	StartOfMonth(t time.Time) time.Time
	EndOfMonth(t time.Time) time.Time
	StartOfWeek(t time.Time) time.Time
	EndOfWeek(t time.Time) time.Time
	AddDays(t time.Time, n int) time.Time
	// AddMonths clamps the day of month to the target month's length.
	AddMonths(t time.Time, n int) time.Time

	Format(t time.Time, p Pattern) string
	WeekdayNames() [7]string
	MonthLength(year, month int) int

	Fields(t time.Time) Date
	Time(d Date) time.Time
	ToOther(t time.Time) Date
}

// Calendars holds one adapter per system, bound to a single location.
type Calendars struct {
	loc       *time.Location
	gregorian *gregorianAdapter
	jalali    *jalaliAdapter
}

// NewCalendars builds both adapters. A nil loc means time.Local.
// weekStart only affects the Gregorian adapter; the Jalali week always
// starts on Saturday.
func NewCalendars(loc *time.Location, weekStart time.Weekday) *Calendars {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendars{loc: loc}
	c.gregorian = newGregorianAdapter(loc, weekStart)
	c.jalali = newJalaliAdapter(loc)
	c.gregorian.other = c.jalali
	c.jalali.other = c.gregorian
	return c
}

// For returns the adapter for s.
func (c *Calendars) For(s System) Adapter {
	if s == Jalali {
		return c.jalali
	}
	return c.gregorian
}

// Location is the location every adapter computes in.
func (c *Calendars) Location() *time.Location {
	return c.loc
}

// midnight is the first instant of t's civil day.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return dayStart(y, m, d, t.Location())
}

// dayStart is the first instant of civil day y-m-d in loc. Overflowing
// fields are normalized as time.Date does. Where a DST change skips
// midnight, time.Date may resolve 00:00 to 23:00 of the previous day;
// the result is moved forward onto the requested day.
func dayStart(y int, m time.Month, d int, loc *time.Location) time.Time {
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for i := 0; i < 24 && !onCivilDay(t, want); i++ {
		t = t.Add(time.Hour)
	}
	return t
}

// civilTime is time.Date constrained to the requested civil day. A clock
// that does not exist on that day resolves to the day's first instant.
func civilTime(y int, m time.Month, d, hour, min, sec, nsec int, loc *time.Location) time.Time {
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	t := time.Date(y, m, d, hour, min, sec, nsec, loc)
	if onCivilDay(t, want) {
		return t
	}
	return dayStart(want.Year(), want.Month(), want.Day(), loc)
}

// onCivilDay reports whether t falls on the calendar date of day.
func onCivilDay(t, day time.Time) bool {
	ty, tm, td := t.Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func rotate(names [7]string, first int) [7]string {
	var out [7]string
	for i := range out {
		out[i] = names[(first+i)%7]
	}
	return out
}
