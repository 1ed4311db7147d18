package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jinzhu/now"
)

type gregorianAdapter struct {
	loc       *time.Location
	weekStart time.Weekday
	bounds    *now.Config
	other     Adapter
}

func newGregorianAdapter(loc *time.Location, weekStart time.Weekday) *gregorianAdapter {
	return &gregorianAdapter{
		loc:       loc,
		weekStart: weekStart,
		bounds: &now.Config{
			WeekStartDay: weekStart,
			TimeLocation: loc,
		},
	}
}

func (a *gregorianAdapter) System() System { return Gregorian }

func (a *gregorianAdapter) StartOfMonth(t time.Time) time.Time {
	t = t.In(a.loc)
	y, m, _ := t.Date()
	return settle(a.bounds.With(t).BeginningOfMonth(), y, m, 1)
}

// EndOfMonth is the last instant before the next month's first day.
func (a *gregorianAdapter) EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.In(a.loc).Date()
	return dayStart(y, m+1, 1, a.loc).Add(-time.Nanosecond)
}

func (a *gregorianAdapter) StartOfWeek(t time.Time) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	offset := (int(t.Weekday()) - int(a.weekStart) + 7) % 7
	return settle(a.bounds.With(t).BeginningOfWeek(), y, m, d-offset)
}

func (a *gregorianAdapter) EndOfWeek(t time.Time) time.Time {
	y, m, d := a.StartOfWeek(t).Date()
	return dayStart(y, m, d+7, a.loc).Add(-time.Nanosecond)
}

func (a *gregorianAdapter) AddDays(t time.Time, n int) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	return civilTime(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), a.loc)
}

// settle keeps a boundary computed by jinzhu/now unless a skipped
// midnight pushed it off the intended civil day.
func settle(t time.Time, y int, m time.Month, d int) time.Time {
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if onCivilDay(t, want) {
		return t
	}
	return dayStart(y, m, d, t.Location())
}

func (a *gregorianAdapter) AddMonths(t time.Time, n int) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	total := y*12 + int(m) - 1 + n
	ny := floorDiv(total, 12)
	nm := total - ny*12 + 1
	if last := a.MonthLength(ny, nm); d > last {
		d = last
	}
	return civilTime(ny, time.Month(nm), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), a.loc)
}

func (a *gregorianAdapter) MonthLength(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (a *gregorianAdapter) Format(t time.Time, p Pattern) string {
	t = t.In(a.loc)
	switch p {
	case PatternDay:
		return strconv.Itoa(t.Day())
	case PatternMonth:
		return t.Format("Jan")
	case PatternMonthYear:
		return t.Format("January 2006")
	default:
		return fmt.Sprintf("%04d/%02d/%02d", t.Year(), int(t.Month()), t.Day())
	}
}

func (a *gregorianAdapter) WeekdayNames() [7]string {
	return rotate(gregorianWeekdays, int(a.weekStart))
}

func (a *gregorianAdapter) Fields(t time.Time) Date {
	t = t.In(a.loc)
	return Date{
		System:     Gregorian,
		Year:       t.Year(),
		Month:      int(t.Month()),
		Day:        t.Day(),
		Weekday:    (int(t.Weekday()) - int(a.weekStart) + 7) % 7,
		Hour:       t.Hour(),
		Minute:     t.Minute(),
		Second:     t.Second(),
		Nanosecond: t.Nanosecond(),
		Location:   a.loc,
	}
}

func (a *gregorianAdapter) Time(d Date) time.Time {
	loc := d.Location
	if loc == nil {
		loc = a.loc
	}
	return civilTime(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, d.Nanosecond, loc)
}

func (a *gregorianAdapter) ToOther(t time.Time) Date {
	return a.other.Fields(t)
}
