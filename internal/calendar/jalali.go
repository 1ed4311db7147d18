package calendar

import (
	"fmt"
	"strconv"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// jalaliAdapter works on the solar hijri calendar. Weeks run from
// Shanbeh (Saturday) to Jomeh (Friday).
type jalaliAdapter struct {
	loc   *time.Location
	other Adapter
}

func newJalaliAdapter(loc *time.Location) *jalaliAdapter {
	return &jalaliAdapter{loc: loc}
}

func (a *jalaliAdapter) System() System { return Jalali }

func (a *jalaliAdapter) StartOfMonth(t time.Time) time.Time {
	f := a.Fields(t)
	return a.Time(Date{Year: f.Year, Month: f.Month, Day: 1})
}

func (a *jalaliAdapter) EndOfMonth(t time.Time) time.Time {
	next := a.StartOfMonth(a.AddMonths(a.StartOfMonth(t), 1))
	return next.Add(-time.Nanosecond)
}

func (a *jalaliAdapter) StartOfWeek(t time.Time) time.Time {
	t = t.In(a.loc)
	offset := int(ptime.New(t).Weekday())
	y, m, d := t.Date()
	return dayStart(y, m, d-offset, a.loc)
}

func (a *jalaliAdapter) EndOfWeek(t time.Time) time.Time {
	y, m, d := a.StartOfWeek(t).Date()
	return dayStart(y, m, d+7, a.loc).Add(-time.Nanosecond)
}

// AddDays steps whole local days. Both systems share civil days, so day
// stepping needs no field conversion.
func (a *jalaliAdapter) AddDays(t time.Time, n int) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	return civilTime(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), a.loc)
}

func (a *jalaliAdapter) AddMonths(t time.Time, n int) time.Time {
	f := a.Fields(t)
	total := f.Year*12 + f.Month - 1 + n
	f.Year = floorDiv(total, 12)
	f.Month = total - f.Year*12 + 1
	if last := a.MonthLength(f.Year, f.Month); f.Day > last {
		f.Day = last
	}
	return a.Time(f)
}

// MonthLength is 31 for the first six months, 30 for the next five and
// 29 or 30 for Esfand depending on the leap year.
func (a *jalaliAdapter) MonthLength(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	}
	esfand := ptime.Date(year, ptime.Esfand, 1, 12, 0, 0, 0, time.UTC).Time()
	nowruz := ptime.Date(year+1, ptime.Farvardin, 1, 12, 0, 0, 0, time.UTC).Time()
	return int(nowruz.Sub(esfand).Hours() / 24)
}

func (a *jalaliAdapter) Format(t time.Time, p Pattern) string {
	f := a.Fields(t)
	switch p {
	case PatternDay:
		return strconv.Itoa(f.Day)
	case PatternMonth:
		return JalaliMonthName(f.Month)
	case PatternMonthYear:
		return JalaliMonthName(f.Month) + " " + strconv.Itoa(f.Year)
	default:
		return fmt.Sprintf("%04d/%02d/%02d", f.Year, f.Month, f.Day)
	}
}

func (a *jalaliAdapter) WeekdayNames() [7]string {
	return jalaliWeekdays
}

func (a *jalaliAdapter) Fields(t time.Time) Date {
	t = t.In(a.loc)
	p := ptime.New(t)
	return Date{
		System:     Jalali,
		Year:       p.Year(),
		Month:      int(p.Month()),
		Day:        p.Day(),
		Weekday:    int(p.Weekday()),
		Hour:       t.Hour(),
		Minute:     t.Minute(),
		Second:     t.Second(),
		Nanosecond: t.Nanosecond(),
		Location:   a.loc,
	}
}

func (a *jalaliAdapter) Time(d Date) time.Time {
	loc := d.Location
	if loc == nil {
		loc = a.loc
	}
	// Resolve the civil date at noon UTC, then place the clock in loc.
	g := ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, time.UTC).Time()
	return civilTime(g.Year(), g.Month(), g.Day(), d.Hour, d.Minute, d.Second, d.Nanosecond, loc)
}

func (a *jalaliAdapter) ToOther(t time.Time) Date {
	return a.other.Fields(t)
}
