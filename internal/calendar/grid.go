package calendar

import (
	"time"
)

// MonthWindow is the primary month plus the whole weeks around it.
// GridStart <= MonthStart <= MonthEnd <= GridEnd always holds.
type MonthWindow struct {
	MonthStart time.Time `json:"month_start"`
	MonthEnd   time.Time `json:"month_end"`
	GridStart  time.Time `json:"grid_start"`
	GridEnd    time.Time `json:"grid_end"`
}

// NewMonthWindow computes the window of the month containing anchor,
// using a's month and week boundaries.
func NewMonthWindow(a Adapter, anchor time.Time) MonthWindow {
	start := a.StartOfMonth(anchor)
	end := a.EndOfMonth(start)
	return MonthWindow{
		MonthStart: start,
		MonthEnd:   end,
		GridStart:  a.StartOfWeek(start),
		GridEnd:    a.EndOfWeek(end),
	}
}

// Days counts the calendar days from GridStart to GridEnd inclusive.
func (w MonthWindow) Days() int {
	return civilDays(w.GridStart, w.GridEnd) + 1
}

// civilDays is the number of local days from a to b, ignoring clock time
// and DST shifts.
func civilDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// GridDay is one position of the grid before classification.
type GridDay struct {
	Date time.Time
	Row  int
	Col  int
}

// Grid is the ordered day sequence of a MonthWindow.
type Grid struct {
	System System
	Window MonthWindow
	Days   []GridDay
	Rows   int
}

// BuildGrid lays out the window of the month containing anchor. Cell i is
// the first instant of the civil day i days after GridStart, stepped with
// the primary adapter's AddDays. The result is whole weeks: 35 or 42
// days, or 28 for a 28-day month that starts on the first column.
func BuildGrid(primary Adapter, anchor time.Time) Grid {
	w := NewMonthWindow(primary, anchor)

	n := w.Days()
	days := make([]GridDay, 0, n)
	for i := 0; i < n; i++ {
		d := midnight(primary.AddDays(w.GridStart, i))
		days = append(days, GridDay{Date: d, Row: i / 7, Col: i % 7})
	}

	return Grid{
		System: primary.System(),
		Window: w,
		Days:   days,
		Rows:   len(days) / 7,
	}
}
