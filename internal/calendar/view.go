package calendar

import (
	"time"
)

// ViewState is everything the calendar view remembers between renders.
// Anchor is the only stored date; Jalali fields are always derived from it.
type ViewState struct {
	Anchor  time.Time `json:"anchor"`
	Primary System    `json:"primary"`
}

// NextMonth moves the anchor one month forward in the primary system.
func (s ViewState) NextMonth(c *Calendars) ViewState {
	return ViewState{Anchor: c.For(s.Primary).AddMonths(s.Anchor, 1), Primary: s.Primary}
}

// PrevMonth moves the anchor one month back in the primary system.
func (s ViewState) PrevMonth(c *Calendars) ViewState {
	return ViewState{Anchor: c.For(s.Primary).AddMonths(s.Anchor, -1), Primary: s.Primary}
}

// Today moves the anchor to t, keeping the primary system.
func (s ViewState) Today(t time.Time) ViewState {
	return ViewState{Anchor: t, Primary: s.Primary}
}

// Toggle swaps the primary system; the anchor instant is unchanged.
func (s ViewState) Toggle() ViewState {
	return ViewState{Anchor: s.Anchor, Primary: s.Primary.Other()}
}

// Select sets the anchor to a clicked day.
func (s ViewState) Select(day time.Time) ViewState {
	return ViewState{Anchor: day, Primary: s.Primary}
}

// View is the render payload for one ViewState.
type View struct {
	State    ViewState   `json:"state"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle"`
	Weekdays [7]string   `json:"weekdays"`
	Window   MonthWindow `json:"window"`
	Rows     int         `json:"rows"`
	Cells    []DayCell   `json:"cells"`
}

// Render builds the grid for s and classifies it against today.
func Render(c *Calendars, s ViewState, today time.Time) View {
	primary := c.For(s.Primary)
	secondary := c.For(s.Primary.Other())

	grid := BuildGrid(primary, s.Anchor)
	return View{
		State:    s,
		Title:    primary.Format(s.Anchor, PatternMonthYear),
		Subtitle: secondary.Format(s.Anchor, PatternMonthYear),
		Weekdays: primary.WeekdayNames(),
		Window:   grid.Window,
		Rows:     grid.Rows,
		Cells:    Classify(grid, c, today),
	}
}
