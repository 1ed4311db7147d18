package calendar

import (
	"time"
)

// Corners marks which rounded corners of the whole grid a cell carries.
type Corners struct {
	TopLeft     bool `json:"top_left"`
	TopRight    bool `json:"top_right"`
	BottomLeft  bool `json:"bottom_left"`
	BottomRight bool `json:"bottom_right"`
}

// DayCell is one classified grid cell handed to a presentation layer.
type DayCell struct {
	Date           time.Time `json:"date"`
	PrimaryLabel   string    `json:"primary_label"`
	SecondaryLabel string    `json:"secondary_label"`

	InPrimaryMonth bool `json:"in_primary_month"`
	IsToday        bool `json:"is_today"`
	IsFirstOfMonth bool `json:"is_first_of_month"`
	// MonthLabel is the primary month name, set only on first-of-month cells.
	MonthLabel string `json:"month_label,omitempty"`

	Row     int     `json:"row"`
	Col     int     `json:"col"`
	Corners Corners `json:"corners"`
}

// Classify annotates every day of g. Month membership and first-of-month
// use the primary system's fields; today is compared as a local day.
func Classify(g Grid, cals *Calendars, today time.Time) []DayCell {
	primary := cals.For(g.System)
	secondary := cals.For(g.System.Other())

	month := primary.Fields(g.Window.MonthStart)
	todayFields := primary.Fields(today)

	cells := make([]DayCell, 0, len(g.Days))
	for _, day := range g.Days {
		f := primary.Fields(day.Date)
		cell := DayCell{
			Date:           day.Date,
			PrimaryLabel:   primary.Format(day.Date, PatternDay),
			SecondaryLabel: secondary.Format(day.Date, PatternDay),
			InPrimaryMonth: f.SameMonth(month),
			IsToday:        f.SameDay(todayFields),
			IsFirstOfMonth: f.Day == 1,
			Row:            day.Row,
			Col:            day.Col,
			Corners:        cornersAt(day.Row, day.Col, g.Rows),
		}
		if cell.IsFirstOfMonth {
			cell.MonthLabel = primary.Format(day.Date, PatternMonth)
		}
		cells = append(cells, cell)
	}
	return cells
}

func cornersAt(row, col, rows int) Corners {
	last := row == rows-1
	return Corners{
		TopLeft:     row == 0 && col == 0,
		TopRight:    row == 0 && col == 6,
		BottomLeft:  last && col == 0,
		BottomRight: last && col == 6,
	}
}
