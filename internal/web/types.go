package web

import (
	"time"

	"dualcal/internal/calendar"
)

// monthResponse is the JSON shape of every /api/month* endpoint.
type monthResponse struct {
	State    calendar.ViewState   `json:"state"`
	Title    string               `json:"title"`
	Subtitle string               `json:"subtitle"`
	Weekdays [7]string            `json:"weekdays"`
	Window   calendar.MonthWindow `json:"window"`
	Rows     int                  `json:"rows"`
	Cells    []cellDTO            `json:"cells"`

	EventsUpdatedAt *time.Time `json:"events_updated_at,omitempty"`
}

// cellDTO is a classified cell plus the events touching that day.
type cellDTO struct {
	calendar.DayCell
	Events []eventDTO `json:"events,omitempty"`
}

type eventDTO struct {
	SourceID string    `json:"source_id"`
	Summary  string    `json:"summary"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// convertResponse is the JSON shape of /api/convert.
type convertResponse struct {
	Gregorian dateDTO `json:"gregorian"`
	Jalali    dateDTO `json:"jalali"`
}

type dateDTO struct {
	System    calendar.System `json:"system"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Day       int             `json:"day"`
	Weekday   string          `json:"weekday"`
	Numeric   string          `json:"numeric"`
	MonthYear string          `json:"month_year"`
}

func newDateDTO(a calendar.Adapter, t time.Time) dateDTO {
	f := a.Fields(t)
	return dateDTO{
		System:    f.System,
		Year:      f.Year,
		Month:     f.Month,
		Day:       f.Day,
		Weekday:   a.WeekdayNames()[f.Weekday],
		Numeric:   a.Format(t, calendar.PatternNumeric),
		MonthYear: a.Format(t, calendar.PatternMonthYear),
	}
}
