package model

import "time"

// Occurrence is a single concrete instance of a calendar event, after
// recurrence expansion, in the display location.
type Occurrence struct {
	SourceID string `json:"source_id"`
	UID      string `json:"uid"`

	// InstanceKey uniquely identifies one occurrence of a recurring
	// event; it is the RFC3339 local start time.
	InstanceKey string `json:"instance_key"`

	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start is inclusive, End exclusive.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Covers reports whether the occurrence overlaps the local day starting
// at dayStart.
func (o Occurrence) Covers(dayStart time.Time) bool {
	dayEnd := nextDayStart(dayStart)
	if !o.End.After(o.Start) {
		// Zero-length events belong to the day they start on.
		return !o.Start.Before(dayStart) && o.Start.Before(dayEnd)
	}
	return o.Start.Before(dayEnd) && o.End.After(dayStart)
}

// nextDayStart is the first instant of the civil day after t, which is not
// always 00:00 where DST starts at midnight.
func nextDayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	want := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	next := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
	for i := 0; i < 24; i++ {
		ny, nm, nd := next.Date()
		if ny == want.Year() && nm == want.Month() && nd == want.Day() {
			break
		}
		next = next.Add(time.Hour)
	}
	return next
}
