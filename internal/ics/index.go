package ics

import (
	"time"

	"dualcal/internal/model"
)

const dayKeyLayout = "2006-01-02"

// DayIndex buckets occurrences by the local days they touch.
type DayIndex map[string][]model.Occurrence

// IndexDays assigns every occurrence to each of days it covers. days
// are local midnights, typically the dates of a month grid.
func IndexDays(occurrences []model.Occurrence, days []time.Time) DayIndex {
	idx := make(DayIndex)
	for _, day := range days {
		for _, occ := range occurrences {
			if occ.Covers(day) {
				key := day.Format(dayKeyLayout)
				idx[key] = append(idx[key], occ)
			}
		}
	}
	return idx
}

// On returns the occurrences on day, in start order.
func (ix DayIndex) On(day time.Time) []model.Occurrence {
	return ix[day.Format(dayKeyLayout)]
}
