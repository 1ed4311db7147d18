package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDate reads "YYYY/MM/DD", "YYYY-MM-DD" or "YYYY.MM.DD" as fields of
// a's calendar system and returns local midnight of that day.
func ParseDate(a Adapter, s string) (time.Time, error) {
	normalized := strings.NewReplacer("-", "/", ".", "/").Replace(strings.TrimSpace(s))
	parts := strings.Split(normalized, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY/MM/DD, YYYY-MM-DD or YYYY.MM.DD", s)
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		fields[i] = n
	}
	year, month, day := fields[0], fields[1], fields[2]

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid %s date %q: month out of range", a.System(), s)
	}
	if day < 1 || day > a.MonthLength(year, month) {
		return time.Time{}, fmt.Errorf("invalid %s date %q: day out of range", a.System(), s)
	}

	return a.Time(Date{System: a.System(), Year: year, Month: month, Day: day}), nil
}
