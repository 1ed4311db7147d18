package calendar

// Weekday names are indexed by time.Weekday (Sunday = 0) for the
// Gregorian table and by position in the Saturday-first week for the
// Jalali one.
var gregorianWeekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var jalaliWeekdays = [7]string{
	"شنبه",
	"یکشنبه",
	"دوشنبه",
	"سه‌شنبه",
	"چهارشنبه",
	"پنج‌شنبه",
	"جمعه",
}

var jalaliMonths = [12]string{
	"فروردین",
	"اردیبهشت",
	"خرداد",
	"تیر",
	"مرداد",
	"شهریور",
	"مهر",
	"آبان",
	"آذر",
	"دی",
	"بهمن",
	"اسفند",
}

// JalaliMonthName returns the Persian name of month m (1-12).
func JalaliMonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return jalaliMonths[m-1]
}
