// Package billing holds the pure calendar and money arithmetic behind enrollment billing.
// Nothing in this package performs I/O; every function is deterministic for its inputs.
//
// Day-of-week numbering is ISO-8601 everywhere in this package: 1=Monday .. 7=Sunday.
// ISOWeekday is the single place where Go's time.Weekday (Sunday=0) is converted.
package billing

import "time"

// ISOWeekday converts t's weekday to ISO numbering (Monday=1, Sunday=7).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// CountLessons counts the days in [start, end] whose ISO weekday appears in days.
// Time-of-day is ignored on both ends. It returns 0 when start is after end.
func CountLessons(days []int, start, end time.Time) int {
	start, end = DateOf(start), DateOf(end)
	if start.After(end) || len(days) == 0 {
		return 0
	}
	var scheduled [8]bool
	for _, d := range days {
		if d >= 1 && d <= 7 {
			scheduled[d] = true
		}
	}

	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if scheduled[ISOWeekday(day)] {
			count++
		}
	}
	return count
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
