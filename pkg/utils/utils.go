package utils

import (
	"time"
)

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddMonths moves t forward by n calendar months. When the target month is
// shorter than t's day, the result is clamped to the target month's last day
// (Jan 31 + 1 month = Feb 28/29), unlike time.AddDate which normalizes into
// the following month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := DaysInMonth(first)
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// FullMonthsBetween counts the complete calendar months elapsed from start
// to end, i.e. the largest n with AddMonths(start, n) <= end. It returns -1
// when end is before start.
func FullMonthsBetween(start, end time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)

	if end.Before(start) {
		return -1
	}

	n := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	for n > 0 && AddMonths(start, n).After(end) {
		n--
	}
	return n
}

// DaysBetween returns the number of whole days from start to end, ignoring
// the time of day. Negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// CalculateDueDate returns the due date of the given 1-based installment for a
// loan whose first installment falls on firstDueDate.
func CalculateDueDate(firstDueDate time.Time, installment int) time.Time {
	return AddMonths(firstDueDate, installment-1)
}

// IsDateOverdue checks if dueDate lies strictly before asOf (by calendar day).
func IsDateOverdue(dueDate, asOf time.Time) bool {
	return DateOnly(asOf).After(DateOnly(dueDate))
}
