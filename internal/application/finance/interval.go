package finance

import (
	"time"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// TickAt returns the n-th occurrence date of a recurrence rule anchored at
// start. Month-based intervals step whole calendar months from the anchor
// and clamp to the target month's last day, so a rule anchored on Jan 31
// ticks on Feb 28 (29 in leap years) and back on Mar 31 without drifting.
func TickAt(start time.Time, interval domain.RecurrenceInterval, n int) time.Time {
	if n <= 0 {
		return start
	}
	switch interval {
	case domain.IntervalDay:
		return start.AddDate(0, 0, n)
	case domain.IntervalWeek:
		return start.AddDate(0, 0, 7*n)
	case domain.IntervalMonth:
		return addMonthsClamped(start, n)
	case domain.IntervalQuarter:
		return addMonthsClamped(start, 3*n)
	case domain.IntervalHalfYear:
		return addMonthsClamped(start, 6*n)
	case domain.IntervalYear:
		return addMonthsClamped(start, 12*n)
	}
	return start
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
