package logicalday

import (
	"fmt"
	"time"

	apperrors "github.com/julianstephens/lifeplan/internal/errors"
)

// Days returns every date from start to end inclusive. It is empty when end is before start.
func Days(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	days := make([]Date, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether d lies within [start, end].
func Contains(start, end, d Date) bool {
	return !d.Before(start) && !d.After(end)
}

// ValidateRange checks start <= end and, when maxDays > 0, that the inclusive range
// spans at most maxDays days.
func ValidateRange(start, end Date, maxDays int) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", apperrors.ErrInvalidRange)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: %s is before %s", apperrors.ErrInvalidRange, end, start)
	}
	if maxDays > 0 && DaysBetween(start, end)+1 > maxDays {
		return fmt.Errorf("%w: %s..%s exceeds %d days", apperrors.ErrRangeTooLarge, start, end, maxDays)
	}
	return nil
}

// MonthRange returns the first and last date of d's month.
func MonthRange(d Date) (Date, Date) {
	first := Date{Year: d.Year, Month: d.Month, Day: 1}
	last := New(d.Year, d.Month+1, 0)
	return first, last
}

// WeekRange returns the first and last date of the week containing d, where weeks
// begin on weekStart.
func WeekRange(d Date, weekStart time.Weekday) (Date, Date) {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	first := d.AddDays(-offset)
	return first, first.AddDays(6)
}

// ParseWeekStart maps "monday"/"sunday" to a weekday. Anything else yields Monday.
func ParseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
