package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Describe renders a config as a short human-readable cadence
func Describe(c Config) string {
	switch v := c.(type) {
	case Daily:
		if v.Interval > 1 {
			return fmt.Sprintf("every %d days", v.Interval)
		}
		return "daily"
	case Weekly:
		if len(v.Weekdays) == 0 {
			return "weekly"
		}
		names := make([]string, len(v.Weekdays))
		for i, wd := range v.Weekdays {
			names[i] = time.Weekday(wd).String()[:3]
		}
		return "weekly on " + strings.Join(names, ", ")
	case Weekdays:
		return "weekdays"
	case NDays:
		return fmt.Sprintf("every %d days", v.IntervalDays)
	case MonthlyDate:
		return fmt.Sprintf("monthly on day %d", v.MonthDay)
	case MonthlyDay:
		if v.Occurrence == -1 {
			return fmt.Sprintf("monthly on the last %s", time.Weekday(v.Weekday))
		}
		return fmt.Sprintf("monthly on the %s %s", ordinal(v.Occurrence), time.Weekday(v.Weekday))
	case Yearly:
		return fmt.Sprintf("yearly on %s %d", v.Month, v.MonthDay)
	case RRule:
		return "rrule " + v.Expr
	case Cron:
		return "cron " + v.Spec
	case Unknown:
		return fmt.Sprintf("unsupported (%s)", v.Tag)
	default:
		return "unknown"
	}
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}
