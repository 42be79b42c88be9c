// Package streak computes completion streaks for a habit's instances.
package streak

import (
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
)

// Stats summarizes a habit's history up to and including today
type Stats struct {
	Current        int              `json:"current"`
	Longest        int              `json:"longest"`
	Due            int              `json:"due"`
	Done           int              `json:"done"`
	Skipped        int              `json:"skipped"`
	LastDone       *logicalday.Date `json:"last_done,omitempty"`
	CompletionRate float64          `json:"completion_rate"`
}

// Compute walks rule's due days from its anchor through today.
//
// A done day extends the streak. A skipped day is excused: it neither extends nor breaks
// it. Any other past due day breaks it. Today only counts once it is done, so an open
// day does not reset the current streak. Days the rule is not due on are ignored.
// Instances are matched by day rather than by rule id, so a replacement rule picks up
// history its predecessor recorded on days after the replacement's anchor.
func Compute(rule recurrence.Rule, instances []models.Instance, today logicalday.Date) Stats {
	status := make(map[logicalday.Date]constants.InstanceStatus, len(instances))
	start := rule.Anchor
	for _, in := range instances {
		if s, ok := status[in.Day]; ok && s == constants.StatusDone {
			continue
		}
		status[in.Day] = in.Status
		if start.IsZero() || in.Day.Before(start) {
			start = in.Day
		}
	}

	var st Stats
	if start.IsZero() || today.Before(start) {
		return st
	}

	run := 0
	for _, day := range recurrence.Occurrences(rule, start, today) {
		switch status[day] {
		case constants.StatusDone:
			st.Due++
			st.Done++
			run++
			if run > st.Longest {
				st.Longest = run
			}
			d := day
			st.LastDone = &d
		case constants.StatusSkipped:
			st.Skipped++
		default:
			if day == today {
				continue
			}
			st.Due++
			run = 0
		}
	}

	st.Current = run
	if st.Due > 0 {
		st.CompletionRate = float64(st.Done) / float64(st.Due)
	}
	return st
}
