// Package recurrence decides which logical days a recurrence rule is due on.
package recurrence

import (
	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

// Rule is a decoded recurrence rule ready for evaluation.
// Anchor is the logical day the rule was created on; it is never due before it.
type Rule struct {
	ID     string
	Type   constants.RuleType
	Config Config
	Anchor logicalday.Date
}

// FromModel decodes a stored rule, anchoring it to its creation day in timezone.
// Malformed payloads come back as Unknown with Err set, so they are never due.
func FromModel(m models.RecurrenceRule, timezone string) Rule {
	cfg, err := Decode(m.Type, m.Config)
	if err != nil {
		cfg = Unknown{Tag: m.Type, Raw: m.Config, Err: err}
	}
	return Rule{
		ID:     m.ID,
		Type:   m.Type,
		Config: cfg,
		Anchor: logicalday.Resolve(m.CreatedAt, timezone),
	}
}

// IsUnknown reports whether the rule cannot be evaluated by this version
func (r Rule) IsUnknown() bool {
	_, ok := r.Config.(Unknown)
	return ok
}

// IsDue reports whether day is an occurrence of r.
func IsDue(r Rule, day logicalday.Date) bool {
	if r.Config == nil {
		return false
	}
	if !r.Anchor.IsZero() && day.Before(r.Anchor) {
		return false
	}
	return r.Config.due(day, r.Anchor)
}

// Occurrences returns the days in [start, end] on which r is due, in ascending order.
func Occurrences(r Rule, start, end logicalday.Date) []logicalday.Date {
	if r.Config == nil || end.Before(start) {
		return nil
	}
	if !r.Anchor.IsZero() && start.Before(r.Anchor) {
		start = r.Anchor
		if end.Before(start) {
			return nil
		}
	}
	if exp, ok := r.Config.(rangeExpander); ok {
		return exp.occurrences(start, end, r.Anchor)
	}

	var days []logicalday.Date
	for _, d := range logicalday.Days(start, end) {
		if r.Config.due(d, r.Anchor) {
			days = append(days, d)
		}
	}
	return days
}
