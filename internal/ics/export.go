// Package ics renders materialized instances as an iCalendar feed.
package ics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

const (
	productID     = "-//lifeplan//planner " + constants.Version + "//EN"
	uidDomain     = "@lifeplan"
	timedDuration = 30 * time.Minute
)

// Owners resolves instance owners to their templates, keyed by template ID.
type Owners struct {
	Habits       map[string]models.Habit
	Transactions map[string]models.RecurringTransaction
}

// Export builds a PUBLISH calendar with one event per instance. Timed habits become
// timed events in the user's timezone, everything else is an all-day event.
func Export(instances []models.Instance, owners Owners, timezone string, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRTimezone(logicalday.LoadLocation(timezone).String())

	sorted := make([]models.Instance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Day.Compare(sorted[j].Day); c != 0 {
			return c < 0
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, in := range sorted {
		event := cal.AddEvent(in.ID + uidDomain)
		event.SetDtStampTime(now.UTC())

		summary, localTime, category := describe(in, owners)
		event.SetSummary(summary)
		if category != "" {
			event.AddProperty(ical.ComponentPropertyCategories, category)
		}

		if localTime != "" {
			start, err := logicalday.ZonedInstant(in.Day, localTime, timezone)
			if err != nil {
				return "", fmt.Errorf("instance %s: %w", in.ID, err)
			}
			event.SetStartAt(start.UTC())
			event.SetEndAt(start.Add(timedDuration).UTC())
		} else {
			event.SetAllDayStartAt(in.Day.Time())
			event.SetAllDayEndAt(in.Day.AddDays(1).Time())
		}

		if in.Status == constants.StatusSkipped {
			event.SetStatus(ical.ObjectStatusCancelled)
		} else {
			event.SetStatus(ical.ObjectStatusConfirmed)
		}
		if in.Status == constants.StatusDone {
			event.SetDescription("done")
		}
	}

	return cal.Serialize(), nil
}

func describe(in models.Instance, owners Owners) (summary, localTime, category string) {
	switch in.OwnerKind {
	case constants.OwnerHabit:
		if h, ok := owners.Habits[in.OwnerID]; ok {
			return h.Name, h.LocalTime, string(constants.OwnerHabit)
		}
	case constants.OwnerTransaction:
		if t, ok := owners.Transactions[in.OwnerID]; ok {
			cat := t.Category
			if cat == "" {
				cat = string(constants.OwnerTransaction)
			}
			return fmt.Sprintf("%s %s %s", t.Name, in.Amount.StringFixed(2), t.Currency), "", cat
		}
	}
	return strings.TrimSpace(string(in.OwnerKind) + " " + in.OwnerID), "", ""
}
