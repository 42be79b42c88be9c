package planner

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/ics"
	"github.com/julianstephens/lifeplan/internal/ledger"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
	"github.com/julianstephens/lifeplan/internal/streak"
)

// Streak computes a habit's streak through today. It reads history only and does not
// materialize, so days that were never materialized count as missed.
func (s *Service) Streak(ctx context.Context, userID, habitID string) (streak.Stats, error) {
	if _, err := s.store.GetHabit(ctx, userID, habitID); err != nil {
		return streak.Stats{}, err
	}
	rules, err := s.store.ListRulesForOwner(ctx, userID, habitID, true)
	if err != nil {
		return streak.Stats{}, fmt.Errorf("failed to list rules: %w", err)
	}
	current, ok := currentRule(rules)
	if !ok {
		return streak.Stats{}, nil
	}

	tz, err := s.Timezone(ctx, userID)
	if err != nil {
		return streak.Stats{}, err
	}
	today := logicalday.Today(s.clock, tz)

	from := today
	for _, r := range rules {
		if d := logicalday.Resolve(r.CreatedAt, tz); d.Before(from) {
			from = d
		}
	}
	all, err := s.store.ListInstances(ctx, userID, from, today)
	if err != nil {
		return streak.Stats{}, fmt.Errorf("failed to list instances: %w", err)
	}
	var history []models.Instance
	for _, in := range all {
		if in.OwnerID == habitID {
			history = append(history, in)
		}
	}

	return streak.Compute(recurrence.FromModel(current, tz), history, today), nil
}

// currentRule picks the newest active rule, or the newest rule when all are deleted
func currentRule(rules []models.RecurrenceRule) (models.RecurrenceRule, bool) {
	var best models.RecurrenceRule
	found := false
	for _, r := range rules {
		if found && !newerRule(r, best) {
			continue
		}
		best, found = r, true
	}
	return best, found
}

func newerRule(a, b models.RecurrenceRule) bool {
	if a.Active() != b.Active() {
		return a.Active()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// LedgerReport is a ledger summary over a materialized range
type LedgerReport struct {
	Start    logicalday.Date `json:"start"`
	End      logicalday.Date `json:"end"`
	Timezone string          `json:"timezone"`
	ledger.Summary
	Notice string `json:"notice,omitempty"`
}

func (s *Service) Ledger(ctx context.Context, userID string, start, end logicalday.Date) (LedgerReport, error) {
	tz, notice, err := s.prepare(ctx, userID, start, end)
	if err != nil {
		return LedgerReport{}, err
	}
	instances, err := s.store.ListInstances(ctx, userID, start, end)
	if err != nil {
		return LedgerReport{}, fmt.Errorf("failed to list instances: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx, userID, true)
	if err != nil {
		return LedgerReport{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	return LedgerReport{
		Start:    start,
		End:      end,
		Timezone: tz,
		Summary:  ledger.Project(instances, txns),
		Notice:   notice,
	}, nil
}

// Calendar renders [start, end] as an iCalendar feed
func (s *Service) Calendar(ctx context.Context, userID string, start, end logicalday.Date) (string, error) {
	tz, _, err := s.prepare(ctx, userID, start, end)
	if err != nil {
		return "", err
	}
	instances, err := s.store.ListInstances(ctx, userID, start, end)
	if err != nil {
		return "", fmt.Errorf("failed to list instances: %w", err)
	}
	owners, err := s.owners(ctx, userID)
	if err != nil {
		return "", err
	}
	return ics.Export(instances, owners, tz, s.clock.Now())
}

// HabitStreak pairs a habit with its streak for list views
type HabitStreak struct {
	Habit models.Habit `json:"habit"`
	Stats streak.Stats `json:"stats"`
}

// Streaks computes streaks for every active habit
func (s *Service) Streaks(ctx context.Context, userID string) ([]HabitStreak, error) {
	habits, err := s.store.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	out := make([]HabitStreak, 0, len(habits))
	for _, h := range habits {
		st, err := s.Streak(ctx, userID, h.ID)
		if err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.Name, err)
		}
		out = append(out, HabitStreak{Habit: h, Stats: st})
	}
	return out, nil
}
