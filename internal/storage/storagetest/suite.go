// Package storagetest holds the behaviour every storage.Provider must share.
// Backend packages run it against their own store.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage"
)

// Factory returns a fresh, initialized provider. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Provider

var (
	base  = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	today = logicalday.MustParse("2024-01-01")
)

func newUser() string {
	return "user-" + uuid.NewString()
}

// NewRule builds an active daily rule owned by ownerID
func NewRule(userID, ownerID string, kind constants.OwnerKind, created time.Time) models.RecurrenceRule {
	return models.RecurrenceRule{
		ID:        uuid.NewString(),
		UserID:    userID,
		OwnerKind: kind,
		OwnerID:   ownerID,
		Type:      constants.RuleDaily,
		Config:    json.RawMessage(`{}`),
		CreatedAt: created,
	}
}

// NewInstance builds a pending instance of rule on day
func NewInstance(rule models.RecurrenceRule, day logicalday.Date) models.Instance {
	return models.Instance{
		ID:        uuid.NewString(),
		UserID:    rule.UserID,
		RuleID:    rule.ID,
		OwnerKind: rule.OwnerKind,
		OwnerID:   rule.OwnerID,
		Day:       day,
		Status:    constants.StatusPending,
		Amount:    decimal.Zero,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

// Run exercises the full Provider contract
func Run(t *testing.T, newStore Factory) {
	t.Run("Rules", func(t *testing.T) { testRules(t, newStore(t)) })
	t.Run("ReplaceRule", func(t *testing.T) { testReplaceRule(t, newStore(t)) })
	t.Run("HabitCascade", func(t *testing.T) { testHabitCascade(t, newStore(t)) })
	t.Run("HabitNameConflict", func(t *testing.T) { testHabitNameConflict(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("RetirementDiscardsPending", func(t *testing.T) { testRetirementDiscardsPending(t, newStore(t)) })
	t.Run("InsertIgnoringDuplicates", func(t *testing.T) { testInsertIgnoringDuplicates(t, newStore(t)) })
	t.Run("InstanceStatus", func(t *testing.T) { testInstanceStatus(t, newStore(t)) })
	t.Run("Profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
}

func testRules(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	rule := NewRule(user, "habit-1", constants.OwnerHabit, base)
	rule.Type = constants.RuleWeekly
	rule.Config = json.RawMessage(`{"weekdays": [1, 3]}`)
	require.NoError(t, s.AddRule(ctx, rule))

	got, err := s.GetRule(ctx, user, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)
	assert.Equal(t, constants.OwnerHabit, got.OwnerKind)
	assert.Equal(t, constants.RuleWeekly, got.Type)
	assert.JSONEq(t, `{"weekdays":[1,3]}`, string(got.Config))
	assert.True(t, got.CreatedAt.Equal(base), "created_at %s", got.CreatedAt)
	assert.Nil(t, got.DeletedAt)

	_, err = s.GetRule(ctx, newUser(), rule.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "other users must not see the rule: %v", err)

	second := NewRule(user, "habit-2", constants.OwnerHabit, base.Add(time.Hour))
	require.NoError(t, s.AddRule(ctx, second))
	assert.True(t, errors.Is(s.AddRule(ctx, second), apperrors.ErrConflict))

	active, err := s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, rule.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)

	require.NoError(t, s.DeleteRule(ctx, user, rule.ID, today))
	assert.True(t, errors.Is(s.DeleteRule(ctx, user, rule.ID, today), apperrors.ErrNotFound))

	active, err = s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := s.ListRules(ctx, user, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.RestoreRule(ctx, user, rule.ID))
	assert.True(t, errors.Is(s.RestoreRule(ctx, user, rule.ID), apperrors.ErrNotFound))

	owned, err := s.ListRulesForOwner(ctx, user, "habit-1", false)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, rule.ID, owned[0].ID)
}

func testReplaceRule(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	old := NewRule(user, "habit-1", constants.OwnerHabit, base)
	require.NoError(t, s.AddRule(ctx, old))

	next := NewRule(user, "habit-1", constants.OwnerHabit, base.Add(24*time.Hour))
	next.Type = constants.RuleWeekdays
	require.NoError(t, s.ReplaceRule(ctx, user, old.ID, next, today))

	gotOld, err := s.GetRule(ctx, user, old.ID)
	require.NoError(t, err)
	require.NotNil(t, gotOld.DeletedAt)
	assert.Equal(t, next.ID, gotOld.ReplacedBy)

	active, err := s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, next.ID, active[0].ID)

	// A superseded rule cannot be restored, and cannot be replaced twice
	assert.True(t, errors.Is(s.RestoreRule(ctx, user, old.ID), apperrors.ErrNotFound))
	again := NewRule(user, "habit-1", constants.OwnerHabit, base.Add(48*time.Hour))
	assert.True(t, errors.Is(s.ReplaceRule(ctx, user, old.ID, again, today), apperrors.ErrNotFound))

	_, err = s.GetRule(ctx, user, again.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "failed replace must not insert the new rule")
}

func testHabitCascade(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	habit := models.Habit{ID: uuid.NewString(), UserID: user, Name: "Read", LocalTime: "07:30", CreatedAt: base}
	require.NoError(t, s.AddHabit(ctx, habit))

	superseded := NewRule(user, habit.ID, constants.OwnerHabit, base)
	require.NoError(t, s.AddRule(ctx, superseded))
	current := NewRule(user, habit.ID, constants.OwnerHabit, base.Add(time.Hour))
	require.NoError(t, s.ReplaceRule(ctx, user, superseded.ID, current, today))

	got, err := s.GetHabit(ctx, user, habit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)
	assert.Equal(t, "07:30", got.LocalTime)

	require.NoError(t, s.DeleteHabit(ctx, user, habit.ID, today))
	assert.True(t, errors.Is(s.DeleteHabit(ctx, user, habit.ID, today), apperrors.ErrNotFound))

	active, err := s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, active, "deleting a habit removes its rules")

	habits, err := s.ListHabits(ctx, user, false)
	require.NoError(t, err)
	assert.Empty(t, habits)
	habits, err = s.ListHabits(ctx, user, true)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.NotNil(t, habits[0].DeletedAt)

	require.NoError(t, s.RestoreHabit(ctx, user, habit.ID))
	active, err = s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 1, "only the rule deleted with the habit comes back")
	assert.Equal(t, current.ID, active[0].ID)
}

func testHabitNameConflict(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	first := models.Habit{ID: uuid.NewString(), UserID: user, Name: "Stretch", CreatedAt: base}
	require.NoError(t, s.AddHabit(ctx, first))

	dup := models.Habit{ID: uuid.NewString(), UserID: user, Name: "Stretch", CreatedAt: base}
	assert.True(t, errors.Is(s.AddHabit(ctx, dup), apperrors.ErrConflict))

	// Names are per user, and free again once the holder is deleted
	other := models.Habit{ID: uuid.NewString(), UserID: newUser(), Name: "Stretch", CreatedAt: base}
	require.NoError(t, s.AddHabit(ctx, other))
	require.NoError(t, s.DeleteHabit(ctx, user, first.ID, today))
	require.NoError(t, s.AddHabit(ctx, dup))
}

func testTransactions(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	rent := models.RecurringTransaction{
		ID:        uuid.NewString(),
		UserID:    user,
		Name:      "Rent",
		Amount:    decimal.RequireFromString("-1250.75"),
		Currency:  "USD",
		Category:  "housing",
		CreatedAt: base,
	}
	require.NoError(t, s.AddTransaction(ctx, rent))

	got, err := s.GetTransaction(ctx, user, rent.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(rent.Amount), "amount %s", got.Amount)
	assert.Equal(t, "housing", got.Category)
	assert.True(t, got.IsExpense())

	rule := NewRule(user, rent.ID, constants.OwnerTransaction, base)
	require.NoError(t, s.AddRule(ctx, rule))

	require.NoError(t, s.DeleteTransaction(ctx, user, rent.ID, today))
	active, err := s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, active)

	txns, err := s.ListTransactions(ctx, user, false)
	require.NoError(t, err)
	assert.Empty(t, txns)

	require.NoError(t, s.RestoreTransaction(ctx, user, rent.ID))
	txns, err = s.ListTransactions(ctx, user, false)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	active, err = s.ListActiveRules(ctx, user)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// seedWeek inserts one pending instance of rule per day from Dec 30 through Jan 5
func seedWeek(t *testing.T, s storage.Provider, rule models.RecurrenceRule) []models.Instance {
	t.Helper()
	var week []models.Instance
	for d := today.AddDays(-2); !d.After(today.AddDays(4)); d = d.AddDays(1) {
		week = append(week, NewInstance(rule, d))
	}
	n, err := s.InsertInstancesIgnoringDuplicates(context.Background(), week)
	require.NoError(t, err)
	require.Equal(t, len(week), n)
	return week
}

func ruleDays(t *testing.T, s storage.Provider, user, ruleID string) map[string]constants.InstanceStatus {
	t.Helper()
	got, err := s.ListInstances(context.Background(), user, today.AddDays(-7), today.AddDays(7))
	require.NoError(t, err)
	out := make(map[string]constants.InstanceStatus)
	for _, in := range got {
		if in.RuleID == ruleID {
			out[in.Day.String()] = in.Status
		}
	}
	return out
}

func testRetirementDiscardsPending(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	habit := models.Habit{ID: uuid.NewString(), UserID: user, Name: "Walk", CreatedAt: base}
	require.NoError(t, s.AddHabit(ctx, habit))
	old := NewRule(user, habit.ID, constants.OwnerHabit, base)
	require.NoError(t, s.AddRule(ctx, old))
	week := seedWeek(t, s, old)
	// 2024-01-02 was already completed, 2023-12-31 stays pending in the past
	require.NoError(t, s.SetInstanceStatus(ctx, user, week[3].ID, constants.StatusDone, base))

	next := NewRule(user, habit.ID, constants.OwnerHabit, base.Add(time.Minute))
	require.NoError(t, s.ReplaceRule(ctx, user, old.ID, next, today))
	assert.Equal(t, map[string]constants.InstanceStatus{
		"2023-12-30": constants.StatusPending,
		"2023-12-31": constants.StatusPending,
		"2024-01-02": constants.StatusDone,
	}, ruleDays(t, s, user, old.ID))

	// the replacement can now take the days the old rule gave up
	seedWeek(t, s, next)
	require.NoError(t, s.DeleteHabit(ctx, user, habit.ID, today.AddDays(2)))
	assert.Len(t, ruleDays(t, s, user, next.ID), 4, "days before the cutoff survive the delete")
	assert.Len(t, ruleDays(t, s, user, old.ID), 3)

	rent := models.RecurringTransaction{ID: uuid.NewString(), UserID: user, Name: "Rent", Amount: decimal.NewFromInt(-50), Currency: "USD", CreatedAt: base}
	require.NoError(t, s.AddTransaction(ctx, rent))
	rentRule := NewRule(user, rent.ID, constants.OwnerTransaction, base)
	require.NoError(t, s.AddRule(ctx, rentRule))
	seedWeek(t, s, rentRule)
	require.NoError(t, s.DeleteTransaction(ctx, user, rent.ID, today))
	assert.Len(t, ruleDays(t, s, user, rentRule.ID), 2)

	loose := NewRule(user, "habit-x", constants.OwnerHabit, base)
	require.NoError(t, s.AddRule(ctx, loose))
	seedWeek(t, s, loose)
	require.NoError(t, s.DeleteRule(ctx, user, loose.ID, today))
	assert.Len(t, ruleDays(t, s, user, loose.ID), 2)

	// a failed retirement leaves instances alone
	assert.True(t, errors.Is(s.DeleteRule(ctx, user, next.ID, today), apperrors.ErrNotFound))
	assert.Len(t, ruleDays(t, s, user, next.ID), 4)
}

func testInsertIgnoringDuplicates(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()
	rule := NewRule(user, "habit-1", constants.OwnerHabit, base)
	require.NoError(t, s.AddRule(ctx, rule))

	start := logicalday.MustParse("2024-01-01")
	var batch []models.Instance
	for i := 0; i < 3; i++ {
		batch = append(batch, NewInstance(rule, start.AddDays(i)))
	}
	batch[1].Amount = decimal.RequireFromString("12.50")

	n, err := s.InsertInstancesIgnoringDuplicates(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.SetInstanceStatus(ctx, user, batch[0].ID, constants.StatusDone, base.Add(time.Hour)))

	// Same keys under fresh ids are absorbed; the stored status survives
	var retry []models.Instance
	for i := 0; i < 4; i++ {
		retry = append(retry, NewInstance(rule, start.AddDays(i)))
	}
	n, err = s.InsertInstancesIgnoringDuplicates(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the new day is inserted")

	got, err := s.ListInstances(ctx, user, start, start.AddDays(3))
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, in := range got {
		assert.Equal(t, start.AddDays(i), in.Day, "instances are ordered by day")
	}
	assert.Equal(t, batch[0].ID, got[0].ID)
	assert.Equal(t, constants.StatusDone, got[0].Status)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("12.5")), "amount %s", got[1].Amount)

	inner, err := s.ListInstances(ctx, user, start.AddDays(1), start.AddDays(2))
	require.NoError(t, err)
	assert.Len(t, inner, 2)

	none, err := s.ListInstances(ctx, newUser(), start, start.AddDays(3))
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err = s.InsertInstancesIgnoringDuplicates(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testInstanceStatus(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()
	rule := NewRule(user, "habit-1", constants.OwnerHabit, base)
	in := NewInstance(rule, logicalday.MustParse("2024-03-10"))
	_, err := s.InsertInstancesIgnoringDuplicates(ctx, []models.Instance{in})
	require.NoError(t, err)

	updated := base.Add(48 * time.Hour)
	require.NoError(t, s.SetInstanceStatus(ctx, user, in.ID, constants.StatusSkipped, updated))

	got, err := s.GetInstance(ctx, user, in.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSkipped, got.Status)
	assert.Equal(t, "2024-03-10", got.Day.String())
	assert.True(t, got.UpdatedAt.Equal(updated), "updated_at %s", got.UpdatedAt)

	err = s.SetInstanceStatus(ctx, newUser(), in.ID, constants.StatusDone, updated)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	_, err = s.GetInstance(ctx, user, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func testProfiles(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user := newUser()

	_, err := s.GetProfile(ctx, user)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.SaveProfile(ctx, models.Profile{UserID: user, Timezone: "Asia/Tokyo", WeekStart: constants.WeekStartMonday}))
	require.NoError(t, s.SaveProfile(ctx, models.Profile{UserID: user, Timezone: "Europe/London", WeekStart: constants.WeekStartSunday}))

	p, err := s.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", p.Timezone)
	assert.Equal(t, constants.WeekStartSunday, p.WeekStart)
}
