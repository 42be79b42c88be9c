package materializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage/memory"
)

var (
	ruleCreated = time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC)
	clock       = logicalday.FixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	jan1        = logicalday.MustParse("2024-01-01")
	jan7        = logicalday.MustParse("2024-01-07")
	jan14       = logicalday.MustParse("2024-01-14")
)

func addRule(t *testing.T, store *memory.Store, id string, tag constants.RuleType, config string) models.RecurrenceRule {
	t.Helper()
	rule := models.RecurrenceRule{
		ID:        id,
		UserID:    "u1",
		OwnerKind: constants.OwnerHabit,
		OwnerID:   "habit-" + id,
		Type:      tag,
		CreatedAt: ruleCreated,
	}
	if config != "" {
		rule.Config = json.RawMessage(config)
	}
	require.NoError(t, store.AddRule(context.Background(), rule))
	return rule
}

func days(instances []models.Instance) []string {
	out := make([]string, len(instances))
	for i, in := range instances {
		out[i] = in.Day.String()
	}
	return out
}

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	addRule(t, store, "daily", constants.RuleDaily, "")
	svc := New(store, WithClock(clock))

	first, err := svc.EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 7, first.Inserted)
	assert.Equal(t, 0, first.Existing)

	before, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)

	second, err := svc.EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 7, second.Existing)
	assert.Equal(t, 0, second.Staged)
	assert.Equal(t, 0, second.Inserted)

	after, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDailyRuleFillsEveryDay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	addRule(t, store, "daily", constants.RuleDaily, "")

	_, err := New(store, WithClock(clock)).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)

	got, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04",
		"2024-01-05", "2024-01-06", "2024-01-07",
	}, days(got))
	for _, in := range got {
		assert.Equal(t, constants.StatusPending, in.Status)
		assert.Equal(t, "daily", in.RuleID)
		assert.Equal(t, "habit-daily", in.OwnerID)
		assert.True(t, in.CreatedAt.Equal(clock.Now()))
	}
}

func TestWeeklyRuleFiltersDays(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	addRule(t, store, "mondays", constants.RuleWeekly, `{"weekdays":[1]}`)

	res, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, jan14, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	got, err := store.ListInstances(ctx, "u1", jan1, jan14)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, days(got))
}

func TestExistingInstancesAreNotDuplicated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rule := addRule(t, store, "daily", constants.RuleDaily, "")

	done := models.Instance{
		ID: "existing", UserID: "u1", RuleID: rule.ID, OwnerKind: rule.OwnerKind, OwnerID: rule.OwnerID,
		Day: logicalday.MustParse("2024-01-03"), Status: constants.StatusDone,
	}
	_, err := store.InsertInstancesIgnoringDuplicates(ctx, []models.Instance{done})
	require.NoError(t, err)

	res, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Existing)
	assert.Equal(t, 6, res.Inserted)

	got, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, "existing", got[2].ID)
	assert.Equal(t, constants.StatusDone, got[2].Status)
}

func TestUnknownRuleTypeIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	addRule(t, store, "moon", constants.RuleType("lunar_phase"), `{"phase":"full"}`)
	addRule(t, store, "broken", constants.RuleMonthlyDate, `{"month_day":99}`)
	addRule(t, store, "daily", constants.RuleDaily, "")

	before := testutil.ToFloat64(unknownRuleCounter.WithLabelValues("lunar_phase"))

	res, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rules)
	assert.Equal(t, 2, res.UnknownRules)
	assert.Equal(t, 7, res.Inserted)
	assert.Equal(t, before+1, testutil.ToFloat64(unknownRuleCounter.WithLabelValues("lunar_phase")))

	got, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	for _, in := range got {
		assert.Equal(t, "daily", in.RuleID)
	}
}

func TestRangeValidation(t *testing.T) {
	svc := New(memory.New(), WithMaxRangeDays(31))

	_, err := svc.EnsureInstancesForRange(context.Background(), "u1", jan7, jan1, "UTC")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRange), "got %v", err)

	_, err = svc.EnsureInstancesForRange(context.Background(), "u1", jan1, jan1.AddDays(31), "UTC")
	assert.True(t, errors.Is(err, apperrors.ErrRangeTooLarge), "got %v", err)

	_, err = svc.EnsureInstancesForRange(context.Background(), "u1", jan1, jan1.AddDays(30), "UTC")
	assert.NoError(t, err)
}

// flakyStore fails chosen reads and counts writes
type flakyStore struct {
	*memory.Store
	rulesErr     error
	instancesErr error
	staleReads   bool
	inserts      atomic.Int32
}

func (f *flakyStore) ListActiveRules(ctx context.Context, userID string) ([]models.RecurrenceRule, error) {
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.Store.ListActiveRules(ctx, userID)
}

func (f *flakyStore) ListInstances(ctx context.Context, userID string, start, end logicalday.Date) ([]models.Instance, error) {
	if f.instancesErr != nil {
		return nil, f.instancesErr
	}
	if f.staleReads {
		return nil, nil
	}
	return f.Store.ListInstances(ctx, userID, start, end)
}

func (f *flakyStore) InsertInstancesIgnoringDuplicates(ctx context.Context, instances []models.Instance) (int, error) {
	f.inserts.Add(1)
	return f.Store.InsertInstancesIgnoringDuplicates(ctx, instances)
}

func TestReadFailureAborts(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name  string
		store *flakyStore
	}{
		{"rules", &flakyStore{Store: memory.New(), rulesErr: boom}},
		{"instances", &flakyStore{Store: memory.New(), instancesErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addRule(t, tt.store.Store, "daily", constants.RuleDaily, "")

			_, err := New(tt.store).EnsureInstancesForRange(context.Background(), "u1", jan1, jan7, "UTC")
			require.Error(t, err)
			assert.True(t, errors.Is(err, boom))
			assert.Equal(t, int32(0), tt.store.inserts.Load(), "no writes after a failed read")

			got, err := tt.store.Store.ListInstances(context.Background(), "u1", jan1, jan7)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStaleReadCountsConflicts(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	addRule(t, store.Store, "daily", constants.RuleDaily, "")

	_, err := New(store.Store).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)

	// A caller that raced and missed the first call's rows still converges
	store.staleReads = true
	res, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Staged)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 7, res.Conflicts)
}

func TestConcurrentCallsDoNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	addRule(t, store, "daily", constants.RuleDaily, "")
	addRule(t, store, "weekdays", constants.RuleWeekdays, "")

	var n atomic.Int64
	svc := New(store, WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }))

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.EnsureInstancesForRange(ctx, "u1", jan1, jan7, "UTC")
			if err != nil {
				t.Errorf("ensure failed: %v", err)
				return
			}
			total.Add(int64(res.Inserted))
		}()
	}
	wg.Wait()

	got, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.Equal(t, int64(12), total.Load())
}

func TestTransactionAmountIsCopied(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rent := models.RecurringTransaction{
		ID: "rent", UserID: "u1", Name: "Rent", Amount: decimal.RequireFromString("-1200"),
		Currency: "USD", CreatedAt: ruleCreated,
	}
	require.NoError(t, store.AddTransaction(ctx, rent))
	require.NoError(t, store.AddRule(ctx, models.RecurrenceRule{
		ID: "rent-rule", UserID: "u1", OwnerKind: constants.OwnerTransaction, OwnerID: "rent",
		Type: constants.RuleMonthlyDate, Config: json.RawMessage(`{"month_day":1}`), CreatedAt: ruleCreated,
	}))

	_, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, logicalday.MustParse("2024-03-31"), "UTC")
	require.NoError(t, err)

	got, err := store.ListInstances(ctx, "u1", jan1, logicalday.MustParse("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, in := range got {
		assert.Equal(t, constants.OwnerTransaction, in.OwnerKind)
		assert.True(t, in.Amount.Equal(rent.Amount), "amount %s", in.Amount)
	}
}

func TestAnchorFollowsTimezone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.AddRule(ctx, models.RecurrenceRule{
		ID: "late", UserID: "u1", OwnerKind: constants.OwnerHabit, OwnerID: "h1",
		Type: constants.RuleDaily, CreatedAt: time.Date(2024, 1, 3, 2, 0, 0, 0, time.UTC),
	}))

	_, err := New(store).EnsureInstancesForRange(ctx, "u1", jan1, jan7, "America/New_York")
	require.NoError(t, err)

	got, err := store.ListInstances(ctx, "u1", jan1, jan7)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "2024-01-02", got[0].Day.String(), "created the evening of Jan 2 in New York")
	assert.Len(t, got, 6)
}

func TestHorizon(t *testing.T) {
	start, end := Horizon(clock, "UTC", 30)
	assert.Equal(t, jan1, start)
	assert.Equal(t, logicalday.MustParse("2024-01-30"), end)

	start, end = Horizon(clock, "UTC", 0)
	assert.Equal(t, start, end)
}
