// Package materializer turns recurrence rules into concrete dated instances, lazily and
// idempotently, for whatever range a caller is about to look at.
package materializer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logger"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
)

// Store is the slice of storage.Provider the materializer needs
type Store interface {
	ListActiveRules(ctx context.Context, userID string) ([]models.RecurrenceRule, error)
	ListInstances(ctx context.Context, userID string, start, end logicalday.Date) ([]models.Instance, error)
	ListTransactions(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurringTransaction, error)
	InsertInstancesIgnoringDuplicates(ctx context.Context, instances []models.Instance) (int, error)
}

// Result summarizes one EnsureInstancesForRange call
type Result struct {
	Start        logicalday.Date `json:"start"`
	End          logicalday.Date `json:"end"`
	Rules        int             `json:"rules"`
	Existing     int             `json:"existing"`
	Staged       int             `json:"staged"`
	Inserted     int             `json:"inserted"`
	Conflicts    int             `json:"conflicts"`
	UnknownRules int             `json:"unknown_rules"`
}

type Service struct {
	store        Store
	clock        logicalday.Clock
	maxRangeDays int
	newID        func() string
}

type Option func(*Service)

// WithClock sets the clock used for CreatedAt/UpdatedAt stamps
func WithClock(c logicalday.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMaxRangeDays caps the number of days a single call may cover
func WithMaxRangeDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRangeDays = n
		}
	}
}

// WithIDGenerator replaces uuid.NewString for new instance ids
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		clock:        logicalday.SystemClock{},
		maxRangeDays: constants.DefaultMaxRangeDays,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxRangeDays returns the configured range limit
func (s *Service) MaxRangeDays() int {
	return s.maxRangeDays
}

// EnsureInstancesForRange makes sure every due (rule, day) pair in [start, end] has an
// instance for userID, evaluating rules in timezone. Existing instances are never modified.
//
// No lock is taken: concurrent calls may stage the same instances, and the storage
// uniqueness constraint decides which insert lands. The losers are counted as Conflicts.
func (s *Service) EnsureInstancesForRange(ctx context.Context, userID string, start, end logicalday.Date, timezone string) (Result, error) {
	result := Result{Start: start, End: end}
	if err := logicalday.ValidateRange(start, end, s.maxRangeDays); err != nil {
		return result, err
	}

	began := time.Now()
	defer func() { ensureDuration.Observe(time.Since(began).Seconds()) }()

	rules, existing, err := s.fetch(ctx, userID, start, end)
	if err != nil {
		failureCounter.WithLabelValues("read").Inc()
		return result, err
	}
	result.Rules = len(rules)
	result.Existing = len(existing)

	amounts, err := s.transactionAmounts(ctx, userID, rules)
	if err != nil {
		failureCounter.WithLabelValues("read").Inc()
		return result, err
	}

	have := make(map[models.InstanceKey]struct{}, len(existing))
	for _, in := range existing {
		have[in.Key()] = struct{}{}
	}

	now := s.clock.Now().UTC()
	var staged []models.Instance
	for _, m := range rules {
		rule := recurrence.FromModel(m, timezone)
		if u, ok := rule.Config.(recurrence.Unknown); ok {
			result.UnknownRules++
			unknownRuleCounter.WithLabelValues(string(m.Type)).Inc()
			logger.Warn("Skipping rule with unsupported recurrence", "rule", m.ID, "type", m.Type, "error", u.Err)
			continue
		}

		for _, day := range recurrence.Occurrences(rule, start, end) {
			if _, ok := have[models.InstanceKey{RuleID: m.ID, Day: day}]; ok {
				continue
			}
			staged = append(staged, models.Instance{
				ID:        s.newID(),
				UserID:    userID,
				RuleID:    m.ID,
				OwnerKind: m.OwnerKind,
				OwnerID:   m.OwnerID,
				Day:       day,
				Status:    constants.StatusPending,
				Amount:    amounts[m.OwnerID],
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	result.Staged = len(staged)

	if len(staged) > 0 {
		inserted, err := s.store.InsertInstancesIgnoringDuplicates(ctx, staged)
		result.Inserted = inserted
		insertedCounter.Add(float64(inserted))
		if err != nil {
			failureCounter.WithLabelValues("write").Inc()
			return result, fmt.Errorf("failed to insert instances: %w", err)
		}
		result.Conflicts = len(staged) - inserted
		conflictCounter.Add(float64(result.Conflicts))
	}

	logger.Debug("Materialized instances",
		"user", userID, "start", start, "end", end,
		"rules", result.Rules, "existing", result.Existing,
		"inserted", result.Inserted, "conflicts", result.Conflicts, "unknown", result.UnknownRules)
	return result, nil
}

// fetch reads rules and existing instances in parallel. The first failure cancels the
// other read and is the one returned.
func (s *Service) fetch(ctx context.Context, userID string, start, end logicalday.Date) ([]models.RecurrenceRule, []models.Instance, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		rules    []models.RecurrenceRule
		existing []models.Instance
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if rules, err = s.store.ListActiveRules(ctx, userID); err != nil {
			fail(fmt.Errorf("failed to list rules: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if existing, err = s.store.ListInstances(ctx, userID, start, end); err != nil {
			fail(fmt.Errorf("failed to list instances: %w", err))
		}
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return rules, existing, nil
}

// transactionAmounts maps transaction template ids to their amounts, reading templates
// only when some rule is owned by a transaction.
func (s *Service) transactionAmounts(ctx context.Context, userID string, rules []models.RecurrenceRule) (map[string]decimal.Decimal, error) {
	needed := false
	for _, r := range rules {
		if r.OwnerKind == constants.OwnerTransaction {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	txns, err := s.store.ListTransactions(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	amounts := make(map[string]decimal.Decimal, len(txns))
	for _, t := range txns {
		amounts[t.ID] = t.Amount
	}
	return amounts, nil
}

// Horizon returns the range from today through the next days-1 days in timezone
func Horizon(clock logicalday.Clock, timezone string, days int) (logicalday.Date, logicalday.Date) {
	if days < 1 {
		days = 1
	}
	today := logicalday.Today(clock, timezone)
	return today, today.AddDays(days - 1)
}

