// Package memory is a process-local storage backend used by tests and by the CLI when the
// database is "memory".
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

// Store keeps everything in maps guarded by a single RWMutex.
// Returned values are copies; callers cannot mutate stored state.
type Store struct {
	mu           sync.RWMutex
	rules        map[string]models.RecurrenceRule
	habits       map[string]models.Habit
	transactions map[string]models.RecurringTransaction
	instances    map[string]models.Instance
	instanceKeys map[instanceKey]string
	profiles     map[string]models.Profile
}

type instanceKey struct {
	userID string
	ruleID string
	day    logicalday.Date
}

func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.rules = make(map[string]models.RecurrenceRule)
	s.habits = make(map[string]models.Habit)
	s.transactions = make(map[string]models.RecurringTransaction)
	s.instances = make(map[string]models.Instance)
	s.instanceKeys = make(map[instanceKey]string)
	s.profiles = make(map[string]models.Profile)
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }
func (s *Store) Name() string { return "memory" }

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, apperrors.ErrNotFound)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyRule(r models.RecurrenceRule) models.RecurrenceRule {
	if r.Config != nil {
		r.Config = append([]byte(nil), r.Config...)
	}
	r.DeletedAt = copyTime(r.DeletedAt)
	return r
}

// Recurrence rules

func (s *Store) AddRule(_ context.Context, r models.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID]; ok {
		return fmt.Errorf("rule %s: %w", r.ID, apperrors.ErrConflict)
	}
	s.rules[r.ID] = copyRule(r)
	return nil
}

func (s *Store) GetRule(_ context.Context, userID, id string) (models.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return models.RecurrenceRule{}, notFound("rule", id)
	}
	return copyRule(r), nil
}

func (s *Store) filterRules(match func(models.RecurrenceRule) bool) []models.RecurrenceRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecurrenceRule
	for _, r := range s.rules {
		if match(r) {
			out = append(out, copyRule(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListRules(_ context.Context, userID string, includeDeleted bool) ([]models.RecurrenceRule, error) {
	return s.filterRules(func(r models.RecurrenceRule) bool {
		return r.UserID == userID && (includeDeleted || r.Active())
	}), nil
}

func (s *Store) ListActiveRules(ctx context.Context, userID string) ([]models.RecurrenceRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ListRules(ctx, userID, false)
}

func (s *Store) ListRulesForOwner(_ context.Context, userID, ownerID string, includeDeleted bool) ([]models.RecurrenceRule, error) {
	return s.filterRules(func(r models.RecurrenceRule) bool {
		return r.UserID == userID && r.OwnerID == ownerID && (includeDeleted || r.Active())
	}), nil
}

func (s *Store) ReplaceRule(_ context.Context, userID, oldID string, next models.RecurrenceRule, from logicalday.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rules[oldID]
	if !ok || old.UserID != userID || !old.Active() {
		return fmt.Errorf("rule not found or already deleted: %w", apperrors.ErrNotFound)
	}
	if _, exists := s.rules[next.ID]; exists {
		return fmt.Errorf("rule %s: %w", next.ID, apperrors.ErrConflict)
	}
	deletedAt := next.CreatedAt
	old.DeletedAt = &deletedAt
	old.ReplacedBy = next.ID
	s.rules[oldID] = old
	s.rules[next.ID] = copyRule(next)
	s.discardPending(userID, from, func(in models.Instance) bool { return in.RuleID == oldID })
	return nil
}

func (s *Store) DeleteRule(_ context.Context, userID, id string, from logicalday.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID || !r.Active() {
		return fmt.Errorf("rule not found or already deleted: %w", apperrors.ErrNotFound)
	}
	now := time.Now()
	r.DeletedAt = &now
	s.rules[id] = r
	s.discardPending(userID, from, func(in models.Instance) bool { return in.RuleID == id })
	return nil
}

func (s *Store) RestoreRule(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID || r.Active() || r.ReplacedBy != "" {
		return fmt.Errorf("rule not found, not deleted, or superseded: %w", apperrors.ErrNotFound)
	}
	r.DeletedAt = nil
	s.rules[id] = r
	return nil
}

// cascadeDelete soft-deletes the owner's active rules. Caller holds the write lock.
func (s *Store) cascadeDelete(userID, ownerID string, at time.Time) {
	for id, r := range s.rules {
		if r.UserID == userID && r.OwnerID == ownerID && r.Active() {
			t := at
			r.DeletedAt = &t
			s.rules[id] = r
		}
	}
}

// discardPending drops pending instances on or after from that match. Caller holds the write lock.
func (s *Store) discardPending(userID string, from logicalday.Date, match func(models.Instance) bool) {
	for id, in := range s.instances {
		if in.UserID != userID || in.Status != constants.StatusPending || in.Day.Before(from) || !match(in) {
			continue
		}
		delete(s.instances, id)
		delete(s.instanceKeys, instanceKey{userID: in.UserID, ruleID: in.RuleID, day: in.Day})
	}
}

// cascadeRestore restores rules deleted together with their owner. Caller holds the write lock.
func (s *Store) cascadeRestore(userID, ownerID string, deletedAt time.Time) {
	for id, r := range s.rules {
		if r.UserID == userID && r.OwnerID == ownerID && r.ReplacedBy == "" &&
			r.DeletedAt != nil && r.DeletedAt.Equal(deletedAt) {
			r.DeletedAt = nil
			s.rules[id] = r
		}
	}
}

// Habits

func (s *Store) AddHabit(_ context.Context, h models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[h.ID]; ok {
		return fmt.Errorf("habit %s: %w", h.ID, apperrors.ErrConflict)
	}
	for _, existing := range s.habits {
		if existing.UserID == h.UserID && existing.Name == h.Name && existing.DeletedAt == nil {
			return fmt.Errorf("habit %q: %w", h.Name, apperrors.ErrConflict)
		}
	}
	h.DeletedAt = copyTime(h.DeletedAt)
	s.habits[h.ID] = h
	return nil
}

func (s *Store) GetHabit(_ context.Context, userID, id string) (models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return models.Habit{}, notFound("habit", id)
	}
	h.DeletedAt = copyTime(h.DeletedAt)
	return h, nil
}

func (s *Store) ListHabits(_ context.Context, userID string, includeDeleted bool) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Habit
	for _, h := range s.habits {
		if h.UserID == userID && (includeDeleted || h.DeletedAt == nil) {
			h.DeletedAt = copyTime(h.DeletedAt)
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteHabit(_ context.Context, userID, id string, from logicalday.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID || h.DeletedAt != nil {
		return fmt.Errorf("habit not found or already deleted: %w", apperrors.ErrNotFound)
	}
	now := time.Now()
	h.DeletedAt = &now
	s.habits[id] = h
	s.cascadeDelete(userID, id, now)
	s.discardPending(userID, from, func(in models.Instance) bool { return in.OwnerID == id })
	return nil
}

func (s *Store) RestoreHabit(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID || h.DeletedAt == nil {
		return fmt.Errorf("habit not found or not deleted: %w", apperrors.ErrNotFound)
	}
	s.cascadeRestore(userID, id, *h.DeletedAt)
	h.DeletedAt = nil
	s.habits[id] = h
	return nil
}

// Recurring transactions

func (s *Store) AddTransaction(_ context.Context, t models.RecurringTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; ok {
		return fmt.Errorf("transaction %s: %w", t.ID, apperrors.ErrConflict)
	}
	t.DeletedAt = copyTime(t.DeletedAt)
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (models.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return models.RecurringTransaction{}, notFound("transaction", id)
	}
	t.DeletedAt = copyTime(t.DeletedAt)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, includeDeleted bool) ([]models.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecurringTransaction
	for _, t := range s.transactions {
		if t.UserID == userID && (includeDeleted || t.DeletedAt == nil) {
			t.DeletedAt = copyTime(t.DeletedAt)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string, from logicalday.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return fmt.Errorf("transaction not found or already deleted: %w", apperrors.ErrNotFound)
	}
	now := time.Now()
	t.DeletedAt = &now
	s.transactions[id] = t
	s.cascadeDelete(userID, id, now)
	s.discardPending(userID, from, func(in models.Instance) bool { return in.OwnerID == id })
	return nil
}

func (s *Store) RestoreTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID || t.DeletedAt == nil {
		return fmt.Errorf("transaction not found or not deleted: %w", apperrors.ErrNotFound)
	}
	s.cascadeRestore(userID, id, *t.DeletedAt)
	t.DeletedAt = nil
	s.transactions[id] = t
	return nil
}

// Instances

func (s *Store) ListInstances(ctx context.Context, userID string, start, end logicalday.Date) ([]models.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Instance
	for _, in := range s.instances {
		if in.UserID == userID && logicalday.Contains(start, end, in.Day) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Day.Compare(out[j].Day); c != 0 {
			return c < 0
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out, nil
}

func (s *Store) InsertInstancesIgnoringDuplicates(ctx context.Context, instances []models.Instance) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, in := range instances {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		key := instanceKey{userID: in.UserID, ruleID: in.RuleID, day: in.Day}
		if _, exists := s.instanceKeys[key]; exists {
			continue
		}
		if _, exists := s.instances[in.ID]; exists {
			return inserted, fmt.Errorf("instance %s: %w", in.ID, apperrors.ErrConflict)
		}
		s.instances[in.ID] = in
		s.instanceKeys[key] = in.ID
		inserted++
	}
	return inserted, nil
}

func (s *Store) GetInstance(_ context.Context, userID, id string) (models.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.instances[id]
	if !ok || in.UserID != userID {
		return models.Instance{}, notFound("instance", id)
	}
	return in, nil
}

func (s *Store) SetInstanceStatus(_ context.Context, userID, id string, status constants.InstanceStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[id]
	if !ok || in.UserID != userID {
		return fmt.Errorf("instance not found: %w", apperrors.ErrNotFound)
	}
	in.Status = status
	in.UpdatedAt = at
	s.instances[id] = in
	return nil
}

// Profiles

func (s *Store) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, notFound("profile", userID)
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}
