package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/constants"
	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/ics"
	"github.com/julianstephens/lifeplan/internal/logger"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/recurrence"
	"github.com/julianstephens/lifeplan/internal/validation"
)

// RuleSpec is a rule tag with its raw configuration payload
type RuleSpec struct {
	Type   constants.RuleType `json:"type"`
	Config json.RawMessage    `json:"config,omitempty"`
}

type HabitInput struct {
	Name      string   `json:"name"`
	LocalTime string   `json:"local_time,omitempty"`
	Rule      RuleSpec `json:"rule"`
}

type TransactionInput struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category,omitempty"`
	Rule     RuleSpec        `json:"rule"`
}

// RuleInput attaches a new rule to an existing template
type RuleInput struct {
	OwnerKind constants.OwnerKind `json:"owner_kind"`
	OwnerID   string              `json:"owner_id"`
	RuleSpec
}

// newRule validates spec and builds a rule for the given owner. The stored payload is
// the canonical encoding of the decoded config.
func (s *Service) newRule(userID string, kind constants.OwnerKind, ownerID string, spec RuleSpec) (models.RecurrenceRule, error) {
	cfg, err := validation.Rule(spec.Type, spec.Config)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	raw, err := recurrence.Encode(cfg)
	if err != nil {
		return models.RecurrenceRule{}, fmt.Errorf("failed to encode rule config: %w", err)
	}
	return models.RecurrenceRule{
		ID:        s.newID(),
		UserID:    userID,
		OwnerKind: kind,
		OwnerID:   ownerID,
		Type:      spec.Type,
		Config:    raw,
		CreatedAt: s.clock.Now().UTC(),
	}, nil
}

// CreateHabit stores a habit together with its first recurrence rule
func (s *Service) CreateHabit(ctx context.Context, userID string, in HabitInput) (models.Habit, models.RecurrenceRule, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.Name(name); err != nil {
		return models.Habit{}, models.RecurrenceRule{}, err
	}
	if err := validation.LocalTime(in.LocalTime); err != nil {
		return models.Habit{}, models.RecurrenceRule{}, err
	}

	habit := models.Habit{
		ID:        s.newID(),
		UserID:    userID,
		Name:      name,
		LocalTime: in.LocalTime,
		CreatedAt: s.clock.Now().UTC(),
	}
	rule, err := s.newRule(userID, constants.OwnerHabit, habit.ID, in.Rule)
	if err != nil {
		return models.Habit{}, models.RecurrenceRule{}, err
	}

	if err := s.store.AddHabit(ctx, habit); err != nil {
		return models.Habit{}, models.RecurrenceRule{}, fmt.Errorf("failed to add habit: %w", err)
	}
	if err := s.store.AddRule(ctx, rule); err != nil {
		if derr := s.store.DeleteHabit(ctx, userID, habit.ID, logicalday.FromTime(habit.CreatedAt)); derr != nil {
			logger.Warn("Failed to roll back habit after rule insert failed", "habit", habit.ID, "error", derr)
		}
		return models.Habit{}, models.RecurrenceRule{}, fmt.Errorf("failed to add rule: %w", err)
	}
	return habit, rule, nil
}

// CreateTransaction stores a recurring transaction together with its first rule
func (s *Service) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (models.RecurringTransaction, models.RecurrenceRule, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.Name(name); err != nil {
		return models.RecurringTransaction{}, models.RecurrenceRule{}, err
	}
	currency, err := validation.Currency(in.Currency)
	if err != nil {
		return models.RecurringTransaction{}, models.RecurrenceRule{}, err
	}
	if in.Amount.IsZero() {
		return models.RecurringTransaction{}, models.RecurrenceRule{}, fmt.Errorf("%w: amount must not be zero", apperrors.ErrInvalidInput)
	}

	txn := models.RecurringTransaction{
		ID:        s.newID(),
		UserID:    userID,
		Name:      name,
		Amount:    in.Amount,
		Currency:  currency,
		Category:  strings.TrimSpace(in.Category),
		CreatedAt: s.clock.Now().UTC(),
	}
	rule, err := s.newRule(userID, constants.OwnerTransaction, txn.ID, in.Rule)
	if err != nil {
		return models.RecurringTransaction{}, models.RecurrenceRule{}, err
	}

	if err := s.store.AddTransaction(ctx, txn); err != nil {
		return models.RecurringTransaction{}, models.RecurrenceRule{}, fmt.Errorf("failed to add transaction: %w", err)
	}
	if err := s.store.AddRule(ctx, rule); err != nil {
		if derr := s.store.DeleteTransaction(ctx, userID, txn.ID, logicalday.FromTime(txn.CreatedAt)); derr != nil {
			logger.Warn("Failed to roll back transaction after rule insert failed", "transaction", txn.ID, "error", derr)
		}
		return models.RecurringTransaction{}, models.RecurrenceRule{}, fmt.Errorf("failed to add rule: %w", err)
	}
	return txn, rule, nil
}

// CreateRule adds another rule to an existing, non-deleted template
func (s *Service) CreateRule(ctx context.Context, userID string, in RuleInput) (models.RecurrenceRule, error) {
	switch in.OwnerKind {
	case constants.OwnerHabit:
		h, err := s.store.GetHabit(ctx, userID, in.OwnerID)
		if err != nil {
			return models.RecurrenceRule{}, err
		}
		if h.DeletedAt != nil {
			return models.RecurrenceRule{}, fmt.Errorf("habit %s is deleted: %w", h.ID, apperrors.ErrNotFound)
		}
	case constants.OwnerTransaction:
		t, err := s.store.GetTransaction(ctx, userID, in.OwnerID)
		if err != nil {
			return models.RecurrenceRule{}, err
		}
		if t.DeletedAt != nil {
			return models.RecurrenceRule{}, fmt.Errorf("transaction %s is deleted: %w", t.ID, apperrors.ErrNotFound)
		}
	default:
		return models.RecurrenceRule{}, fmt.Errorf("%w: owner kind must be %q or %q", apperrors.ErrInvalidInput, constants.OwnerHabit, constants.OwnerTransaction)
	}

	rule, err := s.newRule(userID, in.OwnerKind, in.OwnerID, in.RuleSpec)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	if err := s.store.AddRule(ctx, rule); err != nil {
		return models.RecurrenceRule{}, fmt.Errorf("failed to add rule: %w", err)
	}
	return rule, nil
}

// ReplaceRule changes a template's cadence. The old rule is soft-deleted and keeps its
// done and skipped instances, while its pending ones from today on are dropped.
func (s *Service) ReplaceRule(ctx context.Context, userID, ruleID string, spec RuleSpec) (models.RecurrenceRule, error) {
	old, err := s.store.GetRule(ctx, userID, ruleID)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	next, err := s.newRule(userID, old.OwnerKind, old.OwnerID, spec)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	today, err := s.Today(ctx, userID)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	if err := s.store.ReplaceRule(ctx, userID, ruleID, next, today.Date); err != nil {
		return models.RecurrenceRule{}, err
	}
	return next, nil
}

func (s *Service) ListRules(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurrenceRule, error) {
	return s.store.ListRules(ctx, userID, includeDeleted)
}

func (s *Service) DeleteRule(ctx context.Context, userID, id string) error {
	today, err := s.Today(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.DeleteRule(ctx, userID, id, today.Date)
}

func (s *Service) ListHabits(ctx context.Context, userID string, includeDeleted bool) ([]models.Habit, error) {
	return s.store.ListHabits(ctx, userID, includeDeleted)
}

// DeleteHabit retires the habit. Pending instances from today on disappear with it;
// RestoreHabit brings the rules back and the next read re-materializes them.
func (s *Service) DeleteHabit(ctx context.Context, userID, id string) error {
	today, err := s.Today(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.DeleteHabit(ctx, userID, id, today.Date)
}

func (s *Service) RestoreHabit(ctx context.Context, userID, id string) error {
	return s.store.RestoreHabit(ctx, userID, id)
}

func (s *Service) ListTransactions(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurringTransaction, error) {
	return s.store.ListTransactions(ctx, userID, includeDeleted)
}

func (s *Service) DeleteTransaction(ctx context.Context, userID, id string) error {
	today, err := s.Today(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.DeleteTransaction(ctx, userID, id, today.Date)
}

func (s *Service) RestoreTransaction(ctx context.Context, userID, id string) error {
	return s.store.RestoreTransaction(ctx, userID, id)
}

// owners loads every template, deleted ones included, so history still has titles
func (s *Service) owners(ctx context.Context, userID string) (ics.Owners, error) {
	habits, err := s.store.ListHabits(ctx, userID, true)
	if err != nil {
		return ics.Owners{}, fmt.Errorf("failed to list habits: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx, userID, true)
	if err != nil {
		return ics.Owners{}, fmt.Errorf("failed to list transactions: %w", err)
	}

	owners := ics.Owners{
		Habits:       make(map[string]models.Habit, len(habits)),
		Transactions: make(map[string]models.RecurringTransaction, len(txns)),
	}
	for _, h := range habits {
		owners.Habits[h.ID] = h
	}
	for _, t := range txns {
		owners.Transactions[t.ID] = t
	}
	return owners, nil
}
