// Package storage defines the persistence contract shared by the SQLite, PostgreSQL and
// in-memory backends.
package storage

import (
	"context"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/migration"
	"github.com/julianstephens/lifeplan/internal/models"
)

// Provider is implemented by every storage backend. All reads and writes are scoped to a
// user; lookups of another user's records report apperrors.ErrNotFound.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	// Name returns a non-sensitive identifier for the backend
	Name() string

	// Recurrence rules
	AddRule(ctx context.Context, rule models.RecurrenceRule) error
	GetRule(ctx context.Context, userID, id string) (models.RecurrenceRule, error)
	ListRules(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurrenceRule, error)
	ListActiveRules(ctx context.Context, userID string) ([]models.RecurrenceRule, error)
	ListRulesForOwner(ctx context.Context, userID, ownerID string, includeDeleted bool) ([]models.RecurrenceRule, error)
	// ReplaceRule soft-deletes oldID, marks it as replaced by next, and inserts next.
	// Pending instances of oldID dated on or after from are removed in the same write;
	// done and skipped instances are kept.
	ReplaceRule(ctx context.Context, userID, oldID string, next models.RecurrenceRule, from logicalday.Date) error
	// DeleteRule soft-deletes the rule and drops its pending instances from the given day on
	DeleteRule(ctx context.Context, userID, id string, from logicalday.Date) error
	RestoreRule(ctx context.Context, userID, id string) error

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, userID, id string) (models.Habit, error)
	ListHabits(ctx context.Context, userID string, includeDeleted bool) ([]models.Habit, error)
	// DeleteHabit soft-deletes the habit and its active rules, and drops the habit's
	// pending instances dated on or after from
	DeleteHabit(ctx context.Context, userID, id string, from logicalday.Date) error
	// RestoreHabit restores the habit and the rules deleted along with it
	RestoreHabit(ctx context.Context, userID, id string) error

	// Recurring transactions
	AddTransaction(ctx context.Context, txn models.RecurringTransaction) error
	GetTransaction(ctx context.Context, userID, id string) (models.RecurringTransaction, error)
	ListTransactions(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurringTransaction, error)
	DeleteTransaction(ctx context.Context, userID, id string, from logicalday.Date) error
	RestoreTransaction(ctx context.Context, userID, id string) error

	// Instances
	ListInstances(ctx context.Context, userID string, start, end logicalday.Date) ([]models.Instance, error)
	// InsertInstancesIgnoringDuplicates inserts each instance unless one with the same
	// (UserID, RuleID, Day) exists, and returns how many rows were actually inserted.
	InsertInstancesIgnoringDuplicates(ctx context.Context, instances []models.Instance) (int, error)
	GetInstance(ctx context.Context, userID, id string) (models.Instance, error)
	SetInstanceStatus(ctx context.Context, userID, id string, status constants.InstanceStatus, at time.Time) error

	// Profiles
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	SaveProfile(ctx context.Context, profile models.Profile) error
}

// Migrator is implemented by backends with a versioned schema
type Migrator interface {
	// Migrate applies pending migrations and returns how many were applied
	Migrate(logFn func(string)) (int, error)
	MigrationStatus() (migration.Status, error)
}
