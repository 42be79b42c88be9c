package cli

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/julianstephens/lifeplan/internal/errors"
	"github.com/julianstephens/lifeplan/internal/models"
	"github.com/julianstephens/lifeplan/internal/planner"
)

// match finds the single item whose id equals key, whose id starts with key, or whose
// name equals key ignoring case. Exact ids win over prefixes and names.
func match[T any](items []T, key, what string, id, name func(T) string) (T, error) {
	var zero T
	var found []T
	for _, it := range items {
		if id(it) == key {
			return it, nil
		}
		if strings.HasPrefix(id(it), key) || (name != nil && strings.EqualFold(name(it), key)) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%s %q: %w", what, key, apperrors.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return zero, fmt.Errorf("%s %q is ambiguous (%d matches)", what, key, len(found))
	}
}

// ResolveHabit looks a habit up by id, id prefix or name
func (c *Context) ResolveHabit(key string, includeDeleted bool) (models.Habit, error) {
	habits, err := c.Planner.ListHabits(context.Background(), c.UserID, includeDeleted)
	if err != nil {
		return models.Habit{}, err
	}
	return match(habits, key, "habit",
		func(h models.Habit) string { return h.ID },
		func(h models.Habit) string { return h.Name })
}

// ResolveTransaction looks a recurring transaction up by id, id prefix or name
func (c *Context) ResolveTransaction(key string, includeDeleted bool) (models.RecurringTransaction, error) {
	txns, err := c.Planner.ListTransactions(context.Background(), c.UserID, includeDeleted)
	if err != nil {
		return models.RecurringTransaction{}, err
	}
	return match(txns, key, "transaction",
		func(t models.RecurringTransaction) string { return t.ID },
		func(t models.RecurringTransaction) string { return t.Name })
}

// ResolveRule looks an active rule up by id or id prefix
func (c *Context) ResolveRule(key string) (models.RecurrenceRule, error) {
	rules, err := c.Planner.ListRules(context.Background(), c.UserID, false)
	if err != nil {
		return models.RecurrenceRule{}, err
	}
	return match(rules, key, "rule",
		func(r models.RecurrenceRule) string { return r.ID }, nil)
}

// ResolveItem looks an agenda item up by instance id, id prefix or title
func ResolveItem(items []planner.Item, key string) (planner.Item, error) {
	return match(items, key, "instance",
		func(it planner.Item) string { return it.ID },
		func(it planner.Item) string { return it.Title })
}
