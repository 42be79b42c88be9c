package sqlstore

import (
	"context"
	"fmt"

	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

const habitColumns = `id, user_id, name, local_time, created_at, deleted_at`

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var createdAt, deletedAt timestamp
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.LocalTime, &createdAt, &deletedAt); err != nil {
		return models.Habit{}, err
	}
	h.CreatedAt = createdAt.Time
	h.DeletedAt = deletedAt.ptr()
	return h, nil
}

func (s *Store) AddHabit(ctx context.Context, h models.Habit) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO habits (`+habitColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.LocalTime, s.timeArg(h.CreatedAt), s.nullTimeArg(h.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to add habit %q: %w", h.Name, err)
	}
	return nil
}

func (s *Store) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	h, err := scanHabit(s.queryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return models.Habit{}, notFound(err, "habit", id)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string, includeDeleted bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	rows, err := s.query(ctx, query+` ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) DeleteHabit(ctx context.Context, userID, id string, from logicalday.Date) error {
	return s.softDeleteOwner(ctx, "habits", "habit", userID, id, from)
}

func (s *Store) RestoreHabit(ctx context.Context, userID, id string) error {
	return s.restoreOwner(ctx, "habits", "habit", userID, id)
}

const txnColumns = `id, user_id, name, amount, currency, category, created_at, deleted_at`

func scanTransaction(row rowScanner) (models.RecurringTransaction, error) {
	var t models.RecurringTransaction
	var createdAt, deletedAt timestamp
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Amount, &t.Currency, &t.Category, &createdAt, &deletedAt); err != nil {
		return models.RecurringTransaction{}, err
	}
	t.CreatedAt = createdAt.Time
	t.DeletedAt = deletedAt.ptr()
	return t, nil
}

func (s *Store) AddTransaction(ctx context.Context, t models.RecurringTransaction) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO transactions (`+txnColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Amount.String(), t.Currency, t.Category, s.timeArg(t.CreatedAt), s.nullTimeArg(t.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to add transaction %q: %w", t.Name, err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (models.RecurringTransaction, error) {
	t, err := scanTransaction(s.queryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return models.RecurringTransaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurringTransaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	rows, err := s.query(ctx, query+` ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.RecurringTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string, from logicalday.Date) error {
	return s.softDeleteOwner(ctx, "transactions", "transaction", userID, id, from)
}

func (s *Store) RestoreTransaction(ctx context.Context, userID, id string) error {
	return s.restoreOwner(ctx, "transactions", "transaction", userID, id)
}
