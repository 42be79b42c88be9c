package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

const ruleColumns = `id, user_id, owner_kind, owner_id, type, config, created_at, deleted_at, replaced_by`

func scanRule(row rowScanner) (models.RecurrenceRule, error) {
	var r models.RecurrenceRule
	var config []byte
	var createdAt, deletedAt timestamp

	if err := row.Scan(&r.ID, &r.UserID, &r.OwnerKind, &r.OwnerID, &r.Type, &config, &createdAt, &deletedAt, &r.ReplacedBy); err != nil {
		return models.RecurrenceRule{}, err
	}
	if len(config) > 0 {
		r.Config = json.RawMessage(config)
	}
	r.CreatedAt = createdAt.Time
	r.DeletedAt = deletedAt.ptr()
	return r, nil
}

func configArg(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func (s *Store) insertRule(ctx context.Context, x execer, r models.RecurrenceRule) error {
	_, err := s.exec(ctx, x, `
		INSERT INTO recurrence_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.OwnerKind, r.OwnerID, r.Type, configArg(r.Config),
		s.timeArg(r.CreatedAt), s.nullTimeArg(r.DeletedAt), r.ReplacedBy)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) AddRule(ctx context.Context, r models.RecurrenceRule) error {
	return s.insertRule(ctx, s.db, r)
}

func (s *Store) GetRule(ctx context.Context, userID, id string) (models.RecurrenceRule, error) {
	row := s.queryRow(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanRule(row)
	if err != nil {
		return models.RecurrenceRule{}, notFound(err, "rule", id)
	}
	return r, nil
}

func (s *Store) listRules(ctx context.Context, where string, args ...interface{}) ([]models.RecurrenceRule, error) {
	rows, err := s.query(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.RecurrenceRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) ListRules(ctx context.Context, userID string, includeDeleted bool) ([]models.RecurrenceRule, error) {
	if includeDeleted {
		return s.listRules(ctx, `user_id = ?`, userID)
	}
	return s.ListActiveRules(ctx, userID)
}

func (s *Store) ListActiveRules(ctx context.Context, userID string) ([]models.RecurrenceRule, error) {
	return s.listRules(ctx, `user_id = ? AND deleted_at IS NULL`, userID)
}

func (s *Store) ListRulesForOwner(ctx context.Context, userID, ownerID string, includeDeleted bool) ([]models.RecurrenceRule, error) {
	if includeDeleted {
		return s.listRules(ctx, `user_id = ? AND owner_id = ?`, userID, ownerID)
	}
	return s.listRules(ctx, `user_id = ? AND owner_id = ? AND deleted_at IS NULL`, userID, ownerID)
}

func (s *Store) ReplaceRule(ctx context.Context, userID, oldID string, next models.RecurrenceRule, from logicalday.Date) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.exec(ctx, tx, `
			UPDATE recurrence_rules SET deleted_at = ?, replaced_by = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
			s.timeArg(next.CreatedAt), next.ID, oldID, userID)
		if err := expectAffected(n, err, "rule not found or already deleted"); err != nil {
			return err
		}
		if err := s.discardPending(ctx, tx, `rule_id = ?`, userID, oldID, from); err != nil {
			return err
		}
		return s.insertRule(ctx, tx, next)
	})
}

func (s *Store) DeleteRule(ctx context.Context, userID, id string, from logicalday.Date) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.exec(ctx, tx, `
			UPDATE recurrence_rules SET deleted_at = ?
			WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
			s.timeArg(time.Now()), id, userID)
		if err := expectAffected(n, err, "rule not found or already deleted"); err != nil {
			return err
		}
		return s.discardPending(ctx, tx, `rule_id = ?`, userID, id, from)
	})
}

// discardPending deletes the pending instances matching cond (one placeholder, bound to
// key) that fall on or after from. Done and skipped rows are history and stay.
func (s *Store) discardPending(ctx context.Context, tx *sql.Tx, cond, userID, key string, from logicalday.Date) error {
	_, err := s.exec(ctx, tx, `
		DELETE FROM instances
		WHERE user_id = ? AND `+cond+` AND status = ? AND day >= ?`,
		userID, key, string(constants.StatusPending), from.String())
	if err != nil {
		return fmt.Errorf("failed to discard pending instances: %w", err)
	}
	return nil
}

func (s *Store) RestoreRule(ctx context.Context, userID, id string) error {
	n, err := s.exec(ctx, s.db, `
		UPDATE recurrence_rules SET deleted_at = NULL
		WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL AND replaced_by = ''`,
		id, userID)
	return expectAffected(n, err, "rule not found, not deleted, or superseded")
}

// softDeleteOwner marks a template and its active rules deleted at the same instant and
// drops the template's pending instances from the given day on
func (s *Store) softDeleteOwner(ctx context.Context, table, what, userID, id string, from logicalday.Date) error {
	now := s.timeArg(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.exec(ctx, tx, `UPDATE `+table+` SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, now, id, userID)
		if err := expectAffected(n, err, what+" not found or already deleted"); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, `
			UPDATE recurrence_rules SET deleted_at = ?
			WHERE user_id = ? AND owner_id = ? AND deleted_at IS NULL`,
			now, userID, id)
		if err != nil {
			return err
		}
		return s.discardPending(ctx, tx, `owner_id = ?`, userID, id, from)
	})
}

// restoreOwner restores a template and the rules that were deleted together with it
func (s *Store) restoreOwner(ctx context.Context, table, what, userID, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `
			UPDATE recurrence_rules SET deleted_at = NULL
			WHERE user_id = ? AND owner_id = ? AND replaced_by = ''
			AND deleted_at = (SELECT deleted_at FROM `+table+` WHERE id = ? AND user_id = ?)`,
			userID, id, id, userID)
		if err != nil {
			return err
		}
		n, err := s.exec(ctx, tx, `UPDATE `+table+` SET deleted_at = NULL WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL`, id, userID)
		return expectAffected(n, err, what+" not found or not deleted")
	})
}
