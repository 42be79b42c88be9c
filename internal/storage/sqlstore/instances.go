package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

const instanceColumns = `id, user_id, rule_id, owner_kind, owner_id, day, status, amount, created_at, updated_at`

func scanInstance(row rowScanner) (models.Instance, error) {
	var in models.Instance
	var createdAt, updatedAt timestamp
	if err := row.Scan(&in.ID, &in.UserID, &in.RuleID, &in.OwnerKind, &in.OwnerID, &in.Day, &in.Status, &in.Amount, &createdAt, &updatedAt); err != nil {
		return models.Instance{}, err
	}
	in.CreatedAt = createdAt.Time
	in.UpdatedAt = updatedAt.Time
	return in, nil
}

func (s *Store) ListInstances(ctx context.Context, userID string, start, end logicalday.Date) ([]models.Instance, error) {
	rows, err := s.query(ctx, `
		SELECT `+instanceColumns+` FROM instances
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY day, rule_id`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var instances []models.Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, in)
	}
	return instances, rows.Err()
}

// InsertInstancesIgnoringDuplicates inserts row by row outside a transaction, so rows
// written before a cancellation stay committed.
func (s *Store) InsertInstancesIgnoringDuplicates(ctx context.Context, instances []models.Instance) (int, error) {
	if len(instances) == 0 {
		return 0, nil
	}

	stmt, err := s.db.PrepareContext(ctx, s.rebind(`
		INSERT INTO instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, rule_id, day) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare instance insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, in := range instances {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		res, err := stmt.ExecContext(ctx,
			in.ID, in.UserID, in.RuleID, in.OwnerKind, in.OwnerID, in.Day.String(), in.Status,
			in.Amount.String(), s.timeArg(in.CreatedAt), s.timeArg(in.UpdatedAt))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert instance for rule %s on %s: %w", in.RuleID, in.Day, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (s *Store) GetInstance(ctx context.Context, userID, id string) (models.Instance, error) {
	in, err := scanInstance(s.queryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return models.Instance{}, notFound(err, "instance", id)
	}
	return in, nil
}

func (s *Store) SetInstanceStatus(ctx context.Context, userID, id string, status constants.InstanceStatus, at time.Time) error {
	n, err := s.exec(ctx, s.db, `UPDATE instances SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		status, s.timeArg(at), id, userID)
	return expectAffected(n, err, "instance not found")
}
