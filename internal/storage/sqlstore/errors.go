package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/lifeplan/internal/errors"
)

var errConflict = apperrors.ErrConflict

// notFound maps sql.ErrNoRows onto ErrNotFound and wraps everything else
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", what, id, err)
}

func expectAffected(n int64, err error, msg string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", msg, apperrors.ErrNotFound)
	}
	return nil
}
