package system

import (
	"errors"

	apperrors "github.com/julianstephens/lifeplan/internal/errors"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
