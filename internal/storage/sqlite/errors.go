package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lockitd/lockit/internal/storage"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to storage.ErrNotFound, unique-constraint violations to
// storage.ErrNameCollision and busy conditions to storage.ErrTransient so
// callers only ever see the typed kinds.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, storage.ErrNameCollision)
	case isBusy(err):
		return fmt.Errorf("%s: %w: %v", op, storage.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isNotFound reports whether err wraps storage.ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// isNoRows reports a raw empty-result scan, before wrapDBError has
// translated it.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
