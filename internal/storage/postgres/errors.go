package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/lockitd/lockit/internal/storage"
)

// wrapDBError wraps a database error with operation context, converting
// driver errors to the typed kinds: sql.ErrNoRows to ErrNotFound, unique
// violations to ErrNameCollision, serialization failures and deadlocks to
// ErrTransient, and other integrity-class failures to ErrIntegrity.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return fmt.Errorf("%s: %w", op, storage.ErrNameCollision)
		case pqErr.Code == "40001" || pqErr.Code == "40P01" || pqErr.Code == "CR000":
			return fmt.Errorf("%s: %w: %v", op, storage.ErrTransient, err)
		case pqErr.Code.Class() == "23":
			return fmt.Errorf("%s: %w: %v", op, storage.ErrIntegrity, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
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
