package sqlite

import (
	"context"
	"fmt"

	"github.com/lockitd/lockit/internal/storage"
)

// insertAllocated runs insert with an ID chosen by the session's ID
// discipline. Offline sessions allocate negative local IDs and retry the
// rare collision; server sessions pass 0 so AUTOINCREMENT assigns the
// key, which insert reports back via LastInsertId.
func (s *session) insertAllocated(ctx context.Context, op string, insert func(ctx context.Context, id int64) (int64, error)) (int64, error) {
	if !s.localIDs {
		id, err := insert(ctx, 0)
		if err != nil {
			return 0, wrapDBError(op, err)
		}
		return id, nil
	}

	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		id := s.alloc.Next()
		if _, err = insert(ctx, id); err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return 0, wrapDBError(op, err)
		}
	}
	return 0, fmt.Errorf("%s: %w: local id collision persisted after %d attempts", op, storage.ErrTransient, attempts)
}

// insertEntity is insertAllocated plus the restore path: a nonzero
// explicit ID is used as-is so restored entities keep their original
// keys.
func (s *session) insertEntity(ctx context.Context, op string, explicitID int64, insert func(ctx context.Context, id int64) (int64, error)) (int64, error) {
	if explicitID != 0 {
		if _, err := insert(ctx, explicitID); err != nil {
			return 0, wrapDBError(op, err)
		}
		return explicitID, nil
	}
	return s.insertAllocated(ctx, op, insert)
}

// reserveIDs returns n IDs for a bulk insert: a contiguous descending
// block offline, or nil on server sessions where AUTOINCREMENT rules.
func (s *session) reserveIDs(n int) []int64 {
	if !s.localIDs {
		return nil
	}
	return s.alloc.Reserve(n)
}
