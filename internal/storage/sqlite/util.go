package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// querier is the common surface of *sql.DB, *sql.Tx and *sql.Conn that
// repositories run against, so the same code serves pooled and
// transactional sessions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// connQuerier adapts *sql.Conn, whose QueryRowContext signature already
// matches but which is easier to pass through one named type.
type connQuerier struct {
	conn *sql.Conn
}

func (c connQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c connQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c connQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// beginImmediateWithRetry begins an IMMEDIATE transaction, retrying
// SQLITE_BUSY with doubling backoff. IMMEDIATE takes the write lock up
// front so concurrent writers queue at BEGIN instead of deadlocking at
// their first write.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	const attempts = 5
	delay := 10 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// nowString returns the current time in the canonical timestamp format
// every timestamp column uses.
func nowString() string {
	return types.FormatTimestamp(time.Now())
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: types.FormatTimestamp(*t), Valid: true}
}

// scanTime parses a canonical timestamp column. Empty or null values
// return the zero time.
func scanTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := types.ParseTimestamp(s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func scanTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := types.ParseTimestamp(s.String)
	if err != nil {
		return nil
	}
	return &t
}

// rawJSON converts a TEXT column to json.RawMessage, treating empty as
// absent.
func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func jsonText(raw json.RawMessage) string {
	return string(raw)
}

// likePattern escapes LIKE metacharacters in a user query and wraps it in
// wildcards for substring matching with ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// insertID renders an ID for an INTEGER PRIMARY KEY column: zero becomes
// NULL so AUTOINCREMENT assigns the key.
func insertID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// execInsert runs an INSERT and returns the assigned key.
func execInsert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// prefixColumns qualifies every column in a comma-separated list with a
// table alias, for joined queries.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// requireRow converts a zero-rows-affected result into ErrNotFound.
func requireRow(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: id %d: %w", op, id, storage.ErrNotFound)
	}
	return nil
}
