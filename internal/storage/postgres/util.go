package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// querier is the common surface of *sql.DB and *sql.Tx that repositories
// run against, so the same code serves pooled and transactional sessions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebinder rewrites ? placeholders to $n before handing queries to the
// driver, so repository code reads the same on both backends.
type rebinder struct {
	q querier
}

func (r rebinder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, rebind(query), args...)
}

func (r rebinder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, rebind(query), args...)
}

func (r rebinder) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, rebind(query), args...)
}

// rebind converts every ? to the next positional parameter. Literal
// question marks do not occur in our queries.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// placeholders renders "?, ?, ..." for n parameters; rebind numbers them.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// withTx runs fn inside the session's transaction, or a self-contained
// one when the session is pooled. The COPY protocol requires one.
func (s *session) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError(op, err)
	}
	return nil
}

// insertRow inserts one row into table. A nonzero explicit ID is used
// as-is so restored entities keep their original keys, and the sequence
// is advanced past it; otherwise the sequence assigns the key.
func (s *session) insertRow(ctx context.Context, op, table, columns string, explicitID int64, args ...any) (int64, error) {
	phys := s.binding.Table(table)
	if explicitID != 0 {
		q := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s)", phys, columns, placeholders(1+len(args)))
		all := append([]any{explicitID}, args...)
		if _, err := s.q.ExecContext(ctx, q, all...); err != nil {
			return 0, wrapDBError(op, err)
		}
		if err := s.bumpSequence(ctx, op, phys); err != nil {
			return 0, err
		}
		return explicitID, nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", phys, columns, placeholders(len(args)))
	var id int64
	if err := s.q.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, wrapDBError(op, err)
	}
	return id, nil
}

// bumpSequence moves a table's id sequence past the largest present key,
// after explicit-ID inserts that bypass it.
func (s *session) bumpSequence(ctx context.Context, op, physTable string) error {
	q := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT COALESCE(MAX(id), 1) FROM %s), 1))",
		physTable, physTable)
	if _, err := s.q.ExecContext(ctx, q); err != nil {
		return wrapDBError(op, err)
	}
	return nil
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
