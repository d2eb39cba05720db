package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type qaRepo struct {
	s *session
}

var _ storage.QAResultRepository = (*qaRepo)(nil)

const qaColumns = `id, row_id, file_id, check_type, severity, message, details, created_at,
	resolved_at, resolved_by`

func scanQAResult(scan func(dest ...any) error) (*types.QAResult, error) {
	var q types.QAResult
	var checkType, severity, details string
	var created, resolvedAt sql.NullString
	var resolvedBy sql.NullInt64
	if err := scan(&q.ID, &q.RowID, &q.FileID, &checkType, &severity, &q.Message, &details,
		&created, &resolvedAt, &resolvedBy); err != nil {
		return nil, err
	}
	q.CheckType = types.QACheckType(checkType)
	q.Severity = types.QASeverity(severity)
	q.Details = rawJSON(details)
	q.CreatedAt = scanTime(created)
	q.ResolvedAt = scanTimePtr(resolvedAt)
	q.ResolvedBy = int64Ptr(resolvedBy)
	return &q, nil
}

func (r *qaRepo) Get(ctx context.Context, id int64) (*types.QAResult, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", qaColumns, r.s.binding.Table("qa_results"))
	result, err := scanQAResult(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get qa result", err)
	}
	return result, nil
}

func (r *qaRepo) GetForRow(ctx context.Context, rowID int64) ([]*types.QAResult, error) {
	return r.getWhere(ctx, "get qa results for row", "row_id = ?", rowID)
}

func (r *qaRepo) GetForFile(ctx context.Context, fileID int64, checkType *types.QACheckType, includeResolved bool) ([]*types.QAResult, error) {
	where := "file_id = ?"
	args := []any{fileID}
	if checkType != nil {
		where += " AND check_type = ?"
		args = append(args, string(*checkType))
	}
	if !includeResolved {
		where += " AND resolved_at IS NULL"
	}
	return r.getWhere(ctx, "get qa results for file", where, args...)
}

func (r *qaRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.QAResult, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id",
		qaColumns, r.s.binding.Table("qa_results"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.QAResult
	for rows.Next() {
		result, err := scanQAResult(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, result)
	}
	return out, wrapDBError(op, rows.Err())
}

func (r *qaRepo) GetSummary(ctx context.Context, fileID int64) (*types.QASummary, error) {
	results, err := r.getWhere(ctx, "get qa summary", "file_id = ?", fileID)
	if err != nil {
		return nil, err
	}
	summary := &types.QASummary{
		FileID:     fileID,
		ByCheck:    map[types.QACheckType]int{},
		BySeverity: map[types.QASeverity]int{},
	}
	for _, q := range results {
		summary.Total++
		if !q.IsResolved() {
			summary.Unresolved++
			summary.ByCheck[q.CheckType]++
			summary.BySeverity[q.Severity]++
		}
	}
	return summary, nil
}

// Create inserts one finding and reconciles the row's qa_flag_count.
func (r *qaRepo) Create(ctx context.Context, result *types.QAResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("create qa result: %w", err)
	}
	now := nowString()
	id, err := r.s.insertRow(ctx, "create qa result", "qa_results",
		"row_id, file_id, check_type, severity, message, details, created_at, resolved_at, resolved_by",
		0,
		result.RowID, result.FileID, string(result.CheckType), string(result.Severity),
		result.Message, jsonText(result.Details), now,
		nullTimeString(result.ResolvedAt), nullInt64(result.ResolvedBy))
	if err != nil {
		return err
	}
	result.ID = id
	result.CreatedAt, _ = types.ParseTimestamp(now)
	return r.UpdateRowQACount(ctx, result.RowID)
}

// BulkCreate inserts findings in multi-row chunks and reconciles every
// touched row's qa_flag_count once.
func (r *qaRepo) BulkCreate(ctx context.Context, results []*types.QAResult) error {
	if len(results) == 0 {
		return nil
	}
	touched := make(map[int64]bool)
	for i, result := range results {
		if err := result.Validate(); err != nil {
			return fmt.Errorf("bulk create qa results: result %d: %w", i, err)
		}
		touched[result.RowID] = true
	}

	now := nowString()
	const chunkSize = 200
	table := r.s.binding.Table("qa_results")
	for start := 0; start < len(results); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + chunkSize
		if end > len(results) {
			end = len(results)
		}
		chunk := results[start:end]

		rows := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*7)
		for i, result := range chunk {
			rows[i] = "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, result.RowID, result.FileID, string(result.CheckType),
				string(result.Severity), result.Message, jsonText(result.Details), now)
		}
		q := fmt.Sprintf(`INSERT INTO %s (row_id, file_id, check_type, severity, message, details, created_at)
			VALUES %s`, table, strings.Join(rows, ", "))
		if _, err := r.s.q.ExecContext(ctx, q, args...); err != nil {
			return wrapDBError("bulk create qa results", err)
		}
	}
	for rowID := range touched {
		if err := r.UpdateRowQACount(ctx, rowID); err != nil {
			return err
		}
	}
	return nil
}

// Resolve marks a finding resolved and reconciles the row counter.
// Resolving an already-resolved result is a no-op returning the existing
// record.
func (r *qaRepo) Resolve(ctx context.Context, id, resolvedBy int64) (*types.QAResult, error) {
	result, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.IsResolved() {
		return result, nil
	}
	now := nowString()
	q := fmt.Sprintf("UPDATE %s SET resolved_at = ?, resolved_by = ? WHERE id = ?",
		r.s.binding.Table("qa_results"))
	if _, err := r.s.q.ExecContext(ctx, q, now, resolvedBy, id); err != nil {
		return nil, wrapDBError("resolve qa result", err)
	}
	if err := r.UpdateRowQACount(ctx, result.RowID); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *qaRepo) DeleteUnresolvedForRow(ctx context.Context, rowID int64) (int, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE row_id = ? AND resolved_at IS NULL",
		r.s.binding.Table("qa_results"))
	res, err := r.s.q.ExecContext(ctx, q, rowID)
	if err != nil {
		return 0, wrapDBError("delete unresolved qa results", err)
	}
	n, _ := res.RowsAffected()
	if err := r.UpdateRowQACount(ctx, rowID); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *qaRepo) DeleteForFile(ctx context.Context, fileID int64) (int, error) {
	// Touched rows must reconcile to zero after the delete.
	rows, err := r.s.q.QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT row_id FROM %s WHERE file_id = ?", r.s.binding.Table("qa_results")), fileID)
	if err != nil {
		return 0, wrapDBError("delete qa results for file", err)
	}
	var touched []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			_ = rows.Close()
			return 0, wrapDBError("delete qa results for file", err)
		}
		touched = append(touched, rowID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, wrapDBError("delete qa results for file", err)
	}
	_ = rows.Close()

	res, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE file_id = ?", r.s.binding.Table("qa_results")), fileID)
	if err != nil {
		return 0, wrapDBError("delete qa results for file", err)
	}
	n, _ := res.RowsAffected()
	for _, rowID := range touched {
		if err := r.UpdateRowQACount(ctx, rowID); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (r *qaRepo) CountUnresolvedForRow(ctx context.Context, rowID int64) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE row_id = ? AND resolved_at IS NULL",
		r.s.binding.Table("qa_results"))
	if err := r.s.q.QueryRowContext(ctx, q, rowID).Scan(&n); err != nil {
		return 0, wrapDBError("count unresolved qa results", err)
	}
	return n, nil
}

// UpdateRowQACount recomputes qa_flag_count from unresolved findings.
// Rows deleted out from under their findings are ignored; the row delete
// path removes the findings too.
func (r *qaRepo) UpdateRowQACount(ctx context.Context, rowID int64) error {
	q := fmt.Sprintf(`UPDATE %s SET qa_flag_count =
		(SELECT COUNT(*) FROM %s WHERE row_id = ? AND resolved_at IS NULL)
		WHERE id = ?`, r.s.binding.Table("rows"), r.s.binding.Table("qa_results"))
	if _, err := r.s.q.ExecContext(ctx, q, rowID, rowID); err != nil {
		return wrapDBError("update row qa count", err)
	}
	return nil
}
