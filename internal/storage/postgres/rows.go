package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type rowRepo struct {
	s *session
}

var _ storage.RowRepository = (*rowRepo)(nil)

const rowColumns = `id, file_id, row_num, string_id, source, target, memo, status, qa_flag_count,
	extra_data, created_at, updated_at, updated_by`

func scanRow(scan func(dest ...any) error) (*types.Row, error) {
	var r types.Row
	var extra, status string
	var created, updated sql.NullString
	if err := scan(&r.ID, &r.FileID, &r.RowNum, &r.StringID, &r.Source, &r.Target, &r.Memo,
		&status, &r.QAFlagCount, &extra, &created, &updated, &r.UpdatedBy); err != nil {
		return nil, err
	}
	r.Status = types.RowStatus(status)
	r.ExtraData = rawJSON(extra)
	r.CreatedAt = scanTime(created)
	r.UpdatedAt = scanTime(updated)
	return &r, nil
}

func (r *rowRepo) Get(ctx context.Context, id int64) (*types.Row, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", rowColumns, r.s.binding.Table("rows"))
	row, err := scanRow(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get row", err)
	}
	return row, nil
}

func (r *rowRepo) GetWithFile(ctx context.Context, id int64) (*types.Row, *types.File, error) {
	row, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	file, err := (&fileRepo{r.s}).Get(ctx, row.FileID)
	if err != nil {
		return nil, nil, err
	}
	return row, file, nil
}

func (r *rowRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.Row, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY row_num, id",
		rowColumns, r.s.binding.Table("rows"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Row
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, row)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create inserts a single row and bumps the owning file's row_count.
func (r *rowRepo) Create(ctx context.Context, row *types.Row) error {
	files := &fileRepo{r.s}
	file, err := files.Get(ctx, row.FileID)
	if err != nil {
		return err
	}
	if row.Status == "" {
		row.Status = types.RowPending
	}
	if row.RowNum == 0 {
		row.RowNum = file.RowCount + 1
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("create row: %w", err)
	}

	now := nowString()
	id, err := r.s.insertRow(ctx, "create row", "rows",
		`file_id, row_num, string_id, source, target, memo, status, qa_flag_count,
		extra_data, created_at, updated_at, updated_by`,
		row.ID,
		row.FileID, row.RowNum, row.StringID, row.Source, row.Target, row.Memo,
		string(row.Status), row.QAFlagCount, jsonText(row.ExtraData), now, now, row.UpdatedBy)
	if err != nil {
		return err
	}
	row.ID = id
	row.CreatedAt, _ = types.ParseTimestamp(now)
	row.UpdatedAt = row.CreatedAt
	return files.UpdateRowCount(ctx, row.FileID)
}

// Update applies the patch and returns the updated row. Setting Target on
// a pending row without an explicit Status auto-advances to translated.
func (r *rowRepo) Update(ctx context.Context, id int64, patch types.RowPatch) (*types.Row, error) {
	_, row, err := r.applyPatch(ctx, id, patch)
	return row, err
}

// fieldChange is one concrete column edit derived from a patch.
type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

// patchChanges resolves a patch against the current row, including the
// pending-to-translated auto-advance.
func patchChanges(row *types.Row, patch types.RowPatch) []fieldChange {
	var changes []fieldChange
	add := func(field, oldV, newV string) {
		if oldV != newV {
			changes = append(changes, fieldChange{field, oldV, newV})
		}
	}
	if patch.Source != nil {
		add("source", row.Source, *patch.Source)
	}
	if patch.Target != nil {
		add("target", row.Target, *patch.Target)
	}
	if patch.Memo != nil {
		add("memo", row.Memo, *patch.Memo)
	}
	if patch.StringID != nil {
		add("string_id", row.StringID, *patch.StringID)
	}
	status := patch.Status
	if status == nil && patch.Target != nil && *patch.Target != row.Target && row.Status == types.RowPending {
		advanced := types.RowTranslated
		status = &advanced
	}
	if status != nil {
		add("status", string(row.Status), string(*status))
	}
	return changes
}

// applyPatch performs one row update and reports whether any column
// actually changed.
func (r *rowRepo) applyPatch(ctx context.Context, id int64, patch types.RowPatch) (bool, *types.Row, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return false, nil, fmt.Errorf("update row: invalid status %q", *patch.Status)
	}
	row, err := r.Get(ctx, id)
	if err != nil {
		return false, nil, err
	}
	changes := patchChanges(row, patch)
	if len(changes) == 0 {
		return false, row, nil
	}

	set := "updated_at = ?, updated_by = ?"
	now := nowString()
	args := []any{now, patch.UpdatedBy}
	for _, c := range changes {
		set += fmt.Sprintf(", %s = ?", c.field)
		args = append(args, c.newValue)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.s.binding.Table("rows"), set)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return false, nil, wrapDBError("update row", err)
	}
	if err := requireRow(res, "update row", id); err != nil {
		return false, nil, err
	}

	updated, err := r.Get(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return true, updated, nil
}

// Delete removes the row with its QA results and refreshes the file's
// row_count. Deleting a missing row returns false, not an error.
func (r *rowRepo) Delete(ctx context.Context, id int64) (bool, error) {
	row, err := r.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	b := r.s.binding
	if _, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE row_id = ?", b.Table("qa_results")), id); err != nil {
		return false, wrapDBError("delete row qa results", err)
	}
	if _, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.Table("rows")), id); err != nil {
		return false, wrapDBError("delete row", err)
	}
	if err := (&fileRepo{r.s}).UpdateRowCount(ctx, row.FileID); err != nil {
		return false, err
	}
	return true, nil
}

// BulkCreate inserts rows grouped by file so each touched file's
// row_count refreshes once.
func (r *rowRepo) BulkCreate(ctx context.Context, rows []*types.Row) error {
	byFile := make(map[int64][]*types.Row)
	var order []int64
	for _, row := range rows {
		if _, ok := byFile[row.FileID]; !ok {
			order = append(order, row.FileID)
		}
		byFile[row.FileID] = append(byFile[row.FileID], row)
	}
	files := &fileRepo{r.s}
	for _, fileID := range order {
		if err := files.AddRows(ctx, fileID, byFile[fileID]); err != nil {
			return err
		}
	}
	return nil
}

// BulkUpdate applies patches one by one and returns how many rows
// actually changed values.
func (r *rowRepo) BulkUpdate(ctx context.Context, updates []types.RowUpdate) (int, error) {
	changed := 0
	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		did, _, err := r.applyPatch(ctx, u.ID, u.RowPatch)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

// buildRowQuery renders the WHERE clause for GetForFile. Fuzzy search
// uses trigram word similarity on this backend.
func buildRowQuery(q types.RowQuery) (string, []any) {
	where := "file_id = ?"
	var args []any

	switch q.Filter {
	case types.FilterConfirmed:
		where += " AND status IN (?, ?, ?)"
		args = append(args, string(types.RowTranslated), string(types.RowReviewed), string(types.RowApproved))
	case types.FilterUnconfirmed:
		where += " AND status = ?"
		args = append(args, string(types.RowPending))
	case types.FilterQAFlagged:
		where += " AND qa_flag_count > 0"
	}
	if q.Status != nil {
		where += " AND status = ?"
		args = append(args, string(*q.Status))
	}
	if q.Search != "" {
		fields := q.Fields()
		var clause string
		switch q.SearchMode {
		case types.SearchExact:
			for i, f := range fields {
				if i > 0 {
					clause += " OR "
				}
				clause += fmt.Sprintf("%s = ?", string(f))
				args = append(args, q.Search)
			}
			where += " AND (" + clause + ")"
		case types.SearchNotContain:
			for i, f := range fields {
				if i > 0 {
					clause += " AND "
				}
				clause += fmt.Sprintf(`%s NOT ILIKE ? ESCAPE '\'`, string(f))
				args = append(args, likePattern(q.Search))
			}
			where += " AND (" + clause + ")"
		case types.SearchFuzzy:
			for i, f := range fields {
				if i > 0 {
					clause += " OR "
				}
				clause += fmt.Sprintf("word_similarity(?, %s) >= 0.4", string(f))
				args = append(args, q.Search)
			}
			where += " AND (" + clause + ")"
		default: // contain
			for i, f := range fields {
				if i > 0 {
					clause += " OR "
				}
				clause += fmt.Sprintf(`%s ILIKE ? ESCAPE '\'`, string(f))
				args = append(args, likePattern(q.Search))
			}
			where += " AND (" + clause + ")"
		}
	}
	return where, args
}

func (r *rowRepo) GetForFile(ctx context.Context, fileID int64, q types.RowQuery) ([]*types.Row, error) {
	where, args := buildRowQuery(q)
	args = append([]any{fileID}, args...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY row_num, id",
		rowColumns, r.s.binding.Table("rows"), where)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset())
	}
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("get rows for file", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Row
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, wrapDBError("get rows for file", err)
		}
		out = append(out, row)
	}
	return out, wrapDBError("get rows for file", rows.Err())
}

func (r *rowRepo) CountForFile(ctx context.Context, fileID int64) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE file_id = ?", r.s.binding.Table("rows"))
	if err := r.s.q.QueryRowContext(ctx, q, fileID).Scan(&n); err != nil {
		return 0, wrapDBError("count rows for file", err)
	}
	return n, nil
}

func (r *rowRepo) AddEditHistory(ctx context.Context, edit *types.RowEdit) error {
	now := nowString()
	id, err := r.s.insertRow(ctx, "add edit history", "row_edits",
		"row_id, field, old_value, new_value, edited_by, edited_at",
		0,
		edit.RowID, edit.Field, edit.OldValue, edit.NewValue, edit.EditedBy, now)
	if err != nil {
		return err
	}
	edit.ID = id
	edit.EditedAt, _ = types.ParseTimestamp(now)
	return nil
}

func (r *rowRepo) GetEditHistory(ctx context.Context, rowID int64) ([]*types.RowEdit, error) {
	q := fmt.Sprintf(`SELECT id, row_id, field, old_value, new_value, edited_by, edited_at
		FROM %s WHERE row_id = ? ORDER BY id`, r.s.binding.Table("row_edits"))
	rows, err := r.s.q.QueryContext(ctx, q, rowID)
	if err != nil {
		return nil, wrapDBError("get edit history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.RowEdit
	for rows.Next() {
		var e types.RowEdit
		var edited string
		if err := rows.Scan(&e.ID, &e.RowID, &e.Field, &e.OldValue, &e.NewValue, &e.EditedBy, &edited); err != nil {
			return nil, wrapDBError("get edit history", err)
		}
		e.EditedAt, _ = types.ParseTimestamp(edited)
		out = append(out, &e)
	}
	return out, wrapDBError("get edit history", rows.Err())
}

// SuggestSimilar finds translated rows whose source is trigram-similar to
// the query source, best match first.
func (r *rowRepo) SuggestSimilar(ctx context.Context, q types.SimilarQuery) ([]*types.RowMatch, error) {
	threshold := q.Threshold
	if threshold <= 0 {
		threshold = 0.3
	}
	limit := q.MaxResults
	if limit <= 0 {
		limit = 10
	}

	b := r.s.binding
	from := b.Table("rows") + " r"
	where := "r.target != '' AND similarity(r.source, ?) >= ?"
	args := []any{q.Source, q.Source, threshold}
	if q.ProjectID != nil {
		from += fmt.Sprintf(" JOIN %s f ON f.id = r.file_id", b.Table("files"))
		where += " AND f.project_id = ?"
		args = append(args, *q.ProjectID)
	}
	if q.FileID != nil {
		where += " AND r.file_id = ?"
		args = append(args, *q.FileID)
	}
	if q.ExcludeRowID != nil {
		where += " AND r.id != ?"
		args = append(args, *q.ExcludeRowID)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s, similarity(r.source, ?) AS sim
		FROM %s WHERE %s ORDER BY sim DESC, r.id LIMIT ?`,
		prefixColumns("r", rowColumns), from, where)
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("suggest similar rows", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*types.RowMatch{}
	for rows.Next() {
		var row types.Row
		var extra, status string
		var created, updated sql.NullString
		var sim float64
		if err := rows.Scan(&row.ID, &row.FileID, &row.RowNum, &row.StringID, &row.Source,
			&row.Target, &row.Memo, &status, &row.QAFlagCount, &extra, &created, &updated,
			&row.UpdatedBy, &sim); err != nil {
			return nil, wrapDBError("suggest similar rows", err)
		}
		row.Status = types.RowStatus(status)
		row.ExtraData = rawJSON(extra)
		row.CreatedAt = scanTime(created)
		row.UpdatedAt = scanTime(updated)
		out = append(out, &types.RowMatch{Row: &row, Similarity: sim})
	}
	return out, wrapDBError("suggest similar rows", rows.Err())
}
