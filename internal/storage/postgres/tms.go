package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/lockitd/lockit/internal/naming"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type tmRepo struct {
	s *session
}

var _ storage.TMRepository = (*tmRepo)(nil)

const tmColumns = `id, name, description, owner_id, source_lang, target_lang, entry_count,
	mode, status, indexed_at, created_at, updated_at`

func scanTM(scan func(dest ...any) error) (*types.TM, error) {
	var t types.TM
	var mode, status string
	var indexed, created, updated sql.NullString
	if err := scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.SourceLang, &t.TargetLang,
		&t.EntryCount, &mode, &status, &indexed, &created, &updated); err != nil {
		return nil, err
	}
	t.Mode = types.TMMode(mode)
	t.Status = types.TMStatus(status)
	t.IndexedAt = scanTimePtr(indexed)
	t.CreatedAt = scanTime(created)
	t.UpdatedAt = scanTime(updated)
	return &t, nil
}

const tmEntryColumns = `id, tm_id, source_text, target_text, source_hash, string_id, is_confirmed,
	created_by, created_at, updated_at, updated_by, confirmed_by, confirmed_at`

func scanTMEntry(scan func(dest ...any) error) (*types.TMEntry, error) {
	var e types.TMEntry
	var confirmedBy sql.NullInt64
	var created, updated, confirmedAt sql.NullString
	if err := scan(&e.ID, &e.TMID, &e.SourceText, &e.TargetText, &e.SourceHash, &e.StringID,
		&e.IsConfirmed, &e.CreatedBy, &created, &updated, &e.UpdatedBy, &confirmedBy, &confirmedAt); err != nil {
		return nil, err
	}
	e.CreatedAt = scanTime(created)
	e.UpdatedAt = scanTime(updated)
	e.ConfirmedBy = int64Ptr(confirmedBy)
	e.ConfirmedAt = scanTimePtr(confirmedAt)
	return &e, nil
}

func (r *tmRepo) Get(ctx context.Context, id int64) (*types.TM, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", tmColumns, r.s.binding.Table("tms"))
	tm, err := scanTM(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get tm", err)
	}
	return tm, nil
}

func (r *tmRepo) GetAll(ctx context.Context) ([]*types.TM, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY lower(name)", tmColumns, r.s.binding.Table("tms"))
	return r.queryTMs(ctx, "get all tms", q)
}

func (r *tmRepo) queryTMs(ctx context.Context, op, query string, args ...any) ([]*types.TM, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.TM
	for rows.Next() {
		tm, err := scanTM(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, tm)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create inserts the TM, auto-renaming in the global TM namespace.
func (r *tmRepo) Create(ctx context.Context, tm *types.TM) error {
	if tm.Mode == "" {
		tm.Mode = types.TMStandard
	}
	if tm.Status == "" {
		tm.Status = types.TMPending
	}
	if err := tm.Validate(); err != nil {
		return fmt.Errorf("create tm: %w", err)
	}
	name, err := naming.Unique(ctx, tm.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.checkNameExists(ctx, candidate, tm.ID)
	})
	if err != nil {
		return err
	}
	tm.Name = name

	now := nowString()
	id, err := r.s.insertRow(ctx, "create tm", "tms",
		`name, description, owner_id, source_lang, target_lang, entry_count,
		mode, status, indexed_at, created_at, updated_at`,
		tm.ID,
		tm.Name, tm.Description, tm.OwnerID, tm.SourceLang, tm.TargetLang, tm.EntryCount,
		string(tm.Mode), string(tm.Status), nullTimeString(tm.IndexedAt), now, now)
	if err != nil {
		return err
	}
	tm.ID = id
	tm.CreatedAt, _ = types.ParseTimestamp(now)
	tm.UpdatedAt = tm.CreatedAt
	return nil
}

func (r *tmRepo) checkNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE lower(name) = lower(?) AND id != ?",
		r.s.binding.Table("tms"))
	if err := r.s.q.QueryRowContext(ctx, q, name, excludeID).Scan(&n); err != nil {
		return false, wrapDBError("check tm name", err)
	}
	return n > 0, nil
}

// Delete removes entries, assignments, project links and index metadata,
// then the TM itself.
func (r *tmRepo) Delete(ctx context.Context, id int64) (bool, error) {
	b := r.s.binding
	for _, table := range []string{"tm_entries", "tm_assignments", "tm_project_links", "tm_indexes"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE tm_id = ?", b.Table(table))
		if _, err := r.s.q.ExecContext(ctx, q, id); err != nil {
			return false, wrapDBError("delete tm dependents", err)
		}
	}
	res, err := r.s.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.Table("tms")), id)
	if err != nil {
		return false, wrapDBError("delete tm", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetStatus updates the indexing lifecycle state; moving to ready stamps
// indexed_at.
func (r *tmRepo) SetStatus(ctx context.Context, id int64, status types.TMStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("set tm status: invalid status %q", status)
	}
	now := nowString()
	var q string
	args := []any{string(status), now}
	if status == types.TMReady {
		q = fmt.Sprintf("UPDATE %s SET status = ?, updated_at = ?, indexed_at = ? WHERE id = ?",
			r.s.binding.Table("tms"))
		args = append(args, now)
	} else {
		q = fmt.Sprintf("UPDATE %s SET status = ?, updated_at = ? WHERE id = ?", r.s.binding.Table("tms"))
	}
	args = append(args, id)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapDBError("set tm status", err)
	}
	return requireRow(res, "set tm status", id)
}

// Assign binds the TM to the single scope in target, replacing any
// previous scope. Activation state is preserved across re-assignment.
func (r *tmRepo) Assign(ctx context.Context, tmID int64, target types.TMTarget) error {
	if err := storage.ValidateTarget(target); err != nil {
		return err
	}
	if target.IsUnassigned() {
		return r.Unassign(ctx, tmID)
	}
	if _, err := r.Get(ctx, tmID); err != nil {
		return err
	}
	now := nowString()
	q := fmt.Sprintf(`INSERT INTO %s (tm_id, platform_id, project_id, folder_id, is_active, updated_at)
		VALUES (?, ?, ?, ?, FALSE, ?)
		ON CONFLICT (tm_id) DO UPDATE SET
			platform_id = excluded.platform_id,
			project_id = excluded.project_id,
			folder_id = excluded.folder_id,
			updated_at = excluded.updated_at`, r.s.binding.Table("tm_assignments"))
	if _, err := r.s.q.ExecContext(ctx, q, tmID, nullInt64(target.PlatformID),
		nullInt64(target.ProjectID), nullInt64(target.FolderID), now); err != nil {
		return wrapDBError("assign tm", err)
	}
	return nil
}

// Unassign clears the scope and deactivates: an unassigned TM can never
// stay active.
func (r *tmRepo) Unassign(ctx context.Context, tmID int64) error {
	if _, err := r.Get(ctx, tmID); err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET platform_id = NULL, project_id = NULL, folder_id = NULL,
		is_active = FALSE, activated_at = NULL, updated_at = ? WHERE tm_id = ?`,
		r.s.binding.Table("tm_assignments"))
	if _, err := r.s.q.ExecContext(ctx, q, nowString(), tmID); err != nil {
		return wrapDBError("unassign tm", err)
	}
	return nil
}

// Activate fails with ErrInvalidScope when the TM has no scope.
func (r *tmRepo) Activate(ctx context.Context, tmID int64) error {
	a, err := r.GetAssignment(ctx, tmID)
	if err != nil {
		return err
	}
	if a.PlatformID == nil && a.ProjectID == nil && a.FolderID == nil {
		return fmt.Errorf("activate tm %d: assignment required: %w", tmID, storage.ErrInvalidScope)
	}
	now := nowString()
	q := fmt.Sprintf("UPDATE %s SET is_active = TRUE, activated_at = ?, updated_at = ? WHERE tm_id = ?",
		r.s.binding.Table("tm_assignments"))
	if _, err := r.s.q.ExecContext(ctx, q, now, now, tmID); err != nil {
		return wrapDBError("activate tm", err)
	}
	return nil
}

func (r *tmRepo) Deactivate(ctx context.Context, tmID int64) error {
	if _, err := r.Get(ctx, tmID); err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET is_active = FALSE, updated_at = ? WHERE tm_id = ?",
		r.s.binding.Table("tm_assignments"))
	if _, err := r.s.q.ExecContext(ctx, q, nowString(), tmID); err != nil {
		return wrapDBError("deactivate tm", err)
	}
	return nil
}

// GetAssignment returns the TM's assignment row, or an unassigned zero
// assignment when none exists yet.
func (r *tmRepo) GetAssignment(ctx context.Context, tmID int64) (*types.TMAssignment, error) {
	if _, err := r.Get(ctx, tmID); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, tm_id, platform_id, project_id, folder_id, is_active, activated_at, updated_at
		FROM %s WHERE tm_id = ?`, r.s.binding.Table("tm_assignments"))
	a, err := scanAssignment(r.s.q.QueryRowContext(ctx, q, tmID).Scan)
	if err != nil {
		if isNoRows(err) {
			return &types.TMAssignment{TMID: tmID}, nil
		}
		return nil, wrapDBError("get tm assignment", err)
	}
	return a, nil
}

func scanAssignment(scan func(dest ...any) error) (*types.TMAssignment, error) {
	var a types.TMAssignment
	var platformID, projectID, folderID sql.NullInt64
	var activated, updated sql.NullString
	if err := scan(&a.ID, &a.TMID, &platformID, &projectID, &folderID, &a.IsActive, &activated, &updated); err != nil {
		return nil, err
	}
	a.PlatformID = int64Ptr(platformID)
	a.ProjectID = int64Ptr(projectID)
	a.FolderID = int64Ptr(folderID)
	a.ActivatedAt = scanTimePtr(activated)
	a.UpdatedAt = scanTime(updated)
	return &a, nil
}

func (r *tmRepo) GetForScope(ctx context.Context, target types.TMTarget, includeInactive bool) ([]*types.TM, error) {
	if err := storage.ValidateTarget(target); err != nil {
		return nil, err
	}
	var scopeClause string
	var args []any
	switch target.Kind() {
	case types.ScopePlatform:
		scopeClause = "a.platform_id = ?"
		args = append(args, *target.PlatformID)
	case types.ScopeProject:
		scopeClause = "a.project_id = ?"
		args = append(args, *target.ProjectID)
	case types.ScopeFolder:
		scopeClause = "a.folder_id = ?"
		args = append(args, *target.FolderID)
	default:
		// Unassigned scope: TMs with no assignment row or a cleared one.
		q := fmt.Sprintf(`SELECT %s FROM %s t
			LEFT JOIN %s a ON a.tm_id = t.id
			WHERE a.id IS NULL OR (a.platform_id IS NULL AND a.project_id IS NULL AND a.folder_id IS NULL)
			ORDER BY lower(t.name)`,
			prefixColumns("t", tmColumns), r.s.binding.Table("tms"), r.s.binding.Table("tm_assignments"))
		return r.queryTMs(ctx, "get tms for scope", q)
	}
	if !includeInactive {
		scopeClause += " AND a.is_active"
	}
	q := fmt.Sprintf(`SELECT %s FROM %s t
		JOIN %s a ON a.tm_id = t.id
		WHERE %s ORDER BY lower(t.name)`,
		prefixColumns("t", tmColumns), r.s.binding.Table("tms"), r.s.binding.Table("tm_assignments"), scopeClause)
	return r.queryTMs(ctx, "get tms for scope", q, args...)
}

// GetActiveForFile walks the folder parent chain, then the project, then
// the platform, tagging each hit with the scope that produced it. Nearer
// scopes come first.
func (r *tmRepo) GetActiveForFile(ctx context.Context, fileID int64) ([]*types.ScopedTM, error) {
	file, err := (&fileRepo{r.s}).Get(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var out []*types.ScopedTM
	folders := &folderRepo{r.s}
	folderID := file.FolderID
	for depth := 0; folderID != nil; depth++ {
		if depth > types.MaxFolderDepth {
			return nil, fmt.Errorf("%w: folder chain of file %d exceeds %d", storage.ErrIntegrity, fileID, types.MaxFolderDepth)
		}
		tms, err := r.GetForScope(ctx, types.FolderTarget(*folderID), false)
		if err != nil {
			return nil, err
		}
		for _, tm := range tms {
			out = append(out, &types.ScopedTM{TM: tm, Scope: types.ScopeFolder})
		}
		folder, err := folders.Get(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		folderID = folder.ParentID
	}

	tms, err := r.GetForScope(ctx, types.ProjectTarget(file.ProjectID), false)
	if err != nil {
		return nil, err
	}
	for _, tm := range tms {
		out = append(out, &types.ScopedTM{TM: tm, Scope: types.ScopeProject})
	}

	project, err := (&projectRepo{r.s}).Get(ctx, file.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.PlatformID != nil {
		tms, err := r.GetForScope(ctx, types.PlatformTarget(*project.PlatformID), false)
		if err != nil {
			return nil, err
		}
		for _, tm := range tms {
			out = append(out, &types.ScopedTM{TM: tm, Scope: types.ScopePlatform})
		}
	}
	return out, nil
}

// LinkToProject upserts the link, updating only priority on duplicates.
func (r *tmRepo) LinkToProject(ctx context.Context, tmID, projectID int64, priority int) error {
	if _, err := r.Get(ctx, tmID); err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (tm_id, project_id, priority, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tm_id, project_id) DO UPDATE SET priority = excluded.priority`,
		r.s.binding.Table("tm_project_links"))
	if _, err := r.s.q.ExecContext(ctx, q, tmID, projectID, priority, nowString()); err != nil {
		return wrapDBError("link tm to project", err)
	}
	return nil
}

func (r *tmRepo) UnlinkFromProject(ctx context.Context, tmID, projectID int64) (bool, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE tm_id = ? AND project_id = ?",
		r.s.binding.Table("tm_project_links"))
	res, err := r.s.q.ExecContext(ctx, q, tmID, projectID)
	if err != nil {
		return false, wrapDBError("unlink tm from project", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetLinkedForProject returns the best-priority linked TM (lowest
// priority value), the one confirmed rows are appended to.
func (r *tmRepo) GetLinkedForProject(ctx context.Context, projectID int64) (*types.TM, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s t
		JOIN %s l ON l.tm_id = t.id
		WHERE l.project_id = ? ORDER BY l.priority, l.id LIMIT 1`,
		prefixColumns("t", tmColumns), r.s.binding.Table("tms"), r.s.binding.Table("tm_project_links"))
	tm, err := scanTM(r.s.q.QueryRowContext(ctx, q, projectID).Scan)
	if err != nil {
		return nil, wrapDBError("get linked tm", err)
	}
	return tm, nil
}

func (r *tmRepo) GetAllLinkedForProject(ctx context.Context, projectID int64) ([]*types.TM, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s t
		JOIN %s l ON l.tm_id = t.id
		WHERE l.project_id = ? ORDER BY l.priority, l.id`,
		prefixColumns("t", tmColumns), r.s.binding.Table("tms"), r.s.binding.Table("tm_project_links"))
	return r.queryTMs(ctx, "get linked tms", q, projectID)
}

// AddEntry computes source_hash and bumps entry_count.
func (r *tmRepo) AddEntry(ctx context.Context, entry *types.TMEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("add tm entry: %w", err)
	}
	if _, err := r.Get(ctx, entry.TMID); err != nil {
		return err
	}
	entry.SourceHash = entry.ComputeSourceHash()

	now := nowString()
	id, err := r.s.insertRow(ctx, "add tm entry", "tm_entries",
		`tm_id, source_text, target_text, source_hash, string_id,
		is_confirmed, created_by, created_at, updated_at, updated_by, confirmed_by, confirmed_at`,
		entry.ID,
		entry.TMID, entry.SourceText, entry.TargetText, entry.SourceHash, entry.StringID,
		entry.IsConfirmed, entry.CreatedBy, now, now, entry.UpdatedBy,
		nullInt64(entry.ConfirmedBy), nullTimeString(entry.ConfirmedAt))
	if err != nil {
		return err
	}
	entry.ID = id
	entry.CreatedAt, _ = types.ParseTimestamp(now)
	entry.UpdatedAt = entry.CreatedAt
	return r.bumpEntryCount(ctx, entry.TMID, 1)
}

func (r *tmRepo) bumpEntryCount(ctx context.Context, tmID int64, delta int) error {
	q := fmt.Sprintf("UPDATE %s SET entry_count = entry_count + ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("tms"))
	if _, err := r.s.q.ExecContext(ctx, q, delta, nowString(), tmID); err != nil {
		return wrapDBError("update tm entry count", err)
	}
	return nil
}

// AddEntriesBulk dedups per the TM mode, loads over the COPY protocol and
// updates entry_count. Returns the number of entries inserted.
func (r *tmRepo) AddEntriesBulk(ctx context.Context, tmID int64, entries []types.EntryInput, createdBy int64) (int, error) {
	tm, err := r.Get(ctx, tmID)
	if err != nil {
		return 0, err
	}
	deduped := storage.DedupeEntries(tm.Mode, entries)
	if len(deduped) == 0 {
		return 0, nil
	}

	now := nowString()
	table := r.s.binding.Table("tm_entries")
	err = r.s.withTx(ctx, "bulk add tm entries", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table,
			"tm_id", "source_text", "target_text", "source_hash", "string_id",
			"is_confirmed", "created_by", "created_at", "updated_at", "updated_by"))
		if err != nil {
			return wrapDBError("bulk add tm entries", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range deduped {
			if _, err := stmt.ExecContext(ctx, tmID, e.Source, e.Target, types.HashSource(e.Source),
				e.StringID, false, createdBy, now, now, createdBy); err != nil {
				return wrapDBError("bulk add tm entries", err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return wrapDBError("bulk add tm entries", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := r.bumpEntryCount(ctx, tmID, len(deduped)); err != nil {
		return 0, err
	}
	return len(deduped), nil
}

func (r *tmRepo) GetEntries(ctx context.Context, tmID int64, offset, limit int) ([]*types.TMEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE tm_id = ? ORDER BY id LIMIT ? OFFSET ?",
		tmEntryColumns, r.s.binding.Table("tm_entries"))
	return r.queryEntries(ctx, "get tm entries", q, tmID, limit, offset)
}

// GetAllEntries is unbounded; used for rebuilding external indexes.
func (r *tmRepo) GetAllEntries(ctx context.Context, tmID int64) ([]*types.TMEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE tm_id = ? ORDER BY id",
		tmEntryColumns, r.s.binding.Table("tm_entries"))
	return r.queryEntries(ctx, "get all tm entries", q, tmID)
}

func (r *tmRepo) queryEntries(ctx context.Context, op, query string, args ...any) ([]*types.TMEntry, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.TMEntry
	for rows.Next() {
		e, err := scanTMEntry(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, e)
	}
	return out, wrapDBError(op, rows.Err())
}

// SearchEntries does substring matching. Exact matches (case-insensitive)
// score 100, substring matches 80; scores below the exact case carry no
// ordering guarantee.
func (r *tmRepo) SearchEntries(ctx context.Context, tmID int64, query string, limit int) ([]*types.EntryMatch, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE tm_id = ? AND source_text ILIKE ? ESCAPE '\' ORDER BY id LIMIT ?`,
		tmEntryColumns, r.s.binding.Table("tm_entries"))
	entries, err := r.queryEntries(ctx, "search tm entries", q, tmID, likePattern(query), limit)
	if err != nil {
		return nil, err
	}
	out := make([]*types.EntryMatch, len(entries))
	for i, e := range entries {
		score := 80.0
		if strings.EqualFold(e.SourceText, query) {
			score = 100.0
		}
		out[i] = &types.EntryMatch{Entry: e, Score: score}
	}
	return out, nil
}

func (r *tmRepo) DeleteEntry(ctx context.Context, entryID int64) (bool, error) {
	var tmID int64
	q := fmt.Sprintf("SELECT tm_id FROM %s WHERE id = ?", r.s.binding.Table("tm_entries"))
	if err := r.s.q.QueryRowContext(ctx, q, entryID).Scan(&tmID); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, wrapDBError("delete tm entry", err)
	}
	if _, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.s.binding.Table("tm_entries")), entryID); err != nil {
		return false, wrapDBError("delete tm entry", err)
	}
	if err := r.bumpEntryCount(ctx, tmID, -1); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateEntry rewrites source and/or target, rehashing when the source
// changes.
func (r *tmRepo) UpdateEntry(ctx context.Context, entryID int64, source, target *string, updatedBy int64) error {
	if source == nil && target == nil {
		return nil
	}
	set := "updated_at = ?, updated_by = ?"
	args := []any{nowString(), updatedBy}
	if source != nil {
		set += ", source_text = ?, source_hash = ?"
		args = append(args, *source, types.HashSource(*source))
	}
	if target != nil {
		set += ", target_text = ?"
		args = append(args, *target)
	}
	args = append(args, entryID)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.s.binding.Table("tm_entries"), set)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapDBError("update tm entry", err)
	}
	return requireRow(res, "update tm entry", entryID)
}

func (r *tmRepo) ConfirmEntry(ctx context.Context, entryID, confirmedBy int64) error {
	now := nowString()
	q := fmt.Sprintf(`UPDATE %s SET is_confirmed = TRUE, confirmed_by = ?, confirmed_at = ?, updated_at = ?
		WHERE id = ?`, r.s.binding.Table("tm_entries"))
	res, err := r.s.q.ExecContext(ctx, q, confirmedBy, now, now, entryID)
	if err != nil {
		return wrapDBError("confirm tm entry", err)
	}
	return requireRow(res, "confirm tm entry", entryID)
}

// BulkConfirmEntries confirms the given entries and returns how many were
// not yet confirmed.
func (r *tmRepo) BulkConfirmEntries(ctx context.Context, entryIDs []int64, confirmedBy int64) (int, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	now := nowString()
	q := fmt.Sprintf(`UPDATE %s SET is_confirmed = TRUE, confirmed_by = ?, confirmed_at = ?, updated_at = ?
		WHERE id = ANY(?) AND NOT is_confirmed`, r.s.binding.Table("tm_entries"))
	res, err := r.s.q.ExecContext(ctx, q, confirmedBy, now, now, pq.Array(entryIDs))
	if err != nil {
		return 0, wrapDBError("bulk confirm tm entries", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetGlossaryTerms returns short confirmed pairs for the QA term check.
func (r *tmRepo) GetGlossaryTerms(ctx context.Context, tmIDs []int64, maxSourceLength, limit int) ([]*types.GlossaryTerm, error) {
	if len(tmIDs) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT tm_id, source_text, target_text FROM %s
		WHERE tm_id = ANY(?) AND is_confirmed AND length(source_text) <= ?
		ORDER BY length(source_text), id LIMIT ?`, r.s.binding.Table("tm_entries"))
	rows, err := r.s.q.QueryContext(ctx, q, pq.Array(tmIDs), maxSourceLength, limit)
	if err != nil {
		return nil, wrapDBError("get glossary terms", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.GlossaryTerm
	for rows.Next() {
		var t types.GlossaryTerm
		if err := rows.Scan(&t.TMID, &t.Source, &t.Target); err != nil {
			return nil, wrapDBError("get glossary terms", err)
		}
		out = append(out, &t)
	}
	return out, wrapDBError("get glossary terms", rows.Err())
}

func (r *tmRepo) GetIndexes(ctx context.Context, tmID int64) ([]*types.TMIndexInfo, error) {
	q := fmt.Sprintf(`SELECT id, tm_id, index_type, status, size_bytes, built_at
		FROM %s WHERE tm_id = ? ORDER BY index_type`, r.s.binding.Table("tm_indexes"))
	rows, err := r.s.q.QueryContext(ctx, q, tmID)
	if err != nil {
		return nil, wrapDBError("get tm indexes", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.TMIndexInfo
	for rows.Next() {
		var info types.TMIndexInfo
		var status string
		var built sql.NullString
		if err := rows.Scan(&info.ID, &info.TMID, &info.IndexType, &status, &info.SizeBytes, &built); err != nil {
			return nil, wrapDBError("get tm indexes", err)
		}
		info.Status = types.TMStatus(status)
		info.BuiltAt = scanTimePtr(built)
		out = append(out, &info)
	}
	return out, wrapDBError("get tm indexes", rows.Err())
}

// PutIndex upserts per-index metadata keyed by (tm_id, index_type).
func (r *tmRepo) PutIndex(ctx context.Context, info *types.TMIndexInfo) error {
	q := fmt.Sprintf(`INSERT INTO %s (tm_id, index_type, status, size_bytes, built_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tm_id, index_type) DO UPDATE SET
			status = excluded.status,
			size_bytes = excluded.size_bytes,
			built_at = excluded.built_at`, r.s.binding.Table("tm_indexes"))
	if _, err := r.s.q.ExecContext(ctx, q, info.TMID, info.IndexType, string(info.Status),
		info.SizeBytes, nullTimeString(info.BuiltAt)); err != nil {
		return wrapDBError("put tm index", err)
	}
	return nil
}

func (r *tmRepo) CountEntries(ctx context.Context, tmID int64) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tm_id = ?", r.s.binding.Table("tm_entries"))
	if err := r.s.q.QueryRowContext(ctx, q, tmID).Scan(&n); err != nil {
		return 0, wrapDBError("count tm entries", err)
	}
	return n, nil
}

// SearchExact looks up by source_hash, an indexed point read.
func (r *tmRepo) SearchExact(ctx context.Context, tmID int64, source string) ([]*types.TMEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE tm_id = ? AND source_hash = ? ORDER BY id",
		tmEntryColumns, r.s.binding.Table("tm_entries"))
	return r.queryEntries(ctx, "search tm exact", q, tmID, types.HashSource(source))
}

// SearchSimilar finds trigram-similar entries, best match first. Scores
// are similarity scaled to the 0-100 range the exact path uses.
func (r *tmRepo) SearchSimilar(ctx context.Context, tmID int64, source string, threshold float64, maxResults int) ([]*types.EntryMatch, error) {
	if threshold <= 0 {
		threshold = 0.3
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	q := fmt.Sprintf(`SELECT %s, similarity(source_text, ?) AS sim
		FROM %s WHERE tm_id = ? AND similarity(source_text, ?) >= ?
		ORDER BY sim DESC, id LIMIT ?`, tmEntryColumns, r.s.binding.Table("tm_entries"))
	rows, err := r.s.q.QueryContext(ctx, q, source, tmID, source, threshold, maxResults)
	if err != nil {
		return nil, wrapDBError("search tm similar", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*types.EntryMatch{}
	for rows.Next() {
		var e types.TMEntry
		var confirmedBy sql.NullInt64
		var created, updated, confirmedAt sql.NullString
		var sim float64
		if err := rows.Scan(&e.ID, &e.TMID, &e.SourceText, &e.TargetText, &e.SourceHash, &e.StringID,
			&e.IsConfirmed, &e.CreatedBy, &created, &updated, &e.UpdatedBy, &confirmedBy, &confirmedAt,
			&sim); err != nil {
			return nil, wrapDBError("search tm similar", err)
		}
		e.CreatedAt = scanTime(created)
		e.UpdatedAt = scanTime(updated)
		e.ConfirmedBy = int64Ptr(confirmedBy)
		e.ConfirmedAt = scanTimePtr(confirmedAt)
		out = append(out, &types.EntryMatch{Entry: &e, Score: sim * 100})
	}
	return out, wrapDBError("search tm similar", rows.Err())
}

// GetTree returns the assignment tree.
func (r *tmRepo) GetTree(ctx context.Context) (*types.TMTree, error) {
	tree := &types.TMTree{Unassigned: []*types.TM{}, Platforms: []*types.TMTreePlatform{}}

	unassigned, err := r.GetForScope(ctx, types.TMTarget{}, true)
	if err != nil {
		return nil, err
	}
	tree.Unassigned = append(tree.Unassigned, unassigned...)

	platforms, err := (&platformRepo{r.s}).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range platforms {
		node := &types.TMTreePlatform{Platform: p}
		node.TMs, err = r.GetForScope(ctx, types.PlatformTarget(p.ID), true)
		if err != nil {
			return nil, err
		}
		projects, err := (&projectRepo{r.s}).getWhere(ctx, "get tree projects", "platform_id = ?", p.ID)
		if err != nil {
			return nil, err
		}
		for _, proj := range projects {
			projNode := &types.TMTreeProject{Project: proj}
			projNode.TMs, err = r.GetForScope(ctx, types.ProjectTarget(proj.ID), true)
			if err != nil {
				return nil, err
			}
			projNode.Folders, err = r.folderTree(ctx, proj.ID, nil, 0)
			if err != nil {
				return nil, err
			}
			node.Projects = append(node.Projects, projNode)
		}
		tree.Platforms = append(tree.Platforms, node)
	}
	return tree, nil
}

// folderTree builds the nested folder nodes for one project level.
// Recursion depth is bounded by the folder-depth cap.
func (r *tmRepo) folderTree(ctx context.Context, projectID int64, parentID *int64, depth int) ([]*types.TMTreeFolder, error) {
	if depth > types.MaxFolderDepth {
		return nil, fmt.Errorf("%w: folder tree deeper than %d", storage.ErrIntegrity, types.MaxFolderDepth)
	}
	where := "project_id = ?"
	args := []any{projectID}
	if parentID == nil {
		where += " AND parent_id IS NULL"
	} else {
		where += " AND parent_id = ?"
		args = append(args, *parentID)
	}
	folders, err := (&folderRepo{r.s}).getWhere(ctx, "get tree folders", where, args...)
	if err != nil {
		return nil, err
	}
	var out []*types.TMTreeFolder
	for _, f := range folders {
		node := &types.TMTreeFolder{Folder: f}
		node.TMs, err = r.GetForScope(ctx, types.FolderTarget(f.ID), true)
		if err != nil {
			return nil, err
		}
		node.Folders, err = r.folderTree(ctx, projectID, &f.ID, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}
