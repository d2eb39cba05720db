package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type trashRepo struct {
	s *session
}

var _ storage.TrashRepository = (*trashRepo)(nil)

const trashColumns = `id, item_type, item_id, item_name, item_data, parent_project_id,
	parent_folder_id, deleted_by, deleted_at, expires_at, status`

func scanTrashEntry(scan func(dest ...any) error) (*types.TrashEntry, error) {
	var t types.TrashEntry
	var itemType, data, status string
	var parentProject, parentFolder sql.NullInt64
	var deleted, expires sql.NullString
	if err := scan(&t.ID, &itemType, &t.ItemID, &t.ItemName, &data, &parentProject,
		&parentFolder, &t.DeletedBy, &deleted, &expires, &status); err != nil {
		return nil, err
	}
	t.ItemType = types.TrashItemType(itemType)
	t.ItemData = rawJSON(data)
	t.ParentProjectID = int64Ptr(parentProject)
	t.ParentFolderID = int64Ptr(parentFolder)
	t.DeletedAt = scanTime(deleted)
	t.ExpiresAt = scanTime(expires)
	t.Status = types.TrashStatus(status)
	return &t, nil
}

func (r *trashRepo) Get(ctx context.Context, id int64) (*types.TrashEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", trashColumns, r.s.binding.Table("trash"))
	entry, err := scanTrashEntry(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get trash entry", err)
	}
	return entry, nil
}

// GetForUser lists the user's live trash, newest first. Restored entries
// are not live.
func (r *trashRepo) GetForUser(ctx context.Context, userID int64) ([]*types.TrashEntry, error) {
	return r.getWhere(ctx, "get trash for user",
		"deleted_by = ? AND status = ? ORDER BY deleted_at DESC, id DESC",
		userID, string(types.TrashTrashed))
}

func (r *trashRepo) GetExpired(ctx context.Context) ([]*types.TrashEntry, error) {
	return r.getWhere(ctx, "get expired trash",
		"expires_at < ? AND status = ? ORDER BY id",
		nowString(), string(types.TrashTrashed))
}

func (r *trashRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.TrashEntry, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s", trashColumns, r.s.binding.Table("trash"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.TrashEntry
	for rows.Next() {
		entry, err := scanTrashEntry(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, entry)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create stamps deleted_at, expires_at and status on the passed entry.
// A zero retentionDays means the 30-day default.
func (r *trashRepo) Create(ctx context.Context, entry *types.TrashEntry, retentionDays int) error {
	if !entry.ItemType.IsValid() {
		return fmt.Errorf("create trash entry: invalid item type %q", entry.ItemType)
	}
	if retentionDays <= 0 {
		retentionDays = types.DefaultTrashRetentionDays
	}
	now := time.Now()
	entry.DeletedAt = now
	entry.ExpiresAt = now.Add(time.Duration(retentionDays) * 24 * time.Hour)
	entry.Status = types.TrashTrashed

	q := fmt.Sprintf(`INSERT INTO %s (item_type, item_id, item_name, item_data, parent_project_id,
		parent_folder_id, deleted_by, deleted_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.s.binding.Table("trash"))
	id, err := execInsert(ctx, r.s.q, q, string(entry.ItemType), entry.ItemID, entry.ItemName,
		jsonText(entry.ItemData), nullInt64(entry.ParentProjectID), nullInt64(entry.ParentFolderID),
		entry.DeletedBy, types.FormatTimestamp(entry.DeletedAt), types.FormatTimestamp(entry.ExpiresAt),
		string(entry.Status))
	if err != nil {
		return wrapDBError("create trash entry", err)
	}
	entry.ID = id
	return nil
}

// Restore flips the entry to restored and returns its payload. Only the
// deleter may restore unless isAdmin.
func (r *trashRepo) Restore(ctx context.Context, trashID, userID int64, isAdmin bool) (json.RawMessage, error) {
	entry, err := r.Get(ctx, trashID)
	if err != nil {
		return nil, err
	}
	if entry.Status != types.TrashTrashed {
		return nil, fmt.Errorf("restore trash %d: already %s: %w", trashID, entry.Status, storage.ErrNotFound)
	}
	if !isAdmin && entry.DeletedBy != userID {
		return nil, fmt.Errorf("restore trash %d: deleted by user %d: %w",
			trashID, entry.DeletedBy, storage.ErrPermissionDenied)
	}
	q := fmt.Sprintf("UPDATE %s SET status = ? WHERE id = ?", r.s.binding.Table("trash"))
	if _, err := r.s.q.ExecContext(ctx, q, string(types.TrashRestored), trashID); err != nil {
		return nil, wrapDBError("restore trash entry", err)
	}
	return entry.ItemData, nil
}

func (r *trashRepo) PermanentDelete(ctx context.Context, trashID, userID int64, isAdmin bool) (bool, error) {
	entry, err := r.Get(ctx, trashID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if !isAdmin && entry.DeletedBy != userID {
		return false, fmt.Errorf("permanently delete trash %d: deleted by user %d: %w",
			trashID, entry.DeletedBy, storage.ErrPermissionDenied)
	}
	res, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.s.binding.Table("trash")), trashID)
	if err != nil {
		return false, wrapDBError("permanently delete trash entry", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *trashRepo) EmptyForUser(ctx context.Context, userID int64) (int, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE deleted_by = ? AND status = ?", r.s.binding.Table("trash"))
	res, err := r.s.q.ExecContext(ctx, q, userID, string(types.TrashTrashed))
	if err != nil {
		return 0, wrapDBError("empty trash", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CleanupExpired removes entries past expires_at that are still trashed.
func (r *trashRepo) CleanupExpired(ctx context.Context) (int, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ? AND status = ?", r.s.binding.Table("trash"))
	res, err := r.s.q.ExecContext(ctx, q, nowString(), string(types.TrashTrashed))
	if err != nil {
		return 0, wrapDBError("cleanup expired trash", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *trashRepo) CountForUser(ctx context.Context, userID int64) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_by = ? AND status = ?",
		r.s.binding.Table("trash"))
	if err := r.s.q.QueryRowContext(ctx, q, userID, string(types.TrashTrashed)).Scan(&n); err != nil {
		return 0, wrapDBError("count trash for user", err)
	}
	return n, nil
}
