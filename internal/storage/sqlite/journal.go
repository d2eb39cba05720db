package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// journalRepo is the offline pending-change log plus sync subscriptions.
// The tables exist once per database, outside either schema family.
type journalRepo struct {
	s *session
}

var _ storage.Journal = (*journalRepo)(nil)

func (r *journalRepo) RecordChange(ctx context.Context, change *types.LocalChange) error {
	if change.SyncStatus == "" {
		change.SyncStatus = types.ChangePending
	}
	now := nowString()
	q := fmt.Sprintf(`INSERT INTO %s (entity_type, entity_id, field, old_value, new_value, sync_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, r.s.binding.Table("local_changes"))
	id, err := execInsert(ctx, r.s.q, q, change.EntityType, change.EntityID, change.Field,
		change.OldValue, change.NewValue, string(change.SyncStatus), now)
	if err != nil {
		return wrapDBError("record local change", err)
	}
	change.ID = id
	change.CreatedAt, _ = types.ParseTimestamp(now)
	return nil
}

func (r *journalRepo) PendingChanges(ctx context.Context) ([]*types.LocalChange, error) {
	q := fmt.Sprintf(`SELECT id, entity_type, entity_id, field, old_value, new_value, sync_status, created_at
		FROM %s WHERE sync_status = ? ORDER BY id`, r.s.binding.Table("local_changes"))
	rows, err := r.s.q.QueryContext(ctx, q, string(types.ChangePending))
	if err != nil {
		return nil, wrapDBError("get pending changes", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.LocalChange
	for rows.Next() {
		var c types.LocalChange
		var status, created string
		if err := rows.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.Field,
			&c.OldValue, &c.NewValue, &status, &created); err != nil {
			return nil, wrapDBError("get pending changes", err)
		}
		c.SyncStatus = types.ChangeStatus(status)
		c.CreatedAt, _ = types.ParseTimestamp(created)
		out = append(out, &c)
	}
	return out, wrapDBError("get pending changes", rows.Err())
}

func (r *journalRepo) MarkChanges(ctx context.Context, ids []int64, status types.ChangeStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if !status.IsValid() {
		return fmt.Errorf("mark changes: invalid status %q", status)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(status))
	for _, id := range ids {
		args = append(args, id)
	}
	q := fmt.Sprintf("UPDATE %s SET sync_status = ? WHERE id IN (%s)",
		r.s.binding.Table("local_changes"), placeholders)
	if _, err := r.s.q.ExecContext(ctx, q, args...); err != nil {
		return wrapDBError("mark changes", err)
	}
	return nil
}

// Subscribe upserts the subscription, refreshing downloaded_at.
func (r *journalRepo) Subscribe(ctx context.Context, sub *types.SyncSubscription) error {
	now := nowString()
	q := fmt.Sprintf(`INSERT INTO %s (entity_type, server_id, downloaded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(entity_type, server_id) DO UPDATE SET downloaded_at = excluded.downloaded_at`,
		r.s.binding.Table("sync_subscriptions"))
	if _, err := r.s.q.ExecContext(ctx, q, sub.EntityType, sub.ServerID, now); err != nil {
		return wrapDBError("subscribe", err)
	}
	sub.DownloadedAt, _ = types.ParseTimestamp(now)
	return nil
}

func (r *journalRepo) Subscriptions(ctx context.Context) ([]*types.SyncSubscription, error) {
	q := fmt.Sprintf(`SELECT id, entity_type, server_id, downloaded_at, last_synced_at
		FROM %s ORDER BY id`, r.s.binding.Table("sync_subscriptions"))
	rows, err := r.s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapDBError("get subscriptions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.SyncSubscription
	for rows.Next() {
		var sub types.SyncSubscription
		var downloaded, lastSynced sql.NullString
		if err := rows.Scan(&sub.ID, &sub.EntityType, &sub.ServerID, &downloaded, &lastSynced); err != nil {
			return nil, wrapDBError("get subscriptions", err)
		}
		sub.DownloadedAt = scanTime(downloaded)
		sub.LastSyncedAt = scanTimePtr(lastSynced)
		out = append(out, &sub)
	}
	return out, wrapDBError("get subscriptions", rows.Err())
}

// markFileModified journals a file-level edit and flips the file to
// modified. Only offline sessions journal, and only for files that track
// a server copy; local and new files have nothing to reconcile upstream.
func (s *session) markFileModified(ctx context.Context, file *types.File, field, oldValue, newValue string) error {
	if !s.localIDs || !file.SyncStatus.IsValid() || file.SyncStatus == types.SyncLocal {
		return nil
	}
	if oldValue == newValue {
		return nil
	}
	if file.SyncStatus == types.SyncSynced {
		q := fmt.Sprintf("UPDATE %s SET sync_status = ? WHERE id = ?", s.binding.Table("files"))
		if _, err := s.q.ExecContext(ctx, q, string(types.SyncModified), file.ID); err != nil {
			return wrapDBError("mark file modified", err)
		}
	}
	return (&journalRepo{s}).RecordChange(ctx, &types.LocalChange{
		EntityType: "file",
		EntityID:   file.ID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}

// markRowModified journals a row-level edit and flips the row to modified
// when it tracks a server copy. The owning file's sync status governs
// whether the edit is journaled at all: edits inside local files never
// sync.
func (s *session) markRowModified(ctx context.Context, row *types.Row, fileSync types.SyncStatus, field, oldValue, newValue string) error {
	if !s.localIDs || fileSync == types.SyncLocal || fileSync == "" {
		return nil
	}
	if oldValue == newValue {
		return nil
	}
	if row.SyncStatus == types.SyncSynced {
		q := fmt.Sprintf("UPDATE %s SET sync_status = ? WHERE id = ?", s.binding.Table("rows"))
		if _, err := s.q.ExecContext(ctx, q, string(types.SyncModified), row.ID); err != nil {
			return wrapDBError("mark row modified", err)
		}
		row.SyncStatus = types.SyncModified
	}
	return (&journalRepo{s}).RecordChange(ctx, &types.LocalChange{
		EntityType: "row",
		EntityID:   row.ID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}
