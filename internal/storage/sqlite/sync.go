package sqlite

import (
	"context"
	"fmt"

	"github.com/lockitd/lockit/internal/types"
)

// OverwriteRow replaces the local row's content with the downloaded
// server copy and flips it to synced. Sync application bypasses the
// journal: these writes reconcile with the server, they are not local
// edits to upload.
func (s *Store) OverwriteRow(ctx context.Context, localID int64, server *types.Row) error {
	sess := s.session()
	q := fmt.Sprintf(`UPDATE %s SET string_id = ?, source = ?, target = ?, memo = ?, status = ?,
		extra_data = ?, updated_at = ?, updated_by = ?, sync_status = ?
		WHERE id = ?`, sess.binding.Table("rows"))
	res, err := sess.q.ExecContext(ctx, q,
		server.StringID, server.Source, server.Target, server.Memo, string(server.Status),
		jsonText(server.ExtraData), types.FormatTimestamp(server.UpdatedAt), server.UpdatedBy,
		string(types.SyncSynced), localID)
	if err != nil {
		return wrapDBError("overwrite row", err)
	}
	return requireRow(res, "overwrite row", localID)
}

// OverwriteEntry replaces the local TM entry's content with the server
// copy, rehashing in case the source text changed.
func (s *Store) OverwriteEntry(ctx context.Context, localID int64, server *types.TMEntry) error {
	sess := s.session()
	q := fmt.Sprintf(`UPDATE %s SET source_text = ?, target_text = ?, source_hash = ?,
		is_confirmed = ?, updated_at = ?, updated_by = ?
		WHERE id = ?`, sess.binding.Table("tm_entries"))
	res, err := sess.q.ExecContext(ctx, q,
		server.SourceText, server.TargetText, types.HashSource(server.SourceText),
		boolInt(server.IsConfirmed), types.FormatTimestamp(server.UpdatedAt), server.UpdatedBy,
		localID)
	if err != nil {
		return wrapDBError("overwrite tm entry", err)
	}
	return requireRow(res, "overwrite tm entry", localID)
}
