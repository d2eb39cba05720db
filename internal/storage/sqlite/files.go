package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lockitd/lockit/internal/naming"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type fileRepo struct {
	s *session
}

var _ storage.FileRepository = (*fileRepo)(nil)

const fileColumns = `id, project_id, folder_id, name, original_filename, format, row_count,
	source_language, target_language, extra_data, created_at, updated_at,
	sync_status, server_id, server_project_id, server_folder_id, downloaded_at`

func scanFile(scan func(dest ...any) error) (*types.File, error) {
	var f types.File
	var folderID, serverID, serverProjectID, serverFolderID sql.NullInt64
	var extra, syncStatus string
	var created, updated, downloaded sql.NullString
	if err := scan(&f.ID, &f.ProjectID, &folderID, &f.Name, &f.OriginalFilename, &f.Format,
		&f.RowCount, &f.SourceLanguage, &f.TargetLanguage, &extra, &created, &updated,
		&syncStatus, &serverID, &serverProjectID, &serverFolderID, &downloaded); err != nil {
		return nil, err
	}
	f.FolderID = int64Ptr(folderID)
	f.ExtraData = rawJSON(extra)
	f.CreatedAt = scanTime(created)
	f.UpdatedAt = scanTime(updated)
	f.SyncStatus = types.SyncStatus(syncStatus)
	f.ServerID = int64Ptr(serverID)
	f.ServerProjectID = int64Ptr(serverProjectID)
	f.ServerFolderID = int64Ptr(serverFolderID)
	f.DownloadedAt = scanTimePtr(downloaded)
	return &f, nil
}

func (r *fileRepo) Get(ctx context.Context, id int64) (*types.File, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", fileColumns, r.s.binding.Table("files"))
	f, err := scanFile(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get file", err)
	}
	return f, nil
}

func (r *fileRepo) GetForProject(ctx context.Context, projectID int64, folderID *int64) ([]*types.File, error) {
	where := "project_id = ?"
	args := []any{projectID}
	if folderID == nil {
		where += " AND folder_id IS NULL"
	} else {
		where += " AND folder_id = ?"
		args = append(args, *folderID)
	}
	return r.getWhere(ctx, "get project files", where, args...)
}

func (r *fileRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.File, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY name COLLATE NOCASE",
		fileColumns, r.s.binding.Table("files"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.File
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, f)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create inserts the file, auto-renaming on sibling collision. Offline
// sessions default a blank sync status to local (never existed on a
// server) or synced when server provenance is present.
func (r *fileRepo) Create(ctx context.Context, file *types.File) error {
	if err := file.Validate(); err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	name, err := naming.Unique(ctx, file.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, file.ProjectID, file.FolderID, candidate, file.ID)
	})
	if err != nil {
		return err
	}
	file.Name = name

	if r.s.localIDs && file.SyncStatus == "" {
		if file.ServerID != nil {
			file.SyncStatus = types.SyncSynced
		} else {
			file.SyncStatus = types.SyncLocal
		}
	}

	now := nowString()
	q := fmt.Sprintf(`INSERT INTO %s (id, project_id, folder_id, name, original_filename, format,
		row_count, source_language, target_language, extra_data, created_at, updated_at,
		sync_status, server_id, server_project_id, server_folder_id, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.s.binding.Table("files"))
	id, err := r.s.insertEntity(ctx, "create file", file.ID, func(ctx context.Context, id int64) (int64, error) {
		return execInsert(ctx, r.s.q, q, insertID(id), file.ProjectID, nullInt64(file.FolderID),
			file.Name, file.OriginalFilename, file.Format, file.RowCount, file.SourceLanguage,
			file.TargetLanguage, jsonText(file.ExtraData), now, now, string(file.SyncStatus),
			nullInt64(file.ServerID), nullInt64(file.ServerProjectID), nullInt64(file.ServerFolderID),
			nullTimeString(file.DownloadedAt))
	})
	if err != nil {
		return err
	}
	file.ID = id
	file.CreatedAt, _ = types.ParseTimestamp(now)
	file.UpdatedAt = file.CreatedAt
	return nil
}

// Rename fails with ErrNameCollision instead of auto-renaming.
func (r *fileRepo) Rename(ctx context.Context, id int64, name string) error {
	file, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	taken, err := r.CheckNameExists(ctx, file.ProjectID, file.FolderID, name, id)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("rename file to %q: %w", name, storage.ErrNameCollision)
	}
	q := fmt.Sprintf("UPDATE %s SET name = ?, updated_at = ? WHERE id = ?", r.s.binding.Table("files"))
	res, err := r.s.q.ExecContext(ctx, q, name, nowString(), id)
	if err != nil {
		return wrapDBError("rename file", err)
	}
	if err := requireRow(res, "rename file", id); err != nil {
		return err
	}
	return r.s.markFileModified(ctx, file, "name", file.Name, name)
}

func (r *fileRepo) Update(ctx context.Context, id int64, targetLanguage *string, extraData json.RawMessage) error {
	if targetLanguage == nil && extraData == nil {
		return nil
	}
	set := "updated_at = ?"
	args := []any{nowString()}
	if targetLanguage != nil {
		set += ", target_language = ?"
		args = append(args, *targetLanguage)
	}
	if extraData != nil {
		set += ", extra_data = ?"
		args = append(args, string(extraData))
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.s.binding.Table("files"), set)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapDBError("update file", err)
	}
	return requireRow(res, "update file", id)
}

// Delete hard-deletes the file with its rows and QA results.
func (r *fileRepo) Delete(ctx context.Context, id int64) (bool, error) {
	b := r.s.binding
	for _, table := range []string{"rows", "qa_results"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE file_id = ?", b.Table(table))
		if _, err := r.s.q.ExecContext(ctx, q, id); err != nil {
			return false, wrapDBError("delete file contents", err)
		}
	}
	res, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.Table("files")), id)
	if err != nil {
		return false, wrapDBError("delete file", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Move reparents within the same project; rows are untouched.
func (r *fileRepo) Move(ctx context.Context, id int64, folderID *int64) error {
	file, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if folderID != nil {
		folder, err := (&folderRepo{r.s}).Get(ctx, *folderID)
		if err != nil {
			return err
		}
		if folder.ProjectID != file.ProjectID {
			return fmt.Errorf("move file: folder %d is in another project: %w", *folderID, storage.ErrInvalidScope)
		}
	}
	name, err := naming.Unique(ctx, file.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, file.ProjectID, folderID, candidate, id)
	})
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET folder_id = ?, name = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("files"))
	res, err := r.s.q.ExecContext(ctx, q, nullInt64(folderID), name, nowString(), id)
	if err != nil {
		return wrapDBError("move file", err)
	}
	return requireRow(res, "move file", id)
}

// MoveCrossProject moves the file into another project. Offline sessions
// reject the move unless the source or destination is Offline Storage.
func (r *fileRepo) MoveCrossProject(ctx context.Context, id int64, targetProjectID int64, targetFolderID *int64) error {
	file, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.s.localIDs && file.ProjectID != types.OfflineProjectID && targetProjectID != types.OfflineProjectID {
		return fmt.Errorf("move file %d to project %d: %w", id, targetProjectID, storage.ErrCrossProjectOffline)
	}
	if _, err := (&projectRepo{r.s}).Get(ctx, targetProjectID); err != nil {
		return err
	}
	if targetFolderID != nil {
		folder, err := (&folderRepo{r.s}).Get(ctx, *targetFolderID)
		if err != nil {
			return err
		}
		if folder.ProjectID != targetProjectID {
			return fmt.Errorf("move file: folder %d is not in project %d: %w",
				*targetFolderID, targetProjectID, storage.ErrInvalidScope)
		}
	}
	name, err := naming.Unique(ctx, file.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, targetProjectID, targetFolderID, candidate, id)
	})
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET project_id = ?, folder_id = ?, name = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("files"))
	res, err := r.s.q.ExecContext(ctx, q, targetProjectID, nullInt64(targetFolderID), name, nowString(), id)
	if err != nil {
		return wrapDBError("move file", err)
	}
	return requireRow(res, "move file", id)
}

// Copy duplicates the file and all rows byte for byte and returns the new
// file. A nil target project keeps the source project.
func (r *fileRepo) Copy(ctx context.Context, id int64, targetProjectID *int64, targetFolderID *int64) (*types.File, error) {
	src, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	projectID := src.ProjectID
	if targetProjectID != nil {
		projectID = *targetProjectID
	}
	folderID := src.FolderID
	if targetFolderID != nil {
		folderID = targetFolderID
	}
	return r.copyInto(ctx, id, projectID, folderID)
}

// copyInto duplicates src into the given parent, rows included. Row
// status, memo and extra_data survive byte for byte.
func (r *fileRepo) copyInto(ctx context.Context, srcID, projectID int64, folderID *int64) (*types.File, error) {
	src, err := r.Get(ctx, srcID)
	if err != nil {
		return nil, err
	}
	rows, err := r.GetRows(ctx, srcID)
	if err != nil {
		return nil, err
	}

	dup := *src
	dup.ID = 0
	dup.ProjectID = projectID
	dup.FolderID = folderID
	dup.RowCount = 0
	if r.s.localIDs {
		// A copy has no server identity of its own.
		dup.SyncStatus = types.SyncLocal
		dup.ServerID = nil
		dup.ServerProjectID = nil
		dup.ServerFolderID = nil
		dup.DownloadedAt = nil
	}
	if err := r.Create(ctx, &dup); err != nil {
		return nil, err
	}

	copies := make([]*types.Row, len(rows))
	for i, row := range rows {
		c := *row
		c.ID = 0
		c.FileID = dup.ID
		if r.s.localIDs {
			c.SyncStatus = ""
			c.ServerID = nil
			c.ServerFileID = nil
		}
		copies[i] = &c
	}
	if len(copies) > 0 {
		if err := r.AddRows(ctx, dup.ID, copies); err != nil {
			return nil, err
		}
	}
	dup.RowCount = len(copies)
	return &dup, nil
}

func (r *fileRepo) GetRows(ctx context.Context, fileID int64) ([]*types.Row, error) {
	return (&rowRepo{r.s}).getWhere(ctx, "get file rows", "file_id = ?", fileID)
}

// AddRows bulk-inserts rows and refreshes the file's row_count in the
// same session. A single multi-row INSERT per chunk is the fastest path
// the embedded backend offers.
func (r *fileRepo) AddRows(ctx context.Context, fileID int64, rows []*types.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := r.Get(ctx, fileID); err != nil {
		return err
	}

	now := nowString()
	ids := r.s.reserveIDs(len(rows))
	for i, row := range rows {
		row.FileID = fileID
		if row.Status == "" {
			row.Status = types.RowPending
		}
		if row.RowNum == 0 {
			row.RowNum = i + 1
		}
		if row.ID == 0 && ids != nil {
			row.ID = ids[i]
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("add rows: row %d: %w", i, err)
		}
	}

	const chunkSize = 200
	table := r.s.binding.Table("rows")
	for start := 0; start < len(rows); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*16)
		for i, row := range chunk {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, insertID(row.ID), row.FileID, row.RowNum, row.StringID,
				row.Source, row.Target, row.Memo, string(row.Status), row.QAFlagCount,
				jsonText(row.ExtraData), now, now, row.UpdatedBy, string(row.SyncStatus),
				nullInt64(row.ServerID), nullInt64(row.ServerFileID))
		}
		q := fmt.Sprintf(`INSERT INTO %s (id, file_id, row_num, string_id, source, target, memo,
			status, qa_flag_count, extra_data, created_at, updated_at, updated_by,
			sync_status, server_id, server_file_id) VALUES %s`,
			table, strings.Join(placeholders, ", "))
		if _, err := r.s.q.ExecContext(ctx, q, args...); err != nil {
			return wrapDBError("add rows", err)
		}
	}
	return r.UpdateRowCount(ctx, fileID)
}

// GetRowsForExport returns rows in row_num order, the order the source
// document had.
func (r *fileRepo) GetRowsForExport(ctx context.Context, fileID int64) ([]*types.Row, error) {
	return (&rowRepo{r.s}).getWhere(ctx, "get rows for export", "file_id = ?", fileID)
}

// UpdateRowCount recounts rows and stores the result on the file.
func (r *fileRepo) UpdateRowCount(ctx context.Context, fileID int64) error {
	q := fmt.Sprintf(`UPDATE %s SET row_count = (SELECT COUNT(*) FROM %s WHERE file_id = ?), updated_at = ?
		WHERE id = ?`, r.s.binding.Table("files"), r.s.binding.Table("rows"))
	res, err := r.s.q.ExecContext(ctx, q, fileID, nowString(), fileID)
	if err != nil {
		return wrapDBError("update row count", err)
	}
	return requireRow(res, "update row count", fileID)
}

func (r *fileRepo) CheckNameExists(ctx context.Context, projectID int64, folderID *int64, name string, excludeID int64) (bool, error) {
	where := "project_id = ? AND name = ? COLLATE NOCASE AND id != ?"
	args := []any{projectID, name, excludeID}
	if folderID == nil {
		where += " AND folder_id IS NULL"
	} else {
		where += " AND folder_id = ?"
		args = append(args, *folderID)
	}
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.s.binding.Table("files"), where)
	if err := r.s.q.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, wrapDBError("check file name", err)
	}
	return n > 0, nil
}
