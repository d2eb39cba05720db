package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockitd/lockit/internal/naming"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type folderRepo struct {
	s *session
}

var _ storage.FolderRepository = (*folderRepo)(nil)

const folderColumns = "id, project_id, parent_id, name, created_at, updated_at"

func scanFolder(scan func(dest ...any) error) (*types.Folder, error) {
	var f types.Folder
	var parentID sql.NullInt64
	var created, updated sql.NullString
	if err := scan(&f.ID, &f.ProjectID, &parentID, &f.Name, &created, &updated); err != nil {
		return nil, err
	}
	f.ParentID = int64Ptr(parentID)
	f.CreatedAt = scanTime(created)
	f.UpdatedAt = scanTime(updated)
	return &f, nil
}

func (r *folderRepo) Get(ctx context.Context, id int64) (*types.Folder, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", folderColumns, r.s.binding.Table("folders"))
	f, err := scanFolder(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get folder", err)
	}
	return f, nil
}

func (r *folderRepo) GetForProject(ctx context.Context, projectID int64) ([]*types.Folder, error) {
	return r.getWhere(ctx, "get project folders", "project_id = ?", projectID)
}

func (r *folderRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.Folder, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY lower(name)",
		folderColumns, r.s.binding.Table("folders"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Folder
	for rows.Next() {
		f, err := scanFolder(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, f)
	}
	return out, wrapDBError(op, rows.Err())
}

func (r *folderRepo) GetWithContents(ctx context.Context, id int64) (*types.FolderContents, error) {
	folder, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := (&fileRepo{r.s}).GetForProject(ctx, folder.ProjectID, &folder.ID)
	if err != nil {
		return nil, err
	}
	subfolders, err := r.getWhere(ctx, "get subfolders", "parent_id = ?", id)
	if err != nil {
		return nil, err
	}
	return &types.FolderContents{Folder: folder, Files: files, Subfolders: subfolders}, nil
}

// Create inserts the folder, auto-renaming on sibling collision.
func (r *folderRepo) Create(ctx context.Context, folder *types.Folder) error {
	if err := folder.Validate(); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	name, err := naming.Unique(ctx, folder.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, folder.ProjectID, folder.ParentID, candidate, folder.ID)
	})
	if err != nil {
		return err
	}
	folder.Name = name

	now := nowString()
	id, err := r.s.insertRow(ctx, "create folder", "folders",
		"project_id, parent_id, name, created_at, updated_at",
		folder.ID,
		folder.ProjectID, nullInt64(folder.ParentID), folder.Name, now, now)
	if err != nil {
		return err
	}
	folder.ID = id
	folder.CreatedAt, _ = types.ParseTimestamp(now)
	folder.UpdatedAt = folder.CreatedAt
	return nil
}

// Rename fails with ErrNameCollision instead of auto-renaming.
func (r *folderRepo) Rename(ctx context.Context, id int64, name string) error {
	folder, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	taken, err := r.CheckNameExists(ctx, folder.ProjectID, folder.ParentID, name, id)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("rename folder to %q: %w", name, storage.ErrNameCollision)
	}
	q := fmt.Sprintf("UPDATE %s SET name = ?, updated_at = ? WHERE id = ?", r.s.binding.Table("folders"))
	res, err := r.s.q.ExecContext(ctx, q, name, nowString(), id)
	if err != nil {
		return wrapDBError("rename folder", err)
	}
	return requireRow(res, "rename folder", id)
}

// Delete hard-deletes the folder subtree: rows, files, then folders.
func (r *folderRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ids, err := r.subtreeIDs(ctx, id)
	if err != nil {
		return false, err
	}
	if ids == nil {
		return false, nil
	}
	b := r.s.binding
	for _, folderID := range ids {
		cascade := []string{
			fmt.Sprintf(`DELETE FROM %s WHERE file_id IN (SELECT id FROM %s WHERE folder_id = ?)`,
				b.Table("rows"), b.Table("files")),
			fmt.Sprintf(`DELETE FROM %s WHERE file_id IN (SELECT id FROM %s WHERE folder_id = ?)`,
				b.Table("qa_results"), b.Table("files")),
			fmt.Sprintf(`DELETE FROM %s WHERE folder_id = ?`, b.Table("files")),
		}
		for _, q := range cascade {
			if _, err := r.s.q.ExecContext(ctx, q, folderID); err != nil {
				return false, wrapDBError("delete folder files", err)
			}
		}
	}
	// Children first so the parent chain never dangles mid-delete.
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := r.s.q.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.Table("folders")), ids[i]); err != nil {
			return false, wrapDBError("delete folder", err)
		}
	}
	return true, nil
}

// subtreeIDs returns the folder and every descendant in breadth-first
// order, or nil when the folder does not exist.
func (r *folderRepo) subtreeIDs(ctx context.Context, id int64) ([]int64, error) {
	if _, err := r.Get(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []int64
	frontier := []int64{id}
	for depth := 0; len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if depth > types.MaxFolderDepth {
			return nil, fmt.Errorf("%w: folder tree deeper than %d", storage.ErrIntegrity, types.MaxFolderDepth)
		}
		out = append(out, frontier...)
		var next []int64
		for _, parent := range frontier {
			children, err := r.getWhere(ctx, "walk subtree", "parent_id = ?", parent)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return out, nil
}

// Move reparents within the same project, rejecting moves into the
// folder's own subtree.
func (r *folderRepo) Move(ctx context.Context, id int64, newParentID *int64) error {
	folder, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if newParentID != nil {
		if *newParentID == id {
			return fmt.Errorf("move folder %d into itself: %w", id, storage.ErrCycle)
		}
		parent, err := r.Get(ctx, *newParentID)
		if err != nil {
			return err
		}
		if parent.ProjectID != folder.ProjectID {
			return fmt.Errorf("move folder: target parent %d is in another project: %w",
				*newParentID, storage.ErrInvalidScope)
		}
		inside, err := r.IsDescendant(ctx, id, *newParentID)
		if err != nil {
			return err
		}
		if inside {
			return fmt.Errorf("move folder %d under its descendant %d: %w", id, *newParentID, storage.ErrCycle)
		}
	}

	name, err := naming.Unique(ctx, folder.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, folder.ProjectID, newParentID, candidate, id)
	})
	if err != nil {
		return err
	}
	q := fmt.Sprintf("UPDATE %s SET parent_id = ?, name = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("folders"))
	res, err := r.s.q.ExecContext(ctx, q, nullInt64(newParentID), name, nowString(), id)
	if err != nil {
		return wrapDBError("move folder", err)
	}
	return requireRow(res, "move folder", id)
}

// MoveCrossProject rewrites project_id on the folder and every descendant
// folder and file. Row IDs and row contents are untouched; rows reference
// files, not projects.
func (r *folderRepo) MoveCrossProject(ctx context.Context, id int64, targetProjectID int64, targetParentID *int64) error {
	folder, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := (&projectRepo{r.s}).Get(ctx, targetProjectID); err != nil {
		return err
	}
	if targetParentID != nil {
		parent, err := r.Get(ctx, *targetParentID)
		if err != nil {
			return err
		}
		if parent.ProjectID != targetProjectID {
			return fmt.Errorf("move folder: target parent %d is not in project %d: %w",
				*targetParentID, targetProjectID, storage.ErrInvalidScope)
		}
		inside, err := r.IsDescendant(ctx, id, *targetParentID)
		if err != nil {
			return err
		}
		if inside || *targetParentID == id {
			return fmt.Errorf("move folder %d under its descendant %d: %w", id, *targetParentID, storage.ErrCycle)
		}
	}

	name, err := naming.Unique(ctx, folder.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, targetProjectID, targetParentID, candidate, id)
	})
	if err != nil {
		return err
	}

	ids, err := r.subtreeIDs(ctx, id)
	if err != nil {
		return err
	}
	b := r.s.binding
	now := nowString()
	for _, folderID := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := fmt.Sprintf("UPDATE %s SET project_id = ?, updated_at = ? WHERE folder_id = ?", b.Table("files"))
		if _, err := r.s.q.ExecContext(ctx, q, targetProjectID, now, folderID); err != nil {
			return wrapDBError("move folder files", err)
		}
		q = fmt.Sprintf("UPDATE %s SET project_id = ?, updated_at = ? WHERE id = ?", b.Table("folders"))
		if _, err := r.s.q.ExecContext(ctx, q, targetProjectID, now, folderID); err != nil {
			return wrapDBError("move folder subtree", err)
		}
	}
	q := fmt.Sprintf("UPDATE %s SET parent_id = ?, name = ?, updated_at = ? WHERE id = ?", b.Table("folders"))
	res, err := r.s.q.ExecContext(ctx, q, nullInt64(targetParentID), name, now, id)
	if err != nil {
		return wrapDBError("move folder", err)
	}
	return requireRow(res, "move folder", id)
}

// Copy duplicates the subtree with fresh IDs, rows included, and never
// mutates the source. A nil target project keeps the source project.
func (r *folderRepo) Copy(ctx context.Context, id int64, targetProjectID *int64, targetParentID *int64) (*types.Folder, error) {
	src, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	projectID := src.ProjectID
	if targetProjectID != nil {
		projectID = *targetProjectID
	}

	files := &fileRepo{r.s}
	type copyItem struct {
		srcID    int64
		parentID *int64
		depth    int
		top      bool
	}
	var newRoot *types.Folder
	stack := []copyItem{{srcID: id, parentID: targetParentID, depth: 0, top: true}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > types.MaxFolderDepth {
			return nil, fmt.Errorf("%w: folder tree deeper than %d", storage.ErrIntegrity, types.MaxFolderDepth)
		}
		contents, err := r.GetWithContents(ctx, item.srcID)
		if err != nil {
			return nil, err
		}

		dup := &types.Folder{
			ProjectID: projectID,
			ParentID:  item.parentID,
			Name:      contents.Folder.Name,
		}
		if err := r.Create(ctx, dup); err != nil {
			return nil, err
		}
		if item.top {
			newRoot = dup
		}

		for _, f := range contents.Files {
			if _, err := files.copyInto(ctx, f.ID, projectID, &dup.ID); err != nil {
				return nil, err
			}
		}
		for _, sub := range contents.Subfolders {
			stack = append(stack, copyItem{srcID: sub.ID, parentID: &dup.ID, depth: item.depth + 1})
		}
	}
	return newRoot, nil
}

// IsDescendant reports whether candidate sits in the subtree rooted at
// id, walking parent links with a depth cap.
func (r *folderRepo) IsDescendant(ctx context.Context, id, candidate int64) (bool, error) {
	current := candidate
	for depth := 0; depth <= types.MaxFolderDepth; depth++ {
		folder, err := r.Get(ctx, current)
		if err != nil {
			return false, err
		}
		if folder.ParentID == nil {
			return false, nil
		}
		if *folder.ParentID == id {
			return true, nil
		}
		current = *folder.ParentID
	}
	return false, fmt.Errorf("%w: parent chain of folder %d exceeds %d", storage.ErrIntegrity, candidate, types.MaxFolderDepth)
}

func (r *folderRepo) CheckNameExists(ctx context.Context, projectID int64, parentID *int64, name string, excludeID int64) (bool, error) {
	where := "project_id = ? AND lower(name) = lower(?) AND id != ?"
	args := []any{projectID, name, excludeID}
	if parentID == nil {
		where += " AND parent_id IS NULL"
	} else {
		where += " AND parent_id = ?"
		args = append(args, *parentID)
	}
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.s.binding.Table("folders"), where)
	if err := r.s.q.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, wrapDBError("check folder name", err)
	}
	return n > 0, nil
}
