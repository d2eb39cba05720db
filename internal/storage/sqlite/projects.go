package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockitd/lockit/internal/naming"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type projectRepo struct {
	s *session
}

var _ storage.ProjectRepository = (*projectRepo)(nil)

const projectColumns = "id, name, description, owner_id, platform_id, is_restricted, created_at, updated_at"

func scanProject(scan func(dest ...any) error) (*types.Project, error) {
	var p types.Project
	var platformID sql.NullInt64
	var restricted int
	var created, updated sql.NullString
	if err := scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &platformID, &restricted, &created, &updated); err != nil {
		return nil, err
	}
	p.PlatformID = int64Ptr(platformID)
	p.IsRestricted = restricted != 0
	p.CreatedAt = scanTime(created)
	p.UpdatedAt = scanTime(updated)
	return &p, nil
}

func (r *projectRepo) Get(ctx context.Context, id int64) (*types.Project, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", projectColumns, r.s.binding.Table("projects"))
	p, err := scanProject(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get project", err)
	}
	return p, nil
}

func (r *projectRepo) GetAll(ctx context.Context) ([]*types.Project, error) {
	return r.getWhere(ctx, "get all projects", "1 = 1")
}

func (r *projectRepo) getWhere(ctx context.Context, op, where string, args ...any) ([]*types.Project, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY name COLLATE NOCASE",
		projectColumns, r.s.binding.Table("projects"), where)
	rows, err := r.s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, p)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create inserts the project, auto-renaming on collision within its
// platform namespace. The effective name is left on the passed project.
func (r *projectRepo) Create(ctx context.Context, project *types.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	name, err := naming.Unique(ctx, project.Name, func(ctx context.Context, candidate string) (bool, error) {
		return r.CheckNameExists(ctx, candidate, project.PlatformID, project.ID)
	})
	if err != nil {
		return err
	}
	project.Name = name

	now := nowString()
	q := fmt.Sprintf(`INSERT INTO %s (id, name, description, owner_id, platform_id, is_restricted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.s.binding.Table("projects"))
	id, err := r.s.insertEntity(ctx, "create project", project.ID, func(ctx context.Context, id int64) (int64, error) {
		return execInsert(ctx, r.s.q, q, insertID(id), project.Name, project.Description,
			project.OwnerID, nullInt64(project.PlatformID), boolInt(project.IsRestricted), now, now)
	})
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt, _ = types.ParseTimestamp(now)
	project.UpdatedAt = project.CreatedAt
	return nil
}

// Update changes name and/or description. Renames never auto-rename; a
// collision fails with ErrNameCollision.
func (r *projectRepo) Update(ctx context.Context, id int64, name, description *string) error {
	if name == nil && description == nil {
		return nil
	}
	if name != nil {
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		taken, err := r.CheckNameExists(ctx, *name, current.PlatformID, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("rename project to %q: %w", *name, storage.ErrNameCollision)
		}
	}

	set := "updated_at = ?"
	args := []any{nowString()}
	if name != nil {
		set += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		set += ", description = ?"
		args = append(args, *description)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.s.binding.Table("projects"), set)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapDBError("update project", err)
	}
	return requireRow(res, "update project", id)
}

// Delete hard-deletes the project and cascades into rows, files and
// folders. Soft delete goes through the trash orchestrator instead.
func (r *projectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	b := r.s.binding
	cascade := []string{
		fmt.Sprintf(`DELETE FROM %s WHERE file_id IN (SELECT id FROM %s WHERE project_id = ?)`,
			b.Table("rows"), b.Table("files")),
		fmt.Sprintf(`DELETE FROM %s WHERE file_id IN (SELECT id FROM %s WHERE project_id = ?)`,
			b.Table("qa_results"), b.Table("files")),
		fmt.Sprintf(`DELETE FROM %s WHERE project_id = ?`, b.Table("files")),
		fmt.Sprintf(`DELETE FROM %s WHERE project_id = ?`, b.Table("folders")),
	}
	for _, q := range cascade {
		if _, err := r.s.q.ExecContext(ctx, q, id); err != nil {
			return false, wrapDBError("delete project contents", err)
		}
	}
	res, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.Table("projects")), id)
	if err != nil {
		return false, wrapDBError("delete project", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *projectRepo) SetRestriction(ctx context.Context, id int64, restricted bool) error {
	q := fmt.Sprintf("UPDATE %s SET is_restricted = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("projects"))
	res, err := r.s.q.ExecContext(ctx, q, boolInt(restricted), nowString(), id)
	if err != nil {
		return wrapDBError("set project restriction", err)
	}
	return requireRow(res, "set project restriction", id)
}

// CheckNameExists compares within the platform namespace; platform-less
// projects form their own namespace.
func (r *projectRepo) CheckNameExists(ctx context.Context, name string, platformID *int64, excludeID int64) (bool, error) {
	where := "name = ? COLLATE NOCASE AND id != ?"
	args := []any{name, excludeID}
	if platformID == nil {
		where += " AND platform_id IS NULL"
	} else {
		where += " AND platform_id = ?"
		args = append(args, *platformID)
	}
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.s.binding.Table("projects"), where)
	if err := r.s.q.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, wrapDBError("check project name", err)
	}
	return n > 0, nil
}

func (r *projectRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.s.binding.Table("projects"))
	if err := r.s.q.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, wrapDBError("count projects", err)
	}
	return n, nil
}

func (r *projectRepo) Search(ctx context.Context, query string) ([]*types.Project, error) {
	pattern := likePattern(query)
	return r.getWhere(ctx, "search projects",
		`name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`, pattern, pattern)
}
