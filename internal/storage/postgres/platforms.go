package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

type platformRepo struct {
	s *session
}

var _ storage.PlatformRepository = (*platformRepo)(nil)

const platformColumns = "id, name, description, owner_id, is_restricted, created_at, updated_at"

func scanPlatform(scan func(dest ...any) error) (*types.Platform, error) {
	var p types.Platform
	var created, updated sql.NullString
	if err := scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.IsRestricted, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = scanTime(created)
	p.UpdatedAt = scanTime(updated)
	return &p, nil
}

func (r *platformRepo) Get(ctx context.Context, id int64) (*types.Platform, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", platformColumns, r.s.binding.Table("platforms"))
	p, err := scanPlatform(r.s.q.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		return nil, wrapDBError("get platform", err)
	}
	return p, nil
}

func (r *platformRepo) GetAll(ctx context.Context) ([]*types.Platform, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY lower(name)", platformColumns, r.s.binding.Table("platforms"))
	return r.queryPlatforms(ctx, "get all platforms", q)
}

func (r *platformRepo) queryPlatforms(ctx context.Context, op, query string, args ...any) ([]*types.Platform, error) {
	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Platform
	for rows.Next() {
		p, err := scanPlatform(rows.Scan)
		if err != nil {
			return nil, wrapDBError(op, err)
		}
		out = append(out, p)
	}
	return out, wrapDBError(op, rows.Err())
}

// Create inserts the platform. Platform names are globally unique and
// never auto-renamed; a collision fails with ErrNameCollision.
func (r *platformRepo) Create(ctx context.Context, platform *types.Platform) error {
	if err := platform.Validate(); err != nil {
		return fmt.Errorf("create platform: %w", err)
	}
	taken, err := r.CheckNameExists(ctx, platform.Name, platform.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("create platform %q: %w", platform.Name, storage.ErrNameCollision)
	}

	now := nowString()
	id, err := r.s.insertRow(ctx, "create platform", "platforms",
		"name, description, owner_id, is_restricted, created_at, updated_at",
		platform.ID,
		platform.Name, platform.Description, platform.OwnerID, platform.IsRestricted, now, now)
	if err != nil {
		return err
	}
	platform.ID = id
	platform.CreatedAt, _ = types.ParseTimestamp(now)
	platform.UpdatedAt = platform.CreatedAt
	return nil
}

func (r *platformRepo) Update(ctx context.Context, id int64, name, description *string) error {
	if name == nil && description == nil {
		return nil
	}
	if name != nil {
		taken, err := r.CheckNameExists(ctx, *name, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("rename platform to %q: %w", *name, storage.ErrNameCollision)
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
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.s.binding.Table("platforms"), set)
	res, err := r.s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapDBError("update platform", err)
	}
	return requireRow(res, "update platform", id)
}

// Delete detaches child projects before removing the platform; it never
// cascades into them.
func (r *platformRepo) Delete(ctx context.Context, id int64) (bool, error) {
	detach := fmt.Sprintf("UPDATE %s SET platform_id = NULL, updated_at = ? WHERE platform_id = ?",
		r.s.binding.Table("projects"))
	if _, err := r.s.q.ExecContext(ctx, detach, nowString(), id); err != nil {
		return false, wrapDBError("detach platform projects", err)
	}
	res, err := r.s.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.s.binding.Table("platforms")), id)
	if err != nil {
		return false, wrapDBError("delete platform", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *platformRepo) GetWithProjectCount(ctx context.Context) ([]*types.Platform, error) {
	q := fmt.Sprintf(`SELECT %s, COUNT(pr.id)
		FROM %s p LEFT JOIN %s pr ON pr.platform_id = p.id
		GROUP BY p.id ORDER BY lower(p.name)`,
		prefixColumns("p", platformColumns),
		r.s.binding.Table("platforms"), r.s.binding.Table("projects"))
	rows, err := r.s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapDBError("get platforms with project count", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Platform
	for rows.Next() {
		var p types.Platform
		var created, updated sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.IsRestricted,
			&created, &updated, &p.ProjectCount); err != nil {
			return nil, wrapDBError("get platforms with project count", err)
		}
		p.CreatedAt = scanTime(created)
		p.UpdatedAt = scanTime(updated)
		out = append(out, &p)
	}
	return out, wrapDBError("get platforms with project count", rows.Err())
}

func (r *platformRepo) SetRestriction(ctx context.Context, id int64, restricted bool) error {
	q := fmt.Sprintf("UPDATE %s SET is_restricted = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("platforms"))
	res, err := r.s.q.ExecContext(ctx, q, restricted, nowString(), id)
	if err != nil {
		return wrapDBError("set platform restriction", err)
	}
	return requireRow(res, "set platform restriction", id)
}

// AssignProject attaches or, with a nil platformID, detaches a project.
func (r *platformRepo) AssignProject(ctx context.Context, projectID int64, platformID *int64) error {
	if platformID != nil {
		var exists int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", r.s.binding.Table("platforms"))
		if err := r.s.q.QueryRowContext(ctx, q, *platformID).Scan(&exists); err != nil {
			return wrapDBError("assign project", err)
		}
		if exists == 0 {
			return fmt.Errorf("assign project: platform %d: %w", *platformID, storage.ErrNotFound)
		}
	}
	q := fmt.Sprintf("UPDATE %s SET platform_id = ?, updated_at = ? WHERE id = ?",
		r.s.binding.Table("projects"))
	res, err := r.s.q.ExecContext(ctx, q, nullInt64(platformID), nowString(), projectID)
	if err != nil {
		return wrapDBError("assign project", err)
	}
	return requireRow(res, "assign project", projectID)
}

func (r *platformRepo) CheckNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE lower(name) = lower(?) AND id != ?",
		r.s.binding.Table("platforms"))
	var n int
	if err := r.s.q.QueryRowContext(ctx, q, name, excludeID).Scan(&n); err != nil {
		return false, wrapDBError("check platform name", err)
	}
	return n > 0, nil
}

func (r *platformRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.s.binding.Table("platforms"))
	if err := r.s.q.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, wrapDBError("count platforms", err)
	}
	return n, nil
}

func (r *platformRepo) GetProjects(ctx context.Context, platformID int64) ([]*types.Project, error) {
	return (&projectRepo{r.s}).getWhere(ctx, "get platform projects",
		"platform_id = ?", platformID)
}

func (r *platformRepo) Search(ctx context.Context, query string) ([]*types.Platform, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
		WHERE name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\'
		ORDER BY lower(name)`, platformColumns, r.s.binding.Table("platforms"))
	pattern := likePattern(query)
	return r.queryPlatforms(ctx, "search platforms", q, pattern, pattern)
}
