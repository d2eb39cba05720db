package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// capabilityRepo serves server-mode embedded deployments, where grants
// live locally. Offline sessions use offlineCapabilityRepo instead.
type capabilityRepo struct {
	s *session
}

var _ storage.CapabilityRepository = (*capabilityRepo)(nil)

func (r *capabilityRepo) Has(ctx context.Context, userID int64, name types.CapabilityName) (bool, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s
		WHERE user_id = ? AND capability_name = ? AND (expires_at IS NULL OR expires_at > ?)`,
		r.s.binding.Table("capabilities"))
	var n int
	if err := r.s.q.QueryRowContext(ctx, q, userID, string(name), nowString()).Scan(&n); err != nil {
		return false, wrapDBError("check capability", err)
	}
	return n > 0, nil
}

func (r *capabilityRepo) GetForUser(ctx context.Context, userID int64) ([]*types.Capability, error) {
	q := fmt.Sprintf(`SELECT id, user_id, capability_name, granted_by, granted_at, expires_at
		FROM %s WHERE user_id = ? ORDER BY capability_name`, r.s.binding.Table("capabilities"))
	rows, err := r.s.q.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, wrapDBError("get capabilities", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Capability
	for rows.Next() {
		var c types.Capability
		var name string
		var granted, expires sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &name, &c.GrantedBy, &granted, &expires); err != nil {
			return nil, wrapDBError("get capabilities", err)
		}
		c.Name = types.CapabilityName(name)
		c.GrantedAt = scanTime(granted)
		c.ExpiresAt = scanTimePtr(expires)
		out = append(out, &c)
	}
	return out, wrapDBError("get capabilities", rows.Err())
}

// Grant upserts the grant, refreshing grantor and expiry on duplicates.
func (r *capabilityRepo) Grant(ctx context.Context, grant *types.Capability) error {
	if !grant.Name.IsValid() {
		return fmt.Errorf("grant capability: invalid name %q", grant.Name)
	}
	now := time.Now()
	grant.GrantedAt = now
	q := fmt.Sprintf(`INSERT INTO %s (user_id, capability_name, granted_by, granted_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, capability_name) DO UPDATE SET
			granted_by = excluded.granted_by,
			granted_at = excluded.granted_at,
			expires_at = excluded.expires_at`, r.s.binding.Table("capabilities"))
	if _, err := r.s.q.ExecContext(ctx, q, grant.UserID, string(grant.Name), grant.GrantedBy,
		types.FormatTimestamp(now), nullTimeString(grant.ExpiresAt)); err != nil {
		return wrapDBError("grant capability", err)
	}
	return nil
}

func (r *capabilityRepo) Revoke(ctx context.Context, userID int64, name types.CapabilityName) (bool, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND capability_name = ?",
		r.s.binding.Table("capabilities"))
	res, err := r.s.q.ExecContext(ctx, q, userID, string(name))
	if err != nil {
		return false, wrapDBError("revoke capability", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// offlineCapabilityRepo is the offline degradation: reads are empty,
// writes require the online backend.
type offlineCapabilityRepo struct{}

var _ storage.CapabilityRepository = offlineCapabilityRepo{}

func (offlineCapabilityRepo) Has(ctx context.Context, userID int64, name types.CapabilityName) (bool, error) {
	return false, nil
}

func (offlineCapabilityRepo) GetForUser(ctx context.Context, userID int64) ([]*types.Capability, error) {
	return []*types.Capability{}, nil
}

func (offlineCapabilityRepo) Grant(ctx context.Context, grant *types.Capability) error {
	return fmt.Errorf("grant capability: %w", storage.ErrRequiresOnline)
}

func (offlineCapabilityRepo) Revoke(ctx context.Context, userID int64, name types.CapabilityName) (bool, error) {
	return false, fmt.Errorf("revoke capability: %w", storage.ErrRequiresOnline)
}
