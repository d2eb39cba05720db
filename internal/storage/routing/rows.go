// Package routing dispatches row and file operations between the primary
// backend and the offline embedded backend by ID sign. Positive IDs are
// server-owned, negative IDs are locally allocated; zero never occurs.
// Consumers hold one logical repository and never branch on sign
// themselves.
package routing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Rows routes RowRepository calls by the sign of the relevant ID: the row
// ID for single-row calls, the file ID for file-scoped calls. Mixed-sign
// bulk updates split and fan out to both adapters.
type Rows struct {
	primary storage.RowRepository
	offline storage.RowRepository
}

var _ storage.RowRepository = (*Rows)(nil)

// NewRows wraps a primary and an offline row repository.
func NewRows(primary, offline storage.RowRepository) *Rows {
	return &Rows{primary: primary, offline: offline}
}

func (r *Rows) pick(id int64) storage.RowRepository {
	if id < 0 {
		return r.offline
	}
	return r.primary
}

func (r *Rows) Get(ctx context.Context, id int64) (*types.Row, error) {
	return r.pick(id).Get(ctx, id)
}

func (r *Rows) GetWithFile(ctx context.Context, id int64) (*types.Row, *types.File, error) {
	return r.pick(id).GetWithFile(ctx, id)
}

// Create dispatches by the target file's sign: rows created in a local
// file get local IDs, rows created in a server file get server IDs.
func (r *Rows) Create(ctx context.Context, row *types.Row) error {
	return r.pick(row.FileID).Create(ctx, row)
}

func (r *Rows) Update(ctx context.Context, id int64, patch types.RowPatch) (*types.Row, error) {
	return r.pick(id).Update(ctx, id, patch)
}

func (r *Rows) Delete(ctx context.Context, id int64) (bool, error) {
	return r.pick(id).Delete(ctx, id)
}

// BulkCreate partitions the batch by file sign, preserving order within
// each half, and forwards each non-empty half to its adapter.
func (r *Rows) BulkCreate(ctx context.Context, rows []*types.Row) error {
	var pos, neg []*types.Row
	for _, row := range rows {
		if row.FileID < 0 {
			neg = append(neg, row)
		} else {
			pos = append(pos, row)
		}
	}
	if len(pos) > 0 {
		if err := r.primary.BulkCreate(ctx, pos); err != nil {
			return err
		}
	}
	if len(neg) > 0 {
		return r.offline.BulkCreate(ctx, neg)
	}
	return nil
}

// BulkUpdate partitions the updates by row sign and fans both halves out
// concurrently. The returned count is the sum of the per-backend counts.
func (r *Rows) BulkUpdate(ctx context.Context, updates []types.RowUpdate) (int, error) {
	var pos, neg []types.RowUpdate
	for _, u := range updates {
		if u.ID < 0 {
			neg = append(neg, u)
		} else {
			pos = append(pos, u)
		}
	}
	if len(neg) == 0 {
		return r.primary.BulkUpdate(ctx, pos)
	}
	if len(pos) == 0 {
		return r.offline.BulkUpdate(ctx, neg)
	}

	var posCount, negCount int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.primary.BulkUpdate(gctx, pos)
		posCount = n
		return err
	})
	g.Go(func() error {
		n, err := r.offline.BulkUpdate(gctx, neg)
		negCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return posCount + negCount, nil
}

func (r *Rows) GetForFile(ctx context.Context, fileID int64, q types.RowQuery) ([]*types.Row, error) {
	return r.pick(fileID).GetForFile(ctx, fileID, q)
}

func (r *Rows) CountForFile(ctx context.Context, fileID int64) (int, error) {
	return r.pick(fileID).CountForFile(ctx, fileID)
}

func (r *Rows) AddEditHistory(ctx context.Context, edit *types.RowEdit) error {
	return r.pick(edit.RowID).AddEditHistory(ctx, edit)
}

func (r *Rows) GetEditHistory(ctx context.Context, rowID int64) ([]*types.RowEdit, error) {
	return r.pick(rowID).GetEditHistory(ctx, rowID)
}

// SuggestSimilar routes by the scoping ID. A negative file or project
// scope lands on the offline adapter, which has no similarity support and
// returns an empty slice.
func (r *Rows) SuggestSimilar(ctx context.Context, q types.SimilarQuery) ([]*types.RowMatch, error) {
	if q.FileID != nil && *q.FileID < 0 {
		return r.offline.SuggestSimilar(ctx, q)
	}
	if q.ProjectID != nil && *q.ProjectID < 0 {
		return r.offline.SuggestSimilar(ctx, q)
	}
	return r.primary.SuggestSimilar(ctx, q)
}
