package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// stubRows records which IDs each call saw and returns canned results, so
// tests can assert on dispatch without a real backend.
type stubRows struct {
	storage.RowRepository

	gotIDs     []int64
	bulkBatch  []types.RowUpdate
	similar    []*types.RowMatch
	similarHit bool
}

func (s *stubRows) Get(ctx context.Context, id int64) (*types.Row, error) {
	s.gotIDs = append(s.gotIDs, id)
	return &types.Row{ID: id}, nil
}

func (s *stubRows) Create(ctx context.Context, row *types.Row) error {
	s.gotIDs = append(s.gotIDs, row.FileID)
	return nil
}

func (s *stubRows) BulkCreate(ctx context.Context, rows []*types.Row) error {
	for _, r := range rows {
		s.gotIDs = append(s.gotIDs, r.FileID)
	}
	return nil
}

func (s *stubRows) BulkUpdate(ctx context.Context, updates []types.RowUpdate) (int, error) {
	s.bulkBatch = updates
	return len(updates), nil
}

func (s *stubRows) GetForFile(ctx context.Context, fileID int64, q types.RowQuery) ([]*types.Row, error) {
	s.gotIDs = append(s.gotIDs, fileID)
	return nil, nil
}

func (s *stubRows) SuggestSimilar(ctx context.Context, q types.SimilarQuery) ([]*types.RowMatch, error) {
	s.similarHit = true
	return s.similar, nil
}

func TestRowsDispatchBySign(t *testing.T) {
	primary := &stubRows{}
	offline := &stubRows{}
	r := NewRows(primary, offline)
	ctx := context.Background()

	_, err := r.Get(ctx, 42)
	require.NoError(t, err)
	_, err = r.Get(ctx, -7)
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, primary.gotIDs)
	assert.Equal(t, []int64{-7}, offline.gotIDs)
}

func TestRowsCreateDispatchesByFile(t *testing.T) {
	primary := &stubRows{}
	offline := &stubRows{}
	r := NewRows(primary, offline)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, &types.Row{FileID: 3}))
	require.NoError(t, r.Create(ctx, &types.Row{FileID: -3}))

	assert.Equal(t, []int64{3}, primary.gotIDs)
	assert.Equal(t, []int64{-3}, offline.gotIDs)
}

func TestRowsBulkCreatePartitionsByFile(t *testing.T) {
	primary := &stubRows{}
	offline := &stubRows{}
	r := NewRows(primary, offline)

	rows := []*types.Row{
		{FileID: 1}, {FileID: -2}, {FileID: 1}, {FileID: -9},
	}
	require.NoError(t, r.BulkCreate(context.Background(), rows))

	assert.Equal(t, []int64{1, 1}, primary.gotIDs)
	assert.Equal(t, []int64{-2, -9}, offline.gotIDs)
}

func TestRowsBulkUpdateSumsCounts(t *testing.T) {
	primary := &stubRows{}
	offline := &stubRows{}
	r := NewRows(primary, offline)

	updates := []types.RowUpdate{
		{ID: 10}, {ID: -11}, {ID: 12}, {ID: -13}, {ID: 14},
	}
	n, err := r.BulkUpdate(context.Background(), updates)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// No cross-contamination between the halves.
	for _, u := range primary.bulkBatch {
		assert.Positive(t, u.ID)
	}
	for _, u := range offline.bulkBatch {
		assert.Negative(t, u.ID)
	}
	assert.Len(t, primary.bulkBatch, 3)
	assert.Len(t, offline.bulkBatch, 2)
}

func TestRowsBulkUpdateSingleSignSkipsFanOut(t *testing.T) {
	primary := &stubRows{}
	offline := &stubRows{}
	r := NewRows(primary, offline)

	n, err := r.BulkUpdate(context.Background(), []types.RowUpdate{{ID: -1}, {ID: -2}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Nil(t, primary.bulkBatch)
}

func TestRowsSuggestSimilarNegativeScope(t *testing.T) {
	primary := &stubRows{similar: []*types.RowMatch{{Similarity: 0.9}}}
	offline := &stubRows{similar: []*types.RowMatch{}}
	r := NewRows(primary, offline)
	ctx := context.Background()

	fileID := int64(-4)
	got, err := r.SuggestSimilar(ctx, types.SimilarQuery{Source: "hello", FileID: &fileID})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, offline.similarHit)
	assert.False(t, primary.similarHit)

	fileID = 4
	got, err = r.SuggestSimilar(ctx, types.SimilarQuery{Source: "hello", FileID: &fileID})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, primary.similarHit)
}

type stubFiles struct {
	storage.FileRepository

	gotIDs []int64
}

func (s *stubFiles) Get(ctx context.Context, id int64) (*types.File, error) {
	s.gotIDs = append(s.gotIDs, id)
	return &types.File{ID: id}, nil
}

func (s *stubFiles) Create(ctx context.Context, file *types.File) error {
	s.gotIDs = append(s.gotIDs, file.ProjectID)
	return nil
}

func (s *stubFiles) GetForProject(ctx context.Context, projectID int64, folderID *int64) ([]*types.File, error) {
	s.gotIDs = append(s.gotIDs, projectID)
	return nil, nil
}

func (s *stubFiles) AddRows(ctx context.Context, fileID int64, rows []*types.Row) error {
	s.gotIDs = append(s.gotIDs, fileID)
	return nil
}

func TestFilesDispatchBySign(t *testing.T) {
	primary := &stubFiles{}
	offline := &stubFiles{}
	f := NewFiles(primary, offline)
	ctx := context.Background()

	_, err := f.Get(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, f.AddRows(ctx, -5, nil))
	require.NoError(t, f.Create(ctx, &types.File{ProjectID: -1}))
	_, err = f.GetForProject(ctx, 8, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 8}, primary.gotIDs)
	assert.Equal(t, []int64{-5, -1}, offline.gotIDs)
}
