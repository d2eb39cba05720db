package merge

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/types"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		server string
		want   Winner
	}{
		{"server newer", "2026-08-01T10:00:00.000Z", "2026-08-01T10:00:00.001Z", ServerWins},
		{"local newer", "2026-08-01T10:00:00.001Z", "2026-08-01T10:00:00.000Z", LocalWins},
		{"tie keeps local", "2026-08-01T10:00:00.000Z", "2026-08-01T10:00:00.000Z", LocalWins},
		{"bad server loses", "2026-08-01T10:00:00.000Z", "yesterday", LocalWins},
		{"bad local loses", "not-a-time", "2026-08-01T10:00:00.000Z", ServerWins},
		{"both bad keeps local", "", "garbage", LocalWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.local, tt.server))
		})
	}
}

func TestCompareTimesNormalizes(t *testing.T) {
	// Same instant in different zones must compare equal (local wins).
	loc := time.FixedZone("KST", 9*3600)
	at := time.Date(2026, 8, 1, 19, 0, 0, 0, loc)
	assert.Equal(t, LocalWins, CompareTimes(at, at.UTC()))
}

type fakeWriter struct {
	rows    map[int64]*types.Row
	entries map[int64]*types.TMEntry
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{rows: map[int64]*types.Row{}, entries: map[int64]*types.TMEntry{}}
}

func (f *fakeWriter) OverwriteRow(ctx context.Context, localID int64, server *types.Row) error {
	f.rows[localID] = server
	return nil
}

func (f *fakeWriter) OverwriteEntry(ctx context.Context, localID int64, server *types.TMEntry) error {
	f.entries[localID] = server
	return nil
}

type fakeJournal struct {
	pending []*types.LocalChange
	marked  []int64
	status  types.ChangeStatus
}

func (f *fakeJournal) RecordChange(ctx context.Context, change *types.LocalChange) error {
	f.pending = append(f.pending, change)
	return nil
}

func (f *fakeJournal) PendingChanges(ctx context.Context) ([]*types.LocalChange, error) {
	return f.pending, nil
}

func (f *fakeJournal) MarkChanges(ctx context.Context, ids []int64, status types.ChangeStatus) error {
	f.marked = append(f.marked, ids...)
	f.status = status
	return nil
}

func (f *fakeJournal) Subscribe(ctx context.Context, sub *types.SyncSubscription) error { return nil }

func (f *fakeJournal) Subscriptions(ctx context.Context) ([]*types.SyncSubscription, error) {
	return nil, nil
}

func serverID(id int64) *int64 { return &id }

func TestApplyServerRows(t *testing.T) {
	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	local := []*types.Row{
		{ID: -101, ServerID: serverID(1), Target: "local one", UpdatedAt: older,
			SyncStatus: types.SyncModified},
		{ID: -102, ServerID: serverID(2), Target: "local two", UpdatedAt: newer,
			SyncStatus: types.SyncModified},
	}
	server := []*types.Row{
		{ID: 1, Target: "server one", UpdatedAt: newer},
		{ID: 2, Target: "server two", UpdatedAt: older},
		{ID: 3, Target: "brand new", UpdatedAt: newer},
	}

	w := newFakeWriter()
	j := &fakeJournal{pending: []*types.LocalChange{
		{ID: 7, EntityType: "row", EntityID: -101, Field: "target"},
		{ID: 8, EntityType: "row", EntityID: -102, Field: "target"},
		{ID: 9, EntityType: "file", EntityID: -101, Field: "name"},
	}}
	m := New(w, j, zerolog.Nop())

	res, err := m.ApplyServerRows(context.Background(), local, server)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ServerApplied)
	assert.Equal(t, 1, res.LocalKept)
	assert.Equal(t, 1, res.Unmatched)
	assert.Equal(t, 1, res.Discarded)

	// Row -101 lost and was overwritten; row -102 won and was untouched.
	require.Contains(t, w.rows, int64(-101))
	assert.Equal(t, "server one", w.rows[-101].Target)
	assert.NotContains(t, w.rows, int64(-102))

	// Only the losing row's journal entry is discarded; the file-level
	// entry with the same entity id stays pending.
	assert.Equal(t, []int64{7}, j.marked)
	assert.Equal(t, types.ChangeDiscarded, j.status)
}

func TestApplyServerRowsTieKeepsLocal(t *testing.T) {
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	local := []*types.Row{{ID: -1, ServerID: serverID(5), Target: "mine", UpdatedAt: at}}
	server := []*types.Row{{ID: 5, Target: "theirs", UpdatedAt: at}}

	w := newFakeWriter()
	m := New(w, nil, zerolog.Nop())
	res, err := m.ApplyServerRows(context.Background(), local, server)
	require.NoError(t, err)

	assert.Equal(t, 1, res.LocalKept)
	assert.Zero(t, res.ServerApplied)
	assert.Empty(t, w.rows)
}

func TestApplyServerEntries(t *testing.T) {
	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	local := []*types.TMEntry{
		{ID: -201, SourceText: "Start  Game", StringID: "BTN_START", TargetText: "old", UpdatedAt: older},
		{ID: -202, SourceText: "Quit", TargetText: "keep", UpdatedAt: newer},
	}
	server := []*types.TMEntry{
		// Whitespace differences normalize away in the match key.
		{SourceText: "Start Game", StringID: "BTN_START", TargetText: "fresh", UpdatedAt: newer},
		{SourceText: "Quit", TargetText: "stale", UpdatedAt: older},
		{SourceText: "Options", TargetText: "new", UpdatedAt: newer},
	}

	w := newFakeWriter()
	m := New(w, nil, zerolog.Nop())
	res, err := m.ApplyServerEntries(context.Background(), local, server)
	require.NoError(t, err)

	assert.Equal(t, 1, res.ServerApplied)
	assert.Equal(t, 1, res.LocalKept)
	assert.Equal(t, 1, res.Unmatched)
	require.Contains(t, w.entries, int64(-201))
	assert.Equal(t, "fresh", w.entries[-201].TargetText)
}
