package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/routing"
	"github.com/lockitd/lockit/internal/types"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	dir := t.TempDir()
	f, err := Open(context.Background(), Config{
		Backend:      BackendSQLite,
		ServerDBPath: filepath.Join(dir, "server.db"),
		OfflinePath:  filepath.Join(dir, "offline.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "dolt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestTokenClassification(t *testing.T) {
	f := newTestFactory(t)

	assert.True(t, f.IsOfflineToken("offline:abc123"))
	assert.False(t, f.IsOfflineToken("bearer abc123"))
	assert.False(t, f.IsOfflineToken(""))

	custom := &Factory{cfg: Config{TokenPrefix: "local|"}}
	assert.True(t, custom.IsOfflineToken("local|xyz"))
	assert.False(t, custom.IsOfflineToken("offline:xyz"))
}

func TestOfflineSingleton(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	first, err := f.Offline(ctx)
	require.NoError(t, err)
	second, err := f.Offline(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, storage.ModeOffline, first.Mode())
}

func TestSessionWiring(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	online, err := f.Session(ctx, "bearer tok")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeServer, online.Mode())
	// Online sessions carry the ID-sign router on rows and files.
	assert.IsType(t, &routing.Rows{}, online.Rows())
	assert.IsType(t, &routing.Files{}, online.Files())

	offline, err := f.Session(ctx, "offline:tok")
	require.NoError(t, err)
	assert.Equal(t, storage.ModeOffline, offline.Mode())
	assert.IsNotType(t, &routing.Rows{}, offline.Rows())
	assert.IsNotType(t, &routing.Files{}, offline.Files())
}

func TestSessionOfflineSeesOfflineStorage(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	sess, err := f.Session(ctx, "offline:tok")
	require.NoError(t, err)

	platform, err := sess.Platforms().Get(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, "Offline Storage", platform.Name)
}

// seedSessionFile creates one pending-row file through the given session
// and returns the row IDs.
func seedSessionFile(t *testing.T, sess *Session, name string, sources ...string) []int64 {
	t.Helper()
	ctx := context.Background()

	project := &types.Project{Name: name, OwnerID: 1}
	require.NoError(t, sess.Projects().Create(ctx, project))
	file := &types.File{ProjectID: project.ID, Name: name + ".xlsx", Format: "xlsx"}
	require.NoError(t, sess.Files().Create(ctx, file))

	rows := make([]*types.Row, len(sources))
	for i, src := range sources {
		rows[i] = &types.Row{FileID: file.ID, RowNum: i + 1, Source: src}
	}
	require.NoError(t, sess.Files().AddRows(ctx, file.ID, rows))

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

// TestBulkUpdateSpansBackends drives a mixed-sign batch through an online
// session: server rows update on the primary store, locally allocated
// rows on the offline store, and the returned count sums both halves.
func TestBulkUpdateSpansBackends(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	online, err := f.Session(ctx, "bearer tok")
	require.NoError(t, err)
	offline, err := f.Session(ctx, "offline:tok")
	require.NoError(t, err)

	serverIDs := seedSessionFile(t, online, "Server Strings", "시작", "종료")
	localIDs := seedSessionFile(t, offline, "Local Strings", "저장", "취소")
	require.Positive(t, serverIDs[0])
	require.Negative(t, localIDs[0])

	translated := types.RowTranslated
	reviewed := types.RowReviewed
	target := "x"
	n, err := online.Rows().BulkUpdate(ctx, []types.RowUpdate{
		{ID: serverIDs[0], RowPatch: types.RowPatch{Status: &translated}},
		{ID: localIDs[0], RowPatch: types.RowPatch{Target: &target}},
		{ID: serverIDs[1], RowPatch: types.RowPatch{Status: &translated}},
		{ID: localIDs[1], RowPatch: types.RowPatch{Status: &reviewed}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// The online session reads the local row back through the router.
	localRow, err := online.Rows().Get(ctx, localIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "x", localRow.Target)
	assert.Equal(t, types.RowTranslated, localRow.Status, "target set on a pending row auto-advances")

	serverRow, err := online.Rows().Get(ctx, serverIDs[0])
	require.NoError(t, err)
	assert.Equal(t, types.RowTranslated, serverRow.Status)

	otherLocal, err := offline.Rows().Get(ctx, localIDs[1])
	require.NoError(t, err)
	assert.Equal(t, types.RowReviewed, otherLocal.Status)
}
