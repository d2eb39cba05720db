package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/testutil/teststore"
	"github.com/lockitd/lockit/internal/types"
)

func ptr[T any](v T) *T { return &v }

// seedSyncedFile creates an offline file that mirrors a server copy, with
// one synced row, and returns both.
func seedSyncedFile(t *testing.T, store storage.Store) (*types.File, *types.Row) {
	t.Helper()
	ctx := context.Background()

	project := &types.Project{Name: "Mirrored", OwnerID: 1}
	require.NoError(t, store.Projects().Create(ctx, project))

	file := &types.File{
		ProjectID: project.ID,
		Name:      "dialog.xlsx",
		Format:    "xlsx",
		ServerID:  ptr[int64](9001),
	}
	require.NoError(t, store.Files().Create(ctx, file))
	require.Equal(t, types.SyncSynced, file.SyncStatus)

	row := &types.Row{
		FileID:     file.ID,
		RowNum:     1,
		Source:     "시작",
		Target:     "Start",
		Status:     types.RowTranslated,
		SyncStatus: types.SyncSynced,
		ServerID:   ptr[int64](70001),
	}
	require.NoError(t, store.Files().AddRows(ctx, file.ID, []*types.Row{row}))
	return file, row
}

func TestJournalRecordsOfflineRowEdits(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()
	_, row := seedSyncedFile(t, store)

	updated, err := store.Rows().Update(ctx, row.ID, types.RowPatch{
		Target:    ptr("Begin"),
		UpdatedBy: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, types.SyncModified, updated.SyncStatus)

	pending, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	change := pending[0]
	assert.Equal(t, "row", change.EntityType)
	assert.Equal(t, row.ID, change.EntityID)
	assert.Equal(t, "target", change.Field)
	assert.Equal(t, "Start", change.OldValue)
	assert.Equal(t, "Begin", change.NewValue)
	assert.Equal(t, types.ChangePending, change.SyncStatus)
}

func TestJournalRecordsOneChangePerField(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()
	_, row := seedSyncedFile(t, store)

	_, err := store.Rows().Update(ctx, row.ID, types.RowPatch{
		Target: ptr("Begin"),
		Memo:   ptr("UI team wants shorter verbs"),
	})
	require.NoError(t, err)

	pending, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	fields := []string{pending[0].Field, pending[1].Field}
	assert.ElementsMatch(t, []string{"target", "memo"}, fields)
}

func TestJournalSkipsLocalOnlyFiles(t *testing.T) {
	store := teststore.NewOffline(t)
	env := &teststore.Env{T: t, Store: store, Ctx: context.Background()}

	project := env.CreateProject("Scratch")
	file := env.CreateFile(project.ID, nil, "notes.xlsx")
	require.Equal(t, types.SyncLocal, file.SyncStatus)
	rows := env.AddRows(file.ID, [2]string{"저장", "Save"})

	_, err := store.Rows().Update(env.Ctx, rows[0].ID, types.RowPatch{Target: ptr("Store")})
	require.NoError(t, err)

	pending, err := store.Journal().PendingChanges(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "edits inside local-only files have no server copy to reconcile")
}

func TestJournalFileRename(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()
	file, _ := seedSyncedFile(t, store)

	require.NoError(t, store.Files().Rename(ctx, file.ID, "dialog_v2.xlsx"))

	got, err := store.Files().Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SyncModified, got.SyncStatus)

	pending, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "file", pending[0].EntityType)
	assert.Equal(t, "name", pending[0].Field)
	assert.Equal(t, "dialog.xlsx", pending[0].OldValue)
	assert.Equal(t, "dialog_v2.xlsx", pending[0].NewValue)
}

func TestMarkChangesDrainsPendingQueue(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()
	_, row := seedSyncedFile(t, store)

	_, err := store.Rows().Update(ctx, row.ID, types.RowPatch{Target: ptr("Begin")})
	require.NoError(t, err)
	_, err = store.Rows().Update(ctx, row.ID, types.RowPatch{Memo: ptr("checked")})
	require.NoError(t, err)

	pending, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	err = store.Journal().MarkChanges(ctx, []int64{pending[0].ID}, types.ChangeSynced)
	require.NoError(t, err)

	left, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, pending[1].ID, left[0].ID)

	err = store.Journal().MarkChanges(ctx, []int64{left[0].ID}, "uploaded")
	require.Error(t, err)

	err = store.Journal().MarkChanges(ctx, []int64{left[0].ID}, types.ChangeDiscarded)
	require.NoError(t, err)
	left, err = store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestOverwriteRowBypassesJournal(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()
	_, row := seedSyncedFile(t, store)

	// Local edit first, so the row is modified with a pending change.
	_, err := store.Rows().Update(ctx, row.ID, types.RowPatch{Target: ptr("Begin")})
	require.NoError(t, err)
	before, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	server := &types.Row{
		StringID: "BTN_START",
		Source:   "시작",
		Target:   "Launch",
		Status:   types.RowReviewed,
	}
	require.NoError(t, store.OverwriteRow(ctx, row.ID, server))

	got, err := store.Rows().Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Target)
	assert.Equal(t, types.RowReviewed, got.Status)
	assert.Equal(t, types.SyncSynced, got.SyncStatus)

	after, err := store.Journal().PendingChanges(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 1, "applying the server copy is not a local edit")
}

func TestSubscribeUpsertsByEntity(t *testing.T) {
	store := teststore.NewOffline(t)
	ctx := context.Background()

	require.NoError(t, store.Journal().Subscribe(ctx, &types.SyncSubscription{
		EntityType: "project", ServerID: 42,
	}))
	require.NoError(t, store.Journal().Subscribe(ctx, &types.SyncSubscription{
		EntityType: "file", ServerID: 42,
	}))
	// Re-downloading the same project refreshes the stamp instead of
	// inserting a duplicate.
	require.NoError(t, store.Journal().Subscribe(ctx, &types.SyncSubscription{
		EntityType: "project", ServerID: 42,
	}))

	subs, err := store.Journal().Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "project", subs[0].EntityType)
	assert.Equal(t, "file", subs[1].EntityType)
	assert.False(t, subs[0].DownloadedAt.IsZero())
}

func TestOfflineStoresAllocateNegativeIDs(t *testing.T) {
	env := teststore.NewOfflineEnv(t)

	project := env.CreateProject("Local Work")
	assert.Negative(t, project.ID)

	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	assert.Negative(t, file.ID)

	rows := env.AddRows(file.ID, [2]string{"확인", "OK"}, [2]string{"취소", "Cancel"})
	for _, row := range rows {
		assert.Negative(t, row.ID)
	}
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestServerStoresAllocatePositiveIDs(t *testing.T) {
	env := teststore.NewEnv(t)

	project := env.CreateProject("Shared Work")
	assert.Positive(t, project.ID)

	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	assert.Positive(t, file.ID)
}
