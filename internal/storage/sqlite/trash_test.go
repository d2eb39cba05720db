package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/testutil/teststore"
	"github.com/lockitd/lockit/internal/types"
)

// TestCleanupExpiredRemovesOnlyExpired backdates one of two entries past
// its expiry and checks cleanup removes exactly that one.
func TestCleanupExpiredRemovesOnlyExpired(t *testing.T) {
	store := teststore.New(t)
	ctx := context.Background()

	old := &types.TrashEntry{
		ItemType: types.TrashFile,
		ItemID:   101,
		ItemName: "old.xlsx",
		ItemData: []byte(`{}`),
	}
	require.NoError(t, store.Trash().Create(ctx, old, 30))
	fresh := &types.TrashEntry{
		ItemType: types.TrashFile,
		ItemID:   102,
		ItemName: "fresh.xlsx",
		ItemData: []byte(`{}`),
	}
	require.NoError(t, store.Trash().Create(ctx, fresh, 30))

	backdate(t, store.Path(), old.ID, -31*24*time.Hour)

	expired, err := store.Trash().GetExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	n, err := store.Trash().CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Trash().Get(ctx, old.ID)
	require.Error(t, err)
	left, err := store.Trash().Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TrashTrashed, left.Status)
}

// TestCleanupExpiredSkipsRestored makes sure an expired entry that was
// already restored is left alone.
func TestCleanupExpiredSkipsRestored(t *testing.T) {
	store := teststore.New(t)
	ctx := context.Background()

	entry := &types.TrashEntry{
		ItemType:  types.TrashFile,
		ItemID:    103,
		ItemName:  "restored.xlsx",
		ItemData:  []byte(`{}`),
		DeletedBy: 1,
	}
	require.NoError(t, store.Trash().Create(ctx, entry, 30))
	_, err := store.Trash().Restore(ctx, entry.ID, 1, false)
	require.NoError(t, err)

	backdate(t, store.Path(), entry.ID, -31*24*time.Hour)

	n, err := store.Trash().CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// backdate shifts an entry's window by delta through a second connection,
// standing in for time passing.
func backdate(t *testing.T, dbPath string, trashID int64, delta time.Duration) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	deletedAt := time.Now().Add(delta)
	expiresAt := deletedAt.Add(time.Duration(types.DefaultTrashRetentionDays) * 24 * time.Hour)
	_, err = db.Exec("UPDATE ldm_trash SET deleted_at = ?, expires_at = ? WHERE id = ?",
		types.FormatTimestamp(deletedAt), types.FormatTimestamp(expiresAt), trashID)
	require.NoError(t, err)
}
