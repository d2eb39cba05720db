package ops

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/testutil/teststore"
	"github.com/lockitd/lockit/internal/types"
)

func newCoordinator(t *testing.T) (*Coordinator, *teststore.Env, *events.Recorder) {
	t.Helper()
	env := teststore.NewEnv(t)
	rec := &events.Recorder{}
	return New(env.Store, rec, zerolog.Nop()), env, rec
}

func TestSoftDeleteRestoreFile(t *testing.T) {
	c, env, rec := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	env.AddRows(file.ID, [2]string{"시작", "Start"}, [2]string{"종료", "Quit"})

	trashID, err := c.SoftDeleteFile(ctx, file.ID, 1, 0)
	require.NoError(t, err)
	require.NotZero(t, trashID)

	_, err = env.Store.Files().Get(ctx, file.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []events.Kind{events.Started, events.Completed}, rec.Kinds())

	require.NoError(t, c.Restore(ctx, trashID, 1, false))

	restored, err := env.Store.Files().Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "ui.xlsx", restored.Name)
	assert.Equal(t, 2, restored.RowCount)

	rows, err := env.Store.Files().GetRows(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Start", rows[0].Target)
}

func TestRestoreRenamesTopLevelOnCollision(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")

	trashID, err := c.SoftDeleteFile(ctx, file.ID, 1, 0)
	require.NoError(t, err)

	// Same name reappears before the restore.
	env.CreateFile(project.ID, nil, "ui.xlsx")

	require.NoError(t, c.Restore(ctx, trashID, 1, false))
	restored, err := env.Store.Files().Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "ui_1.xlsx", restored.Name)
}

func TestSoftDeleteRestoreProjectRoundTrip(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	folder := env.CreateFolder(project.ID, nil, "dialog")
	sub := env.CreateFolder(project.ID, &folder.ID, "npc")
	rootFile := env.CreateFile(project.ID, nil, "ui.xlsx")
	deepFile := env.CreateFile(project.ID, &sub.ID, "lines.xlsx")
	env.AddRows(deepFile.ID, [2]string{"안녕", "Hi"})

	trashID, err := c.SoftDeleteProject(ctx, project.ID, 1, 0)
	require.NoError(t, err)

	_, err = env.Store.Projects().Get(ctx, project.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.Store.Files().Get(ctx, deepFile.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, c.Restore(ctx, trashID, 1, false))

	// Original IDs all survive the round trip.
	for _, check := range []struct {
		name string
		err  error
	}{
		{"project", func() error { _, err := env.Store.Projects().Get(ctx, project.ID); return err }()},
		{"folder", func() error { _, err := env.Store.Folders().Get(ctx, folder.ID); return err }()},
		{"subfolder", func() error { _, err := env.Store.Folders().Get(ctx, sub.ID); return err }()},
		{"root file", func() error { _, err := env.Store.Files().Get(ctx, rootFile.ID); return err }()},
		{"deep file", func() error { _, err := env.Store.Files().Get(ctx, deepFile.ID); return err }()},
	} {
		assert.NoError(t, check.err, check.name)
	}
	rows, err := env.Store.Files().GetRows(ctx, deepFile.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hi", rows[0].Target)
}

func TestRestoreRequiresDeleterOrAdmin(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	trashID, err := c.SoftDeleteFile(ctx, file.ID, 1, 0)
	require.NoError(t, err)

	err = c.Restore(ctx, trashID, 2, false)
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)

	require.NoError(t, c.Restore(ctx, trashID, 2, true))
}

func TestCleanupTrashNothingExpired(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	_, err := c.SoftDeleteFile(ctx, file.ID, 1, 0)
	require.NoError(t, err)

	removed, err := c.CleanupTrash(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	n, err := env.Store.Trash().CountForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMoveFileCrossProjectVerifiesFolder(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	src := env.CreateProject("Source")
	dst := env.CreateProject("Dest")
	other := env.CreateProject("Other")
	file := env.CreateFile(src.ID, nil, "ui.xlsx")
	strayFolder := env.CreateFolder(other.ID, nil, "misc")

	err := c.MoveFileCrossProject(ctx, file.ID, dst.ID, &strayFolder.ID, 1)
	assert.ErrorIs(t, err, storage.ErrInvalidScope)

	dstFolder := env.CreateFolder(dst.ID, nil, "imported")
	require.NoError(t, c.MoveFileCrossProject(ctx, file.ID, dst.ID, &dstFolder.ID, 1))

	moved, err := env.Store.Files().Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, dst.ID, moved.ProjectID)
	require.NotNil(t, moved.FolderID)
	assert.Equal(t, dstFolder.ID, *moved.FolderID)
}

func TestCopyFolderDuplicatesSubtree(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	folder := env.CreateFolder(project.ID, nil, "dialog")
	file := env.CreateFile(project.ID, &folder.ID, "lines.xlsx")
	env.AddRows(file.ID, [2]string{"안녕", "Hi"}, [2]string{"잘가", "Bye"})

	copied, err := c.CopyFolder(ctx, folder.ID, nil, nil, 1)
	require.NoError(t, err)
	assert.NotEqual(t, folder.ID, copied.ID)

	contents, err := env.Store.Folders().GetWithContents(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)
	assert.NotEqual(t, file.ID, contents.Files[0].ID)
	assert.Equal(t, 2, contents.Files[0].RowCount)

	// Source untouched.
	original, err := env.Store.Files().Get(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, original.RowCount)
}

func TestPretranslateFillsPendingRows(t *testing.T) {
	c, env, rec := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	env.AddRows(file.ID,
		[2]string{"시작", ""},
		[2]string{"종료", ""},
		[2]string{"설정", "Settings"}, // already translated, must not change
	)

	tm := env.CreateTM("Main TM")
	env.AddEntry(tm.ID, "시작", "Start")
	require.NoError(t, env.Store.TMs().Assign(ctx, tm.ID, types.ProjectTarget(project.ID)))
	require.NoError(t, env.Store.TMs().Activate(ctx, tm.ID))

	filled, err := c.Pretranslate(ctx, file.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)

	rows, err := env.Store.Files().GetRows(ctx, file.ID)
	require.NoError(t, err)
	bySource := map[string]*types.Row{}
	for _, r := range rows {
		bySource[r.Source] = r
	}
	assert.Equal(t, "Start", bySource["시작"].Target)
	assert.Equal(t, types.RowTranslated, bySource["시작"].Status)
	assert.Empty(t, bySource["종료"].Target)
	assert.Equal(t, "Settings", bySource["설정"].Target)

	kinds := rec.Kinds()
	assert.Equal(t, events.Started, kinds[0])
	assert.Contains(t, kinds, events.CellUpdated)
	assert.Equal(t, events.Completed, kinds[len(kinds)-1])
}

func TestPretranslateScopeOrder(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	folder := env.CreateFolder(project.ID, nil, "dialog")
	file := env.CreateFile(project.ID, &folder.ID, "lines.xlsx")
	env.AddRows(file.ID, [2]string{"시작", ""})

	projectTM := env.CreateTM("Project TM")
	env.AddEntry(projectTM.ID, "시작", "Begin")
	require.NoError(t, env.Store.TMs().Assign(ctx, projectTM.ID, types.ProjectTarget(project.ID)))
	require.NoError(t, env.Store.TMs().Activate(ctx, projectTM.ID))

	folderTM := env.CreateTM("Folder TM")
	env.AddEntry(folderTM.ID, "시작", "Start")
	require.NoError(t, env.Store.TMs().Assign(ctx, folderTM.ID, types.FolderTarget(folder.ID)))
	require.NoError(t, env.Store.TMs().Activate(ctx, folderTM.ID))

	_, err := c.Pretranslate(ctx, file.ID, 1)
	require.NoError(t, err)

	rows, err := env.Store.Files().GetRows(ctx, file.ID)
	require.NoError(t, err)
	// Folder scope outranks project scope.
	assert.Equal(t, "Start", rows[0].Target)
}

func TestRunQAReplacesFindings(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	rows := env.AddRows(file.ID,
		[2]string{"Gold: %d", "골드"},     // placeholder dropped
		[2]string{"Hello %s", "%s 님"}, // fine
	)

	findings, err := c.RunQA(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, findings)

	flagged, err := env.Store.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged.QAFlagCount)

	// Fix the row and re-run: old findings are replaced, counter drops.
	fixed := "%d 골드"
	_, err = env.Store.Rows().Update(ctx, rows[0].ID, types.RowPatch{Target: &fixed, UpdatedBy: 1})
	require.NoError(t, err)

	findings, err = c.RunQA(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, findings)

	clean, err := env.Store.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Zero(t, clean.QAFlagCount)
}

func TestConfirmRowsAppendsToLinkedTM(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	rows := env.AddRows(file.ID,
		[2]string{"시작", "Start"},
		[2]string{"종료", ""}, // untranslated, skipped
	)

	tm := env.CreateTM("Confirmed TM")
	require.NoError(t, env.Store.TMs().LinkToProject(ctx, tm.ID, project.ID, 1))

	confirmed, err := c.ConfirmRows(ctx, []int64{rows[0].ID, rows[1].ID}, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)

	row, err := env.Store.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.RowApproved, row.Status)

	n, err := env.Store.TMs().CountEntries(ctx, tm.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := env.Store.TMs().SearchExact(ctx, tm.ID, "시작")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Start", entries[0].TargetText)
}

func TestConfirmRowsWithoutLinkedTM(t *testing.T) {
	c, env, _ := newCoordinator(t)
	ctx := context.Background()

	project := env.CreateProject("Game")
	file := env.CreateFile(project.ID, nil, "ui.xlsx")
	rows := env.AddRows(file.ID, [2]string{"시작", "Start"})

	confirmed, err := c.ConfirmRows(ctx, []int64{rows[0].ID}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed)
}
