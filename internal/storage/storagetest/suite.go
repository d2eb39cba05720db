// Package storagetest runs one behavioral contract suite against any
// storage backend. Both adapters must pass it unchanged; the few
// declared divergences (offline similarity, offline capabilities) key
// off the store's mode.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Store

// Run exercises the full repository contract against stores produced by
// open. Every subtest gets its own store.
func Run(t *testing.T, open Factory) {
	t.Run("Platforms", func(t *testing.T) { testPlatforms(t, open(t)) })
	t.Run("Projects", func(t *testing.T) { testProjects(t, open(t)) })
	t.Run("Folders", func(t *testing.T) { testFolders(t, open(t)) })
	t.Run("Files", func(t *testing.T) { testFiles(t, open(t)) })
	t.Run("Rows", func(t *testing.T) { testRows(t, open(t)) })
	t.Run("TMAssignment", func(t *testing.T) { testTMAssignment(t, open(t)) })
	t.Run("TMEntries", func(t *testing.T) { testTMEntries(t, open(t)) })
	t.Run("QAResults", func(t *testing.T) { testQAResults(t, open(t)) })
	t.Run("Trash", func(t *testing.T) { testTrash(t, open(t)) })
	t.Run("Capabilities", func(t *testing.T) { testCapabilities(t, open(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, open(t)) })
}

func mkProject(t *testing.T, s storage.Store, name string) *types.Project {
	t.Helper()
	p := &types.Project{Name: name, OwnerID: 1}
	require.NoError(t, s.Projects().Create(context.Background(), p))
	return p
}

func mkFile(t *testing.T, s storage.Store, projectID int64, folderID *int64, name string) *types.File {
	t.Helper()
	f := &types.File{ProjectID: projectID, FolderID: folderID, Name: name, Format: "xlsx"}
	require.NoError(t, s.Files().Create(context.Background(), f))
	return f
}

func mkRows(t *testing.T, s storage.Store, fileID int64, pairs ...[2]string) []*types.Row {
	t.Helper()
	rows := make([]*types.Row, len(pairs))
	for i, p := range pairs {
		rows[i] = &types.Row{FileID: fileID, RowNum: i + 1, Source: p[0], Target: p[1]}
	}
	require.NoError(t, s.Files().AddRows(context.Background(), fileID, rows))
	return rows
}

func mkTM(t *testing.T, s storage.Store, name string) *types.TM {
	t.Helper()
	tm := &types.TM{Name: name, OwnerID: 1, SourceLang: "ko", TargetLang: "en"}
	require.NoError(t, s.TMs().Create(context.Background(), tm))
	return tm
}

func testPlatforms(t *testing.T, s storage.Store) {
	ctx := context.Background()

	p := &types.Platform{Name: "Steam", OwnerID: 1}
	require.NoError(t, s.Platforms().Create(ctx, p))
	require.NotZero(t, p.ID)

	got, err := s.Platforms().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Steam", got.Name)

	// Platform names never auto-rename; collisions are case-insensitive.
	err = s.Platforms().Create(ctx, &types.Platform{Name: "steam", OwnerID: 1})
	assert.ErrorIs(t, err, storage.ErrNameCollision)

	name := "Console"
	require.NoError(t, s.Platforms().Update(ctx, p.ID, &name, nil))
	got, err = s.Platforms().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Console", got.Name)

	// Delete detaches projects instead of cascading.
	project := mkProject(t, s, "Attached")
	require.NoError(t, s.Platforms().AssignProject(ctx, project.ID, &p.ID))
	deleted, err := s.Platforms().Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	survivor, err := s.Projects().Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Nil(t, survivor.PlatformID)

	// Idempotent delete.
	deleted, err = s.Platforms().Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testProjects(t *testing.T, s storage.Store) {
	ctx := context.Background()

	first := mkProject(t, s, "Game")
	second := mkProject(t, s, "Game")
	assert.Equal(t, "Game", first.Name)
	assert.Equal(t, "Game_1", second.Name) // create auto-renames

	// Update never auto-renames.
	name := "Game"
	err := s.Projects().Update(ctx, second.ID, &name, nil)
	assert.ErrorIs(t, err, storage.ErrNameCollision)

	exists, err := s.Projects().CheckNameExists(ctx, "game", nil, 0)
	require.NoError(t, err)
	assert.True(t, exists)

	file := mkFile(t, s, first.ID, nil, "ui.xlsx")
	mkRows(t, s, file.ID, [2]string{"a", "b"})

	deleted, err := s.Projects().Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.Files().Get(ctx, file.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testFolders(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")

	root := &types.Folder{ProjectID: project.ID, Name: "dialog"}
	require.NoError(t, s.Folders().Create(ctx, root))
	child := &types.Folder{ProjectID: project.ID, ParentID: &root.ID, Name: "npc"}
	require.NoError(t, s.Folders().Create(ctx, child))

	// Sibling rename collisions fail instead of auto-renaming.
	other := &types.Folder{ProjectID: project.ID, Name: "ui"}
	require.NoError(t, s.Folders().Create(ctx, other))
	err := s.Folders().Rename(ctx, other.ID, "Dialog")
	assert.ErrorIs(t, err, storage.ErrNameCollision)

	// A folder cannot move under its own descendant.
	err = s.Folders().Move(ctx, root.ID, &child.ID)
	assert.ErrorIs(t, err, storage.ErrCycle)

	isDesc, err := s.Folders().IsDescendant(ctx, root.ID, child.ID)
	require.NoError(t, err)
	assert.True(t, isDesc)
	isDesc, err = s.Folders().IsDescendant(ctx, child.ID, root.ID)
	require.NoError(t, err)
	assert.False(t, isDesc)

	require.NoError(t, s.Folders().Move(ctx, other.ID, &child.ID))
	contents, err := s.Folders().GetWithContents(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, contents.Subfolders, 1)
	assert.Equal(t, other.ID, contents.Subfolders[0].ID)
}

func testFiles(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")

	first := mkFile(t, s, project.ID, nil, "ui.xlsx")
	second := mkFile(t, s, project.ID, nil, "ui.xlsx")
	assert.Equal(t, "ui.xlsx", first.Name)
	assert.Equal(t, "ui_1.xlsx", second.Name) // extension survives the suffix

	mkRows(t, s, first.ID, [2]string{"하나", "one"}, [2]string{"둘", "two"}, [2]string{"셋", ""})
	got, err := s.Files().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.RowCount)

	exported, err := s.Files().GetRowsForExport(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, exported, 3)
	for i, row := range exported {
		assert.Equal(t, i+1, row.RowNum)
	}

	// Copy duplicates rows under fresh IDs; move never copies rows.
	copied, err := s.Files().Copy(ctx, first.ID, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, copied.ID)
	assert.Equal(t, 3, copied.RowCount)
	copiedRows, err := s.Files().GetRows(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, copiedRows, 3)
	assert.NotEqual(t, exported[0].ID, copiedRows[0].ID)

	folder := &types.Folder{ProjectID: project.ID, Name: "moved"}
	require.NoError(t, s.Folders().Create(ctx, folder))
	require.NoError(t, s.Files().Move(ctx, first.ID, &folder.ID))
	got, err = s.Files().Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, folder.ID, *got.FolderID)
	assert.Equal(t, 3, got.RowCount)
}

func testRows(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")
	file := mkFile(t, s, project.ID, nil, "ui.xlsx")
	rows := mkRows(t, s, file.ID, [2]string{"시작", ""}, [2]string{"종료", ""})

	// Setting a target on a pending row auto-advances the status.
	target := "Start"
	updated, err := s.Rows().Update(ctx, rows[0].ID, types.RowPatch{Target: &target, UpdatedBy: 1})
	require.NoError(t, err)
	assert.Equal(t, types.RowTranslated, updated.Status)

	// An explicit status in the same patch wins over the auto-advance.
	target2 := "Quit"
	reviewed := types.RowReviewed
	updated, err = s.Rows().Update(ctx, rows[1].ID, types.RowPatch{Target: &target2, Status: &reviewed, UpdatedBy: 1})
	require.NoError(t, err)
	assert.Equal(t, types.RowReviewed, updated.Status)

	// BulkUpdate reports rows whose values actually changed.
	same := "Start"
	memo := "check tone"
	changed, err := s.Rows().BulkUpdate(ctx, []types.RowUpdate{
		{ID: rows[0].ID, RowPatch: types.RowPatch{Target: &same, UpdatedBy: 1}}, // no-op
		{ID: rows[1].ID, RowPatch: types.RowPatch{Memo: &memo, UpdatedBy: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.NoError(t, s.Rows().AddEditHistory(ctx, &types.RowEdit{
		RowID: rows[0].ID, Field: "target", OldValue: "", NewValue: "Start", EditedBy: 1,
	}))
	history, err := s.Rows().GetEditHistory(ctx, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "target", history[0].Field)

	pending := types.RowPending
	filtered, err := s.Rows().GetForFile(ctx, file.ID, types.RowQuery{Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	n, err := s.Rows().CountForFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Declared divergence: similarity is online-only.
	matches, err := s.Rows().SuggestSimilar(ctx, types.SimilarQuery{Source: "시작", MaxResults: 5})
	require.NoError(t, err)
	if s.Mode() == storage.ModeOffline {
		assert.Empty(t, matches)
	}
}

func testTMAssignment(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")
	folder := &types.Folder{ProjectID: project.ID, Name: "dialog"}
	require.NoError(t, s.Folders().Create(ctx, folder))
	file := mkFile(t, s, project.ID, &folder.ID, "lines.xlsx")

	tm := mkTM(t, s, "Main")

	// Activation requires a scope.
	err := s.TMs().Activate(ctx, tm.ID)
	assert.ErrorIs(t, err, storage.ErrInvalidScope)

	// At most one scope may be set.
	pid, fid := project.ID, folder.ID
	err = s.TMs().Assign(ctx, tm.ID, types.TMTarget{ProjectID: &pid, FolderID: &fid})
	assert.ErrorIs(t, err, storage.ErrInvalidScope)

	require.NoError(t, s.TMs().Assign(ctx, tm.ID, types.ProjectTarget(project.ID)))
	require.NoError(t, s.TMs().Activate(ctx, tm.ID))

	assignment, err := s.TMs().GetAssignment(ctx, tm.ID)
	require.NoError(t, err)
	assert.True(t, assignment.IsActive)

	folderTM := mkTM(t, s, "Dialog overrides")
	require.NoError(t, s.TMs().Assign(ctx, folderTM.ID, types.FolderTarget(folder.ID)))
	require.NoError(t, s.TMs().Activate(ctx, folderTM.ID))

	inactive := mkTM(t, s, "Dormant")
	require.NoError(t, s.TMs().Assign(ctx, inactive.ID, types.ProjectTarget(project.ID)))

	// Folder scope precedes project scope; inactive TMs are excluded.
	scoped, err := s.TMs().GetActiveForFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, folderTM.ID, scoped[0].ID)
	assert.Equal(t, types.ScopeFolder, scoped[0].Scope)
	assert.Equal(t, tm.ID, scoped[1].ID)
	assert.Equal(t, types.ScopeProject, scoped[1].Scope)

	// Project links upsert, updating priority only.
	require.NoError(t, s.TMs().LinkToProject(ctx, tm.ID, project.ID, 5))
	require.NoError(t, s.TMs().LinkToProject(ctx, folderTM.ID, project.ID, 2))
	require.NoError(t, s.TMs().LinkToProject(ctx, tm.ID, project.ID, 1))
	linked, err := s.TMs().GetLinkedForProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, tm.ID, linked.ID)
	all, err := s.TMs().GetAllLinkedForProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func testTMEntries(t *testing.T, s storage.Store) {
	ctx := context.Background()

	standard := mkTM(t, s, "Standard")
	// Standard mode keeps one target per source; the most frequent wins.
	added, err := s.TMs().AddEntriesBulk(ctx, standard.ID, []types.EntryInput{
		{Source: "시작", Target: "Start"},
		{Source: "시작", Target: "Begin"},
		{Source: "시작", Target: "Start"},
		{Source: "종료", Target: "Quit"},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	entries, err := s.TMs().SearchExact(ctx, standard.ID, "시작")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Start", entries[0].TargetText)

	// Exact lookup normalizes whitespace before hashing.
	entries, err = s.TMs().SearchExact(ctx, standard.ID, "  시작  ")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// StringID mode keeps every (source, string_id) pair.
	stringID := &types.TM{Name: "PerKey", OwnerID: 1, SourceLang: "ko", TargetLang: "en", Mode: types.TMStringID}
	require.NoError(t, s.TMs().Create(ctx, stringID))
	added, err = s.TMs().AddEntriesBulk(ctx, stringID.ID, []types.EntryInput{
		{Source: "확인", Target: "OK", StringID: "btn_ok"},
		{Source: "확인", Target: "Confirm", StringID: "dlg_confirm"},
		{Source: "확인", Target: "OK", StringID: "btn_ok"},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Substring search scores 80, exact 100; ordering below 100 is not
	// meaningful.
	matches, err := s.TMs().SearchEntries(ctx, standard.ID, "시작", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, 100.0, matches[0].Score)

	n, err := s.TMs().CountEntries(ctx, standard.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := s.TMs().Get(ctx, standard.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EntryCount)

	// Confirmed entries become glossary terms.
	all, err := s.TMs().GetAllEntries(ctx, standard.ID)
	require.NoError(t, err)
	require.NoError(t, s.TMs().ConfirmEntry(ctx, all[0].ID, 1))
	terms, err := s.TMs().GetGlossaryTerms(ctx, []int64{standard.ID}, 64, 100)
	require.NoError(t, err)
	require.Len(t, terms, 1)

	// Declared divergence: trigram similarity is online-only.
	similar, err := s.TMs().SearchSimilar(ctx, standard.ID, "시작하기", 0.3, 5)
	require.NoError(t, err)
	if s.Mode() == storage.ModeOffline {
		assert.Empty(t, similar)
	}

	// Delete removes entries, assignments and links with the TM.
	deleted, err := s.TMs().Delete(ctx, standard.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.TMs().Get(ctx, standard.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testQAResults(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")
	file := mkFile(t, s, project.ID, nil, "ui.xlsx")
	rows := mkRows(t, s, file.ID, [2]string{"%d", "골드"}, [2]string{"%s", "님"})

	mk := func(rowID int64, check types.QACheckType) *types.QAResult {
		return &types.QAResult{
			RowID: rowID, FileID: file.ID, CheckType: check,
			Severity: types.QAError, Message: "placeholder dropped",
		}
	}

	// Every mutation keeps qa_flag_count equal to the unresolved count.
	require.NoError(t, s.QAResults().Create(ctx, mk(rows[0].ID, types.QAPattern)))
	require.NoError(t, s.QAResults().BulkCreate(ctx, []*types.QAResult{
		mk(rows[0].ID, types.QALine), mk(rows[1].ID, types.QAPattern),
	}))

	flagged, err := s.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged.QAFlagCount)

	findings, err := s.QAResults().GetForRow(ctx, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	resolved, err := s.QAResults().Resolve(ctx, findings[0].ID, 9)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	// Resolving again is a no-op returning the existing record.
	again, err := s.QAResults().Resolve(ctx, findings[0].ID, 42)
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedBy)
	assert.Equal(t, int64(9), *again.ResolvedBy)

	flagged, err = s.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged.QAFlagCount)

	summary, err := s.QAResults().GetSummary(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Unresolved)

	pattern := types.QAPattern
	patternOnly, err := s.QAResults().GetForFile(ctx, file.ID, &pattern, false)
	require.NoError(t, err)
	require.Len(t, patternOnly, 1) // row 0's pattern finding is resolved

	n, err := s.QAResults().DeleteUnresolvedForRow(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	flagged, err = s.Rows().Get(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Zero(t, flagged.QAFlagCount)

	_, err = s.QAResults().DeleteForFile(ctx, file.ID)
	require.NoError(t, err)
	other, err := s.Rows().Get(ctx, rows[1].ID)
	require.NoError(t, err)
	assert.Zero(t, other.QAFlagCount)
}

func testTrash(t *testing.T, s storage.Store) {
	ctx := context.Background()

	entry := &types.TrashEntry{
		ItemType: types.TrashFile,
		ItemID:   101,
		ItemName: "ui.xlsx",
		ItemData: []byte(`{"file":{"id":101,"project_id":1,"name":"ui.xlsx"},"rows":[]}`),
		DeletedBy: 1,
	}
	require.NoError(t, s.Trash().Create(ctx, entry, 0))
	require.NotZero(t, entry.ID)
	assert.Equal(t, types.TrashTrashed, entry.Status)

	// Default retention is 30 days.
	gap := entry.ExpiresAt.Sub(entry.DeletedAt)
	assert.InDelta(t, float64(30*24*time.Hour), float64(gap), float64(time.Minute))

	// Only the deleter (or an admin) may restore or purge.
	_, err := s.Trash().Restore(ctx, entry.ID, 2, false)
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)

	data, err := s.Trash().Restore(ctx, entry.ID, 1, false)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// Restored entries are no longer restorable.
	_, err = s.Trash().Restore(ctx, entry.ID, 1, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	second := &types.TrashEntry{ItemType: types.TrashFile, ItemID: 102, ItemName: "b.xlsx", DeletedBy: 1}
	require.NoError(t, s.Trash().Create(ctx, second, 7))

	n, err := s.Trash().CountForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n) // live entries only

	// Purging a missing entry is idempotent.
	ok, err := s.Trash().PermanentDelete(ctx, 9999, 1, false)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := s.Trash().EmptyForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.Trash().CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func testCapabilities(t *testing.T, s storage.Store) {
	ctx := context.Background()

	if s.Mode() == storage.ModeOffline {
		// Declared divergence: no grants exist offline.
		has, err := s.Capabilities().Has(ctx, 1, types.CapEmptyTrash)
		require.NoError(t, err)
		assert.False(t, has)
		caps, err := s.Capabilities().GetForUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, caps)
		err = s.Capabilities().Grant(ctx, &types.Capability{UserID: 1, Name: types.CapEmptyTrash, GrantedBy: 2})
		assert.ErrorIs(t, err, storage.ErrRequiresOnline)
		return
	}

	require.NoError(t, s.Capabilities().Grant(ctx, &types.Capability{
		UserID: 1, Name: types.CapDeleteProject, GrantedBy: 2,
	}))
	has, err := s.Capabilities().Has(ctx, 1, types.CapDeleteProject)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = s.Capabilities().Has(ctx, 1, types.CapEmptyTrash)
	require.NoError(t, err)
	assert.False(t, has)

	// Expired grants stop answering true.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, s.Capabilities().Grant(ctx, &types.Capability{
		UserID: 3, Name: types.CapEmptyTrash, GrantedBy: 2, ExpiresAt: &past,
	}))
	has, err = s.Capabilities().Has(ctx, 3, types.CapEmptyTrash)
	require.NoError(t, err)
	assert.False(t, has)

	revoked, err := s.Capabilities().Revoke(ctx, 1, types.CapDeleteProject)
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = s.Capabilities().Revoke(ctx, 1, types.CapDeleteProject)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	project := mkProject(t, s, "Game")

	// A failed transaction leaves no trace.
	sentinel := assert.AnError
	var insideID int64
	err := s.RunInTransaction(ctx, func(tx storage.Stores) error {
		f := &types.File{ProjectID: project.ID, Name: "doomed.xlsx", Format: "xlsx"}
		if err := tx.Files().Create(ctx, f); err != nil {
			return err
		}
		insideID = f.ID
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	_, err = s.Files().Get(ctx, insideID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A committed transaction is visible afterwards.
	var fileID int64
	require.NoError(t, s.RunInTransaction(ctx, func(tx storage.Stores) error {
		f := &types.File{ProjectID: project.ID, Name: "kept.xlsx", Format: "xlsx"}
		if err := tx.Files().Create(ctx, f); err != nil {
			return err
		}
		fileID = f.ID
		return tx.Files().AddRows(ctx, fileID, []*types.Row{
			{FileID: fileID, RowNum: 1, Source: "안녕", Target: "Hi"},
		})
	}))
	got, err := s.Files().Get(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RowCount)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Files, int64(1))
	assert.GreaterOrEqual(t, stats.Rows, int64(1))
}
