// Package teststore provides embedded-store fixtures for storage and
// orchestrator tests.
//
// Each call opens an isolated store in a per-test temp directory, so
// tests never share state and cleanup is automatic. Helper methods fail
// the test on error, keeping fixtures out of the way of the behavior
// under test.
package teststore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/sqlite"
	"github.com/lockitd/lockit/internal/types"
)

// New opens an isolated server-mode embedded store for one test.
func New(t testing.TB) *sqlite.Store {
	t.Helper()
	return open(t, storage.ModeServer)
}

// NewOffline opens an isolated offline-mode embedded store. Offline
// stores carry the sync columns, the journal, and the seeded Offline
// Storage platform and project.
func NewOffline(t testing.TB) *sqlite.Store {
	t.Helper()
	return open(t, storage.ModeOffline)
}

func open(t testing.TB, mode storage.Mode) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"), mode)
	if err != nil {
		t.Fatalf("teststore: open %s store: %v", mode, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Env bundles a store with fixture helpers.
type Env struct {
	T     testing.TB
	Store storage.Store
	Ctx   context.Context

	seq int
}

// NewEnv opens a server-mode store wrapped in fixture helpers.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	return &Env{T: t, Store: New(t), Ctx: context.Background()}
}

// NewOfflineEnv opens an offline-mode store wrapped in fixture helpers.
func NewOfflineEnv(t testing.TB) *Env {
	t.Helper()
	return &Env{T: t, Store: NewOffline(t), Ctx: context.Background()}
}

// CreateProject creates a platform-less project owned by user 1.
func (e *Env) CreateProject(name string) *types.Project {
	e.T.Helper()
	p := &types.Project{Name: name, OwnerID: 1}
	if err := e.Store.Projects().Create(e.Ctx, p); err != nil {
		e.T.Fatalf("teststore: create project %q: %v", name, err)
	}
	return p
}

// CreateFolder creates a folder under the given parent (nil for project
// root).
func (e *Env) CreateFolder(projectID int64, parentID *int64, name string) *types.Folder {
	e.T.Helper()
	f := &types.Folder{ProjectID: projectID, ParentID: parentID, Name: name}
	if err := e.Store.Folders().Create(e.Ctx, f); err != nil {
		e.T.Fatalf("teststore: create folder %q: %v", name, err)
	}
	return f
}

// CreateFile creates an empty file in the given folder (nil for project
// root).
func (e *Env) CreateFile(projectID int64, folderID *int64, name string) *types.File {
	e.T.Helper()
	f := &types.File{ProjectID: projectID, FolderID: folderID, Name: name, Format: "xlsx"}
	if err := e.Store.Files().Create(e.Ctx, f); err != nil {
		e.T.Fatalf("teststore: create file %q: %v", name, err)
	}
	return f
}

// AddRows appends source/target pairs to the file, numbering rows from
// the current count, and returns the created rows. Pairs with a target
// start translated, pairs without start pending.
func (e *Env) AddRows(fileID int64, pairs ...[2]string) []*types.Row {
	e.T.Helper()
	count, err := e.Store.Rows().CountForFile(e.Ctx, fileID)
	if err != nil {
		e.T.Fatalf("teststore: count rows for file %d: %v", fileID, err)
	}
	rows := make([]*types.Row, len(pairs))
	for i, p := range pairs {
		rows[i] = &types.Row{
			FileID: fileID,
			RowNum: count + i + 1,
			Source: p[0],
			Target: p[1],
		}
		if p[1] != "" {
			rows[i].Status = types.RowTranslated
		}
	}
	if err := e.Store.Files().AddRows(e.Ctx, fileID, rows); err != nil {
		e.T.Fatalf("teststore: add rows to file %d: %v", fileID, err)
	}
	return rows
}

// CreateTM creates a ko→en TM owned by user 1.
func (e *Env) CreateTM(name string) *types.TM {
	e.T.Helper()
	tm := &types.TM{Name: name, OwnerID: 1, SourceLang: "ko", TargetLang: "en"}
	if err := e.Store.TMs().Create(e.Ctx, tm); err != nil {
		e.T.Fatalf("teststore: create tm %q: %v", name, err)
	}
	return tm
}

// AddEntry adds one TM entry created by user 1.
func (e *Env) AddEntry(tmID int64, source, target string) *types.TMEntry {
	e.T.Helper()
	entry := &types.TMEntry{TMID: tmID, SourceText: source, TargetText: target, CreatedBy: 1}
	if err := e.Store.TMs().AddEntry(e.Ctx, entry); err != nil {
		e.T.Fatalf("teststore: add entry to tm %d: %v", tmID, err)
	}
	return entry
}

// UniqueName returns a name unique within this Env, for fixtures whose
// exact name does not matter.
func (e *Env) UniqueName(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}
