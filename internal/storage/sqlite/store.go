// Package sqlite implements the repository contracts on the embedded
// SQLite store used by offline and single-user deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"

	"github.com/lockitd/lockit/internal/idgen"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// setupWASMCache configures WASM compilation caching so the SQLite WASM
// module is compiled once and reloaded from disk on subsequent runs
// (~220ms down to ~20ms). Falls back to an in-memory cache when the user
// cache directory is unavailable.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		if c, err := wazero.NewCompilationCacheWithDir(filepath.Join(userCache, "lockit", "wasm")); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// Store is the embedded-SQLite storage backend bound to one schema
// family. Two Stores over the same file (one per mode) share the physical
// database; SQLite's locking serializes their writes.
type Store struct {
	db      *sql.DB
	dbPath  string
	binding storage.Binding
	alloc   *idgen.Allocator
	closed  atomic.Bool
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the embedded database at path and
// returns a Store bound to mode. Both schema families plus the shared
// journaling tables are created idempotently, and the Offline Storage
// platform/project are seeded on every open.
func New(ctx context.Context, path string, mode storage.Mode) (*Store, error) {
	var connStr string
	switch {
	case path == ":memory:":
		// Shared in-memory database so pooled connections see the same
		// data. WAL does not work for shared memory databases.
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		// In-memory databases are isolated per connection by default;
		// force a single connection so every session sees every write.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports one writer plus readers; bound the pool so write
		// contention does not pile up goroutines.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
	}

	s := &Store{
		db:      db,
		dbPath:  path,
		binding: storage.NewBinding(mode, true),
		alloc:   idgen.New(),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates both schema families and seeds the well-known
// Offline Storage records.
func (s *Store) initSchema(ctx context.Context) error {
	for _, mode := range []storage.Mode{storage.ModeOffline, storage.ModeServer} {
		if _, err := s.db.ExecContext(ctx, schemaFor(mode)); err != nil {
			return fmt.Errorf("init %s schema: %w", mode, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, sharedSchema); err != nil {
		return fmt.Errorf("init shared schema: %w", err)
	}
	return s.seedOfflineStorage(ctx)
}

// seedOfflineStorage inserts the Offline Storage platform and project
// (both id = -1) into the offline family. Idempotent.
func (s *Store) seedOfflineStorage(ctx context.Context) error {
	b := storage.NewBinding(storage.ModeOffline, true)
	now := nowString()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO %s (id, name, description, owner_id, is_restricted, created_at, updated_at)
		VALUES (?, ?, '', 0, 0, ?, ?)`, b.Table("platforms")),
		types.OfflinePlatformID, types.OfflineStorageName, now, now)
	if err != nil {
		return fmt.Errorf("seed offline platform: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO %s (id, name, description, owner_id, platform_id, is_restricted, created_at, updated_at)
		VALUES (?, ?, '', 0, ?, 0, ?, ?)`, b.Table("projects")),
		types.OfflineProjectID, types.OfflineStorageName, types.OfflinePlatformID, now, now)
	if err != nil {
		return fmt.Errorf("seed offline project: %w", err)
	}
	return nil
}

// Mode reports which schema family this store is bound to.
func (s *Store) Mode() storage.Mode { return s.binding.Mode() }

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// session binds the repositories to one querier (the pooled handle or an
// open transaction). localIDs controls whether Create paths allocate
// negative IDs or lean on AUTOINCREMENT.
type session struct {
	q        querier
	binding  storage.Binding
	alloc    *idgen.Allocator
	localIDs bool
}

func (s *Store) session() *session {
	return &session{
		q:        s.db,
		binding:  s.binding,
		alloc:    s.alloc,
		localIDs: s.binding.Mode() == storage.ModeOffline,
	}
}

// txStores is the Stores view handed to RunInTransaction callbacks.
type txStores struct {
	s *session
}

func (t *txStores) Platforms() storage.PlatformRepository     { return &platformRepo{t.s} }
func (t *txStores) Projects() storage.ProjectRepository       { return &projectRepo{t.s} }
func (t *txStores) Folders() storage.FolderRepository         { return &folderRepo{t.s} }
func (t *txStores) Files() storage.FileRepository             { return &fileRepo{t.s} }
func (t *txStores) Rows() storage.RowRepository               { return &rowRepo{t.s} }
func (t *txStores) TMs() storage.TMRepository                 { return &tmRepo{t.s} }
func (t *txStores) QAResults() storage.QAResultRepository     { return &qaRepo{t.s} }
func (t *txStores) Trash() storage.TrashRepository            { return &trashRepo{t.s} }
func (t *txStores) Capabilities() storage.CapabilityRepository {
	if t.s.localIDs {
		return offlineCapabilityRepo{}
	}
	return &capabilityRepo{t.s}
}

func (s *Store) Platforms() storage.PlatformRepository     { return &platformRepo{s.session()} }
func (s *Store) Projects() storage.ProjectRepository       { return &projectRepo{s.session()} }
func (s *Store) Folders() storage.FolderRepository         { return &folderRepo{s.session()} }
func (s *Store) Files() storage.FileRepository             { return &fileRepo{s.session()} }
func (s *Store) Rows() storage.RowRepository               { return &rowRepo{s.session()} }
func (s *Store) TMs() storage.TMRepository                 { return &tmRepo{s.session()} }
func (s *Store) QAResults() storage.QAResultRepository     { return &qaRepo{s.session()} }
func (s *Store) Trash() storage.TrashRepository            { return &trashRepo{s.session()} }
func (s *Store) Capabilities() storage.CapabilityRepository {
	if s.binding.Mode() == storage.ModeOffline {
		return offlineCapabilityRepo{}
	}
	return &capabilityRepo{s.session()}
}

// Journal returns the offline pending-change journal. It is available on
// every embedded store because the journaling tables are shared.
func (s *Store) Journal() storage.Journal { return &journalRepo{s.session()} }

// RunInTransaction executes fn atomically. BEGIN IMMEDIATE acquires the
// write lock up front so competing writers queue instead of deadlocking
// mid-transaction; SQLITE_BUSY on begin is retried with backoff.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Stores) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even when ctx is
			// already cancelled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	sess := &session{
		q:        connQuerier{conn},
		binding:  s.binding,
		alloc:    s.alloc,
		localIDs: s.binding.Mode() == storage.ModeOffline,
	}
	if err := fn(&txStores{sess}); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}

// Stats returns per-table row counts for this store's schema family.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"platforms", &stats.Platforms},
		{"projects", &stats.Projects},
		{"folders", &stats.Folders},
		{"files", &stats.Files},
		{"rows", &stats.Rows},
		{"tms", &stats.TMs},
		{"tm_entries", &stats.TMEntries},
		{"qa_results", &stats.QAResults},
		{"trash", &stats.TrashItems},
	}
	for _, c := range counts {
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.binding.Table(c.table))
		if err := s.db.QueryRowContext(ctx, q).Scan(c.dst); err != nil {
			return nil, wrapDBError("count "+c.table, err)
		}
	}
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE sync_status = 'pending'", s.binding.Table("local_changes"))
	if err := s.db.QueryRowContext(ctx, q).Scan(&stats.PendingChanges); err != nil {
		return nil, wrapDBError("count pending changes", err)
	}
	return stats, nil
}
