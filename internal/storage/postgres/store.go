// Package postgres implements the repository contracts on the online
// PostgreSQL backend, including the trigram similarity features the
// embedded backend degrades on.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/lib/pq"

	"github.com/lockitd/lockit/internal/storage"
)

// Store is the online storage backend. The server schema family (ldm_*)
// is the only one that exists here; offline provenance columns are never
// present and never synthesized.
type Store struct {
	db      *sql.DB
	binding storage.Binding
	closed  atomic.Bool
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{
		db:      db,
		binding: storage.NewBinding(storage.ModeServer, false),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}

// Mode reports which schema family this store is bound to.
func (s *Store) Mode() storage.Mode { return s.binding.Mode() }

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// session binds the repositories to the pooled handle or an open
// transaction. Queries go through q, which rewrites ? placeholders to
// positional parameters; tx is kept separately because the COPY protocol
// only runs inside a transaction.
type session struct {
	db      *sql.DB
	tx      *sql.Tx
	q       querier
	binding storage.Binding
}

func (s *Store) session() *session {
	return &session{db: s.db, q: rebinder{s.db}, binding: s.binding}
}

type txStores struct {
	s *session
}

func (t *txStores) Platforms() storage.PlatformRepository      { return &platformRepo{t.s} }
func (t *txStores) Projects() storage.ProjectRepository        { return &projectRepo{t.s} }
func (t *txStores) Folders() storage.FolderRepository          { return &folderRepo{t.s} }
func (t *txStores) Files() storage.FileRepository              { return &fileRepo{t.s} }
func (t *txStores) Rows() storage.RowRepository                { return &rowRepo{t.s} }
func (t *txStores) TMs() storage.TMRepository                  { return &tmRepo{t.s} }
func (t *txStores) QAResults() storage.QAResultRepository      { return &qaRepo{t.s} }
func (t *txStores) Trash() storage.TrashRepository             { return &trashRepo{t.s} }
func (t *txStores) Capabilities() storage.CapabilityRepository { return &capabilityRepo{t.s} }

func (s *Store) Platforms() storage.PlatformRepository      { return &platformRepo{s.session()} }
func (s *Store) Projects() storage.ProjectRepository        { return &projectRepo{s.session()} }
func (s *Store) Folders() storage.FolderRepository          { return &folderRepo{s.session()} }
func (s *Store) Files() storage.FileRepository              { return &fileRepo{s.session()} }
func (s *Store) Rows() storage.RowRepository                { return &rowRepo{s.session()} }
func (s *Store) TMs() storage.TMRepository                  { return &tmRepo{s.session()} }
func (s *Store) QAResults() storage.QAResultRepository      { return &qaRepo{s.session()} }
func (s *Store) Trash() storage.TrashRepository             { return &trashRepo{s.session()} }
func (s *Store) Capabilities() storage.CapabilityRepository { return &capabilityRepo{s.session()} }

// RunInTransaction executes fn atomically. Serialization failures and
// deadlocks surface as ErrTransient; orchestrators own the retry.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess := &session{db: s.db, tx: tx, q: rebinder{tx}, binding: s.binding}
	if err := fn(&txStores{sess}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}

// Stats returns per-table row counts.
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
	return stats, nil
}
