// Package factory opens storage backends and binds per-request sessions.
//
// A deployment has one primary backend (PostgreSQL online, or the
// embedded server-mode fallback) and one offline embedded store shared by
// every process on the machine. The offline store is opened lazily, once
// per process, under a file lock; online sessions get their row and file
// repositories wrapped so negative locally-allocated IDs transparently
// reach the offline store.
package factory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/postgres"
	"github.com/lockitd/lockit/internal/storage/routing"
	"github.com/lockitd/lockit/internal/storage/sqlite"
)

// Backend names accepted by Config.Backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DefaultTokenPrefix marks offline-session tokens. The remainder of the
// token is opaque here; identity lives in a higher layer.
const DefaultTokenPrefix = "offline:"

// Config selects and locates the backends.
type Config struct {
	// Backend is the primary backend: BackendPostgres or BackendSQLite.
	Backend string

	// PostgresDSN is the online connection string (postgres backend).
	PostgresDSN string

	// ServerDBPath is the embedded database path (sqlite backend).
	ServerDBPath string

	// OfflinePath is the offline embedded database path.
	OfflinePath string

	// TokenPrefix overrides DefaultTokenPrefix when non-empty.
	TokenPrefix string
}

func (c Config) tokenPrefix() string {
	if c.TokenPrefix != "" {
		return c.TokenPrefix
	}
	return DefaultTokenPrefix
}

// Factory owns the process-wide backends and hands out sessions.
type Factory struct {
	cfg     Config
	primary storage.Store

	offlineMu   sync.Mutex
	offline     *sqlite.Store
	offlineLock *flock.Flock
}

// Open connects the primary backend. Postgres opens are retried with
// exponential backoff so a restarting database does not fail the whole
// process; the offline store is not touched until first use.
func Open(ctx context.Context, cfg Config) (*Factory, error) {
	var primary storage.Store
	switch cfg.Backend {
	case BackendPostgres:
		var err error
		primary, err = openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	case BackendSQLite:
		var err error
		primary, err = sqlite.New(ctx, cfg.ServerDBPath, storage.ModeServer)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage backend: %q (supported: %s, %s)",
			cfg.Backend, BackendPostgres, BackendSQLite)
	}
	return &Factory{cfg: cfg, primary: primary}, nil
}

func openPostgres(ctx context.Context, dsn string) (*postgres.Store, error) {
	var store *postgres.Store
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		var err error
		store, err = postgres.Open(ctx, dsn)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("open postgres backend: %w", err)
	}
	return store, nil
}

// Primary returns the primary backend store.
func (f *Factory) Primary() storage.Store { return f.primary }

// Offline returns the process-wide offline store, opening it on first
// use. The file lock enforces the single-writer rule across processes.
func (f *Factory) Offline(ctx context.Context) (*sqlite.Store, error) {
	f.offlineMu.Lock()
	defer f.offlineMu.Unlock()
	if f.offline != nil {
		return f.offline, nil
	}

	lock := flock.New(f.cfg.OfflinePath + ".lock")
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock offline store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("offline store %s is locked by another process", f.cfg.OfflinePath)
	}

	store, err := sqlite.New(ctx, f.cfg.OfflinePath, storage.ModeOffline)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open offline store: %w", err)
	}
	f.offline = store
	f.offlineLock = lock
	return store, nil
}

// IsOfflineToken classifies a session token. Only the prefix is
// inspected; the remainder stays opaque.
func (f *Factory) IsOfflineToken(token string) bool {
	return strings.HasPrefix(token, f.cfg.tokenPrefix())
}

// Session binds the repositories for one request, classified by token.
// Both session kinds open the offline store: offline sessions live on it,
// online sessions route negative IDs into it.
func (f *Factory) Session(ctx context.Context, token string) (*Session, error) {
	offline, err := f.Offline(ctx)
	if err != nil {
		return nil, err
	}
	if f.IsOfflineToken(token) {
		return &Session{home: offline, offline: offline}, nil
	}
	return &Session{home: f.primary, offline: offline, routed: true}, nil
}

// Close releases both backends and the offline file lock.
func (f *Factory) Close() error {
	f.offlineMu.Lock()
	defer f.offlineMu.Unlock()
	var firstErr error
	if f.offline != nil {
		if err := f.offline.Close(); err != nil {
			firstErr = err
		}
		if err := f.offlineLock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.offline = nil
		f.offlineLock = nil
	}
	if err := f.primary.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Session is one request's view of storage. Repositories resolve against
// the session's home backend; for online sessions the row and file
// repositories additionally route negative IDs to the offline store.
type Session struct {
	home    storage.Store
	offline *sqlite.Store
	routed  bool
}

var _ storage.Stores = (*Session)(nil)

func (s *Session) Platforms() storage.PlatformRepository      { return s.home.Platforms() }
func (s *Session) Projects() storage.ProjectRepository        { return s.home.Projects() }
func (s *Session) Folders() storage.FolderRepository          { return s.home.Folders() }
func (s *Session) TMs() storage.TMRepository                  { return s.home.TMs() }
func (s *Session) QAResults() storage.QAResultRepository      { return s.home.QAResults() }
func (s *Session) Trash() storage.TrashRepository             { return s.home.Trash() }
func (s *Session) Capabilities() storage.CapabilityRepository { return s.home.Capabilities() }

func (s *Session) Files() storage.FileRepository {
	if !s.routed {
		return s.home.Files()
	}
	return routing.NewFiles(s.home.Files(), s.offline.Files())
}

func (s *Session) Rows() storage.RowRepository {
	if !s.routed {
		return s.home.Rows()
	}
	return routing.NewRows(s.home.Rows(), s.offline.Rows())
}

// Mode reports the home backend's schema family.
func (s *Session) Mode() storage.Mode { return s.home.Mode() }

// Journal returns the offline pending-change journal shared by every
// session in the process.
func (s *Session) Journal() storage.Journal { return s.offline.Journal() }

// RunInTransaction executes fn atomically on the home backend. Routed
// sessions do not span backends: a transaction covers exactly one store,
// and mixed-sign bulk work commits per backend.
func (s *Session) RunInTransaction(ctx context.Context, fn func(tx storage.Stores) error) error {
	return s.home.RunInTransaction(ctx, fn)
}

// Stats reports the home backend's entity counts.
func (s *Session) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.home.Stats(ctx)
}
