// Package lockit provides a minimal public API for embedding the
// localization storage core in other Go programs.
//
// Most integrations should go through a running server; this package
// exports only the types and constructors needed to open the stores
// programmatically, for migration scripts and offline tooling.
package lockit

import (
	"context"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/factory"
	"github.com/lockitd/lockit/internal/storage/sqlite"
	"github.com/lockitd/lockit/internal/types"
)

// Core entity types.
type (
	Platform = types.Platform
	Project  = types.Project
	Folder   = types.Folder
	File     = types.File
	Row      = types.Row
	TM       = types.TM
)

// Row status constants.
const (
	RowPending    = types.RowPending
	RowTranslated = types.RowTranslated
	RowReviewed   = types.RowReviewed
	RowApproved   = types.RowApproved
)

// Store is the full backend contract: repositories plus transactions.
type Store = storage.Store

// Stores is the repository aggregate visible inside transactions.
type Stores = storage.Stores

// Config selects and locates the backends for Open.
type Config = factory.Config

// Factory hands out per-request sessions over the opened backends.
type Factory = factory.Factory

// Open connects the configured primary backend and returns the session
// factory. The offline store opens lazily on first use.
func Open(ctx context.Context, cfg Config) (*Factory, error) {
	return factory.Open(ctx, cfg)
}

// OpenEmbedded opens a standalone embedded server-mode store at path,
// for single-user tools that do not need routing or sessions.
func OpenEmbedded(ctx context.Context, path string) (Store, error) {
	return sqlite.New(ctx, path, storage.ModeServer)
}
