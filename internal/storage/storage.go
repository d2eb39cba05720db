// Package storage defines the repository contracts for the lockit
// persistence layer.
//
// The concrete adapters live in the postgres and sqlite sub-packages;
// routing composes them, and factory picks the right composition for a
// session. This package holds the interfaces, the typed error kinds, and
// the schema binding that are referenced by the adapters and by every
// consumer.
package storage

import (
	"context"
	"encoding/json"

	"github.com/lockitd/lockit/internal/types"
)

// Stores is the set of entity repositories bound to one session or
// transaction. Repositories obtained from the same Stores value share a
// connection, so writes are visible to subsequent reads immediately.
type Stores interface {
	Platforms() PlatformRepository
	Projects() ProjectRepository
	Folders() FolderRepository
	Files() FileRepository
	Rows() RowRepository
	TMs() TMRepository
	QAResults() QAResultRepository
	Trash() TrashRepository
	Capabilities() CapabilityRepository
}

// Store is a Stores plus lifecycle. Composed operations open one
// transaction at the outermost orchestrator via RunInTransaction;
// repositories never commit on their own.
type Store interface {
	Stores

	// Mode reports which schema family this store is bound to.
	Mode() Mode

	// RunInTransaction executes fn atomically. The Stores passed to fn is
	// valid only inside fn. Returning an error rolls back; a panic rolls
	// back and re-raises.
	RunInTransaction(ctx context.Context, fn func(tx Stores) error) error

	// Stats returns row counts per entity table, for diagnostics.
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Stats holds per-table row counts.
type Stats struct {
	Platforms  int64 `json:"platforms"`
	Projects   int64 `json:"projects"`
	Folders    int64 `json:"folders"`
	Files      int64 `json:"files"`
	Rows       int64 `json:"rows"`
	TMs        int64 `json:"tms"`
	TMEntries  int64 `json:"tm_entries"`
	QAResults  int64 `json:"qa_results"`
	TrashItems int64 `json:"trash_items"`

	// PendingChanges is populated only by offline stores.
	PendingChanges int64 `json:"pending_changes,omitempty"`
}

// PlatformRepository manages top-level platforms. Platform names are
// globally unique (case-insensitive) and are never auto-renamed: a
// colliding Create or Update fails with ErrNameCollision.
type PlatformRepository interface {
	Get(ctx context.Context, id int64) (*types.Platform, error)
	GetAll(ctx context.Context) ([]*types.Platform, error)

	// Create assigns ID and timestamps on the passed platform.
	Create(ctx context.Context, platform *types.Platform) error

	// Update changes name and/or description. Nil fields are untouched.
	Update(ctx context.Context, id int64, name, description *string) error

	// Delete detaches child projects (platform_id becomes null) before
	// removing the platform. It never cascades. Returns false if the
	// platform does not exist.
	Delete(ctx context.Context, id int64) (bool, error)

	GetWithProjectCount(ctx context.Context) ([]*types.Platform, error)
	SetRestriction(ctx context.Context, id int64, restricted bool) error

	// AssignProject attaches or, with a nil platformID, detaches a project.
	AssignProject(ctx context.Context, projectID int64, platformID *int64) error

	// CheckNameExists reports a case-insensitive name collision,
	// ignoring excludeID (0 means no exclusion).
	CheckNameExists(ctx context.Context, name string, excludeID int64) (bool, error)

	Count(ctx context.Context) (int64, error)
	GetProjects(ctx context.Context, platformID int64) ([]*types.Project, error)
	Search(ctx context.Context, query string) ([]*types.Platform, error)
}

// ProjectRepository manages projects. Names are unique within the owning
// platform; platform-less projects form their own namespace. Create
// auto-renames; Update does not and fails with ErrNameCollision.
type ProjectRepository interface {
	Get(ctx context.Context, id int64) (*types.Project, error)
	GetAll(ctx context.Context) ([]*types.Project, error)

	// Create assigns ID and timestamps and may rewrite Name with an
	// auto-rename suffix; the effective name is left on the passed project.
	Create(ctx context.Context, project *types.Project) error

	Update(ctx context.Context, id int64, name, description *string) error
	Delete(ctx context.Context, id int64) (bool, error)
	SetRestriction(ctx context.Context, id int64, restricted bool) error
	CheckNameExists(ctx context.Context, name string, platformID *int64, excludeID int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, query string) ([]*types.Project, error)
}

// FolderRepository manages the folder tree. Sibling names are unique
// (case-insensitive); Create auto-renames, Rename fails with
// ErrNameCollision. Moves that would put a folder under its own
// descendant fail with ErrCycle.
type FolderRepository interface {
	Get(ctx context.Context, id int64) (*types.Folder, error)
	GetForProject(ctx context.Context, projectID int64) ([]*types.Folder, error)
	GetWithContents(ctx context.Context, id int64) (*types.FolderContents, error)

	Create(ctx context.Context, folder *types.Folder) error
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) (bool, error)

	// Move reparents within the same project. A nil newParentID moves the
	// folder to the project root.
	Move(ctx context.Context, id int64, newParentID *int64) error

	// MoveCrossProject rewrites project_id on the folder and every
	// descendant folder and file in one transaction, auto-renaming the
	// root if a destination sibling collides. Row IDs are preserved.
	MoveCrossProject(ctx context.Context, id int64, targetProjectID int64, targetParentID *int64) error

	// Copy duplicates the subtree with fresh IDs, rows included, and
	// returns the new root. The source is never mutated.
	Copy(ctx context.Context, id int64, targetProjectID *int64, targetParentID *int64) (*types.Folder, error)

	// IsDescendant reports whether candidate is in the subtree rooted at
	// id (the folder itself does not count).
	IsDescendant(ctx context.Context, id, candidate int64) (bool, error)

	CheckNameExists(ctx context.Context, projectID int64, parentID *int64, name string, excludeID int64) (bool, error)
}

// FileRepository manages files and their bulk row operations. Sibling
// names are unique per (project, folder); Create auto-renames, Rename
// fails with ErrNameCollision.
type FileRepository interface {
	Get(ctx context.Context, id int64) (*types.File, error)
	GetForProject(ctx context.Context, projectID int64, folderID *int64) ([]*types.File, error)

	Create(ctx context.Context, file *types.File) error
	Rename(ctx context.Context, id int64, name string) error
	Update(ctx context.Context, id int64, targetLanguage *string, extraData json.RawMessage) error
	Delete(ctx context.Context, id int64) (bool, error)

	// Move reparents within the same project; rows are untouched.
	Move(ctx context.Context, id int64, folderID *int64) error

	// MoveCrossProject moves the file into another project. Offline
	// stores reject it with ErrCrossProjectOffline unless the source or
	// destination is the Offline Storage project.
	MoveCrossProject(ctx context.Context, id int64, targetProjectID int64, targetFolderID *int64) error

	// Copy duplicates the file and all rows byte for byte and returns the
	// new file.
	Copy(ctx context.Context, id int64, targetProjectID *int64, targetFolderID *int64) (*types.File, error)

	GetRows(ctx context.Context, fileID int64) ([]*types.Row, error)

	// AddRows bulk-inserts rows into the file and updates row_count in
	// the same transaction, using the backend's fastest bulk path.
	AddRows(ctx context.Context, fileID int64, rows []*types.Row) error

	GetRowsForExport(ctx context.Context, fileID int64) ([]*types.Row, error)

	// UpdateRowCount recounts rows and stores the result on the file.
	UpdateRowCount(ctx context.Context, fileID int64) error

	CheckNameExists(ctx context.Context, projectID int64, folderID *int64, name string, excludeID int64) (bool, error)
}

// RowRepository manages translation rows. The routing decorator dispatches
// each call by ID sign, so adapter implementations only ever see IDs of
// their own sign.
type RowRepository interface {
	Get(ctx context.Context, id int64) (*types.Row, error)
	GetWithFile(ctx context.Context, id int64) (*types.Row, *types.File, error)

	Create(ctx context.Context, row *types.Row) error

	// Update applies the patch and returns the updated row. If the patch
	// sets Target on a pending row without an explicit Status, the status
	// auto-advances to translated.
	Update(ctx context.Context, id int64, patch types.RowPatch) (*types.Row, error)

	Delete(ctx context.Context, id int64) (bool, error)

	// BulkCreate inserts rows grouped by file, updating each touched
	// file's row_count in the same transaction.
	BulkCreate(ctx context.Context, rows []*types.Row) error

	// BulkUpdate applies patches and returns how many rows actually
	// changed values.
	BulkUpdate(ctx context.Context, updates []types.RowUpdate) (int, error)

	GetForFile(ctx context.Context, fileID int64, q types.RowQuery) ([]*types.Row, error)
	CountForFile(ctx context.Context, fileID int64) (int, error)

	AddEditHistory(ctx context.Context, edit *types.RowEdit) error
	GetEditHistory(ctx context.Context, rowID int64) ([]*types.RowEdit, error)

	// SuggestSimilar returns rows whose source resembles q.Source, best
	// first. Only the online backend implements similarity; offline
	// returns an empty slice.
	SuggestSimilar(ctx context.Context, q types.SimilarQuery) ([]*types.RowMatch, error)
}

// TMRepository manages translation memories, their entries, scope
// assignments and project links.
type TMRepository interface {
	Get(ctx context.Context, id int64) (*types.TM, error)
	GetAll(ctx context.Context) ([]*types.TM, error)

	// Create assigns ID and timestamps and may auto-rename; TM names are
	// globally unique.
	Create(ctx context.Context, tm *types.TM) error

	// Delete removes entries, assignments and project links, then the TM
	// itself, in a single transaction.
	Delete(ctx context.Context, id int64) (bool, error)

	// SetStatus updates the indexing lifecycle state. Moving to ready
	// stamps indexed_at.
	SetStatus(ctx context.Context, id int64, status types.TMStatus) error

	// Assign binds the TM to the single scope in target, replacing any
	// previous scope. Targets with more than one scope set fail with
	// ErrInvalidScope. An unassigned target is equivalent to Unassign.
	Assign(ctx context.Context, tmID int64, target types.TMTarget) error
	Unassign(ctx context.Context, tmID int64) error

	// Activate fails with ErrInvalidScope when the TM has no scope.
	Activate(ctx context.Context, tmID int64) error
	Deactivate(ctx context.Context, tmID int64) error
	GetAssignment(ctx context.Context, tmID int64) (*types.TMAssignment, error)

	GetForScope(ctx context.Context, target types.TMTarget, includeInactive bool) ([]*types.TM, error)

	// GetActiveForFile walks folder, project, platform in that order and
	// returns the active TMs tagged with their originating scope.
	GetActiveForFile(ctx context.Context, fileID int64) ([]*types.ScopedTM, error)

	// LinkToProject upserts the link, updating priority on duplicates.
	LinkToProject(ctx context.Context, tmID, projectID int64, priority int) error
	UnlinkFromProject(ctx context.Context, tmID, projectID int64) (bool, error)

	// GetLinkedForProject returns the lowest-priority linked TM, the one
	// confirmed rows are appended to.
	GetLinkedForProject(ctx context.Context, projectID int64) (*types.TM, error)
	GetAllLinkedForProject(ctx context.Context, projectID int64) ([]*types.TM, error)

	// AddEntry computes source_hash and bumps entry_count.
	AddEntry(ctx context.Context, entry *types.TMEntry) error

	// AddEntriesBulk dedups per the TM mode, loads over the backend's
	// fastest bulk path and updates entry_count in the same transaction.
	// It returns the number of entries actually inserted.
	AddEntriesBulk(ctx context.Context, tmID int64, entries []types.EntryInput, createdBy int64) (int, error)

	GetEntries(ctx context.Context, tmID int64, offset, limit int) ([]*types.TMEntry, error)

	// GetAllEntries is unbounded; used for rebuilding external indexes.
	GetAllEntries(ctx context.Context, tmID int64) ([]*types.TMEntry, error)

	// SearchEntries does substring matching. Exact matches score 100,
	// substring matches 80.
	SearchEntries(ctx context.Context, tmID int64, query string, limit int) ([]*types.EntryMatch, error)

	DeleteEntry(ctx context.Context, entryID int64) (bool, error)
	UpdateEntry(ctx context.Context, entryID int64, source, target *string, updatedBy int64) error
	ConfirmEntry(ctx context.Context, entryID, confirmedBy int64) error
	BulkConfirmEntries(ctx context.Context, entryIDs []int64, confirmedBy int64) (int, error)
	GetGlossaryTerms(ctx context.Context, tmIDs []int64, maxSourceLength, limit int) ([]*types.GlossaryTerm, error)

	GetIndexes(ctx context.Context, tmID int64) ([]*types.TMIndexInfo, error)
	PutIndex(ctx context.Context, info *types.TMIndexInfo) error
	CountEntries(ctx context.Context, tmID int64) (int, error)

	// SearchExact looks up by source_hash.
	SearchExact(ctx context.Context, tmID int64, source string) ([]*types.TMEntry, error)

	// SearchSimilar is online-only trigram similarity; offline returns an
	// empty slice, never synthesized matches.
	SearchSimilar(ctx context.Context, tmID int64, source string, threshold float64, maxResults int) ([]*types.EntryMatch, error)

	GetTree(ctx context.Context) (*types.TMTree, error)
}

// QAResultRepository manages QA findings. Every mutation reconciles the
// touched rows' qa_flag_count in the same transaction.
type QAResultRepository interface {
	Get(ctx context.Context, id int64) (*types.QAResult, error)
	GetForRow(ctx context.Context, rowID int64) ([]*types.QAResult, error)
	GetForFile(ctx context.Context, fileID int64, checkType *types.QACheckType, includeResolved bool) ([]*types.QAResult, error)
	GetSummary(ctx context.Context, fileID int64) (*types.QASummary, error)

	Create(ctx context.Context, result *types.QAResult) error
	BulkCreate(ctx context.Context, results []*types.QAResult) error

	// Resolve is idempotent: resolving an already-resolved result returns
	// the existing record unchanged.
	Resolve(ctx context.Context, id, resolvedBy int64) (*types.QAResult, error)

	DeleteUnresolvedForRow(ctx context.Context, rowID int64) (int, error)
	DeleteForFile(ctx context.Context, fileID int64) (int, error)
	CountUnresolvedForRow(ctx context.Context, rowID int64) (int, error)

	// UpdateRowQACount recomputes qa_flag_count for one row.
	UpdateRowQACount(ctx context.Context, rowID int64) error
}

// TrashRepository manages soft-deleted subtrees. Entries are append-only
// from the creator's perspective; cleanup of expired items needs no
// cross-session coordination.
type TrashRepository interface {
	Get(ctx context.Context, id int64) (*types.TrashEntry, error)
	GetForUser(ctx context.Context, userID int64) ([]*types.TrashEntry, error)
	GetExpired(ctx context.Context) ([]*types.TrashEntry, error)

	// Create stamps deleted_at, expires_at (retentionDays from now, 30 if
	// zero) and status on the passed entry.
	Create(ctx context.Context, entry *types.TrashEntry, retentionDays int) error

	// Restore flips the entry to restored and returns its payload so a
	// restore coordinator can recreate the subtree. Only the deleter may
	// restore unless isAdmin.
	Restore(ctx context.Context, trashID, userID int64, isAdmin bool) (json.RawMessage, error)

	PermanentDelete(ctx context.Context, trashID, userID int64, isAdmin bool) (bool, error)
	EmptyForUser(ctx context.Context, userID int64) (int, error)

	// CleanupExpired removes entries past expires_at that are still
	// trashed, returning how many were removed.
	CleanupExpired(ctx context.Context) (int, error)

	CountForUser(ctx context.Context, userID int64) (int, error)
}

// CapabilityRepository manages privileged-operation grants. Grants live
// only in the online backend: offline reads return empty results and
// offline writes fail with ErrRequiresOnline.
type CapabilityRepository interface {
	Has(ctx context.Context, userID int64, name types.CapabilityName) (bool, error)
	GetForUser(ctx context.Context, userID int64) ([]*types.Capability, error)
	Grant(ctx context.Context, grant *types.Capability) error
	Revoke(ctx context.Context, userID int64, name types.CapabilityName) (bool, error)
}

// Journal is the offline pending-change log plus sync subscriptions.
// Only offline stores implement it; obtain it by type-asserting a Store.
type Journal interface {
	RecordChange(ctx context.Context, change *types.LocalChange) error
	PendingChanges(ctx context.Context) ([]*types.LocalChange, error)
	MarkChanges(ctx context.Context, ids []int64, status types.ChangeStatus) error
	Subscribe(ctx context.Context, sub *types.SyncSubscription) error
	Subscriptions(ctx context.Context) ([]*types.SyncSubscription, error)
}
