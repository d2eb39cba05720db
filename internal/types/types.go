// Package types defines the core data structures for the lockit
// localization data management server.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known offline identifiers. Locally created files and folders are
// parented under the Offline Storage platform/project until the user
// reassigns them. Both records are seeded on first init of the offline
// schema.
const (
	OfflinePlatformID  int64 = -1
	OfflineProjectID   int64 = -1
	OfflineStorageName       = "Offline Storage"
)

// DefaultTrashRetention is how long soft-deleted items stay restorable.
const DefaultTrashRetention = 30 * 24 * time.Hour

// DefaultTrashRetentionDays mirrors DefaultTrashRetention for callers that
// take a day count.
const DefaultTrashRetentionDays = 30

// MaxFolderDepth caps folder-tree walks (serialization, restore,
// cross-project rewrites). Trees deeper than this are treated as corrupt.
const MaxFolderDepth = 256

// IsLocalID reports whether id was allocated locally (offline) rather than
// by the server. Zero is reserved and never used as an entity ID.
func IsLocalID(id int64) bool {
	return id < 0
}

// Platform is the top-level grouping for projects.
type Platform struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	OwnerID      int64     `json:"owner_id"`
	IsRestricted bool      `json:"is_restricted,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// ProjectCount is populated only by GetWithProjectCount.
	ProjectCount int `json:"project_count,omitempty"`
}

// Validate checks if the platform has valid field values
func (p *Platform) Validate() error {
	if len(p.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(p.Name) > 255 {
		return fmt.Errorf("name must be 255 characters or less (got %d)", len(p.Name))
	}
	return nil
}

// Project groups folders and files. PlatformID is nil for unattached
// projects, which form their own name namespace.
type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	OwnerID      int64     `json:"owner_id"`
	PlatformID   *int64    `json:"platform_id,omitempty"`
	IsRestricted bool      `json:"is_restricted,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks if the project has valid field values
func (p *Project) Validate() error {
	if len(p.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(p.Name) > 255 {
		return fmt.Errorf("name must be 255 characters or less (got %d)", len(p.Name))
	}
	return nil
}

// Folder is a node in the tree under a project. ParentID is nil for
// top-level folders. The parent chain is acyclic; moves that would
// introduce a cycle are rejected.
type Folder struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the folder has valid field values
func (f *Folder) Validate() error {
	if len(f.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if f.ProjectID == 0 {
		return fmt.Errorf("project_id is required")
	}
	return nil
}

// File is a leaf under a project, optionally inside a folder. The
// Server*/SyncStatus/DownloadedAt fields exist only in the offline schema
// and track the server-side provenance of downloaded files.
type File struct {
	ID               int64           `json:"id"`
	ProjectID        int64           `json:"project_id"`
	FolderID         *int64          `json:"folder_id,omitempty"`
	Name             string          `json:"name"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	Format           string          `json:"format,omitempty"` // xlsx, xml, txt, tsv, tmx
	RowCount         int             `json:"row_count"`
	SourceLanguage   string          `json:"source_language,omitempty"`
	TargetLanguage   string          `json:"target_language,omitempty"`
	ExtraData        json.RawMessage `json:"extra_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	SyncStatus      SyncStatus `json:"sync_status,omitempty"`
	ServerID        *int64     `json:"server_id,omitempty"`
	ServerProjectID *int64     `json:"server_project_id,omitempty"`
	ServerFolderID  *int64     `json:"server_folder_id,omitempty"`
	DownloadedAt    *time.Time `json:"downloaded_at,omitempty"`
}

// Validate checks if the file has valid field values
func (f *File) Validate() error {
	if len(f.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if f.ProjectID == 0 {
		return fmt.Errorf("project_id is required")
	}
	if f.RowCount < 0 {
		return fmt.Errorf("row_count cannot be negative")
	}
	if f.SyncStatus != "" && !f.SyncStatus.IsValid() {
		return fmt.Errorf("invalid sync status: %s", f.SyncStatus)
	}
	return nil
}

// Row is a single translation unit inside a file. RowNum is 1-based and
// defines display order. QAFlagCount is materialized and always equals the
// number of unresolved QA results for the row.
type Row struct {
	ID          int64           `json:"id"`
	FileID      int64           `json:"file_id"`
	RowNum      int             `json:"row_num"`
	StringID    string          `json:"string_id,omitempty"`
	Source      string          `json:"source"`
	Target      string          `json:"target,omitempty"`
	Memo        string          `json:"memo,omitempty"`
	Status      RowStatus       `json:"status,omitempty"`
	QAFlagCount int             `json:"qa_flag_count,omitempty"`
	ExtraData   json.RawMessage `json:"extra_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	UpdatedBy   int64           `json:"updated_by,omitempty"`

	SyncStatus   SyncStatus `json:"sync_status,omitempty"`
	ServerID     *int64     `json:"server_id,omitempty"`
	ServerFileID *int64     `json:"server_file_id,omitempty"`
}

// Validate checks if the row has valid field values
func (r *Row) Validate() error {
	if r.FileID == 0 {
		return fmt.Errorf("file_id is required")
	}
	if r.RowNum < 1 {
		return fmt.Errorf("row_num must be 1 or greater (got %d)", r.RowNum)
	}
	if r.Status != "" && !r.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if r.QAFlagCount < 0 {
		return fmt.Errorf("qa_flag_count cannot be negative")
	}
	return nil
}

// RowStatus represents the translation state of a row
type RowStatus string

// Row status constants
const (
	RowPending    RowStatus = "pending"
	RowTranslated RowStatus = "translated"
	RowReviewed   RowStatus = "reviewed"
	RowApproved   RowStatus = "approved"
)

// IsValid checks if the row status value is valid
func (s RowStatus) IsValid() bool {
	switch s {
	case RowPending, RowTranslated, RowReviewed, RowApproved:
		return true
	}
	return false
}

// IsConfirmed reports whether the row has passed translation, meaning its
// target is usable for TM auto-add.
func (s RowStatus) IsConfirmed() bool {
	return s == RowTranslated || s == RowReviewed || s == RowApproved
}

// SyncStatus tracks offline provenance for rows and files.
// SyncLocal and SyncOrphaned apply to files only.
type SyncStatus string

// Sync status constants
const (
	SyncSynced   SyncStatus = "synced"   // matches the server copy
	SyncModified SyncStatus = "modified" // local edits pending upload
	SyncNew      SyncStatus = "new"      // never existed on the server
	SyncLocal    SyncStatus = "local"    // offline-only file, no server link
	SyncOrphaned SyncStatus = "orphaned" // server reference lost
)

// IsValid checks if the sync status value is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncSynced, SyncModified, SyncNew, SyncLocal, SyncOrphaned:
		return true
	}
	return false
}

// ValidForRow checks validity for row-level sync status, which excludes
// the file-only states.
func (s SyncStatus) ValidForRow() bool {
	switch s {
	case SyncSynced, SyncModified, SyncNew:
		return true
	}
	return false
}

// TM is a translation memory: a named store of source/target pairs with
// a materialized entry count.
type TM struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     int64      `json:"owner_id,omitempty"`
	SourceLang  string     `json:"source_lang"`
	TargetLang  string     `json:"target_lang"`
	EntryCount  int        `json:"entry_count"`
	Mode        TMMode     `json:"mode,omitempty"`
	Status      TMStatus   `json:"status,omitempty"`
	IndexedAt   *time.Time `json:"indexed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks if the TM has valid field values
func (t *TM) Validate() error {
	if len(t.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(t.Name) > 255 {
		return fmt.Errorf("name must be 255 characters or less (got %d)", len(t.Name))
	}
	if t.Mode != "" && !t.Mode.IsValid() {
		return fmt.Errorf("invalid mode: %s", t.Mode)
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return nil
}

// TMMode controls duplicate handling at entry ingest
type TMMode string

// TM mode constants
const (
	// TMStandard keeps one target per source; the most frequent target wins.
	TMStandard TMMode = "standard"
	// TMStringID keeps every distinct (source, string_id) pair.
	TMStringID TMMode = "stringid"
)

// IsValid checks if the TM mode value is valid
func (m TMMode) IsValid() bool {
	return m == TMStandard || m == TMStringID
}

// TMStatus represents the indexing lifecycle of a TM
type TMStatus string

// TM status constants
const (
	TMPending  TMStatus = "pending"
	TMIndexing TMStatus = "indexing"
	TMReady    TMStatus = "ready"
	TMError    TMStatus = "error"
)

// IsValid checks if the TM status value is valid
func (s TMStatus) IsValid() bool {
	switch s {
	case TMPending, TMIndexing, TMReady, TMError:
		return true
	}
	return false
}

// TMEntry is a single source/target pair inside a TM. SourceHash is a
// deterministic hash of the normalized source text used for exact lookup.
type TMEntry struct {
	ID          int64      `json:"id"`
	TMID        int64      `json:"tm_id"`
	SourceText  string     `json:"source_text"`
	TargetText  string     `json:"target_text"`
	SourceHash  string     `json:"source_hash,omitempty"`
	StringID    string     `json:"string_id,omitempty"`
	IsConfirmed bool       `json:"is_confirmed,omitempty"`
	CreatedBy   int64      `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UpdatedBy   int64      `json:"updated_by,omitempty"`
	ConfirmedBy *int64     `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Validate checks if the entry has valid field values
func (e *TMEntry) Validate() error {
	if e.TMID == 0 {
		return fmt.Errorf("tm_id is required")
	}
	if len(e.SourceText) == 0 {
		return fmt.Errorf("source_text is required")
	}
	return nil
}

// TMAssignment links a TM to exactly one scope. At most one of
// PlatformID/ProjectID/FolderID may be set; all nil means unassigned.
// Activation requires a non-empty scope.
type TMAssignment struct {
	ID          int64      `json:"id"`
	TMID        int64      `json:"tm_id"`
	PlatformID  *int64     `json:"platform_id,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
	FolderID    *int64     `json:"folder_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TMProjectLink is the ordered auto-add list: when a row in the project is
// confirmed, its pair is appended to the lowest-priority linked TM.
type TMProjectLink struct {
	ID        int64     `json:"id"`
	TMID      int64     `json:"tm_id"`
	ProjectID int64     `json:"project_id"`
	Priority  int       `json:"priority"` // lower = higher priority
	CreatedAt time.Time `json:"created_at"`
}

// TMIndexInfo describes one search index built over a TM.
type TMIndexInfo struct {
	ID        int64      `json:"id"`
	TMID      int64      `json:"tm_id"`
	IndexType string     `json:"index_type"` // e.g. hash, embedding
	Status    TMStatus   `json:"status"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	BuiltAt   *time.Time `json:"built_at,omitempty"`
}

// QAResult records one quality-assurance finding against a row.
type QAResult struct {
	ID         int64           `json:"id"`
	RowID      int64           `json:"row_id"`
	FileID     int64           `json:"file_id"`
	CheckType  QACheckType     `json:"check_type"`
	Severity   QASeverity      `json:"severity"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy *int64          `json:"resolved_by,omitempty"`
}

// IsResolved reports whether the finding has been resolved.
func (q *QAResult) IsResolved() bool {
	return q.ResolvedAt != nil
}

// Validate checks if the QA result has valid field values
func (q *QAResult) Validate() error {
	if q.RowID == 0 {
		return fmt.Errorf("row_id is required")
	}
	if q.FileID == 0 {
		return fmt.Errorf("file_id is required")
	}
	if !q.CheckType.IsValid() {
		return fmt.Errorf("invalid check type: %s", q.CheckType)
	}
	if !q.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", q.Severity)
	}
	return nil
}

// QACheckType categorizes QA findings
type QACheckType string

// QA check type constants
const (
	QAPattern   QACheckType = "pattern"   // placeholder/tag mismatches
	QALine      QACheckType = "line"      // line count mismatches
	QATerm      QACheckType = "term"      // glossary term violations
	QACharacter QACheckType = "character" // forbidden or suspicious characters
	QAGrammar   QACheckType = "grammar"   // external grammar service findings
)

// IsValid checks if the check type value is valid
func (c QACheckType) IsValid() bool {
	switch c {
	case QAPattern, QALine, QATerm, QACharacter, QAGrammar:
		return true
	}
	return false
}

// QASeverity ranks QA findings
type QASeverity string

// QA severity constants
const (
	QAError   QASeverity = "error"
	QAWarning QASeverity = "warning"
)

// IsValid checks if the severity value is valid
func (s QASeverity) IsValid() bool {
	return s == QAError || s == QAWarning
}

// QASummary aggregates findings for one file.
type QASummary struct {
	FileID     int64                 `json:"file_id"`
	Total      int                   `json:"total"`
	Unresolved int                   `json:"unresolved"`
	ByCheck    map[QACheckType]int   `json:"by_check,omitempty"`
	BySeverity map[QASeverity]int    `json:"by_severity,omitempty"`
}

// TrashEntry is a soft-deleted entity plus the serialized subtree needed
// to restore it. ItemData holds the recursive JSON payload.
type TrashEntry struct {
	ID              int64           `json:"id"`
	ItemType        TrashItemType   `json:"item_type"`
	ItemID          int64           `json:"item_id"`
	ItemName        string          `json:"item_name"`
	ItemData        json.RawMessage `json:"item_data,omitempty"`
	ParentProjectID *int64          `json:"parent_project_id,omitempty"`
	ParentFolderID  *int64          `json:"parent_folder_id,omitempty"`
	DeletedBy       int64           `json:"deleted_by"`
	DeletedAt       time.Time       `json:"deleted_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Status          TrashStatus     `json:"status"`
}

// IsExpired returns true if the entry has passed its retention window.
// Restored entries never expire; they are gone already.
func (t *TrashEntry) IsExpired(now time.Time) bool {
	return t.Status == TrashTrashed && now.After(t.ExpiresAt)
}

// TrashItemType identifies what kind of entity a trash entry holds
type TrashItemType string

// Trash item type constants
const (
	TrashFile        TrashItemType = "file"
	TrashFolder      TrashItemType = "folder"
	TrashProject     TrashItemType = "project"
	TrashPlatform    TrashItemType = "platform"
	TrashLocalFile   TrashItemType = "local-file"
	TrashLocalFolder TrashItemType = "local-folder"
)

// IsValid checks if the item type value is valid
func (t TrashItemType) IsValid() bool {
	switch t {
	case TrashFile, TrashFolder, TrashProject, TrashPlatform, TrashLocalFile, TrashLocalFolder:
		return true
	}
	return false
}

// TrashStatus is the lifecycle state of a trash entry
type TrashStatus string

// Trash status constants
const (
	TrashTrashed  TrashStatus = "trashed"
	TrashRestored TrashStatus = "restored"
)

// Capability is a named permission grant for privileged operations.
// Grants exist only in the online backend.
type Capability struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Name      CapabilityName `json:"capability_name"`
	GrantedBy int64          `json:"granted_by"`
	GrantedAt time.Time      `json:"granted_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired returns true if the grant has an expiry in the past.
func (c *Capability) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CapabilityName identifies a privileged operation
type CapabilityName string

// Capability name constants
const (
	CapDeletePlatform   CapabilityName = "delete_platform"
	CapDeleteProject    CapabilityName = "delete_project"
	CapCrossProjectMove CapabilityName = "cross_project_move"
	CapEmptyTrash       CapabilityName = "empty_trash"
)

// IsValid checks if the capability name is valid
func (c CapabilityName) IsValid() bool {
	switch c {
	case CapDeletePlatform, CapDeleteProject, CapCrossProjectMove, CapEmptyTrash:
		return true
	}
	return false
}

// RowEdit is one entry in a row's edit history.
type RowEdit struct {
	ID       int64     `json:"id"`
	RowID    int64     `json:"row_id"`
	Field    string    `json:"field"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
	EditedBy int64     `json:"edited_by,omitempty"`
	EditedAt time.Time `json:"edited_at"`
}

// LocalChange is one entry in the offline pending-change journal. Every
// offline edit to a synced entity appends one record per changed field.
type LocalChange struct {
	ID         int64        `json:"id"`
	EntityType string       `json:"entity_type"` // row or file
	EntityID   int64        `json:"entity_id"`
	Field      string       `json:"field"`
	OldValue   string       `json:"old_value,omitempty"`
	NewValue   string       `json:"new_value,omitempty"`
	SyncStatus ChangeStatus `json:"sync_status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ChangeStatus is the upload state of a journaled local change
type ChangeStatus string

// Local change status constants
const (
	ChangePending   ChangeStatus = "pending"
	ChangeSynced    ChangeStatus = "synced"
	ChangeDiscarded ChangeStatus = "discarded"
)

// IsValid checks if the change status value is valid
func (s ChangeStatus) IsValid() bool {
	switch s {
	case ChangePending, ChangeSynced, ChangeDiscarded:
		return true
	}
	return false
}

// SyncSubscription tracks which server entities the offline store mirrors.
type SyncSubscription struct {
	ID           int64      `json:"id"`
	EntityType   string     `json:"entity_type"` // project, folder or file
	ServerID     int64      `json:"server_id"`
	DownloadedAt time.Time  `json:"downloaded_at"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// GlossaryTerm is a short confirmed source/target pair used by the QA
// term check.
type GlossaryTerm struct {
	TMID   int64  `json:"tm_id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// FolderContents is a folder plus its direct children.
type FolderContents struct {
	Folder     *Folder   `json:"folder"`
	Files      []*File   `json:"files"`
	Subfolders []*Folder `json:"subfolders"`
}
