package types

// ScopeKind names a level in the Platform → Project → Folder chain.
type ScopeKind string

// Scope kind constants, ordered by precedence (folder wins over project,
// project over platform).
const (
	ScopeUnassigned ScopeKind = "unassigned"
	ScopePlatform   ScopeKind = "platform"
	ScopeProject    ScopeKind = "project"
	ScopeFolder     ScopeKind = "folder"
)

// TMTarget is the tagged union passed to TM assignment. At most one field
// may be set; the zero value means unassigned.
type TMTarget struct {
	PlatformID *int64 `json:"platform_id,omitempty"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	FolderID   *int64 `json:"folder_id,omitempty"`
}

// ScopeCount returns how many scope fields are set.
func (t TMTarget) ScopeCount() int {
	n := 0
	if t.PlatformID != nil {
		n++
	}
	if t.ProjectID != nil {
		n++
	}
	if t.FolderID != nil {
		n++
	}
	return n
}

// IsUnassigned reports whether no scope is set.
func (t TMTarget) IsUnassigned() bool {
	return t.ScopeCount() == 0
}

// Kind returns the scope level of the target. Targets with more than one
// field set are invalid; Kind returns the highest-precedence one.
func (t TMTarget) Kind() ScopeKind {
	switch {
	case t.FolderID != nil:
		return ScopeFolder
	case t.ProjectID != nil:
		return ScopeProject
	case t.PlatformID != nil:
		return ScopePlatform
	}
	return ScopeUnassigned
}

// PlatformTarget builds a platform-scoped target.
func PlatformTarget(id int64) TMTarget { return TMTarget{PlatformID: &id} }

// ProjectTarget builds a project-scoped target.
func ProjectTarget(id int64) TMTarget { return TMTarget{ProjectID: &id} }

// FolderTarget builds a folder-scoped target.
func FolderTarget(id int64) TMTarget { return TMTarget{FolderID: &id} }

// ScopedTM is a TM tagged with the scope level that made it applicable to
// a file. GetActiveForFile returns folder-scope TMs first, then project,
// then platform.
type ScopedTM struct {
	*TM
	Scope ScopeKind `json:"scope"`
}

// EntryMatch is one TM search hit. Score is 0-100: exact matches score
// 100, substring matches 80, similarity matches the scaled trigram
// similarity. Values below 100 are not comparable across backends.
type EntryMatch struct {
	Entry *TMEntry `json:"entry"`
	Score float64  `json:"score"`
}

// TMTree is the assignment tree returned by GetTree.
type TMTree struct {
	Unassigned []*TM             `json:"unassigned"`
	Platforms  []*TMTreePlatform `json:"platforms"`
}

// TMTreePlatform is one platform node in the assignment tree.
type TMTreePlatform struct {
	Platform *Platform        `json:"platform"`
	TMs      []*TM            `json:"tms,omitempty"`
	Projects []*TMTreeProject `json:"projects,omitempty"`
}

// TMTreeProject is one project node in the assignment tree.
type TMTreeProject struct {
	Project *Project        `json:"project"`
	TMs     []*TM           `json:"tms,omitempty"`
	Folders []*TMTreeFolder `json:"folders,omitempty"`
}

// TMTreeFolder is one folder node in the assignment tree.
type TMTreeFolder struct {
	Folder  *Folder         `json:"folder"`
	TMs     []*TM           `json:"tms,omitempty"`
	Folders []*TMTreeFolder `json:"folders,omitempty"`
}
