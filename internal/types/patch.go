package types

// RowPatch is a partial update to a row. Nil fields are left untouched.
// Setting Target on a pending row auto-advances Status to translated
// unless Status is set explicitly in the same patch.
type RowPatch struct {
	Source    *string    `json:"source,omitempty"`
	Target    *string    `json:"target,omitempty"`
	Memo      *string    `json:"memo,omitempty"`
	StringID  *string    `json:"string_id,omitempty"`
	Status    *RowStatus `json:"status,omitempty"`
	UpdatedBy int64      `json:"updated_by,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p RowPatch) IsEmpty() bool {
	return p.Source == nil && p.Target == nil && p.Memo == nil &&
		p.StringID == nil && p.Status == nil
}

// RowUpdate pairs a row ID with its patch for bulk updates.
type RowUpdate struct {
	ID int64 `json:"id"`
	RowPatch
}

// SearchMode controls how the search term in a RowQuery matches.
type SearchMode string

// Search mode constants
const (
	SearchContain    SearchMode = "contain"
	SearchExact      SearchMode = "exact"
	SearchNotContain SearchMode = "not_contain"
	SearchFuzzy      SearchMode = "fuzzy"
)

// IsValid checks if the search mode value is valid
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchContain, SearchExact, SearchNotContain, SearchFuzzy:
		return true
	}
	return false
}

// SearchField names a row column the search term is matched against.
type SearchField string

// Search field constants
const (
	FieldStringID SearchField = "string_id"
	FieldSource   SearchField = "source"
	FieldTarget   SearchField = "target"
)

// IsValid checks if the search field value is valid
func (f SearchField) IsValid() bool {
	switch f {
	case FieldStringID, FieldSource, FieldTarget:
		return true
	}
	return false
}

// RowFilterType is the coarse row filter applied before search.
type RowFilterType string

// Row filter constants
const (
	FilterAll         RowFilterType = "all"
	FilterConfirmed   RowFilterType = "confirmed"
	FilterUnconfirmed RowFilterType = "unconfirmed"
	FilterQAFlagged   RowFilterType = "qa_flagged"
)

// IsValid checks if the filter type value is valid
func (f RowFilterType) IsValid() bool {
	switch f {
	case FilterAll, FilterConfirmed, FilterUnconfirmed, FilterQAFlagged:
		return true
	}
	return false
}

// RowQuery selects a page of rows from a file. Page is 1-based. A zero
// Limit means no paging. SearchFields defaults to {source, target} when
// Search is set and no fields are named.
type RowQuery struct {
	Page         int           `json:"page,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	Search       string        `json:"search,omitempty"`
	SearchMode   SearchMode    `json:"search_mode,omitempty"`
	SearchFields []SearchField `json:"search_fields,omitempty"`
	Status       *RowStatus    `json:"status,omitempty"`
	Filter       RowFilterType `json:"filter,omitempty"`
}

// Offset returns the row offset implied by Page and Limit.
func (q RowQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Fields returns the effective search fields, applying the default.
func (q RowQuery) Fields() []SearchField {
	if len(q.SearchFields) > 0 {
		return q.SearchFields
	}
	return []SearchField{FieldSource, FieldTarget}
}

// EntryInput is one source/target tuple handed to bulk entry ingest.
// The file parsers produce these; the core never sees raw uploads.
type EntryInput struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	StringID string `json:"string_id,omitempty"`
}

// SimilarQuery asks for rows whose source text resembles Source.
// FileID/ProjectID narrow the search; ExcludeRowID drops the row being
// edited from its own suggestions.
type SimilarQuery struct {
	Source       string  `json:"source"`
	FileID       *int64  `json:"file_id,omitempty"`
	ProjectID    *int64  `json:"project_id,omitempty"`
	ExcludeRowID *int64  `json:"exclude_row_id,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	MaxResults   int     `json:"max_results,omitempty"`
}

// RowMatch is one similarity hit with its score in [0, 1].
type RowMatch struct {
	Row        *Row    `json:"row"`
	Similarity float64 `json:"similarity"`
}
