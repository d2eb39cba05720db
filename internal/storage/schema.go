package storage

import "fmt"

// Mode selects which physical schema family a store is bound to. The
// server family uses ldm_* tables; the offline family uses offline_*
// tables for locally created entities.
type Mode string

// Schema mode constants
const (
	ModeServer  Mode = "server"
	ModeOffline Mode = "offline"
)

// IsValid checks if the mode value is valid
func (m Mode) IsValid() bool {
	return m == ModeServer || m == ModeOffline
}

// Prefix returns the physical table-name prefix for the mode.
func (m Mode) Prefix() string {
	if m == ModeOffline {
		return "offline_"
	}
	return "ldm_"
}

// logicalTables is the closed set of logical names repositories may ask
// for. The bool marks names that stay unprefixed: the offline journaling
// tables exist once per database, not once per schema family.
var logicalTables = map[string]bool{
	"platforms":        false,
	"projects":         false,
	"folders":          false,
	"files":            false,
	"rows":             false,
	"row_edits":        false,
	"tms":              false,
	"tm_entries":       false,
	"tm_assignments":   false,
	"tm_project_links": false,
	"tm_indexes":       false,
	"qa_results":       false,
	"trash":            false,
	"capabilities":     false,
	"local_changes":    true,
	"sync_subscriptions": true,
}

// fileSyncColumns and rowSyncColumns are the provenance columns present
// only in databases that sync (the embedded store). The online backend
// never carries them and must not synthesize values for them.
var (
	fileSyncColumns = []string{"sync_status", "server_id", "server_project_id", "server_folder_id", "downloaded_at"}
	rowSyncColumns  = []string{"sync_status", "server_id", "server_file_id"}
)

// Binding resolves logical table names to physical ones for a single
// schema family and answers which optional columns exist. Repositories
// read every table name through a Binding; queries contain no literal
// table names. A Binding is pure lookup and carries no state.
type Binding struct {
	mode        Mode
	syncColumns bool
}

// NewBinding returns the binding for mode. syncColumns declares whether
// the underlying database carries the offline provenance columns; it is
// true for both families inside the embedded store and false on the
// server backend.
func NewBinding(mode Mode, syncColumns bool) Binding {
	if !mode.IsValid() {
		panic(fmt.Sprintf("storage: invalid schema mode %q", mode))
	}
	return Binding{mode: mode, syncColumns: syncColumns}
}

// Mode returns the schema family this binding resolves to.
func (b Binding) Mode() Mode { return b.mode }

// Table maps a logical table name to its physical name. Unknown logical
// names are a programmer error and panic.
func (b Binding) Table(logical string) string {
	unprefixed, ok := logicalTables[logical]
	if !ok {
		panic(fmt.Sprintf("storage: unknown logical table %q", logical))
	}
	if unprefixed {
		return logical
	}
	return b.mode.Prefix() + logical
}

// HasSyncColumns reports whether the database carries the offline
// provenance columns.
func (b Binding) HasSyncColumns() bool { return b.syncColumns }

// FileSyncColumns returns the file provenance column names, or nil when
// the database does not carry them.
func (b Binding) FileSyncColumns() []string {
	if !b.syncColumns {
		return nil
	}
	return fileSyncColumns
}

// RowSyncColumns returns the row provenance column names, or nil when the
// database does not carry them.
func (b Binding) RowSyncColumns() []string {
	if !b.syncColumns {
		return nil
	}
	return rowSyncColumns
}

// HasColumn reports whether the named optional column exists on the given
// logical table under this binding. Columns that are always present
// return true.
func (b Binding) HasColumn(logical, column string) bool {
	var optional []string
	switch logical {
	case "files":
		optional = fileSyncColumns
	case "rows":
		optional = rowSyncColumns
	default:
		return true
	}
	for _, c := range optional {
		if c == column {
			return b.syncColumns
		}
	}
	return true
}
