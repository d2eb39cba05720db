package sqlite

import (
	"strings"

	"github.com/lockitd/lockit/internal/storage"
)

// schemaTemplate is instantiated once per schema family with {p} replaced
// by the family's table prefix. Timestamps are stored as canonical
// ISO-8601 UTC millisecond text so lexicographic comparison matches
// chronological order; the sync merger depends on that.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS {p}platforms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id INTEGER NOT NULL DEFAULT 0,
    is_restricted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
-- Name uniqueness is enforced by the repositories, not the index: a
-- synced download can land a second "Offline Storage" platform beside
-- the well-known id = -1 copy.
CREATE INDEX IF NOT EXISTS idx_{p}platforms_name ON {p}platforms(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS {p}projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id INTEGER NOT NULL DEFAULT 0,
    platform_id INTEGER,
    is_restricted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_{p}projects_platform ON {p}projects(platform_id);

CREATE TABLE IF NOT EXISTS {p}folders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    parent_id INTEGER,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_{p}folders_project ON {p}folders(project_id);
CREATE INDEX IF NOT EXISTS idx_{p}folders_parent ON {p}folders(parent_id);

CREATE TABLE IF NOT EXISTS {p}files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    folder_id INTEGER,
    name TEXT NOT NULL,
    original_filename TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL DEFAULT '',
    row_count INTEGER NOT NULL DEFAULT 0,
    source_language TEXT NOT NULL DEFAULT '',
    target_language TEXT NOT NULL DEFAULT '',
    extra_data TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    sync_status TEXT NOT NULL DEFAULT '',
    server_id INTEGER,
    server_project_id INTEGER,
    server_folder_id INTEGER,
    downloaded_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_{p}files_project ON {p}files(project_id);
CREATE INDEX IF NOT EXISTS idx_{p}files_folder ON {p}files(folder_id);

CREATE TABLE IF NOT EXISTS {p}rows (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL,
    row_num INTEGER NOT NULL,
    string_id TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    target TEXT NOT NULL DEFAULT '',
    memo TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    qa_flag_count INTEGER NOT NULL DEFAULT 0,
    extra_data TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    updated_by INTEGER NOT NULL DEFAULT 0,
    sync_status TEXT NOT NULL DEFAULT '',
    server_id INTEGER,
    server_file_id INTEGER
);
CREATE INDEX IF NOT EXISTS idx_{p}rows_file ON {p}rows(file_id, row_num);

CREATE TABLE IF NOT EXISTS {p}row_edits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    row_id INTEGER NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT NOT NULL DEFAULT '',
    new_value TEXT NOT NULL DEFAULT '',
    edited_by INTEGER NOT NULL DEFAULT 0,
    edited_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_{p}row_edits_row ON {p}row_edits(row_id);

CREATE TABLE IF NOT EXISTS {p}tms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id INTEGER NOT NULL DEFAULT 0,
    source_lang TEXT NOT NULL DEFAULT '',
    target_lang TEXT NOT NULL DEFAULT '',
    entry_count INTEGER NOT NULL DEFAULT 0,
    mode TEXT NOT NULL DEFAULT 'standard',
    status TEXT NOT NULL DEFAULT 'pending',
    indexed_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_{p}tms_name ON {p}tms(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS {p}tm_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tm_id INTEGER NOT NULL,
    source_text TEXT NOT NULL,
    target_text TEXT NOT NULL DEFAULT '',
    source_hash TEXT NOT NULL,
    string_id TEXT NOT NULL DEFAULT '',
    is_confirmed INTEGER NOT NULL DEFAULT 0,
    created_by INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    updated_by INTEGER NOT NULL DEFAULT 0,
    confirmed_by INTEGER,
    confirmed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_{p}tm_entries_tm ON {p}tm_entries(tm_id);
CREATE INDEX IF NOT EXISTS idx_{p}tm_entries_hash ON {p}tm_entries(tm_id, source_hash);

CREATE TABLE IF NOT EXISTS {p}tm_assignments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tm_id INTEGER NOT NULL UNIQUE,
    platform_id INTEGER,
    project_id INTEGER,
    folder_id INTEGER,
    is_active INTEGER NOT NULL DEFAULT 0,
    activated_at TEXT,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_{p}tm_assignments_scope ON {p}tm_assignments(platform_id, project_id, folder_id);

CREATE TABLE IF NOT EXISTS {p}tm_project_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tm_id INTEGER NOT NULL,
    project_id INTEGER NOT NULL,
    priority INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE(tm_id, project_id)
);
CREATE INDEX IF NOT EXISTS idx_{p}tm_project_links_project ON {p}tm_project_links(project_id, priority);

CREATE TABLE IF NOT EXISTS {p}tm_indexes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tm_id INTEGER NOT NULL,
    index_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    built_at TEXT,
    UNIQUE(tm_id, index_type)
);

CREATE TABLE IF NOT EXISTS {p}qa_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    row_id INTEGER NOT NULL,
    file_id INTEGER NOT NULL,
    check_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    resolved_at TEXT,
    resolved_by INTEGER
);
CREATE INDEX IF NOT EXISTS idx_{p}qa_results_row ON {p}qa_results(row_id);
CREATE INDEX IF NOT EXISTS idx_{p}qa_results_file ON {p}qa_results(file_id);

CREATE TABLE IF NOT EXISTS {p}trash (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_type TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    item_name TEXT NOT NULL,
    item_data TEXT NOT NULL DEFAULT '',
    parent_project_id INTEGER,
    parent_folder_id INTEGER,
    deleted_by INTEGER NOT NULL DEFAULT 0,
    deleted_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'trashed'
);
CREATE INDEX IF NOT EXISTS idx_{p}trash_user ON {p}trash(deleted_by, status);
CREATE INDEX IF NOT EXISTS idx_{p}trash_expiry ON {p}trash(expires_at, status);

CREATE TABLE IF NOT EXISTS {p}capabilities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    capability_name TEXT NOT NULL,
    granted_by INTEGER NOT NULL DEFAULT 0,
    granted_at TEXT NOT NULL,
    expires_at TEXT,
    UNIQUE(user_id, capability_name)
);
`

// sharedSchema holds the journaling tables that exist once per database,
// outside either schema family.
const sharedSchema = `
CREATE TABLE IF NOT EXISTS local_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT NOT NULL DEFAULT '',
    new_value TEXT NOT NULL DEFAULT '',
    sync_status TEXT NOT NULL DEFAULT 'pending',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_local_changes_status ON local_changes(sync_status);
CREATE INDEX IF NOT EXISTS idx_local_changes_entity ON local_changes(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS sync_subscriptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    server_id INTEGER NOT NULL,
    downloaded_at TEXT NOT NULL,
    last_synced_at TEXT,
    UNIQUE(entity_type, server_id)
);
`

// schemaFor instantiates the template for one schema family.
func schemaFor(mode storage.Mode) string {
	return strings.ReplaceAll(schemaTemplate, "{p}", mode.Prefix())
}
