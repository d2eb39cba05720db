package postgres

// schema is the online DDL. Timestamps are stored as canonical ISO-8601
// UTC millisecond text, same as the embedded backend, so merge-timestamp
// comparison is lexicographic on both. pg_trgm backs the similarity
// features that exist only here.
const schema = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS ldm_platforms (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL CHECK (length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id BIGINT NOT NULL DEFAULT 0,
    is_restricted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ldm_platforms_name ON ldm_platforms (lower(name));

CREATE TABLE IF NOT EXISTS ldm_projects (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL CHECK (length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id BIGINT NOT NULL DEFAULT 0,
    platform_id BIGINT,
    is_restricted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ldm_projects_platform ON ldm_projects (platform_id);

CREATE TABLE IF NOT EXISTS ldm_folders (
    id BIGSERIAL PRIMARY KEY,
    project_id BIGINT NOT NULL,
    parent_id BIGINT,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ldm_folders_project ON ldm_folders (project_id);
CREATE INDEX IF NOT EXISTS idx_ldm_folders_parent ON ldm_folders (parent_id);

CREATE TABLE IF NOT EXISTS ldm_files (
    id BIGSERIAL PRIMARY KEY,
    project_id BIGINT NOT NULL,
    folder_id BIGINT,
    name TEXT NOT NULL,
    original_filename TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL DEFAULT '',
    row_count INTEGER NOT NULL DEFAULT 0,
    source_language TEXT NOT NULL DEFAULT '',
    target_language TEXT NOT NULL DEFAULT '',
    extra_data TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ldm_files_project ON ldm_files (project_id);
CREATE INDEX IF NOT EXISTS idx_ldm_files_folder ON ldm_files (folder_id);

CREATE TABLE IF NOT EXISTS ldm_rows (
    id BIGSERIAL PRIMARY KEY,
    file_id BIGINT NOT NULL,
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
    updated_by BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_ldm_rows_file ON ldm_rows (file_id, row_num);
CREATE INDEX IF NOT EXISTS idx_ldm_rows_source_trgm ON ldm_rows USING gin (source gin_trgm_ops);

CREATE TABLE IF NOT EXISTS ldm_row_edits (
    id BIGSERIAL PRIMARY KEY,
    row_id BIGINT NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT NOT NULL DEFAULT '',
    new_value TEXT NOT NULL DEFAULT '',
    edited_by BIGINT NOT NULL DEFAULT 0,
    edited_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ldm_row_edits_row ON ldm_row_edits (row_id);

CREATE TABLE IF NOT EXISTS ldm_tms (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL CHECK (length(name) <= 255),
    description TEXT NOT NULL DEFAULT '',
    owner_id BIGINT NOT NULL DEFAULT 0,
    source_lang TEXT NOT NULL DEFAULT '',
    target_lang TEXT NOT NULL DEFAULT '',
    entry_count INTEGER NOT NULL DEFAULT 0,
    mode TEXT NOT NULL DEFAULT 'standard',
    status TEXT NOT NULL DEFAULT 'pending',
    indexed_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ldm_tms_name ON ldm_tms (lower(name));

CREATE TABLE IF NOT EXISTS ldm_tm_entries (
    id BIGSERIAL PRIMARY KEY,
    tm_id BIGINT NOT NULL,
    source_text TEXT NOT NULL,
    target_text TEXT NOT NULL DEFAULT '',
    source_hash TEXT NOT NULL,
    string_id TEXT NOT NULL DEFAULT '',
    is_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    created_by BIGINT NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    updated_by BIGINT NOT NULL DEFAULT 0,
    confirmed_by BIGINT,
    confirmed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_ldm_tm_entries_tm ON ldm_tm_entries (tm_id);
CREATE INDEX IF NOT EXISTS idx_ldm_tm_entries_hash ON ldm_tm_entries (tm_id, source_hash);
CREATE INDEX IF NOT EXISTS idx_ldm_tm_entries_src_trgm ON ldm_tm_entries USING gin (source_text gin_trgm_ops);

CREATE TABLE IF NOT EXISTS ldm_tm_assignments (
    id BIGSERIAL PRIMARY KEY,
    tm_id BIGINT NOT NULL UNIQUE,
    platform_id BIGINT,
    project_id BIGINT,
    folder_id BIGINT,
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    activated_at TEXT,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ldm_tm_assignments_scope ON ldm_tm_assignments (platform_id, project_id, folder_id);

CREATE TABLE IF NOT EXISTS ldm_tm_project_links (
    id BIGSERIAL PRIMARY KEY,
    tm_id BIGINT NOT NULL,
    project_id BIGINT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE (tm_id, project_id)
);
CREATE INDEX IF NOT EXISTS idx_ldm_tm_project_links_project ON ldm_tm_project_links (project_id, priority);

CREATE TABLE IF NOT EXISTS ldm_tm_indexes (
    id BIGSERIAL PRIMARY KEY,
    tm_id BIGINT NOT NULL,
    index_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    size_bytes BIGINT NOT NULL DEFAULT 0,
    built_at TEXT,
    UNIQUE (tm_id, index_type)
);

CREATE TABLE IF NOT EXISTS ldm_qa_results (
    id BIGSERIAL PRIMARY KEY,
    row_id BIGINT NOT NULL,
    file_id BIGINT NOT NULL,
    check_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    resolved_at TEXT,
    resolved_by BIGINT
);
CREATE INDEX IF NOT EXISTS idx_ldm_qa_results_row ON ldm_qa_results (row_id);
CREATE INDEX IF NOT EXISTS idx_ldm_qa_results_file ON ldm_qa_results (file_id);

CREATE TABLE IF NOT EXISTS ldm_trash (
    id BIGSERIAL PRIMARY KEY,
    item_type TEXT NOT NULL,
    item_id BIGINT NOT NULL,
    item_name TEXT NOT NULL,
    item_data TEXT NOT NULL DEFAULT '',
    parent_project_id BIGINT,
    parent_folder_id BIGINT,
    deleted_by BIGINT NOT NULL DEFAULT 0,
    deleted_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'trashed'
);
CREATE INDEX IF NOT EXISTS idx_ldm_trash_user ON ldm_trash (deleted_by, status);
CREATE INDEX IF NOT EXISTS idx_ldm_trash_expiry ON ldm_trash (expires_at, status);

CREATE TABLE IF NOT EXISTS ldm_capabilities (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    capability_name TEXT NOT NULL,
    granted_by BIGINT NOT NULL DEFAULT 0,
    granted_at TEXT NOT NULL,
    expires_at TEXT,
    UNIQUE (user_id, capability_name)
);
`
