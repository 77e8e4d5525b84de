package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the board database schema.
// Timestamps are stored as Unix seconds.
const Schema = `
-- Stroke rows. stroke_data holds the encrypted stroke path payload; its
-- length is the freed-memory contribution when the row is swept.
CREATE TABLE IF NOT EXISTS strokes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    board_id INTEGER,
    user_id INTEGER,
    stroke_data BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_strokes_expires_at ON strokes(expires_at);
CREATE INDEX IF NOT EXISTS idx_strokes_user_id ON strokes(user_id);

-- File-backed rows: templates, exports, temporary uploads, and avatars,
-- distinguished by upload_type. file_path is the authoritative reference
-- the reconciler checks before quarantining on-disk files.
CREATE TABLE IF NOT EXISTS file_uploads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    board_id INTEGER,
    filename TEXT NOT NULL,
    file_path TEXT NOT NULL,
    file_size INTEGER NOT NULL DEFAULT 0,
    mime_type TEXT,
    upload_type TEXT NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 0,
    last_used_at INTEGER,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_uploads_expires_at ON file_uploads(expires_at);
CREATE INDEX IF NOT EXISTS idx_file_uploads_upload_type ON file_uploads(upload_type);
CREATE INDEX IF NOT EXISTS idx_file_uploads_file_path ON file_uploads(file_path);

-- Unified activity log: presence heartbeats, login audit rows, and board
-- edit history, distinguished by activity_type.
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    board_id INTEGER,
    activity_type TEXT NOT NULL,
    activity_data TEXT,
    ip_address TEXT,
    user_agent TEXT,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_expires_at ON activity_log(expires_at);
CREATE INDEX IF NOT EXISTS idx_activity_log_activity_type ON activity_log(activity_type);

-- Cleanup job ledger. One row per cleanup run; created with status
-- 'running' and finalized exactly once.
CREATE TABLE IF NOT EXISTS cleanup_jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_type TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    completed_at INTEGER,
    status TEXT NOT NULL DEFAULT 'running',
    deleted_count INTEGER NOT NULL DEFAULT 0,
    freed_memory_bytes INTEGER NOT NULL DEFAULT 0,
    freed_storage_bytes INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    execution_time_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_cleanup_jobs_job_type ON cleanup_jobs(job_type);
CREATE INDEX IF NOT EXISTS idx_cleanup_jobs_started_at ON cleanup_jobs(started_at);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version if not already present.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1`
