package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver (cgo)
	_ "modernc.org/sqlite"          // sqlite driver (pure Go)

	"slate-hq/slate/pkg/expiry"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite3" (mattn, cgo) or
	// "sqlite" (modernc, pure Go).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/slate.db",
		Driver:       "sqlite3",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements expiry.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the board database and
// initializes its schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite3"
	}
	if config.Driver != "sqlite3" && config.Driver != "sqlite" {
		return nil, expiry.NewStorageError("sqlite", "open",
			fmt.Errorf("unsupported driver %q (want sqlite3 or sqlite)", config.Driver))
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "expiry.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up pragmas and the database schema.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return expiry.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return expiry.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return expiry.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return expiry.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return expiry.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return expiry.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// InsertRecord persists a new expirable record into the category's table.
func (s *SQLiteStore) InsertRecord(ctx context.Context, rec *expiry.Record) error {
	if rec == nil {
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("record cannot be nil"))
	}
	spec, err := specFor(rec.Category)
	if err != nil {
		return expiry.NewStorageError("sqlite", "insert", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.ExpiresAt.IsZero() {
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("record has no expires_at"))
	}

	var res sql.Result
	switch spec.table {
	case "strokes":
		// The stroke payload itself comes from the CRUD layer; here only its
		// size matters, so a zero blob of the declared size stands in.
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO strokes (board_id, user_id, stroke_data, created_at, expires_at)
			VALUES (?, ?, zeroblob(?), ?, ?)`,
			rec.BoardID, rec.OwnerID, rec.SizeBytes, rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(),
		)
	case "file_uploads":
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO file_uploads (user_id, board_id, filename, file_path, file_size, upload_type, usage_count, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.OwnerID, rec.BoardID, filepath.Base(rec.FilePath), rec.FilePath,
			rec.SizeBytes, uploadTypes[rec.Category], rec.UsageCount,
			rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(),
		)
	case "activity_log":
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO activity_log (user_id, board_id, activity_type, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?)`,
			rec.OwnerID, rec.BoardID, activityTypes[rec.Category],
			rec.CreatedAt.Unix(), rec.ExpiresAt.Unix(),
		)
	default:
		return expiry.NewStorageError("sqlite", "insert", fmt.Errorf("unmapped table %q", spec.table))
	}
	if err != nil {
		return expiry.NewStorageError("sqlite", "insert", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// CountRecords returns the number of live rows in a category.
func (s *SQLiteStore) CountRecords(ctx context.Context, category expiry.Category) (int64, error) {
	spec, err := specFor(category)
	if err != nil {
		return 0, expiry.NewStorageError("sqlite", "count", err)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", spec.table, spec.where)
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, expiry.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// CountExpiring returns the number of rows in a category whose expires_at
// falls in (after, until].
func (s *SQLiteStore) CountExpiring(ctx context.Context, category expiry.Category, after, until time.Time) (int64, error) {
	spec, err := specFor(category)
	if err != nil {
		return 0, expiry.NewStorageError("sqlite", "count_expiring", err)
	}

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s AND expires_at > ? AND expires_at <= ?",
		spec.table, spec.where,
	)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, after.Unix(), until.Unix()).Scan(&count); err != nil {
		return 0, expiry.NewStorageError("sqlite", "count_expiring", err)
	}
	return count, nil
}

// SweepCategory deletes every row in the category with
// expires_at <= deleteBefore in a single transaction.
func (s *SQLiteStore) SweepCategory(ctx context.Context, category expiry.Category, deleteBefore time.Time) (expiry.SweepResult, error) {
	var result expiry.SweepResult

	spec, err := specFor(category)
	if err != nil {
		return result, expiry.NewStorageError("sqlite", "sweep", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, expiry.NewStorageError("sqlite", "sweep_begin", err)
	}
	defer tx.Rollback()

	cutoff := deleteBefore.Unix()

	var freed int64
	if spec.sizeExpr != "" {
		sumQuery := fmt.Sprintf(
			"SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s AND expires_at <= ?",
			spec.sizeExpr, spec.table, spec.where,
		)
		if err := tx.QueryRowContext(ctx, sumQuery, cutoff).Scan(&freed); err != nil {
			return result, expiry.NewStorageError("sqlite", "sweep_sum", err)
		}
	}

	deleteQuery := fmt.Sprintf(
		"DELETE FROM %s WHERE %s AND expires_at <= ?",
		spec.table, spec.where,
	)
	res, err := tx.ExecContext(ctx, deleteQuery, cutoff)
	if err != nil {
		return result, expiry.NewStorageError("sqlite", "sweep_delete", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return result, expiry.NewStorageError("sqlite", "sweep_delete", err)
	}

	if err := tx.Commit(); err != nil {
		return result, expiry.NewStorageError("sqlite", "sweep_commit", err)
	}

	result.Deleted = deleted
	if spec.storageBytes {
		result.FreedStorageBytes = freed
	} else {
		result.FreedMemoryBytes = freed
	}
	return result, nil
}

// OwnersExpiringBefore returns the distinct owner IDs with records expiring
// after now but at or before threshold.
func (s *SQLiteStore) OwnersExpiringBefore(ctx context.Context, now, threshold time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT user_id FROM strokes
		WHERE user_id IS NOT NULL AND expires_at > ? AND expires_at <= ?
		UNION
		SELECT DISTINCT user_id FROM file_uploads
		WHERE user_id IS NOT NULL AND expires_at > ? AND expires_at <= ?`

	rows, err := s.db.QueryContext(ctx, query, now.Unix(), threshold.Unix(), now.Unix(), threshold.Unix())
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "owners_expiring", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, expiry.NewStorageError("sqlite", "owners_expiring", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, expiry.NewStorageError("sqlite", "owners_expiring", err)
	}
	return owners, nil
}

// ReferencedFilePaths returns every file_path referenced by a live
// file-backed row.
func (s *SQLiteStore) ReferencedFilePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_path FROM file_uploads")
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "referenced_paths", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, expiry.NewStorageError("sqlite", "referenced_paths", err)
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, expiry.NewStorageError("sqlite", "referenced_paths", err)
	}
	return paths, nil
}

// BeginLedgerEntry creates a cleanup_jobs row with status running.
func (s *SQLiteStore) BeginLedgerEntry(ctx context.Context, jobType string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cleanup_jobs (job_type, started_at, status)
		VALUES (?, ?, ?)`,
		jobType, startedAt.Unix(), string(expiry.JobStatusRunning),
	)
	if err != nil {
		return 0, expiry.NewStorageError("sqlite", "ledger_begin", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, expiry.NewStorageError("sqlite", "ledger_begin", err)
	}
	return id, nil
}

// FinalizeLedgerEntry updates a running ledger row with its terminal status
// and counts. A row may be finalized at most once.
func (s *SQLiteStore) FinalizeLedgerEntry(ctx context.Context, id int64, entry *expiry.LedgerEntry) error {
	if entry.Status != expiry.JobStatusCompleted && entry.Status != expiry.JobStatusFailed {
		return expiry.NewStorageError("sqlite", "ledger_finalize",
			fmt.Errorf("terminal status required, got %q", entry.Status))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cleanup_jobs
		SET completed_at = ?, status = ?, deleted_count = ?,
		    freed_memory_bytes = ?, freed_storage_bytes = ?,
		    error_message = ?, execution_time_ms = ?
		WHERE id = ? AND status = ?`,
		entry.CompletedAt.Unix(), string(entry.Status), entry.DeletedCount,
		entry.FreedMemoryBytes, entry.FreedStorageBytes,
		nullableString(entry.ErrorMessage), entry.ExecutionTime.Milliseconds(),
		id, string(expiry.JobStatusRunning),
	)
	if err != nil {
		return expiry.NewStorageError("sqlite", "ledger_finalize", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return expiry.NewStorageError("sqlite", "ledger_finalize", err)
	}
	if affected == 0 {
		return expiry.NewStorageError("sqlite", "ledger_finalize",
			fmt.Errorf("ledger entry %d is not running (already finalized or missing)", id))
	}
	return nil
}

// LedgerEntries returns the most recent ledger rows, newest first.
func (s *SQLiteStore) LedgerEntries(ctx context.Context, limit int) ([]*expiry.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_type, started_at, completed_at, status,
		       deleted_count, freed_memory_bytes, freed_storage_bytes,
		       error_message, execution_time_ms
		FROM cleanup_jobs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, expiry.NewStorageError("sqlite", "ledger_list", err)
	}
	defer rows.Close()

	var entries []*expiry.LedgerEntry
	for rows.Next() {
		var (
			entry       expiry.LedgerEntry
			startedAt   int64
			completedAt sql.NullInt64
			status      string
			errMsg      sql.NullString
			execMs      sql.NullInt64
		)
		if err := rows.Scan(&entry.ID, &entry.JobType, &startedAt, &completedAt, &status,
			&entry.DeletedCount, &entry.FreedMemoryBytes, &entry.FreedStorageBytes,
			&errMsg, &execMs); err != nil {
			return nil, expiry.NewStorageError("sqlite", "ledger_list", err)
		}

		entry.StartedAt = time.Unix(startedAt, 0)
		if completedAt.Valid {
			entry.CompletedAt = time.Unix(completedAt.Int64, 0)
		}
		entry.Status = expiry.JobStatus(status)
		entry.ErrorMessage = errMsg.String
		if execMs.Valid {
			entry.ExecutionTime = time.Duration(execMs.Int64) * time.Millisecond
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, expiry.NewStorageError("sqlite", "ledger_list", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.config.WALMode {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

// nullableString maps "" to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
