package expiry

import (
	"context"
	"fmt"
	"time"
)

// Category identifies a class of expirable data. Each category maps to one
// underlying table plus a fixed predicate, resolved once at startup.
type Category string

const (
	// CategoryAnonymousStrokes covers stroke rows drawn by anonymous sessions.
	CategoryAnonymousStrokes Category = "anonymous_strokes"
	// CategoryRegisteredStrokes covers stroke rows owned by registered users.
	CategoryRegisteredStrokes Category = "registered_strokes"
	// CategoryUnusedTemplates covers template uploads that were never used.
	CategoryUnusedTemplates Category = "unused_templates"
	// CategoryTemporaryUploads covers short-lived temporary file uploads.
	CategoryTemporaryUploads Category = "temporary_uploads"
	// CategoryBoardExports covers generated board export files.
	CategoryBoardExports Category = "board_exports"
	// CategoryUserAvatars covers user avatar uploads.
	CategoryUserAvatars Category = "user_avatars"
	// CategoryEphemeralPresence covers presence heartbeat rows.
	CategoryEphemeralPresence Category = "ephemeral_presence"
	// CategoryLoginHistory covers login audit rows (kept 90 days for compliance).
	CategoryLoginHistory Category = "login_history"
	// CategoryEditHistory covers board edit history rows.
	CategoryEditHistory Category = "edit_history"
)

// AllCategories returns every known category in the fixed order cleanup
// operations run in. Callers must not rely on deletion order within a
// category, but the aggregate log lines follow this order.
func AllCategories() []Category {
	return []Category{
		CategoryAnonymousStrokes,
		CategoryRegisteredStrokes,
		CategoryUnusedTemplates,
		CategoryTemporaryUploads,
		CategoryBoardExports,
		CategoryUserAvatars,
		CategoryEphemeralPresence,
		CategoryLoginHistory,
		CategoryEditHistory,
	}
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range AllCategories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Tier identifies a user's subscription tier. Policies multiply their base
// TTL by a per-tier factor; unknown tiers fall back to a 1.0 multiplier.
type Tier string

const (
	TierAnonymous  Tier = "anonymous"
	TierFree       Tier = "free"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// StrokeFilter narrows stroke cleanup to a subset of owners.
type StrokeFilter string

const (
	// FilterAll selects both anonymous and registered strokes.
	FilterAll StrokeFilter = "all"
	// FilterAnonymous selects strokes with no owning user.
	FilterAnonymous StrokeFilter = "anonymous"
	// FilterRegistered selects strokes owned by a registered user.
	FilterRegistered StrokeFilter = "registered"
)

// Record is a generic expirable row as seen by the cleanup subsystem. The
// external CRUD layer creates records; the engine only ever deletes them.
type Record struct {
	ID       int64    `json:"id"`
	Category Category `json:"category"`

	// OwnerID is nil for anonymous records.
	OwnerID *int64 `json:"owner_id,omitempty"`

	// BoardID is set for board-scoped records (strokes, exports).
	BoardID *int64 `json:"board_id,omitempty"`

	// FilePath is set for file-backed records and is the authoritative
	// reference the reconciler checks before quarantining on-disk files.
	FilePath string `json:"file_path,omitempty"`

	// SizeBytes is the payload or file size. Zero when the category carries
	// no size information; a missing size contributes zero to freed-bytes
	// accounting, never an error.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// UsageCount tracks template usage; templates with a non-zero count are
	// never swept by the unused_templates category.
	UsageCount int64 `json:"usage_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CleanupResult is the outcome of one expiration engine operation. It is
// produced fresh per operation and never mutated after return.
type CleanupResult struct {
	JobType           string        `json:"job_type"`
	Success           bool          `json:"success"`
	DeletedCount      int64         `json:"deleted_count"`
	SkippedCount      int64         `json:"skipped_count"`
	FreedMemoryBytes  int64         `json:"freed_memory_bytes"`
	FreedStorageBytes int64         `json:"freed_storage_bytes"`
	ErrorCount        int           `json:"error_count"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	RollbackPerformed bool          `json:"rollback_performed,omitempty"`
	ExecutionTime     time.Duration `json:"execution_time"`
	LogEntries        []string      `json:"log_entries,omitempty"`
}

// CleanupOperationResult is the outcome of one storage reconciler operation.
// Per-file failures accumulate in Errors while the operation continues.
type CleanupOperationResult struct {
	OperationType      string        `json:"operation_type"`
	Success            bool          `json:"success"`
	DeletedFilesCount  int           `json:"deleted_files_count"`
	FreedBytes         int64         `json:"freed_bytes"`
	OrphanedFilesCount int           `json:"orphaned_files_count"`
	SkippedFilesCount  int           `json:"skipped_files_count"`
	ErrorCount         int           `json:"error_count"`
	Errors             []string      `json:"errors,omitempty"`
	CleanedPaths       []string      `json:"cleaned_paths,omitempty"`
	ExecutionTime      time.Duration `json:"execution_time"`
}

// JobExecutionResult is the outcome of one scheduled or manual cleanup run.
// It is created when the run starts and finalized exactly once.
type JobExecutionResult struct {
	JobID         string         `json:"job_id"`
	Success       bool           `json:"success"`
	Skipped       bool           `json:"skipped,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at,omitzero"`
	ExecutionTime time.Duration  `json:"execution_time"`
	RetryCount    int            `json:"retry_count"`
	CleanupResult *CleanupResult `json:"cleanup_result,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// JobStatus is the lifecycle state of a ledger entry.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// LedgerEntry is the durable audit row recording a single cleanup run.
// A row is created with status running when the run starts and updated
// exactly once when the run completes or fails.
type LedgerEntry struct {
	ID                int64         `json:"id"`
	JobType           string        `json:"job_type"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at,omitzero"`
	Status            JobStatus     `json:"status"`
	DeletedCount      int64         `json:"deleted_count"`
	FreedMemoryBytes  int64         `json:"freed_memory_bytes"`
	FreedStorageBytes int64         `json:"freed_storage_bytes"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	ExecutionTime     time.Duration `json:"execution_time"`
}

// StorageUsageStats is a derived snapshot of on-disk usage. It is recomputed
// on demand and never persisted.
type StorageUsageStats struct {
	TotalBytes    int64            `json:"total_bytes"`
	CategoryBytes map[string]int64 `json:"category_bytes"`
	OrphanedBytes int64            `json:"orphaned_bytes"`
	FileCount     int64            `json:"file_count"`
	OrphanedCount int64            `json:"orphaned_count"`
	ComputedAt    time.Time        `json:"computed_at"`
}

// SweepResult summarizes a single transactional category sweep.
type SweepResult struct {
	Deleted           int64
	FreedMemoryBytes  int64
	FreedStorageBytes int64
}

// Store is the persistence interface the cleanup subsystem runs against.
// Implementations must make SweepCategory atomic: either every matching row
// is deleted and the result committed, or the transaction is rolled back and
// an error returned with no rows removed.
type Store interface {
	// InsertRecord persists a new expirable record. Used by the external
	// CRUD layer and by tests; the cleanup subsystem itself never inserts.
	InsertRecord(ctx context.Context, rec *Record) error

	// CountRecords returns the number of live rows in a category.
	CountRecords(ctx context.Context, category Category) (int64, error)

	// CountExpiring returns the number of rows in a category whose
	// expires_at falls in (after, until].
	CountExpiring(ctx context.Context, category Category, after, until time.Time) (int64, error)

	// SweepCategory deletes every row in the category with
	// expires_at <= deleteBefore, in a single transaction, returning the
	// count and the summed size contributions.
	SweepCategory(ctx context.Context, category Category, deleteBefore time.Time) (SweepResult, error)

	// OwnersExpiringBefore returns the distinct owner IDs with records
	// expiring after now but at or before threshold.
	OwnersExpiringBefore(ctx context.Context, now, threshold time.Time) ([]int64, error)

	// ReferencedFilePaths returns the set of every file_path referenced by
	// a live file-backed row. The reconciler treats on-disk files outside
	// this set as orphans.
	ReferencedFilePaths(ctx context.Context) (map[string]struct{}, error)

	// BeginLedgerEntry creates a ledger row with status running and returns
	// its ID.
	BeginLedgerEntry(ctx context.Context, jobType string, startedAt time.Time) (int64, error)

	// FinalizeLedgerEntry updates a ledger row exactly once with the run's
	// terminal status and counts.
	FinalizeLedgerEntry(ctx context.Context, id int64, entry *LedgerEntry) error

	// LedgerEntries returns the most recent ledger rows, newest first.
	LedgerEntries(ctx context.Context, limit int) ([]*LedgerEntry, error)

	// Close releases any resources held by the store.
	Close() error
}
