package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "slate.*" namespace.
const (
	AttrJobID    = "slate.job_id"
	AttrJobType  = "slate.job_type"
	AttrCategory = "slate.category"

	AttrDeletedRows  = "slate.deleted_rows"
	AttrSkippedRows  = "slate.skipped_rows"
	AttrFreedMemory  = "slate.freed_memory_bytes"
	AttrFreedStorage = "slate.freed_storage_bytes"
	AttrErrorCount   = "slate.error_count"

	AttrDeletedFiles    = "slate.deleted_files"
	AttrOrphanedFiles   = "slate.orphaned_files"
	AttrFreedFileBytes  = "slate.freed_file_bytes"
	AttrReconcileOpType = "slate.reconcile_op"
)

// SetJobAttributes sets cleanup job identity attributes on a span.
func SetJobAttributes(span trace.Span, jobID, jobType string) {
	span.SetAttributes(
		attribute.String(AttrJobID, jobID),
		attribute.String(AttrJobType, jobType),
	)
}

// SetSweepAttributes sets per-category sweep outcome attributes on a span.
func SetSweepAttributes(span trace.Span, category string, deleted int64, freedMemory, freedStorage int64) {
	span.SetAttributes(
		attribute.String(AttrCategory, category),
		attribute.Int64(AttrDeletedRows, deleted),
		attribute.Int64(AttrFreedMemory, freedMemory),
		attribute.Int64(AttrFreedStorage, freedStorage),
	)
}

// SetCleanupAttributes sets aggregate cleanup outcome attributes on a span.
func SetCleanupAttributes(span trace.Span, deleted, skipped, errorCount int64) {
	span.SetAttributes(
		attribute.Int64(AttrDeletedRows, deleted),
		attribute.Int64(AttrSkippedRows, skipped),
		attribute.Int64(AttrErrorCount, errorCount),
	)
}

// SetReconcileAttributes sets filesystem reconcile outcome attributes on a span.
func SetReconcileAttributes(span trace.Span, opType string, deletedFiles, orphanedFiles, freedBytes int64) {
	span.SetAttributes(
		attribute.String(AttrReconcileOpType, opType),
		attribute.Int64(AttrDeletedFiles, deletedFiles),
		attribute.Int64(AttrOrphanedFiles, orphanedFiles),
		attribute.Int64(AttrFreedFileBytes, freedBytes),
	)
}
