// Package metrics provides Prometheus metrics for the Slate cleanup
// subsystem.
//
// # Overview
//
// The metrics package records cleanup job outcomes, per-category sweep
// results and filesystem reconcile operations on a dedicated registry,
// so the ops server can expose them without pulling in process-global
// collectors.
//
// # Metrics
//
//   - slate_cleanup_runs_total: job runs by job_type and status
//   - slate_cleanup_deleted_rows_total: rows deleted per category
//   - slate_cleanup_freed_bytes_total: bytes freed by kind (memory, storage, files)
//   - slate_cleanup_skipped_rows_total: rows left in their grace period
//   - slate_cleanup_run_duration_seconds: run duration by job_type
//   - slate_cleanup_files_total: reconcile file outcomes by operation
//   - slate_cleanup_jobs_skipped_total: scheduler skips by reason
//   - slate_cleanup_quarantined_files_total: orphans moved to quarantine
//
// # Usage
//
//	m := metrics.NewCleanupMetrics(nil)
//	engine.SetMetrics(m)
//	mux.Handle("/metrics", m.Handler())
package metrics
