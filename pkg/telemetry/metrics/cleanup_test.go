package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"slate-hq/slate/pkg/expiry"
)

func TestObserveCleanup(t *testing.T) {
	m := NewCleanupMetrics(nil)

	m.ObserveCleanup("cleanup_all", &expiry.CleanupResult{
		Success:       true,
		SkippedCount:  5,
		ExecutionTime: 250 * time.Millisecond,
	})
	m.ObserveCleanup("cleanup_all", &expiry.CleanupResult{
		Success: false,
	})

	completed := testutil.ToFloat64(m.runsTotal.WithLabelValues("cleanup_all", "completed"))
	if completed != 1 {
		t.Errorf("completed runs = %v, want 1", completed)
	}
	failed := testutil.ToFloat64(m.runsTotal.WithLabelValues("cleanup_all", "failed"))
	if failed != 1 {
		t.Errorf("failed runs = %v, want 1", failed)
	}
	skipped := testutil.ToFloat64(m.skippedRows)
	if skipped != 5 {
		t.Errorf("skipped rows = %v, want 5", skipped)
	}
}

func TestObserveCategorySweep(t *testing.T) {
	m := NewCleanupMetrics(nil)

	m.ObserveCategorySweep("anonymous_strokes", expiry.SweepResult{
		Deleted:          12,
		FreedMemoryBytes: 2048,
	})
	m.ObserveCategorySweep("temporary_uploads", expiry.SweepResult{
		Deleted:           3,
		FreedStorageBytes: 4096,
	})

	deleted := testutil.ToFloat64(m.deletedRows.WithLabelValues("anonymous_strokes"))
	if deleted != 12 {
		t.Errorf("anonymous_strokes deleted = %v, want 12", deleted)
	}
	mem := testutil.ToFloat64(m.freedBytes.WithLabelValues("memory"))
	if mem != 2048 {
		t.Errorf("freed memory bytes = %v, want 2048", mem)
	}
	storage := testutil.ToFloat64(m.freedBytes.WithLabelValues("storage"))
	if storage != 4096 {
		t.Errorf("freed storage bytes = %v, want 4096", storage)
	}
}

func TestObserveReconcile(t *testing.T) {
	m := NewCleanupMetrics(nil)

	m.ObserveReconcile(&expiry.CleanupOperationResult{
		OperationType:      "orphaned_files",
		DeletedFilesCount:  2,
		OrphanedFilesCount: 4,
		FreedBytes:         1000,
		ErrorCount:         1,
		ExecutionTime:      10 * time.Millisecond,
	})

	deleted := testutil.ToFloat64(m.filesTotal.WithLabelValues("orphaned_files", "deleted"))
	if deleted != 2 {
		t.Errorf("deleted files = %v, want 2", deleted)
	}
	errs := testutil.ToFloat64(m.filesTotal.WithLabelValues("orphaned_files", "error"))
	if errs != 1 {
		t.Errorf("file errors = %v, want 1", errs)
	}
	quarantined := testutil.ToFloat64(m.quarantined)
	if quarantined != 4 {
		t.Errorf("quarantined = %v, want 4", quarantined)
	}
}

func TestJobSkipped(t *testing.T) {
	m := NewCleanupMetrics(nil)

	m.JobSkipped("resource_pressure")
	m.JobSkipped("resource_pressure")
	m.JobSkipped("in_flight")

	pressure := testutil.ToFloat64(m.jobsSkipped.WithLabelValues("resource_pressure"))
	if pressure != 2 {
		t.Errorf("resource_pressure skips = %v, want 2", pressure)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := NewCleanupMetrics(nil)
	m.ObserveCategorySweep("board_exports", expiry.SweepResult{Deleted: 7, FreedStorageBytes: 512})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `slate_cleanup_deleted_rows_total{category="board_exports"} 7`) {
		t.Errorf("exposition missing sweep counter:\n%s", body)
	}
}

func TestNewCleanupMetrics_ProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewCleanupMetrics(registry)
	if m.Registry() != registry {
		t.Error("metrics not backed by provided registry")
	}
}
