package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/storage"
)

func newTestManager(t *testing.T, store expiry.Store) (*Manager, string) {
	t.Helper()
	base := t.TempDir()
	m, err := NewManager(&Config{BasePath: base}, store)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	return m, base
}

func writeAgedFile(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", path, err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes(%s) failed: %v", path, err)
	}
}

// TestNewManager_CreatesLayout tests that the category directories exist
// after construction.
func TestNewManager_CreatesLayout(t *testing.T) {
	_, base := newTestManager(t, nil)

	for _, dir := range CategoryDirs {
		if _, err := os.Stat(filepath.Join(base, dir)); err != nil {
			t.Errorf("Expected %s directory: %v", dir, err)
		}
	}
}

// TestCleanupExpiredFiles tests the mtime-based walk: one stale temp file is
// deleted, a fresh one survives.
func TestCleanupExpiredFiles(t *testing.T) {
	m, base := newTestManager(t, nil)

	stale := filepath.Join(base, "temp", "x.tmp")
	fresh := filepath.Join(base, "temp", "y.tmp")
	writeAgedFile(t, stale, 100, 2*time.Hour)
	writeAgedFile(t, fresh, 100, time.Minute)

	result, err := m.CleanupExpiredFiles(time.Hour, "temp")
	if err != nil {
		t.Fatalf("CleanupExpiredFiles() failed: %v", err)
	}
	if result.DeletedFilesCount != 1 {
		t.Errorf("Expected 1 deleted file, got %d", result.DeletedFilesCount)
	}
	if result.FreedBytes != 100 {
		t.Errorf("Expected 100 freed bytes, got %d", result.FreedBytes)
	}
	if result.SkippedFilesCount != 1 {
		t.Errorf("Expected 1 skipped file, got %d", result.SkippedFilesCount)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Stale file should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("Fresh file should survive")
	}
}

// TestCleanupExpiredFiles_ScopeAndValidation tests category scoping and the
// unknown-category error.
func TestCleanupExpiredFiles_ScopeAndValidation(t *testing.T) {
	m, base := newTestManager(t, nil)

	writeAgedFile(t, filepath.Join(base, "temp", "a.tmp"), 10, 3*time.Hour)
	writeAgedFile(t, filepath.Join(base, "exports", "b.pdf"), 10, 3*time.Hour)

	result, err := m.CleanupExpiredFiles(time.Hour, "temp")
	if err != nil {
		t.Fatalf("CleanupExpiredFiles() failed: %v", err)
	}
	if result.DeletedFilesCount != 1 {
		t.Errorf("Expected only the temp file deleted, got %d", result.DeletedFilesCount)
	}
	if _, err := os.Stat(filepath.Join(base, "exports", "b.pdf")); err != nil {
		t.Error("Out-of-scope export must survive a temp-scoped cleanup")
	}

	if _, err := m.CleanupExpiredFiles(time.Hour, "movies"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

// TestCleanupOrphanedFiles tests the orphan-safety scenario: a referenced
// file is untouched, an untracked sibling is quarantined.
func TestCleanupOrphanedFiles(t *testing.T) {
	store := storage.NewMemoryStore()
	m, base := newTestManager(t, store)
	ctx := context.Background()

	tracked := filepath.Join(base, "uploads", "a.png")
	orphan := filepath.Join(base, "uploads", "b.png")
	writeAgedFile(t, tracked, 50, time.Hour)
	writeAgedFile(t, orphan, 50, time.Hour)

	rec := &expiry.Record{
		Category:  expiry.CategoryUserAvatars,
		FilePath:  tracked,
		SizeBytes: 50,
		ExpiresAt: time.Now().Add(720 * time.Hour),
	}
	if err := store.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("InsertRecord() failed: %v", err)
	}

	result, err := m.CleanupOrphanedFiles(ctx)
	if err != nil {
		t.Fatalf("CleanupOrphanedFiles() failed: %v", err)
	}
	if result.OrphanedFilesCount != 1 {
		t.Errorf("Expected 1 orphan quarantined, got %d", result.OrphanedFilesCount)
	}
	if result.SkippedFilesCount != 1 {
		t.Errorf("Expected 1 referenced file skipped, got %d", result.SkippedFilesCount)
	}

	if _, err := os.Stat(tracked); err != nil {
		t.Error("Referenced file must never be touched")
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("Orphan should have been moved out of its directory")
	}

	// The orphan now sits in quarantine under a timestamped name
	entries, err := os.ReadDir(filepath.Join(base, QuarantineDir))
	if err != nil {
		t.Fatalf("ReadDir(quarantine) failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 quarantined file, got %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), "_b.png") {
		t.Errorf("Quarantined name %q should keep the original basename", entries[0].Name())
	}
}

// TestCleanupOrphanedFiles_RequiresStore tests the fail-fast precondition.
func TestCleanupOrphanedFiles_RequiresStore(t *testing.T) {
	m, _ := newTestManager(t, nil)

	if _, err := m.CleanupOrphanedFiles(context.Background()); err == nil {
		t.Fatal("Expected error without a database handle")
	}
}

// TestCalculateStorageUsage tests per-category sums and orphan totals.
func TestCalculateStorageUsage(t *testing.T) {
	store := storage.NewMemoryStore()
	m, base := newTestManager(t, store)
	ctx := context.Background()

	tracked := filepath.Join(base, "exports", "r.pdf")
	writeAgedFile(t, tracked, 300, time.Hour)
	writeAgedFile(t, filepath.Join(base, "uploads", "o.bin"), 200, time.Hour)

	rec := &expiry.Record{
		Category:  expiry.CategoryBoardExports,
		FilePath:  tracked,
		SizeBytes: 300,
		ExpiresAt: time.Now().Add(48 * time.Hour),
	}
	if err := store.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("InsertRecord() failed: %v", err)
	}

	stats, err := m.CalculateStorageUsage(ctx)
	if err != nil {
		t.Fatalf("CalculateStorageUsage() failed: %v", err)
	}
	if stats.TotalBytes != 500 {
		t.Errorf("Expected 500 total bytes, got %d", stats.TotalBytes)
	}
	if stats.FileCount != 2 {
		t.Errorf("Expected 2 files, got %d", stats.FileCount)
	}
	if stats.CategoryBytes["exports"] != 300 {
		t.Errorf("Expected 300 export bytes, got %d", stats.CategoryBytes["exports"])
	}
	if stats.OrphanedCount != 1 || stats.OrphanedBytes != 200 {
		t.Errorf("Expected 1 orphan / 200 bytes, got %d / %d",
			stats.OrphanedCount, stats.OrphanedBytes)
	}
	if stats.ComputedAt.IsZero() {
		t.Error("Expected computed_at to be set")
	}
}

// TestOptimizeStorage tests the composite pass: stale temp deletion, orphan
// quarantining, and expiry of old quarantined files.
func TestOptimizeStorage(t *testing.T) {
	store := storage.NewMemoryStore()
	m, base := newTestManager(t, store)
	ctx := context.Background()

	// Stale temp file, referenced upload, orphaned upload
	writeAgedFile(t, filepath.Join(base, "temp", "t.tmp"), 10, 2*time.Hour)
	tracked := filepath.Join(base, "uploads", "keep.png")
	writeAgedFile(t, tracked, 10, time.Hour)
	writeAgedFile(t, filepath.Join(base, "uploads", "lost.png"), 10, time.Hour)

	// A quarantined file past the 7-day retention
	if err := os.MkdirAll(filepath.Join(base, QuarantineDir), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	writeAgedFile(t, filepath.Join(base, QuarantineDir, "old_orphan.png"), 10, 8*24*time.Hour)

	rec := &expiry.Record{
		Category:  expiry.CategoryUserAvatars,
		FilePath:  tracked,
		SizeBytes: 10,
		ExpiresAt: time.Now().Add(720 * time.Hour),
	}
	if err := store.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("InsertRecord() failed: %v", err)
	}

	result, err := m.OptimizeStorage(ctx)
	if err != nil {
		t.Fatalf("OptimizeStorage() failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, errors: %v", result.Errors)
	}
	// Deleted: stale temp + retained-out quarantine file
	if result.DeletedFilesCount != 2 {
		t.Errorf("Expected 2 deleted files, got %d", result.DeletedFilesCount)
	}
	if result.OrphanedFilesCount != 1 {
		t.Errorf("Expected 1 quarantined orphan, got %d", result.OrphanedFilesCount)
	}

	if _, err := os.Stat(tracked); err != nil {
		t.Error("Referenced file must survive optimization")
	}
	if _, err := os.Stat(filepath.Join(base, QuarantineDir, "old_orphan.png")); !os.IsNotExist(err) {
		t.Error("Quarantined file past retention should be deleted")
	}
}

// TestOptimizeStorage_NoStore tests that a missing store fails the orphan
// sub-operation but the composite still runs the rest.
func TestOptimizeStorage_NoStore(t *testing.T) {
	m, base := newTestManager(t, nil)

	writeAgedFile(t, filepath.Join(base, "temp", "t.tmp"), 10, 2*time.Hour)

	result, err := m.OptimizeStorage(context.Background())
	if err != nil {
		t.Fatalf("OptimizeStorage() failed: %v", err)
	}
	if result.Success {
		t.Error("Composite must fail when the orphan sub-operation cannot run")
	}
	if result.DeletedFilesCount != 1 {
		t.Errorf("Temp cleanup must still run, got %d deleted", result.DeletedFilesCount)
	}
}

// TestOptimizeStorageAsync tests the channel-returning variant.
func TestOptimizeStorageAsync(t *testing.T) {
	store := storage.NewMemoryStore()
	m, base := newTestManager(t, store)

	writeAgedFile(t, filepath.Join(base, "temp", "t.tmp"), 10, 2*time.Hour)

	select {
	case result := <-m.OptimizeStorageAsync(context.Background()):
		if result.DeletedFilesCount != 1 {
			t.Errorf("Expected 1 deleted file, got %d", result.DeletedFilesCount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Async optimize did not complete")
	}
}

// TestFileInfo tests classification and reference checks.
func TestFileInfo(t *testing.T) {
	store := storage.NewMemoryStore()
	m, base := newTestManager(t, store)
	ctx := context.Background()

	tracked := filepath.Join(base, "avatars", "me.png")
	writeAgedFile(t, tracked, 42, time.Hour)

	rec := &expiry.Record{
		Category:  expiry.CategoryUserAvatars,
		FilePath:  tracked,
		SizeBytes: 42,
		ExpiresAt: time.Now().Add(720 * time.Hour),
	}
	if err := store.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("InsertRecord() failed: %v", err)
	}

	info, err := m.FileInfo(ctx, tracked)
	if err != nil {
		t.Fatalf("FileInfo() failed: %v", err)
	}
	if info.Category != "avatars" {
		t.Errorf("Expected avatars category, got %q", info.Category)
	}
	if info.SizeBytes != 42 {
		t.Errorf("Expected 42 bytes, got %d", info.SizeBytes)
	}
	if !info.Referenced {
		t.Error("Expected file to be referenced")
	}
	if info.Quarantined {
		t.Error("File is not quarantined")
	}

	if _, err := m.FileInfo(ctx, filepath.Join(base, "avatars", "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}
