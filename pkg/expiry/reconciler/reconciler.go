package reconciler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/telemetry/metrics"
)

// CategoryDirs are the managed subdirectories under the base path.
var CategoryDirs = []string{"uploads", "templates", "exports", "avatars", "temp"}

// QuarantineDir is the holding area for suspected orphans.
const QuarantineDir = "quarantine"

// Config contains configuration for the storage reconciler.
type Config struct {
	// BasePath is the root of the managed file tree.
	BasePath string

	// TempMaxAge is the age past which temp files are deleted by
	// OptimizeStorage. Default: 1 hour.
	TempMaxAge time.Duration

	// QuarantineRetention is how long quarantined files are kept before
	// OptimizeStorage deletes them permanently. Default: 7 days.
	QuarantineRetention time.Duration
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() *Config {
	return &Config{
		BasePath:            "data/files",
		TempMaxAge:          time.Hour,
		QuarantineRetention: 7 * 24 * time.Hour,
	}
}

// Manager reconciles the on-disk tree against the board database. The store
// may be nil; operations that need the referenced-path set then fail fast.
type Manager struct {
	config  *Config
	store   expiry.Store
	logger  *slog.Logger
	metrics *metrics.CleanupMetrics

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a reconciler and ensures the managed directory layout
// exists.
func NewManager(config *Config, store expiry.Store) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.TempMaxAge == 0 {
		config.TempMaxAge = time.Hour
	}
	if config.QuarantineRetention == 0 {
		config.QuarantineRetention = 7 * 24 * time.Hour
	}

	for _, dir := range CategoryDirs {
		if err := os.MkdirAll(filepath.Join(config.BasePath, dir), 0o755); err != nil {
			return nil, expiry.NewReconcileError("init", err)
		}
	}

	return &Manager{
		config: config,
		store:  store,
		logger: slog.Default().With("component", "expiry.reconciler"),
		now:    time.Now,
	}, nil
}

// SetMetrics attaches cleanup metrics.
func (m *Manager) SetMetrics(mx *metrics.CleanupMetrics) {
	m.metrics = mx
}

// CleanupExpiredFiles deletes managed files whose modification time is older
// than maxAge. With a non-empty category only that subdirectory is walked.
// Per-file failures accumulate in the result and never abort the walk; the
// error return is reserved for an unusable walk root.
func (m *Manager) CleanupExpiredFiles(maxAge time.Duration, category string) (*expiry.CleanupOperationResult, error) {
	start := time.Now()
	result := &expiry.CleanupOperationResult{
		OperationType: "cleanup_expired_files",
		Success:       true,
	}

	dirs := CategoryDirs
	if category != "" {
		if !isManagedCategory(category) {
			return nil, expiry.NewReconcileError("cleanup_expired_files",
				fmt.Errorf("unknown file category %q", category))
		}
		dirs = []string{category}
	}

	cutoff := m.now().Add(-maxAge)

	for _, dir := range dirs {
		root := filepath.Join(m.config.BasePath, dir)
		err := walkFiles(root, func(path string, info fs.FileInfo) {
			if info.ModTime().After(cutoff) {
				result.SkippedFilesCount++
				return
			}
			size := info.Size()
			if err := os.Remove(path); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				return
			}
			result.DeletedFilesCount++
			result.FreedBytes += size
			result.CleanedPaths = append(result.CleanedPaths, path)
		})
		if err != nil {
			return nil, expiry.NewReconcileError("cleanup_expired_files", err)
		}
	}

	result.ExecutionTime = time.Since(start)
	m.observe(result)
	m.logger.Info("expired file cleanup finished",
		"category", category,
		"max_age", maxAge,
		"deleted", result.DeletedFilesCount,
		"freed_bytes", result.FreedBytes,
		"errors", result.ErrorCount,
	)
	return result, nil
}

// CleanupOrphanedFiles quarantines managed files with no referencing
// database row. The safety invariant (never touch a referenced file) cannot
// be verified without a store, so a missing store fails fast.
func (m *Manager) CleanupOrphanedFiles(ctx context.Context) (*expiry.CleanupOperationResult, error) {
	if m.store == nil {
		return nil, expiry.NewReconcileError("cleanup_orphaned_files",
			fmt.Errorf("no database handle attached; orphan safety cannot be verified"))
	}

	start := time.Now()
	result := &expiry.CleanupOperationResult{
		OperationType: "cleanup_orphaned_files",
		Success:       true,
	}

	referenced, err := m.store.ReferencedFilePaths(ctx)
	if err != nil {
		return nil, expiry.NewReconcileError("cleanup_orphaned_files", err)
	}

	quarantine := filepath.Join(m.config.BasePath, QuarantineDir)

	for _, dir := range CategoryDirs {
		root := filepath.Join(m.config.BasePath, dir)
		err := walkFiles(root, func(path string, info fs.FileInfo) {
			if m.isReferenced(referenced, path) {
				result.SkippedFilesCount++
				return
			}
			dest, err := m.quarantineFile(quarantine, path)
			if err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				return
			}
			result.OrphanedFilesCount++
			result.CleanedPaths = append(result.CleanedPaths, dest)
			m.logger.Warn("orphaned file quarantined", "path", path, "quarantined_as", dest)
		})
		if err != nil {
			return nil, expiry.NewReconcileError("cleanup_orphaned_files", err)
		}
	}

	result.ExecutionTime = time.Since(start)
	m.observe(result)
	m.logger.Info("orphan cleanup finished",
		"quarantined", result.OrphanedFilesCount,
		"skipped", result.SkippedFilesCount,
		"errors", result.ErrorCount,
	)
	return result, nil
}

// CalculateStorageUsage walks every managed directory, summing bytes and
// file counts per category. With a store attached, orphaned totals are
// computed by the same set-difference used for quarantining.
func (m *Manager) CalculateStorageUsage(ctx context.Context) (*expiry.StorageUsageStats, error) {
	stats := &expiry.StorageUsageStats{
		CategoryBytes: make(map[string]int64, len(CategoryDirs)),
		ComputedAt:    m.now(),
	}

	var referenced map[string]struct{}
	if m.store != nil {
		var err error
		referenced, err = m.store.ReferencedFilePaths(ctx)
		if err != nil {
			return nil, expiry.NewReconcileError("calculate_storage_usage", err)
		}
	}

	for _, dir := range CategoryDirs {
		root := filepath.Join(m.config.BasePath, dir)
		err := walkFiles(root, func(path string, info fs.FileInfo) {
			size := info.Size()
			stats.TotalBytes += size
			stats.CategoryBytes[dir] += size
			stats.FileCount++
			if referenced != nil && !m.isReferenced(referenced, path) {
				stats.OrphanedBytes += size
				stats.OrphanedCount++
			}
		})
		if err != nil {
			return nil, expiry.NewReconcileError("calculate_storage_usage", err)
		}
	}

	return stats, nil
}

// OptimizeStorage runs the composite maintenance pass: expired temp files,
// orphan quarantining, and the quarantine retention sweep. Sub-operation
// failures are aggregated; the composite succeeds iff none were
// unrecoverable.
func (m *Manager) OptimizeStorage(ctx context.Context) (*expiry.CleanupOperationResult, error) {
	start := time.Now()
	result := &expiry.CleanupOperationResult{
		OperationType: "optimize_storage",
		Success:       true,
	}

	if sub, err := m.CleanupExpiredFiles(m.config.TempMaxAge, "temp"); err != nil {
		result.Success = false
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("temp cleanup: %v", err))
	} else {
		mergeResults(result, sub)
	}

	if sub, err := m.CleanupOrphanedFiles(ctx); err != nil {
		result.Success = false
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("orphan cleanup: %v", err))
	} else {
		mergeResults(result, sub)
	}

	if sub, err := m.sweepQuarantine(); err != nil {
		result.Success = false
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("quarantine sweep: %v", err))
	} else {
		mergeResults(result, sub)
	}

	result.ExecutionTime = time.Since(start)
	m.observe(result)
	m.logger.Info("storage optimization finished",
		"deleted", result.DeletedFilesCount,
		"quarantined", result.OrphanedFilesCount,
		"freed_bytes", result.FreedBytes,
		"success", result.Success,
	)
	return result, nil
}

// OptimizeStorageAsync runs OptimizeStorage off the caller's path. A
// precondition failure is folded into the delivered result.
func (m *Manager) OptimizeStorageAsync(ctx context.Context) <-chan *expiry.CleanupOperationResult {
	ch := make(chan *expiry.CleanupOperationResult, 1)
	go func() {
		result, err := m.OptimizeStorage(ctx)
		if err != nil {
			result = &expiry.CleanupOperationResult{
				OperationType: "optimize_storage",
				ErrorCount:    1,
				Errors:        []string{err.Error()},
			}
		}
		ch <- result
		close(ch)
	}()
	return ch
}

// CleanupExpiredFilesAsync runs CleanupExpiredFiles off the caller's path.
func (m *Manager) CleanupExpiredFilesAsync(maxAge time.Duration, category string) <-chan *expiry.CleanupOperationResult {
	ch := make(chan *expiry.CleanupOperationResult, 1)
	go func() {
		result, err := m.CleanupExpiredFiles(maxAge, category)
		if err != nil {
			result = &expiry.CleanupOperationResult{
				OperationType: "cleanup_expired_files",
				ErrorCount:    1,
				Errors:        []string{err.Error()},
			}
		}
		ch <- result
		close(ch)
	}()
	return ch
}

// FileInfo describes one managed file: its category, size, age, and whether
// a database row still references it.
type FileInfo struct {
	Path        string    `json:"path"`
	Category    string    `json:"category"`
	SizeBytes   int64     `json:"size_bytes"`
	ModTime     time.Time `json:"mod_time"`
	Referenced  bool      `json:"referenced"`
	Quarantined bool      `json:"quarantined"`
}

// FileInfo classifies a single file under the managed tree.
func (m *Manager) FileInfo(ctx context.Context, path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, expiry.NewReconcileError("file_info", err)
	}
	if info.IsDir() {
		return nil, expiry.NewReconcileError("file_info", fmt.Errorf("%s is a directory", path))
	}

	fi := &FileInfo{
		Path:      path,
		Category:  m.classify(path),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}
	fi.Quarantined = fi.Category == QuarantineDir

	if m.store != nil {
		referenced, err := m.store.ReferencedFilePaths(ctx)
		if err != nil {
			return nil, expiry.NewReconcileError("file_info", err)
		}
		fi.Referenced = m.isReferenced(referenced, path)
	}

	return fi, nil
}

// sweepQuarantine deletes quarantined files older than the retention window.
func (m *Manager) sweepQuarantine() (*expiry.CleanupOperationResult, error) {
	result := &expiry.CleanupOperationResult{
		OperationType: "quarantine_sweep",
		Success:       true,
	}

	root := filepath.Join(m.config.BasePath, QuarantineDir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return result, nil
	}

	cutoff := m.now().Add(-m.config.QuarantineRetention)
	err := walkFiles(root, func(path string, info fs.FileInfo) {
		if info.ModTime().After(cutoff) {
			result.SkippedFilesCount++
			return
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return
		}
		result.DeletedFilesCount++
		result.FreedBytes += size
	})
	if err != nil {
		return nil, expiry.NewReconcileError("quarantine_sweep", err)
	}
	return result, nil
}

// quarantineFile moves a file into the quarantine area under a timestamped
// name. Rename is atomic on the same filesystem, so concurrent readers see
// either the old path or nothing, never a partial file.
func (m *Manager) quarantineFile(quarantine, path string) (string, error) {
	if err := os.MkdirAll(quarantine, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%d_%s", m.now().UnixNano(), filepath.Base(path))
	dest := filepath.Join(quarantine, name)
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// isReferenced checks a path against the referenced set, tolerating rows
// that store paths relative to the base directory.
func (m *Manager) isReferenced(referenced map[string]struct{}, path string) bool {
	if _, ok := referenced[path]; ok {
		return true
	}
	if rel, err := filepath.Rel(m.config.BasePath, path); err == nil {
		if _, ok := referenced[rel]; ok {
			return true
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		if _, ok := referenced[abs]; ok {
			return true
		}
	}
	return false
}

// classify maps a path to its managed category directory, or "unmanaged".
func (m *Manager) classify(path string) string {
	rel, err := filepath.Rel(m.config.BasePath, path)
	if err != nil || rel == "." || rel[0] == '.' {
		return "unmanaged"
	}
	first := rel
	if i := firstSeparator(rel); i >= 0 {
		first = rel[:i]
	}
	if first == QuarantineDir || isManagedCategory(first) {
		return first
	}
	return "unmanaged"
}

func firstSeparator(path string) int {
	for i := 0; i < len(path); i++ {
		if os.IsPathSeparator(path[i]) {
			return i
		}
	}
	return -1
}

func isManagedCategory(category string) bool {
	for _, dir := range CategoryDirs {
		if dir == category {
			return true
		}
	}
	return false
}

// walkFiles visits every regular file under root, ignoring a missing root.
func walkFiles(root string, visit func(path string, info fs.FileInfo)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Raced with a concurrent delete; skip.
			return nil
		}
		visit(path, info)
		return nil
	})
}

// mergeResults folds a sub-operation's counts into the composite result.
func mergeResults(dst, src *expiry.CleanupOperationResult) {
	dst.DeletedFilesCount += src.DeletedFilesCount
	dst.FreedBytes += src.FreedBytes
	dst.OrphanedFilesCount += src.OrphanedFilesCount
	dst.SkippedFilesCount += src.SkippedFilesCount
	dst.ErrorCount += src.ErrorCount
	dst.Errors = append(dst.Errors, src.Errors...)
	dst.CleanedPaths = append(dst.CleanedPaths, src.CleanedPaths...)
}

func (m *Manager) observe(result *expiry.CleanupOperationResult) {
	if m.metrics != nil {
		m.metrics.ObserveReconcile(result)
	}
}
