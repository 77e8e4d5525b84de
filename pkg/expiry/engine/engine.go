package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/policy"
	"slate-hq/slate/pkg/telemetry/metrics"
)

// NotifyFunc receives a pre-expiry notice for one record owner. The default
// implementation only logs; board-facing delivery lives outside this core.
type NotifyFunc func(ownerID int64, expiresWithin time.Duration)

// Engine applies TTL policies to the persisted data categories.
type Engine struct {
	store   expiry.Store
	logger  *slog.Logger
	metrics *metrics.CleanupMetrics

	mu       sync.RWMutex
	policies *policy.Table
	notify   NotifyFunc

	// now is swappable for tests.
	now func() time.Time
}

// New creates an expiration engine over the given store and policy table.
func New(store expiry.Store, policies *policy.Table) *Engine {
	return &Engine{
		store:    store,
		policies: policies,
		logger:   slog.Default().With("component", "expiry.engine"),
		now:      time.Now,
	}
}

// SetMetrics attaches cleanup metrics. A nil engine metrics handle disables
// instrumentation.
func (e *Engine) SetMetrics(m *metrics.CleanupMetrics) {
	e.metrics = m
}

// SetNotifier replaces the pre-expiry notification hook.
func (e *Engine) SetNotifier(fn NotifyFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notify = fn
}

// ReloadPolicies swaps in a new policy table. In-flight runs keep the table
// they started with; the next run picks up the new one.
func (e *Engine) ReloadPolicies(table *policy.Table) {
	if table == nil {
		return
	}
	e.mu.Lock()
	e.policies = table
	e.mu.Unlock()
	e.logger.Info("TTL policies reloaded")
}

func (e *Engine) table() *policy.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policies
}

// CleanupCategory sweeps one category and records the run in the ledger.
// A sweep failure is reported inside the result, not as an error return;
// the error return is reserved for unknown categories and ledger failures.
func (e *Engine) CleanupCategory(ctx context.Context, category expiry.Category) (*expiry.CleanupResult, error) {
	if _, err := e.table().Policy(category); err != nil {
		return nil, err
	}
	return e.runWithLedger(ctx, "cleanup_"+string(category), func(ctx context.Context) *expiry.CleanupResult {
		return e.sweepCategories(ctx, []expiry.Category{category}, true)
	})
}

// CleanupStrokes sweeps the stroke categories selected by the filter.
func (e *Engine) CleanupStrokes(ctx context.Context, filter expiry.StrokeFilter) (*expiry.CleanupResult, error) {
	var categories []expiry.Category
	switch filter {
	case expiry.FilterAnonymous:
		categories = []expiry.Category{expiry.CategoryAnonymousStrokes}
	case expiry.FilterRegistered:
		categories = []expiry.Category{expiry.CategoryRegisteredStrokes}
	case expiry.FilterAll, "":
		categories = []expiry.Category{expiry.CategoryAnonymousStrokes, expiry.CategoryRegisteredStrokes}
	default:
		return nil, fmt.Errorf("unknown stroke filter %q", filter)
	}
	return e.runWithLedger(ctx, "cleanup_strokes_"+filterName(filter), func(ctx context.Context) *expiry.CleanupResult {
		return e.sweepCategories(ctx, categories, true)
	})
}

func filterName(filter expiry.StrokeFilter) string {
	if filter == "" {
		return string(expiry.FilterAll)
	}
	return string(filter)
}

// CleanupAll sweeps every category in sequence. A failing category never
// aborts its siblings; the aggregate succeeds iff zero categories errored.
// With respectGracePeriod false, rows are swept as soon as expires_at
// passes, ignoring the per-category grace window.
func (e *Engine) CleanupAll(ctx context.Context, respectGracePeriod bool) (*expiry.CleanupResult, error) {
	return e.runWithLedger(ctx, "cleanup_all", func(ctx context.Context) *expiry.CleanupResult {
		return e.sweepCategories(ctx, expiry.AllCategories(), respectGracePeriod)
	})
}

// CleanupAllAsync runs CleanupAll off the caller's path, delivering the
// result on the returned channel. Semantics are identical to CleanupAll.
func (e *Engine) CleanupAllAsync(ctx context.Context, respectGracePeriod bool) <-chan *expiry.CleanupResult {
	ch := make(chan *expiry.CleanupResult, 1)
	go func() {
		result, err := e.CleanupAll(ctx, respectGracePeriod)
		if err != nil {
			result = &expiry.CleanupResult{
				JobType:      "cleanup_all",
				Success:      false,
				ErrorCount:   1,
				ErrorMessage: err.Error(),
			}
		}
		ch <- result
		close(ch)
	}()
	return ch
}

// NotifyBeforeExpiry finds owners whose records expire within lead and
// invokes the notification hook once per owner. Best effort: a failure here
// never affects deletion correctness, so errors are returned for visibility
// but callers may ignore them.
func (e *Engine) NotifyBeforeExpiry(ctx context.Context, lead time.Duration) (int, error) {
	now := e.now()
	owners, err := e.store.OwnersExpiringBefore(ctx, now, now.Add(lead))
	if err != nil {
		e.logger.Warn("pre-expiry owner lookup failed", "error", err)
		return 0, err
	}

	e.mu.RLock()
	notify := e.notify
	e.mu.RUnlock()

	for _, ownerID := range owners {
		if notify != nil {
			notify(ownerID, lead)
		} else {
			e.logger.Info("expiry notice", "owner_id", ownerID, "expires_within", lead)
		}
	}
	return len(owners), nil
}

// runWithLedger wraps a cleanup body with the ledger lifecycle: a running
// row at start, finalized exactly once with the terminal outcome.
func (e *Engine) runWithLedger(ctx context.Context, jobType string, body func(context.Context) *expiry.CleanupResult) (*expiry.CleanupResult, error) {
	startedAt := e.now()
	wallStart := time.Now()

	ledgerID, err := e.store.BeginLedgerEntry(ctx, jobType, startedAt)
	if err != nil {
		return nil, fmt.Errorf("begin ledger entry for %s: %w", jobType, err)
	}

	result := body(ctx)
	result.JobType = jobType
	result.ExecutionTime = time.Since(wallStart)

	status := expiry.JobStatusCompleted
	if !result.Success {
		status = expiry.JobStatusFailed
	}
	entry := &expiry.LedgerEntry{
		Status:            status,
		CompletedAt:       startedAt.Add(result.ExecutionTime),
		DeletedCount:      result.DeletedCount,
		FreedMemoryBytes:  result.FreedMemoryBytes,
		FreedStorageBytes: result.FreedStorageBytes,
		ErrorMessage:      result.ErrorMessage,
		ExecutionTime:     result.ExecutionTime,
	}
	if err := e.store.FinalizeLedgerEntry(ctx, ledgerID, entry); err != nil {
		e.logger.Error("failed to finalize ledger entry",
			"ledger_id", ledgerID,
			"job_type", jobType,
			"error", err,
		)
	}

	if e.metrics != nil {
		e.metrics.ObserveCleanup(jobType, result)
	}

	return result, nil
}

// sweepCategories runs the per-category sweeps, accumulating one aggregate
// result with per-category log lines.
func (e *Engine) sweepCategories(ctx context.Context, categories []expiry.Category, respectGracePeriod bool) *expiry.CleanupResult {
	table := e.table()
	now := e.now()

	result := &expiry.CleanupResult{Success: true}
	var failures []string

	for _, category := range categories {
		grace, err := table.GracePeriod(category)
		if err != nil {
			result.ErrorCount++
			failures = append(failures, fmt.Sprintf("%s: %v", category, err))
			result.LogEntries = append(result.LogEntries,
				fmt.Sprintf("%s: FAILED - %v", category, err))
			continue
		}
		cutoff := now
		if respectGracePeriod {
			cutoff = now.Add(-grace)
		}

		sweep, err := e.store.SweepCategory(ctx, category, cutoff)
		if err != nil {
			result.ErrorCount++
			result.RollbackPerformed = true
			failures = append(failures, fmt.Sprintf("%s: %v", category, err))
			result.LogEntries = append(result.LogEntries,
				fmt.Sprintf("%s: FAILED - %v", category, err))
			e.logger.Error("category cleanup failed",
				"category", category,
				"error", err,
			)
			continue
		}

		result.DeletedCount += sweep.Deleted
		result.FreedMemoryBytes += sweep.FreedMemoryBytes
		result.FreedStorageBytes += sweep.FreedStorageBytes
		result.LogEntries = append(result.LogEntries,
			fmt.Sprintf("%s: %d deleted", category, sweep.Deleted))

		// In-grace rows are reported, never deleted. The count is advisory;
		// a failure here must not fail the sweep.
		if respectGracePeriod && grace > 0 {
			skipped, err := e.store.CountExpiring(ctx, category, cutoff, now)
			if err != nil {
				e.logger.Warn("in-grace count failed", "category", category, "error", err)
			} else {
				result.SkippedCount += skipped
			}
		}

		if e.metrics != nil {
			e.metrics.ObserveCategorySweep(string(category), sweep)
		}

		e.logger.Debug("category swept",
			"category", category,
			"deleted", sweep.Deleted,
			"cutoff", cutoff,
		)
	}

	if result.ErrorCount > 0 {
		result.Success = false
		result.ErrorMessage = strings.Join(failures, "; ")
	}

	e.logger.Info("cleanup finished",
		"categories", len(categories),
		"deleted", result.DeletedCount,
		"skipped", result.SkippedCount,
		"errors", result.ErrorCount,
		"success", result.Success,
	)
	return result
}
