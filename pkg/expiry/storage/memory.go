package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"slate-hq/slate/pkg/expiry"
)

// MemoryStore implements expiry.Store entirely in memory. It is intended for
// tests and for ad-hoc runs that must not touch the board database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[expiry.Category][]*expiry.Record
	ledger  []*expiry.LedgerEntry
	nextID  int64
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[expiry.Category][]*expiry.Record),
		nextID:  1,
	}
}

// InsertRecord persists a new expirable record.
func (m *MemoryStore) InsertRecord(ctx context.Context, rec *expiry.Record) error {
	if rec == nil {
		return expiry.NewStorageError("memory", "insert", fmt.Errorf("record cannot be nil"))
	}
	if _, err := specFor(rec.Category); err != nil {
		return expiry.NewStorageError("memory", "insert", err)
	}
	if rec.ExpiresAt.IsZero() {
		return expiry.NewStorageError("memory", "insert", fmt.Errorf("record has no expires_at"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return expiry.NewStorageError("memory", "insert", fmt.Errorf("store is closed"))
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.ID = m.nextID
	m.nextID++

	clone := *rec
	m.records[rec.Category] = append(m.records[rec.Category], &clone)
	return nil
}

// matches mirrors the SQL category predicates that go beyond the category
// itself. Templates with a non-zero usage count are excluded from the
// unused_templates category.
func matches(category expiry.Category, rec *expiry.Record) bool {
	if category == expiry.CategoryUnusedTemplates && rec.UsageCount > 0 {
		return false
	}
	return true
}

// CountRecords returns the number of live rows in a category.
func (m *MemoryStore) CountRecords(ctx context.Context, category expiry.Category) (int64, error) {
	if _, err := specFor(category); err != nil {
		return 0, expiry.NewStorageError("memory", "count", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, rec := range m.records[category] {
		if matches(category, rec) {
			count++
		}
	}
	return count, nil
}

// CountExpiring returns the number of rows in a category whose expires_at
// falls in (after, until].
func (m *MemoryStore) CountExpiring(ctx context.Context, category expiry.Category, after, until time.Time) (int64, error) {
	if _, err := specFor(category); err != nil {
		return 0, expiry.NewStorageError("memory", "count_expiring", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, rec := range m.records[category] {
		if matches(category, rec) && rec.ExpiresAt.After(after) && !rec.ExpiresAt.After(until) {
			count++
		}
	}
	return count, nil
}

// SweepCategory deletes every row in the category with
// expires_at <= deleteBefore.
func (m *MemoryStore) SweepCategory(ctx context.Context, category expiry.Category, deleteBefore time.Time) (expiry.SweepResult, error) {
	var result expiry.SweepResult

	spec, err := specFor(category)
	if err != nil {
		return result, expiry.NewStorageError("memory", "sweep", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return result, expiry.NewStorageError("memory", "sweep", fmt.Errorf("store is closed"))
	}

	var kept []*expiry.Record
	for _, rec := range m.records[category] {
		if !matches(category, rec) || rec.ExpiresAt.After(deleteBefore) {
			kept = append(kept, rec)
			continue
		}
		result.Deleted++
		if spec.sizeExpr == "" {
			continue
		}
		if spec.storageBytes {
			result.FreedStorageBytes += rec.SizeBytes
		} else {
			result.FreedMemoryBytes += rec.SizeBytes
		}
	}
	m.records[category] = kept
	return result, nil
}

// OwnersExpiringBefore returns the distinct owner IDs with records expiring
// after now but at or before threshold.
func (m *MemoryStore) OwnersExpiringBefore(ctx context.Context, now, threshold time.Time) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, recs := range m.records {
		for _, rec := range recs {
			if rec.OwnerID == nil {
				continue
			}
			if rec.ExpiresAt.After(now) && !rec.ExpiresAt.After(threshold) {
				seen[*rec.OwnerID] = struct{}{}
			}
		}
	}

	owners := make([]int64, 0, len(seen))
	for id := range seen {
		owners = append(owners, id)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

// ReferencedFilePaths returns every file_path referenced by a live
// file-backed row.
func (m *MemoryStore) ReferencedFilePaths(ctx context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make(map[string]struct{})
	for category, recs := range m.records {
		if _, ok := uploadTypes[category]; !ok {
			continue
		}
		for _, rec := range recs {
			if rec.FilePath != "" {
				paths[rec.FilePath] = struct{}{}
			}
		}
	}
	return paths, nil
}

// BeginLedgerEntry creates a ledger row with status running.
func (m *MemoryStore) BeginLedgerEntry(ctx context.Context, jobType string, startedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, expiry.NewStorageError("memory", "ledger_begin", fmt.Errorf("store is closed"))
	}

	entry := &expiry.LedgerEntry{
		ID:        m.nextID,
		JobType:   jobType,
		StartedAt: startedAt,
		Status:    expiry.JobStatusRunning,
	}
	m.nextID++
	m.ledger = append(m.ledger, entry)
	return entry.ID, nil
}

// FinalizeLedgerEntry updates a running ledger row exactly once.
func (m *MemoryStore) FinalizeLedgerEntry(ctx context.Context, id int64, entry *expiry.LedgerEntry) error {
	if entry.Status != expiry.JobStatusCompleted && entry.Status != expiry.JobStatusFailed {
		return expiry.NewStorageError("memory", "ledger_finalize",
			fmt.Errorf("terminal status required, got %q", entry.Status))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.ledger {
		if existing.ID != id {
			continue
		}
		if existing.Status != expiry.JobStatusRunning {
			return expiry.NewStorageError("memory", "ledger_finalize",
				fmt.Errorf("ledger entry %d is not running (already finalized)", id))
		}
		existing.CompletedAt = entry.CompletedAt
		existing.Status = entry.Status
		existing.DeletedCount = entry.DeletedCount
		existing.FreedMemoryBytes = entry.FreedMemoryBytes
		existing.FreedStorageBytes = entry.FreedStorageBytes
		existing.ErrorMessage = entry.ErrorMessage
		existing.ExecutionTime = entry.ExecutionTime
		return nil
	}
	return expiry.NewStorageError("memory", "ledger_finalize",
		fmt.Errorf("ledger entry %d not found", id))
}

// LedgerEntries returns the most recent ledger rows, newest first.
func (m *MemoryStore) LedgerEntries(ctx context.Context, limit int) ([]*expiry.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*expiry.LedgerEntry, 0, limit)
	for i := len(m.ledger) - 1; i >= 0 && len(entries) < limit; i-- {
		clone := *m.ledger[i]
		entries = append(entries, &clone)
	}
	return entries, nil
}

// Close marks the store closed. Subsequent writes fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
