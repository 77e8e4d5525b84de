// Package expiry provides TTL-based data expiration for the Slate
// collaborative drawing board backend. It defines the data categories
// subject to expiration, the result types returned by cleanup operations,
// and the Store interface the cleanup subsystem runs against.
//
// # Architecture
//
// The expiry system consists of four layers:
//
//  1. Policy Table - per-category TTL and grace-period rules (pkg/expiry/policy)
//  2. Expiration Engine - transactional per-category record sweeps (pkg/expiry/engine)
//  3. Storage Reconciler - on-disk orphan and age cleanup (pkg/expiry/reconciler)
//  4. Job Scheduler - cron/interval driven execution with retries (pkg/expiry/scheduler)
//
// # Data Categories
//
// Every persisted record carries an expires_at timestamp stamped at creation
// time from the owning category's policy and the owner's tier. Categories map
// onto three underlying tables (strokes, file_uploads, activity_log) through
// an explicit per-category predicate; there is no string-keyed reflection at
// sweep time.
//
// # Cleanup Flow
//
//	Scheduler trigger (cron or interval)
//	     ↓
//	Resource gate (skip under host pressure)
//	     ↓
//	Expiration Engine (per-category transactional sweep)
//	     ↓
//	Storage Reconciler (expired files, orphan quarantine)
//	     ↓
//	Cleanup Job Ledger (durable audit row per run)
//
// A failure in one category rolls back only that category's transaction;
// sibling categories still run and the aggregate result reports per-category
// outcomes.
package expiry
