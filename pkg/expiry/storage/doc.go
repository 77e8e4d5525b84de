// Package storage provides persistence backends for the expiry subsystem.
//
// # Backends
//
// Two implementations of expiry.Store are provided:
//
//   - SQLiteStore - durable storage over database/sql. The driver is
//     selectable: "sqlite3" (github.com/mattn/go-sqlite3, cgo) or "sqlite"
//     (modernc.org/sqlite, pure Go) for builds where cgo is unavailable.
//   - MemoryStore - in-memory storage for tests and ephemeral deployments.
//
// # Tables
//
// The store owns the board tables the external CRUD layer writes (strokes,
// file_uploads, activity_log) plus the cleanup_jobs ledger. Data categories
// resolve to a table and a fixed predicate through an explicit mapping built
// at package init; sweeps never dispatch through string-keyed reflection.
//
// # Atomicity
//
// SweepCategory runs its count, size aggregation, and delete inside one
// transaction. On error the transaction is rolled back and no rows are
// removed, which is what lets the expiration engine treat a category failure
// as isolated from its siblings.
package storage
