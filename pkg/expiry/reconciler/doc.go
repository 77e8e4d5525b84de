// Package reconciler implements the storage reconciler: it keeps the on-disk
// file tree consistent with the board database.
//
// The managed tree lives under a single base path with one subdirectory per
// file category (uploads, templates, exports, avatars, temp) plus a
// quarantine area created on demand. Expired files are deleted by
// modification time; files with no referencing database row are quarantined
// with a timestamped rename rather than deleted, leaving a recovery margin
// against stale database reads.
package reconciler
