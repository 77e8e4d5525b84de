// Package server provides the operational HTTP server for the cleanup
// service.
//
// The server exposes a small read surface plus a manual cleanup trigger:
//
//	GET  /healthz                 liveness
//	GET  /metrics                 Prometheus exposition (path configurable)
//	GET  /api/v1/jobs             scheduled jobs and recent run history
//	GET  /api/v1/jobs/{id}        a single run result by run ID
//	POST /api/v1/cleanup          trigger a cleanup run
//	GET  /api/v1/ledger           persisted cleanup job ledger
//	GET  /api/v1/storage/usage    on-disk usage snapshot
//
// Manual cleanup triggers go through the scheduler so they share its
// single-flight gate with scheduled runs.
package server
