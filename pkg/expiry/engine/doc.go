// Package engine implements the expiration engine: it applies the TTL policy
// table to every data category, sweeping rows whose grace period has elapsed
// and producing a structured CleanupResult per operation.
//
// Each category sweeps in its own transaction. A failing category rolls its
// transaction back and reports a failed result; it never aborts the sibling
// categories of an aggregate run.
package engine
