// Package policy provides the TTL policy table for expirable data categories.
//
// # Policy Table
//
// A Table maps every data category to a base TTL, a grace period, and a set
// of per-tier multipliers:
//
//   - ExpiryFor stamps expires_at onto newly created records
//   - DeletionThresholdFor computes the earliest permanent-deletion time
//     (expiry plus grace period) used by the expiration engine
//
// Unknown categories are programmer errors and fail; unknown tiers are
// permissive and multiply by 1.0.
//
// # Immutability
//
// A Table is immutable once built. The engine and scheduler receive their
// Table by injection at construction; a policy file change produces a new
// Table between runs rather than mutating the one in flight.
//
// # Policy Files
//
// Defaults can be overridden from a YAML file:
//
//	categories:
//	  temporary_uploads:
//	    ttl: 1h
//	    grace_period: 0s
//	  registered_strokes:
//	    ttl: 720h
//	    grace_period: 1h
//	    tier_multipliers:
//	      premium: 3.0
//	      enterprise: 12.0
//
// A Watcher can monitor the policy file with fsnotify and deliver a freshly
// built Table to a callback, so operators can tune retention without a
// restart.
package policy
