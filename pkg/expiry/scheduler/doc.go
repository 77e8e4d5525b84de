// Package scheduler drives the expiration engine and storage reconciler on a
// recurring cadence.
//
// A scheduler owns one pluggable cleanup body (defaulting to the engine's
// aggregate cleanup) and fires it from interval or cron triggers, or on
// demand. Runs are single-flight: a fire that overlaps an in-flight run is
// coalesced into the next trigger rather than queued. Failed runs are retried
// after a delay up to a retry budget; exhausting the budget is a terminal
// failure surfaced through the notification hook and the execution history,
// never a crash.
//
// An optional resource gate skips (not fails) a run under host memory, disk,
// or CPU pressure. Hosts without /proc are assumed healthy.
package scheduler
