// Slate cleanup is the data expiration service for the Slate
// collaborative drawing board.
//
// It sweeps expired strokes, uploads and activity records according to
// per-category TTL policies, reconciles the on-disk upload tree against
// the database, and records every run in a persistent job ledger.
//
// Usage:
//
//	# Start the daemon (scheduler + ops server)
//	slate run
//
//	# Start with a custom configuration file
//	slate run --config /etc/slate/slate.yaml
//
//	# Run one cleanup pass and exit
//	slate cleanup
//
//	# Sweep a single category, ignoring the grace period
//	slate cleanup --category temporary_uploads --no-grace
//
//	# Inspect the job ledger and storage usage
//	slate status
//	slate storage usage
//
//	# Validate a configuration or policy file
//	slate validate --config slate.yaml
package main

func main() {
	Execute()
}
