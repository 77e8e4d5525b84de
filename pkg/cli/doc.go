// Package cli provides shared helpers for the slate command line:
// typed command errors, shutdown signal handling and output formatting.
package cli
