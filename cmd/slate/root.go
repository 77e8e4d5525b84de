package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "slate",
	Short: "Slate cleanup - data expiration service for the Slate drawing board",
	Long: `Slate cleanup is the data expiration service for the Slate collaborative
drawing board backend.

It provides:
  - TTL-based expiry for strokes, uploads and activity records
  - Tier-aware retention (free, premium, enterprise)
  - Scheduled and on-demand cleanup with a persistent job ledger
  - Filesystem reconciliation with orphan quarantine
  - An operational HTTP API with Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "slate.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
