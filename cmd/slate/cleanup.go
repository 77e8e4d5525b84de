package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"slate-hq/slate/pkg/cli"
	"slate-hq/slate/pkg/expiry"
)

var cleanupFlags struct {
	category string
	strokes  string
	noGrace  bool
	output   string
	timeout  time.Duration
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one cleanup pass and exit",
	Long: `Run one cleanup pass against the configured storage and exit.

By default every category is swept with its grace period respected.
The run is recorded in the job ledger like any scheduled run.

Examples:
  # Sweep all categories
  slate cleanup

  # Sweep one category
  slate cleanup --category temporary_uploads

  # Sweep only anonymous strokes
  slate cleanup --strokes anonymous

  # Delete at expiry exactly, ignoring grace periods
  slate cleanup --no-grace

  # Machine-readable output
  slate cleanup --output json`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().StringVar(&cleanupFlags.category, "category", "", "sweep a single data category")
	cleanupCmd.Flags().StringVar(&cleanupFlags.strokes, "strokes", "", "sweep stroke categories (anonymous, registered, all)")
	cleanupCmd.Flags().BoolVar(&cleanupFlags.noGrace, "no-grace", false, "ignore grace periods, delete at expiry")
	cleanupCmd.Flags().StringVarP(&cleanupFlags.output, "output", "o", "text", "output format (text, json)")
	cleanupCmd.Flags().DurationVar(&cleanupFlags.timeout, "timeout", 10*time.Minute, "overall run timeout")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if cleanupFlags.category != "" && cleanupFlags.strokes != "" {
		return cli.NewConfigError("", "--category and --strokes are mutually exclusive")
	}

	cfg, err := loadConfigAndLogging()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	stk, err := buildStack(cfg)
	if err != nil {
		return cli.NewCommandError("cleanup", err)
	}
	defer stk.Close()

	sigCtx, stop := cli.ShutdownContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, cleanupFlags.timeout)
	defer cancel()

	var result *expiry.CleanupResult
	switch {
	case cleanupFlags.category != "":
		result, err = stk.engine.CleanupCategory(ctx, expiry.Category(cleanupFlags.category))
	case cleanupFlags.strokes != "":
		result, err = stk.engine.CleanupStrokes(ctx, expiry.StrokeFilter(cleanupFlags.strokes))
	default:
		result, err = stk.engine.CleanupAll(ctx, !cleanupFlags.noGrace)
	}
	if err != nil {
		return cli.NewCommandError("cleanup", err)
	}

	if cli.OutputFormat(cleanupFlags.output) == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("cleanup", err)
		}
	} else {
		printCleanupResult(result)
	}

	if !result.Success {
		return cli.NewCommandError("cleanup", fmt.Errorf("%d categories failed: %s", result.ErrorCount, result.ErrorMessage))
	}
	return nil
}

func printCleanupResult(result *expiry.CleanupResult) {
	for _, line := range result.LogEntries {
		fmt.Println("  " + line)
	}
	fmt.Printf("\nDeleted:        %d rows\n", result.DeletedCount)
	fmt.Printf("Skipped (grace): %d rows\n", result.SkippedCount)
	fmt.Printf("Freed memory:   %s\n", cli.HumanBytes(result.FreedMemoryBytes))
	fmt.Printf("Freed storage:  %s\n", cli.HumanBytes(result.FreedStorageBytes))
	fmt.Printf("Duration:       %s\n", result.ExecutionTime)
	if result.Success {
		fmt.Println("✓ Cleanup completed")
	} else {
		fmt.Printf("✗ Cleanup finished with %d errors\n", result.ErrorCount)
	}
}
