package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"slate-hq/slate/pkg/cli"
)

var storageFlags struct {
	output string
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect and optimize managed file storage",
}

var storageUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show on-disk usage per category",
	Long: `Compute a snapshot of on-disk usage in the managed upload tree,
broken down per category, including orphaned files with no database
reference.`,
	RunE: runStorageUsage,
}

var storageOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep temp files, quarantine orphans and purge old quarantine",
	Long: `Run the full storage optimization pass: delete stale temp files,
move orphaned files to quarantine, and purge quarantined files past
their retention.`,
	RunE: runStorageOptimize,
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageUsageCmd)
	storageCmd.AddCommand(storageOptimizeCmd)

	storageCmd.PersistentFlags().StringVarP(&storageFlags.output, "output", "o", "text", "output format (text, json)")
}

func runStorageUsage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigAndLogging()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	stk, err := buildStack(cfg)
	if err != nil {
		return cli.NewCommandError("storage usage", err)
	}
	defer stk.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	usage, err := stk.reconciler.CalculateStorageUsage(ctx)
	if err != nil {
		return cli.NewCommandError("storage usage", err)
	}

	if cli.OutputFormat(storageFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, usage)
	}

	categories := make([]string, 0, len(usage.CategoryBytes))
	for c := range usage.CategoryBytes {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Printf("Base path: %s\n\n", cfg.Files.BasePath)
	for _, c := range categories {
		fmt.Printf("  %-12s %10s\n", c, cli.HumanBytes(usage.CategoryBytes[c]))
	}
	fmt.Printf("\nTotal:    %s in %d files\n", cli.HumanBytes(usage.TotalBytes), usage.FileCount)
	if usage.OrphanedCount > 0 {
		fmt.Printf("Orphaned: %s in %d files\n", cli.HumanBytes(usage.OrphanedBytes), usage.OrphanedCount)
	}
	return nil
}

func runStorageOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigAndLogging()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	stk, err := buildStack(cfg)
	if err != nil {
		return cli.NewCommandError("storage optimize", err)
	}
	defer stk.Close()

	sigCtx, stop := cli.ShutdownContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(sigCtx, 10*time.Minute)
	defer cancel()

	result, err := stk.reconciler.OptimizeStorage(ctx)
	if err != nil {
		return cli.NewCommandError("storage optimize", err)
	}

	if cli.OutputFormat(storageFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	fmt.Printf("Deleted files:     %d\n", result.DeletedFilesCount)
	fmt.Printf("Quarantined files: %d\n", result.OrphanedFilesCount)
	fmt.Printf("Freed:             %s\n", cli.HumanBytes(result.FreedBytes))
	fmt.Printf("Duration:          %s\n", result.ExecutionTime.Round(time.Millisecond))
	if result.ErrorCount > 0 {
		fmt.Printf("Errors:            %d\n", result.ErrorCount)
		for _, e := range result.Errors {
			fmt.Println("  " + e)
		}
	}
	if result.Success {
		fmt.Println("✓ Storage optimized")
	} else {
		fmt.Println("✗ Storage optimization finished with errors")
	}
	return nil
}
