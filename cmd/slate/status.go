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

var statusFlags struct {
	limit  int
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent cleanup runs from the job ledger",
	Long: `Show recent cleanup runs from the persistent job ledger, newest first.

Examples:
  # Last 20 runs
  slate status

  # Last 5 runs as JSON
  slate status --limit 5 --output json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusFlags.limit, "limit", 20, "maximum runs to show")
	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigAndLogging()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	stk, err := buildStack(cfg)
	if err != nil {
		return cli.NewCommandError("status", err)
	}
	defer stk.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := stk.store.LedgerEntries(ctx, statusFlags.limit)
	if err != nil {
		return cli.NewCommandError("status", err)
	}

	if cli.OutputFormat(statusFlags.output) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("No cleanup runs recorded")
		return nil
	}

	fmt.Printf("%-4s %-28s %-20s %-10s %8s %10s %10s\n",
		"ID", "JOB", "STARTED", "STATUS", "DELETED", "FREED", "DURATION")
	for _, e := range entries {
		fmt.Printf("%-4d %-28s %-20s %-10s %8d %10s %10s\n",
			e.ID,
			e.JobType,
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Status,
			e.DeletedCount,
			cli.HumanBytes(e.FreedMemoryBytes+e.FreedStorageBytes),
			e.ExecutionTime.Round(time.Millisecond),
		)
		if e.Status == expiry.JobStatusFailed && e.ErrorMessage != "" {
			fmt.Printf("     error: %s\n", e.ErrorMessage)
		}
	}
	return nil
}
