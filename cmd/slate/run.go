package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"slate-hq/slate/pkg/cli"
	"slate-hq/slate/pkg/config"
	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/policy"
	"slate-hq/slate/pkg/expiry/scheduler"
	"slate-hq/slate/pkg/server"
	"slate-hq/slate/pkg/telemetry/metrics"
	"slate-hq/slate/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cleanup daemon",
	Long: `Start the cleanup daemon with the specified configuration.

The daemon runs the job scheduler and, unless disabled, the operational
HTTP server with health, job, ledger, storage and metrics endpoints.

Examples:
  # Start with default config
  slate run

  # Start with custom config
  slate run --config /etc/slate/slate.yaml

  # Override the ops server listen address
  slate run --listen 0.0.0.0:8085

  # Validate config without starting the daemon
  slate run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override ops server listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	if _, err := setupLogging(cfg, level); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Slate cleanup v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	stk, err := buildStack(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer stk.Close()
	fmt.Printf("✓ Storage initialized (%s backend)\n", cfg.Storage.Backend)

	tracer, err := tracing.New(tracing.Config{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		ServiceName: cfg.Telemetry.Tracing.ServiceName,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		SampleRatio: cfg.Telemetry.Tracing.SampleRatio,
		Insecure:    cfg.Telemetry.Tracing.Insecure,
		Timeout:     cfg.Telemetry.Tracing.Timeout,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer tracer.Shutdown(context.Background())

	var cleanupMetrics *metrics.CleanupMetrics
	if cfg.Telemetry.Metrics.Enabled {
		cleanupMetrics = metrics.NewCleanupMetrics(nil)
		stk.engine.SetMetrics(cleanupMetrics)
		stk.reconciler.SetMetrics(cleanupMetrics)
	}

	sched := newScheduler(cfg, stk, tracer)
	if cleanupMetrics != nil {
		sched.SetMetrics(cleanupMetrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startSchedule(ctx, cfg, sched); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer sched.Stop()
	fmt.Println("✓ Scheduler started")

	var watcher *policy.Watcher
	if cfg.Policies.Watch && cfg.Policies.FilePath != "" {
		watcher, err = policy.NewWatcher(cfg.Policies.FilePath, slog.Default().With("component", "policy.watcher"))
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to watch policy file: %w", err))
		}
		go func() {
			if err := watcher.Watch(ctx, stk.engine.ReloadPolicies); err != nil {
				slog.Error("policy watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Printf("✓ Watching policy file: %s\n", cfg.Policies.FilePath)
	}

	errChan := make(chan error, 1)
	var srv *server.Server
	if cfg.Server.Enabled {
		srv, err = server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, server.Options{
			Engine:     stk.engine,
			Scheduler:  sched,
			Reconciler: stk.reconciler,
			Store:      stk.store,
			Metrics:    cleanupMetrics,
		})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("ops server error: %w", err)
			}
		}()
		fmt.Printf("✓ Ops server listening on %s\n", cfg.Server.ListenAddress)
		if cfg.Telemetry.Metrics.Enabled {
			fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()
	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()
		if srv != nil {
			if err := srv.Shutdown(context.Background()); err != nil {
				slog.Error("shutdown failed", "error", err)
				return cli.NewCommandError("run", err)
			}
		}
		fmt.Println("✓ Daemon stopped")
		return nil
	}
}

// newScheduler builds the scheduler whose body warns owners of upcoming
// expiry, sweeps every category and reconciles the file tree.
func newScheduler(cfg *config.Config, stk *stack, tracer *tracing.Tracer) *scheduler.Scheduler {
	schedCfg := &scheduler.Config{
		Interval:             cfg.Scheduler.Interval,
		Cron:                 cfg.Scheduler.Cron,
		MaxRetries:           cfg.Scheduler.MaxRetries,
		RetryDelay:           cfg.Scheduler.RetryDelay,
		EnableNotifications:  cfg.Scheduler.EnableNotifications,
		ResourceCheckEnabled: cfg.Scheduler.ResourceCheckEnabled,
		MemoryThresholdPct:   cfg.Scheduler.MemoryThresholdPct,
		DiskThresholdPct:     cfg.Scheduler.DiskThresholdPct,
		CPUThresholdPct:      cfg.Scheduler.CPUThresholdPct,
		DiskPath:             cfg.Scheduler.DiskPath,
	}

	sched := scheduler.New(schedCfg, func(ctx context.Context) (*expiry.CleanupResult, error) {
		ctx, span := tracer.Start(ctx, "cleanup.run")
		defer span.End()

		if owners, err := stk.engine.NotifyBeforeExpiry(ctx, cfg.Cleanup.NotifyLead); err != nil {
			slog.Warn("expiry notification pass failed", "error", err)
		} else if owners > 0 {
			slog.Info("expiry warnings issued", "owners", owners)
		}

		result, err := stk.engine.CleanupAll(ctx, cfg.Cleanup.RespectGracePeriod)
		if err != nil {
			tracing.SetStatus(span, err)
			return result, err
		}
		tracing.SetCleanupAttributes(span, result.DeletedCount, result.SkippedCount, int64(result.ErrorCount))

		if opt, optErr := stk.reconciler.OptimizeStorage(ctx); optErr != nil {
			slog.Warn("storage optimization failed", "error", optErr)
		} else {
			tracing.SetReconcileAttributes(span, opt.OperationType,
				int64(opt.DeletedFilesCount), int64(opt.OrphanedFilesCount), opt.FreedBytes)
		}

		tracing.SetStatus(span, nil)
		return result, nil
	})

	sched.SetFailureNotifier(func(runID, errorMessage string) {
		slog.Error("cleanup retries exhausted", "run_id", runID, "error", errorMessage)
	})

	return sched
}

func startSchedule(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler) error {
	if cfg.Scheduler.Cron != "" {
		if _, err := sched.ScheduleCronCleanup(cfg.Scheduler.Cron); err != nil {
			return err
		}
	} else {
		if _, err := sched.ScheduleCleanupJob(cfg.Scheduler.Interval); err != nil {
			return err
		}
	}
	return sched.Start(ctx)
}
