package main

import (
	"fmt"
	"log/slog"

	"slate-hq/slate/pkg/config"
	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/engine"
	"slate-hq/slate/pkg/expiry/policy"
	"slate-hq/slate/pkg/expiry/reconciler"
	"slate-hq/slate/pkg/expiry/storage"
	"slate-hq/slate/pkg/telemetry/logging"
)

// stack holds the wired cleanup components shared by the commands.
type stack struct {
	cfg        *config.Config
	store      expiry.Store
	policies   *policy.Table
	engine     *engine.Engine
	reconciler *reconciler.Manager
}

// loadConfigAndLogging loads the config file, applies env overrides and
// installs the configured default logger. The verbose flag forces debug
// level regardless of configuration.
func loadConfigAndLogging() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	if _, err := setupLogging(cfg, level); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogging installs the configured default logger at the given level.
func setupLogging(cfg *config.Config, level string) (*slog.Logger, error) {
	logger, err := logging.Setup(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		RedactPII: cfg.Telemetry.Logging.RedactPII,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

// buildStack wires the store, policy table, engine and reconciler from
// configuration. Callers must Close() the returned stack.
func buildStack(cfg *config.Config) (*stack, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	policies, err := loadPolicies(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	recon, err := reconciler.NewManager(&reconciler.Config{
		BasePath:            cfg.Files.BasePath,
		TempMaxAge:          cfg.Files.TempMaxAge,
		QuarantineRetention: cfg.Files.QuarantineRetention,
	}, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create storage reconciler: %w", err)
	}

	return &stack{
		cfg:        cfg,
		store:      store,
		policies:   policies,
		engine:     engine.New(store, policies),
		reconciler: recon,
	}, nil
}

func (s *stack) Close() error {
	return s.store.Close()
}

func newStore(cfg *config.Config) (expiry.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.Storage.Path,
			Driver:       cfg.Storage.Driver,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			WALMode:      cfg.Storage.WALMode,
			BusyTimeout:  cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func loadPolicies(cfg *config.Config) (*policy.Table, error) {
	if cfg.Policies.FilePath == "" {
		return policy.DefaultTable(), nil
	}
	table, err := policy.LoadFile(cfg.Policies.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy file: %w", err)
	}
	return table, nil
}
