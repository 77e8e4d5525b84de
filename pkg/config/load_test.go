package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "{}\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("storage backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.Driver != "sqlite3" {
		t.Errorf("storage driver = %q, want sqlite3", cfg.Storage.Driver)
	}
	if !cfg.Storage.WALMode {
		t.Error("WAL mode not defaulted to true")
	}
	if !cfg.Cleanup.RespectGracePeriod {
		t.Error("respect_grace_period not defaulted to true")
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Errorf("scheduler interval = %v, want 6h", cfg.Scheduler.Interval)
	}
	if cfg.Files.TempMaxAge != time.Hour {
		t.Errorf("temp max age = %v, want 1h", cfg.Files.TempMaxAge)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("logging level = %q, want info", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_ExplicitFalseSurvivesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  wal_mode: false
cleanup:
  respect_grace_period: false
scheduler:
  resource_check_enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.WALMode {
		t.Error("explicit wal_mode false was overridden")
	}
	if cfg.Cleanup.RespectGracePeriod {
		t.Error("explicit respect_grace_period false was overridden")
	}
	if cfg.Scheduler.ResourceCheckEnabled {
		t.Error("explicit resource_check_enabled false was overridden")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  backend: memory
files:
  base_path: /var/lib/slate/uploads
  temp_max_age: 30m
scheduler:
  interval: 1h
  cron: "0 3 * * *"
server:
  listen_address: 0.0.0.0:9090
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Files.BasePath != "/var/lib/slate/uploads" {
		t.Errorf("base path = %q", cfg.Files.BasePath)
	}
	if cfg.Files.TempMaxAge != 30*time.Minute {
		t.Errorf("temp max age = %v, want 30m", cfg.Files.TempMaxAge)
	}
	if cfg.Scheduler.Cron != "0 3 * * *" {
		t.Errorf("cron = %q", cfg.Scheduler.Cron)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "storage: [not a map\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  backend: postgres
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is not a ValidationError: %v", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "storage.backend" {
		t.Errorf("unexpected field errors: %v", verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  path: data/from-file.db
`)

	t.Setenv("SLATE_STORAGE_PATH", "/tmp/from-env.db")
	t.Setenv("SLATE_SCHEDULER_INTERVAL", "15m")
	t.Setenv("SLATE_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("SLATE_STORAGE_WAL_MODE", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Storage.Path != "/tmp/from-env.db" {
		t.Errorf("storage path = %q, want env value", cfg.Storage.Path)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", cfg.Scheduler.Interval)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Storage.WALMode {
		t.Error("env wal_mode=false not applied")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValue(t *testing.T) {
	path := writeConfigFile(t, "{}\n")

	// Unparseable values are ignored, the file/default value stands.
	t.Setenv("SLATE_SCHEDULER_INTERVAL", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Errorf("interval = %v, want default 6h", cfg.Scheduler.Interval)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	path := writeConfigFile(t, "{}\n")

	t.Setenv("SLATE_STORAGE_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("expected validation error after env override")
	}
}
