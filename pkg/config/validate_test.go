package config

import (
	"strings"
	"testing"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	if err := Validate(NewDefault()); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "unknown storage backend",
			mutate: func(c *Config) { c.Storage.Backend = "postgres" },
			field:  "storage.backend",
		},
		{
			name:   "unknown sqlite driver",
			mutate: func(c *Config) { c.Storage.Driver = "duckdb" },
			field:  "storage.driver",
		},
		{
			name:   "empty sqlite path",
			mutate: func(c *Config) { c.Storage.Path = "" },
			field:  "storage.path",
		},
		{
			name:   "negative pool size",
			mutate: func(c *Config) { c.Storage.MaxOpenConns = -1 },
			field:  "storage.max_open_conns",
		},
		{
			name:   "empty files base path",
			mutate: func(c *Config) { c.Files.BasePath = "" },
			field:  "files.base_path",
		},
		{
			name:   "non-positive temp max age",
			mutate: func(c *Config) { c.Files.TempMaxAge = 0 },
			field:  "files.temp_max_age",
		},
		{
			name:   "non-positive notify lead",
			mutate: func(c *Config) { c.Cleanup.NotifyLead = -1 },
			field:  "cleanup.notify_lead",
		},
		{
			name:   "non-positive interval",
			mutate: func(c *Config) { c.Scheduler.Interval = 0 },
			field:  "scheduler.interval",
		},
		{
			name:   "bad cron expression",
			mutate: func(c *Config) { c.Scheduler.Cron = "99 99 * * *" },
			field:  "scheduler.cron",
		},
		{
			name:   "threshold above 100",
			mutate: func(c *Config) { c.Scheduler.MemoryThresholdPct = 150 },
			field:  "scheduler.memory_threshold_pct",
		},
		{
			name:   "missing disk path with checks on",
			mutate: func(c *Config) { c.Scheduler.DiskPath = "" },
			field:  "scheduler.disk_path",
		},
		{
			name:   "empty listen address",
			mutate: func(c *Config) { c.Server.ListenAddress = "" },
			field:  "server.listen_address",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			field:  "telemetry.logging.level",
		},
		{
			name:   "metrics path without slash",
			mutate: func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			field:  "telemetry.metrics.path",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = ""
			},
			field: "telemetry.tracing.endpoint",
		},
		{
			name: "sample ratio out of range",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = "localhost:4317"
				c.Telemetry.Tracing.SampleRatio = 2.0
			},
			field: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %s", err.Error(), tt.field)
			}
		})
	}
}

func TestValidate_DisabledServerSkipsChecks(t *testing.T) {
	cfg := NewDefault()
	cfg.Server.Enabled = false
	cfg.Server.ListenAddress = ""
	cfg.Server.ReadTimeout = 0

	if err := Validate(cfg); err != nil {
		t.Errorf("disabled server should skip validation: %v", err)
	}
}

func TestValidate_MemoryBackendSkipsSQLiteChecks(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Backend = "memory"
	cfg.Storage.Driver = ""
	cfg.Storage.Path = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("memory backend should skip sqlite checks: %v", err)
	}
}

func TestValidationError_MultipleErrors(t *testing.T) {
	cfg := NewDefault()
	cfg.Storage.Backend = "postgres"
	cfg.Files.BasePath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("expected aggregated error count in %q", msg)
	}
}
