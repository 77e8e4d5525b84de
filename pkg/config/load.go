package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Decoding starts from NewDefault so omitted fields keep their defaults
// while explicit values, including false booleans, are preserved. The
// result is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Re-fill fields a partial YAML section may have zeroed.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention SLATE_SECTION_FIELD (e.g. SLATE_STORAGE_PATH) and always
// take precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies SLATE_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	setString("SLATE_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("SLATE_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("SLATE_STORAGE_PATH", &cfg.Storage.Path)
	setInt("SLATE_STORAGE_MAX_OPEN_CONNS", &cfg.Storage.MaxOpenConns)
	setInt("SLATE_STORAGE_MAX_IDLE_CONNS", &cfg.Storage.MaxIdleConns)
	setBool("SLATE_STORAGE_WAL_MODE", &cfg.Storage.WALMode)
	setDuration("SLATE_STORAGE_BUSY_TIMEOUT", &cfg.Storage.BusyTimeout)

	// Files overrides
	setString("SLATE_FILES_BASE_PATH", &cfg.Files.BasePath)
	setDuration("SLATE_FILES_TEMP_MAX_AGE", &cfg.Files.TempMaxAge)
	setDuration("SLATE_FILES_QUARANTINE_RETENTION", &cfg.Files.QuarantineRetention)

	// Policies overrides
	setString("SLATE_POLICIES_FILE_PATH", &cfg.Policies.FilePath)
	setBool("SLATE_POLICIES_WATCH", &cfg.Policies.Watch)

	// Cleanup overrides
	setBool("SLATE_CLEANUP_RESPECT_GRACE_PERIOD", &cfg.Cleanup.RespectGracePeriod)
	setDuration("SLATE_CLEANUP_NOTIFY_LEAD", &cfg.Cleanup.NotifyLead)

	// Scheduler overrides
	setDuration("SLATE_SCHEDULER_INTERVAL", &cfg.Scheduler.Interval)
	setString("SLATE_SCHEDULER_CRON", &cfg.Scheduler.Cron)
	setInt("SLATE_SCHEDULER_MAX_RETRIES", &cfg.Scheduler.MaxRetries)
	setDuration("SLATE_SCHEDULER_RETRY_DELAY", &cfg.Scheduler.RetryDelay)
	setBool("SLATE_SCHEDULER_ENABLE_NOTIFICATIONS", &cfg.Scheduler.EnableNotifications)
	setBool("SLATE_SCHEDULER_RESOURCE_CHECK_ENABLED", &cfg.Scheduler.ResourceCheckEnabled)
	setFloat("SLATE_SCHEDULER_MEMORY_THRESHOLD_PCT", &cfg.Scheduler.MemoryThresholdPct)
	setFloat("SLATE_SCHEDULER_DISK_THRESHOLD_PCT", &cfg.Scheduler.DiskThresholdPct)
	setFloat("SLATE_SCHEDULER_CPU_THRESHOLD_PCT", &cfg.Scheduler.CPUThresholdPct)
	setString("SLATE_SCHEDULER_DISK_PATH", &cfg.Scheduler.DiskPath)

	// Server overrides
	setBool("SLATE_SERVER_ENABLED", &cfg.Server.Enabled)
	setString("SLATE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("SLATE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SLATE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SLATE_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("SLATE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	setString("SLATE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("SLATE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("SLATE_TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	setBool("SLATE_TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	setBool("SLATE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("SLATE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setBool("SLATE_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("SLATE_TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	setString("SLATE_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	setFloat("SLATE_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	setBool("SLATE_TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	setDuration("SLATE_TELEMETRY_TRACING_TIMEOUT", &cfg.Telemetry.Tracing.Timeout)
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
