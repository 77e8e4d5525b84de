package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "storage.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateFiles(&cfg.Files)...)
	errs = append(errs, validateCleanup(&cfg.Cleanup)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateStorage(s *StorageConfig) []FieldError {
	var errs []FieldError

	switch s.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{"storage.backend", fmt.Sprintf("unsupported backend %q (expected sqlite or memory)", s.Backend)})
	}
	if s.Backend == "sqlite" {
		switch s.Driver {
		case "sqlite3", "sqlite":
		default:
			errs = append(errs, FieldError{"storage.driver", fmt.Sprintf("unsupported driver %q (expected sqlite3 or sqlite)", s.Driver)})
		}
		if s.Path == "" {
			errs = append(errs, FieldError{"storage.path", "path is required for the sqlite backend"})
		}
	}
	if s.MaxOpenConns < 0 {
		errs = append(errs, FieldError{"storage.max_open_conns", "must not be negative"})
	}
	if s.MaxIdleConns < 0 {
		errs = append(errs, FieldError{"storage.max_idle_conns", "must not be negative"})
	}
	if s.BusyTimeout < 0 {
		errs = append(errs, FieldError{"storage.busy_timeout", "must not be negative"})
	}

	return errs
}

func validateFiles(f *FilesConfig) []FieldError {
	var errs []FieldError

	if f.BasePath == "" {
		errs = append(errs, FieldError{"files.base_path", "base path is required"})
	}
	if f.TempMaxAge <= 0 {
		errs = append(errs, FieldError{"files.temp_max_age", "must be positive"})
	}
	if f.QuarantineRetention <= 0 {
		errs = append(errs, FieldError{"files.quarantine_retention", "must be positive"})
	}

	return errs
}

func validateCleanup(c *CleanupConfig) []FieldError {
	var errs []FieldError

	if c.NotifyLead <= 0 {
		errs = append(errs, FieldError{"cleanup.notify_lead", "must be positive"})
	}

	return errs
}

func validateScheduler(s *SchedulerConfig) []FieldError {
	var errs []FieldError

	if s.Interval <= 0 {
		errs = append(errs, FieldError{"scheduler.interval", "must be positive"})
	}
	if s.Cron != "" {
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			errs = append(errs, FieldError{"scheduler.cron", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if s.MaxRetries < 0 {
		errs = append(errs, FieldError{"scheduler.max_retries", "must not be negative"})
	}
	if s.RetryDelay <= 0 {
		errs = append(errs, FieldError{"scheduler.retry_delay", "must be positive"})
	}
	for _, t := range []struct {
		field string
		value float64
	}{
		{"scheduler.memory_threshold_pct", s.MemoryThresholdPct},
		{"scheduler.disk_threshold_pct", s.DiskThresholdPct},
		{"scheduler.cpu_threshold_pct", s.CPUThresholdPct},
	} {
		if t.value <= 0 || t.value > 100 {
			errs = append(errs, FieldError{t.field, "must be in (0, 100]"})
		}
	}
	if s.ResourceCheckEnabled && s.DiskPath == "" {
		errs = append(errs, FieldError{"scheduler.disk_path", "disk path is required when resource checks are enabled"})
	}

	return errs
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError

	if !s.Enabled {
		return nil
	}
	if s.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "listen address is required"})
	}
	for _, t := range []struct {
		field string
		value int64
	}{
		{"server.read_timeout", int64(s.ReadTimeout)},
		{"server.write_timeout", int64(s.WriteTimeout)},
		{"server.idle_timeout", int64(s.IdleTimeout)},
		{"server.shutdown_timeout", int64(s.ShutdownTimeout)},
	} {
		if t.value <= 0 {
			errs = append(errs, FieldError{t.field, "must be positive"})
		}
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch t.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", t.Logging.Level)})
	}
	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", t.Logging.Format)})
	}
	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}
	if t.Tracing.Enabled {
		if t.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{"telemetry.tracing.endpoint", "endpoint is required when tracing is enabled"})
		}
		if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{"telemetry.tracing.sample_ratio", "must be in [0, 1]"})
		}
	}

	return errs
}
