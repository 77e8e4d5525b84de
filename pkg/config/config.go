package config

import "time"

// Config is the root configuration for the Slate cleanup service.
type Config struct {
	// Storage configures the database backend.
	Storage StorageConfig `yaml:"storage"`

	// Files configures the managed upload directory tree.
	Files FilesConfig `yaml:"files"`

	// Policies configures TTL policy overrides and hot reload.
	Policies PoliciesConfig `yaml:"policies"`

	// Cleanup configures engine-level run behavior.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// Scheduler configures periodic cleanup execution.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Server configures the operational HTTP server.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains database backend settings.
type StorageConfig struct {
	// Backend selects the storage implementation ("sqlite", "memory").
	Backend string `yaml:"backend"`

	// Driver selects the SQLite driver ("sqlite3" for mattn,
	// "sqlite" for modernc). Ignored by the memory backend.
	Driver string `yaml:"driver"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// MaxOpenConns limits concurrently open database connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle pooled connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables SQLite write-ahead logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite busy handler timeout.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// FilesConfig contains managed file tree settings.
type FilesConfig struct {
	// BasePath is the root of the managed upload directory tree.
	BasePath string `yaml:"base_path"`

	// TempMaxAge is how long files in temp/ may live before
	// OptimizeStorage removes them.
	TempMaxAge time.Duration `yaml:"temp_max_age"`

	// QuarantineRetention is how long quarantined orphans are kept.
	QuarantineRetention time.Duration `yaml:"quarantine_retention"`
}

// PoliciesConfig contains TTL policy table settings.
type PoliciesConfig struct {
	// FilePath points to a YAML file with per-category TTL overrides.
	// Empty means the built-in defaults are used unchanged.
	FilePath string `yaml:"file_path"`

	// Watch reloads the policy file on change.
	Watch bool `yaml:"watch"`
}

// CleanupConfig contains engine run settings.
type CleanupConfig struct {
	// RespectGracePeriod keeps rows inside their grace window.
	// Disabling it makes sweeps delete at expiry exactly.
	RespectGracePeriod bool `yaml:"respect_grace_period"`

	// NotifyLead is how far ahead of expiry owners are warned.
	NotifyLead time.Duration `yaml:"notify_lead"`
}

// SchedulerConfig contains periodic execution settings.
type SchedulerConfig struct {
	// Interval between scheduled cleanup runs. Ignored when Cron is set.
	Interval time.Duration `yaml:"interval"`

	// Cron is a standard five-field cron expression. Takes precedence
	// over Interval when non-empty.
	Cron string `yaml:"cron"`

	// MaxRetries bounds consecutive automatic retries after failures.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the wait before an automatic retry.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// EnableNotifications fires the failure hook when retries exhaust.
	EnableNotifications bool `yaml:"enable_notifications"`

	// ResourceCheckEnabled skips runs under host resource pressure.
	ResourceCheckEnabled bool `yaml:"resource_check_enabled"`

	// MemoryThresholdPct skips runs above this memory usage percentage.
	MemoryThresholdPct float64 `yaml:"memory_threshold_pct"`

	// DiskThresholdPct skips runs above this disk usage percentage.
	DiskThresholdPct float64 `yaml:"disk_threshold_pct"`

	// CPUThresholdPct skips runs above this CPU usage percentage.
	CPUThresholdPct float64 `yaml:"cpu_threshold_pct"`

	// DiskPath is the mount point probed for the disk threshold.
	DiskPath string `yaml:"disk_path"`
}

// ServerConfig contains operational HTTP server settings.
type ServerConfig struct {
	// Enabled starts the ops HTTP server.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks visitor-identifying attribute values.
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled registers and exposes cleanup metrics.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path on the ops server.
	Path string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	// Enabled turns span export on.
	Enabled bool `yaml:"enabled"`

	// ServiceName overrides the reported service name.
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of root traces sampled, in [0, 1].
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS on the collector connection.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	Timeout time.Duration `yaml:"timeout"`
}
