package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultStorageBackend     = "sqlite"
	DefaultStorageDriver      = "sqlite3"
	DefaultStoragePath        = "data/slate.db"
	DefaultStorageMaxOpen     = 10
	DefaultStorageMaxIdle     = 5
	DefaultStorageBusyTimeout = 5 * time.Second

	// Files defaults
	DefaultFilesBasePath            = "data/uploads"
	DefaultFilesTempMaxAge          = time.Hour
	DefaultFilesQuarantineRetention = 7 * 24 * time.Hour

	// Cleanup defaults
	DefaultCleanupNotifyLead = 24 * time.Hour

	// Scheduler defaults
	DefaultSchedulerInterval           = 6 * time.Hour
	DefaultSchedulerMaxRetries         = 3
	DefaultSchedulerRetryDelay         = 30 * time.Minute
	DefaultSchedulerMemoryThresholdPct = 90.0
	DefaultSchedulerDiskThresholdPct   = 95.0
	DefaultSchedulerCPUThresholdPct    = 95.0
	DefaultSchedulerDiskPath           = "/"

	// Server defaults
	DefaultServerListenAddress   = "127.0.0.1:8085"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerIdleTimeout     = 120 * time.Second
	DefaultServerShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultTracingServiceName = "slate-cleanup"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingTimeout     = 10 * time.Second
)

// NewDefault returns a Config with every field at its default value.
// It seeds the true-by-default booleans, then fills the rest through
// ApplyDefaults. YAML decoding on top of this struct lets an explicit
// false override a true default.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Storage.WALMode = true
	cfg.Cleanup.RespectGracePeriod = true
	cfg.Scheduler.ResourceCheckEnabled = true
	cfg.Scheduler.EnableNotifications = true
	cfg.Server.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued configuration fields with defaults.
// Booleans that default to true are seeded by NewDefault before YAML
// decoding, so an explicit false in the file is preserved.
func ApplyDefaults(cfg *Config) {
	applyStorageDefaults(cfg)
	applyFilesDefaults(cfg)
	applyCleanupDefaults(cfg)
	applySchedulerDefaults(cfg)
	applyServerDefaults(cfg)
	applyTelemetryDefaults(cfg)
}

func applyStorageDefaults(cfg *Config) {
	s := &cfg.Storage
	if s.Backend == "" {
		s.Backend = DefaultStorageBackend
	}
	if s.Driver == "" {
		s.Driver = DefaultStorageDriver
	}
	if s.Path == "" {
		s.Path = DefaultStoragePath
	}
	if s.MaxOpenConns == 0 {
		s.MaxOpenConns = DefaultStorageMaxOpen
	}
	if s.MaxIdleConns == 0 {
		s.MaxIdleConns = DefaultStorageMaxIdle
	}
	if s.BusyTimeout == 0 {
		s.BusyTimeout = DefaultStorageBusyTimeout
	}
}

func applyFilesDefaults(cfg *Config) {
	f := &cfg.Files
	if f.BasePath == "" {
		f.BasePath = DefaultFilesBasePath
	}
	if f.TempMaxAge == 0 {
		f.TempMaxAge = DefaultFilesTempMaxAge
	}
	if f.QuarantineRetention == 0 {
		f.QuarantineRetention = DefaultFilesQuarantineRetention
	}
}

func applyCleanupDefaults(cfg *Config) {
	if cfg.Cleanup.NotifyLead == 0 {
		cfg.Cleanup.NotifyLead = DefaultCleanupNotifyLead
	}
}

func applySchedulerDefaults(cfg *Config) {
	s := &cfg.Scheduler
	if s.Interval == 0 {
		s.Interval = DefaultSchedulerInterval
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultSchedulerMaxRetries
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = DefaultSchedulerRetryDelay
	}
	if s.MemoryThresholdPct == 0 {
		s.MemoryThresholdPct = DefaultSchedulerMemoryThresholdPct
	}
	if s.DiskThresholdPct == 0 {
		s.DiskThresholdPct = DefaultSchedulerDiskThresholdPct
	}
	if s.CPUThresholdPct == 0 {
		s.CPUThresholdPct = DefaultSchedulerCPUThresholdPct
	}
	if s.DiskPath == "" {
		s.DiskPath = DefaultSchedulerDiskPath
	}
}

func applyServerDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultServerListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultServerReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultServerWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultServerIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultServerShutdownTimeout
	}
}

func applyTelemetryDefaults(cfg *Config) {
	t := &cfg.Telemetry
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
}
