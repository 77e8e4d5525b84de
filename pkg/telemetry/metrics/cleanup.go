package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slate-hq/slate/pkg/expiry"
)

// CleanupMetrics tracks Prometheus metrics for the cleanup subsystem.
//
// Metrics:
//   - slate_cleanup_runs_total: cleanup runs by job type and status
//   - slate_cleanup_deleted_rows_total: rows deleted per category
//   - slate_cleanup_freed_bytes_total: bytes freed, labeled memory/storage
//   - slate_cleanup_skipped_rows_total: in-grace rows skipped per run
//   - slate_cleanup_duration_seconds: run duration histogram by job type
//   - slate_cleanup_files_total: reconciler file outcomes by operation
//   - slate_cleanup_jobs_skipped_total: scheduler skips by reason
type CleanupMetrics struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	deletedRows *prometheus.CounterVec
	freedBytes  *prometheus.CounterVec
	skippedRows prometheus.Counter
	duration    *prometheus.HistogramVec
	filesTotal  *prometheus.CounterVec
	jobsSkipped *prometheus.CounterVec
	quarantined prometheus.Counter
}

// NewCleanupMetrics creates and registers the cleanup metrics. If registry
// is nil a private registry is created.
func NewCleanupMetrics(registry *prometheus.Registry) *CleanupMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	const (
		namespace = "slate"
		subsystem = "cleanup"
	)

	m := &CleanupMetrics{
		registry: registry,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of cleanup runs",
			},
			[]string{"job_type", "status"},
		),

		deletedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "deleted_rows_total",
				Help:      "Total rows deleted per data category",
			},
			[]string{"category"},
		),

		freedBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "freed_bytes_total",
				Help:      "Total bytes freed by cleanup runs",
			},
			[]string{"kind"},
		),

		skippedRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "skipped_rows_total",
				Help:      "Total in-grace rows skipped by cleanup runs",
			},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of cleanup runs in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
			[]string{"job_type"},
		),

		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "files_total",
				Help:      "Reconciler file outcomes per operation",
			},
			[]string{"operation", "outcome"},
		),

		jobsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_skipped_total",
				Help:      "Scheduled cleanup runs skipped, by reason",
			},
			[]string{"reason"},
		),

		quarantined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "files_quarantined_total",
				Help:      "Total files moved to quarantine",
			},
		),
	}

	registry.MustRegister(
		m.runsTotal,
		m.deletedRows,
		m.freedBytes,
		m.skippedRows,
		m.duration,
		m.filesTotal,
		m.jobsSkipped,
		m.quarantined,
	)

	return m
}

// ObserveCleanup records the aggregate outcome of one engine run.
func (m *CleanupMetrics) ObserveCleanup(jobType string, result *expiry.CleanupResult) {
	status := "completed"
	if !result.Success {
		status = "failed"
	}
	m.runsTotal.WithLabelValues(jobType, status).Inc()
	m.skippedRows.Add(float64(result.SkippedCount))
	m.duration.WithLabelValues(jobType).Observe(result.ExecutionTime.Seconds())
}

// ObserveCategorySweep records one category's sweep counts.
func (m *CleanupMetrics) ObserveCategorySweep(category string, sweep expiry.SweepResult) {
	m.deletedRows.WithLabelValues(category).Add(float64(sweep.Deleted))
	if sweep.FreedMemoryBytes > 0 {
		m.freedBytes.WithLabelValues("memory").Add(float64(sweep.FreedMemoryBytes))
	}
	if sweep.FreedStorageBytes > 0 {
		m.freedBytes.WithLabelValues("storage").Add(float64(sweep.FreedStorageBytes))
	}
}

// ObserveReconcile records the outcome of one reconciler operation.
func (m *CleanupMetrics) ObserveReconcile(result *expiry.CleanupOperationResult) {
	op := result.OperationType
	m.filesTotal.WithLabelValues(op, "deleted").Add(float64(result.DeletedFilesCount))
	m.filesTotal.WithLabelValues(op, "error").Add(float64(result.ErrorCount))
	if result.OrphanedFilesCount > 0 {
		m.quarantined.Add(float64(result.OrphanedFilesCount))
	}
	if result.FreedBytes > 0 {
		m.freedBytes.WithLabelValues("storage").Add(float64(result.FreedBytes))
	}
	m.duration.WithLabelValues(op).Observe(result.ExecutionTime.Seconds())
}

// JobSkipped records a scheduler-level skip (resource pressure, in-flight).
func (m *CleanupMetrics) JobSkipped(reason string) {
	m.jobsSkipped.WithLabelValues(reason).Inc()
}

// Registry exposes the backing registry for additional collectors.
func (m *CleanupMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *CleanupMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
