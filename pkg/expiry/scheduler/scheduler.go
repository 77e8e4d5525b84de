package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/telemetry/metrics"
)

// Well-known logical job IDs. Multiple independent jobs may be scheduled,
// but all share the single-flight gate over the cleanup body.
const (
	IntervalJobID = "interval_cleanup"
	CronJobID     = "cron_cleanup"
)

// historyLimit caps the in-memory execution history.
const historyLimit = 200

// CleanupFunc is the pluggable cleanup body a scheduler drives.
type CleanupFunc func(ctx context.Context) (*expiry.CleanupResult, error)

// FailureNotifyFunc is called once when the retry budget is exhausted.
type FailureNotifyFunc func(runID string, errorMessage string)

// Config contains configuration for the job scheduler.
type Config struct {
	// Interval is the cadence for ScheduleCleanupJob when called with zero.
	// Default: 6 hours.
	Interval time.Duration

	// Cron is the default expression for ScheduleCronCleanup when called
	// with an empty string.
	Cron string

	// MaxRetries is the consecutive-failure budget before a terminal
	// failure. Default: 3.
	MaxRetries int

	// RetryDelay is the wait before an automatic retry of a failed run.
	// Default: 30 minutes.
	RetryDelay time.Duration

	// EnableNotifications enables the terminal-failure notification hook.
	EnableNotifications bool

	// ResourceCheckEnabled enables the host pressure gate.
	ResourceCheckEnabled bool

	// Pressure thresholds in percent. Defaults: memory 90, disk 95, cpu 95.
	MemoryThresholdPct float64
	DiskThresholdPct   float64
	CPUThresholdPct    float64

	// DiskPath is the mount checked for disk pressure. Default: "/".
	DiskPath string
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:             6 * time.Hour,
		MaxRetries:           3,
		RetryDelay:           30 * time.Minute,
		EnableNotifications:  true,
		ResourceCheckEnabled: true,
		MemoryThresholdPct:   90,
		DiskThresholdPct:     95,
		CPUThresholdPct:      95,
		DiskPath:             "/",
	}
}

// ScheduledJobStatus is the queryable state of one scheduled trigger.
type ScheduledJobStatus struct {
	ID      string                     `json:"id"`
	Spec    string                     `json:"spec"`
	NextRun time.Time                  `json:"next_run"`
	LastRun *expiry.JobExecutionResult `json:"last_run,omitempty"`
}

type scheduledJob struct {
	id      string
	spec    string
	entryID cron.EntryID
}

// Scheduler fires the cleanup body from interval/cron triggers or on demand,
// with single-flight execution, retry handling, and execution history.
type Scheduler struct {
	config  *Config
	logger  *slog.Logger
	metrics *metrics.CleanupMetrics
	cron    *cron.Cron
	gate    *resourceGate

	inFlight atomic.Bool
	runWG    sync.WaitGroup

	mu         sync.Mutex
	cleanup    CleanupFunc
	notify     FailureNotifyFunc
	jobs       map[string]*scheduledJob
	lastRun    map[string]*expiry.JobExecutionResult
	history    []*expiry.JobExecutionResult
	historyIdx map[string]*expiry.JobExecutionResult
	retryCount int
	retryTimer *time.Timer
	running    bool
	stopped    bool
}

// New creates a scheduler. The cleanup body may be nil and supplied later
// via SetCleanupHandler; running without one fails the run.
func New(config *Config, cleanup CleanupFunc) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval == 0 {
		config.Interval = 6 * time.Hour
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 30 * time.Minute
	}
	if config.MemoryThresholdPct == 0 {
		config.MemoryThresholdPct = 90
	}
	if config.DiskThresholdPct == 0 {
		config.DiskThresholdPct = 95
	}
	if config.CPUThresholdPct == 0 {
		config.CPUThresholdPct = 95
	}

	return &Scheduler{
		config:     config,
		cleanup:    cleanup,
		logger:     slog.Default().With("component", "expiry.scheduler"),
		cron:       cron.New(),
		gate:       newResourceGate(config.MemoryThresholdPct, config.DiskThresholdPct, config.CPUThresholdPct, config.DiskPath),
		jobs:       make(map[string]*scheduledJob),
		lastRun:    make(map[string]*expiry.JobExecutionResult),
		historyIdx: make(map[string]*expiry.JobExecutionResult),
	}
}

// SetMetrics attaches cleanup metrics.
func (s *Scheduler) SetMetrics(m *metrics.CleanupMetrics) {
	s.metrics = m
}

// SetCleanupHandler replaces the cleanup body. Intended for tests and for
// composing the engine with the storage reconciler.
func (s *Scheduler) SetCleanupHandler(fn CleanupFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanup = fn
}

// SetFailureNotifier replaces the terminal-failure hook.
func (s *Scheduler) SetFailureNotifier(fn FailureNotifyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// Start begins firing scheduled triggers and stops them when the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopped = false
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("cleanup scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the triggers and waits for the in-flight run (and its pending
// retry timer) to settle. A run is never abandoned mid-transaction.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.runWG.Wait()
	s.logger.Info("cleanup scheduler stopped")
}

// ScheduleCleanupJob registers a recurring interval trigger and returns its
// job ID. A zero interval uses the configured default. Overlapping fires are
// coalesced by the single-flight gate.
func (s *Scheduler) ScheduleCleanupJob(interval time.Duration) (string, error) {
	if interval == 0 {
		interval = s.config.Interval
	}
	if interval < 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s.addJob(IntervalJobID, fmt.Sprintf("@every %s", interval))
}

// ScheduleCronCleanup registers a cron-driven trigger and returns its job ID.
func (s *Scheduler) ScheduleCronCleanup(expr string) (string, error) {
	if expr == "" {
		expr = s.config.Cron
	}
	if expr == "" {
		return "", fmt.Errorf("no cron expression configured")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return "", fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return s.addJob(CronJobID, expr)
}

func (s *Scheduler) addJob(jobID, spec string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobID]; exists {
		return "", fmt.Errorf("job %q already scheduled", jobID)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule %q: %w", jobID, err)
	}

	s.jobs[jobID] = &scheduledJob{id: jobID, spec: spec, entryID: entryID}
	s.logger.Info("cleanup job scheduled", "job_id", jobID, "spec", spec)
	return jobID, nil
}

// RemoveJob unregisters a scheduled trigger. An in-flight run finishes.
func (s *Scheduler) RemoveJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %q is not scheduled", jobID)
	}
	s.cron.Remove(job.entryID)
	delete(s.jobs, jobID)
	s.logger.Info("cleanup job removed", "job_id", jobID)
	return nil
}

// IsJobScheduled reports whether a trigger is registered.
func (s *Scheduler) IsJobScheduled(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobID]
	return ok
}

// JobStatus returns the state of one scheduled trigger.
func (s *Scheduler) JobStatus(jobID string) (*ScheduledJobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	return s.statusLocked(job), true
}

// AllJobStatuses enumerates every scheduled trigger.
func (s *Scheduler) AllJobStatuses() []*ScheduledJobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]*ScheduledJobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		statuses = append(statuses, s.statusLocked(job))
	}
	return statuses
}

func (s *Scheduler) statusLocked(job *scheduledJob) *ScheduledJobStatus {
	status := &ScheduledJobStatus{
		ID:      job.id,
		Spec:    job.spec,
		LastRun: s.lastRun[job.id],
	}
	if entry := s.cron.Entry(job.entryID); entry.ID == job.entryID {
		status.NextRun = entry.Next
	}
	return status
}

// ExecuteCleanupNow runs the cleanup body out of band, bypassing the
// schedule. It shares the single-flight gate: invoked while a scheduled run
// is in progress it returns a skipped result rather than deleting twice.
func (s *Scheduler) ExecuteCleanupNow(ctx context.Context) *expiry.JobExecutionResult {
	return s.run(ctx, "manual")
}

// RunResult returns one execution history entry by run ID.
func (s *Scheduler) RunResult(runID string) (*expiry.JobExecutionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.historyIdx[runID]
	return result, ok
}

// History returns the most recent executions, newest first.
func (s *Scheduler) History(limit int) []*expiry.JobExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]*expiry.JobExecutionResult, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// RetryCount returns the current consecutive-failure count.
func (s *Scheduler) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// fire handles a trigger firing for a scheduled job.
func (s *Scheduler) fire(jobID string) {
	result := s.run(context.Background(), jobID)
	s.mu.Lock()
	s.lastRun[jobID] = result
	s.mu.Unlock()
}

// run executes the cleanup body once, recording the outcome and driving the
// retry state machine.
func (s *Scheduler) run(ctx context.Context, trigger string) *expiry.JobExecutionResult {
	s.runWG.Add(1)
	defer s.runWG.Done()

	result := &expiry.JobExecutionResult{
		JobID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	// Single-flight: a fire that overlaps an in-flight run is coalesced
	// into the next trigger, never queued.
	if !s.inFlight.CompareAndSwap(false, true) {
		result.Skipped = true
		result.ErrorMessage = "cleanup already in flight"
		s.logger.Info("cleanup run coalesced", "trigger", trigger, "run_id", result.JobID)
		s.jobSkipped("in_flight")
		s.record(result)
		return result
	}
	defer s.inFlight.Store(false)

	if s.config.ResourceCheckEnabled {
		if skip, reason := s.gate.check(); skip {
			result.Skipped = true
			result.ErrorMessage = reason
			s.logger.Warn("cleanup run skipped under resource pressure",
				"trigger", trigger,
				"reason", reason,
			)
			s.jobSkipped("resource_pressure")
			s.record(result)
			return result
		}
	}

	s.mu.Lock()
	cleanup := s.cleanup
	s.mu.Unlock()

	var (
		cleanupResult *expiry.CleanupResult
		err           error
	)
	if cleanup == nil {
		err = fmt.Errorf("no cleanup handler configured")
	} else {
		cleanupResult, err = cleanup(ctx)
	}

	result.CompletedAt = time.Now()
	result.ExecutionTime = result.CompletedAt.Sub(result.StartedAt)
	result.CleanupResult = cleanupResult

	switch {
	case err != nil:
		result.ErrorMessage = err.Error()
	case cleanupResult != nil && !cleanupResult.Success:
		result.ErrorMessage = cleanupResult.ErrorMessage
	default:
		result.Success = true
	}

	s.afterRun(result, trigger)
	s.record(result)
	return result
}

// afterRun drives the retry state machine: consecutive failures increment
// the retry count until the budget is exhausted (terminal failure); any
// success resets it.
func (s *Scheduler) afterRun(result *expiry.JobExecutionResult, trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.Success {
		if s.retryCount > 0 {
			s.logger.Info("cleanup recovered", "after_failures", s.retryCount)
		}
		s.retryCount = 0
		if s.retryTimer != nil {
			s.retryTimer.Stop()
			s.retryTimer = nil
		}
		result.RetryCount = 0
		return
	}

	wasTerminal := s.retryCount >= s.config.MaxRetries
	if s.retryCount < s.config.MaxRetries {
		s.retryCount++
	}
	result.RetryCount = s.retryCount

	if s.retryCount >= s.config.MaxRetries {
		s.logger.Error("cleanup failed permanently, retry budget exhausted",
			"run_id", result.JobID,
			"retries", s.retryCount,
			"error", result.ErrorMessage,
		)
		if s.retryTimer != nil {
			s.retryTimer.Stop()
			s.retryTimer = nil
		}
		// Notify only on the transition into terminal failure; repeated
		// failures while already terminal stay quiet until a success
		// resets the count.
		if !wasTerminal && s.config.EnableNotifications && s.notify != nil {
			go s.notify(result.JobID, result.ErrorMessage)
		}
		return
	}

	s.logger.Warn("cleanup failed, retry scheduled",
		"run_id", result.JobID,
		"trigger", trigger,
		"attempt", s.retryCount,
		"max_retries", s.config.MaxRetries,
		"retry_in", s.config.RetryDelay,
	)
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = time.AfterFunc(s.config.RetryDelay, func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.run(context.Background(), "retry")
	})
}

// record appends to the bounded execution history.
func (s *Scheduler) record(result *expiry.JobExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, result)
	s.historyIdx[result.JobID] = result
	if len(s.history) > historyLimit {
		evicted := s.history[0]
		s.history = s.history[1:]
		delete(s.historyIdx, evicted.JobID)
	}
}

func (s *Scheduler) jobSkipped(reason string) {
	if s.metrics != nil {
		s.metrics.JobSkipped(reason)
	}
}
