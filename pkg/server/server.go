package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"slate-hq/slate/pkg/config"
	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/engine"
	"slate-hq/slate/pkg/expiry/reconciler"
	"slate-hq/slate/pkg/expiry/scheduler"
	"slate-hq/slate/pkg/telemetry/metrics"
)

// Server is the operational HTTP server for the cleanup service.
type Server struct {
	config     *config.ServerConfig
	metricsCfg *config.MetricsConfig

	engine     *engine.Engine
	scheduler  *scheduler.Scheduler
	reconciler *reconciler.Manager
	store      expiry.Store
	metrics    *metrics.CleanupMetrics

	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Options carries the wired components the server serves from. Engine,
// scheduler and store are required; reconciler and metrics are optional.
type Options struct {
	Engine     *engine.Engine
	Scheduler  *scheduler.Scheduler
	Reconciler *reconciler.Manager
	Store      expiry.Store
	Metrics    *metrics.CleanupMetrics
}

// NewServer creates a new ops server.
func NewServer(cfg *config.ServerConfig, metricsCfg *config.MetricsConfig, opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Server{
		config:       cfg,
		metricsCfg:   metricsCfg,
		engine:       opts.Engine,
		scheduler:    opts.Scheduler,
		reconciler:   opts.Reconciler,
		store:        opts.Store,
		metrics:      opts.Metrics,
		logger:       slog.Default().With("component", "ops_server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting ops server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("ops server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/v1/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleJobByID)
	mux.HandleFunc("POST /api/v1/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /api/v1/ledger", s.handleLedger)
	mux.HandleFunc("GET /api/v1/storage/usage", s.handleStorageUsage)

	if s.metrics != nil && s.metricsCfg != nil && s.metricsCfg.Enabled {
		mux.Handle("GET "+s.metricsCfg.Path, s.metrics.Handler())
	}

	return s.logRequests(mux)
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
