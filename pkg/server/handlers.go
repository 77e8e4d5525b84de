package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"slate-hq/slate/pkg/expiry"
	"slate-hq/slate/pkg/expiry/scheduler"
)

const (
	defaultHistoryLimit = 50
	defaultLedgerLimit  = 100
	maxLimit            = 1000
)

// jobsResponse is the payload for GET /api/v1/jobs.
type jobsResponse struct {
	Scheduled  []*scheduler.ScheduledJobStatus `json:"scheduled"`
	RecentRuns []*expiry.JobExecutionResult    `json:"recent_runs"`
}

// cleanupRequest is the payload for POST /api/v1/cleanup.
type cleanupRequest struct {
	// Category limits the run to one data category. Empty runs all
	// categories through the scheduler's single-flight gate.
	Category string `json:"category,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, "limit", defaultHistoryLimit)
	writeJSON(w, http.StatusOK, jobsResponse{
		Scheduled:  s.scheduler.AllJobStatuses(),
		RecentRuns: s.scheduler.History(limit),
	})
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, ok := s.scheduler.RunResult(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job id: "+id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	// Category-scoped runs bypass the scheduler: they hold their own
	// ledger row and do not contend with full runs for the gate.
	if req.Category != "" {
		result, err := s.engine.CleanupCategory(r.Context(), expiry.Category(req.Category))
		if err != nil {
			var perr *expiry.PolicyError
			if errors.As(err, &perr) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result := s.scheduler.ExecuteCleanupNow(r.Context())
	if result.Skipped {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, "limit", defaultLedgerLimit)

	ctx, cancel := contextWithTimeout(r, 10*time.Second)
	defer cancel()

	entries, err := s.store.LedgerEntries(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStorageUsage(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		writeError(w, http.StatusNotImplemented, "storage reconciler is not configured")
		return
	}

	ctx, cancel := contextWithTimeout(r, 30*time.Second)
	defer cancel()

	usage, err := s.reconciler.CalculateStorageUsage(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func queryLimit(r *http.Request, key string, fallback int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
