package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/repository"
)

// listWorkflows returns all workflows, optionally filtered by state.
// GET /api/workflows?state=running&include_deleted=true
func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	var filter repository.WorkflowFilter
	if v := r.URL.Query().Get("state"); v != "" {
		state := castrove.WorkflowState(v)
		if !state.Valid() {
			http.Error(w, "unknown state "+v, http.StatusBadRequest)
			return
		}
		filter.States = []castrove.WorkflowState{state}
	}
	filter.IncludeDeleted = r.URL.Query().Get("include_deleted") == "true"

	workflows, err := s.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

// getWorkflow returns a single workflow.
// GET /api/workflows/{id}
func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, castrove.ErrNotFound) {
			http.Error(w, "workflow not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// listWorkflowRuns returns run history for one workflow, newest first.
// GET /api/workflows/{id}/runs?limit=20
func (s *Server) listWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	runs, err := s.store.Runs(r.Context(), id, parseLimit(r))
	if err != nil {
		if errors.Is(err, castrove.ErrNotFound) {
			http.Error(w, "workflow not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

// listWorkflowAudit returns the audit trail for one workflow, newest first.
// GET /api/workflows/{id}/audit?limit=20
func (s *Server) listWorkflowAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.store.AuditLog(r.Context(), id, parseLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

// triggerRun starts a manual run for the workflow right away.
// POST /api/workflows/{id}/run
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	if s.sched == nil {
		http.Error(w, "manual runs not available", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.sched.TriggerNow(r.Context(), id)
	switch {
	case errors.Is(err, castrove.ErrNotFound):
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	case errors.Is(err, castrove.ErrInFlight):
		http.Error(w, "a run is already in flight", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// getStats returns aggregate workflow and run counters.
// GET /api/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Overview(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseLimit extracts the limit query parameter with a default of 20.
func parseLimit(r *http.Request) int {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	return limit
}
