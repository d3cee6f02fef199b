// Package api exposes the command and query surface over HTTP. The assistant
// layer talks to POST /api/commands; the remaining endpoints are read-side
// views used by dashboards and operators.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/castrove/castrove/internal/command"
	"github.com/castrove/castrove/internal/scheduler"
	"github.com/castrove/castrove/internal/store"
)

type Server struct {
	store       *store.Store
	interpreter *command.Interpreter
	sched       *scheduler.Scheduler
}

func NewServer(st *store.Store, interp *command.Interpreter) *Server {
	return &Server{
		store:       st,
		interpreter: interp,
	}
}

// SetScheduler enables the manual-run endpoint.
func (s *Server) SetScheduler(sched *scheduler.Scheduler) {
	s.sched = sched
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", s.applyCommand)
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", s.listWorkflows)
			r.Get("/{id}", s.getWorkflow)
			r.Get("/{id}/runs", s.listWorkflowRuns)
			r.Get("/{id}/audit", s.listWorkflowAudit)
			r.Post("/{id}/run", s.triggerRun)
		})
		r.Get("/stats", s.getStats)
	})
	r.Get("/health", s.health)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
