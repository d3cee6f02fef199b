package api

import (
	"encoding/json"
	"net/http"

	"github.com/castrove/castrove/internal/castrove"
)

// applyCommand executes a single structured command.
// POST /api/commands
func (s *Server) applyCommand(w http.ResponseWriter, r *http.Request) {
	var cmd castrove.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := s.interpreter.Apply(r.Context(), cmd)

	status := http.StatusOK
	if !res.OK {
		switch res.Error.Kind {
		case "not_found":
			status = http.StatusNotFound
		case "validation":
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, res)
}
