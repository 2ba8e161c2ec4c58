// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// ResultsHandler handles results and leaderboard requests.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleResults handles GET /events/{eventID}/results.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.GetEventResults(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.results", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// HandleLeaderboard handles GET /events/{eventID}/leaderboard.
func (h *ResultsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.GetLeaderboard(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.leaderboard", err)
		return
	}
	writeData(w, http.StatusOK, board)
}
