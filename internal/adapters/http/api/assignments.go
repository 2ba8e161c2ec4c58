package api

import (
	"fmt"
	"net/http"

	"github.com/okian/verdict/internal/domain/model"
)

type fanOutResponse struct {
	EventID string `json:"event_id"`
	Created int    `json:"created"`
}

// AssignmentsHandler handles fan-out and judge queue requests.
type AssignmentsHandler struct {
	deps AssignmentDependencies
}

// NewAssignmentsHandler creates a new assignments handler.
func NewAssignmentsHandler(deps AssignmentDependencies) *AssignmentsHandler {
	return &AssignmentsHandler{deps: deps}
}

// HandleFanOut handles POST /events/{eventID}/fanout.
func (h *AssignmentsHandler) HandleFanOut(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	created, err := h.deps.FanOutAssignments(r.Context(), eventID)
	if err != nil {
		writeFault(w, r, "api.fanout", err)
		return
	}
	writeData(w, http.StatusOK, fanOutResponse{EventID: eventID, Created: created})
}

// HandleFanOutAudits handles GET /events/{eventID}/fanouts.
func (h *AssignmentsHandler) HandleFanOutAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := h.deps.ListFanOutAudits(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.fanout_audits", err)
		return
	}
	writeData(w, http.StatusOK, audits)
}

// HandleQueue handles GET /events/{eventID}/queue?status=. The queue is
// always the caller's own; judge_id, when given, must name the caller.
func (h *AssignmentsHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if id := r.URL.Query().Get("judge_id"); id != "" && id != caller.ID {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Errorf("%w: %s", ErrNotSelf, id))
		return
	}
	status := model.Status(r.URL.Query().Get("status"))
	items, err := h.deps.GetAssignedSubmissions(r.Context(), caller.ID, r.PathValue("eventID"), status)
	if err != nil {
		writeFault(w, r, "api.queue", err)
		return
	}
	writeData(w, http.StatusOK, items)
}
