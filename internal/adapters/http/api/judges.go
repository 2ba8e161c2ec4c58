package api

import (
	"net/http"
	"strings"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
)

type registerJudgeRequest struct {
	Expertise []string `json:"expertise"`
}

type assignJudgeRequest struct {
	JudgeID string     `json:"judge_id"`
	Role    model.Role `json:"role"`
}

// JudgesHandler handles judge registration and event membership.
type JudgesHandler struct {
	deps JudgeDependencies
}

// NewJudgesHandler creates a new judges handler.
func NewJudgesHandler(deps JudgeDependencies) *JudgesHandler {
	return &JudgesHandler{deps: deps}
}

// HandleRegister handles PUT /judges/{judgeID}.
func (h *JudgesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_judge"
	var req registerJudgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", faults.WrapKind(op, ErrBadRequest, err))
		return
	}
	judge, err := h.deps.RegisterJudge(r.Context(), r.PathValue("judgeID"), req.Expertise)
	if err != nil {
		writeFault(w, r, op, err)
		return
	}
	writeData(w, http.StatusOK, judge)
}

// HandleDeactivate handles DELETE /judges/{judgeID}.
func (h *JudgesHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	judge, err := h.deps.DeactivateJudge(r.Context(), r.PathValue("judgeID"))
	if err != nil {
		writeFault(w, r, "api.deactivate_judge", err)
		return
	}
	writeData(w, http.StatusOK, judge)
}

// HandleAssign handles POST /events/{eventID}/judges.
func (h *JudgesHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	const op = "api.assign_judge"
	var req assignJudgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", faults.WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.JudgeID) == "" {
		writeError(w, http.StatusBadRequest, "validation", faults.Validation(op, "missing judge_id"))
		return
	}
	if req.Role == "" {
		req.Role = model.RolePrimary
	}
	a, err := h.deps.AssignJudgeToEvent(r.Context(), r.PathValue("eventID"), req.JudgeID, req.Role)
	if err != nil {
		writeFault(w, r, op, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

// HandleList handles GET /events/{eventID}/judges.
func (h *JudgesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	judges, err := h.deps.ListEventJudges(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeFault(w, r, "api.list_event_judges", err)
		return
	}
	writeData(w, http.StatusOK, judges)
}

// HandleUnassign handles DELETE /events/{eventID}/judges/{judgeID}.
func (h *JudgesHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.DeactivateJudgeAssignment(r.Context(), r.PathValue("eventID"), r.PathValue("judgeID"))
	if err != nil {
		writeFault(w, r, "api.unassign_judge", err)
		return
	}
	writeData(w, http.StatusOK, a)
}
