package api

import (
	"fmt"
	"net/http"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
)

// reviewRequest mirrors the OpenAPI schema for POST /submissions/{id}/reviews.
type reviewRequest struct {
	JudgeID  string             `json:"judge_id,omitempty"`
	Score    *float64           `json:"score"`
	Feedback string             `json:"feedback"`
	Criteria map[string]float64 `json:"criteria,omitempty"`
	RoundID  string             `json:"round_id,omitempty"`
}

// ReviewsHandler handles review submissions.
type ReviewsHandler struct {
	deps ReviewDependencies
}

// NewReviewsHandler creates a new reviews handler.
func NewReviewsHandler(deps ReviewDependencies) *ReviewsHandler {
	return &ReviewsHandler{deps: deps}
}

// HandleSubmit handles POST /submissions/{submissionID}/reviews.
func (h *ReviewsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_review"
	caller, _ := CallerFrom(r.Context())

	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", faults.WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.JudgeID != "" && req.JudgeID != caller.ID {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Errorf("%w: %s", ErrNotSelf, req.JudgeID))
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "validation", faults.Validation(op, "missing score"))
		return
	}

	row, err := h.deps.SubmitReview(r.Context(), caller.ID, r.PathValue("submissionID"), model.ReviewInput{
		Score:    *req.Score,
		Feedback: req.Feedback,
		Criteria: req.Criteria,
		RoundID:  req.RoundID,
	})
	if err != nil {
		writeFault(w, r, op, err)
		return
	}
	writeData(w, http.StatusOK, row)
}
