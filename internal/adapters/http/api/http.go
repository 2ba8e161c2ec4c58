// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/mirror"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/reminder"
	"github.com/okian/verdict/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	JudgeDependencies
	AssignmentDependencies
	ReviewDependencies
	ResultsDependencies
	MaintenanceDependencies
}

// JudgeDependencies covers judge registration and event membership.
type JudgeDependencies interface {
	RegisterJudge(ctx context.Context, judgeID string, expertise []string) (model.Judge, error)
	DeactivateJudge(ctx context.Context, judgeID string) (model.Judge, error)
	AssignJudgeToEvent(ctx context.Context, eventID, judgeID string, role model.Role) (model.EventAssignment, error)
	ListEventJudges(ctx context.Context, eventID string) ([]model.EventAssignment, error)
	DeactivateJudgeAssignment(ctx context.Context, eventID, judgeID string) (model.EventAssignment, error)
}

// AssignmentDependencies covers fan-out and judge queues.
type AssignmentDependencies interface {
	FanOutAssignments(ctx context.Context, eventID string) (int, error)
	ListFanOutAudits(ctx context.Context, eventID string) ([]model.FanOutAudit, error)
	GetAssignedSubmissions(ctx context.Context, judgeID, eventID string, status model.Status) ([]model.QueueItem, error)
}

// ReviewDependencies covers review submission.
type ReviewDependencies interface {
	SubmitReview(ctx context.Context, judgeID, submissionID string, in model.ReviewInput) (model.SubmissionAssignment, error)
}

// ResultsDependencies covers the read-only score views.
type ResultsDependencies interface {
	GetEventResults(ctx context.Context, eventID string) (model.EventResults, error)
	GetLeaderboard(ctx context.Context, eventID string) (model.Leaderboard, error)
}

// MaintenanceDependencies covers organizer maintenance jobs.
type MaintenanceDependencies interface {
	ReconcileMirror(ctx context.Context, eventID string) (mirror.Report, error)
	RemindPendingReviews(ctx context.Context, eventID string) (reminder.Report, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	judgesHandler      *JudgesHandler
	assignmentsHandler *AssignmentsHandler
	reviewsHandler     *ReviewsHandler
	resultsHandler     *ResultsHandler
	maintenanceHandler *MaintenanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		judgesHandler:      NewJudgesHandler(deps),
		assignmentsHandler: NewAssignmentsHandler(deps),
		reviewsHandler:     NewReviewsHandler(deps),
		resultsHandler:     NewResultsHandler(deps),
		maintenanceHandler: NewMaintenanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	organizer := func(next http.HandlerFunc) http.HandlerFunc { return RequireRole(next, RoleOrganizer) }
	judge := func(next http.HandlerFunc) http.HandlerFunc { return RequireRole(next, RoleJudge) }

	mux.HandleFunc("PUT /judges/{judgeID}",
		MetricsMiddleware(organizer(s.judgesHandler.HandleRegister), "judges"))
	mux.HandleFunc("DELETE /judges/{judgeID}",
		MetricsMiddleware(organizer(s.judgesHandler.HandleDeactivate), "judges"))
	mux.HandleFunc("POST /events/{eventID}/judges",
		MetricsMiddleware(organizer(s.judgesHandler.HandleAssign), "event_judges"))
	mux.HandleFunc("GET /events/{eventID}/judges",
		MetricsMiddleware(organizer(s.judgesHandler.HandleList), "event_judges"))
	mux.HandleFunc("DELETE /events/{eventID}/judges/{judgeID}",
		MetricsMiddleware(organizer(s.judgesHandler.HandleUnassign), "event_judges"))

	mux.HandleFunc("POST /events/{eventID}/fanout",
		MetricsMiddleware(organizer(s.assignmentsHandler.HandleFanOut), "fanout"))
	mux.HandleFunc("GET /events/{eventID}/fanouts",
		MetricsMiddleware(organizer(s.assignmentsHandler.HandleFanOutAudits), "fanout"))
	mux.HandleFunc("GET /events/{eventID}/queue",
		MetricsMiddleware(judge(s.assignmentsHandler.HandleQueue), "queue"))

	mux.HandleFunc("POST /submissions/{submissionID}/reviews",
		MetricsMiddleware(judge(s.reviewsHandler.HandleSubmit), "reviews"))

	mux.HandleFunc("GET /events/{eventID}/results",
		MetricsMiddleware(s.resultsHandler.HandleResults, "results"))
	mux.HandleFunc("GET /events/{eventID}/leaderboard",
		MetricsMiddleware(s.resultsHandler.HandleLeaderboard, "leaderboard"))

	mux.HandleFunc("POST /events/{eventID}/reconcile",
		MetricsMiddleware(organizer(s.maintenanceHandler.HandleReconcile), "reconcile"))
	mux.HandleFunc("POST /events/{eventID}/reminders",
		MetricsMiddleware(organizer(s.maintenanceHandler.HandleReminders), "reminders"))
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: msg}})
}

// writeFault maps a domain error onto its HTTP status and machine code.
func writeFault(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Named("api").Error(r.Context(), "request failed",
			logger.String("op", op), logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeError(w, status, faults.Code(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, faults.ErrNoJudgesAssigned), errors.Is(err, faults.ErrNoSubmissions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, faults.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, faults.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, faults.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, faults.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, faults.ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
