// Package ports declares the storage and delivery contracts the judging
// engine depends on. Adapters live under internal/adapters.
//
// Implementations return errors carrying a faults kind: ErrNotFound for
// missing rows, ErrConflict for uniqueness violations and ErrDependency for
// backend failures.
package ports

import (
	"context"
	"time"

	"github.com/okian/verdict/internal/domain/model"
)

// Ledger is the authoritative record of judge assignments and reviews.
type Ledger interface {
	UpsertJudge(ctx context.Context, judge model.Judge) (model.Judge, error)
	GetJudge(ctx context.Context, judgeID string) (model.Judge, error)
	SetJudgeActive(ctx context.Context, judgeID string, active bool, at time.Time) (model.Judge, error)

	// CreateEventAssignment fails with ErrConflict when the pair already exists.
	CreateEventAssignment(ctx context.Context, a model.EventAssignment) (model.EventAssignment, error)
	GetEventAssignment(ctx context.Context, eventID, judgeID string) (model.EventAssignment, error)
	// ReactivateEventAssignment turns an inactive pair active with a new role.
	// It fails with ErrConflict if the pair is already active.
	ReactivateEventAssignment(ctx context.Context, eventID, judgeID string, role model.Role, at time.Time) (model.EventAssignment, error)
	SetEventAssignmentActive(ctx context.Context, eventID, judgeID string, active bool) (model.EventAssignment, error)
	ListEventAssignments(ctx context.Context, eventID string) ([]model.EventAssignment, error)

	// CreateSubmissionAssignments inserts rows whose (judge, submission) pair
	// is absent and returns how many were inserted. Existing pairs are left untouched.
	CreateSubmissionAssignments(ctx context.Context, rows []model.SubmissionAssignment) (int, error)
	ListSubmissionAssignments(ctx context.Context, filter model.AssignmentFilter) ([]model.SubmissionAssignment, error)
	GetSubmissionAssignment(ctx context.Context, judgeID, submissionID string) (model.SubmissionAssignment, error)
	// MarkReviewed performs the single assigned -> reviewed transition.
	// It fails with faults.ErrNotAssignedOrAlreadyReviewed when no assigned row matched.
	MarkReviewed(ctx context.Context, judgeID, submissionID string, review model.ReviewInput, at time.Time) (model.SubmissionAssignment, error)

	RecordFanOut(ctx context.Context, audit model.FanOutAudit) error
	ListFanOutAudits(ctx context.Context, eventID string) ([]model.FanOutAudit, error)
}

// EventStore reads externally owned events.
type EventStore interface {
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
}

// SubmissionStore reads submissions and holds the append-only score mirror.
type SubmissionStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.Submission, error)
	GetByID(ctx context.Context, submissionID string) (model.Submission, error)
	AppendScore(ctx context.Context, submissionID string, entry model.ScoreEntry) error
}

// CatalogWriter seeds events and submissions. Production data is owned
// elsewhere; local runs and the simulator use this.
type CatalogWriter interface {
	SaveEvent(ctx context.Context, event model.Event) error
	SaveSubmission(ctx context.Context, submission model.Submission) error
}

// Notifier publishes fire-and-forget notifications. Failures are the
// implementation's concern and never reach the caller.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload map[string]any)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NopNotifier drops every notification.
type NopNotifier struct{}

// Publish does nothing.
func (NopNotifier) Publish(context.Context, string, map[string]any) {}
