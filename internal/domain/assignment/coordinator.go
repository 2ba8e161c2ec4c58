// Package assignment fans review work out from judges to submissions.
//
// Every write goes through the ledger's create-if-absent primitive, so a
// full fan-out and any number of lazy per-judge ensures can run
// concurrently and still leave exactly one row per (judge, submission).
package assignment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Coordinator owns judge registration, judge-to-event assignment and the
// fan-out of submission assignments.
type Coordinator struct {
	ledger      ports.Ledger
	events      ports.EventStore
	submissions ports.SubmissionStore
	notifier    ports.Notifier
	clock       ports.Clock
	log         logger.Logger

	ensureGroup singleflight.Group
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(ledger ports.Ledger, events ports.EventStore, submissions ports.SubmissionStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:      ledger,
		events:      events,
		submissions: submissions,
		notifier:    ports.NopNotifier{},
		clock:       ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("assignment")
	}
	return c
}

// RegisterJudge creates or updates a judge and marks it active.
func (c *Coordinator) RegisterJudge(ctx context.Context, judgeID string, expertise []string) (model.Judge, error) {
	const op = "assignment.register_judge"
	if strings.TrimSpace(judgeID) == "" {
		return model.Judge{}, faults.Validation(op, "judge id is required")
	}
	now := c.clock.Now()
	judge, err := c.ledger.UpsertJudge(ctx, model.Judge{
		ID:        judgeID,
		Expertise: expertise,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Judge{}, c.fail(ctx, op, err)
	}
	return judge, nil
}

// DeactivateJudge marks a judge inactive. Judges are never deleted.
func (c *Coordinator) DeactivateJudge(ctx context.Context, judgeID string) (model.Judge, error) {
	const op = "assignment.deactivate_judge"
	judge, err := c.ledger.SetJudgeActive(ctx, judgeID, false, c.clock.Now())
	if err != nil {
		return model.Judge{}, c.fail(ctx, op, err)
	}
	return judge, nil
}

// AssignJudgeToEvent gives an active judge a role on an event. An existing
// inactive assignment is reactivated with the new role; an active one is a
// conflict.
func (c *Coordinator) AssignJudgeToEvent(ctx context.Context, eventID, judgeID string, role model.Role) (model.EventAssignment, error) {
	const op = "assignment.assign_judge"

	if _, err := c.events.GetEvent(ctx, eventID); err != nil {
		return model.EventAssignment{}, c.fail(ctx, op, err)
	}
	judge, err := c.ledger.GetJudge(ctx, judgeID)
	if err != nil {
		return model.EventAssignment{}, c.fail(ctx, op, err)
	}
	if !judge.Active {
		return model.EventAssignment{}, faults.WrapKind(op, faults.ErrForbidden, errors.New("judge is deactivated"))
	}
	if !role.Valid() {
		return model.EventAssignment{}, faults.Validation(op, "unknown role %q", role)
	}

	now := c.clock.Now()
	existing, err := c.ledger.GetEventAssignment(ctx, eventID, judgeID)
	switch {
	case errors.Is(err, faults.ErrNotFound):
		created, err := c.ledger.CreateEventAssignment(ctx, model.EventAssignment{
			JudgeID:    judgeID,
			EventID:    eventID,
			Role:       role,
			Active:     true,
			AssignedAt: now,
		})
		if err != nil {
			return model.EventAssignment{}, c.fail(ctx, op, err)
		}
		c.log.Info(ctx, "judge assigned to event",
			logger.String("event_id", eventID), logger.String("judge_id", judgeID), logger.String("role", string(role)))
		return created, nil
	case err != nil:
		return model.EventAssignment{}, c.fail(ctx, op, err)
	case existing.Active:
		return model.EventAssignment{}, faults.WrapKind(op, faults.ErrConflict, errors.New("judge already assigned to event"))
	}

	reactivated, err := c.ledger.ReactivateEventAssignment(ctx, eventID, judgeID, role, now)
	if err != nil {
		return model.EventAssignment{}, c.fail(ctx, op, err)
	}
	c.log.Info(ctx, "judge reactivated on event",
		logger.String("event_id", eventID), logger.String("judge_id", judgeID), logger.String("role", string(role)))
	return reactivated, nil
}

// DeactivateJudgeAssignment stops further fan-out to a judge for an event.
// Submission rows already created are kept.
func (c *Coordinator) DeactivateJudgeAssignment(ctx context.Context, eventID, judgeID string) (model.EventAssignment, error) {
	const op = "assignment.deactivate_assignment"
	a, err := c.ledger.SetEventAssignmentActive(ctx, eventID, judgeID, false)
	if err != nil {
		return model.EventAssignment{}, c.fail(ctx, op, err)
	}
	return a, nil
}

// ListEventJudges returns every assignment of an event, active or not.
func (c *Coordinator) ListEventJudges(ctx context.Context, eventID string) ([]model.EventAssignment, error) {
	const op = "assignment.list_judges"
	if _, err := c.events.GetEvent(ctx, eventID); err != nil {
		return nil, c.fail(ctx, op, err)
	}
	out, err := c.ledger.ListEventAssignments(ctx, eventID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	return out, nil
}

// ListFanOutAudits returns the fan-out and lazy-assignment history of an
// event, oldest first.
func (c *Coordinator) ListFanOutAudits(ctx context.Context, eventID string) ([]model.FanOutAudit, error) {
	const op = "assignment.list_audits"
	if _, err := c.events.GetEvent(ctx, eventID); err != nil {
		return nil, c.fail(ctx, op, err)
	}
	out, err := c.ledger.ListFanOutAudits(ctx, eventID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	return out, nil
}

// FanOutAssignments assigns every submission of the event to every active
// judge on it and returns how many rows were created. Re-running it creates
// only what is missing.
func (c *Coordinator) FanOutAssignments(ctx context.Context, eventID string) (int, error) {
	const op = "assignment.fanout"

	if _, err := c.events.GetEvent(ctx, eventID); err != nil {
		return 0, c.fail(ctx, op, err)
	}
	judges, err := c.activeJudges(ctx, eventID)
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	if len(judges) == 0 {
		return 0, faults.Wrap(op, faults.ErrNoJudgesAssigned)
	}
	subs, err := c.submissions.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	if len(subs) == 0 {
		return 0, faults.Wrap(op, faults.ErrNoSubmissions)
	}

	now := c.clock.Now()
	rows := make([]model.SubmissionAssignment, 0, len(judges)*len(subs))
	for _, judgeID := range judges {
		for _, s := range subs {
			rows = append(rows, newRow(judgeID, s.ID, eventID, now))
		}
	}
	created, err := c.ledger.CreateSubmissionAssignments(ctx, rows)
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	metrics.RecordAssignmentsCreated(string(model.TriggerFanOut), created)

	audit := model.FanOutAudit{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Trigger:     model.TriggerFanOut,
		Judges:      len(judges),
		Submissions: len(subs),
		Created:     created,
		At:          now,
	}
	if err := c.ledger.RecordFanOut(ctx, audit); err != nil {
		return created, c.fail(ctx, op, err)
	}

	c.log.Info(ctx, "fan-out completed",
		logger.String("event_id", eventID),
		logger.Int("judges", len(judges)),
		logger.Int("submissions", len(subs)),
		logger.Int("created", created),
	)
	c.notifier.Publish(ctx, model.TopicAssignmentsFannedOut, map[string]any{
		"event_id":    eventID,
		"judges":      len(judges),
		"submissions": len(subs),
		"created":     created,
	})
	return created, nil
}

// EnsureAssignmentsForJudge creates the rows missing for one judge on an
// event. Concurrent calls for the same pair share one execution, which is
// not cancelled when one of the waiting callers goes away; each caller
// still returns as soon as its own ctx is done.
func (c *Coordinator) EnsureAssignmentsForJudge(ctx context.Context, eventID, judgeID string) (int, error) {
	metrics.RecordEnsureCall()
	shared := context.WithoutCancel(ctx)
	ch := c.ensureGroup.DoChan(eventID+"/"+judgeID, func() (interface{}, error) {
		return c.ensure(shared, eventID, judgeID)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}

func (c *Coordinator) ensure(ctx context.Context, eventID, judgeID string) (int, error) {
	const op = "assignment.ensure"

	if err := c.requireActive(ctx, op, eventID, judgeID); err != nil {
		return 0, err
	}
	subs, err := c.submissions.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	if len(subs) == 0 {
		return 0, nil
	}
	existing, err := c.ledger.ListSubmissionAssignments(ctx, model.AssignmentFilter{EventID: eventID, JudgeID: judgeID})
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		have[row.SubmissionID] = struct{}{}
	}

	now := c.clock.Now()
	missing := make([]model.SubmissionAssignment, 0, len(subs))
	for _, s := range subs {
		if _, ok := have[s.ID]; !ok {
			missing = append(missing, newRow(judgeID, s.ID, eventID, now))
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	created, err := c.ledger.CreateSubmissionAssignments(ctx, missing)
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	metrics.RecordAssignmentsCreated(string(model.TriggerLazy), created)
	if created == 0 {
		return 0, nil
	}

	if err := c.ledger.RecordFanOut(ctx, model.FanOutAudit{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Trigger:     model.TriggerLazy,
		JudgeID:     judgeID,
		Judges:      1,
		Submissions: len(subs),
		Created:     created,
		At:          now,
	}); err != nil {
		return created, c.fail(ctx, op, err)
	}
	c.log.Debug(ctx, "lazy assignments created",
		logger.String("event_id", eventID), logger.String("judge_id", judgeID), logger.Int("created", created))
	return created, nil
}

// AssignedCount reports how many submission rows a judge has on an event.
func (c *Coordinator) AssignedCount(ctx context.Context, eventID, judgeID string) (int, error) {
	const op = "assignment.count"
	rows, err := c.ledger.ListSubmissionAssignments(ctx, model.AssignmentFilter{EventID: eventID, JudgeID: judgeID})
	if err != nil {
		return 0, c.fail(ctx, op, err)
	}
	return len(rows), nil
}

// GetAssignedSubmissions lists a judge's queue for an event, optionally
// filtered by status. It never creates rows. Other judges' scores are
// stripped from the returned submissions.
func (c *Coordinator) GetAssignedSubmissions(ctx context.Context, judgeID, eventID string, status model.Status) ([]model.QueueItem, error) {
	const op = "assignment.queue"

	if status != "" && !status.Valid() {
		return nil, faults.Validation(op, "unknown status %q", status)
	}
	if _, err := c.events.GetEvent(ctx, eventID); err != nil {
		return nil, c.fail(ctx, op, err)
	}
	if err := c.requireActive(ctx, op, eventID, judgeID); err != nil {
		return nil, err
	}

	rows, err := c.ledger.ListSubmissionAssignments(ctx, model.AssignmentFilter{EventID: eventID, JudgeID: judgeID, Status: status})
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	subs, err := c.submissions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	byID := make(map[string]model.Submission, len(subs))
	for _, s := range subs {
		s.Scores = nil
		byID[s.ID] = s
	}

	items := make([]model.QueueItem, 0, len(rows))
	for _, row := range rows {
		sub, ok := byID[row.SubmissionID]
		if !ok {
			sub = model.Submission{ID: row.SubmissionID, EventID: eventID}
		}
		items = append(items, model.QueueItem{Submission: sub, Assignment: row})
	}
	return items, nil
}

// activeJudges returns the ids of judges with an active assignment on the
// event whose judge record is itself active.
func (c *Coordinator) activeJudges(ctx context.Context, eventID string) ([]string, error) {
	assignments, err := c.ledger.ListEventAssignments(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if !a.Active {
			continue
		}
		judge, err := c.ledger.GetJudge(ctx, a.JudgeID)
		if errors.Is(err, faults.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if judge.Active {
			out = append(out, a.JudgeID)
		}
	}
	return out, nil
}

// requireActive fails with ErrForbidden unless the judge is active and holds
// an active assignment on the event.
func (c *Coordinator) requireActive(ctx context.Context, op, eventID, judgeID string) error {
	a, err := c.ledger.GetEventAssignment(ctx, eventID, judgeID)
	if errors.Is(err, faults.ErrNotFound) {
		return faults.WrapKind(op, faults.ErrForbidden, errors.New("judge is not assigned to event"))
	}
	if err != nil {
		return c.fail(ctx, op, err)
	}
	if !a.Active {
		return faults.WrapKind(op, faults.ErrForbidden, errors.New("judge assignment is inactive"))
	}
	judge, err := c.ledger.GetJudge(ctx, judgeID)
	if err != nil {
		return c.fail(ctx, op, err)
	}
	if !judge.Active {
		return faults.WrapKind(op, faults.ErrForbidden, errors.New("judge is deactivated"))
	}
	return nil
}

func (c *Coordinator) fail(ctx context.Context, op string, err error) error {
	if faults.Retryable(err) || faults.KindOf(err) == nil {
		metrics.RecordErrorByComponent("assignment", "dependency")
		c.log.Error(ctx, "assignment operation failed", logger.String("op", op), logger.Error(err))
	}
	return faults.Wrap(op, err)
}

func newRow(judgeID, submissionID, eventID string, at time.Time) model.SubmissionAssignment {
	return model.SubmissionAssignment{
		JudgeID:      judgeID,
		SubmissionID: submissionID,
		EventID:      eventID,
		Status:       model.StatusAssigned,
		AssignedAt:   at,
	}
}
