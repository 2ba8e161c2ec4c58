// Package review owns the assigned -> reviewed transition.
//
// Exclusivity comes from the ledger's conditional update, not from an
// in-process lock: two servers racing on the same (judge, submission) pair
// still produce exactly one winner.
package review

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

const (
	minScore = 0
	maxScore = 100
)

// Option applies a configuration option to the LockManager.
type Option func(*LockManager)

// WithNotifier sets where review notifications are published.
func WithNotifier(n ports.Notifier) Option {
	return func(m *LockManager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock overrides the time source for reviewed_at.
func WithClock(clock ports.Clock) Option {
	return func(m *LockManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *LockManager) {
		if l != nil {
			m.log = l
		}
	}
}

// LockManager validates and records reviews.
type LockManager struct {
	ledger      ports.Ledger
	events      ports.EventStore
	submissions ports.SubmissionStore
	notifier    ports.Notifier
	clock       ports.Clock
	log         logger.Logger
}

// NewLockManager creates a LockManager.
func NewLockManager(ledger ports.Ledger, events ports.EventStore, submissions ports.SubmissionStore, opts ...Option) *LockManager {
	m := &LockManager{
		ledger:      ledger,
		events:      events,
		submissions: submissions,
		notifier:    ports.NopNotifier{},
		clock:       ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Named("review")
	}
	return m
}

// SubmitReview records a judge's review of a submission. Every check before
// the ledger update is side-effect free. Once the ledger accepts the review
// it is final: a failed mirror write is logged and left for reconciliation.
func (m *LockManager) SubmitReview(ctx context.Context, judgeID, submissionID string, in model.ReviewInput) (model.SubmissionAssignment, error) {
	const op = "review.submit"
	start := time.Now()

	if math.IsNaN(in.Score) || math.IsInf(in.Score, 0) || in.Score < minScore || in.Score > maxScore {
		return m.reject("score", faults.Validation(op, "score must be between %d and %d", minScore, maxScore))
	}

	sub, err := m.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return m.reject("submission", m.wrap(ctx, op, err))
	}
	event, err := m.events.GetEvent(ctx, sub.EventID)
	if err != nil {
		return m.reject("event", m.wrap(ctx, op, err))
	}
	if err := checkSchema(op, event, in); err != nil {
		return m.reject("schema", err)
	}

	ea, err := m.ledger.GetEventAssignment(ctx, event.ID, judgeID)
	switch {
	case err == nil && !ea.Active:
		return m.reject("inactive", faults.WrapKind(op, faults.ErrForbidden, errors.New("judge assignment is inactive")))
	case err != nil && !errors.Is(err, faults.ErrNotFound):
		return m.reject("dependency", m.wrap(ctx, op, err))
	}

	now := m.clock.Now()
	row, err := m.ledger.MarkReviewed(ctx, judgeID, submissionID, in, now)
	if errors.Is(err, faults.ErrNotAssignedOrAlreadyReviewed) {
		metrics.RecordReviewConflict()
		m.log.Debug(ctx, "review rejected by ledger",
			logger.String("judge_id", judgeID), logger.String("submission_id", submissionID))
		return model.SubmissionAssignment{}, faults.Wrap(op, err)
	}
	if err != nil {
		return m.reject("dependency", m.wrap(ctx, op, err))
	}
	metrics.RecordReviewSubmitted()

	entry := model.ScoreEntry{
		JudgeID:     judgeID,
		RoundID:     in.RoundID,
		Score:       in.Score,
		Feedback:    in.Feedback,
		Criteria:    in.Criteria,
		SubmittedAt: now,
	}
	if err := m.submissions.AppendScore(ctx, submissionID, entry); err != nil {
		metrics.RecordMirrorWriteFailure()
		m.log.Warn(ctx, "mirror write failed, ledger keeps the review",
			logger.String("judge_id", judgeID),
			logger.String("submission_id", submissionID),
			logger.Error(err),
		)
	}

	m.notifier.Publish(ctx, model.TopicReviewSubmitted, map[string]any{
		"event_id":      event.ID,
		"submission_id": submissionID,
		"judge_id":      judgeID,
		"round_id":      in.RoundID,
		"score":         in.Score,
	})
	m.notifier.Publish(ctx, model.TopicLeaderboardInvalidated, map[string]any{
		"event_id": event.ID,
	})

	metrics.RecordReviewLatency(metrics.SinceMs(start))
	return row, nil
}

// checkSchema validates the round and criteria against the event. An event
// with rounds requires a defined round and checks criteria against the round
// schema; an event without rounds uses the event schema. An empty schema
// accepts any criteria.
func checkSchema(op string, event model.Event, in model.ReviewInput) error {
	switch {
	case len(event.Rounds) > 0 && in.RoundID == "":
		return faults.Validation(op, "round_id is required for event %s", event.ID)
	case in.RoundID != "":
		if _, ok := event.Round(in.RoundID); !ok {
			return faults.Validation(op, "round %q is not defined for event", in.RoundID)
		}
	}
	schema := event.Schema(in.RoundID)
	if len(schema) == 0 {
		return nil
	}
	limits := make(map[string]float64, len(schema))
	for _, c := range schema {
		limits[c.Key] = c.MaxScore
	}
	for key, v := range in.Criteria {
		limit, ok := limits[key]
		if !ok {
			return faults.Validation(op, "criterion %q is not defined", key)
		}
		if math.IsNaN(v) || v < 0 || v > limit {
			return faults.Validation(op, "criterion %q must be between 0 and %g", key, limit)
		}
	}
	return nil
}

func (m *LockManager) reject(reason string, err error) (model.SubmissionAssignment, error) {
	metrics.RecordReviewRejected(reason)
	return model.SubmissionAssignment{}, err
}

func (m *LockManager) wrap(ctx context.Context, op string, err error) error {
	if faults.Retryable(err) || faults.KindOf(err) == nil {
		metrics.RecordErrorByComponent("review", "dependency")
		m.log.Error(ctx, "review dependency failed", logger.String("op", op), logger.Error(err))
	}
	return faults.Wrap(op, err)
}
