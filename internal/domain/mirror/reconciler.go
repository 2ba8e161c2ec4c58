// Package mirror repairs the submission score mirror from the ledger.
package mirror

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Report summarizes one reconciliation run.
type Report struct {
	EventID  string `json:"event_id"`
	Reviewed int    `json:"reviewed"`
	Missing  int    `json:"missing"`
	Appended int    `json:"appended"`
	Failed   int    `json:"failed"`
}

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// Reconciler replays reviewed ledger rows into the mirror.
type Reconciler struct {
	ledger      ports.Ledger
	events      ports.EventStore
	submissions ports.SubmissionStore
	log         logger.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(ledger ports.Ledger, events ports.EventStore, submissions ports.SubmissionStore, opts ...Option) *Reconciler {
	r := &Reconciler{ledger: ledger, events: events, submissions: submissions}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("mirror")
	}
	return r
}

// ReconcileMirror appends a mirror entry for every reviewed ledger row whose
// (judge, round) has none yet. Entries are only ever added, so a run that
// failed halfway can simply be repeated.
func (r *Reconciler) ReconcileMirror(ctx context.Context, eventID string) (Report, error) {
	const op = "mirror.reconcile"
	report := Report{EventID: eventID}

	if _, err := r.events.GetEvent(ctx, eventID); err != nil {
		return report, faults.Wrap(op, err)
	}

	var (
		reviewed []model.SubmissionAssignment
		subs     []model.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviewed, err = r.ledger.ListSubmissionAssignments(gctx, model.AssignmentFilter{EventID: eventID, Status: model.StatusReviewed})
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = r.submissions.ListByEvent(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		r.log.Error(ctx, "mirror reconcile load failed", logger.String("event_id", eventID), logger.Error(err))
		return report, faults.Wrap(op, err)
	}

	byID := make(map[string]model.Submission, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}

	for _, row := range reviewed {
		if row.Score == nil {
			continue
		}
		report.Reviewed++
		sub, ok := byID[row.SubmissionID]
		if ok && sub.HasEntry(row.JudgeID, row.RoundID) {
			continue
		}
		report.Missing++
		if !ok {
			report.Failed++
			r.log.Warn(ctx, "reviewed submission missing from mirror store",
				logger.String("event_id", eventID), logger.String("submission_id", row.SubmissionID))
			continue
		}

		entry := model.ScoreEntry{
			JudgeID:  row.JudgeID,
			RoundID:  row.RoundID,
			Score:    *row.Score,
			Feedback: row.Feedback,
			Criteria: row.Criteria,
		}
		if row.ReviewedAt != nil {
			entry.SubmittedAt = *row.ReviewedAt
		}
		if err := r.submissions.AppendScore(ctx, row.SubmissionID, entry); err != nil {
			report.Failed++
			metrics.RecordMirrorWriteFailure()
			r.log.Warn(ctx, "mirror repair failed",
				logger.String("submission_id", row.SubmissionID),
				logger.String("judge_id", row.JudgeID),
				logger.Error(err),
			)
			continue
		}
		report.Appended++
	}

	metrics.RecordMirrorRepairs(report.Appended)
	r.log.Info(ctx, "mirror reconciled",
		logger.String("event_id", eventID),
		logger.Int("reviewed", report.Reviewed),
		logger.Int("missing", report.Missing),
		logger.Int("appended", report.Appended),
		logger.Int("failed", report.Failed),
	)
	return report, nil
}
