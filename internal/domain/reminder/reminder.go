// Package reminder nudges judges about reviews they still owe.
package reminder

import (
	"context"
	"sort"

	"github.com/okian/verdict/internal/domain/dedupe"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Report summarizes one reminder run.
type Report struct {
	EventID    string `json:"event_id"`
	Judges     int    `json:"judges"`
	Sent       int    `json:"sent"`
	Suppressed int    `json:"suppressed"`
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithNotifier sets where reminders are published.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service sends at most one reminder per (event, judge) per dedupe window.
type Service struct {
	ledger   ports.Ledger
	events   ports.EventStore
	deduper  dedupe.Deduper
	notifier ports.Notifier
	log      logger.Logger
}

// NewService creates a reminder Service. The deduper's TTL is the
// reminder window.
func NewService(ledger ports.Ledger, events ports.EventStore, deduper dedupe.Deduper, opts ...Option) *Service {
	s := &Service{
		ledger:   ledger,
		events:   events,
		deduper:  deduper,
		notifier: ports.NopNotifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("reminder")
	}
	return s
}

// RemindPendingReviews publishes a review.reminder for every actively
// assigned judge with pending reviews on the event, unless one was already
// sent inside the window.
func (s *Service) RemindPendingReviews(ctx context.Context, eventID string) (Report, error) {
	const op = "reminder.remind"
	report := Report{EventID: eventID}

	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return report, faults.Wrap(op, err)
	}
	assignments, err := s.ledger.ListEventAssignments(ctx, eventID)
	if err != nil {
		return report, s.fail(ctx, op, err)
	}
	active := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		active[a.JudgeID] = a.Active
	}
	rows, err := s.ledger.ListSubmissionAssignments(ctx, model.AssignmentFilter{EventID: eventID, Status: model.StatusAssigned})
	if err != nil {
		return report, s.fail(ctx, op, err)
	}

	pending := make(map[string]int)
	for _, row := range rows {
		if active[row.JudgeID] {
			pending[row.JudgeID]++
		}
	}
	judges := make([]string, 0, len(pending))
	for id := range pending {
		judges = append(judges, id)
	}
	sort.Strings(judges)
	report.Judges = len(judges)

	for _, judgeID := range judges {
		if s.deduper.SeenAndRecord(ctx, eventID+"/"+judgeID) {
			report.Suppressed++
			metrics.RecordReminderSuppressed()
			continue
		}
		s.notifier.Publish(ctx, model.TopicReviewReminder, map[string]any{
			"event_id": eventID,
			"judge_id": judgeID,
			"pending":  pending[judgeID],
		})
		report.Sent++
		metrics.RecordReminderSent()
	}
	metrics.UpdateDedupeEntries(int(s.deduper.Size()))

	s.log.Info(ctx, "reminders processed",
		logger.String("event_id", eventID),
		logger.Int("judges", report.Judges),
		logger.Int("sent", report.Sent),
		logger.Int("suppressed", report.Suppressed),
	)
	return report, nil
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "reminder run failed", logger.String("op", op), logger.Error(err))
	return faults.Wrap(op, err)
}
