// Package service wires the judging engine together and exposes the
// operations the HTTP API serves.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/verdict/internal/adapters/notify"
	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/assignment"
	"github.com/okian/verdict/internal/domain/dedupe"
	"github.com/okian/verdict/internal/domain/mirror"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/reminder"
	"github.com/okian/verdict/internal/domain/review"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// Catalog is the external event and submission store together with the
// writer used to seed it.
type Catalog interface {
	ports.EventStore
	ports.SubmissionStore
	ports.CatalogWriter
}

// Service implements the API dependencies for the judging engine.
type Service struct {
	mu sync.RWMutex

	// Stores
	ledger  ports.Ledger
	catalog Catalog
	deduper dedupe.Deduper
	sink    notify.Sink
	clock   ports.Clock

	// Domain components
	coordinator *assignment.Coordinator
	reviews     *review.LockManager
	aggregator  *scoring.Aggregator
	reconciler  *mirror.Reconciler
	reminders   *reminder.Service

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	reminderTTL       time.Duration
	leaderboardSource string
	shutdownTimeout   time.Duration

	// State
	dispatcher *notify.Dispatcher
	started    bool
	startedAt  time.Time

	logger logger.Logger
}

// New constructs a Service. Stores default to the in-memory adapters.
func New(opts ...Option) *Service {
	s := &Service{
		clock:             ports.SystemClock{},
		queueSize:         10_000,
		dedupeSize:        100_000,
		reminderTTL:       6 * time.Hour,
		leaderboardSource: model.SourceMirror,
		shutdownTimeout:   defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.ledger == nil {
		s.ledger = repository.NewMemoryLedger()
	}
	if s.catalog == nil {
		s.catalog = repository.NewMemoryCatalog()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.dedupeSize),
			dedupe.WithTTL(s.reminderTTL),
			dedupe.WithClock(s.clock.Now),
		)
	}
	if s.sink == nil {
		s.sink = notify.NewLogSink(nil)
	}

	s.coordinator = assignment.NewCoordinator(s.ledger, s.catalog, s.catalog,
		assignment.WithNotifier(s), assignment.WithClock(s.clock))
	s.reviews = review.NewLockManager(s.ledger, s.catalog, s.catalog,
		review.WithNotifier(s), review.WithClock(s.clock))
	s.aggregator = scoring.NewAggregator(s.ledger, s.catalog, s.catalog,
		scoring.WithLeaderboardSource(s.leaderboardSource))
	s.reconciler = mirror.NewReconciler(s.ledger, s.catalog, s.catalog)
	s.reminders = reminder.NewService(s.ledger, s.catalog, s.deduper,
		reminder.WithNotifier(s))

	return s
}

// Start launches notification delivery.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.dispatcher = notify.NewDispatcher(s.sink,
		notify.WithQueueSize(s.queueSize),
		notify.WithWorkers(s.workerCount),
		notify.WithClock(s.clock),
	)
	s.dispatcher.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "judging service started",
		logger.Int("workers", s.dispatcher.Stats().Workers),
		logger.Int("queue_size", s.queueSize),
		logger.String("leaderboard_source", s.aggregator.LeaderboardSource()),
	)
	return nil
}

// Stop drains pending notifications and stops delivery.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "notification drain incomplete", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "judging service stopped")
}

// Publish forwards to the running dispatcher. Notifications published while
// the service is stopped are dropped.
func (s *Service) Publish(ctx context.Context, topic string, payload map[string]any) {
	s.mu.RLock()
	d, started := s.dispatcher, s.started
	s.mu.RUnlock()

	if !started {
		metrics.RecordNotificationDropped()
		s.logger.Debug(ctx, "notification dropped, service not started", logger.String("topic", topic))
		return
	}
	d.Publish(ctx, topic, payload)
}

// RegisterJudge creates or updates an active judge.
func (s *Service) RegisterJudge(ctx context.Context, judgeID string, expertise []string) (model.Judge, error) {
	return s.coordinator.RegisterJudge(ctx, judgeID, expertise)
}

// DeactivateJudge marks a judge inactive.
func (s *Service) DeactivateJudge(ctx context.Context, judgeID string) (model.Judge, error) {
	return s.coordinator.DeactivateJudge(ctx, judgeID)
}

// AssignJudgeToEvent gives a judge a role on an event.
func (s *Service) AssignJudgeToEvent(ctx context.Context, eventID, judgeID string, role model.Role) (model.EventAssignment, error) {
	return s.coordinator.AssignJudgeToEvent(ctx, eventID, judgeID, role)
}

// ListEventJudges returns the judges assigned to an event.
func (s *Service) ListEventJudges(ctx context.Context, eventID string) ([]model.EventAssignment, error) {
	return s.coordinator.ListEventJudges(ctx, eventID)
}

// DeactivateJudgeAssignment stops fan-out to a judge for an event.
func (s *Service) DeactivateJudgeAssignment(ctx context.Context, eventID, judgeID string) (model.EventAssignment, error) {
	return s.coordinator.DeactivateJudgeAssignment(ctx, eventID, judgeID)
}

// FanOutAssignments assigns every submission to every active judge.
func (s *Service) FanOutAssignments(ctx context.Context, eventID string) (int, error) {
	return s.coordinator.FanOutAssignments(ctx, eventID)
}

// ListFanOutAudits returns the assignment history of an event.
func (s *Service) ListFanOutAudits(ctx context.Context, eventID string) ([]model.FanOutAudit, error) {
	return s.coordinator.ListFanOutAudits(ctx, eventID)
}

// GetAssignedSubmissions returns a judge's queue. A judge who has no rows
// at all yet gets them created first, so work is never hidden behind a
// fan-out that has not run.
func (s *Service) GetAssignedSubmissions(ctx context.Context, judgeID, eventID string, status model.Status) ([]model.QueueItem, error) {
	items, err := s.coordinator.GetAssignedSubmissions(ctx, judgeID, eventID, status)
	if err != nil || len(items) > 0 {
		return items, err
	}

	total, err := s.coordinator.AssignedCount(ctx, eventID, judgeID)
	if err != nil || total > 0 {
		return items, err
	}
	created, err := s.coordinator.EnsureAssignmentsForJudge(ctx, eventID, judgeID)
	if err != nil || created == 0 {
		return items, err
	}
	return s.coordinator.GetAssignedSubmissions(ctx, judgeID, eventID, status)
}

// SubmitReview records a judge's review.
func (s *Service) SubmitReview(ctx context.Context, judgeID, submissionID string, in model.ReviewInput) (model.SubmissionAssignment, error) {
	return s.reviews.SubmitReview(ctx, judgeID, submissionID, in)
}

// GetEventResults returns the authoritative per-submission results.
func (s *Service) GetEventResults(ctx context.Context, eventID string) (model.EventResults, error) {
	return s.aggregator.ComputeEventResults(ctx, eventID)
}

// GetLeaderboard returns the weighted leaderboard.
func (s *Service) GetLeaderboard(ctx context.Context, eventID string) (model.Leaderboard, error) {
	return s.aggregator.ComputeLeaderboard(ctx, eventID)
}

// ReconcileMirror repairs the score mirror from the ledger.
func (s *Service) ReconcileMirror(ctx context.Context, eventID string) (mirror.Report, error) {
	return s.reconciler.ReconcileMirror(ctx, eventID)
}

// RemindPendingReviews nudges judges with outstanding reviews.
func (s *Service) RemindPendingReviews(ctx context.Context, eventID string) (reminder.Report, error) {
	return s.reminders.RemindPendingReviews(ctx, eventID)
}

// SaveEvent seeds an event into the catalog.
func (s *Service) SaveEvent(ctx context.Context, event model.Event) error {
	return s.catalog.SaveEvent(ctx, event)
}

// SaveSubmission seeds a submission into the catalog.
func (s *Service) SaveSubmission(ctx context.Context, submission model.Submission) error {
	return s.catalog.SaveSubmission(ctx, submission)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"leaderboard_source": s.aggregator.LeaderboardSource(),
		"queue_size":         s.queueSize,
		"reminder_ttl":       s.reminderTTL.String(),
	}
	if s.started {
		ns := s.dispatcher.Stats()
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["notifications"] = ns
		metrics.UpdateQueueSize(ns.Queued)
		metrics.UpdateWorkerCount(ns.Workers)
	}
	entries := s.deduper.Size()
	stats["dedupe_entries"] = entries
	metrics.UpdateDedupeEntries(int(entries))
	return stats
}

var _ ports.Notifier = (*Service)(nil)
