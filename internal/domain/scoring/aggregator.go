package scoring

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLeaderboardSource selects the store the leaderboard reads:
// model.SourceMirror (default) or model.SourceLedger.
func WithLeaderboardSource(source string) Option {
	return func(a *Aggregator) {
		if source == model.SourceMirror || source == model.SourceLedger {
			a.leaderboardSource = source
		}
	}
}

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// Aggregator computes read-only snapshots of event scores. Results always
// come from the ledger; the leaderboard reads the configured source.
type Aggregator struct {
	ledger            ports.Ledger
	events            ports.EventStore
	submissions       ports.SubmissionStore
	leaderboardSource string
	log               logger.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(ledger ports.Ledger, events ports.EventStore, submissions ports.SubmissionStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:            ledger,
		events:            events,
		submissions:       submissions,
		leaderboardSource: model.SourceMirror,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Named("scoring")
	}
	return a
}

// LeaderboardSource reports which store ComputeLeaderboard reads.
func (a *Aggregator) LeaderboardSource() string {
	return a.leaderboardSource
}

// ComputeEventResults groups reviewed ledger rows by submission and ranks
// them by mean score. Submissions without reviews are left out.
func (a *Aggregator) ComputeEventResults(ctx context.Context, eventID string) (model.EventResults, error) {
	const op = "scoring.results"
	start := time.Now()
	defer func() { metrics.RecordScoringLatency(metrics.SinceMs(start)) }()
	metrics.RecordScoringRun("results")

	var (
		reviewed []model.SubmissionAssignment
		subs     []model.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := a.events.GetEvent(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		reviewed, err = a.ledger.ListSubmissionAssignments(gctx, model.AssignmentFilter{EventID: eventID, Status: model.StatusReviewed})
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = a.submissions.ListByEvent(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.EventResults{}, a.fail(ctx, op, eventID, err)
	}

	teams := teamsBySubmission(subs)
	grouped := make(map[string][]model.Review)
	for _, row := range reviewed {
		if row.Score == nil {
			continue
		}
		r := model.Review{
			JudgeID:  row.JudgeID,
			Score:    *row.Score,
			Feedback: row.Feedback,
			Criteria: row.Criteria,
			RoundID:  row.RoundID,
		}
		if row.ReviewedAt != nil {
			r.ReviewedAt = *row.ReviewedAt
		}
		grouped[row.SubmissionID] = append(grouped[row.SubmissionID], r)
	}

	results := make([]model.SubmissionResult, 0, len(grouped))
	for submissionID, reviews := range grouped {
		sort.Slice(reviews, func(i, j int) bool {
			if reviews[i].JudgeID != reviews[j].JudgeID {
				return reviews[i].JudgeID < reviews[j].JudgeID
			}
			return reviews[i].RoundID < reviews[j].RoundID
		})
		scores := make([]float64, len(reviews))
		for i, r := range reviews {
			scores[i] = r.Score
		}
		results = append(results, model.SubmissionResult{
			SubmissionID: submissionID,
			TeamID:       teams[submissionID],
			AverageScore: Round2(Mean(scores)),
			ReviewCount:  len(reviews),
			Reviews:      reviews,
		})
	}
	RankResults(results)

	return model.EventResults{EventID: eventID, Source: model.SourceLedger, Results: results}, nil
}

// ComputeLeaderboard ranks submissions by their weighted round score.
func (a *Aggregator) ComputeLeaderboard(ctx context.Context, eventID string) (model.Leaderboard, error) {
	const op = "scoring.leaderboard"
	start := time.Now()
	defer func() { metrics.RecordScoringLatency(metrics.SinceMs(start)) }()
	metrics.RecordScoringRun("leaderboard")

	var (
		event    model.Event
		subs     []model.Submission
		reviewed []model.SubmissionAssignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		event, err = a.events.GetEvent(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = a.submissions.ListByEvent(gctx, eventID)
		return err
	})
	if a.leaderboardSource == model.SourceLedger {
		g.Go(func() error {
			var err error
			reviewed, err = a.ledger.ListSubmissionAssignments(gctx, model.AssignmentFilter{EventID: eventID, Status: model.StatusReviewed})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return model.Leaderboard{}, a.fail(ctx, op, eventID, err)
	}

	entriesBySubmission := make(map[string][]model.ScoreEntry, len(subs))
	if a.leaderboardSource == model.SourceLedger {
		for _, row := range reviewed {
			if row.Score == nil {
				continue
			}
			entriesBySubmission[row.SubmissionID] = append(entriesBySubmission[row.SubmissionID], model.ScoreEntry{
				JudgeID: row.JudgeID,
				RoundID: row.RoundID,
				Score:   *row.Score,
			})
		}
	} else {
		for _, s := range subs {
			entriesBySubmission[s.ID] = s.Scores
		}
	}

	board := make([]model.LeaderboardEntry, 0, len(subs))
	for _, s := range subs {
		score, ok := SubmissionScore(entriesBySubmission[s.ID], event.Rounds)
		if !ok {
			continue
		}
		board = append(board, model.LeaderboardEntry{
			TeamID:       s.TeamID,
			SubmissionID: s.ID,
			Score:        Round2(score),
		})
	}
	RankLeaderboard(board)

	return model.Leaderboard{EventID: eventID, Source: a.leaderboardSource, Entries: board}, nil
}

func (a *Aggregator) fail(ctx context.Context, op, eventID string, err error) error {
	metrics.RecordScoringError()
	if faults.KindOf(err) != faults.ErrNotFound {
		a.log.Error(ctx, "score aggregation failed",
			logger.String("op", op), logger.String("event_id", eventID), logger.Error(err))
	}
	return faults.Wrap(op, err)
}

func teamsBySubmission(subs []model.Submission) map[string]string {
	out := make(map[string]string, len(subs))
	for _, s := range subs {
		out[s.ID] = s.TeamID
	}
	return out
}
