package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
)

// scoreTolerance covers two-decimal rounding of the reported scores.
const scoreTolerance = 0.006

// verify checks every guarantee the run is meant to exercise and returns
// all violations joined under ErrVerification.
func verify(ctx context.Context, svc *service.Service, p plan, cfg *Config, stats *Stats) error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	half := len(p.judges) / 2
	if want := half * len(p.submissions); stats.FannedOut != want {
		fail("fan-out created %d rows, want %d", stats.FannedOut, want)
	}
	if want := (len(p.judges) - half) * len(p.submissions); stats.LazyCreated != want {
		fail("lazy queues held %d rows, want %d", stats.LazyCreated, want)
	}

	if stats.ReviewsAccepted != int64(len(p.reviews)) {
		fail("accepted %d reviews, want exactly %d", stats.ReviewsAccepted, len(p.reviews))
	}
	if want := int64(len(p.reviews) * (cfg.Contenders - 1)); stats.ReviewConflicts != want {
		fail("saw %d review conflicts, want %d", stats.ReviewConflicts, want)
	}
	if int64(stats.MirrorRepaired) != stats.MirrorDropped {
		fail("reconcile appended %d entries, %d were dropped", stats.MirrorRepaired, stats.MirrorDropped)
	}

	again, err := svc.ReconcileMirror(ctx, p.event.ID)
	switch {
	case err != nil:
		fail("second reconcile: %v", err)
	case again.Missing != 0:
		fail("mirror still missing %d entries after reconcile", again.Missing)
	}

	verifyResults(ctx, svc, p, fail)
	verifyLeaderboard(ctx, svc, p, stats, fail)

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrVerification, errors.Join(problems...))
}

func verifyResults(ctx context.Context, svc *service.Service, p plan, fail func(string, ...any)) {
	res, err := svc.GetEventResults(ctx, p.event.ID)
	if err != nil {
		fail("results: %v", err)
		return
	}
	means := p.expectedMeans()
	if len(res.Results) != len(means) {
		fail("results cover %d submissions, want %d", len(res.Results), len(means))
	}
	for _, r := range res.Results {
		if r.ReviewCount != len(p.judges) {
			fail("submission %s has %d reviews, want %d", r.SubmissionID, r.ReviewCount, len(p.judges))
		}
		if math.Abs(r.AverageScore-means[r.SubmissionID]) > scoreTolerance {
			fail("submission %s average %.2f, want %.2f", r.SubmissionID, r.AverageScore, means[r.SubmissionID])
		}
	}
}

func verifyLeaderboard(ctx context.Context, svc *service.Service, p plan, stats *Stats, fail func(string, ...any)) {
	first, err := svc.GetLeaderboard(ctx, p.event.ID)
	if err != nil {
		fail("leaderboard: %v", err)
		return
	}
	second, err := svc.GetLeaderboard(ctx, p.event.ID)
	if err != nil {
		fail("leaderboard: %v", err)
		return
	}
	if !reflect.DeepEqual(first, second) {
		fail("leaderboard changed between two reads with no writes")
	}
	stats.LeaderboardEntries = len(first.Entries)

	expected := p.expectedScores()
	if len(first.Entries) != len(expected) {
		fail("leaderboard has %d entries, want %d", len(first.Entries), len(expected))
	}
	for i, e := range first.Entries {
		if e.Rank != i+1 {
			fail("entry %d has rank %d", i, e.Rank)
		}
		if math.Abs(e.Score-expected[e.SubmissionID]) > scoreTolerance {
			fail("submission %s scored %.2f, want %.2f", e.SubmissionID, e.Score, expected[e.SubmissionID])
		}
		if i > 0 && !ordered(first.Entries[i-1], e) {
			fail("entries %d and %d are out of order", i-1, i)
		}
	}
}

func ordered(a, b model.LeaderboardEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TeamID != b.TeamID {
		return a.TeamID < b.TeamID
	}
	return a.SubmissionID < b.SubmissionID
}
