package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
)

// Run executes a complete simulation and returns its statistics. A non-nil
// error wrapping ErrVerification means the engine broke one of its guarantees.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("simulation")
	stats := &Stats{StartTime: time.Now(), Judges: cfg.Judges, Submissions: cfg.Submissions}

	log.Info(ctx, "starting judging simulation",
		logger.Int("judges", cfg.Judges),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("contenders", cfg.Contenders),
		logger.Int("workers", cfg.Workers),
		logger.Int("mirror_loss_every", cfg.MirrorLossEvery),
		logger.String("leaderboard_source", cfg.LeaderboardSource))

	p := generatePlan(cfg)
	stats.PlannedReviews = len(p.reviews)

	catalog := newLossyCatalog(cfg.MirrorLossEvery)
	sink := &countingSink{}
	svc := service.New(
		service.WithCatalog(catalog),
		service.WithSink(sink),
		service.WithWorkerCount(cfg.NotifyWorkers),
		service.WithLeaderboardSource(cfg.LeaderboardSource),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}
	stopped := false
	defer func() {
		if !stopped {
			svc.Stop()
		}
	}()

	// Step 1: Seed the catalog and register judges
	if err := seed(ctx, svc, p); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	// Step 2: Fan out to the first half, let the rest pull their queues lazily
	if err := assign(ctx, svc, p, stats); err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}

	// Step 3: Submit every planned review with concurrent contenders
	if err := submitReviews(ctx, svc, p, cfg, stats); err != nil {
		return nil, fmt.Errorf("submit reviews: %w", err)
	}
	stats.MirrorDropped = catalog.dropped.Load()
	catalog.heal()

	// Step 4: Repair the mirror
	report, err := svc.ReconcileMirror(ctx, p.event.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	stats.MirrorRepaired = report.Appended

	// Step 5: Verify
	verifyErr := verify(ctx, svc, p, cfg, stats)

	svc.Stop()
	stopped = true
	stats.NotificationsDelivered = sink.delivered.Load()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func seed(ctx context.Context, svc *service.Service, p plan) error {
	if err := svc.SaveEvent(ctx, p.event); err != nil {
		return err
	}
	for _, sub := range p.submissions {
		if err := svc.SaveSubmission(ctx, sub); err != nil {
			return err
		}
	}
	for _, judgeID := range p.judges {
		if _, err := svc.RegisterJudge(ctx, judgeID, []string{"general"}); err != nil {
			return err
		}
	}
	return nil
}

func assign(ctx context.Context, svc *service.Service, p plan, stats *Stats) error {
	half := len(p.judges) / 2
	for _, judgeID := range p.judges[:half] {
		if _, err := svc.AssignJudgeToEvent(ctx, p.event.ID, judgeID, model.RolePrimary); err != nil {
			return err
		}
	}
	created, err := svc.FanOutAssignments(ctx, p.event.ID)
	if err != nil {
		return err
	}
	stats.FannedOut = created

	late := p.judges[half:]
	for _, judgeID := range late {
		if _, err := svc.AssignJudgeToEvent(ctx, p.event.ID, judgeID, model.RoleSecondary); err != nil {
			return err
		}
	}

	var lazy atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, judgeID := range late {
		g.Go(func() error {
			items, err := svc.GetAssignedSubmissions(gctx, judgeID, p.event.ID, model.StatusAssigned)
			if err != nil {
				return err
			}
			lazy.Add(int64(len(items)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stats.LazyCreated = int(lazy.Load())
	return nil
}

// submitReviews races cfg.Contenders identical submissions per planned
// review. Exactly one per review may win; every loser must see a conflict.
func submitReviews(ctx context.Context, svc *service.Service, p plan, cfg *Config, stats *Stats) error {
	var accepted, conflicts atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, r := range p.reviews {
		g.Go(func() error {
			in := model.ReviewInput{Score: r.Score, RoundID: r.RoundID, Feedback: "simulated"}

			start := make(chan struct{})
			errs := make([]error, cfg.Contenders)
			var wg sync.WaitGroup
			for i := 0; i < cfg.Contenders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, errs[i] = svc.SubmitReview(gctx, r.JudgeID, r.SubmissionID, in)
				}(i)
			}
			close(start)
			wg.Wait()

			for _, err := range errs {
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, faults.ErrNotAssignedOrAlreadyReviewed):
					conflicts.Add(1)
				default:
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	stats.ReviewsAccepted = accepted.Load()
	stats.ReviewConflicts = conflicts.Load()
	return err
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var reviewsPerSecond float64
	if stats.Duration > 0 {
		reviewsPerSecond = float64(stats.ReviewsAccepted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("judges", stats.Judges),
		logger.Int("submissions", stats.Submissions),
		logger.Int("plannedReviews", stats.PlannedReviews),
		logger.Int64("reviewsAccepted", stats.ReviewsAccepted),
		logger.Int64("reviewConflicts", stats.ReviewConflicts),
		logger.Int("fannedOut", stats.FannedOut),
		logger.Int("lazyCreated", stats.LazyCreated),
		logger.Int64("mirrorDropped", stats.MirrorDropped),
		logger.Int("mirrorRepaired", stats.MirrorRepaired),
		logger.Int64("notificationsDelivered", stats.NotificationsDelivered),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("reviewsPerSecond", reviewsPerSecond))
}
