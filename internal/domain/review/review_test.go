package review_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/review"
	"github.com/okian/verdict/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) Publish(_ context.Context, topic string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.topics...)
}

// brokenMirror fails every AppendScore.
type brokenMirror struct {
	*repository.MemoryCatalog
}

func (brokenMirror) AppendScore(context.Context, string, model.ScoreEntry) error {
	return faults.Dependency("mirror.append", errors.New("connection reset"))
}

var now = time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)

type env struct {
	ledger   *repository.MemoryLedger
	catalog  *repository.MemoryCatalog
	notifier *recordingNotifier
	mgr      *review.LockManager
}

func newEnv(ctx context.Context) env {
	e := env{
		ledger:   repository.NewMemoryLedger(),
		catalog:  repository.NewMemoryCatalog(),
		notifier: &recordingNotifier{},
	}
	So(e.catalog.SaveEvent(ctx, model.Event{
		ID: "e-1",
		Rounds: []model.Round{
			{ID: "r-1", Weight: 1, Criteria: []model.Criterion{{Key: "impact", MaxScore: 10}}},
			{ID: "r-2", Weight: 2},
		},
		Criteria: []model.Criterion{{Key: "design", MaxScore: 5}},
	}), ShouldBeNil)
	So(e.catalog.SaveSubmission(ctx, model.Submission{ID: "s-1", EventID: "e-1", TeamID: "t-1"}), ShouldBeNil)

	_, err := e.ledger.UpsertJudge(ctx, model.Judge{ID: "j-1", Active: true})
	So(err, ShouldBeNil)
	_, err = e.ledger.CreateEventAssignment(ctx, model.EventAssignment{JudgeID: "j-1", EventID: "e-1", Role: model.RolePrimary, Active: true, AssignedAt: now})
	So(err, ShouldBeNil)
	_, err = e.ledger.CreateSubmissionAssignments(ctx, []model.SubmissionAssignment{{
		JudgeID: "j-1", SubmissionID: "s-1", EventID: "e-1", Status: model.StatusAssigned, AssignedAt: now,
	}})
	So(err, ShouldBeNil)

	e.mgr = review.NewLockManager(e.ledger, e.catalog, e.catalog,
		review.WithNotifier(e.notifier), review.WithClock(fixedClock{now}))
	return e
}

func (e env) mirror(ctx context.Context) []model.ScoreEntry {
	sub, err := e.catalog.GetByID(ctx, "s-1")
	So(err, ShouldBeNil)
	return sub.Scores
}

func TestSubmitReview(t *testing.T) {
	Convey("Given an assigned judge", t, func() {
		ctx := context.Background()
		e := newEnv(ctx)

		Convey("When the judge submits a review", func() {
			row, err := e.mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{
				Score: 82.5, Feedback: "solid", RoundID: "r-1", Criteria: map[string]float64{"impact": 8},
			})

			Convey("Then the ledger row is reviewed", func() {
				So(err, ShouldBeNil)
				So(row.Status, ShouldEqual, model.StatusReviewed)
				So(*row.Score, ShouldEqual, 82.5)
				So(row.RoundID, ShouldEqual, "r-1")
				So(*row.ReviewedAt, ShouldEqual, now)
			})

			Convey("Then the mirror has one entry and notifications are sent", func() {
				scores := e.mirror(ctx)
				So(len(scores), ShouldEqual, 1)
				So(scores[0].JudgeID, ShouldEqual, "j-1")
				So(scores[0].Score, ShouldEqual, 82.5)
				So(e.notifier.all(), ShouldResemble, []string{model.TopicReviewSubmitted, model.TopicLeaderboardInvalidated})
			})

			Convey("And a second review conflicts and changes nothing", func() {
				_, err := e.mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{Score: 10, Feedback: "changed", RoundID: "r-1"})
				So(errors.Is(err, faults.ErrNotAssignedOrAlreadyReviewed), ShouldBeTrue)
				So(errors.Is(err, faults.ErrConflict), ShouldBeTrue)

				stored, err := e.ledger.GetSubmissionAssignment(ctx, "j-1", "s-1")
				So(err, ShouldBeNil)
				So(*stored.Score, ShouldEqual, 82.5)
				So(stored.Feedback, ShouldEqual, "solid")
				So(len(e.mirror(ctx)), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines submit for the same pair", func() {
			const n = 16
			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = e.mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{Score: float64(i), RoundID: "r-2"})
				}(i)
			}
			wg.Wait()

			Convey("Then exactly one wins and the stored score is the winner's", func() {
				winner, conflicts := -1, 0
				for i, err := range errs {
					switch {
					case err == nil:
						winner = i
					case errors.Is(err, faults.ErrConflict):
						conflicts++
					}
				}
				So(winner, ShouldBeGreaterThanOrEqualTo, 0)
				So(conflicts, ShouldEqual, n-1)

				stored, err := e.ledger.GetSubmissionAssignment(ctx, "j-1", "s-1")
				So(err, ShouldBeNil)
				So(*stored.Score, ShouldEqual, float64(winner))
				So(len(e.mirror(ctx)), ShouldEqual, 1)
			})
		})

		Convey("When an unassigned judge submits", func() {
			_, err := e.mgr.SubmitReview(ctx, "j-2", "s-1", model.ReviewInput{Score: 50, RoundID: "r-2"})

			Convey("Then it conflicts without writing anything", func() {
				So(errors.Is(err, faults.ErrNotAssignedOrAlreadyReviewed), ShouldBeTrue)
				_, err := e.ledger.GetSubmissionAssignment(ctx, "j-2", "s-1")
				So(errors.Is(err, faults.ErrNotFound), ShouldBeTrue)
				So(e.mirror(ctx), ShouldBeEmpty)
				So(e.notifier.all(), ShouldBeEmpty)
			})
		})

		Convey("When the judge's event assignment is inactive", func() {
			_, err := e.ledger.SetEventAssignmentActive(ctx, "e-1", "j-1", false)
			So(err, ShouldBeNil)
			_, err = e.mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{Score: 50, RoundID: "r-2"})

			Convey("Then it is forbidden and the row stays assigned", func() {
				So(errors.Is(err, faults.ErrForbidden), ShouldBeTrue)
				stored, _ := e.ledger.GetSubmissionAssignment(ctx, "j-1", "s-1")
				So(stored.Status, ShouldEqual, model.StatusAssigned)
			})
		})

		Convey("When the input is invalid", func() {
			cases := []struct {
				name string
				in   model.ReviewInput
			}{
				{"negative score", model.ReviewInput{Score: -1}},
				{"score above range", model.ReviewInput{Score: 100.01}},
				{"NaN score", model.ReviewInput{Score: math.NaN()}},
				{"infinite score", model.ReviewInput{Score: math.Inf(1)}},
				{"unknown round", model.ReviewInput{Score: 50, RoundID: "r-9"}},
				{"missing round on an event with rounds", model.ReviewInput{Score: 50}},
				{"criterion outside round schema", model.ReviewInput{Score: 50, RoundID: "r-1", Criteria: map[string]float64{"design": 1}}},
				{"criterion above max", model.ReviewInput{Score: 50, RoundID: "r-1", Criteria: map[string]float64{"impact": 11}}},
			}
			for _, tc := range cases {
				_, err := e.mgr.SubmitReview(ctx, "j-1", "s-1", tc.in)
				So(errors.Is(err, faults.ErrValidation), ShouldBeTrue)
			}

			Convey("Then the row stays assigned", func() {
				stored, _ := e.ledger.GetSubmissionAssignment(ctx, "j-1", "s-1")
				So(stored.Status, ShouldEqual, model.StatusAssigned)
			})
		})

		Convey("When the boundary scores and an open round schema are used", func() {
			_, err := e.mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{Score: 100, RoundID: "r-2", Criteria: map[string]float64{"anything": 3}})
			So(err, ShouldBeNil)
		})

		Convey("When the submission is unknown", func() {
			_, err := e.mgr.SubmitReview(ctx, "j-1", "s-404", model.ReviewInput{Score: 50})
			So(errors.Is(err, faults.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the mirror write fails", func() {
			mgr := review.NewLockManager(e.ledger, e.catalog, brokenMirror{e.catalog}, review.WithClock(fixedClock{now}))
			row, err := mgr.SubmitReview(ctx, "j-1", "s-1", model.ReviewInput{Score: 64, RoundID: "r-2"})

			Convey("Then the review still succeeds on the ledger", func() {
				So(err, ShouldBeNil)
				So(*row.Score, ShouldEqual, 64)
				So(e.mirror(ctx), ShouldBeEmpty)
			})
		})
	})

	Convey("Given an event without rounds", t, func() {
		ctx := context.Background()
		e := newEnv(ctx)
		So(e.catalog.SaveEvent(ctx, model.Event{
			ID:       "e-flat",
			Criteria: []model.Criterion{{Key: "design", MaxScore: 5}},
		}), ShouldBeNil)
		So(e.catalog.SaveSubmission(ctx, model.Submission{ID: "s-flat", EventID: "e-flat", TeamID: "t-1"}), ShouldBeNil)
		_, err := e.ledger.CreateEventAssignment(ctx, model.EventAssignment{JudgeID: "j-1", EventID: "e-flat", Role: model.RolePrimary, Active: true, AssignedAt: now})
		So(err, ShouldBeNil)
		_, err = e.ledger.CreateSubmissionAssignments(ctx, []model.SubmissionAssignment{{
			JudgeID: "j-1", SubmissionID: "s-flat", EventID: "e-flat", Status: model.StatusAssigned, AssignedAt: now,
		}})
		So(err, ShouldBeNil)

		Convey("When criteria fall outside the event schema", func() {
			cases := []struct {
				name string
				in   model.ReviewInput
			}{
				{"criterion outside event schema", model.ReviewInput{Score: 50, Criteria: map[string]float64{"impact": 1}}},
				{"negative criterion", model.ReviewInput{Score: 50, Criteria: map[string]float64{"design": -1}}},
				{"criterion above max", model.ReviewInput{Score: 50, Criteria: map[string]float64{"design": 6}}},
			}
			for _, tc := range cases {
				_, err := e.mgr.SubmitReview(ctx, "j-1", "s-flat", tc.in)
				So(errors.Is(err, faults.ErrValidation), ShouldBeTrue)
			}
		})

		Convey("When the review carries no round", func() {
			row, err := e.mgr.SubmitReview(ctx, "j-1", "s-flat", model.ReviewInput{Score: 70, Criteria: map[string]float64{"design": 4}})

			Convey("Then it is accepted against the event schema", func() {
				So(err, ShouldBeNil)
				So(row.Status, ShouldEqual, model.StatusReviewed)
				So(row.RoundID, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a submission whose event is missing", t, func() {
		ctx := context.Background()
		catalog := repository.NewMemoryCatalog()
		So(catalog.SaveSubmission(ctx, model.Submission{ID: "s-x", EventID: "e-gone"}), ShouldBeNil)
		mgr := review.NewLockManager(repository.NewMemoryLedger(), catalog, catalog)

		Convey("Then the review is not found", func() {
			_, err := mgr.SubmitReview(ctx, "j-1", "s-x", model.ReviewInput{Score: 50})
			So(errors.Is(err, faults.ErrNotFound), ShouldBeTrue)
		})
	})
}
