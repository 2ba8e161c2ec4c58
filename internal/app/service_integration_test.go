package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func seed(ctx context.Context, svc *service.Service, judges, submissions int) {
	So(svc.SaveEvent(ctx, model.Event{
		ID:     "hack-1",
		Status: "judging",
		Rounds: []model.Round{{ID: "A", Name: "Demo", Weight: 1}, {ID: "B", Name: "Final", Weight: 3}},
	}), ShouldBeNil)
	for i := 0; i < submissions; i++ {
		So(svc.SaveSubmission(ctx, model.Submission{
			ID: fmt.Sprintf("sub-%d", i), EventID: "hack-1", TeamID: fmt.Sprintf("team-%d", i), Title: "project",
		}), ShouldBeNil)
	}
	for i := 0; i < judges; i++ {
		id := fmt.Sprintf("judge-%d", i)
		_, err := svc.RegisterJudge(ctx, id, []string{"web"})
		So(err, ShouldBeNil)
		_, err = svc.AssignJudgeToEvent(ctx, "hack-1", id, model.RolePrimary)
		So(err, ShouldBeNil)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with an event, 2 judges and 3 submissions", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sink := &captureSink{}
		svc := service.New(
			service.WithSink(sink),
			service.WithWorkerCount(2),
			service.WithClock(fixedClock{time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		seed(ctx, svc, 2, 3)

		Convey("When a judge opens the queue before any fan-out", func() {
			items, err := svc.GetAssignedSubmissions(ctx, "judge-0", "hack-1", "")

			Convey("Then the judge's rows are created lazily", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 3)
				So(items[0].Assignment.Status, ShouldEqual, model.StatusAssigned)
			})

			Convey("And a later fan-out only fills the other judge", func() {
				created, err := svc.FanOutAssignments(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(created, ShouldEqual, 3)
			})
		})

		Convey("When a judge filters on reviewed before having any rows", func() {
			items, err := svc.GetAssignedSubmissions(ctx, "judge-1", "hack-1", model.StatusReviewed)

			Convey("Then rows are still ensured but none match the filter", func() {
				So(err, ShouldBeNil)
				So(items, ShouldBeEmpty)
				pending, err := svc.GetAssignedSubmissions(ctx, "judge-1", "hack-1", model.StatusAssigned)
				So(err, ShouldBeNil)
				So(len(pending), ShouldEqual, 3)
			})
		})

		Convey("When the full judging flow runs", func() {
			created, err := svc.FanOutAssignments(ctx, "hack-1")
			So(err, ShouldBeNil)
			So(created, ShouldEqual, 6)

			_, err = svc.SubmitReview(ctx, "judge-0", "sub-0", model.ReviewInput{Score: 80, RoundID: "A"})
			So(err, ShouldBeNil)
			_, err = svc.SubmitReview(ctx, "judge-1", "sub-0", model.ReviewInput{Score: 60, RoundID: "B"})
			So(err, ShouldBeNil)
			_, err = svc.SubmitReview(ctx, "judge-0", "sub-1", model.ReviewInput{Score: 90, RoundID: "B"})
			So(err, ShouldBeNil)

			Convey("Then the leaderboard applies round weights", func() {
				board, err := svc.GetLeaderboard(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(board.Source, ShouldEqual, model.SourceMirror)
				So(len(board.Entries), ShouldEqual, 2)
				So(board.Entries[0].SubmissionID, ShouldEqual, "sub-1")
				So(board.Entries[0].Score, ShouldEqual, 90)
				So(board.Entries[1].Score, ShouldEqual, 65)
			})

			Convey("Then results are plain means from the ledger", func() {
				res, err := svc.GetEventResults(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(res.Source, ShouldEqual, model.SourceLedger)
				So(res.Results[0].SubmissionID, ShouldEqual, "sub-1")
				So(res.Results[1].AverageScore, ShouldEqual, 70)
				So(res.Results[1].ReviewCount, ShouldEqual, 2)
			})

			Convey("Then a second review of the same pair conflicts", func() {
				_, err := svc.SubmitReview(ctx, "judge-0", "sub-0", model.ReviewInput{Score: 1, RoundID: "A"})
				So(errors.Is(err, faults.ErrNotAssignedOrAlreadyReviewed), ShouldBeTrue)
			})

			Convey("Then the mirror is already consistent", func() {
				report, err := svc.ReconcileMirror(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(report.Reviewed, ShouldEqual, 3)
				So(report.Missing, ShouldEqual, 0)
			})

			Convey("Then reminders go to judges with pending work once", func() {
				first, err := svc.RemindPendingReviews(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(first.Sent, ShouldEqual, 2)
				second, err := svc.RemindPendingReviews(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(second.Suppressed, ShouldEqual, 2)
			})

			Convey("Then notifications reach the sink after stop", func() {
				svc.Stop()
				topics := sink.topics()
				So(topics, ShouldContain, model.TopicAssignmentsFannedOut)
				So(topics, ShouldContain, model.TopicReviewSubmitted)
				So(topics, ShouldContain, model.TopicLeaderboardInvalidated)
			})
		})

		Convey("When a review without a round arrives for an event with rounds", func() {
			_, err := svc.FanOutAssignments(ctx, "hack-1")
			So(err, ShouldBeNil)
			_, err = svc.SubmitReview(ctx, "judge-0", "sub-0", model.ReviewInput{Score: 80, RoundID: "A"})
			So(err, ShouldBeNil)
			_, err = svc.SubmitReview(ctx, "judge-1", "sub-0", model.ReviewInput{Score: 20})

			Convey("Then it is rejected and results agree with the leaderboard", func() {
				So(errors.Is(err, faults.ErrValidation), ShouldBeTrue)

				pending, err := svc.GetAssignedSubmissions(ctx, "judge-1", "hack-1", model.StatusAssigned)
				So(err, ShouldBeNil)
				So(len(pending), ShouldEqual, 3)

				res, err := svc.GetEventResults(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(len(res.Results), ShouldEqual, 1)
				So(res.Results[0].AverageScore, ShouldEqual, 80)
				So(res.Results[0].ReviewCount, ShouldEqual, 1)

				board, err := svc.GetLeaderboard(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(len(board.Entries), ShouldEqual, 1)
				So(board.Entries[0].Score, ShouldEqual, 80)
			})
		})

		Convey("When a judge is removed from the event", func() {
			_, err := svc.DeactivateJudgeAssignment(ctx, "hack-1", "judge-1")
			So(err, ShouldBeNil)
			judges, err := svc.ListEventJudges(ctx, "hack-1")
			So(err, ShouldBeNil)

			Convey("Then their queue is forbidden", func() {
				So(len(judges), ShouldEqual, 2)
				So(judges[1].Active, ShouldBeFalse)
				_, err := svc.GetAssignedSubmissions(ctx, "judge-1", "hack-1", "")
				So(errors.Is(err, faults.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When a judge is deactivated entirely", func() {
			_, err := svc.DeactivateJudge(ctx, "judge-0")
			So(err, ShouldBeNil)

			Convey("Then fan-out skips them", func() {
				created, err := svc.FanOutAssignments(ctx, "hack-1")
				So(err, ShouldBeNil)
				So(created, ShouldEqual, 3)
			})
		})
	})
}
