package mirror_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/mirror"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var at = time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)

// flakyMirror fails AppendScore for one submission.
type flakyMirror struct {
	*repository.MemoryCatalog
	failFor string
}

func (f flakyMirror) AppendScore(ctx context.Context, submissionID string, entry model.ScoreEntry) error {
	if submissionID == f.failFor {
		return faults.Dependency("mirror.append", errors.New("timeout"))
	}
	return f.MemoryCatalog.AppendScore(ctx, submissionID, entry)
}

func reviewInLedger(ctx context.Context, ledger *repository.MemoryLedger, judgeID, submissionID, roundID string, score float64) {
	_, err := ledger.CreateSubmissionAssignments(ctx, []model.SubmissionAssignment{{
		JudgeID: judgeID, SubmissionID: submissionID, EventID: "e-1", Status: model.StatusAssigned, AssignedAt: at,
	}})
	So(err, ShouldBeNil)
	_, err = ledger.MarkReviewed(ctx, judgeID, submissionID, model.ReviewInput{Score: score, RoundID: roundID, Feedback: "ok"}, at)
	So(err, ShouldBeNil)
}

func TestReconcileMirror(t *testing.T) {
	Convey("Given a ledger with three reviews and a mirror missing one", t, func() {
		ctx := context.Background()
		ledger := repository.NewMemoryLedger()
		catalog := repository.NewMemoryCatalog()
		So(catalog.SaveEvent(ctx, model.Event{ID: "e-1", Rounds: []model.Round{{ID: "r-1", Weight: 1}}}), ShouldBeNil)
		So(catalog.SaveSubmission(ctx, model.Submission{ID: "s-1", EventID: "e-1", TeamID: "t-1"}), ShouldBeNil)
		So(catalog.SaveSubmission(ctx, model.Submission{ID: "s-2", EventID: "e-1", TeamID: "t-2"}), ShouldBeNil)

		reviewInLedger(ctx, ledger, "j-1", "s-1", "r-1", 80)
		reviewInLedger(ctx, ledger, "j-2", "s-1", "r-1", 70)
		reviewInLedger(ctx, ledger, "j-1", "s-2", "", 60)
		_, err := ledger.CreateSubmissionAssignments(ctx, []model.SubmissionAssignment{{
			JudgeID: "j-2", SubmissionID: "s-2", EventID: "e-1", Status: model.StatusAssigned, AssignedAt: at,
		}})
		So(err, ShouldBeNil)

		So(catalog.AppendScore(ctx, "s-1", model.ScoreEntry{JudgeID: "j-1", RoundID: "r-1", Score: 80, SubmittedAt: at}), ShouldBeNil)
		So(catalog.AppendScore(ctx, "s-2", model.ScoreEntry{JudgeID: "j-1", Score: 60, SubmittedAt: at}), ShouldBeNil)

		rec := mirror.NewReconciler(ledger, catalog, catalog)

		Convey("When reconciling", func() {
			report, err := rec.ReconcileMirror(ctx, "e-1")

			Convey("Then the lost entry is restored", func() {
				So(err, ShouldBeNil)
				So(report, ShouldResemble, mirror.Report{EventID: "e-1", Reviewed: 3, Missing: 1, Appended: 1})

				sub, err := catalog.GetByID(ctx, "s-1")
				So(err, ShouldBeNil)
				So(len(sub.Scores), ShouldEqual, 2)
				So(sub.Scores[1].JudgeID, ShouldEqual, "j-2")
				So(sub.Scores[1].Score, ShouldEqual, 70)
				So(sub.Scores[1].Feedback, ShouldEqual, "ok")
				So(sub.Scores[1].SubmittedAt, ShouldEqual, at)
			})

			Convey("And a second run appends nothing", func() {
				again, err := rec.ReconcileMirror(ctx, "e-1")
				So(err, ShouldBeNil)
				So(again.Missing, ShouldEqual, 0)
				So(again.Appended, ShouldEqual, 0)

				sub, _ := catalog.GetByID(ctx, "s-1")
				So(len(sub.Scores), ShouldEqual, 2)
			})
		})

		Convey("When the mirror write fails", func() {
			report, err := mirror.NewReconciler(ledger, catalog, flakyMirror{catalog, "s-1"}).ReconcileMirror(ctx, "e-1")

			Convey("Then the failure is counted and a later run repairs it", func() {
				So(err, ShouldBeNil)
				So(report.Missing, ShouldEqual, 1)
				So(report.Failed, ShouldEqual, 1)
				So(report.Appended, ShouldEqual, 0)

				fixed, err := rec.ReconcileMirror(ctx, "e-1")
				So(err, ShouldBeNil)
				So(fixed.Appended, ShouldEqual, 1)
			})
		})

		Convey("When the event is unknown", func() {
			_, err := rec.ReconcileMirror(ctx, "e-404")
			So(errors.Is(err, faults.ErrNotFound), ShouldBeTrue)
		})
	})
}
