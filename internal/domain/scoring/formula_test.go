package scoring_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
)

func TestRound2(t *testing.T) {
	Convey("Round2 rounds halves away from zero", t, func() {
		So(scoring.Round2(65), ShouldEqual, 65.00)
		So(scoring.Round2(2.675), ShouldEqual, 2.68)
		So(scoring.Round2(1.005), ShouldEqual, 1.01)
		So(scoring.Round2(70.125), ShouldEqual, 70.13)
		So(scoring.Round2(70.124), ShouldEqual, 70.12)
		So(scoring.Round2(-2.675), ShouldEqual, -2.68)
		So(scoring.Round2(100.0/3.0), ShouldEqual, 33.33)
		So(scoring.Round2(200.0/3.0), ShouldEqual, 66.67)
		So(scoring.Round2(0), ShouldEqual, 0)
	})
}

func TestSubmissionScore(t *testing.T) {
	rounds := []model.Round{
		{ID: "A", Weight: 1},
		{ID: "B", Weight: 3},
	}

	Convey("Given rounds A (weight 1) and B (weight 3)", t, func() {
		Convey("When both rounds are scored", func() {
			score, ok := scoring.SubmissionScore([]model.ScoreEntry{
				{JudgeID: "j-1", RoundID: "A", Score: 80},
				{JudgeID: "j-1", RoundID: "B", Score: 60},
			}, rounds)

			Convey("Then the weighted mean is 65.00", func() {
				So(ok, ShouldBeTrue)
				So(scoring.Round2(score), ShouldEqual, 65.00)
			})
		})

		Convey("When only round B is scored", func() {
			score, ok := scoring.SubmissionScore([]model.ScoreEntry{
				{JudgeID: "j-1", RoundID: "B", Score: 90},
			}, rounds)

			Convey("Then the unscored round does not drag the score", func() {
				So(ok, ShouldBeTrue)
				So(scoring.Round2(score), ShouldEqual, 90.00)
			})
		})

		Convey("When a round has several judges", func() {
			score, _ := scoring.SubmissionScore([]model.ScoreEntry{
				{JudgeID: "j-1", RoundID: "A", Score: 70},
				{JudgeID: "j-2", RoundID: "A", Score: 90},
				{JudgeID: "j-1", RoundID: "B", Score: 50},
				{JudgeID: "j-2", RoundID: "B", Score: 61},
			}, rounds)

			Convey("Then round means are combined unrounded", func() {
				// (1*80 + 3*55.5) / 4 = 61.625
				So(score, ShouldAlmostEqual, 61.625, 1e-9)
				So(scoring.Round2(score), ShouldEqual, 61.63)
			})
		})

		Convey("When no entry names a defined round", func() {
			score, ok := scoring.SubmissionScore([]model.ScoreEntry{
				{JudgeID: "j-1", Score: 70},
				{JudgeID: "j-2", RoundID: "Z", Score: 81},
			}, rounds)

			Convey("Then the plain mean is used", func() {
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 75.5)
			})
		})

		Convey("When scored rounds carry no weight", func() {
			score, ok := scoring.SubmissionScore([]model.ScoreEntry{
				{JudgeID: "j-1", RoundID: "Z0", Score: 40},
				{JudgeID: "j-2", RoundID: "Z0", Score: 60},
			}, []model.Round{{ID: "Z0", Weight: 0}})

			Convey("Then it falls back to the plain mean", func() {
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 50)
			})
		})

		Convey("When there are no entries", func() {
			_, ok := scoring.SubmissionScore(nil, rounds)

			Convey("Then the submission has no score", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestRanking(t *testing.T) {
	Convey("Leaderboard ties break by team then submission", t, func() {
		board := []model.LeaderboardEntry{
			{TeamID: "t-b", SubmissionID: "s-3", Score: 80},
			{TeamID: "t-a", SubmissionID: "s-2", Score: 80},
			{TeamID: "t-a", SubmissionID: "s-1", Score: 80},
			{TeamID: "t-z", SubmissionID: "s-9", Score: 95},
		}
		scoring.RankLeaderboard(board)

		So(board[0].SubmissionID, ShouldEqual, "s-9")
		So(board[1].SubmissionID, ShouldEqual, "s-1")
		So(board[2].SubmissionID, ShouldEqual, "s-2")
		So(board[3].SubmissionID, ShouldEqual, "s-3")
		for i, e := range board {
			So(e.Rank, ShouldEqual, i+1)
		}
	})

	Convey("Result ties break by submission", t, func() {
		results := []model.SubmissionResult{
			{SubmissionID: "s-2", AverageScore: 70},
			{SubmissionID: "s-1", AverageScore: 70},
			{SubmissionID: "s-3", AverageScore: 71},
		}
		scoring.RankResults(results)

		So(results[0].SubmissionID, ShouldEqual, "s-3")
		So(results[1].SubmissionID, ShouldEqual, "s-1")
		So(results[2].Rank, ShouldEqual, 3)
	})
}
