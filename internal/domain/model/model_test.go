package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRoleAndStatus(t *testing.T) {
	Convey("Roles and statuses validate against their enumerations", t, func() {
		So(RolePrimary.Valid(), ShouldBeTrue)
		So(RoleSecondary.Valid(), ShouldBeTrue)
		So(RoleMentor.Valid(), ShouldBeTrue)
		So(Role("captain").Valid(), ShouldBeFalse)
		So(Role("").Valid(), ShouldBeFalse)

		So(StatusAssigned.Valid(), ShouldBeTrue)
		So(StatusReviewed.Valid(), ShouldBeTrue)
		So(Status("pending").Valid(), ShouldBeFalse)
		So(SubmissionAssignment{Status: StatusReviewed}.Reviewed(), ShouldBeTrue)
		So(SubmissionAssignment{Status: StatusAssigned}.Reviewed(), ShouldBeFalse)
	})
}

func TestEventSchema(t *testing.T) {
	Convey("Given an event with an event-level rubric and two rounds", t, func() {
		ev := Event{
			ID:       "e-1",
			Criteria: []Criterion{{Key: "impact", MaxScore: 10}},
			Rounds: []Round{
				{ID: "r-a", Weight: 1, Criteria: []Criterion{{Key: "design", MaxScore: 5}}},
				{ID: "r-b", Weight: 3},
			},
		}

		Convey("Round lookup finds defined rounds only", func() {
			r, ok := ev.Round("r-b")
			So(ok, ShouldBeTrue)
			So(r.Weight, ShouldEqual, 3)
			_, ok = ev.Round("r-z")
			So(ok, ShouldBeFalse)
		})

		Convey("Schema picks the round rubric, or the event rubric without a round", func() {
			So(ev.Schema(""), ShouldResemble, []Criterion{{Key: "impact", MaxScore: 10}})
			So(ev.Schema("r-a"), ShouldResemble, []Criterion{{Key: "design", MaxScore: 5}})
			So(ev.Schema("r-b"), ShouldBeEmpty)
		})
	})
}

func TestSubmissionHasEntry(t *testing.T) {
	Convey("HasEntry matches on judge and round together", t, func() {
		s := Submission{Scores: []ScoreEntry{{JudgeID: "j-1", RoundID: "r-a"}, {JudgeID: "j-2"}}}
		So(s.HasEntry("j-1", "r-a"), ShouldBeTrue)
		So(s.HasEntry("j-1", ""), ShouldBeFalse)
		So(s.HasEntry("j-2", ""), ShouldBeTrue)
		So(s.HasEntry("j-3", "r-a"), ShouldBeFalse)
	})
}
