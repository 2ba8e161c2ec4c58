package simulation

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/verdict/internal/domain/model"
)

const maxScore = 100

// plannedReview is one review the run will submit and later verify.
type plannedReview struct {
	JudgeID      string
	SubmissionID string
	RoundID      string
	Score        float64
}

type plan struct {
	event       model.Event
	submissions []model.Submission
	judges      []string
	reviews     []plannedReview
}

// randomScore returns a whole score in [0, 100] using crypto/rand.
func randomScore() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(maxScore+1))
	return float64(n.Int64())
}

// generatePlan builds one event where every judge reviews every submission.
// Judge j scores submission s in round (j+s) mod rounds, so every round
// receives reviews when there are at least as many judges as rounds.
func generatePlan(cfg *Config) plan {
	eventID := "sim-" + uuid.NewString()
	p := plan{event: model.Event{ID: eventID, Status: "judging"}}

	for r := 0; r < cfg.Rounds; r++ {
		p.event.Rounds = append(p.event.Rounds, model.Round{
			ID:     fmt.Sprintf("round-%d", r+1),
			Name:   fmt.Sprintf("Round %d", r+1),
			Weight: float64(r + 1),
		})
	}
	for s := 0; s < cfg.Submissions; s++ {
		p.submissions = append(p.submissions, model.Submission{
			ID:      uuid.NewString(),
			EventID: eventID,
			TeamID:  fmt.Sprintf("team-%04d", s),
			Title:   fmt.Sprintf("Project %d", s),
		})
	}
	for j := 0; j < cfg.Judges; j++ {
		p.judges = append(p.judges, "judge-"+uuid.NewString()[:8])
	}
	for j, judgeID := range p.judges {
		for s, sub := range p.submissions {
			p.reviews = append(p.reviews, plannedReview{
				JudgeID:      judgeID,
				SubmissionID: sub.ID,
				RoundID:      p.event.Rounds[(j+s)%cfg.Rounds].ID,
				Score:        randomScore(),
			})
		}
	}
	return p
}

// expectedScores computes the weighted leaderboard score of every submission
// straight from the plan.
func (p plan) expectedScores() map[string]float64 {
	weights := make(map[string]float64, len(p.event.Rounds))
	for _, r := range p.event.Rounds {
		weights[r.ID] = r.Weight
	}

	type acc struct{ sum, n float64 }
	perRound := make(map[string]map[string]*acc)
	for _, r := range p.reviews {
		if perRound[r.SubmissionID] == nil {
			perRound[r.SubmissionID] = make(map[string]*acc)
		}
		a := perRound[r.SubmissionID][r.RoundID]
		if a == nil {
			a = &acc{}
			perRound[r.SubmissionID][r.RoundID] = a
		}
		a.sum += r.Score
		a.n++
	}

	out := make(map[string]float64, len(perRound))
	for subID, rounds := range perRound {
		var num, den float64
		for roundID, a := range rounds {
			num += weights[roundID] * (a.sum / a.n)
			den += weights[roundID]
		}
		out[subID] = num / den
	}
	return out
}

// expectedMeans computes each submission's plain mean review score.
func (p plan) expectedMeans() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for _, r := range p.reviews {
		sums[r.SubmissionID] += r.Score
		counts[r.SubmissionID]++
	}
	out := make(map[string]float64, len(sums))
	for id, sum := range sums {
		out[id] = sum / counts[id]
	}
	return out
}
