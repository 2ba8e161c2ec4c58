// Package scoring aggregates judge reviews into results and leaderboards.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/verdict/internal/domain/model"
)

// roundingNudge absorbs binary representation error before rounding to
// cents. Scores stay within [0,100], so v*100 never exceeds 1e4 and the
// nudge is far above float64 spacing there and far below one cent.
const roundingNudge = 1e-9

// Round2 rounds v to two decimals, halves away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100+math.Copysign(roundingNudge, v)) / 100
}

// Mean returns the arithmetic mean of values at full precision.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SubmissionScore computes a submission's unrounded leaderboard score.
//
// Entries scoped to a defined round contribute to that round's mean and
// rounds are combined as Σ(weight·mean)/Σ(weight) over rounds with at least
// one entry. Without round-scoped entries, or when the scored rounds carry
// no weight, the score is the plain mean of every entry.
// ok is false when there are no entries.
func SubmissionScore(entries []model.ScoreEntry, rounds []model.Round) (score float64, ok bool) {
	if len(entries) == 0 {
		return 0, false
	}

	weights := make(map[string]float64, len(rounds))
	for _, r := range rounds {
		weights[r.ID] = r.Weight
	}

	perRound := make(map[string][]float64)
	all := make([]float64, 0, len(entries))
	for _, e := range entries {
		all = append(all, e.Score)
		if _, defined := weights[e.RoundID]; defined && e.RoundID != "" {
			perRound[e.RoundID] = append(perRound[e.RoundID], e.Score)
		}
	}

	if len(perRound) > 0 {
		var num, den float64
		// Iterate in round order so the float sums are reproducible.
		for _, r := range rounds {
			scores, scored := perRound[r.ID]
			if !scored {
				continue
			}
			num += r.Weight * Mean(scores)
			den += r.Weight
		}
		if den != 0 {
			return num / den, true
		}
	}
	return Mean(all), true
}

// RankLeaderboard orders entries by score desc, then team asc, then
// submission asc, and assigns 1-based positions.
func RankLeaderboard(entries []model.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		return a.SubmissionID < b.SubmissionID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// RankResults orders results by average desc, then submission asc, and
// assigns 1-based positions.
func RankResults(results []model.SubmissionResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		return a.SubmissionID < b.SubmissionID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
