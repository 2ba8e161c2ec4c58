package model

import "time"

// ScoreEntry is one mirrored review score on a submission. Entries are append-only.
type ScoreEntry struct {
	JudgeID     string             `json:"judge_id"`
	RoundID     string             `json:"round_id,omitempty"`
	Score       float64            `json:"score"`
	Feedback    string             `json:"feedback,omitempty"`
	Criteria    map[string]float64 `json:"criteria,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Submission is the externally owned team submission.
type Submission struct {
	ID      string       `json:"id"`
	EventID string       `json:"event_id"`
	TeamID  string       `json:"team_id"`
	Title   string       `json:"title"`
	Scores  []ScoreEntry `json:"scores,omitempty"`
}

// HasEntry reports whether the mirror already holds a score from judgeID for roundID.
func (s Submission) HasEntry(judgeID, roundID string) bool {
	for _, e := range s.Scores {
		if e.JudgeID == judgeID && e.RoundID == roundID {
			return true
		}
	}
	return false
}
