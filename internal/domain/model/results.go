package model

import "time"

// Score sources.
const (
	SourceLedger = "ledger"
	SourceMirror = "mirror"
)

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	TeamID       string  `json:"team_id"`
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
}

// Leaderboard is a ranked snapshot together with the store it was computed from.
type Leaderboard struct {
	EventID string             `json:"event_id"`
	Source  string             `json:"source"`
	Entries []LeaderboardEntry `json:"entries"`
}

// Review is one judge's review as reported in results.
type Review struct {
	JudgeID    string             `json:"judge_id"`
	Score      float64            `json:"score"`
	Feedback   string             `json:"feedback,omitempty"`
	Criteria   map[string]float64 `json:"criteria,omitempty"`
	RoundID    string             `json:"round_id,omitempty"`
	ReviewedAt time.Time          `json:"reviewed_at"`
}

// SubmissionResult is the authoritative per-submission aggregate.
type SubmissionResult struct {
	Rank         int      `json:"rank"`
	SubmissionID string   `json:"submission_id"`
	TeamID       string   `json:"team_id,omitempty"`
	AverageScore float64  `json:"average_score"`
	ReviewCount  int      `json:"review_count"`
	Reviews      []Review `json:"reviews"`
}

// EventResults is the ranked result list of an event.
type EventResults struct {
	EventID string             `json:"event_id"`
	Source  string             `json:"source"`
	Results []SubmissionResult `json:"results"`
}
