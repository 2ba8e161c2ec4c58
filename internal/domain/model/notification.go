package model

import "time"

// Notification topics.
const (
	TopicReviewSubmitted        = "review.submitted"
	TopicLeaderboardInvalidated = "leaderboard.invalidated"
	TopicAssignmentsFannedOut   = "assignments.fanned_out"
	TopicReviewReminder         = "review.reminder"
)

// Notification is an outbound fire-and-forget message.
type Notification struct {
	ID      string         `json:"id"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}
