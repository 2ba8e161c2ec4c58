package model

import "time"

// Status is the review state of a submission assignment.
// The only transition is assigned -> reviewed.
type Status string

// Statuses.
const (
	StatusAssigned Status = "assigned"
	StatusReviewed Status = "reviewed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusAssigned || s == StatusReviewed
}

// SubmissionAssignment is the ledger row for one (judge, submission) pair.
type SubmissionAssignment struct {
	JudgeID      string             `json:"judge_id"`
	SubmissionID string             `json:"submission_id"`
	EventID      string             `json:"event_id"`
	Status       Status             `json:"status"`
	Score        *float64           `json:"score,omitempty"`
	Feedback     string             `json:"feedback,omitempty"`
	Criteria     map[string]float64 `json:"criteria,omitempty"`
	RoundID      string             `json:"round_id,omitempty"`
	AssignedAt   time.Time          `json:"assigned_at"`
	ReviewedAt   *time.Time         `json:"reviewed_at,omitempty"`
}

// Reviewed reports whether the row has taken its terminal transition.
func (a SubmissionAssignment) Reviewed() bool {
	return a.Status == StatusReviewed
}

// ReviewInput is the payload of a review submission.
type ReviewInput struct {
	Score    float64            `json:"score"`
	Feedback string             `json:"feedback"`
	Criteria map[string]float64 `json:"criteria,omitempty"`
	RoundID  string             `json:"round_id,omitempty"`
}

// AssignmentFilter selects ledger rows. Empty fields match everything.
type AssignmentFilter struct {
	EventID string
	JudgeID string
	Status  Status
}

// FanOutTrigger names what caused a fan-out.
type FanOutTrigger string

// Fan-out triggers.
const (
	TriggerFanOut FanOutTrigger = "fanout"
	TriggerLazy   FanOutTrigger = "lazy"
)

// FanOutAudit records the outcome of one fan-out.
type FanOutAudit struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event_id"`
	Trigger     FanOutTrigger `json:"trigger"`
	JudgeID     string        `json:"judge_id,omitempty"`
	Judges      int           `json:"judges"`
	Submissions int           `json:"submissions"`
	Created     int           `json:"created"`
	At          time.Time     `json:"at"`
}

// QueueItem is one entry of a judge's review queue.
type QueueItem struct {
	Submission Submission           `json:"submission"`
	Assignment SubmissionAssignment `json:"assignment"`
}
