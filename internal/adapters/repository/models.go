package repository

import (
	"encoding/json"
	"time"

	"github.com/okian/verdict/internal/domain/model"
)

type judgeModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Expertise string    `gorm:"column:expertise;type:text"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (judgeModel) TableName() string {
	return "judges"
}

func judgeModelFromEntity(j model.Judge) judgeModel {
	return judgeModel{
		ID:        j.ID,
		Expertise: encodeJSON(j.Expertise),
		Active:    j.Active,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func (m judgeModel) toEntity() model.Judge {
	var expertise []string
	decodeJSON(m.Expertise, &expertise)
	return model.Judge{
		ID:        m.ID,
		Expertise: expertise,
		Active:    m.Active,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// The composite primary key is the (judge_id, event_id) uniqueness rule.
type eventAssignmentModel struct {
	JudgeID    string    `gorm:"column:judge_id;primaryKey"`
	EventID    string    `gorm:"column:event_id;primaryKey;index:idx_event_assignments_event"`
	Role       string    `gorm:"column:role;not null"`
	Active     bool      `gorm:"column:active;not null"`
	AssignedAt time.Time `gorm:"column:assigned_at"`
}

func (eventAssignmentModel) TableName() string {
	return "event_assignments"
}

func (m eventAssignmentModel) toEntity() model.EventAssignment {
	return model.EventAssignment{
		JudgeID:    m.JudgeID,
		EventID:    m.EventID,
		Role:       model.Role(m.Role),
		Active:     m.Active,
		AssignedAt: m.AssignedAt.UTC(),
	}
}

// The composite primary key is the (judge_id, submission_id) uniqueness rule
// that resolves fan-out races.
type submissionAssignmentModel struct {
	JudgeID      string     `gorm:"column:judge_id;primaryKey;index:idx_submission_assignments_judge_event,priority:1"`
	SubmissionID string     `gorm:"column:submission_id;primaryKey"`
	EventID      string     `gorm:"column:event_id;not null;index:idx_submission_assignments_event_status,priority:1;index:idx_submission_assignments_judge_event,priority:2"`
	Status       string     `gorm:"column:status;not null;index:idx_submission_assignments_event_status,priority:2"`
	Score        *float64   `gorm:"column:score"`
	Feedback     string     `gorm:"column:feedback;type:text"`
	Criteria     string     `gorm:"column:criteria;type:text"`
	RoundID      string     `gorm:"column:round_id"`
	AssignedAt   time.Time  `gorm:"column:assigned_at"`
	ReviewedAt   *time.Time `gorm:"column:reviewed_at"`
}

func (submissionAssignmentModel) TableName() string {
	return "submission_assignments"
}

func submissionAssignmentModelFromEntity(a model.SubmissionAssignment) submissionAssignmentModel {
	return submissionAssignmentModel{
		JudgeID:      a.JudgeID,
		SubmissionID: a.SubmissionID,
		EventID:      a.EventID,
		Status:       string(a.Status),
		Score:        a.Score,
		Feedback:     a.Feedback,
		Criteria:     encodeCriteria(a.Criteria),
		RoundID:      a.RoundID,
		AssignedAt:   a.AssignedAt,
		ReviewedAt:   a.ReviewedAt,
	}
}

func (m submissionAssignmentModel) toEntity() model.SubmissionAssignment {
	out := model.SubmissionAssignment{
		JudgeID:      m.JudgeID,
		SubmissionID: m.SubmissionID,
		EventID:      m.EventID,
		Status:       model.Status(m.Status),
		Score:        m.Score,
		Feedback:     m.Feedback,
		Criteria:     decodeCriteria(m.Criteria),
		RoundID:      m.RoundID,
		AssignedAt:   m.AssignedAt.UTC(),
	}
	if m.ReviewedAt != nil {
		at := m.ReviewedAt.UTC()
		out.ReviewedAt = &at
	}
	return out
}

type fanOutAuditModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	EventID     string    `gorm:"column:event_id;not null;index"`
	Trigger     string    `gorm:"column:trigger_kind;not null"`
	JudgeID     string    `gorm:"column:judge_id"`
	Judges      int       `gorm:"column:judges"`
	Submissions int       `gorm:"column:submissions"`
	Created     int       `gorm:"column:created"`
	At          time.Time `gorm:"column:at"`
}

func (fanOutAuditModel) TableName() string {
	return "fanout_audits"
}

func (m fanOutAuditModel) toEntity() model.FanOutAudit {
	return model.FanOutAudit{
		ID:          m.ID,
		EventID:     m.EventID,
		Trigger:     model.FanOutTrigger(m.Trigger),
		JudgeID:     m.JudgeID,
		Judges:      m.Judges,
		Submissions: m.Submissions,
		Created:     m.Created,
		At:          m.At.UTC(),
	}
}

type eventModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	Status   string `gorm:"column:status"`
	Criteria string `gorm:"column:criteria;type:text"`
}

func (eventModel) TableName() string {
	return "events"
}

type roundModel struct {
	EventID  string  `gorm:"column:event_id;primaryKey"`
	ID       string  `gorm:"column:id;primaryKey"`
	Position int     `gorm:"column:position"`
	Name     string  `gorm:"column:name"`
	Weight   float64 `gorm:"column:weight"`
	Criteria string  `gorm:"column:criteria;type:text"`
}

func (roundModel) TableName() string {
	return "rounds"
}

func (m roundModel) toEntity() model.Round {
	var criteria []model.Criterion
	decodeJSON(m.Criteria, &criteria)
	return model.Round{ID: m.ID, Name: m.Name, Weight: m.Weight, Criteria: criteria}
}

type submissionModel struct {
	ID      string `gorm:"column:id;primaryKey"`
	EventID string `gorm:"column:event_id;not null;index"`
	TeamID  string `gorm:"column:team_id"`
	Title   string `gorm:"column:title"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

type scoreEntryModel struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SubmissionID string    `gorm:"column:submission_id;not null;index"`
	JudgeID      string    `gorm:"column:judge_id;not null"`
	RoundID      string    `gorm:"column:round_id"`
	Score        float64   `gorm:"column:score"`
	Feedback     string    `gorm:"column:feedback;type:text"`
	Criteria     string    `gorm:"column:criteria;type:text"`
	SubmittedAt  time.Time `gorm:"column:submitted_at"`
}

func (scoreEntryModel) TableName() string {
	return "score_entries"
}

func (m scoreEntryModel) toEntity() model.ScoreEntry {
	return model.ScoreEntry{
		JudgeID:     m.JudgeID,
		RoundID:     m.RoundID,
		Score:       m.Score,
		Feedback:    m.Feedback,
		Criteria:    decodeCriteria(m.Criteria),
		SubmittedAt: m.SubmittedAt.UTC(),
	}
}

// Models lists every table owned by the gorm stores, in migration order.
func Models() []any {
	return []any{
		&judgeModel{},
		&eventAssignmentModel{},
		&submissionAssignmentModel{},
		&fanOutAuditModel{},
		&eventModel{},
		&roundModel{},
		&submissionModel{},
		&scoreEntryModel{},
	}
}

func encodeCriteria(c map[string]float64) string {
	if len(c) == 0 {
		return ""
	}
	return encodeJSON(c)
}

func decodeCriteria(raw string) map[string]float64 {
	if raw == "" {
		return nil
	}
	var out map[string]float64
	decodeJSON(raw, &out)
	return out
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Malformed stored JSON decodes to the zero value.
func decodeJSON(raw string, v any) {
	if raw == "" || raw == "null" {
		return
	}
	_ = json.Unmarshal([]byte(raw), v)
}
