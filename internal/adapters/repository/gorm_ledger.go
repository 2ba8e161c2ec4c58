package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// GormLedger is the SQL-backed assignment ledger.
type GormLedger struct {
	db   *gorm.DB
	opts options
}

// NewGormLedger wraps an open database handle.
func NewGormLedger(db *gorm.DB, opts ...Option) *GormLedger {
	return &GormLedger{db: db, opts: newOptions(opts)}
}

func (l *GormLedger) UpsertJudge(ctx context.Context, judge model.Judge) (model.Judge, error) {
	const op = "ledger.upsert_judge"
	defer observe(op, time.Now())

	row := judgeModelFromEntity(judge)
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expertise", "active", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return model.Judge{}, l.fail(ctx, op, err, logger.String("judge_id", judge.ID))
	}
	return l.GetJudge(ctx, judge.ID)
}

func (l *GormLedger) GetJudge(ctx context.Context, judgeID string) (model.Judge, error) {
	const op = "ledger.get_judge"
	defer observe(op, time.Now())

	var row judgeModel
	if err := l.db.WithContext(ctx).Where("id = ?", judgeID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return model.Judge{}, faults.NotFound(op, "judge", judgeID)
		}
		return model.Judge{}, l.fail(ctx, op, err, logger.String("judge_id", judgeID))
	}
	return row.toEntity(), nil
}

func (l *GormLedger) SetJudgeActive(ctx context.Context, judgeID string, active bool, at time.Time) (model.Judge, error) {
	const op = "ledger.set_judge_active"
	defer observe(op, time.Now())

	res := l.db.WithContext(ctx).Model(&judgeModel{}).
		Where("id = ?", judgeID).
		Updates(map[string]any{"active": active, "updated_at": at})
	if res.Error != nil {
		return model.Judge{}, l.fail(ctx, op, res.Error, logger.String("judge_id", judgeID))
	}
	if res.RowsAffected == 0 {
		return model.Judge{}, faults.NotFound(op, "judge", judgeID)
	}
	return l.GetJudge(ctx, judgeID)
}

func (l *GormLedger) CreateEventAssignment(ctx context.Context, a model.EventAssignment) (model.EventAssignment, error) {
	const op = "ledger.create_event_assignment"
	defer observe(op, time.Now())

	row := eventAssignmentModel{
		JudgeID:    a.JudgeID,
		EventID:    a.EventID,
		Role:       string(a.Role),
		Active:     a.Active,
		AssignedAt: a.AssignedAt,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.EventAssignment{}, faults.NewKind(op, faults.ErrConflict)
		}
		return model.EventAssignment{}, l.fail(ctx, op, err,
			logger.String("event_id", a.EventID), logger.String("judge_id", a.JudgeID))
	}
	return row.toEntity(), nil
}

func (l *GormLedger) GetEventAssignment(ctx context.Context, eventID, judgeID string) (model.EventAssignment, error) {
	const op = "ledger.get_event_assignment"
	defer observe(op, time.Now())

	var row eventAssignmentModel
	err := l.db.WithContext(ctx).
		Where("event_id = ? AND judge_id = ?", eventID, judgeID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return model.EventAssignment{}, faults.NotFound(op, "event assignment", eventID+"/"+judgeID)
		}
		return model.EventAssignment{}, l.fail(ctx, op, err,
			logger.String("event_id", eventID), logger.String("judge_id", judgeID))
	}
	return row.toEntity(), nil
}

func (l *GormLedger) ReactivateEventAssignment(ctx context.Context, eventID, judgeID string, role model.Role, at time.Time) (model.EventAssignment, error) {
	const op = "ledger.reactivate_event_assignment"
	defer observe(op, time.Now())

	res := l.db.WithContext(ctx).Model(&eventAssignmentModel{}).
		Where("event_id = ? AND judge_id = ? AND active = ?", eventID, judgeID, false).
		Updates(map[string]any{"active": true, "role": string(role), "assigned_at": at})
	if res.Error != nil {
		return model.EventAssignment{}, l.fail(ctx, op, res.Error,
			logger.String("event_id", eventID), logger.String("judge_id", judgeID))
	}
	if res.RowsAffected == 0 {
		if _, err := l.GetEventAssignment(ctx, eventID, judgeID); err != nil {
			return model.EventAssignment{}, err
		}
		return model.EventAssignment{}, faults.NewKind(op, faults.ErrConflict)
	}
	return l.GetEventAssignment(ctx, eventID, judgeID)
}

func (l *GormLedger) SetEventAssignmentActive(ctx context.Context, eventID, judgeID string, active bool) (model.EventAssignment, error) {
	const op = "ledger.set_event_assignment_active"
	defer observe(op, time.Now())

	res := l.db.WithContext(ctx).Model(&eventAssignmentModel{}).
		Where("event_id = ? AND judge_id = ?", eventID, judgeID).
		Update("active", active)
	if res.Error != nil {
		return model.EventAssignment{}, l.fail(ctx, op, res.Error,
			logger.String("event_id", eventID), logger.String("judge_id", judgeID))
	}
	if res.RowsAffected == 0 {
		return model.EventAssignment{}, faults.NotFound(op, "event assignment", eventID+"/"+judgeID)
	}
	return l.GetEventAssignment(ctx, eventID, judgeID)
}

func (l *GormLedger) ListEventAssignments(ctx context.Context, eventID string) ([]model.EventAssignment, error) {
	const op = "ledger.list_event_assignments"
	defer observe(op, time.Now())

	var rows []eventAssignmentModel
	err := l.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("judge_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, l.fail(ctx, op, err, logger.String("event_id", eventID))
	}
	out := make([]model.EventAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (l *GormLedger) CreateSubmissionAssignments(ctx context.Context, rows []model.SubmissionAssignment) (int, error) {
	const op = "ledger.create_submission_assignments"
	defer observe(op, time.Now())

	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]submissionAssignmentModel, 0, len(rows))
	for _, r := range rows {
		models = append(models, submissionAssignmentModelFromEntity(r))
	}

	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "judge_id"}, {Name: "submission_id"}},
		DoNothing: true,
	}).CreateInBatches(&models, l.opts.batchSize)
	if res.Error != nil {
		return 0, l.fail(ctx, op, res.Error,
			logger.String("event_id", rows[0].EventID), logger.Int("rows", len(rows)))
	}
	return int(res.RowsAffected), nil
}

func (l *GormLedger) ListSubmissionAssignments(ctx context.Context, filter model.AssignmentFilter) ([]model.SubmissionAssignment, error) {
	const op = "ledger.list_submission_assignments"
	defer observe(op, time.Now())

	q := l.db.WithContext(ctx).Model(&submissionAssignmentModel{})
	if filter.EventID != "" {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.JudgeID != "" {
		q = q.Where("judge_id = ?", filter.JudgeID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []submissionAssignmentModel
	if err := q.Order("submission_id ASC").Order("judge_id ASC").Find(&rows).Error; err != nil {
		return nil, l.fail(ctx, op, err,
			logger.String("event_id", filter.EventID), logger.String("judge_id", filter.JudgeID))
	}
	out := make([]model.SubmissionAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (l *GormLedger) GetSubmissionAssignment(ctx context.Context, judgeID, submissionID string) (model.SubmissionAssignment, error) {
	const op = "ledger.get_submission_assignment"
	defer observe(op, time.Now())

	var row submissionAssignmentModel
	err := l.db.WithContext(ctx).
		Where("judge_id = ? AND submission_id = ?", judgeID, submissionID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return model.SubmissionAssignment{}, faults.NotFound(op, "submission assignment", judgeID+"/"+submissionID)
		}
		return model.SubmissionAssignment{}, l.fail(ctx, op, err,
			logger.String("judge_id", judgeID), logger.String("submission_id", submissionID))
	}
	return row.toEntity(), nil
}

// MarkReviewed is a single conditional UPDATE; the status predicate makes
// exactly one concurrent caller observe a changed row.
func (l *GormLedger) MarkReviewed(ctx context.Context, judgeID, submissionID string, review model.ReviewInput, at time.Time) (model.SubmissionAssignment, error) {
	const op = "ledger.mark_reviewed"
	defer observe(op, time.Now())

	res := l.db.WithContext(ctx).Model(&submissionAssignmentModel{}).
		Where("judge_id = ? AND submission_id = ? AND status = ?", judgeID, submissionID, string(model.StatusAssigned)).
		Updates(map[string]any{
			"status":      string(model.StatusReviewed),
			"score":       review.Score,
			"feedback":    review.Feedback,
			"criteria":    encodeCriteria(review.Criteria),
			"round_id":    review.RoundID,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return model.SubmissionAssignment{}, l.fail(ctx, op, res.Error,
			logger.String("judge_id", judgeID), logger.String("submission_id", submissionID))
	}
	if res.RowsAffected == 0 {
		return model.SubmissionAssignment{}, faults.Wrap(op, faults.ErrNotAssignedOrAlreadyReviewed)
	}
	return l.GetSubmissionAssignment(ctx, judgeID, submissionID)
}

func (l *GormLedger) RecordFanOut(ctx context.Context, audit model.FanOutAudit) error {
	const op = "ledger.record_fanout"
	defer observe(op, time.Now())

	row := fanOutAuditModel{
		ID:          audit.ID,
		EventID:     audit.EventID,
		Trigger:     string(audit.Trigger),
		JudgeID:     audit.JudgeID,
		Judges:      audit.Judges,
		Submissions: audit.Submissions,
		Created:     audit.Created,
		At:          audit.At,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return l.fail(ctx, op, err, logger.String("event_id", audit.EventID))
	}
	return nil
}

func (l *GormLedger) ListFanOutAudits(ctx context.Context, eventID string) ([]model.FanOutAudit, error) {
	const op = "ledger.list_fanout_audits"
	defer observe(op, time.Now())

	var rows []fanOutAuditModel
	err := l.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, l.fail(ctx, op, err, logger.String("event_id", eventID))
	}
	out := make([]model.FanOutAudit, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

// fail logs a backend error and returns it as a dependency failure.
func (l *GormLedger) fail(ctx context.Context, op string, err error, fields ...logger.Field) error {
	return fail(ctx, l.opts.log, op, err, fields...)
}

func fail(ctx context.Context, log logger.Logger, op string, err error, fields ...logger.Field) error {
	fields = append(fields, logger.String("op", op), logger.Error(err))
	log.Error(ctx, "storage operation failed", fields...)
	metrics.RecordErrorByComponent("repository", "dependency")
	return faults.Dependency(op, err)
}

func observe(op string, start time.Time) {
	metrics.RecordLedgerLatency(op, metrics.SinceMs(start))
}

var _ ports.Ledger = (*GormLedger)(nil)
