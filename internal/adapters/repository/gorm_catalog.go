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
)

// GormCatalog stores events, submissions and the mirrored score entries.
type GormCatalog struct {
	db   *gorm.DB
	opts options
}

// NewGormCatalog wraps an open database handle.
func NewGormCatalog(db *gorm.DB, opts ...Option) *GormCatalog {
	return &GormCatalog{db: db, opts: newOptions(opts)}
}

func (c *GormCatalog) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	const op = "catalog.get_event"
	defer observe(op, time.Now())

	var ev eventModel
	if err := c.db.WithContext(ctx).Where("id = ?", eventID).First(&ev).Error; err != nil {
		if isNotFound(err) {
			return model.Event{}, faults.NotFound(op, "event", eventID)
		}
		return model.Event{}, c.fail(ctx, op, err, logger.String("event_id", eventID))
	}

	var rounds []roundModel
	err := c.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("position ASC").
		Find(&rounds).Error
	if err != nil {
		return model.Event{}, c.fail(ctx, op, err, logger.String("event_id", eventID))
	}

	out := model.Event{ID: ev.ID, Status: ev.Status}
	decodeJSON(ev.Criteria, &out.Criteria)
	for _, r := range rounds {
		out.Rounds = append(out.Rounds, r.toEntity())
	}
	return out, nil
}

func (c *GormCatalog) ListByEvent(ctx context.Context, eventID string) ([]model.Submission, error) {
	const op = "catalog.list_by_event"
	defer observe(op, time.Now())

	var subs []submissionModel
	err := c.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, c.fail(ctx, op, err, logger.String("event_id", eventID))
	}
	if len(subs) == 0 {
		return []model.Submission{}, nil
	}

	var entries []scoreEntryModel
	err = c.db.WithContext(ctx).
		Model(&scoreEntryModel{}).
		Select("score_entries.*").
		Joins("JOIN submissions ON submissions.id = score_entries.submission_id").
		Where("submissions.event_id = ?", eventID).
		Order("score_entries.id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, c.fail(ctx, op, err, logger.String("event_id", eventID))
	}

	bySubmission := make(map[string][]model.ScoreEntry, len(subs))
	for _, e := range entries {
		bySubmission[e.SubmissionID] = append(bySubmission[e.SubmissionID], e.toEntity())
	}

	out := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		out = append(out, model.Submission{
			ID:      s.ID,
			EventID: s.EventID,
			TeamID:  s.TeamID,
			Title:   s.Title,
			Scores:  bySubmission[s.ID],
		})
	}
	return out, nil
}

func (c *GormCatalog) GetByID(ctx context.Context, submissionID string) (model.Submission, error) {
	const op = "catalog.get_submission"
	defer observe(op, time.Now())

	var s submissionModel
	if err := c.db.WithContext(ctx).Where("id = ?", submissionID).First(&s).Error; err != nil {
		if isNotFound(err) {
			return model.Submission{}, faults.NotFound(op, "submission", submissionID)
		}
		return model.Submission{}, c.fail(ctx, op, err, logger.String("submission_id", submissionID))
	}

	var entries []scoreEntryModel
	err := c.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return model.Submission{}, c.fail(ctx, op, err, logger.String("submission_id", submissionID))
	}

	out := model.Submission{ID: s.ID, EventID: s.EventID, TeamID: s.TeamID, Title: s.Title}
	for _, e := range entries {
		out.Scores = append(out.Scores, e.toEntity())
	}
	return out, nil
}

func (c *GormCatalog) AppendScore(ctx context.Context, submissionID string, entry model.ScoreEntry) error {
	const op = "catalog.append_score"
	defer observe(op, time.Now())

	var n int64
	if err := c.db.WithContext(ctx).Model(&submissionModel{}).Where("id = ?", submissionID).Count(&n).Error; err != nil {
		return c.fail(ctx, op, err, logger.String("submission_id", submissionID))
	}
	if n == 0 {
		return faults.NotFound(op, "submission", submissionID)
	}

	row := scoreEntryModel{
		SubmissionID: submissionID,
		JudgeID:      entry.JudgeID,
		RoundID:      entry.RoundID,
		Score:        entry.Score,
		Feedback:     entry.Feedback,
		Criteria:     encodeCriteria(entry.Criteria),
		SubmittedAt:  entry.SubmittedAt,
	}
	if err := c.db.WithContext(ctx).Create(&row).Error; err != nil {
		return c.fail(ctx, op, err, logger.String("submission_id", submissionID))
	}
	return nil
}

// SaveEvent upserts the event and replaces its rounds.
func (c *GormCatalog) SaveEvent(ctx context.Context, event model.Event) error {
	const op = "catalog.save_event"
	defer observe(op, time.Now())

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := eventModel{ID: event.ID, Status: event.Status, Criteria: encodeJSON(event.Criteria)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "criteria"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&roundModel{}).Error; err != nil {
			return err
		}
		if len(event.Rounds) == 0 {
			return nil
		}
		rounds := make([]roundModel, 0, len(event.Rounds))
		for i, r := range event.Rounds {
			rounds = append(rounds, roundModel{
				EventID:  event.ID,
				ID:       r.ID,
				Position: i,
				Name:     r.Name,
				Weight:   r.Weight,
				Criteria: encodeJSON(r.Criteria),
			})
		}
		return tx.Create(&rounds).Error
	})
	if err != nil {
		return c.fail(ctx, op, err, logger.String("event_id", event.ID))
	}
	return nil
}

// SaveSubmission upserts submission metadata. Scores are only written through AppendScore.
func (c *GormCatalog) SaveSubmission(ctx context.Context, submission model.Submission) error {
	const op = "catalog.save_submission"
	defer observe(op, time.Now())

	row := submissionModel{
		ID:      submission.ID,
		EventID: submission.EventID,
		TeamID:  submission.TeamID,
		Title:   submission.Title,
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "team_id", "title"}),
	}).Create(&row).Error
	if err != nil {
		return c.fail(ctx, op, err, logger.String("submission_id", submission.ID))
	}
	return nil
}

func (c *GormCatalog) fail(ctx context.Context, op string, err error, fields ...logger.Field) error {
	return fail(ctx, c.opts.log, op, err, fields...)
}

var (
	_ ports.EventStore      = (*GormCatalog)(nil)
	_ ports.SubmissionStore = (*GormCatalog)(nil)
	_ ports.CatalogWriter   = (*GormCatalog)(nil)
)
