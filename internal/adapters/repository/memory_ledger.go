package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
)

type pairKey struct {
	a, b string
}

// MemoryLedger is a mutex-guarded ledger with the same uniqueness rules as
// GormLedger. Returned values never alias internal state.
type MemoryLedger struct {
	mu          sync.RWMutex
	judges      map[string]model.Judge
	eventAssign map[pairKey]model.EventAssignment      // (event, judge)
	subAssign   map[pairKey]model.SubmissionAssignment // (judge, submission)
	audits      []model.FanOutAudit
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		judges:      make(map[string]model.Judge),
		eventAssign: make(map[pairKey]model.EventAssignment),
		subAssign:   make(map[pairKey]model.SubmissionAssignment),
	}
}

func (l *MemoryLedger) UpsertJudge(_ context.Context, judge model.Judge) (model.Judge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.judges[judge.ID]; ok {
		judge.CreatedAt = prev.CreatedAt
	}
	judge.Expertise = append([]string(nil), judge.Expertise...)
	l.judges[judge.ID] = judge
	return cloneJudge(judge), nil
}

func (l *MemoryLedger) GetJudge(_ context.Context, judgeID string) (model.Judge, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	j, ok := l.judges[judgeID]
	if !ok {
		return model.Judge{}, faults.NotFound("ledger.get_judge", "judge", judgeID)
	}
	return cloneJudge(j), nil
}

func (l *MemoryLedger) SetJudgeActive(_ context.Context, judgeID string, active bool, at time.Time) (model.Judge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	j, ok := l.judges[judgeID]
	if !ok {
		return model.Judge{}, faults.NotFound("ledger.set_judge_active", "judge", judgeID)
	}
	j.Active = active
	j.UpdatedAt = at
	l.judges[judgeID] = j
	return cloneJudge(j), nil
}

func (l *MemoryLedger) CreateEventAssignment(_ context.Context, a model.EventAssignment) (model.EventAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := pairKey{a.EventID, a.JudgeID}
	if _, ok := l.eventAssign[k]; ok {
		return model.EventAssignment{}, faults.NewKind("ledger.create_event_assignment", faults.ErrConflict)
	}
	l.eventAssign[k] = a
	return a, nil
}

func (l *MemoryLedger) GetEventAssignment(_ context.Context, eventID, judgeID string) (model.EventAssignment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.eventAssign[pairKey{eventID, judgeID}]
	if !ok {
		return model.EventAssignment{}, faults.NotFound("ledger.get_event_assignment", "event assignment", eventID+"/"+judgeID)
	}
	return a, nil
}

func (l *MemoryLedger) ReactivateEventAssignment(_ context.Context, eventID, judgeID string, role model.Role, at time.Time) (model.EventAssignment, error) {
	const op = "ledger.reactivate_event_assignment"
	l.mu.Lock()
	defer l.mu.Unlock()

	k := pairKey{eventID, judgeID}
	a, ok := l.eventAssign[k]
	if !ok {
		return model.EventAssignment{}, faults.NotFound(op, "event assignment", eventID+"/"+judgeID)
	}
	if a.Active {
		return model.EventAssignment{}, faults.NewKind(op, faults.ErrConflict)
	}
	a.Active = true
	a.Role = role
	a.AssignedAt = at
	l.eventAssign[k] = a
	return a, nil
}

func (l *MemoryLedger) SetEventAssignmentActive(_ context.Context, eventID, judgeID string, active bool) (model.EventAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := pairKey{eventID, judgeID}
	a, ok := l.eventAssign[k]
	if !ok {
		return model.EventAssignment{}, faults.NotFound("ledger.set_event_assignment_active", "event assignment", eventID+"/"+judgeID)
	}
	a.Active = active
	l.eventAssign[k] = a
	return a, nil
}

func (l *MemoryLedger) ListEventAssignments(_ context.Context, eventID string) ([]model.EventAssignment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.EventAssignment, 0)
	for k, a := range l.eventAssign {
		if k.a == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JudgeID < out[j].JudgeID })
	return out, nil
}

func (l *MemoryLedger) CreateSubmissionAssignments(_ context.Context, rows []model.SubmissionAssignment) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	created := 0
	for _, r := range rows {
		k := pairKey{r.JudgeID, r.SubmissionID}
		if _, ok := l.subAssign[k]; ok {
			continue
		}
		l.subAssign[k] = cloneAssignment(r)
		created++
	}
	return created, nil
}

func (l *MemoryLedger) ListSubmissionAssignments(_ context.Context, filter model.AssignmentFilter) ([]model.SubmissionAssignment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.SubmissionAssignment, 0)
	for _, a := range l.subAssign {
		if filter.EventID != "" && a.EventID != filter.EventID {
			continue
		}
		if filter.JudgeID != "" && a.JudgeID != filter.JudgeID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionID != out[j].SubmissionID {
			return out[i].SubmissionID < out[j].SubmissionID
		}
		return out[i].JudgeID < out[j].JudgeID
	})
	return out, nil
}

func (l *MemoryLedger) GetSubmissionAssignment(_ context.Context, judgeID, submissionID string) (model.SubmissionAssignment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.subAssign[pairKey{judgeID, submissionID}]
	if !ok {
		return model.SubmissionAssignment{}, faults.NotFound("ledger.get_submission_assignment", "submission assignment", judgeID+"/"+submissionID)
	}
	return cloneAssignment(a), nil
}

func (l *MemoryLedger) MarkReviewed(_ context.Context, judgeID, submissionID string, review model.ReviewInput, at time.Time) (model.SubmissionAssignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := pairKey{judgeID, submissionID}
	a, ok := l.subAssign[k]
	if !ok || a.Status != model.StatusAssigned {
		return model.SubmissionAssignment{}, faults.Wrap("ledger.mark_reviewed", faults.ErrNotAssignedOrAlreadyReviewed)
	}
	score := review.Score
	reviewedAt := at
	a.Status = model.StatusReviewed
	a.Score = &score
	a.Feedback = review.Feedback
	a.Criteria = maps.Clone(review.Criteria)
	a.RoundID = review.RoundID
	a.ReviewedAt = &reviewedAt
	l.subAssign[k] = a
	return cloneAssignment(a), nil
}

func (l *MemoryLedger) RecordFanOut(_ context.Context, audit model.FanOutAudit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.audits = append(l.audits, audit)
	return nil
}

func (l *MemoryLedger) ListFanOutAudits(_ context.Context, eventID string) ([]model.FanOutAudit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.FanOutAudit, 0)
	for _, a := range l.audits {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func cloneJudge(j model.Judge) model.Judge {
	j.Expertise = append([]string(nil), j.Expertise...)
	return j
}

func cloneAssignment(a model.SubmissionAssignment) model.SubmissionAssignment {
	a.Criteria = maps.Clone(a.Criteria)
	if a.Score != nil {
		s := *a.Score
		a.Score = &s
	}
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		a.ReviewedAt = &t
	}
	return a
}

var _ ports.Ledger = (*MemoryLedger)(nil)
