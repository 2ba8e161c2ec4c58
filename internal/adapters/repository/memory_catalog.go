package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
)

// MemoryCatalog is an in-process event and submission store.
type MemoryCatalog struct {
	mu          sync.RWMutex
	events      map[string]model.Event
	submissions map[string]model.Submission
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		events:      make(map[string]model.Event),
		submissions: make(map[string]model.Submission),
	}
}

func (c *MemoryCatalog) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.events[eventID]
	if !ok {
		return model.Event{}, faults.NotFound("catalog.get_event", "event", eventID)
	}
	return cloneEvent(ev), nil
}

func (c *MemoryCatalog) ListByEvent(_ context.Context, eventID string) ([]model.Submission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Submission, 0)
	for _, s := range c.submissions {
		if s.EventID == eventID {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) GetByID(_ context.Context, submissionID string) (model.Submission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.submissions[submissionID]
	if !ok {
		return model.Submission{}, faults.NotFound("catalog.get_submission", "submission", submissionID)
	}
	return cloneSubmission(s), nil
}

func (c *MemoryCatalog) AppendScore(_ context.Context, submissionID string, entry model.ScoreEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.submissions[submissionID]
	if !ok {
		return faults.NotFound("catalog.append_score", "submission", submissionID)
	}
	entry.Criteria = maps.Clone(entry.Criteria)
	s.Scores = append(s.Scores, entry)
	c.submissions[submissionID] = s
	return nil
}

func (c *MemoryCatalog) SaveEvent(_ context.Context, event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events[event.ID] = cloneEvent(event)
	return nil
}

// SaveSubmission upserts submission metadata and keeps existing score entries.
func (c *MemoryCatalog) SaveSubmission(_ context.Context, submission model.Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := cloneSubmission(submission)
	next.Scores = nil
	if prev, ok := c.submissions[submission.ID]; ok {
		next.Scores = prev.Scores
	}
	c.submissions[submission.ID] = next
	return nil
}

func cloneEvent(ev model.Event) model.Event {
	ev.Criteria = slices.Clone(ev.Criteria)
	rounds := make([]model.Round, len(ev.Rounds))
	for i, r := range ev.Rounds {
		r.Criteria = slices.Clone(r.Criteria)
		rounds[i] = r
	}
	if ev.Rounds != nil {
		ev.Rounds = rounds
	}
	return ev
}

func cloneSubmission(s model.Submission) model.Submission {
	if s.Scores == nil {
		return s
	}
	scores := make([]model.ScoreEntry, len(s.Scores))
	for i, e := range s.Scores {
		e.Criteria = maps.Clone(e.Criteria)
		scores[i] = e
	}
	s.Scores = scores
	return s
}

var (
	_ ports.EventStore      = (*MemoryCatalog)(nil)
	_ ports.SubmissionStore = (*MemoryCatalog)(nil)
	_ ports.CatalogWriter   = (*MemoryCatalog)(nil)
)
