package simulation

import (
	"context"
	"sync/atomic"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/faults"
	"github.com/okian/verdict/internal/domain/model"
)

// lossyCatalog drops every Nth mirror write so reconciliation has work to do.
type lossyCatalog struct {
	*repository.MemoryCatalog
	every   int64
	calls   atomic.Int64
	dropped atomic.Int64
	healed  atomic.Bool
}

func newLossyCatalog(every int) *lossyCatalog {
	return &lossyCatalog{MemoryCatalog: repository.NewMemoryCatalog(), every: int64(every)}
}

func (c *lossyCatalog) AppendScore(ctx context.Context, submissionID string, entry model.ScoreEntry) error {
	if c.every > 0 && !c.healed.Load() && c.calls.Add(1)%c.every == 0 {
		c.dropped.Add(1)
		return faults.Dependency("simulation.append_score", ErrMirrorDropped)
	}
	return c.MemoryCatalog.AppendScore(ctx, submissionID, entry)
}

// heal stops dropping writes.
func (c *lossyCatalog) heal() {
	c.healed.Store(true)
}

// countingSink counts delivered notifications.
type countingSink struct {
	delivered atomic.Int64
}

func (s *countingSink) Deliver(context.Context, model.Notification) error {
	s.delivered.Add(1)
	return nil
}
