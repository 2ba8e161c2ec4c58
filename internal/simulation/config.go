// Package simulation drives the judging engine end to end in process and
// verifies its consistency guarantees under concurrent load.
package simulation

import (
	"fmt"
	"time"

	"github.com/okian/verdict/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	Judges            int    // Number of judges
	Submissions       int    // Number of submissions
	Rounds            int    // Number of weighted rounds
	Contenders        int    // Concurrent submitters per review
	Workers           int    // Concurrent review tasks
	NotifyWorkers     int    // Notification delivery workers
	MirrorLossEvery   int    // Drop every Nth mirror write (0 disables)
	LeaderboardSource string // mirror or ledger
	LogFile           string // Log file for run output
}

// DefaultConfig returns a small but contended run.
func DefaultConfig() *Config {
	return &Config{
		Judges:            8,
		Submissions:       40,
		Rounds:            3,
		Contenders:        4,
		Workers:           16,
		NotifyWorkers:     2,
		MirrorLossEvery:   7,
		LeaderboardSource: model.SourceMirror,
	}
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	switch {
	case c.Judges < 2:
		return fmt.Errorf("%w: judges must be at least 2", ErrInvalidConfig)
	case c.Submissions < 1:
		return fmt.Errorf("%w: submissions must be positive", ErrInvalidConfig)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be positive", ErrInvalidConfig)
	case c.Contenders < 1:
		return fmt.Errorf("%w: contenders must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.MirrorLossEvery < 0:
		return fmt.Errorf("%w: mirror loss interval must not be negative", ErrInvalidConfig)
	case c.LeaderboardSource != model.SourceMirror && c.LeaderboardSource != model.SourceLedger:
		return fmt.Errorf("%w: unknown leaderboard source %q", ErrInvalidConfig, c.LeaderboardSource)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Judges                 int
	Submissions            int
	PlannedReviews         int
	ReviewsAccepted        int64
	ReviewConflicts        int64
	FannedOut              int
	LazyCreated            int
	MirrorDropped          int64
	MirrorRepaired         int
	NotificationsDelivered int64
	LeaderboardEntries     int
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
