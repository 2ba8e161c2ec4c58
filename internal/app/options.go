package service

import (
	"time"

	"github.com/okian/verdict/internal/adapters/notify"
	"github.com/okian/verdict/internal/domain/dedupe"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLedger sets the assignment ledger.
func WithLedger(l ports.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithCatalog sets the event and submission store.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithDeduper sets the reminder deduper. Without it a process-local one
// is built from the dedupe size and reminder TTL.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithSink sets where notifications are delivered.
func WithSink(sink notify.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the service time source.
func WithClock(clock ports.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the process-local reminder deduper.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReminderTTL sets the reminder suppression window.
func WithReminderTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.reminderTTL = ttl
		}
	}
}

// WithLeaderboardSource selects mirror or ledger for the leaderboard.
func WithLeaderboardSource(source string) Option {
	return func(s *Service) {
		if source != "" {
			s.leaderboardSource = source
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for notifications to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
