package notify

import (
	"time"

	"github.com/okian/verdict/internal/adapters/mq/worker"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
)

const (
	defaultQueueSize     = 10_000
	defaultChannelPrefix = "verdict."
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets how many notifications may wait for delivery.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDeliveryTimeout bounds a single sink delivery.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.workerOptions = append(d.workerOptions, worker.WithHandleTimeout(timeout))
	}
}

// WithClock overrides the notification timestamp source.
func WithClock(clock ports.Clock) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}
