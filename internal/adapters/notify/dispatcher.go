// Package notify delivers engine notifications asynchronously.
//
// Publish never blocks and never fails: notifications go onto a bounded
// queue and a worker pool hands them to a Sink. When the queue is full the
// notification is dropped and counted.
package notify

import (
	"context"
	"errors"
	"maps"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/verdict/internal/adapters/mq/queue"
	"github.com/okian/verdict/internal/adapters/mq/worker"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/ports"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Sink is the final destination of a notification.
type Sink interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// Stats is a point-in-time view of the delivery pipeline.
type Stats struct {
	Queued    int   `json:"queued"`
	Capacity  int   `json:"capacity"`
	Workers   int   `json:"workers"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher implements ports.Notifier on top of the queue and worker pool.
type Dispatcher struct {
	sink  Sink
	queue *queue.InMemoryQueue
	pool  *worker.Pool
	clock ports.Clock
	log   logger.Logger

	queueSize     int
	workers       int
	workerOptions []worker.Option

	dropped atomic.Int64
}

// NewDispatcher creates a Dispatcher delivering to sink. Call Start before
// publishing if notifications should flow; until then they only queue.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:      sink,
		clock:     ports.SystemClock{},
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Named("notify")
	}
	d.queue = queue.NewInMemoryQueue(queue.WithCapacity(d.queueSize))
	d.pool = worker.NewPool(d.workers, d.queue, d, d.workerOptions...)
	return d
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// Shutdown stops accepting notifications and drains the queue until ctx
// expires.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.pool.Shutdown(ctx)
}

// Publish enqueues a notification. It never blocks.
func (d *Dispatcher) Publish(ctx context.Context, topic string, payload map[string]any) {
	n := model.Notification{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: maps.Clone(payload),
		At:      d.clock.Now(),
	}
	err := d.queue.Enqueue(ctx, n)
	if err == nil {
		return
	}

	d.dropped.Add(1)
	metrics.RecordNotificationDropped()
	if errors.Is(err, queue.ErrClosed) {
		d.log.Debug(ctx, "notification dropped after shutdown", logger.String("topic", topic))
		return
	}
	d.log.Warn(ctx, "notification dropped",
		logger.String("topic", topic),
		logger.Int("queued", d.queue.Len()),
		logger.Error(err),
	)
}

// Handle delivers one notification to the sink. Workers call it.
func (d *Dispatcher) Handle(ctx context.Context, n model.Notification) error {
	if err := d.sink.Deliver(ctx, n); err != nil {
		metrics.RecordNotificationError()
		return err
	}
	metrics.RecordNotificationPublished(n.Topic)
	return nil
}

// Stats reports queue depth and delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:    d.queue.Len(),
		Capacity:  d.queue.Cap(),
		Workers:   d.pool.Size(),
		Delivered: d.pool.Processed(),
		Failed:    d.pool.Failed(),
		Dropped:   d.dropped.Load(),
	}
}

var (
	_ ports.Notifier = (*Dispatcher)(nil)
	_ worker.Handler = (*Dispatcher)(nil)
)
