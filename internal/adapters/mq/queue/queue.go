// Package queue is the bounded in-memory buffer between notification
// publishers and delivery workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Notification is the payload type flowing through the queue.
type Notification = model.Notification

// Queue provides non-blocking enqueue and blocking dequeue.
type Queue interface {
	// Enqueue adds n without blocking. It fails with ErrFull when the queue
	// is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, n Notification) error

	// Dequeue blocks until a notification is available. After Close it keeps
	// returning buffered notifications and then ErrClosed.
	Dequeue(ctx context.Context) (Notification, error)

	// Len returns the current number of queued notifications.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting notifications. Buffered ones can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	items    chan Notification
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Notification, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a notification to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notification) error {
	start := time.Now()
	defer func() { metrics.RecordQueueProcessingLatency(metrics.SinceMs(start)) }()

	// The read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- n:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the next notification.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (Notification, error) {
	select {
	case n, ok := <-q.items:
		if !ok {
			return Notification{}, ErrClosed
		}
		metrics.RecordQueueDequeue()
		q.observe()
		return n, nil
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}

// Len returns the current number of queued notifications.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting notifications. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

var _ Queue = (*InMemoryQueue)(nil)
