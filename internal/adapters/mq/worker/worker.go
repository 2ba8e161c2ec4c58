// Package worker runs the goroutines that drain the notification queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

const (
	defaultHandleTimeout = 5 * time.Second
	stopGrace            = time.Second
)

// Handler delivers one notification.
type Handler interface {
	Handle(ctx context.Context, n model.Notification) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, n model.Notification) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) (model.Notification, error)
}

// Worker processes notifications until its queue is closed and drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the notification in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue         Queue
	handler       Handler
	name          string
	handleTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	processed *atomic.Int64
	failed    *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         queue,
		handler:       handler,
		name:          "worker",
		handleTimeout: defaultHandleTimeout,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		processed:     new(atomic.Int64),
		failed:        new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	for runCtx.Err() == nil {
		n, err := w.queue.Dequeue(runCtx)
		if err != nil {
			return
		}
		if err := w.process(ctx, n); err != nil {
			w.logger.Warn(ctx, "notification delivery failed",
				logger.String("id", n.ID), logger.String("topic", n.Topic), logger.Error(err))
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signalStop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (w *InMemoryWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, n model.Notification) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(metrics.SinceMs(start)) }()

	hctx, cancel := context.WithTimeout(ctx, w.handleTimeout)
	defer cancel()

	if err := w.handler.Handle(hctx, n); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "delivery_error")
		return err
	}
	w.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	started   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount uses one
// worker per CPU. opts apply to every worker.
func NewPool(workerCount int, queue Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(queue, handler,
			append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.processed = &p.processed
		w.failed = &p.failed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many notifications were delivered.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Failed returns how many deliveries failed.
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// Shutdown closes the queue, lets the workers drain what is buffered and
// waits for them. When ctx expires first every worker is stopped after the
// notification in hand and the rest of the buffer is dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}
	defer metrics.UpdateWorkerActiveCount(0)

	drained := make(chan struct{})
	go func() {
		for _, w := range p.workers {
			<-w.done
		}
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
	}

	p.logger.Warn(ctx, "worker drain timed out, stopping workers")
	for _, w := range p.workers {
		w.signalStop()
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	errs := []error{fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())}
	for _, w := range p.workers {
		if err := w.Shutdown(stopCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
