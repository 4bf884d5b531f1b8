package exports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/tradeflow/pkg/logger"
	"github.com/charlesng35/tradeflow/pkg/metrics"
)

var (
	// ErrQueueFull is returned when every slot of the queue is taken.
	ErrQueueFull = errors.New("exports: queue is full")
	// ErrQueueClosed is returned after Stop.
	ErrQueueClosed = errors.New("exports: queue is closed")
)

// Handler processes one queued task id.
type Handler func(ctx context.Context, taskID string) error

// Queue is a bounded worker pool for export tasks.
type Queue struct {
	handler Handler
	workers int
	jobs    chan string
	log     *zap.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue constructs a queue sized from cfg.
func NewQueue(cfg Config, handler Handler) (*Queue, error) {
	if handler == nil {
		return nil, errors.New("exports: queue handler is required")
	}
	cfg = cfg.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		handler: handler,
		workers: cfg.Workers,
		jobs:    make(chan string, cfg.QueueSize),
		log:     logger.WithModule("exports"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
	q.log.Info("export workers started", zap.Int("workers", q.workers), zap.Int("queue_size", cap(q.jobs)))
}

// Enqueue schedules taskID without blocking.
func (q *Queue) Enqueue(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- taskID:
		metrics.ExportQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting tasks and waits for queued work to finish. When ctx
// expires first, running handlers are cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		q.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return fmt.Errorf("exports: stop: %w", ctx.Err())
	}
}

func (q *Queue) work(id int) {
	defer q.wg.Done()
	for taskID := range q.jobs {
		metrics.ExportQueueDepth.Dec()
		q.run(id, taskID)
	}
}

func (q *Queue) run(worker int, taskID string) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("export handler panicked", zap.Int("worker", worker), zap.String("task_id", taskID), zap.Any("panic", r))
		}
	}()

	if err := q.handler(q.ctx, taskID); err != nil {
		q.log.Warn("export task failed", zap.Int("worker", worker), zap.String("task_id", taskID), zap.Error(err))
	}
}
