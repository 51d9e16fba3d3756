package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
)

type ProcessorQueue struct {
	proc    OrderProcessor
	logger  *slog.Logger
	metrics *observe.Metrics
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// senders hold the read lock so Shutdown never closes ch under them
	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(q *ProcessorQueue) {
		q.metrics = m
	}
}

func NewProcessorQueue(proc OrderProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.start", "worker_id", workerID)
				for job := range q.ch {
					q.metrics.QueueDelta(context.Background(), -1)
					q.run(workerID, job)
				}
				q.logger.Info("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	res, err := q.proc.ProcessAudio(ctx, job.UserID, job.OrderID)
	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"order_id", job.OrderID,
			"user_id", job.UserID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	q.logger.Info("queue.job.done",
		"worker_id", workerID,
		"order_id", job.OrderID,
		"items", len(res.Items),
		"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// Enqueue hands job to the workers. When the buffer is full it blocks until
// a slot frees up or ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "order_id", job.OrderID)
		return common.NewAppError("QUEUE_CLOSED", "server is shutting down", common.ErrQueueClosed)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	// counted before the send so a worker's decrement never runs first
	q.metrics.QueueDelta(ctx, 1)
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.enqueue.full", "order_id", job.OrderID, "capacity", cap(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.metrics.QueueDelta(context.WithoutCancel(ctx), -1)
			return ctx.Err()
		}
	}
	q.logger.Info("queue.enqueue.ok", "order_id", job.OrderID, "user_id", job.UserID)
	return nil
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for
// ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.done")
	}
}
