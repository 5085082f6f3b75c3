// Package queue owns all pending verification work.
//
// Every enqueue and dequeue goes through this one type; worker concurrency is
// an explicit configuration parameter. There is no FIFO guarantee across
// requests, only per-request transition ordering, which the store enforces.
package queue

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"verivote/internal/oracle/metrics"
	"verivote/internal/oracle/pipeline"
	"verivote/pkg/platform/sentinel"
)

// Processor executes one unit of pipeline work to a terminal state.
type Processor interface {
	Process(ctx context.Context, task pipeline.Task)
}

// Queue is a bounded task buffer with a fixed worker pool.
type Queue struct {
	tasks     chan pipeline.Task
	processor Processor
	workers   int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Queue.
type Option func(*Queue)

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// New creates a queue with the given worker count and buffer depth.
func New(processor Processor, workers, depth int, opts ...Option) *Queue {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 64
	}
	q := &Queue{
		tasks:     make(chan pipeline.Task, depth),
		processor: processor,
		workers:   workers,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules a task without blocking the caller. A full buffer
// returns sentinel.ErrUnavailable so the facade can reject the submission
// instead of wedging it.
func (q *Queue) Enqueue(task pipeline.Task) error {
	select {
	case q.tasks <- task:
		q.metrics.SetQueueDepth(len(q.tasks))
		return nil
	default:
		return sentinel.ErrUnavailable
	}
}

// Run blocks, serving tasks with the configured number of workers, until ctx
// is canceled. In-flight pipeline runs finish before workers exit; the
// pipeline itself is never interrupted mid-request.
func (q *Queue) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case task := <-q.tasks:
					q.metrics.SetQueueDepth(len(q.tasks))
					// Pipeline runs always reach a terminal state; give
					// them a context that outlives shutdown.
					q.processor.Process(context.WithoutCancel(ctx), task)
				}
			}
		})
		if q.logger != nil {
			q.logger.Debug("queue worker started", slog.Int("worker", worker))
		}
	}
	return g.Wait()
}

// Depth reports the number of buffered tasks.
func (q *Queue) Depth() int { return len(q.tasks) }
