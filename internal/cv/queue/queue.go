// Package queue implements a single-worker FIFO admission queue. Tasks run
// one at a time in arrival order; the next task is only dequeued after the
// current one has returned.
package queue

import (
	"context"
	"fmt"
	"sync"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"go.uber.org/zap"
)

// Task is a unit of work admitted to the queue.
type Task func(ctx context.Context) (any, error)

// Stats is a point-in-time snapshot of the queue.
type Stats struct {
	// Size is the number of tasks waiting to start.
	Size int `json:"size"`
	// Pending is the number of tasks running (0 or 1).
	Pending  int  `json:"pending"`
	IsPaused bool `json:"isPaused"`
}

type result struct {
	value any
	err   error
}

type job struct {
	ctx  context.Context
	task Task
	done chan result
}

// Queue serialises tasks on a single worker goroutine. The waiting list is
// unbounded; callers see latency under load, never rejection.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	waiting []*job
	pending int
	paused  bool
	closed  bool

	stopped chan struct{}
	logger  *zap.Logger
}

// New creates a Queue and starts its worker.
func New(logger *zap.Logger) *Queue {
	q := &Queue{
		stopped: make(chan struct{}),
		logger:  logger.Named("admission_queue"),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Run admits task and blocks until it has completed. Once admitted the task
// runs to completion even if ctx is cancelled while it waits; the task
// receives a context detached from the caller's cancellation.
func (q *Queue) Run(ctx context.Context, task Task) (any, error) {
	j := &job{
		ctx:  context.WithoutCancel(ctx),
		task: task,
		done: make(chan result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, e.ErrQueueClosed
	}
	q.waiting = append(q.waiting, j)
	q.cond.Signal()
	q.mu.Unlock()

	res := <-j.done
	return res.value, res.err
}

// Runner admits tasks for serial execution. *Queue implements it.
type Runner interface {
	Run(ctx context.Context, task Task) (any, error)
}

// Do is a typed wrapper around Run.
func Do[T any](ctx context.Context, q Runner, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := q.Run(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Stats returns the current queue depth and in-flight count.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Size:     len(q.waiting),
		Pending:  q.pending,
		IsPaused: q.paused,
	}
}

// Pause stops the worker from starting new tasks. A task already running
// completes normally.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.logger.Info("Queue paused")
}

// Resume restarts a paused queue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.cond.Signal()
	q.mu.Unlock()
	q.logger.Info("Queue resumed")
}

// Close stops admitting tasks, lets the worker drain every admitted task
// (ignoring pause) and waits for it to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for !q.closed && (len(q.waiting) == 0 || q.paused) {
			q.cond.Wait()
		}
		if len(q.waiting) == 0 {
			q.mu.Unlock()
			return
		}
		j := q.waiting[0]
		q.waiting[0] = nil
		q.waiting = q.waiting[1:]
		q.pending = 1
		q.mu.Unlock()

		value, err := q.execute(j)

		q.mu.Lock()
		q.pending = 0
		q.mu.Unlock()
		j.done <- result{value: value, err: err}
	}
}

// execute runs a single task, turning a panic into an error so the worker
// keeps serving the tasks behind it.
func (q *Queue) execute(j *job) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Task panicked", zap.Any("panic", r))
			value, err = nil, fmt.Errorf("task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}
