package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed queue.
var ErrClosed = errors.New("queue closed")

// Queue runs tasks serially on a dedicated goroutine.
type Queue struct {
	name  string
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New creates a queue and starts its worker.
// buffer is the number of tasks that may wait before submitters block.
func New(name string, buffer int) *Queue {
	if buffer < 0 {
		buffer = 0
	}
	q := &Queue{
		name:  name,
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Name returns the queue label.
func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) run() {
	defer close(q.done)
	for task := range q.tasks {
		task()
	}
}

// submit enqueues a task. ctx bounds the wait for a free slot only.
func (q *Queue) submit(ctx context.Context, task func()) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync runs fn on the queue and waits for it to return.
// Once fn has been accepted it always runs to completion; cancelling ctx
// afterwards does not interrupt it.
func (q *Queue) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	err := q.submit(ctx, func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}
	<-finished
	return nil
}

// Async schedules fn on the queue and returns immediately.
func (q *Queue) Async(fn func()) error {
	return q.submit(context.Background(), fn)
}

// Close stops accepting tasks, waits for queued tasks to drain and stops the worker.
// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	<-q.done
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
