// Package queue provides serial task queues.
//
// A Queue owns exactly one worker goroutine and runs submitted tasks one at a
// time, in submission order. Persistence contexts use a Queue as their
// confinement zone: every read or write of a context's objects is scheduled
// onto the context's queue.
//
// # Usage
//
//	q := queue.New("worker", 64)
//	defer q.Close()
//
//	err := q.Sync(ctx, func() {
//	    // runs on the queue goroutine
//	})
//
// Sync must never be called from a task already running on the same queue:
// the worker would wait on itself.
package queue
