package graph

import "errors"

var (
	// ErrContextDisposed is returned by any operation on a disposed context.
	ErrContextDisposed = errors.New("context disposed")
	// ErrObjectNotFound is returned when a reference does not resolve in a context.
	ErrObjectNotFound = errors.New("object not found")
	// ErrMissingIdentifier is returned by a save when an object has no unique identifier.
	ErrMissingIdentifier = errors.New("object has no unique identifier")
	// ErrForeignObject is returned when an object is passed to a context that does not own it.
	ErrForeignObject = errors.New("object belongs to another context")
	// ErrQueueCycle is returned when a new context would wait on the main queue from a task
	// that the main queue itself is waiting on.
	ErrQueueCycle = errors.New("context hierarchy re-enters the main queue")
	// ErrTaskPanicked wraps a panic recovered from a Perform task.
	ErrTaskPanicked = errors.New("task panicked")
)
