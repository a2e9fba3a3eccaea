package reconcile

import (
	"errors"
	"time"

	"graph-store/core/graph"
)

var (
	// ErrReentrantReconcile is returned in strict mode when a call overlaps a
	// batch call still in flight on the same context.
	ErrReentrantReconcile = errors.New("reentrant reconciliation on overlapping identifiers")
	// ErrCacheContextMismatch is returned when an identity cache is used with a
	// context other than the one it was populated from.
	ErrCacheContextMismatch = errors.New("identity cache belongs to another context")
)

// Record is an intermediate representation of an external record.
type Record interface {
	// RecordID returns the stable unique identifier of the record.
	RecordID() string
}

// ApplyFunc copies the payload of rec onto obj. It runs on the context's queue.
type ApplyFunc[R Record] func(rec R, obj *graph.Object) error

// Path names the lookup strategy of a call.
type Path string

const (
	PathSimple Path = "simple"
	PathBatch  Path = "batch"
)

// Result summarizes one call.
type Result struct {
	Path Path `json:"path"`
	// Records is the number of records applied.
	Records int `json:"records"`
	// Created is the number of objects inserted.
	Created int `json:"created"`
	// Updated is the number of records applied to an object they did not create.
	Updated int `json:"updated"`
	// Queries is the number of context fetches issued.
	Queries int `json:"queries"`
	// Elapsed is the wall time of the call.
	Elapsed time.Duration `json:"elapsed"`
}

// Recorder receives the outcome of every call.
type Recorder interface {
	RecordReconcile(entity string, path string, records, created, queries int, elapsed time.Duration, err error)
}
