package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a commit collides with the stored state
	// (duplicate ID on insert, stale version on update).
	ErrConflict = errors.New("commit conflict")
)

// Record is the flat representation of a persisted object.
type Record struct {
	// ID is the internal identity of the row.
	ID string `json:"id"`
	// Entity is the entity name (e.g. "person").
	Entity string `json:"entity"`
	// UID is the external unique identifier.
	UID string `json:"uid"`
	// Fields holds the scalar field values.
	Fields map[string]any `json:"fields"`
	// Version is incremented by the backend on every committed update.
	Version int64 `json:"version"`
	// UpdatedAt is the last commit time reported by the backend.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep-enough copy of the record (the field map is copied).
func (r Record) Clone() Record {
	r.Fields = CopyFields(r.Fields)
	return r
}

// CopyFields returns a shallow copy of a field map. A nil map yields an empty map.
func CopyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Query selects records of one entity.
type Query struct {
	// Entity restricts the query to one entity.
	Entity string
	// UIDs restricts the query to the given external identifiers.
	// Ignored when All is set.
	UIDs []string
	// All selects every record of the entity.
	All bool
}

// Matches reports whether a record satisfies the query.
func (q Query) Matches(r Record) bool {
	if r.Entity != q.Entity {
		return false
	}
	if q.All {
		return true
	}
	for _, uid := range q.UIDs {
		if uid == r.UID {
			return true
		}
	}
	return false
}

// ChangeSet is a batch of pending changes pushed from a context to its parent.
type ChangeSet struct {
	Inserts []Record
	Updates []Record
	// Deletes only need ID and Entity.
	Deletes []Record
}

// Empty reports whether the change set carries no changes.
func (cs ChangeSet) Empty() bool {
	return len(cs.Inserts) == 0 && len(cs.Updates) == 0 && len(cs.Deletes) == 0
}

// Size returns the total number of changes.
func (cs ChangeSet) Size() int {
	return len(cs.Inserts) + len(cs.Updates) + len(cs.Deletes)
}

// Backend is the storage engine below the root context.
type Backend interface {
	// Fetch returns the records matching the query, ordered by UID then ID.
	Fetch(ctx context.Context, q Query) ([]Record, error)
	// Get returns the record with the given internal ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Commit applies the change set atomically.
	Commit(ctx context.Context, cs ChangeSet) error
	// Close releases backend resources.
	Close() error
}

// DuplicateGroup lists the rows sharing one external identifier.
type DuplicateGroup struct {
	UID string   `json:"uid"`
	IDs []string `json:"ids"`
}

// DuplicateFinder is implemented by backends able to report rows that share a UID.
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, entity string) ([]DuplicateGroup, error)
}
