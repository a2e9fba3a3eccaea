package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"graph-store/core/queue"
	"graph-store/core/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Concurrency selects the queue a context is bound to.
type Concurrency int

const (
	// PrivateQueue binds the context to a queue of its own.
	PrivateQueue Concurrency = iota
	// MainQueue binds the context to the stack-wide main queue.
	MainQueue
)

// String implements fmt.Stringer.
func (c Concurrency) String() string {
	if c == MainQueue {
		return "main"
	}
	return "private"
}

// Validator checks the field values of an object before it is saved.
type Validator interface {
	Validate(entity string, fields map[string]any) error
}

// Context is an isolated unit of work holding a staged view of persisted objects.
type Context struct {
	name        string
	stack       *Stack
	parent      *Context
	backend     store.Backend
	queue       *queue.Queue
	ownsQueue   bool
	concurrency Concurrency
	logger      *zap.Logger
	validator   Validator
	disposed    atomic.Bool

	// Queue-confined state.
	registry    map[string]*Object
	inserted    map[string]*Object
	insertOrder []*Object
	updated     map[string]*Object
	deleted     map[string]*Object

	unprocessed      map[string]*pendingChange
	unprocessedOrder []*pendingChange
	userInfo         map[string]any

	// mu guards observers and listeners, which Cancel may touch from any goroutine.
	mu           sync.Mutex
	observers    map[string][]*Observation
	listeners    map[int]func(Notification)
	nextListener int
}

func newContext(s *Stack, parent *Context, q *queue.Queue, ownsQueue bool, concurrency Concurrency, name string) *Context {
	return &Context{
		name:        name,
		stack:       s,
		parent:      parent,
		queue:       q,
		ownsQueue:   ownsQueue,
		concurrency: concurrency,
		logger:      s.logger.With(zap.String("context", name)),
		validator:   s.validator,
		registry:    make(map[string]*Object),
		inserted:    make(map[string]*Object),
		updated:     make(map[string]*Object),
		deleted:     make(map[string]*Object),
		unprocessed: make(map[string]*pendingChange),
		userInfo:    make(map[string]any),
		observers:   make(map[string][]*Observation),
		listeners:   make(map[int]func(Notification)),
	}
}

// Name returns the context label.
func (c *Context) Name() string { return c.name }

// Parent returns the parent context, or nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Concurrency returns the queue kind the context is bound to.
func (c *Context) Concurrency() Concurrency { return c.concurrency }

// IsDisposed reports whether Dispose has been called.
func (c *Context) IsDisposed() bool { return c.disposed.Load() }

// Perform runs fn on the context's queue and waits for it. Pending changes are
// processed when fn returns. A panic inside fn is returned as ErrTaskPanicked.
func (c *Context) Perform(ctx context.Context, fn func(*Context) error) error {
	if c.disposed.Load() {
		return ErrContextDisposed
	}

	var err error
	if qerr := c.queue.Sync(ctx, func() { err = c.run(fn) }); qerr != nil {
		if errors.Is(qerr, queue.ErrClosed) {
			return ErrContextDisposed
		}
		return qerr
	}
	return err
}

// PerformAsync schedules fn on the context's queue and returns immediately.
// A panic inside fn is logged.
func (c *Context) PerformAsync(fn func(*Context)) error {
	if c.disposed.Load() {
		return ErrContextDisposed
	}

	err := c.queue.Async(func() {
		err := c.run(func(c *Context) error {
			fn(c)
			return nil
		})
		if err != nil && !errors.Is(err, ErrContextDisposed) {
			c.logger.Error("Async task failed", zap.Error(err))
		}
	})
	if errors.Is(err, queue.ErrClosed) {
		return ErrContextDisposed
	}
	return err
}

func (c *Context) run(fn func(*Context) error) (err error) {
	if c.disposed.Load() {
		return ErrContextDisposed
	}
	defer c.ProcessPendingChanges()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return fn(c)
}

// withParent runs fn against the parent on the parent's queue. A parent
// sharing this context's queue is called inline.
func (c *Context) withParent(ctx context.Context, fn func(p *Context) error) error {
	p := c.parent
	if p.disposed.Load() {
		return fmt.Errorf("parent %s: %w", p.name, ErrContextDisposed)
	}
	if p.queue == c.queue {
		return fn(p)
	}

	var err error
	if qerr := p.queue.Sync(ctx, func() {
		if p.disposed.Load() {
			err = fmt.Errorf("parent %s: %w", p.name, ErrContextDisposed)
			return
		}
		err = fn(p)
	}); qerr != nil {
		if errors.Is(qerr, queue.ErrClosed) {
			return fmt.Errorf("parent %s: %w", p.name, ErrContextDisposed)
		}
		return qerr
	}
	return err
}

// UserInfo returns a map for storing arbitrary values alongside the context.
// Must be called on the context's queue.
func (c *Context) UserInfo() map[string]any { return c.userInfo }

// HasChanges reports whether the context holds unsaved inserts, updates or deletes.
func (c *Context) HasChanges() bool {
	return len(c.inserted)+len(c.updated)+len(c.deleted) > 0
}

// Insert creates a new object of the given entity with a fresh internal identity.
// The object has no unique identifier until SetUID is called.
func (c *Context) Insert(entity string) *Object {
	o := &Object{
		id:       ObjectID{Entity: entity, ID: uuid.NewString()},
		fields:   make(map[string]any),
		ctx:      c,
		inserted: true,
	}
	c.registry[o.id.ID] = o
	c.inserted[o.id.ID] = o
	c.insertOrder = append(c.insertOrder, o)
	c.noteInserted(o)
	return o
}

// Delete marks the object for removal. Deleting an object that was inserted
// in this context and never saved discards it.
func (c *Context) Delete(o *Object) error {
	if o.ctx != c {
		return ErrForeignObject
	}
	c.deleteObject(o)
	return nil
}

func (c *Context) deleteObject(o *Object) {
	if o.deleted {
		return
	}
	o.deleted = true
	delete(c.updated, o.id.ID)
	if o.inserted {
		delete(c.inserted, o.id.ID)
		c.insertOrder = removeObject(c.insertOrder, o)
	} else {
		c.deleted[o.id.ID] = o
	}
	c.noteDeleted(o)
}

// Fetch returns this context's instances of the objects matching q, ordered
// by unique identifier then internal identity.
func (c *Context) Fetch(ctx context.Context, q store.Query) ([]*Object, error) {
	records, err := c.view(ctx, q)
	if err != nil {
		return nil, err
	}

	objects := make([]*Object, 0, len(records))
	for _, rec := range records {
		if o := c.register(rec); !o.deleted {
			objects = append(objects, o)
		}
	}
	return objects, nil
}

// FetchAll returns every object of the entity.
func (c *Context) FetchAll(ctx context.Context, entity string) ([]*Object, error) {
	return c.Fetch(ctx, store.Query{Entity: entity, All: true})
}

// FetchOne returns the first object with the given unique identifier, or nil.
func (c *Context) FetchOne(ctx context.Context, entity, uid string) (*Object, error) {
	objects, err := c.Fetch(ctx, store.Query{Entity: entity, UIDs: []string{uid}})
	if err != nil || len(objects) == 0 {
		return nil, err
	}
	return objects[0], nil
}

// Object resolves a stable reference to this context's instance.
func (c *Context) Object(ctx context.Context, ref ObjectID) (*Object, error) {
	if o, ok := c.registry[ref.ID]; ok {
		if o.deleted || o.id.Entity != ref.Entity {
			return nil, fmt.Errorf("%s: %w", ref, ErrObjectNotFound)
		}
		return o, nil
	}

	rec, err := c.parentRecord(ctx, ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", ref, ErrObjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	if rec.Entity != ref.Entity {
		return nil, fmt.Errorf("%s: %w", ref, ErrObjectNotFound)
	}
	return c.register(rec), nil
}

// Refresh reloads the object from the parent. With mergeChanges the unsaved
// field changes are kept on top of the reloaded values; otherwise they are
// discarded. An object no longer present in the parent becomes deleted.
func (c *Context) Refresh(ctx context.Context, o *Object, mergeChanges bool) error {
	if o.ctx != c {
		return ErrForeignObject
	}
	if o.inserted || o.deleted {
		return nil
	}

	rec, err := c.parentRecord(ctx, o.id.ID)
	if errors.Is(err, store.ErrNotFound) {
		o.deleted = true
		delete(c.updated, o.id.ID)
		c.noteDeleted(o)
		return nil
	}
	if err != nil {
		return err
	}

	fields := store.CopyFields(rec.Fields)
	uid := rec.UID
	if mergeChanges && len(o.dirty) > 0 {
		for key := range o.dirty {
			if key == UIDField {
				uid = o.uid
				continue
			}
			if v, ok := o.fields[key]; ok {
				fields[key] = v
			} else {
				delete(fields, key)
			}
		}
	} else {
		o.dirty = nil
		delete(c.updated, o.id.ID)
	}

	o.fields = fields
	o.uid = uid
	o.version = rec.Version
	c.noteRefreshed(o)
	return nil
}

// RefreshAll refreshes every registered object that is not inserted or deleted.
func (c *Context) RefreshAll(ctx context.Context, mergeChanges bool) error {
	ids := make([]string, 0, len(c.registry))
	for id, o := range c.registry {
		if !o.inserted && !o.deleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := c.Refresh(ctx, c.registry[id], mergeChanges); err != nil {
			return err
		}
	}
	return nil
}

// Dispose detaches all observations and releases the context's private queue.
// Tasks already queued still run but see ErrContextDisposed. Dispose must not
// be called from the context's own queue.
func (c *Context) Dispose() {
	if c.disposed.Swap(true) {
		return
	}
	c.detachAll()
	if c.ownsQueue {
		c.queue.Close()
	}
	c.stack.forget(c)
	c.logger.Debug("Context disposed")
}

// register returns the registered instance for rec, creating it if needed.
func (c *Context) register(rec store.Record) *Object {
	if o, ok := c.registry[rec.ID]; ok {
		return o
	}
	o := newObject(c, rec)
	c.registry[rec.ID] = o
	return o
}

// view returns the records visible to this context for q: the parent's view
// overlaid with this context's own unsaved changes.
func (c *Context) view(ctx context.Context, q store.Query) ([]store.Record, error) {
	below, err := c.parentView(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.overlay(q, below), nil
}

func (c *Context) parentView(ctx context.Context, q store.Query) ([]store.Record, error) {
	if c.parent == nil {
		records, err := c.backend.Fetch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", q.Entity, err)
		}
		return records, nil
	}

	var records []store.Record
	err := c.withParent(ctx, func(p *Context) error {
		var err error
		records, err = p.view(ctx, q)
		return err
	})
	return records, err
}

func (c *Context) overlay(q store.Query, below []store.Record) []store.Record {
	if !c.HasChanges() {
		return below
	}

	out := make([]store.Record, 0, len(below)+len(c.inserted))
	for _, rec := range below {
		if _, ok := c.deleted[rec.ID]; ok {
			continue
		}
		if _, ok := c.updated[rec.ID]; ok {
			continue
		}
		out = append(out, rec)
	}
	for _, o := range c.updated {
		if rec := o.record(); q.Matches(rec) {
			out = append(out, rec)
		}
	}
	for _, o := range c.insertOrder {
		if rec := o.record(); q.Matches(rec) {
			out = append(out, rec)
		}
	}
	store.SortRecords(out)
	return out
}

// recordFor returns this context's view of one record.
func (c *Context) recordFor(ctx context.Context, id string) (store.Record, error) {
	if _, ok := c.deleted[id]; ok {
		return store.Record{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	if o, ok := c.registry[id]; ok {
		if o.deleted {
			return store.Record{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
		}
		if o.inserted || len(o.dirty) > 0 {
			return o.record(), nil
		}
	}
	return c.parentRecord(ctx, id)
}

func (c *Context) parentRecord(ctx context.Context, id string) (store.Record, error) {
	if c.parent == nil {
		return c.backend.Get(ctx, id)
	}

	var rec store.Record
	err := c.withParent(ctx, func(p *Context) error {
		var err error
		rec, err = p.recordFor(ctx, id)
		return err
	})
	return rec, err
}

func removeObject(list []*Object, o *Object) []*Object {
	for i, candidate := range list {
		if candidate == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
