package graph

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// ObserverFunc receives the changes of one observed object.
type ObserverFunc func(Change)

// Observation is the handle returned by Observe. It starts attached and
// becomes detached on Cancel, after delivering a Deleted change, or when the
// context is disposed. A detached observation never fires again.
type Observation struct {
	ctx      *Context
	id       ObjectID
	fn       ObserverFunc
	detached atomic.Bool
}

// ObjectID returns the reference of the observed object.
func (ob *Observation) ObjectID() ObjectID { return ob.id }

// Active reports whether the observation is still attached.
func (ob *Observation) Active() bool { return !ob.detached.Load() }

// Cancel detaches the observation. It is safe to call from any goroutine and more than once.
func (ob *Observation) Cancel() {
	if ob.detached.Swap(true) || ob.ctx == nil {
		return
	}
	ob.ctx.removeObservation(ob)
}

// Observe subscribes fn to the updated, refreshed and deleted changes of obj.
// fn runs on the context's queue, once per notification that touches obj.
// Must be called on the context's queue.
func (c *Context) Observe(obj *Object, fn ObserverFunc) *Observation {
	ob := &Observation{ctx: c, id: obj.id, fn: fn}
	if obj.ctx != c || obj.deleted || c.disposed.Load() {
		ob.detached.Store(true)
		return ob
	}

	c.mu.Lock()
	c.observers[obj.id.ID] = append(c.observers[obj.id.ID], ob)
	c.mu.Unlock()
	return ob
}

// ObserveReference resolves ref in this context and observes the resulting
// object. A reference that does not resolve yields a detached observation that
// never fires; only backend failures are returned as errors.
// Must be called on the context's queue.
func (c *Context) ObserveReference(ctx context.Context, ref ObjectID, fn ObserverFunc) (*Observation, error) {
	obj, err := c.Object(ctx, ref)
	if errors.Is(err, ErrObjectNotFound) {
		ob := &Observation{ctx: c, id: ref, fn: fn}
		ob.detached.Store(true)
		c.logger.Debug("Observed reference does not resolve", zap.String("ref", ref.URI()))
		return ob, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Observe(obj, fn), nil
}

// OnChange registers fn for every notification posted by this context.
// The returned function unregisters it.
func (c *Context) OnChange(fn func(Notification)) (stop func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Context) removeObservation(ob *Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.observers[ob.id.ID]
	for i, candidate := range list {
		if candidate == ob {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.observers, ob.id.ID)
	} else {
		c.observers[ob.id.ID] = list
	}
}

// detachAll detaches every observation, used on dispose.
func (c *Context) detachAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, list := range c.observers {
		for _, ob := range list {
			ob.detached.Store(true)
		}
	}
	c.observers = make(map[string][]*Observation)
	c.listeners = make(map[int]func(Notification))
}

// dispatch delivers a notification to observers, then listeners.
func (c *Context) dispatch(n Notification) {
	for _, change := range n.Changes {
		c.mu.Lock()
		targets := append([]*Observation(nil), c.observers[change.Object.id.ID]...)
		c.mu.Unlock()

		for _, ob := range targets {
			if !ob.Active() {
				continue
			}
			ob.fn(change)
			if change.Kind == Deleted {
				ob.Cancel()
			}
		}
	}

	c.mu.Lock()
	listeners := make([]func(Notification), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
}
