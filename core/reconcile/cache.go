package reconcile

import "graph-store/core/graph"

type cacheKey struct {
	entity string
	uid    string
}

// IdentityCache maps unique identifiers to objects of one context. It is
// bound to the first context it is used with. Like the objects it holds, it
// must only be used on that context's queue.
type IdentityCache struct {
	ctx     *graph.Context
	objects map[cacheKey]*graph.Object
}

// NewIdentityCache creates an empty, unbound cache.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{objects: make(map[cacheKey]*graph.Object)}
}

// Context returns the context the cache is bound to, or nil.
func (c *IdentityCache) Context() *graph.Context {
	return c.ctx
}

// Lookup returns the cached object for the identifier.
func (c *IdentityCache) Lookup(entity, uid string) (*graph.Object, bool) {
	obj, ok := c.objects[cacheKey{entity, uid}]
	return obj, ok
}

// Len returns the number of cached identifiers.
func (c *IdentityCache) Len() int {
	return len(c.objects)
}

// Reset empties the cache and unbinds it.
func (c *IdentityCache) Reset() {
	c.ctx = nil
	c.objects = make(map[cacheKey]*graph.Object)
}

func (c *IdentityCache) bind(ctx *graph.Context) error {
	if c.ctx == nil {
		c.ctx = ctx
		return nil
	}
	if c.ctx != ctx {
		return ErrCacheContextMismatch
	}
	return nil
}

// live returns the cached object unless it was deleted, in which case the
// entry is evicted.
func (c *IdentityCache) live(entity, uid string) *graph.Object {
	key := cacheKey{entity, uid}
	obj, ok := c.objects[key]
	if !ok {
		return nil
	}
	if obj.IsDeleted() {
		delete(c.objects, key)
		return nil
	}
	return obj
}

// add caches obj unless the identifier is already held by a live object.
func (c *IdentityCache) add(obj *graph.Object) {
	key := cacheKey{obj.Entity(), obj.UID()}
	if existing, ok := c.objects[key]; ok && !existing.IsDeleted() {
		return
	}
	c.objects[key] = obj
}
