// Package graph implements a hierarchy of persistence contexts over a
// store.Backend.
//
// A Stack owns two contexts: the root context, which commits to the backend
// on its own private queue, and the main context, a child of the root that
// runs on the stack-wide main queue. Further children are created with
// Stack.NewContext and stage their changes until they are saved into their
// parent.
//
// # Confinement
//
// Every context is bound to one queue.Queue. Objects belong to exactly one
// context and must only be read or written from a task running on that
// context's queue:
//
//	err := c.Perform(ctx, func(c *graph.Context) error {
//	    obj := c.Insert("person")
//	    obj.SetUID("p-1")
//	    obj.Set("name", "Ada")
//	    return c.Save(ctx)
//	})
//
// Perform, PerformAsync, SaveAndWait, SaveAsync and Dispose are the only
// methods safe to call from any goroutine. Calling Perform or SaveAndWait on
// a context from a task already running on its queue deadlocks, as does
// calling Dispose from the context's own task.
//
// # Views
//
// A fetch in a child context sees the parent's unsaved state: the parent's
// view of the store overlaid with the parent's own inserts, updates and
// deletes. Objects are instantiated per context; resolving the same ObjectID
// in two contexts yields two distinct instances with equal identity.
//
// # Saving
//
// Save pushes the context's pending changes one level up (the backend for the
// root, the parent's in-memory state otherwise) and then saves the parent, so
// a save travels the whole chain to the backend. A context without pending
// changes does nothing. The root commits with optimistic versioning; a
// stale update fails with store.ErrConflict.
//
// # Observation
//
// Changes are collected per context and posted by ProcessPendingChanges at
// the end of every Perform task, at the start of every save and after a
// child merges into the context. Observe subscribes to one object; the
// returned Observation detaches itself after delivering a Deleted change.
package graph
