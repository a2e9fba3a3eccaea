// Package reconcile imports external records into a persistence context with
// insert-or-update-by-identifier semantics.
//
// Every input record carries a stable unique identifier (RecordID). For each
// record the reconciler finds the object of the configured entity holding
// that identifier in the context, creating it when none exists, and hands
// both to an apply callback that copies the payload onto the object.
//
// # Paths
//
// Two paths are exposed because neither wins everywhere:
//
//   - Simple (cache == nil): one context query per record.
//   - Batch (cache != nil): one query for every identifier not already
//     cached, then in-memory lookups through the IdentityCache.
//
// The batch path only pays off above roughly ten thousand records on some
// backends; callers pick the path, typically by record count.
//
// After a call returns without error, every identifier of the input maps to
// exactly one object in the context. Records sharing an identifier are
// applied in input order, so the last one wins. A failing lookup or apply
// stops the call; objects created before the failure stay in the context,
// unsaved.
//
// # Reentrancy
//
// An IdentityCache is a snapshot. If apply starts another reconciliation with
// a different cache over overlapping identifiers, the objects the nested call
// creates are invisible to the outer cache and the outer call creates them a
// second time: the context ends up holding duplicate objects for the same
// identifier. Nothing reports this by default.
//
// A Reconciler built with WithStrict refuses such calls instead: any call on
// a context whose identifiers overlap a batch call still in flight on that
// context fails with ErrReentrantReconcile before touching the context.
//
// # Usage
//
//	r := reconcile.New("person", reconcile.WithLogger(log))
//	err := c.Perform(ctx, func(c *graph.Context) error {
//	    _, err := reconcile.Reconcile(ctx, r, c, records, reconcile.NewIdentityCache(),
//	        func(rec codec.Intermediate, obj *graph.Object) error {
//	            return codec.Apply(rec, obj)
//	        })
//	    return err
//	})
package reconcile
