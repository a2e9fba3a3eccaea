package graph

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"graph-store/core/store"

	"go.uber.org/zap"
)

// Save pushes the pending changes to the parent and then saves the parent,
// up to the backend. A context without pending changes does nothing. The
// first failure stops the chain and is returned. Changes already pushed to a
// parent that fails validation stay there, unsaved; a failed backend commit
// discards the root's pending changes. On success the context adopts the
// versions assigned by the backend. Must be called on the context's queue.
func (c *Context) Save(ctx context.Context) error {
	cs, saved, err := c.saveLocal(ctx)
	if err != nil || !saved || c.parent == nil {
		return err
	}

	var versions map[string]int64
	err = c.withParent(ctx, func(p *Context) error {
		if err := p.Save(ctx); err != nil {
			return err
		}
		versions = p.versionsOf(cs)
		return nil
	})
	if err != nil {
		return err
	}
	c.adoptVersions(versions)
	return nil
}

// SaveAndWait saves the context from any goroutine and waits for the whole
// chain to complete.
func (c *Context) SaveAndWait(ctx context.Context) error {
	return c.Perform(ctx, func(c *Context) error {
		return c.Save(ctx)
	})
}

// SaveAsync saves the context in the background and reports the outcome to
// completion. When the context has no pending changes completion is never
// invoked.
func (c *Context) SaveAsync(completion func(error)) error {
	return c.PerformAsync(func(c *Context) {
		if !c.HasChanges() {
			return
		}
		err := c.Save(context.Background())
		if completion != nil {
			completion(err)
		}
	})
}

// saveLocal runs the first phase of a save: validate and push this context's
// changes one level up. It reports whether anything was pushed.
func (c *Context) saveLocal(ctx context.Context) (store.ChangeSet, bool, error) {
	c.ProcessPendingChanges()
	if !c.HasChanges() {
		return store.ChangeSet{}, false, nil
	}

	cs := c.changeSet()
	if err := c.validate(cs); err != nil {
		return cs, false, err
	}

	if c.parent == nil {
		if err := c.backend.Commit(ctx, cs); err != nil {
			c.logger.Error("Commit failed", zap.Int("changes", cs.Size()), zap.Error(err))
			c.rollback(ctx)
			return cs, false, fmt.Errorf("failed to commit %s: %w", c.name, err)
		}
	} else {
		err := c.withParent(ctx, func(p *Context) error {
			p.merge(cs)
			return nil
		})
		if err != nil {
			return cs, false, err
		}
	}

	c.didSave()
	c.logger.Debug("Saved context",
		zap.Int("inserted", len(cs.Inserts)),
		zap.Int("updated", len(cs.Updates)),
		zap.Int("deleted", len(cs.Deletes)))
	return cs, true, nil
}

// rollback discards the pending changes of a root context after a failed
// commit: inserted objects are dropped, updated and deleted ones are reloaded
// from the backend.
func (c *Context) rollback(ctx context.Context) {
	for _, o := range c.insertOrder {
		o.inserted = false
		o.deleted = true
		o.dirty = nil
		delete(c.registry, o.id.ID)
	}

	stale := make([]*Object, 0, len(c.updated)+len(c.deleted))
	stale = append(stale, sortedByID(c.updated)...)
	stale = append(stale, sortedByID(c.deleted)...)

	c.inserted = make(map[string]*Object)
	c.insertOrder = nil
	c.updated = make(map[string]*Object)
	c.deleted = make(map[string]*Object)

	for _, o := range stale {
		o.deleted = false
		o.dirty = nil
		if err := c.Refresh(ctx, o, false); err != nil {
			c.logger.Warn("Failed to reload object after rollback",
				zap.String("object", o.id.String()),
				zap.Error(err))
		}
		if o.deleted {
			delete(c.registry, o.id.ID)
		}
	}
	c.ProcessPendingChanges()
}

// versionsOf returns this context's versions of the objects written by cs.
func (c *Context) versionsOf(cs store.ChangeSet) map[string]int64 {
	versions := make(map[string]int64, len(cs.Inserts)+len(cs.Updates))
	for _, list := range [][]store.Record{cs.Inserts, cs.Updates} {
		for _, rec := range list {
			if o, ok := c.registry[rec.ID]; ok {
				versions[rec.ID] = o.version
			}
		}
	}
	return versions
}

// adoptVersions sets the versions assigned further up the chain.
func (c *Context) adoptVersions(versions map[string]int64) {
	for id, v := range versions {
		if o, ok := c.registry[id]; ok && !o.HasChanges() {
			o.version = v
		}
	}
}

// changeSet collects the pending changes. Inserts keep insertion order;
// updates and deletes are ordered by internal identity.
func (c *Context) changeSet() store.ChangeSet {
	var cs store.ChangeSet
	for _, o := range c.insertOrder {
		cs.Inserts = append(cs.Inserts, o.record())
	}
	for _, o := range sortedByID(c.updated) {
		cs.Updates = append(cs.Updates, o.record())
	}
	for _, o := range sortedByID(c.deleted) {
		cs.Deletes = append(cs.Deletes, store.Record{ID: o.id.ID, Entity: o.id.Entity, UID: o.uid, Version: o.version})
	}
	return cs
}

func (c *Context) validate(cs store.ChangeSet) error {
	check := func(rec store.Record) error {
		if rec.UID == "" {
			return fmt.Errorf("%s %s: %w", rec.Entity, rec.ID, ErrMissingIdentifier)
		}
		if c.validator == nil {
			return nil
		}
		if err := c.validator.Validate(rec.Entity, rec.Fields); err != nil {
			return fmt.Errorf("%s %s: %w", rec.Entity, rec.UID, err)
		}
		return nil
	}

	for _, rec := range cs.Inserts {
		if err := check(rec); err != nil {
			return err
		}
	}
	for _, rec := range cs.Updates {
		if err := check(rec); err != nil {
			return err
		}
	}
	return nil
}

// didSave clears the pending state after a successful push. Root contexts
// also track the versions assigned by the backend.
func (c *Context) didSave() {
	root := c.parent == nil

	for _, o := range c.insertOrder {
		o.inserted = false
		o.dirty = nil
		if root {
			o.version = 1
		}
	}
	for _, o := range c.updated {
		o.dirty = nil
		if root {
			o.version++
		}
	}
	for id := range c.deleted {
		delete(c.registry, id)
	}

	c.inserted = make(map[string]*Object)
	c.insertOrder = nil
	c.updated = make(map[string]*Object)
	c.deleted = make(map[string]*Object)
}

// merge applies a child's change set to this context's in-memory state.
// Updated and deleted objects take the version the child read, so a root
// commit detects stale reads rather than stale root state. Must be called on
// this context's queue.
func (c *Context) merge(cs store.ChangeSet) {
	for _, rec := range cs.Inserts {
		if _, exists := c.registry[rec.ID]; exists {
			continue
		}
		o := newObject(c, rec)
		o.inserted = true
		c.registry[o.id.ID] = o
		c.inserted[o.id.ID] = o
		c.insertOrder = append(c.insertOrder, o)
		c.noteInserted(o)
	}

	for _, rec := range cs.Updates {
		o, ok := c.registry[rec.ID]
		if !ok {
			o = newObject(c, rec)
			o.fields = make(map[string]any)
			c.registry[rec.ID] = o
		}
		if o.deleted {
			continue
		}
		o.version = rec.Version
		c.applyRecord(o, rec)
	}

	for _, rec := range cs.Deletes {
		o, ok := c.registry[rec.ID]
		if !ok {
			o = newObject(c, rec)
			c.registry[rec.ID] = o
		}
		o.version = rec.Version
		c.deleteObject(o)
	}

	c.ProcessPendingChanges()
}

// applyRecord copies rec onto o, noting each key whose value differs.
func (c *Context) applyRecord(o *Object, rec store.Record) {
	if o.uid != rec.UID {
		o.uid = rec.UID
		c.noteUpdated(o, UIDField)
	}
	for key, value := range rec.Fields {
		if old, ok := o.fields[key]; ok && reflect.DeepEqual(old, value) {
			continue
		}
		o.fields[key] = value
		c.noteUpdated(o, key)
	}
	for key := range o.fields {
		if _, ok := rec.Fields[key]; !ok {
			delete(o.fields, key)
			c.noteUpdated(o, key)
		}
	}
}

func sortedByID(set map[string]*Object) []*Object {
	out := make([]*Object, 0, len(set))
	for _, o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id.ID < out[j].id.ID })
	return out
}
