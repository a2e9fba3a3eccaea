package graph

// ChangeKind classifies an observed object change.
type ChangeKind int

const (
	// Updated means one or more field values changed.
	Updated ChangeKind = iota + 1
	// Refreshed means the in-memory state was discarded and reloaded from the parent.
	Refreshed
	// Deleted means the object was marked for removal. It is terminal.
	Deleted
)

// String implements fmt.Stringer.
func (k ChangeKind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Refreshed:
		return "refreshed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change describes what happened to one object within one notification.
type Change struct {
	Object *Object
	Kind   ChangeKind
	// Fields lists the changed keys for Updated changes, sorted.
	Fields []string
}

// Notification is posted by ProcessPendingChanges. It carries at most one
// entry per object.
type Notification struct {
	Context  *Context
	Inserted []*Object
	Changes  []Change
}

// Empty reports whether the notification carries nothing.
func (n Notification) Empty() bool {
	return len(n.Inserted) == 0 && len(n.Changes) == 0
}

// pendingChange accumulates the unprocessed changes of one object.
type pendingChange struct {
	object   *Object
	inserted bool
	kind     ChangeKind
	fields   map[string]struct{}
}

// noteInserted records an insertion for the next notification.
func (c *Context) noteInserted(o *Object) {
	pc := c.pendingFor(o)
	pc.inserted = true
}

// noteUpdated records a field change and marks the object as updated.
func (c *Context) noteUpdated(o *Object, key string) {
	o.markDirty(key)
	if !o.inserted {
		c.updated[o.id.ID] = o
	}

	pc := c.pendingFor(o)
	if pc.inserted || pc.kind == Deleted {
		return
	}
	if pc.kind != Updated {
		pc.kind = Updated
		pc.fields = make(map[string]struct{})
	}
	pc.fields[key] = struct{}{}
}

// noteRefreshed records a refresh; it replaces a pending update.
func (c *Context) noteRefreshed(o *Object) {
	pc := c.pendingFor(o)
	if pc.kind == Deleted {
		return
	}
	pc.kind = Refreshed
	pc.fields = nil
}

// noteDeleted records a deletion; it is sticky.
func (c *Context) noteDeleted(o *Object) {
	pc := c.pendingFor(o)
	pc.kind = Deleted
	pc.fields = nil
}

func (c *Context) pendingFor(o *Object) *pendingChange {
	if pc, ok := c.unprocessed[o.id.ID]; ok {
		return pc
	}
	pc := &pendingChange{object: o}
	c.unprocessed[o.id.ID] = pc
	c.unprocessedOrder = append(c.unprocessedOrder, pc)
	return pc
}

// ProcessPendingChanges posts one Notification covering every change recorded
// since the previous call, then dispatches it to observers and listeners.
// It runs automatically at the end of each Perform task and at the start of
// each save. Must be called on the context's queue.
func (c *Context) ProcessPendingChanges() {
	if len(c.unprocessedOrder) == 0 {
		return
	}

	n := Notification{Context: c}
	for _, pc := range c.unprocessedOrder {
		switch {
		case pc.kind == Deleted:
			n.Changes = append(n.Changes, Change{Object: pc.object, Kind: Deleted})
		case pc.inserted:
			n.Inserted = append(n.Inserted, pc.object)
		case pc.kind != 0:
			n.Changes = append(n.Changes, Change{Object: pc.object, Kind: pc.kind, Fields: sortedKeys(pc.fields)})
		}
	}
	c.unprocessed = make(map[string]*pendingChange)
	c.unprocessedOrder = nil

	if n.Empty() {
		return
	}
	c.dispatch(n)
}
