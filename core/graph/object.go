package graph

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"graph-store/core/store"
)

// UIDField is the change key reported when an object's external identifier changes.
const UIDField = "@uid"

const uriScheme = "x-graph"

// ObjectID is a stable reference to a persisted object. It is valid across
// contexts: resolving it in another context yields that context's own instance.
type ObjectID struct {
	Entity string
	ID     string
}

// IsZero reports whether the reference is empty.
func (id ObjectID) IsZero() bool {
	return id.ID == ""
}

// URI returns the reference as "x-graph://<entity>/<id>".
func (id ObjectID) URI() string {
	return fmt.Sprintf("%s://%s/%s", uriScheme, url.PathEscape(id.Entity), url.PathEscape(id.ID))
}

// String implements fmt.Stringer.
func (id ObjectID) String() string {
	return id.URI()
}

// ParseObjectID parses the URI form produced by ObjectID.URI.
func ParseObjectID(uri string) (ObjectID, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object uri %q: %w", uri, err)
	}
	if u.Scheme != uriScheme {
		return ObjectID{}, fmt.Errorf("invalid object uri %q: scheme must be %s", uri, uriScheme)
	}
	escaped := strings.TrimPrefix(u.EscapedPath(), "/")
	if u.Host == "" || escaped == "" || strings.Contains(escaped, "/") {
		return ObjectID{}, fmt.Errorf("invalid object uri %q", uri)
	}
	id, err := url.PathUnescape(escaped)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object uri %q: %w", uri, err)
	}
	return ObjectID{Entity: u.Host, ID: id}, nil
}

// Object is a persisted object owned by exactly one Context.
// All methods must be called on the owning context's queue.
type Object struct {
	id      ObjectID
	uid     string
	fields  map[string]any
	version int64
	ctx     *Context

	// dirty holds the keys changed since the last save or refresh.
	dirty    map[string]struct{}
	inserted bool
	deleted  bool
}

func newObject(c *Context, rec store.Record) *Object {
	return &Object{
		id:      ObjectID{Entity: rec.Entity, ID: rec.ID},
		uid:     rec.UID,
		fields:  store.CopyFields(rec.Fields),
		version: rec.Version,
		ctx:     c,
	}
}

// ID returns the stable reference of the object.
func (o *Object) ID() ObjectID { return o.id }

// Entity returns the entity name.
func (o *Object) Entity() string { return o.id.Entity }

// UID returns the external unique identifier.
func (o *Object) UID() string { return o.uid }

// Version returns the version the object was loaded at.
func (o *Object) Version() int64 { return o.version }

// Context returns the owning context.
func (o *Object) Context() *Context { return o.ctx }

// IsInserted reports whether the object has not yet been saved to the parent.
func (o *Object) IsInserted() bool { return o.inserted }

// IsDeleted reports whether the object was deleted. Field access on a deleted
// object returns nil and mutations are ignored.
func (o *Object) IsDeleted() bool { return o.deleted }

// HasChanges reports whether the object carries unsaved field changes.
func (o *Object) HasChanges() bool { return o.inserted || len(o.dirty) > 0 }

// ChangedFields returns the sorted keys changed since the last save or refresh.
func (o *Object) ChangedFields() []string {
	return sortedKeys(o.dirty)
}

// Get returns a field value.
func (o *Object) Get(key string) any {
	if o.deleted {
		return nil
	}
	return o.fields[key]
}

// Fields returns a copy of all field values.
func (o *Object) Fields() map[string]any {
	if o.deleted {
		return map[string]any{}
	}
	return store.CopyFields(o.fields)
}

// Set assigns a field value. Assigning an equal value is not a change.
func (o *Object) Set(key string, value any) {
	if o.deleted {
		return
	}
	if old, ok := o.fields[key]; ok && reflect.DeepEqual(old, value) {
		return
	}
	o.fields[key] = value
	o.ctx.noteUpdated(o, key)
}

// Unset removes a field.
func (o *Object) Unset(key string) {
	if o.deleted {
		return
	}
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	o.ctx.noteUpdated(o, key)
}

// SetUID assigns the external unique identifier.
func (o *Object) SetUID(uid string) {
	if o.deleted || o.uid == uid {
		return
	}
	o.uid = uid
	o.ctx.noteUpdated(o, UIDField)
}

// record returns the flat representation of the current in-memory state.
func (o *Object) record() store.Record {
	return store.Record{
		ID:      o.id.ID,
		Entity:  o.id.Entity,
		UID:     o.uid,
		Fields:  store.CopyFields(o.fields),
		Version: o.version,
	}
}

func (o *Object) markDirty(key string) {
	if o.dirty == nil {
		o.dirty = make(map[string]struct{})
	}
	o.dirty[key] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
