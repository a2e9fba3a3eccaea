package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"graph-store/core/graph"
	"graph-store/core/model"
	"graph-store/core/utils"
)

// Intermediate is a transient, decoded external record.
type Intermediate struct {
	ID     string
	Fields map[string]any
}

// RecordID implements reconcile.Record.
func (r Intermediate) RecordID() string {
	return r.ID
}

// DecodeRecords decodes a JSON array of flat objects. Every object must carry
// the entity's identifier; attribute values are coerced to their declared types.
func DecodeRecords(data []byte, e *model.Entity) ([]Intermediate, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", e.Name, err)
	}

	records := make([]Intermediate, 0, len(raw))
	for i, item := range raw {
		rec, err := Decode(item, e)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Decode converts one flat object.
func Decode(item map[string]any, e *model.Entity) (Intermediate, error) {
	id, ok := item[e.Identifier]
	if !ok || id == nil {
		return Intermediate{}, fmt.Errorf("%s has no %q: %w", e.Name, e.Identifier, graph.ErrMissingIdentifier)
	}
	uid := utils.ToString(id)
	if uid == "" {
		return Intermediate{}, fmt.Errorf("%s has an empty %q: %w", e.Name, e.Identifier, graph.ErrMissingIdentifier)
	}

	fields, err := e.Coerce(item)
	if err != nil {
		return Intermediate{}, err
	}
	return Intermediate{ID: uid, Fields: fields}, nil
}

// Apply copies the record's fields onto obj. It has the shape of a
// reconcile.ApplyFunc.
func Apply(rec Intermediate, obj *graph.Object) error {
	for key, value := range rec.Fields {
		obj.Set(key, value)
	}
	return nil
}

// Project returns the flat representation of obj: its declared attributes
// plus the identifier key.
func Project(obj *graph.Object, e *model.Entity) map[string]any {
	out := make(map[string]any, len(e.Attributes)+1)
	for name := range e.Attributes {
		if value := obj.Get(name); value != nil {
			out[name] = value
		}
	}
	out[e.Identifier] = obj.UID()
	return out
}

// EncodeObjects encodes objects as an indented JSON array.
func EncodeObjects(objects []*graph.Object, e *model.Entity) ([]byte, error) {
	items := make([]map[string]any, 0, len(objects))
	for _, obj := range objects {
		items = append(items, Project(obj, e))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("failed to encode %s objects: %w", e.Name, err)
	}
	return buf.Bytes(), nil
}
