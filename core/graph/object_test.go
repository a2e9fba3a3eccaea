package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectID_URI(t *testing.T) {
	id := ObjectID{Entity: "person", ID: "0f1e2d3c"}
	assert.Equal(t, "x-graph://person/0f1e2d3c", id.URI())
	assert.Equal(t, id.URI(), id.String())

	parsed, err := ParseObjectID(id.URI())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestObjectID_URIEscapesID(t *testing.T) {
	id := ObjectID{Entity: "file", ID: "a b/c"}

	parsed, err := ParseObjectID(id.URI())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseObjectID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"WrongScheme", "http://person/1"},
		{"NoEntity", "x-graph:///1"},
		{"NoID", "x-graph://person/"},
		{"NestedPath", "x-graph://person/1/2"},
		{"Garbage", "::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseObjectID(tt.uri)
			assert.Error(t, err)
		})
	}
}

func TestObjectID_IsZero(t *testing.T) {
	assert.True(t, ObjectID{}.IsZero())
	assert.False(t, ObjectID{Entity: "person", ID: "1"}.IsZero())
}

func TestObject_SetTracksChanges(t *testing.T) {
	s, _ := newTestStack(t)

	perform(t, s.Main(), func(c *Context) error {
		o := c.Insert("person")
		assert.True(t, o.IsInserted())
		assert.True(t, o.HasChanges())

		o.SetUID("p-1")
		o.Set("name", "Ada")
		o.Set("age", 36)
		assert.Equal(t, "Ada", o.Get("name"))
		assert.Equal(t, map[string]any{"name": "Ada", "age": 36}, o.Fields())
		assert.Equal(t, []string{UIDField, "age", "name"}, o.ChangedFields())

		o.Unset("age")
		assert.Nil(t, o.Get("age"))
		return nil
	})
}

func TestObject_DeletedIgnoresMutations(t *testing.T) {
	s, _ := newTestStack(t)

	perform(t, s.Main(), func(c *Context) error {
		o := c.Insert("person")
		o.SetUID("p-1")
		o.Set("name", "Ada")
		require.NoError(t, c.Delete(o))

		o.Set("name", "Grace")
		o.SetUID("p-2")
		assert.True(t, o.IsDeleted())
		assert.Nil(t, o.Get("name"))
		assert.Empty(t, o.Fields())
		assert.Equal(t, "p-1", o.UID())
		assert.False(t, c.HasChanges())
		return nil
	})
}
