package graph

import (
	"context"
	"testing"

	"graph-store/core/store"

	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, opts ...Option) (*Stack, *store.Memory) {
	t.Helper()
	backend := store.NewMemory()
	s := NewStack(backend, opts...)
	t.Cleanup(s.Close)
	return s, backend
}

func perform(t *testing.T, c *Context, fn func(c *Context) error) {
	t.Helper()
	require.NoError(t, c.Perform(context.Background(), fn))
}

// seed inserts saved objects through c and returns their references.
func seed(t *testing.T, c *Context, entity string, uids ...string) []ObjectID {
	t.Helper()
	ids := make([]ObjectID, 0, len(uids))
	perform(t, c, func(c *Context) error {
		for _, uid := range uids {
			o := c.Insert(entity)
			o.SetUID(uid)
			o.Set("name", "name-"+uid)
			ids = append(ids, o.ID())
		}
		return c.Save(context.Background())
	})
	return ids
}
