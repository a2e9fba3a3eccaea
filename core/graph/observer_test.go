package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects changes delivered to an observer callback.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) observe(ch Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *recorder) take() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.changes
	r.changes = nil
	return out
}

func TestObserve_UpdatedThenDeleted(t *testing.T) {
	s, _ := newTestStack(t)
	ids := seed(t, s.Main(), "person", "p-1")

	rec := &recorder{}
	var obs *Observation
	perform(t, s.Main(), func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		obs = c.Observe(o, rec.observe)
		return nil
	})

	perform(t, s.Main(), func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		o.Set("name", "Ada")
		return c.Save(context.Background())
	})

	changes := rec.take()
	require.Len(t, changes, 1)
	assert.Equal(t, Updated, changes[0].Kind)
	assert.Equal(t, []string{"name"}, changes[0].Fields)
	assert.Equal(t, ids[0], changes[0].Object.ID())

	perform(t, s.Main(), func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		require.NoError(t, c.Delete(o))
		return c.Save(context.Background())
	})

	changes = rec.take()
	require.Len(t, changes, 1)
	assert.Equal(t, Deleted, changes[0].Kind)
	assert.False(t, obs.Active())

	perform(t, s.Main(), func(c *Context) error {
		c.Insert("person").SetUID("p-2")
		return c.Save(context.Background())
	})
	require.NoError(t, s.Main().SaveAndWait(context.Background()))
	assert.Empty(t, rec.take())
}

func TestObserve_OneCallbackPerNotification(t *testing.T) {
	s, _ := newTestStack(t)
	rec := &recorder{}

	perform(t, s.Main(), func(c *Context) error {
		o := c.Insert("person")
		o.SetUID("p-1")
		require.NoError(t, c.Save(context.Background()))

		c.Observe(o, rec.observe)
		o.Set("name", "Ada")
		o.Set("age", 36)
		o.Set("name", "Grace")
		return nil
	})

	changes := rec.take()
	require.Len(t, changes, 1)
	assert.Equal(t, []string{"age", "name"}, changes[0].Fields)
}

func TestObserve_Refreshed(t *testing.T) {
	s, _ := newTestStack(t)
	ids := seed(t, s.Root(), "person", "p-1")
	rec := &recorder{}

	perform(t, s.Main(), func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		c.Observe(o, rec.observe)
		return c.Refresh(context.Background(), o, false)
	})

	changes := rec.take()
	require.Len(t, changes, 1)
	assert.Equal(t, Refreshed, changes[0].Kind)
	assert.Empty(t, changes[0].Fields)
}

func TestObserve_Cancel(t *testing.T) {
	s, _ := newTestStack(t)
	rec := &recorder{}

	perform(t, s.Main(), func(c *Context) error {
		o := c.Insert("person")
		o.SetUID("p-1")
		require.NoError(t, c.Save(context.Background()))

		obs := c.Observe(o, rec.observe)
		obs.Cancel()
		obs.Cancel()
		assert.False(t, obs.Active())
		assert.Equal(t, o.ID(), obs.ObjectID())

		o.Set("name", "Ada")
		return nil
	})

	assert.Empty(t, rec.take())
}

func TestObserve_ParentSeesChildSave(t *testing.T) {
	s, _ := newTestStack(t)
	ids := seed(t, s.Main(), "person", "p-1")
	rec := &recorder{}

	perform(t, s.Main(), func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		c.Observe(o, rec.observe)
		return nil
	})

	bg, err := s.NewBackgroundContext()
	require.NoError(t, err)
	perform(t, bg, func(c *Context) error {
		o, err := c.Object(context.Background(), ids[0])
		require.NoError(t, err)
		o.Set("name", "from child")
		return c.Save(context.Background())
	})

	changes := rec.take()
	require.Len(t, changes, 1)
	assert.Equal(t, Updated, changes[0].Kind)
	assert.Equal(t, []string{"name"}, changes[0].Fields)
	assert.Equal(t, "from child", changes[0].Object.Get("name"))
}

func TestObserveReference(t *testing.T) {
	s, _ := newTestStack(t)
	ids := seed(t, s.Main(), "person", "p-1")
	bg, err := s.NewBackgroundContext()
	require.NoError(t, err)

	t.Run("Resolves", func(t *testing.T) {
		rec := &recorder{}
		perform(t, bg, func(c *Context) error {
			obs, err := c.ObserveReference(context.Background(), ids[0], rec.observe)
			require.NoError(t, err)
			assert.True(t, obs.Active())

			o, err := c.Object(context.Background(), ids[0])
			require.NoError(t, err)
			o.Set("name", "changed")
			return nil
		})

		changes := rec.take()
		require.Len(t, changes, 1)
		assert.Same(t, bg, changes[0].Object.Context())
	})

	t.Run("Unresolvable", func(t *testing.T) {
		rec := &recorder{}
		perform(t, bg, func(c *Context) error {
			obs, err := c.ObserveReference(context.Background(), ObjectID{Entity: "person", ID: "gone"}, rec.observe)
			require.NoError(t, err)
			assert.False(t, obs.Active())

			c.Insert("person").SetUID("p-2")
			return c.Save(context.Background())
		})

		assert.Empty(t, rec.take())
	})
}

func TestOnChange(t *testing.T) {
	s, _ := newTestStack(t)

	var (
		mu            sync.Mutex
		notifications []Notification
	)
	stop := s.Main().OnChange(func(n Notification) {
		mu.Lock()
		notifications = append(notifications, n)
		mu.Unlock()
	})

	perform(t, s.Main(), func(c *Context) error {
		c.Insert("person").SetUID("p-1")
		return nil
	})

	stop()
	perform(t, s.Main(), func(c *Context) error {
		c.Insert("person").SetUID("p-2")
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notifications, 1)
	assert.Len(t, notifications[0].Inserted, 1)
	assert.Empty(t, notifications[0].Changes)
	assert.Same(t, s.Main(), notifications[0].Context)
}
