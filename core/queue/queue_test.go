package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := New("ordered", 16)
	defer q.Close()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.Async(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	// A Sync task is queued behind all async ones.
	require.NoError(t, q.Sync(context.Background(), func() {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestQueue_SyncWaitsForCompletion(t *testing.T) {
	q := New("sync", 0)
	defer q.Close()

	done := false
	err := q.Sync(context.Background(), func() {
		time.Sleep(10 * time.Millisecond)
		done = true
	})
	assert.NoError(t, err)
	assert.True(t, done)
}

func TestQueue_Close(t *testing.T) {
	q := New("closing", 4)

	ran := make(chan struct{})
	require.NoError(t, q.Async(func() { close(ran) }))

	q.Close()
	<-ran

	assert.True(t, q.Closed())
	assert.ErrorIs(t, q.Async(func() {}), ErrClosed)
	assert.ErrorIs(t, q.Sync(context.Background(), func() {}), ErrClosed)

	// Second close is a no-op.
	q.Close()
}

func TestQueue_SyncHonoursContextWhileWaitingForSlot(t *testing.T) {
	q := New("busy", 0)
	defer q.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, q.Async(func() {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Sync(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}
