package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_FIFO(t *testing.T) {
	q := newOutbox()
	for i := int64(1); i <= 3; i++ {
		require.True(t, q.Enqueue(Update{Seq: i}))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		u, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, u.Seq)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestOutbox_Drain(t *testing.T) {
	q := newOutbox()
	q.Enqueue(Update{Seq: 1})
	q.Enqueue(Update{Seq: 2})

	got := q.Drain()
	assert.Equal(t, []Update{{Seq: 1}, {Seq: 2}}, got)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestOutbox_CloseRejectsAndWakes(t *testing.T) {
	q := newOutbox()
	q.Enqueue(Update{Seq: 1})
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Update{Seq: 2}))

	u, ok := q.Next(context.Background())
	require.True(t, ok, "queued updates stay readable after close")
	assert.Equal(t, int64(1), u.Seq)

	_, ok = q.Next(context.Background())
	assert.False(t, ok)
}

func TestOutbox_NextWaitsForEnqueue(t *testing.T) {
	q := newOutbox()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Update{Seq: 7})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, ok := q.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), u.Seq)
}

func TestOutbox_NextHonorsContext(t *testing.T) {
	q := newOutbox()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Next(ctx)
	assert.False(t, ok)
}
