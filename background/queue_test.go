package background

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsTasks(t *testing.T) {
	q := NewQueue(16, 2)

	var ran int32
	for i := 0; i < 10; i++ {
		ok := q.Enqueue(Task{Kind: "audit", Run: func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
		assert.True(t, ok)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ran) == 10
	}, time.Second, 5*time.Millisecond)
	q.Stop()
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1, 1)

	// Block the single worker so the buffer stays occupied.
	release := make(chan struct{})
	q.Enqueue(Task{Kind: "audit", Run: func() error {
		<-release
		return nil
	}})

	// Fill the one-slot buffer, then overflow.
	var buffered int32
	require.Eventually(t, func() bool {
		return q.Enqueue(Task{Kind: "audit", Run: func() error {
			atomic.AddInt32(&buffered, 1)
			return nil
		}})
	}, time.Second, time.Millisecond)

	dropped := !q.Enqueue(Task{Kind: "audit", Run: func() error { return nil }})
	assert.True(t, dropped)

	close(release)
	q.Stop()
	assert.EqualValues(t, 1, atomic.LoadInt32(&buffered))
}

func TestQueueStopDrainsBufferedTasks(t *testing.T) {
	q := NewQueue(64, 1)

	var ran int32
	for i := 0; i < 20; i++ {
		q.Enqueue(Task{Kind: "idempotency_complete", Run: func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
	}
	q.Stop()
	assert.EqualValues(t, 20, atomic.LoadInt32(&ran))
}
