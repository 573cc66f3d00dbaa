package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCounter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	counter := NewMemoryCounter(WithClock(clock.Now))
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := counter.Increment(ctx, time.Minute, "k")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// later hits do not extend the window
	clock.Advance(59 * time.Second)
	n, err := counter.Increment(ctx, time.Minute, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	clock.Advance(time.Second)
	n, err = counter.Increment(ctx, time.Minute, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounter_WindowsAreSeparate(t *testing.T) {
	clock := newFakeClock()
	counter := NewMemoryCounter(WithClock(clock.Now))
	ctx := context.Background()

	_, err := counter.Increment(ctx, time.Minute, "k")
	require.NoError(t, err)
	_, err = counter.Increment(ctx, time.Minute, "k")
	require.NoError(t, err)

	n, err := counter.Increment(ctx, time.Hour, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the minute table expiring leaves the hour table alone
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, counter.Sweep())

	n, err = counter.Increment(ctx, time.Hour, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryCounter_Sweep(t *testing.T) {
	clock := newFakeClock()
	counter := NewMemoryCounter(WithClock(clock.Now))
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := counter.Increment(ctx, time.Minute, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, counter.Len())
	assert.Equal(t, 0, counter.Sweep())

	clock.Advance(time.Minute)
	assert.Equal(t, 3, counter.Sweep())
	assert.Equal(t, 0, counter.Len())

	n, err := counter.Increment(ctx, time.Minute, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounter_RejectsZeroWindow(t *testing.T) {
	_, err := NewMemoryCounter().Increment(context.Background(), 0, "k")
	assert.Error(t, err)
}

func TestMemoryCounter_ConcurrentIncrementsAreCounted(t *testing.T) {
	clock := newFakeClock()
	counter := NewMemoryCounter(WithClock(clock.Now))

	const workers, perWorker = 16, 200
	var highest atomic.Int64

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				n, err := counter.Increment(context.Background(), time.Minute, "hot")
				if err != nil {
					return err
				}
				for {
					cur := highest.Load()
					if n <= cur || highest.CompareAndSwap(cur, n) {
						break
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(workers*perWorker), highest.Load())
}

func TestMemoryCounter_RunStopsWithContext(t *testing.T) {
	counter := NewMemoryCounter()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- counter.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
