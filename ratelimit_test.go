package snapsi_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sagarc03/snapsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiter_UnknownKeyAllowed(t *testing.T) {
	l := snapsi.NewRateLimiter(5, time.Minute)

	assert.True(t, l.Check("f:1.2.3.4:upload"))
	assert.Equal(t, 0, l.Len(), "check must not create records")
}

func TestRateLimiter_LimitWithinWindow(t *testing.T) {
	clock := newFakeClock()
	l := snapsi.NewRateLimiter(5, time.Minute, snapsi.WithClock(clock.Now))
	key := "f:1.2.3.4:upload"

	for i := 0; i < 5; i++ {
		require.True(t, l.Check(key), "attempt %d", i+1)
		l.Increment(key)
	}

	assert.False(t, l.Check(key))
	assert.False(t, l.Check(key), "check is idempotent")

	clock.Advance(59 * time.Second)
	assert.False(t, l.Check(key))
	assert.Equal(t, time.Second, l.RetryAfter(key))

	// resetAt itself is still inside the window
	clock.Advance(time.Second)
	assert.False(t, l.Check(key))

	clock.Advance(time.Millisecond)
	assert.True(t, l.Check(key))
	assert.Zero(t, l.RetryAfter(key))
}

func TestRateLimiter_IncrementAfterExpiryStartsFreshWindow(t *testing.T) {
	clock := newFakeClock()
	l := snapsi.NewRateLimiter(2, time.Minute, snapsi.WithClock(clock.Now))
	key := "k"

	l.Increment(key)
	l.Increment(key)
	require.False(t, l.Check(key))

	clock.Advance(2 * time.Minute)
	l.Increment(key)

	assert.True(t, l.Check(key), "count restarted at 1")
	l.Increment(key)
	assert.False(t, l.Check(key))
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l := snapsi.NewRateLimiter(1, time.Minute)

	l.Increment("a")

	assert.False(t, l.Check("a"))
	assert.True(t, l.Check("b"))
}

func TestRateLimiter_Reset(t *testing.T) {
	l := snapsi.NewRateLimiter(1, time.Minute)

	l.Increment("a")
	require.False(t, l.Check("a"))

	l.Reset("a")
	assert.True(t, l.Check("a"))
	assert.Equal(t, 0, l.Len())
}

func TestRateLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	l := snapsi.NewRateLimiter(5, time.Minute, snapsi.WithClock(clock.Now))

	l.Increment("old")
	clock.Advance(30 * time.Second)
	l.Increment("new")
	clock.Advance(31 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Check("old"))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestRateLimiter_Run(t *testing.T) {
	clock := newFakeClock()
	l := snapsi.NewRateLimiter(5, time.Minute,
		snapsi.WithClock(clock.Now),
		snapsi.WithSweepInterval(5*time.Millisecond),
	)

	l.Increment("k")
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRateLimiter_ConcurrentIncrements(t *testing.T) {
	l := snapsi.NewRateLimiter(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Check("k")
				l.Increment("k")
			}
		}()
	}
	wg.Wait()

	// 500 increments leave room for exactly 500 more
	for i := 0; i < 500; i++ {
		require.True(t, l.Check("k"))
		l.Increment("k")
	}
	assert.False(t, l.Check("k"))
}
