package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRateLimiter(rdb, limit), mr
}

// alignWindow sleeps into the next wall-clock second when too little of the
// current one remains for a test's acquires to all land in one window.
func alignWindow(t *testing.T) {
	t.Helper()
	remaining := time.Until(time.Now().Truncate(time.Second).Add(time.Second))
	if remaining < 500*time.Millisecond {
		time.Sleep(remaining)
	}
}

func TestRateLimiter_AllowsUpToLimitPerWindow(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)
	ctx := context.Background()
	alignWindow(t)

	for i := 0; i < 3; i++ {
		allowed, err := rl.Acquire(ctx, 10*time.Millisecond)
		assert.NoError(t, err)
		assert.True(t, allowed, "acquire %d should fit the window", i+1)
	}

	allowed, err := rl.Acquire(ctx, 10*time.Millisecond)
	assert.NoError(t, err, "a full window is not an error")
	assert.False(t, allowed)
}

func TestRateLimiter_NextWindowFreesSlots(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ctx := context.Background()
	alignWindow(t)

	allowed, err := rl.Acquire(ctx, 10*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, allowed)

	// The window is full, so this acquire has to wait out the boundary.
	allowed, err = rl.Acquire(ctx, 2*time.Second)
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_WindowKeysCarryTTL(t *testing.T) {
	rl, mr := newTestLimiter(t, 3)
	alignWindow(t)

	key := fmt.Sprintf("gulp:rate:downstream:%d", time.Now().Unix())
	allowed, err := rl.Acquire(context.Background(), 10*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, allowed)

	assert.Equal(t, 2*time.Second, mr.TTL(key))

	mr.FastForward(3 * time.Second)
	assert.False(t, mr.Exists(key), "expired window counters should be gone")
}

func TestRateLimiter_CancelledContextStopsWaiting(t *testing.T) {
	rl, _ := newTestLimiter(t, 0)
	alignWindow(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	allowed, err := rl.Acquire(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, allowed)
}

func TestRateLimiter_ConcurrentBurstRespectsLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 5)
	ctx := context.Background()
	alignWindow(t)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := rl.Acquire(ctx, 10*time.Millisecond)
			assert.NoError(t, err)
			if allowed {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), granted.Load())
}
