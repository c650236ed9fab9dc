package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window keys expire after 2 seconds, one second past the window they
// govern, so stale counters clean themselves up.
const rateWindowTTLSeconds = 2

var acquireScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter enforces a global requests-per-second ceiling across every
// worker in every process sharing the same Redis.  Each wall-clock second
// is one fixed window counted with INCR.
type RateLimiter struct {
	rdb       *redis.Client
	limit     int
	keyPrefix string
}

func NewRateLimiter(rdb *redis.Client, limit int) *RateLimiter {
	return &RateLimiter{
		rdb:       rdb,
		limit:     limit,
		keyPrefix: "gulp:rate:downstream",
	}
}

// Acquire takes one slot in the current second's window.  If the window is
// full it sleeps to the next window boundary and tries again, giving up
// once the next boundary would land past the timeout.  A false return with
// nil error means the caller should treat the work as locally rate limited.
func (rl *RateLimiter) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		now := time.Now()
		key := fmt.Sprintf("%s:%d", rl.keyPrefix, now.Unix())
		count, err := acquireScript.Run(ctx, rl.rdb, []string{key}, rateWindowTTLSeconds).Int64()
		if err != nil {
			return false, err
		}
		if count <= int64(rl.limit) {
			return true, nil
		}

		nextWindow := now.Truncate(time.Second).Add(time.Second)
		if nextWindow.After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Until(nextWindow)):
		}
	}
}
