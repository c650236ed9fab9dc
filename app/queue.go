package app

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueScheduledKey = "gulp:queue:scheduled"
	queueReadyKey     = "gulp:queue:ready"
	queueInflightKey  = "gulp:queue:inflight"
)

// dequeueScript promotes due scheduled tasks and expired in-flight tasks
// onto the ready list, then pops one task and parks it in-flight until its
// visibility deadline.  One round trip, atomic under concurrent workers.
var dequeueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('LPUSH', KEYS[2], id)
end
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[3], id)
  redis.call('LPUSH', KEYS[2], id)
end
local id = redis.call('RPOP', KEYS[2])
if not id then
  return false
end
redis.call('ZADD', KEYS[3], ARGV[2], id)
return id
`)

var retryScript = redis.NewScript(`
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// TaskQueue is a Redis-backed delivery queue with three stages: a scheduled
// set ordered by ETA, a ready list, and an in-flight set ordered by
// visibility deadline.  Tasks are event IDs; crashing mid-task means the
// deadline lapses and the task is handed to another worker.
type TaskQueue struct {
	rdb        *redis.Client
	visibility time.Duration
}

func NewTaskQueue(rdb *redis.Client, visibility time.Duration) *TaskQueue {
	return &TaskQueue{rdb: rdb, visibility: visibility}
}

// Enqueue makes eventID runnable after delay.  A non-positive delay puts it
// straight on the ready list.
func (q *TaskQueue) Enqueue(ctx context.Context, eventID string, delay time.Duration) error {
	if delay <= 0 {
		return q.rdb.LPush(ctx, queueReadyKey, eventID).Err()
	}
	eta := float64(time.Now().Add(delay).UnixMilli())
	return q.rdb.ZAdd(ctx, queueScheduledKey, redis.Z{Score: eta, Member: eventID}).Err()
}

// Dequeue returns the next ready task, or ok=false when there is nothing
// due.  The task stays invisible to other workers until Ack, Retry, or the
// visibility deadline.
func (q *TaskQueue) Dequeue(ctx context.Context) (string, bool, error) {
	now := time.Now()
	keys := []string{queueScheduledKey, queueReadyKey, queueInflightKey}
	deadline := now.Add(q.visibility).UnixMilli()
	id, err := dequeueScript.Run(ctx, q.rdb, keys, now.UnixMilli(), deadline).Text()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Ack removes a completed task from the in-flight set.
func (q *TaskQueue) Ack(ctx context.Context, eventID string) error {
	return q.rdb.ZRem(ctx, queueInflightKey, eventID).Err()
}

// Retry moves an in-flight task back to the scheduled set, runnable again
// after delay.
func (q *TaskQueue) Retry(ctx context.Context, eventID string, delay time.Duration) error {
	eta := time.Now().Add(delay).UnixMilli()
	keys := []string{queueInflightKey, queueScheduledKey}
	return retryScript.Run(ctx, q.rdb, keys, eventID, eta).Err()
}
