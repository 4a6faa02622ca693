package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func delayedKey(queue string) string {
	return fmt.Sprintf("tasks:delayed:%s", queue)
}

// ScheduleTask stores a serialized task envelope in the queue's delayed
// set, scored by its due time.
func (c *Client) ScheduleTask(ctx context.Context, queue string, envelope string, due time.Time) error {
	return retry(ctx, 3, func() error {
		return c.rdb.ZAdd(ctx, delayedKey(queue), redis.Z{
			Score:  float64(due.UnixMilli()),
			Member: envelope,
		}).Err()
	})
}

func (c *Client) ScheduleTaskBatch(ctx context.Context, queue string, items []redis.Z) error {
	if len(items) == 0 {
		return nil
	}

	return retry(ctx, 3, func() error {
		return c.rdb.ZAdd(ctx, delayedKey(queue), items...).Err()
	})
}

// PopDueTasks atomically removes and returns envelopes whose due time
// has passed, oldest first. The script is owned by the caller.
func (c *Client) PopDueTasks(ctx context.Context, script string, queue string, now time.Time, limit int) ([]string, error) {
	nowMillis := now.UnixMilli()

	result, err := c.rdb.Eval(ctx, script, []string{delayedKey(queue)}, nowMillis, limit).Result()
	if err != nil {
		return nil, err
	}

	rawItems, ok := result.([]any)
	if !ok {
		return nil, nil
	}

	envelopes := make([]string, 0, len(rawItems))
	for _, item := range rawItems {
		if str, ok := item.(string); ok {
			envelopes = append(envelopes, str)
		}
	}

	return envelopes, nil
}

// DelayedCount reports how many envelopes are waiting in a queue's
// delayed set. Used by the ops surface.
func (c *Client) DelayedCount(ctx context.Context, queue string) (int64, error) {
	return c.rdb.ZCard(ctx, delayedKey(queue)).Result()
}
