package taskqueue

import (
	"context"
	"time"

	"pulsewatch/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// RunPromoter moves due envelopes from the delayed set to the broker.
// Blocks until ctx is done; run it in its own goroutine per queue.
func (q *Queue) RunPromoter(ctx context.Context) {
	if q.promoteInterval <= 0 {
		panic("promote interval must be > 0")
	}

	q.logger.Info().Str("queue", q.name).Msg("task promoter started")
	ticker := time.NewTicker(q.promoteInterval)
	defer func() {
		ticker.Stop()
		q.logger.Info().Str("queue", q.name).Msg("task promoter stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) {
	now := time.Now()

	envelopes, err := q.store.PopDueTasks(ctx, popDueTasksScript, q.name, now, q.batchSize)
	if err != nil {
		// transient redis error → log & move on
		q.logger.Error().Err(err).Str("queue", q.name).Msg("failed to pop due tasks")
		return
	}
	if len(envelopes) == 0 {
		return
	}

	bodies := make([][]byte, 0, len(envelopes))
	for _, env := range envelopes {
		bodies = append(bodies, []byte(env))
	}

	if err := q.broker.PublishBatch(ctx, bodies); err != nil {
		q.logger.Error().
			Err(err).
			Str("queue", q.name).
			Int("count", len(envelopes)).
			Msg("broker publish failed, reinserting batch")

		// Put the whole batch back so nothing is lost; the envelopes
		// are due already, so score them at now.
		reinsert := make([]redis.Z, 0, len(envelopes))
		for _, env := range envelopes {
			reinsert = append(reinsert, redis.Z{
				Score:  float64(now.UnixMilli()),
				Member: env,
			})
		}
		if err := q.store.ScheduleTaskBatch(ctx, q.name, reinsert); err != nil {
			q.logger.Error().Err(err).Str("queue", q.name).Msg("failed to reinsert batch")
		}
		return
	}

	metrics.TasksPromotedTotal.WithLabelValues(q.name).Add(float64(len(envelopes)))
}
