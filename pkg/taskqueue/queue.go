package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulsewatch/config"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DelayedStore holds not-yet-due envelopes, scored by due time.
type DelayedStore interface {
	ScheduleTask(ctx context.Context, queue string, envelope string, due time.Time) error
	ScheduleTaskBatch(ctx context.Context, queue string, items []redis.Z) error
	PopDueTasks(ctx context.Context, script string, queue string, now time.Time, limit int) ([]string, error)
}

// Broker delivers due envelopes to the worker pool, at least once.
type Broker interface {
	Publish(ctx context.Context, body []byte) error
	PublishBatch(ctx context.Context, bodies [][]byte) error
}

// Queue is one logical task partition: a delayed set in Redis plus a
// durable broker queue. Delivery is at-least-once; handlers must be
// prepared to run twice.
type Queue struct {
	name            string
	maxAttempts     int
	retryBackoff    time.Duration
	promoteInterval time.Duration
	batchSize       int

	store    DelayedStore
	broker   Broker
	handlers map[string]Handler

	logger *zerolog.Logger
}

func New(
	cfg *config.QueueConfig,
	schedCfg *config.SchedulerConfig,
	store DelayedStore,
	broker Broker,
	logger *zerolog.Logger,
) *Queue {

	return &Queue{
		name:            cfg.Name,
		maxAttempts:     cfg.MaxAttempts,
		retryBackoff:    cfg.RetryBackoff,
		promoteInterval: schedCfg.PromoteInterval,
		batchSize:       schedCfg.BatchSize,
		store:           store,
		broker:          broker,
		handlers:        make(map[string]Handler),
		logger:          logger,
	}
}

func (q *Queue) Name() string {
	return q.name
}

// Register binds a task name to its handler. Not safe after consumers
// start; call during container wiring only.
func (q *Queue) Register(task string, h Handler) {
	q.handlers[task] = h
}

// Enqueue accepts a task for execution. Zero delay publishes straight
// to the broker; a positive delay parks the envelope in the delayed set
// until the promoter picks it up.
func (q *Queue) Enqueue(ctx context.Context, task string, args any, delay time.Duration) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal task args: %w", err)
	}

	env := Envelope{
		ID:         uuid.New(),
		Task:       task,
		Args:       raw,
		Attempt:    1,
		EnqueuedAt: time.Now(),
	}

	if err := q.enqueueEnvelope(ctx, env, delay); err != nil {
		return err
	}

	metrics.TasksEnqueuedTotal.WithLabelValues(q.name, task).Inc()
	return nil
}

func (q *Queue) enqueueEnvelope(ctx context.Context, env Envelope, delay time.Duration) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal task envelope: %w", err)
	}

	if delay <= 0 {
		return q.broker.Publish(ctx, body)
	}

	return q.store.ScheduleTask(ctx, q.name, string(body), time.Now().Add(delay))
}

// Handle implements rabbitmq.DeliveryHandler. A handler failure is
// retried by re-enqueueing the same envelope with a fixed backoff until
// the queue's attempt budget runs out; the delivery itself is acked
// either way so the broker never redelivers a poison message forever.
func (q *Queue) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var env Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		q.logger.Error().
			Err(err).
			Str("queue", q.name).
			Msg("dropping undecodable task envelope")
		return nil
	}

	handler, ok := q.handlers[env.Task]
	if !ok {
		q.logger.Error().
			Str("queue", q.name).
			Str("task", env.Task).
			Msg("no handler registered for task")
		return nil
	}

	err := handler(ctx, env.Args)
	if err == nil {
		return nil
	}

	if env.Attempt < q.maxAttempts {
		q.logger.Warn().
			Err(err).
			Str("queue", q.name).
			Str("task", env.Task).
			Int("attempt", env.Attempt).
			Dur("backoff", q.retryBackoff).
			Msg("task failed, scheduling retry")

		env.Attempt++
		if reErr := q.enqueueEnvelope(ctx, env, q.retryBackoff); reErr != nil {
			return fmt.Errorf("re-enqueue after failure: %w", reErr)
		}
		metrics.TaskRetriesTotal.WithLabelValues(q.name, env.Task).Inc()
		return nil
	}

	q.logger.Error().
		Err(err).
		Str("queue", q.name).
		Str("task", env.Task).
		Int("attempt", env.Attempt).
		Msg("task failed permanently, retry budget exhausted")
	return nil
}
