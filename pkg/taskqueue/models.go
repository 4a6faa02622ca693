package taskqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of one task execution. Attempt starts at 1
// and is bumped on every retry re-enqueue.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Task       string          `json:"task"`
	Args       json.RawMessage `json:"args"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler executes one task body.
type Handler func(ctx context.Context, args json.RawMessage) error

// Enqueuer is the producer-side surface of a queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task string, args any, delay time.Duration) error
}
