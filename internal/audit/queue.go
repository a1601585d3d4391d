package audit

import (
	"context"

	"qrattend/internal/queue"
)

// QueueLogger publishes validation entries to a queue; a worker drains the
// queue into Postgres. Keeps audit writes off the submission path.
type QueueLogger struct {
	q queue.Queue
}

// NewQueueLogger creates a logger that publishes to q.
func NewQueueLogger(q queue.Queue) *QueueLogger {
	return &QueueLogger{q: q}
}

// Record enqueues one entry.
func (l *QueueLogger) Record(ctx context.Context, e Entry) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	return l.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}
