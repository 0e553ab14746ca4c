package events

import (
	"context"

	"github.com/vytor/quizflash/internal/worker"
)

// AsyncPublisher hands events to a worker pool so a slow broker never holds
// up the request that completed the attempt.
type AsyncPublisher struct {
	next Publisher
	pool *worker.Pool
}

func NewAsyncPublisher(next Publisher, pool *worker.Pool) *AsyncPublisher {
	return &AsyncPublisher{next: next, pool: pool}
}

// PublishAttemptCompleted enqueues the event. It only fails when the queue
// is full or stopped.
func (p *AsyncPublisher) PublishAttemptCompleted(_ context.Context, event AttemptCompleted) error {
	return p.pool.Submit(&publishJob{publisher: p.next, event: event})
}

// Close closes the wrapped publisher. Stop the pool first so queued events
// are flushed.
func (p *AsyncPublisher) Close() error {
	return p.next.Close()
}

type publishJob struct {
	publisher Publisher
	event     AttemptCompleted
}

func (j *publishJob) Name() string { return "publish_" + j.event.Type }

func (j *publishJob) Run(ctx context.Context) error {
	return j.publisher.PublishAttemptCompleted(ctx, j.event)
}
