package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/quresis/go-quresis-server/types"
)

// TaskEnqueuer is implemented by *asynq.Client
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSink hands events to the asynq queue for durable persistence and archiving
type QueueSink struct {
	client TaskEnqueuer
}

func NewQueueSink(client TaskEnqueuer) *QueueSink {
	return &QueueSink{client: client}
}

func (q *QueueSink) Emit(ctx context.Context, event *types.Event) error {
	task, err := types.NewEventPublishTask(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),             // max number of times to retry the task
		asynq.Timeout(30*time.Second), // max time to process the task
		asynq.TaskID(event.ID))        // event id makes enqueueing idempotent
	if err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", event.ID, err)
	}
	return nil
}
