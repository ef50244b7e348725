package queue

import (
	"context"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/hibiken/asynq"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
)

// EventQueue consumes published events: stores them and archives them when enabled
type EventQueue struct {
	eventService   *services.EventService
	archiveService *services.ArchiveService
}

func NewEventQueue(eventService *services.EventService, archiveService *services.ArchiveService) *EventQueue {
	return &EventQueue{
		eventService:   eventService,
		archiveService: archiveService,
	}
}

// Processing of event tasks
func (eq *EventQueue) ProcessEventTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != types.QueueTypeEventPublish {
		// no responses on unrecognized tasks
		return fmt.Errorf("unexpected task type: %s, %w", t.Type(), asynq.SkipRetry)
	}
	event, err := types.DecodeEventPayload(t.Payload())
	if err != nil {
		return fmt.Errorf("cbor.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if event.ID == "" || event.Kind == "" {
		return fmt.Errorf("event without id or kind: %w", asynq.SkipRetry)
	}

	if sErr := eq.eventService.Store(ctx, event); sErr != nil {
		level.Error(global.Logger).Log("msg", "failed to store event", "id", event.ID, "err", sErr)
		return sErr
	}
	if eq.archiveService != nil {
		if _, aErr := eq.archiveService.Archive(ctx, event); aErr != nil {
			return aErr
		}
	}
	return nil
}
