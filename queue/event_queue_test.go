package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/services"
	"github.com/quresis/go-quresis-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() (*EventQueue, *services.EventService) {
	selector := repository.NewCouchDBSelector()
	selector.AddDB(repository.NewMemoryRepository(repository.Event))
	eventService := services.NewEventService(selector)
	return NewEventQueue(eventService, nil), eventService
}

func TestProcessEventTask(t *testing.T) {
	eq, eventService := newTestQueue()
	var owner types.PublicKey
	owner[0] = 1
	event := types.NewFreezeToggledEvent(owner, true, 5, time.Unix(1700000000, 0))
	task, err := types.NewEventPublishTask(event)
	require.NoError(t, err)

	require.NoError(t, eq.ProcessEventTask(context.Background(), task))
	// redelivery is harmless
	require.NoError(t, eq.ProcessEventTask(context.Background(), task))

	stored, err := eventService.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, event.ID, stored[0].ID)
}

func TestProcessEventTaskSkipsRetryOnBadInput(t *testing.T) {
	eq, _ := newTestQueue()

	err := eq.ProcessEventTask(context.Background(), asynq.NewTask("message:send", nil))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = eq.ProcessEventTask(context.Background(), asynq.NewTask(types.QueueTypeEventPublish, []byte{0xff, 0x00}))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	empty, _ := types.NewEventPublishTask(&types.Event{})
	err = eq.ProcessEventTask(context.Background(), empty)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
