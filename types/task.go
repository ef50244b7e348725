package types

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/hibiken/asynq"
)

var (
	QueueTypeEventPublish = "event:publish"
)

// NewEventPublishTask wraps an event into a queue task (CBOR payload)
func NewEventPublishTask(event *Event) (*asynq.Task, error) {
	payload, err := cbor.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(QueueTypeEventPublish, payload), nil
}

// DecodeEventPayload is the inverse of NewEventPublishTask
func DecodeEventPayload(payload []byte) (*Event, error) {
	var event Event
	if err := cbor.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
