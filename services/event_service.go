package services

import (
	"context"
	"errors"

	"github.com/quresis/go-quresis-server/repository"
	"github.com/quresis/go-quresis-server/types"
)

// EventService stores delivered events in the events database
type EventService struct {
	eventRepo repository.Repository
}

func NewEventService(dbSelector repository.DBSelector) *EventService {
	eventRepo, err := dbSelector.ChooseDB(repository.Event)
	if err != nil {
		panic(err)
	}
	return &EventService{eventRepo: eventRepo}
}

// Store saves the event under its id. Redelivery of a stored event is a no-op.
func (es *EventService) Store(ctx context.Context, event *types.Event) error {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	doc := &types.EventDocument{Event: *event}
	err := es.eventRepo.Save(sctx, event.ID, doc)
	if errors.Is(err, types.ErrConflict) {
		return nil
	}
	return err
}

// List returns a page of stored events
func (es *EventService) List(ctx context.Context, limit, skip int) ([]*types.Event, error) {
	sctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	docs, err := es.eventRepo.GetAll(sctx, limit, skip)
	if err != nil {
		return nil, err
	}
	events := make([]*types.Event, 0, len(docs))
	for _, raw := range docs {
		var doc types.EventDocument
		if mErr := repository.MapToObject(raw, &doc); mErr != nil {
			continue
		}
		event := doc.Event
		events = append(events, &event)
	}
	return events, nil
}
