package repository

import (
	"fmt"
)

// CreateEventSlotIndex creates a Mango index on the events database so archived events
// can be queried by slot and kind. Non CouchDB repositories have nothing to index.
func CreateEventSlotIndex(eventRepo Repository) error {
	couch, ok := eventRepo.(*CouchDBRepository)
	if !ok {
		return nil
	}
	slotIndex := map[string]interface{}{
		"index": map[string]interface{}{
			"fields": []map[string]interface{}{
				{"slot": "desc"},
				{"kind": "desc"},
			},
		},
		"name": "event-slot-kind-desc-index",
		"type": "json",
		"ddoc": "event-slot-kind-desc-index",
	}
	resp, rErr := couch.GetClient().R().SetBody(slotIndex).Post(fmt.Sprintf("%s/%s", eventRepo.GetDBName(), "_index"))
	if rErr != nil {
		return rErr
	}
	if resp.IsError() {
		return handleError(resp)
	}
	return nil
}
