package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quresis/go-quresis-server/services"
)

type EventApi struct {
	eventService *services.EventService
}

func NewEventApi(eventService *services.EventService) *EventApi {
	return &EventApi{eventService: eventService}
}

// List stored events
// @Summary List events
// @Tags Events
// @Produce json
// @Param limit query int false "page size (max 100)"
// @Param skip query int false "offset"
// @Success 200 {array} types.Event
// @Router /api/v1/events [get]
func (ea *EventApi) ListEvents(c *gin.Context) {
	limit, skip := pageParams(c)
	events, err := ea.eventService.List(c.Request.Context(), limit, skip)
	if err != nil {
		ApiServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
