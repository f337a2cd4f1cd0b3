package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/http/response"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
	"github.com/yungbote/coursemedia-backend/internal/realtime"
)

type StatusReader interface {
	Status(ctx context.Context, jobID string) (*course.ProcessingStatus, error)
}

// EventsHandler streams a module's status changes over SSE.
type EventsHandler struct {
	log    *logger.Logger
	hub    *realtime.Hub
	status StatusReader
}

func NewEventsHandler(log *logger.Logger, hub *realtime.Hub, status StatusReader) *EventsHandler {
	return &EventsHandler{log: log.With("handler", "EventsHandler"), hub: hub, status: status}
}

// GET /api/instructor/modules/:module_id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	moduleID := c.Param("module_id")
	if moduleID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_field", errors.New("module_id is required"))
		return
	}
	client := h.hub.NewClient()
	h.hub.AddChannel(client, realtime.ModuleChannel(moduleID))
	defer h.hub.CloseClient(client)

	// Replay the current record so late subscribers start from a known state.
	if st, err := h.status.Status(c.Request.Context(), moduleID); err == nil && st != nil {
		client.Outbound <- realtime.Message{
			Channel: realtime.ModuleChannel(moduleID),
			Event:   realtime.EventModuleProcessingStatus,
			Data:    st,
		}
	} else if err != nil && !errors.Is(err, course.ErrStatusNotFound) {
		h.log.Warn("SSE status replay failed", "module_id", moduleID, "error", err)
	}

	h.log.Debug("SSE stream open", "client_id", client.ID, "module_id", moduleID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
