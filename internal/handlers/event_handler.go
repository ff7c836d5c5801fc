package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	BaseHandler
	eventService services.EventService
	validator    *utils.Validator
}

type BulkLogRequest struct {
	Events []*services.LogEventRequest `json:"events" validate:"required,min=1,max=100"`
}

func NewEventHandler(
	eventService services.EventService,
	validator *utils.Validator,
	logger utils.Logger,
) *EventHandler {
	return &EventHandler{
		BaseHandler:  NewBaseHandler(logger),
		eventService: eventService,
		validator:    validator,
	}
}

// LogEvent records a single proctoring event
// @Summary Log proctoring event
// @Tags events
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param event body services.LogEventRequest true "Event data"
// @Success 201 {object} services.LogEventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/events [post]
func (h *EventHandler) LogEvent(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	var req services.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.eventService.LogEvent(c.Request.Context(), sessionID, &req, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// BulkLogEvents records a batch of events in caller order
// @Summary Log proctoring events in bulk
// @Tags events
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param events body BulkLogRequest true "Event batch"
// @Success 201 {object} services.BulkLogResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/events/batch [post]
func (h *EventHandler) BulkLogEvents(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	var req BulkLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Ingesting event batch", "session_id", sessionID, "count", len(req.Events))

	result, err := h.eventService.BulkLog(c.Request.Context(), sessionID, req.Events, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Heartbeat records client liveness and piggybacks pending warnings
// @Summary Session heartbeat
// @Tags events
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param heartbeat body services.HeartbeatRequest false "Heartbeat data"
// @Success 200 {object} services.HeartbeatResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/heartbeat [post]
func (h *EventHandler) Heartbeat(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	var req services.HeartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	result, err := h.eventService.Heartbeat(c.Request.Context(), sessionID, &req, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SweepHeartbeats triggers a missed-heartbeat sweep on demand. The same
// sweep runs on a background ticker; this endpoint exists for operators.
// @Summary Sweep missed heartbeats
// @Tags admin
// @Produce json
// @Param threshold_seconds query int false "Staleness threshold" default(60)
// @Success 200 {object} services.SweepResult
// @Router /proctoring/admin/sweep/heartbeats [post]
func (h *EventHandler) SweepHeartbeats(c *gin.Context) {
	threshold := queryInt(c, "threshold_seconds", 60)

	h.LogRequest(c, "Manual heartbeat sweep", "threshold_seconds", threshold)

	result, err := h.eventService.SweepMissedHeartbeats(c.Request.Context(), threshold)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
