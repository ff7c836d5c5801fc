package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type TriageHandler struct {
	BaseHandler
	triageService services.TriageService
}

func NewTriageHandler(
	triageService services.TriageService,
	logger utils.Logger,
) *TriageHandler {
	return &TriageHandler{
		BaseHandler:   NewBaseHandler(logger),
		triageService: triageService,
	}
}

// GetRecommendations returns the live sessions a proctor should look at
// first
// @Summary Get triage recommendations
// @Tags triage
// @Produce json
// @Param limit query int false "Maximum entries" default(20)
// @Success 200 {array} services.TriageEntry
// @Router /proctoring/triage [get]
func (h *TriageHandler) GetRecommendations(c *gin.Context) {
	limit := queryInt(c, "limit", 20)

	entries, err := h.triageService.GetRecommendations(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
