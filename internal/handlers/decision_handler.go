package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type DecisionHandler struct {
	BaseHandler
	decisionService services.DecisionService
	validator       *utils.Validator
}

func NewDecisionHandler(
	decisionService services.DecisionService,
	validator *utils.Validator,
	logger utils.Logger,
) *DecisionHandler {
	return &DecisionHandler{
		BaseHandler:     NewBaseHandler(logger),
		decisionService: decisionService,
		validator:       validator,
	}
}

// MakeDecision records or updates the disposition of a session
// @Summary Make session decision
// @Tags decisions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param decision body services.MakeDecisionRequest true "Decision data"
// @Success 200 {object} models.ProctorDecision
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/decision [post]
func (h *DecisionHandler) MakeDecision(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	reviewerID := requireUserID(c)
	if reviewerID == "" {
		return
	}

	var req services.MakeDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Recording session decision", "session_id", sessionID, "status", req.Status)

	decision, err := h.decisionService.MakeDecision(c.Request.Context(), sessionID, &req, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// OverrideDecision changes a finalized decision through the audited
// override path
// @Summary Override decision
// @Tags decisions
// @Accept json
// @Produce json
// @Param id path uint true "Decision ID"
// @Param override body services.OverrideDecisionRequest true "Override data"
// @Success 200 {object} models.ProctorDecision
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/decisions/{id}/override [post]
func (h *DecisionHandler) OverrideDecision(c *gin.Context) {
	decisionID := parseIDParam(c, "id")
	if decisionID == 0 {
		return
	}
	adminID := requireUserID(c)
	if adminID == "" {
		return
	}

	var req services.OverrideDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Overriding decision", "decision_id", decisionID, "status", req.Status)

	decision, err := h.decisionService.Override(c.Request.Context(), decisionID, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// GetDecision returns the decision for a session
// @Summary Get session decision
// @Tags decisions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} models.ProctorDecision
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/decision [get]
func (h *DecisionHandler) GetDecision(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	decision, err := h.decisionService.GetBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// GetDecisionHistory returns the append-only decision log
// @Summary Get decision history
// @Tags decisions
// @Produce json
// @Param id path uint true "Decision ID"
// @Success 200 {array} models.ProctorDecisionLog
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/decisions/{id}/history [get]
func (h *DecisionHandler) GetDecisionHistory(c *gin.Context) {
	decisionID := parseIDParam(c, "id")
	if decisionID == 0 {
		return
	}

	logs, err := h.decisionService.GetHistory(c.Request.Context(), decisionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
