package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	BaseHandler
	riskService services.RiskService
	validator   *utils.Validator
}

type ToggleRuleRequest struct {
	IsActive bool `json:"is_active"`
}

func NewRuleHandler(
	riskService services.RiskService,
	validator *utils.Validator,
	logger utils.Logger,
) *RuleHandler {
	return &RuleHandler{
		BaseHandler: NewBaseHandler(logger),
		riskService: riskService,
		validator:   validator,
	}
}

// CreateRule creates a risk scoring rule
// @Summary Create risk rule
// @Tags risk-rules
// @Accept json
// @Produce json
// @Param rule body services.CreateRiskRuleRequest true "Rule data"
// @Success 201 {object} models.ProctorRiskRule
// @Failure 400 {object} ErrorResponse
// @Router /proctoring/risk-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	creatorID := requireUserID(c)
	if creatorID == "" {
		return
	}

	var req services.CreateRiskRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating risk rule", "name", req.Name, "event_type", req.EventType)

	rule, err := h.riskService.CreateRule(c.Request.Context(), &req, creatorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces a rule's configuration
// @Summary Update risk rule
// @Tags risk-rules
// @Accept json
// @Produce json
// @Param id path uint true "Rule ID"
// @Param rule body services.CreateRiskRuleRequest true "Rule data"
// @Success 200 {object} models.ProctorRiskRule
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/risk-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID := parseIDParam(c, "id")
	if ruleID == 0 {
		return
	}

	var req services.CreateRiskRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating risk rule", "rule_id", ruleID)

	rule, err := h.riskService.UpdateRule(c.Request.Context(), ruleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule soft-deletes a rule
// @Summary Delete risk rule
// @Tags risk-rules
// @Produce json
// @Param id path uint true "Rule ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/risk-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	ruleID := parseIDParam(c, "id")
	if ruleID == 0 {
		return
	}

	h.LogRequest(c, "Deleting risk rule", "rule_id", ruleID)

	if err := h.riskService.DeleteRule(c.Request.Context(), ruleID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Risk rule deleted"})
}

// ToggleRule activates or deactivates a rule without editing it
// @Summary Toggle risk rule
// @Tags risk-rules
// @Accept json
// @Produce json
// @Param id path uint true "Rule ID"
// @Param toggle body ToggleRuleRequest true "Active state"
// @Success 200 {object} models.ProctorRiskRule
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/risk-rules/{id}/toggle [put]
func (h *RuleHandler) ToggleRule(c *gin.Context) {
	ruleID := parseIDParam(c, "id")
	if ruleID == 0 {
		return
	}

	var req ToggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	rule, err := h.riskService.ToggleRule(c.Request.Context(), ruleID, req.IsActive)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// ListRules lists rules with optional filters
// @Summary List risk rules
// @Tags risk-rules
// @Produce json
// @Param event_type query string false "Event type"
// @Param is_active query bool false "Active only"
// @Success 200 {object} ListResponse
// @Router /proctoring/risk-rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	filters := repositories.RuleFilters{
		Limit:  queryInt(c, "limit", 100),
		Offset: queryInt(c, "offset", 0),
	}
	if eventType := c.Query("event_type"); eventType != "" {
		et := models.ProctorEventType(eventType)
		filters.EventType = &et
	}
	if active := c.Query("is_active"); active != "" {
		if v, err := strconv.ParseBool(active); err == nil {
			filters.IsActive = &v
		}
	}

	rules, total, err := h.riskService.ListRules(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: rules, Total: total})
}

// CalculateRisk runs an on-demand risk calculation for a session
// @Summary Calculate session risk
// @Tags risk
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.RiskCalculationResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/risk/calculate [post]
func (h *RuleHandler) CalculateRisk(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Calculating session risk", "session_id", sessionID)

	result, err := h.riskService.Calculate(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRiskSnapshots returns the calculation history for a session
// @Summary Get risk snapshots
// @Tags risk
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {array} models.ProctorRiskSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/risk/snapshots [get]
func (h *RuleHandler) GetRiskSnapshots(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	snapshots, err := h.riskService.GetSnapshots(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshots)
}
