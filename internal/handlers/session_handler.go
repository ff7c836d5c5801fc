package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *utils.Validator
}

type FlagSessionRequest struct {
	Flagged bool `json:"flagged"`
}

type SendWarningRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type TerminateSessionRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=2000"`
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *utils.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// StartSession starts (or resumes) a proctoring session for an attempt
// @Summary Start proctoring session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}

	h.LogRequest(c, "Starting proctoring session", "attempt_id", req.AttemptID, "mode", req.Mode)

	session, err := h.sessionService.Start(c.Request.Context(), &req, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// EndSession completes an active session and freezes its final risk score
// @Summary End proctoring session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Ending proctoring session", "session_id", sessionID)

	session, err := h.sessionService.End(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// CancelSession cancels a session regardless of its current status
// @Summary Cancel proctoring session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/cancel [post]
func (h *SessionHandler) CancelSession(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	userID := requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Cancelling proctoring session", "session_id", sessionID)

	if err := h.sessionService.Cancel(c.Request.Context(), sessionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session cancelled"})
}

// FlagSession marks or unmarks a session for closer review
// @Summary Flag proctoring session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param flag body FlagSessionRequest true "Flag state"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/flag [post]
func (h *SessionHandler) FlagSession(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	proctorID := requireUserID(c)
	if proctorID == "" {
		return
	}

	var req FlagSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Flagging proctoring session", "session_id", sessionID, "flagged", req.Flagged)

	if err := h.sessionService.Flag(c.Request.Context(), sessionID, req.Flagged, proctorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session flag updated"})
}

// SendWarning queues a warning message for the candidate
// @Summary Send warning to candidate
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param warning body SendWarningRequest true "Warning message"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/warning [post]
func (h *SessionHandler) SendWarning(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	proctorID := requireUserID(c)
	if proctorID == "" {
		return
	}

	var req SendWarningRequest
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

	h.LogRequest(c, "Sending warning to candidate", "session_id", sessionID)

	if err := h.sessionService.SendWarning(c.Request.Context(), sessionID, req.Message, proctorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Warning queued for delivery"})
}

// TerminateSession force-ends a session and its attempt
// @Summary Terminate proctoring session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param termination body TerminateSessionRequest true "Termination reason"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/terminate [post]
func (h *SessionHandler) TerminateSession(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	proctorID := requireUserID(c)
	if proctorID == "" {
		return
	}

	var req TerminateSessionRequest
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

	h.LogRequest(c, "Terminating proctoring session", "session_id", sessionID)

	if err := h.sessionService.Terminate(c.Request.Context(), sessionID, req.Reason, proctorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session terminated"})
}

// GetSession returns one session with its recent events
// @Summary Get proctoring session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions with filtering and sorting
// @Summary List proctoring sessions
// @Tags sessions
// @Produce json
// @Param status query string false "Session status"
// @Param exam_id query uint false "Exam ID"
// @Param candidate_id query string false "Candidate ID"
// @Param is_flagged query bool false "Flagged only"
// @Param min_risk_score query number false "Minimum risk score"
// @Success 200 {object} ListResponse
// @Router /proctoring/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := parseSessionFilters(c)

	sessions, total, err := h.sessionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: sessions, Total: total})
}

// GetCandidateStatus is the candidate-facing status poll; it delivers and
// clears any pending warning
// @Summary Poll session status
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.CandidateStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /proctoring/sessions/{id}/status [get]
func (h *SessionHandler) GetCandidateStatus(c *gin.Context) {
	sessionID := parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	candidateID := requireUserID(c)
	if candidateID == "" {
		return
	}

	status, err := h.sessionService.GetCandidateStatus(c.Request.Context(), sessionID, candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	filters := repositories.SessionFilters{
		Limit:     queryInt(c, "limit", 50),
		Offset:    queryInt(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		s := models.SessionStatus(status)
		filters.Status = &s
	}
	if examID := c.Query("exam_id"); examID != "" {
		if id, err := strconv.ParseUint(examID, 10, 32); err == nil {
			v := uint(id)
			filters.ExamID = &v
		}
	}
	if candidateID := c.Query("candidate_id"); candidateID != "" {
		filters.CandidateID = &candidateID
	}
	if flagged := c.Query("is_flagged"); flagged != "" {
		if v, err := strconv.ParseBool(flagged); err == nil {
			filters.IsFlagged = &v
		}
	}
	if minRisk := c.Query("min_risk_score"); minRisk != "" {
		if v, err := strconv.ParseFloat(minRisk, 64); err == nil {
			filters.MinRiskScore = &v
		}
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}
	return filters
}
