package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps paginated collections
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", currentUserID(c),
	}
	fields = append(fields, additionalFields...)

	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", currentUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.logger.LogError(err, message, fields...)
}

// handleServiceError maps service errors to HTTP responses. Ownership
// failures return 404 so probing cannot distinguish "not yours" from
// "not there".
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionAccessDenied):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Proctoring session not found",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Proctoring session not found",
		})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Proctoring session is not active",
		})
	case errors.Is(err, services.ErrSessionAlreadyExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "A proctoring session already ended for this attempt",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrAttemptNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt is not in progress",
		})
	case errors.Is(err, services.ErrAttemptNotConcluded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt has not concluded yet",
		})
	case errors.Is(err, services.ErrEmptyEventBatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Event batch is empty",
		})
	case errors.Is(err, services.ErrEmptyWarningMessage):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Warning message cannot be empty",
		})
	case errors.Is(err, services.ErrRiskRuleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Risk rule not found",
		})
	case errors.Is(err, services.ErrDecisionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Decision not found",
		})
	case errors.Is(err, services.ErrDecisionFinalized):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Decision is finalized - use the override endpoint",
		})
	case errors.Is(err, services.ErrEvidenceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Evidence not found",
		})
	case errors.Is(err, services.ErrInvalidContentType):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Content type not allowed for evidence type",
		})
	case errors.Is(err, services.ErrUploadTokenInvalid):
		c.JSON(http.StatusGone, ErrorResponse{
			Message: "Upload token is invalid or expired",
		})
	case errors.Is(err, services.ErrExternalDependency):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "A dependent service is unavailable, please retry",
		})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource conflict",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
