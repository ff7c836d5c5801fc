package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound      = errors.New("proctoring session not found")
	ErrSessionAccessDenied  = errors.New("access denied to proctoring session")
	ErrSessionNotActive     = errors.New("proctoring session is not active")
	ErrSessionAlreadyExists = errors.New("proctoring session already exists for this attempt")

	// Attempt specific errors
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptNotActive    = errors.New("attempt is not in progress")
	ErrAttemptNotConcluded = errors.New("attempt has not concluded")

	// Event specific errors
	ErrEmptyEventBatch     = errors.New("event batch is empty")
	ErrEmptyWarningMessage = errors.New("warning message cannot be empty")

	// Risk rule specific errors
	ErrRiskRuleNotFound = errors.New("risk rule not found")

	// Decision specific errors
	ErrDecisionNotFound  = errors.New("decision not found")
	ErrDecisionFinalized = errors.New("decision is finalized - use override")

	// Evidence specific errors
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrInvalidContentType = errors.New("content type not allowed for evidence type")
	ErrUploadTokenInvalid = errors.New("upload token is invalid or expired")

	// External dependency errors. Retryable by the caller; the enclosing
	// transaction has been rolled back.
	ErrExternalDependency = errors.New("external dependency failure")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrRiskRuleNotFound) ||
		errors.Is(err, ErrDecisionNotFound) ||
		errors.Is(err, ErrEvidenceNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition.
// Ownership mismatches deliberately share the response shape of state
// errors so callers cannot probe for resource existence.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSessionAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsInvalidState checks if error represents a rejected state transition
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionAlreadyExists) ||
		errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrAttemptNotConcluded) ||
		errors.Is(err, ErrDecisionFinalized)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrEmptyWarningMessage) ||
		errors.Is(err, ErrEmptyEventBatch) ||
		errors.Is(err, ErrInvalidContentType) {
		return true
	}
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsRetryable checks if error represents a transient external failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExternalDependency)
}
