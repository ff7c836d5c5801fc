package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with proctoring-domain custom tags.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate runs struct-tag validation and converts failures to the
// shared ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateProctorEventType(fl validator.FieldLevel) bool {
	validTypes := []models.ProctorEventType{
		models.EventHeartbeat,
		models.EventTabSwitched,
		models.EventWindowBlur,
		models.EventFullscreenExited,
		models.EventCopyAttempt,
		models.EventPasteAttempt,
		models.EventDevToolsOpened,
		models.EventFaceNotDetected,
		models.EventFaceOutOfFrame,
		models.EventMultipleFaces,
		models.EventCameraBlocked,
		models.EventNetworkDisconnect,
		models.EventProctorFlagged,
		models.EventProctorUnflagged,
		models.EventProctorWarning,
		models.EventProctorTerminated,
		models.EventAttemptForceEnded,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateSessionMode(fl validator.FieldLevel) bool {
	validModes := []models.SessionMode{
		models.ModeSoft,
		models.ModeHard,
	}

	value := fl.Field().String()
	for _, validMode := range validModes {
		if string(validMode) == value {
			return true
		}
	}
	return false
}

func ValidateDecisionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.DecisionStatus{
		models.DecisionPending,
		models.DecisionCleared,
		models.DecisionInvalidated,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func ValidateEvidenceType(fl validator.FieldLevel) bool {
	validTypes := []models.EvidenceType{
		models.EvidenceImage,
		models.EvidenceVideo,
		models.EvidenceAudio,
		models.EvidenceScreenCap,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("proctor_event_type", ValidateProctorEventType)
	validate.RegisterValidation("session_mode", ValidateSessionMode)
	validate.RegisterValidation("decision_status", ValidateDecisionStatus)
	validate.RegisterValidation("evidence_type", ValidateEvidenceType)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
