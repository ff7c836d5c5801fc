package events

import (
	"time"

	"github.com/google/uuid"
)

// ProctoringEventType represents different types of outbound proctoring events
type ProctoringEventType string

const (
	// Session events
	SessionTerminated ProctoringEventType = "proctoring.session_terminated"
	SessionFlagged    ProctoringEventType = "proctoring.session_flagged"
	WarningSent       ProctoringEventType = "proctoring.warning_sent"

	// Decision events
	DecisionMade       ProctoringEventType = "proctoring.decision_made"
	DecisionOverridden ProctoringEventType = "proctoring.decision_overridden"
)

// ProctoringEvent is the base structure for all outbound proctoring events
type ProctoringEvent struct {
	ID        string                 `json:"id"`
	Type      ProctoringEventType    `json:"type"`
	SessionID uint                   `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewProctoringEvent builds an event envelope ready for publishing
func NewProctoringEvent(eventType ProctoringEventType, sessionID uint, data map[string]interface{}) *ProctoringEvent {
	return &ProctoringEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Source:    "proctoring-service",
		Version:   "1.0",
		Data:      data,
	}
}
