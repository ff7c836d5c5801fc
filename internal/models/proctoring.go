package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionMode string

const (
	ModeSoft SessionMode = "soft" // browser-side capture only
	ModeHard SessionMode = "hard" // webcam + browser capture
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "Active"
	SessionCompleted SessionStatus = "Completed"
	SessionCancelled SessionStatus = "Cancelled"
)

// IsTerminal reports whether no further transition out of the status is
// allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type ProctorEventType string

const (
	EventHeartbeat         ProctorEventType = "heartbeat"
	EventTabSwitched       ProctorEventType = "tab_switched"
	EventWindowBlur        ProctorEventType = "window_blur"
	EventFullscreenExited  ProctorEventType = "fullscreen_exited"
	EventCopyAttempt       ProctorEventType = "copy_attempt"
	EventPasteAttempt      ProctorEventType = "paste_attempt"
	EventDevToolsOpened    ProctorEventType = "devtools_opened"
	EventFaceNotDetected   ProctorEventType = "face_not_detected"
	EventFaceOutOfFrame    ProctorEventType = "face_out_of_frame"
	EventMultipleFaces     ProctorEventType = "multiple_faces_detected"
	EventCameraBlocked     ProctorEventType = "camera_blocked"
	EventNetworkDisconnect ProctorEventType = "network_disconnected"
	EventProctorFlagged    ProctorEventType = "proctor_flagged"
	EventProctorUnflagged  ProctorEventType = "proctor_unflagged"
	EventProctorWarning    ProctorEventType = "proctor_warning"
	EventProctorTerminated ProctorEventType = "proctor_terminated"
	EventAttemptForceEnded ProctorEventType = "attempt_force_ended"
)

// violationTypes are event types that count as violations regardless of
// severity. Heartbeats are never violations; severity >= 3 always is.
var violationTypes = map[ProctorEventType]bool{
	EventTabSwitched:      true,
	EventFullscreenExited: true,
	EventCopyAttempt:      true,
	EventPasteAttempt:     true,
	EventDevToolsOpened:   true,
	EventFaceNotDetected:  true,
	EventMultipleFaces:    true,
}

// IsViolation classifies an event at ingestion time. The result is
// stored on the event row and never recomputed.
func IsViolation(eventType ProctorEventType, severity int) bool {
	if eventType == EventHeartbeat {
		return false
	}
	if severity >= 3 {
		return true
	}
	return violationTypes[eventType]
}

// ProctorSession tracks one live exam-taking session end-to-end. At most
// one session exists per (attempt, mode) pair.
type ProctorSession struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	AttemptID   uint        `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_mode;index"`
	ExamID      uint        `json:"exam_id" gorm:"not null;index"`
	CandidateID string      `json:"candidate_id" gorm:"not null;size:255;index"`
	Mode        SessionMode `json:"mode" gorm:"not null;size:16;uniqueIndex:idx_attempt_mode" validate:"omitempty,session_mode"`

	Status    SessionStatus `json:"status" gorm:"default:Active;index"`
	StartedAt time.Time     `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time    `json:"ended_at"`

	// Client environment captured at start.
	DeviceInfo  *string `json:"device_info" gorm:"type:text"`
	BrowserInfo *string `json:"browser_info" gorm:"type:text"`
	IPAddress   string  `json:"ip_address" gorm:"size:45"`

	// Counters are monotonically non-decreasing while Active and mutated
	// only under a row lock (SessionRepository.GetForUpdate).
	TotalEvents     int `json:"total_events" gorm:"default:0"`
	TotalViolations int `json:"total_violations" gorm:"default:0"`

	// Point-in-time gauge overwritten by each risk calculation.
	RiskScore *float64 `json:"risk_score"`

	LastHeartbeatAt      *time.Time `json:"last_heartbeat_at"`
	HeartbeatMissedCount int        `json:"heartbeat_missed_count" gorm:"default:0"`

	IsFlagged             bool    `json:"is_flagged" gorm:"default:false;index"`
	IsTerminatedByProctor bool    `json:"is_terminated_by_proctor" gorm:"default:false"`
	TerminationReason     *string `json:"termination_reason" gorm:"type:text"`

	// Single-slot mailbox: written by SendWarning, cleared by the
	// candidate status poll. At-most-once delivery per write.
	PendingWarningMessage *string `json:"pending_warning_message" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Events        []ProctorEvent        `json:"events,omitempty" gorm:"foreignKey:SessionID"`
	Decision      *ProctorDecision      `json:"decision,omitempty" gorm:"foreignKey:SessionID"`
	Evidence      []ProctorEvidence     `json:"evidence,omitempty" gorm:"foreignKey:SessionID"`
	RiskSnapshots []ProctorRiskSnapshot `json:"risk_snapshots,omitempty" gorm:"foreignKey:SessionID"`
}

func (ProctorSession) TableName() string {
	return "proctor_sessions"
}

// ProctorEvent is an append-only record of one client-reported or
// system-synthesized occurrence. Immutable once created.
type ProctorEvent struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	SessionID uint             `json:"session_id" gorm:"not null;index:idx_session_occurred"`
	EventType ProctorEventType `json:"event_type" gorm:"not null;size:32;index"`
	Severity  int              `json:"severity" gorm:"default:1"`

	// Derived at ingestion via IsViolation, never recomputed.
	IsViolation bool `json:"is_violation" gorm:"index"`

	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	// ClientTimestamp is candidate-reported and untrusted. OccurredAt is
	// server-assigned and used for all windowing.
	ClientTimestamp *time.Time `json:"client_timestamp"`
	OccurredAt      time.Time  `json:"occurred_at" gorm:"not null;index:idx_session_occurred"`

	// Strictly increasing per session, assigned from the locked session
	// counter.
	SequenceNumber int `json:"sequence_number" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	Session ProctorSession `json:"-" gorm:"foreignKey:SessionID"`
}

func (ProctorEvent) TableName() string {
	return "proctor_events"
}
