package models

import "time"

type DecisionStatus string

const (
	DecisionPending     DecisionStatus = "Pending"
	DecisionCleared     DecisionStatus = "Cleared"
	DecisionInvalidated DecisionStatus = "Invalidated"
)

// ProctorDecision records the human (or automated) disposition of a
// completed session. At most one per session. Once finalized, only the
// override path may change the status.
type ProctorDecision struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;uniqueIndex"`

	Status   DecisionStatus `json:"status" gorm:"not null;size:20;index" validate:"required,decision_status"`
	ReasonEn *string        `json:"reason_en" gorm:"type:text"`
	ReasonAr *string        `json:"reason_ar" gorm:"type:text"`
	Notes    *string        `json:"notes" gorm:"type:text"`

	DecidedBy string     `json:"decided_by" gorm:"size:255"`
	DecidedAt *time.Time `json:"decided_at"`

	// Gates plain re-decision; override bypasses it.
	IsFinalized bool `json:"is_finalized" gorm:"default:false"`

	// Single override slot. Only the immediately previous status is kept
	// on the aggregate; full history lives in the decision log.
	PreviousStatus   *DecisionStatus `json:"previous_status" gorm:"size:20"`
	OverriddenBy     *string         `json:"overridden_by" gorm:"size:255"`
	OverriddenAt     *time.Time      `json:"overridden_at"`
	OverrideReason   *string         `json:"override_reason" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session ProctorSession `json:"-" gorm:"foreignKey:SessionID"`
}

func (ProctorDecision) TableName() string {
	return "proctor_decisions"
}

// ProctorDecisionLog is the append-only history of every decision write
// (initial, edit, finalize, override).
type ProctorDecisionLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	DecisionID uint           `json:"decision_id" gorm:"not null;index"`
	SessionID  uint           `json:"session_id" gorm:"not null;index"`
	Action     string         `json:"action" gorm:"not null;size:20"` // created, updated, finalized, overridden
	Status     DecisionStatus `json:"status" gorm:"not null;size:20"`
	Reason     *string        `json:"reason" gorm:"type:text"`
	ActorID    string         `json:"actor_id" gorm:"size:255"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

func (ProctorDecisionLog) TableName() string {
	return "proctor_decision_logs"
}
