package models

import "time"

type AttemptStatus string

const (
	AttemptStarted    AttemptStatus = "Started"
	AttemptInProgress AttemptStatus = "InProgress"
	AttemptPaused     AttemptStatus = "Paused"
	AttemptSubmitted  AttemptStatus = "Submitted"
	AttemptExpired    AttemptStatus = "Expired"
	AttemptTerminated AttemptStatus = "Terminated"
)

// CanBeTerminated reports whether Terminate may force-end the attempt.
func (s AttemptStatus) CanBeTerminated() bool {
	return s == AttemptStarted || s == AttemptInProgress || s == AttemptPaused
}

// IsConcluded reports whether the exam itself has finished, which gates
// the decision workflow.
func (s AttemptStatus) IsConcluded() bool {
	return s == AttemptSubmitted || s == AttemptExpired
}

// Attempt is the assessment service's exam attempt, owned externally.
// This service only reads status/ownership and performs the one
// cross-aggregate write: force-ending an attempt on Terminate.
type Attempt struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	ExamID      uint          `json:"exam_id" gorm:"not null;index"`
	CandidateID string        `json:"candidate_id" gorm:"not null;size:255;index"`
	Status      AttemptStatus `json:"status" gorm:"not null;size:20;index"`
	EndReason   *string       `json:"end_reason" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "assessment_attempts"
}

// AttemptAuditEvent is the attempt-level audit record appended when a
// proctor force-ends an attempt.
type AttemptAuditEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AttemptID uint      `json:"attempt_id" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"not null;size:40"`
	Detail    *string   `json:"detail" gorm:"type:text"`
	ActorID   string    `json:"actor_id" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}

func (AttemptAuditEvent) TableName() string {
	return "attempt_audit_events"
}
