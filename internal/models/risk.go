package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevelFor maps a 0-100 score to its display level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score <= 20:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ProctorRiskRule is an admin-configured scoring rule. Rules are data,
// not polymorphic types: the engine evaluates each one with the same
// count/threshold/window arithmetic.
type ProctorRiskRule struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	Name      string           `json:"name" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	EventType ProctorEventType `json:"event_type" gorm:"not null;size:32;index" validate:"required,proctor_event_type"`

	// ThresholdCount events produce one trigger; must be >= 1 (a zero
	// threshold would divide by zero in the engine and is rejected here).
	ThresholdCount int `json:"threshold_count" gorm:"not null" validate:"required,min=1"`

	// WindowSeconds = 0 means the whole session; otherwise a trailing
	// window from calculation time.
	WindowSeconds int     `json:"window_seconds" gorm:"default:0" validate:"min=0"`
	RiskPoints    float64 `json:"risk_points" gorm:"not null" validate:"required,gt=0,max=100"`

	// Optional filters and caps.
	MinSeverity *int `json:"min_severity" validate:"omitempty,min=0,max=5"`
	MaxTriggers *int `json:"max_triggers" validate:"omitempty,min=1"`

	// Evaluation/reporting order only; does not affect the score.
	Priority int  `json:"priority" gorm:"default:100;index"`
	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedBy string         `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ProctorRiskRule) TableName() string {
	return "proctor_risk_rules"
}

// TriggeredRule is one line of a risk calculation breakdown.
type TriggeredRule struct {
	RuleID       uint             `json:"rule_id"`
	RuleName     string           `json:"rule_name"`
	EventType    ProctorEventType `json:"event_type"`
	MatchCount   int              `json:"match_count"`
	TriggerCount int              `json:"trigger_count"`
	Points       float64          `json:"points"`
}

// ProctorRiskSnapshot is an immutable audit record of one risk
// calculation. Never updated or deleted.
type ProctorRiskSnapshot struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;index"`

	Score           float64 `json:"score" gorm:"not null"`
	TotalEvents     int     `json:"total_events"`
	TotalViolations int     `json:"total_violations"`

	// Per-rule and per-event-type breakdowns of this calculation.
	TriggeredRules datatypes.JSON `json:"triggered_rules" gorm:"type:jsonb"`
	EventCounts    datatypes.JSON `json:"event_counts" gorm:"type:jsonb"`

	CalculatedBy string    `json:"calculated_by" gorm:"size:255"`
	CalculatedAt time.Time `json:"calculated_at" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`

	Session ProctorSession `json:"-" gorm:"foreignKey:SessionID"`
}

func (ProctorRiskSnapshot) TableName() string {
	return "proctor_risk_snapshots"
}
