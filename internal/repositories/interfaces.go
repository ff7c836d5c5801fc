package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates all entity repositories. WithTransaction runs fn
// against a transaction-bound Repository; every repository call inside fn
// shares one database transaction.
type Repository interface {
	Session() SessionRepository
	Event() EventRepository
	RiskRule() RiskRuleRepository
	RiskSnapshot() RiskSnapshotRepository
	Decision() DecisionRepository
	Evidence() EvidenceRepository
	Attempt() AttemptRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError reports whether err is the storage layer's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status       *models.SessionStatus `json:"status"`
	ExamID       *uint                 `json:"exam_id"`
	CandidateID  *string               `json:"candidate_id"`
	IsFlagged    *bool                 `json:"is_flagged"`
	MinRiskScore *float64              `json:"min_risk_score"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`    // "started_at", "risk_score", "total_violations"
	SortOrder    string                `json:"sort_order"` // "asc", "desc"
}

type RuleFilters struct {
	EventType *models.ProctorEventType `json:"event_type"`
	IsActive  *bool                    `json:"is_active"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
}

type EvidenceFilters struct {
	Type       *models.EvidenceType `json:"type"`
	IsUploaded *bool                `json:"is_uploaded"`
	IsExpired  *bool                `json:"is_expired"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}
