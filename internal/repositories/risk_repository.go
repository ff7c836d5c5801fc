package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// RiskRuleRepository manages admin-configured scoring rules.
type RiskRuleRepository interface {
	Create(ctx context.Context, rule *models.ProctorRiskRule) error
	GetByID(ctx context.Context, id uint) (*models.ProctorRiskRule, error)
	Update(ctx context.Context, rule *models.ProctorRiskRule) error
	Delete(ctx context.Context, id uint) error // soft delete
	List(ctx context.Context, filters RuleFilters) ([]*models.ProctorRiskRule, int64, error)

	// GetActive returns active rules ordered by priority ascending.
	GetActive(ctx context.Context) ([]*models.ProctorRiskRule, error)
}

// RiskSnapshotRepository stores immutable calculation records.
type RiskSnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.ProctorRiskSnapshot) error
	GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorRiskSnapshot, error)
}
