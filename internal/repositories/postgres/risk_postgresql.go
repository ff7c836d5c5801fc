package postgres

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/gorm"
)

type RiskRulePostgreSQL struct {
	db *gorm.DB
}

func NewRiskRulePostgreSQL(db *gorm.DB) repositories.RiskRuleRepository {
	return &RiskRulePostgreSQL{db: db}
}

func (r *RiskRulePostgreSQL) Create(ctx context.Context, rule *models.ProctorRiskRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *RiskRulePostgreSQL) GetByID(ctx context.Context, id uint) (*models.ProctorRiskRule, error) {
	var rule models.ProctorRiskRule
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RiskRulePostgreSQL) Update(ctx context.Context, rule *models.ProctorRiskRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *RiskRulePostgreSQL) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ProctorRiskRule{}, id).Error
}

func (r *RiskRulePostgreSQL) List(ctx context.Context, filters repositories.RuleFilters) ([]*models.ProctorRiskRule, int64, error) {
	var rules []*models.ProctorRiskRule
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ProctorRiskRule{})
	if filters.EventType != nil {
		query = query.Where("event_type = ?", *filters.EventType)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("priority ASC").Order("id ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *RiskRulePostgreSQL) GetActive(ctx context.Context) ([]*models.ProctorRiskRule, error) {
	var rules []*models.ProctorRiskRule
	if err := r.db.WithContext(ctx).
		Where("is_active = true").
		Order("priority ASC").
		Order("id ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

type RiskSnapshotPostgreSQL struct {
	db *gorm.DB
}

func NewRiskSnapshotPostgreSQL(db *gorm.DB) repositories.RiskSnapshotRepository {
	return &RiskSnapshotPostgreSQL{db: db}
}

func (r *RiskSnapshotPostgreSQL) Create(ctx context.Context, snapshot *models.ProctorRiskSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *RiskSnapshotPostgreSQL) GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorRiskSnapshot, error) {
	var snapshots []*models.ProctorRiskSnapshot
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("calculated_at DESC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
