package postgres

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/gorm"
)

type DecisionPostgreSQL struct {
	db *gorm.DB
}

func NewDecisionPostgreSQL(db *gorm.DB) repositories.DecisionRepository {
	return &DecisionPostgreSQL{db: db}
}

func (d *DecisionPostgreSQL) Create(ctx context.Context, decision *models.ProctorDecision) error {
	return d.db.WithContext(ctx).Create(decision).Error
}

func (d *DecisionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ProctorDecision, error) {
	var decision models.ProctorDecision
	if err := d.db.WithContext(ctx).First(&decision, id).Error; err != nil {
		return nil, err
	}
	return &decision, nil
}

func (d *DecisionPostgreSQL) GetBySession(ctx context.Context, sessionID uint) (*models.ProctorDecision, error) {
	var decision models.ProctorDecision
	if err := d.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&decision).Error; err != nil {
		return nil, err
	}
	return &decision, nil
}

func (d *DecisionPostgreSQL) Update(ctx context.Context, decision *models.ProctorDecision) error {
	return d.db.WithContext(ctx).Save(decision).Error
}

func (d *DecisionPostgreSQL) AppendLog(ctx context.Context, entry *models.ProctorDecisionLog) error {
	return d.db.WithContext(ctx).Create(entry).Error
}

func (d *DecisionPostgreSQL) GetLogs(ctx context.Context, decisionID uint) ([]*models.ProctorDecisionLog, error) {
	var entries []*models.ProctorDecisionLog
	if err := d.db.WithContext(ctx).
		Where("decision_id = ?", decisionID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
