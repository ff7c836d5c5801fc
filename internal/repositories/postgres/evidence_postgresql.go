package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/gorm"
)

type EvidencePostgreSQL struct {
	db *gorm.DB
}

func NewEvidencePostgreSQL(db *gorm.DB) repositories.EvidenceRepository {
	return &EvidencePostgreSQL{db: db}
}

func (e *EvidencePostgreSQL) Create(ctx context.Context, evidence *models.ProctorEvidence) error {
	return e.db.WithContext(ctx).Create(evidence).Error
}

func (e *EvidencePostgreSQL) GetByID(ctx context.Context, id uint) (*models.ProctorEvidence, error) {
	var evidence models.ProctorEvidence
	if err := e.db.WithContext(ctx).First(&evidence, id).Error; err != nil {
		return nil, err
	}
	return &evidence, nil
}

func (e *EvidencePostgreSQL) Update(ctx context.Context, evidence *models.ProctorEvidence) error {
	return e.db.WithContext(ctx).Save(evidence).Error
}

func (e *EvidencePostgreSQL) GetBySession(ctx context.Context, sessionID uint, filters repositories.EvidenceFilters) ([]*models.ProctorEvidence, error) {
	var items []*models.ProctorEvidence

	query := e.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.IsUploaded != nil {
		query = query.Where("is_uploaded = ?", *filters.IsUploaded)
	}
	if filters.IsExpired != nil {
		query = query.Where("is_expired = ?", *filters.IsExpired)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (e *EvidencePostgreSQL) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	result := e.db.WithContext(ctx).
		Model(&models.ProctorEvidence{}).
		Where("is_expired = false AND expires_at <= ?", now).
		Update("is_expired", true)
	return result.RowsAffected, result.Error
}
