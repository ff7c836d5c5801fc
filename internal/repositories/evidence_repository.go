package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// EvidenceRepository tracks captured artifact metadata.
type EvidenceRepository interface {
	Create(ctx context.Context, evidence *models.ProctorEvidence) error
	GetByID(ctx context.Context, id uint) (*models.ProctorEvidence, error)
	Update(ctx context.Context, evidence *models.ProctorEvidence) error
	GetBySession(ctx context.Context, sessionID uint, filters EvidenceFilters) ([]*models.ProctorEvidence, error)

	// MarkExpired flags evidence whose expires_at has passed and returns
	// the number of rows updated. Artifact deletion is an external
	// storage concern.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}
