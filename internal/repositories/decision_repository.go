package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// DecisionRepository persists session dispositions and their append-only
// history log.
type DecisionRepository interface {
	Create(ctx context.Context, decision *models.ProctorDecision) error
	GetByID(ctx context.Context, id uint) (*models.ProctorDecision, error)
	GetBySession(ctx context.Context, sessionID uint) (*models.ProctorDecision, error)
	Update(ctx context.Context, decision *models.ProctorDecision) error

	AppendLog(ctx context.Context, entry *models.ProctorDecisionLog) error
	GetLogs(ctx context.Context, decisionID uint) ([]*models.ProctorDecisionLog, error)
}
