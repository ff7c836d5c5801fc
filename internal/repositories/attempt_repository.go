package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// AttemptRepository is the window into the assessment service's attempt
// store: status/ownership reads plus the single cross-aggregate write
// performed by Terminate.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	UpdateStatus(ctx context.Context, id uint, status models.AttemptStatus, endReason string) error
	AppendAuditEvent(ctx context.Context, event *models.AttemptAuditEvent) error
}
