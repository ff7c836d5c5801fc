package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// SessionRepository persists proctoring sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.ProctorSession) error
	GetByID(ctx context.Context, id uint) (*models.ProctorSession, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.ProctorSession, error)

	// GetForUpdate loads the session under a row-level lock. Callers must
	// be inside Repository.WithTransaction; the lock serializes all
	// counter mutations for one session.
	GetForUpdate(ctx context.Context, id uint) (*models.ProctorSession, error)

	GetByAttemptAndMode(ctx context.Context, attemptID uint, mode models.SessionMode) (*models.ProctorSession, error)
	Update(ctx context.Context, session *models.ProctorSession) error
	List(ctx context.Context, filters SessionFilters) ([]*models.ProctorSession, int64, error)

	// GetStale returns Active sessions whose last heartbeat is older than
	// cutoff (heartbeat sweep input).
	GetStale(ctx context.Context, cutoff time.Time) ([]*models.ProctorSession, error)

	// GetTriageCandidates returns Active sessions with riskScore > 0
	// ordered by risk score desc, then total violations desc.
	GetTriageCandidates(ctx context.Context, limit int) ([]*models.ProctorSession, error)
}

// EventRepository persists the append-only event stream.
type EventRepository interface {
	Create(ctx context.Context, event *models.ProctorEvent) error
	CreateBatch(ctx context.Context, events []*models.ProctorEvent) error
	GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorEvent, error)
	GetRecent(ctx context.Context, sessionID uint, limit int) ([]*models.ProctorEvent, error)

	// CountByTypeSince counts a session's events per type with
	// occurred_at >= since (triage reason strings).
	CountByTypeSince(ctx context.Context, sessionID uint, since time.Time) (map[models.ProctorEventType]int, error)
}
