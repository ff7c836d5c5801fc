package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/gorm"
)

type EventPostgreSQL struct {
	db *gorm.DB
}

func NewEventPostgreSQL(db *gorm.DB) repositories.EventRepository {
	return &EventPostgreSQL{db: db}
}

func (e *EventPostgreSQL) Create(ctx context.Context, event *models.ProctorEvent) error {
	return e.db.WithContext(ctx).Create(event).Error
}

func (e *EventPostgreSQL) CreateBatch(ctx context.Context, events []*models.ProctorEvent) error {
	if len(events) == 0 {
		return nil
	}
	return e.db.WithContext(ctx).Create(&events).Error
}

func (e *EventPostgreSQL) GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorEvent, error) {
	var events []*models.ProctorEvent
	if err := e.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (e *EventPostgreSQL) GetRecent(ctx context.Context, sessionID uint, limit int) ([]*models.ProctorEvent, error) {
	var events []*models.ProctorEvent
	if err := e.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (e *EventPostgreSQL) CountByTypeSince(ctx context.Context, sessionID uint, since time.Time) (map[models.ProctorEventType]int, error) {
	type typeCount struct {
		EventType models.ProctorEventType
		Count     int
	}

	var rows []typeCount
	if err := e.db.WithContext(ctx).
		Model(&models.ProctorEvent{}).
		Select("event_type, COUNT(*) as count").
		Where("session_id = ? AND occurred_at >= ?", sessionID, since).
		Group("event_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.ProctorEventType]int, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}
