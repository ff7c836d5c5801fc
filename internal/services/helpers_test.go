package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *utils.Validator {
	return utils.NewValidator()
}

func seedAttempt(store *fakeStore, candidateID string, status models.AttemptStatus) *models.Attempt {
	attempt := &models.Attempt{
		ID:          store.id(),
		ExamID:      1,
		CandidateID: candidateID,
		Status:      status,
	}
	store.attempts[attempt.ID] = attempt
	return attempt
}

func seedSession(store *fakeStore, attempt *models.Attempt, status models.SessionStatus) *models.ProctorSession {
	now := time.Now().UTC()
	session := &models.ProctorSession{
		ID:              store.id(),
		AttemptID:       attempt.ID,
		ExamID:          attempt.ExamID,
		CandidateID:     attempt.CandidateID,
		Mode:            models.ModeHard,
		Status:          status,
		StartedAt:       now,
		LastHeartbeatAt: &now,
	}
	store.sessions[session.ID] = session
	return session
}

func seedEvent(store *fakeStore, session *models.ProctorSession, eventType models.ProctorEventType, severity int, occurredAt time.Time) *models.ProctorEvent {
	event := &models.ProctorEvent{
		ID:             store.id(),
		SessionID:      session.ID,
		EventType:      eventType,
		Severity:       severity,
		IsViolation:    models.IsViolation(eventType, severity),
		OccurredAt:     occurredAt,
		SequenceNumber: session.TotalEvents + 1,
	}
	store.events = append(store.events, event)
	session.TotalEvents++
	if event.IsViolation {
		session.TotalViolations++
	}
	return event
}

type fakeDirectory struct {
	names map[string]string
}

func (d fakeDirectory) GetDisplayName(ctx context.Context, userID string) (string, error) {
	if name, ok := d.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("user not found")
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
