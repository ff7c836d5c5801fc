package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

// autoWarningViolations is the violation count past which heartbeat
// responses start nudging the candidate even without a proctor warning.
const autoWarningViolations = 5

const autoWarningMessage = "Repeated violations have been detected on your session. Further violations may end your exam."

// escalatedWarningViolations switches the nudge to its final-notice form.
const escalatedWarningViolations = 10

const escalatedWarningMessage = "Your session has accumulated serious violations and is under review. Any further violation may terminate your exam."

// disconnectSeverity classifies synthesized disconnect events as
// violations (severity 3 and above always are).
const disconnectSeverity = 3

type eventService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewEventService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) EventService {
	return &eventService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *eventService) LogEvent(ctx context.Context, sessionID uint, req *LogEventRequest, candidateID string) (*LogEventResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var resp *LogEventResponse
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := lockOwnedSession(ctx, tx, sessionID, candidateID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}

		event := buildEvent(session, req, time.Now().UTC())
		if err := tx.Event().Create(ctx, event); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}

		session.TotalEvents++
		if event.IsViolation {
			session.TotalViolations++
		}
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session counters: %w", err)
		}

		resp = &LogEventResponse{
			EventID:        event.ID,
			SequenceNumber: event.SequenceNumber,
			IsViolation:    event.IsViolation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.IsViolation {
		s.logger.Info("Violation recorded",
			"session_id", sessionID,
			"event_type", req.EventType,
			"severity", req.Severity,
			"sequence", resp.SequenceNumber)
	}
	return resp, nil
}

func (s *eventService) BulkLog(ctx context.Context, sessionID uint, reqs []*LogEventRequest, candidateID string) (*BulkLogResponse, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyEventBatch
	}
	for _, req := range reqs {
		if err := s.validator.Validate(req); err != nil {
			return nil, err
		}
	}

	var resp *BulkLogResponse
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := lockOwnedSession(ctx, tx, sessionID, candidateID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}

		// The whole batch shares one lock hold, so sequence numbers are
		// contiguous and follow caller order.
		now := time.Now().UTC()
		events := make([]*models.ProctorEvent, len(reqs))
		violations := 0
		first := session.TotalEvents + 1
		for i, req := range reqs {
			events[i] = buildEvent(session, req, now)
			session.TotalEvents++
			if events[i].IsViolation {
				session.TotalViolations++
				violations++
			}
		}

		if err := tx.Event().CreateBatch(ctx, events); err != nil {
			return fmt.Errorf("failed to store event batch: %w", err)
		}
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session counters: %w", err)
		}

		resp = &BulkLogResponse{
			Accepted:      len(events),
			FirstSequence: first,
			LastSequence:  session.TotalEvents,
			Violations:    violations,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Event batch ingested",
		"session_id", sessionID,
		"accepted", resp.Accepted,
		"violations", resp.Violations)
	return resp, nil
}

func (s *eventService) Heartbeat(ctx context.Context, sessionID uint, req *HeartbeatRequest, candidateID string) (*HeartbeatResponse, error) {
	var resp *HeartbeatResponse

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := lockOwnedSession(ctx, tx, sessionID, candidateID)
		if err != nil {
			return err
		}

		// Heartbeats against ended sessions still answer, so the client
		// learns the terminal status instead of retrying forever.
		now := time.Now().UTC()
		resp = &HeartbeatResponse{
			ReceivedAt:      now,
			TotalViolations: session.TotalViolations,
		}

		dirty := false
		if session.Status == models.SessionActive {
			// Heartbeats leave an event trail like everything else, so
			// window rules and snapshots can see them.
			event := buildEvent(session, &LogEventRequest{
				EventType:       models.EventHeartbeat,
				Metadata:        req.Metadata,
				ClientTimestamp: req.ClientTimestamp,
			}, now)
			if err := tx.Event().Create(ctx, event); err != nil {
				return fmt.Errorf("failed to store heartbeat event: %w", err)
			}
			session.TotalEvents++
			session.LastHeartbeatAt = &now
			session.HeartbeatMissedCount = 0
			dirty = true
		}

		if session.PendingWarningMessage != nil {
			resp.HasWarning = true
			resp.WarningMessage = *session.PendingWarningMessage
			session.PendingWarningMessage = nil
			dirty = true
		} else if session.TotalViolations > autoWarningViolations ||
			(session.RiskScore != nil && *session.RiskScore > 50) {
			resp.HasWarning = true
			if session.TotalViolations > escalatedWarningViolations {
				resp.WarningMessage = escalatedWarningMessage
			} else {
				resp.WarningMessage = autoWarningMessage
			}
		}

		if dirty {
			return tx.Session().Update(ctx, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *eventService) SweepMissedHeartbeats(ctx context.Context, thresholdSeconds int) (*SweepResult, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(thresholdSeconds) * time.Second)

	stale, err := s.repo.Session().GetStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale sessions: %w", err)
	}

	result := &SweepResult{Scanned: len(stale)}
	for _, candidate := range stale {
		// One transaction per session so one bad row cannot fail the whole
		// sweep tick.
		affected := false
		err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			session, err := tx.Session().GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check under the lock: the candidate may have resumed
			// heartbeating, or the session may have ended.
			if session.Status != models.SessionActive {
				return nil
			}
			if session.LastHeartbeatAt == nil || !session.LastHeartbeatAt.Before(cutoff) {
				return nil
			}

			session.HeartbeatMissedCount++

			// Every tick that still finds the session stale appends another
			// violation. Escalation while disconnected is deliberate.
			event := &models.ProctorEvent{
				SessionID:      session.ID,
				EventType:      models.EventNetworkDisconnect,
				Severity:       disconnectSeverity,
				IsViolation:    models.IsViolation(models.EventNetworkDisconnect, disconnectSeverity),
				OccurredAt:     time.Now().UTC(),
				SequenceNumber: session.TotalEvents + 1,
			}
			if err := tx.Event().Create(ctx, event); err != nil {
				return err
			}
			session.TotalEvents++
			if event.IsViolation {
				session.TotalViolations++
			}
			affected = true
			return tx.Session().Update(ctx, session)
		})
		if err != nil {
			result.Failed++
			s.logger.Error("Heartbeat sweep failed for session",
				"session_id", candidate.ID,
				"error", err)
			continue
		}
		if affected {
			result.Affected++
		}
	}

	if result.Scanned > 0 {
		s.logger.Info("Heartbeat sweep completed",
			"scanned", result.Scanned,
			"affected", result.Affected,
			"failed", result.Failed)
	}
	return result, nil
}

// lockOwnedSession loads a session under the row lock and verifies the
// caller owns it. Ownership failures are indistinguishable from missing
// sessions at the HTTP layer.
func lockOwnedSession(ctx context.Context, tx repositories.Repository, sessionID uint, candidateID string) (*models.ProctorSession, error) {
	session, err := tx.Session().GetForUpdate(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	if session.CandidateID != candidateID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}

func buildEvent(session *models.ProctorSession, req *LogEventRequest, occurredAt time.Time) *models.ProctorEvent {
	return &models.ProctorEvent{
		SessionID:       session.ID,
		EventType:       req.EventType,
		Severity:        req.Severity,
		IsViolation:     models.IsViolation(req.EventType, req.Severity),
		Metadata:        req.Metadata,
		ClientTimestamp: req.ClientTimestamp,
		OccurredAt:      occurredAt,
		SequenceNumber:  session.TotalEvents + 1,
	}
}
