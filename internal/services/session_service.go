package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type sessionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	publisher events.EventPublisher
}

func NewSessionService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, publisher events.EventPublisher) SessionService {
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== LIFECYCLE OPERATIONS =====

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, candidateID string) (*SessionResponse, error) {
	s.logger.Info("Starting proctoring session",
		"attempt_id", req.AttemptID,
		"mode", req.Mode,
		"candidate_id", candidateID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptStarted && attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}
	if attempt.CandidateID != candidateID {
		return nil, ErrSessionAccessDenied
	}

	// Idempotent re-start: an existing Active session is returned as-is;
	// an ended one blocks a second session for the same (attempt, mode).
	existing, err := s.repo.Session().GetByAttemptAndMode(ctx, req.AttemptID, req.Mode)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing session: %w", err)
	}
	if existing != nil {
		if existing.Status == models.SessionActive {
			s.logger.Info("Returning existing active session", "session_id", existing.ID)
			return s.buildSessionResponse(existing, nil), nil
		}
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now().UTC()
	session := &models.ProctorSession{
		AttemptID:       req.AttemptID,
		ExamID:          attempt.ExamID,
		CandidateID:     candidateID,
		Mode:            req.Mode,
		Status:          models.SessionActive,
		StartedAt:       now,
		DeviceInfo:      req.DeviceInfo,
		BrowserInfo:     req.BrowserInfo,
		IPAddress:       req.IPAddress,
		LastHeartbeatAt: &now,
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		// The unique (attempt_id, mode) index guards the create race:
		// a concurrent Start may have won, in which case its session is
		// the idempotent result.
		winner, getErr := s.repo.Session().GetByAttemptAndMode(ctx, req.AttemptID, req.Mode)
		if getErr == nil && winner.Status == models.SessionActive {
			return s.buildSessionResponse(winner, nil), nil
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Proctoring session started",
		"session_id", session.ID,
		"attempt_id", req.AttemptID)

	return s.buildSessionResponse(session, nil), nil
}

func (s *sessionService) End(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error) {
	s.logger.Info("Ending proctoring session", "session_id", sessionID, "user_id", userID)

	var ended *models.ProctorSession
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}

		// Final risk calculation. The row lock serializes against event
		// ingestion, so the event set is stable for the duration.
		score, triggered, counts, err := calculateRisk(ctx, tx, session, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("final risk calculation failed: %w", err)
		}
		if err := persistSnapshot(ctx, tx, session, score, triggered, counts, userID); err != nil {
			return err
		}

		now := time.Now().UTC()
		session.Status = models.SessionCompleted
		session.EndedAt = &now
		session.RiskScore = &score

		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		ended = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Proctoring session completed",
		"session_id", sessionID,
		"risk_score", derefFloat(ended.RiskScore))

	return s.buildSessionResponse(ended, nil), nil
}

func (s *sessionService) Cancel(ctx context.Context, sessionID uint, userID string) error {
	s.logger.Info("Cancelling proctoring session", "session_id", sessionID, "user_id", userID)

	// Administrative override: cancels regardless of current status.
	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		now := time.Now().UTC()
		session.Status = models.SessionCancelled
		session.EndedAt = &now

		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to cancel session: %w", err)
		}
		return nil
	})
}

// ===== PROCTOR ACTIONS =====

func (s *sessionService) Flag(ctx context.Context, sessionID uint, flagged bool, proctorID string) error {
	eventType := models.EventProctorFlagged
	if !flagged {
		eventType = models.EventProctorUnflagged
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		session.IsFlagged = flagged
		if err := appendAuditEvent(ctx, tx, session, eventType, 1, proctorID); err != nil {
			return err
		}
		return tx.Session().Update(ctx, session)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.SessionFlagged, sessionID, map[string]interface{}{
		"flagged":    flagged,
		"proctor_id": proctorID,
	})
	return nil
}

func (s *sessionService) SendWarning(ctx context.Context, sessionID uint, message string, proctorID string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyWarningMessage
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}

		// Single-slot mailbox: a second warning before delivery replaces
		// the first.
		session.PendingWarningMessage = &message
		if err := appendAuditEvent(ctx, tx, session, models.EventProctorWarning, 2, proctorID); err != nil {
			return err
		}
		return tx.Session().Update(ctx, session)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Warning queued for candidate", "session_id", sessionID, "proctor_id", proctorID)
	s.publish(ctx, events.WarningSent, sessionID, map[string]interface{}{
		"proctor_id": proctorID,
	})
	return nil
}

func (s *sessionService) Terminate(ctx context.Context, sessionID uint, reason string, proctorID string) error {
	s.logger.Info("Terminating proctoring session",
		"session_id", sessionID,
		"proctor_id", proctorID)

	// The one cross-aggregate write: session cancellation and attempt
	// force-end commit together or not at all.
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if session.Status.IsTerminal() {
			return ErrSessionNotActive
		}

		now := time.Now().UTC()
		session.Status = models.SessionCancelled
		session.EndedAt = &now
		session.IsTerminatedByProctor = true
		session.TerminationReason = &reason

		event := &models.ProctorEvent{
			SessionID:      session.ID,
			EventType:      models.EventProctorTerminated,
			Severity:       5,
			IsViolation:    true,
			OccurredAt:     now,
			SequenceNumber: session.TotalEvents + 1,
		}
		if err := tx.Event().Create(ctx, event); err != nil {
			return fmt.Errorf("failed to append termination event: %w", err)
		}
		session.TotalEvents++
		session.TotalViolations++

		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		attempt, err := tx.Attempt().GetByID(ctx, session.AttemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				// Session exists without its attempt only if the attempt
				// store is out of sync; treat as transient.
				return fmt.Errorf("%w: attempt %d missing", ErrExternalDependency, session.AttemptID)
			}
			return fmt.Errorf("%w: %v", ErrExternalDependency, err)
		}

		if attempt.Status.CanBeTerminated() {
			if err := tx.Attempt().UpdateStatus(ctx, attempt.ID, models.AttemptTerminated, reason); err != nil {
				return fmt.Errorf("%w: %v", ErrExternalDependency, err)
			}
			audit := &models.AttemptAuditEvent{
				AttemptID: attempt.ID,
				Action:    "force_ended",
				Detail:    &reason,
				ActorID:   proctorID,
			}
			if err := tx.Attempt().AppendAuditEvent(ctx, audit); err != nil {
				return fmt.Errorf("%w: %v", ErrExternalDependency, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Warn("Proctoring session terminated by proctor",
		"session_id", sessionID,
		"proctor_id", proctorID,
		"reason", reason)
	s.publish(ctx, events.SessionTerminated, sessionID, map[string]interface{}{
		"proctor_id": proctorID,
		"reason":     reason,
	})
	return nil
}

// ===== READ OPERATIONS =====

func (s *sessionService) GetByID(ctx context.Context, sessionID uint) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	recent, err := s.repo.Event().GetRecent(ctx, sessionID, 20)
	if err != nil {
		s.logger.Warn("Failed to load recent events", "session_id", sessionID, "error", err)
		recent = nil
	}

	return s.buildSessionResponse(session, recent), nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) ([]*SessionResponse, int64, error) {
	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]*SessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = s.buildSessionResponse(session, nil)
	}
	return responses, total, nil
}

func (s *sessionService) GetCandidateStatus(ctx context.Context, sessionID uint, candidateID string) (*CandidateStatusResponse, error) {
	var resp *CandidateStatusResponse

	// Delivery clears the mailbox, so the read happens under the same
	// lock as writes (at-most-once per warning).
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if session.CandidateID != candidateID {
			return ErrSessionAccessDenied
		}

		resp = &CandidateStatusResponse{
			Status:                session.Status,
			IsTerminatedByProctor: session.IsTerminatedByProctor,
			TerminationReason:     session.TerminationReason,
		}

		if session.PendingWarningMessage != nil {
			resp.HasWarning = true
			resp.WarningMessage = session.PendingWarningMessage
			session.PendingWarningMessage = nil
			if err := tx.Session().Update(ctx, session); err != nil {
				return fmt.Errorf("failed to clear warning: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ===== HELPERS =====

// appendAuditEvent adds a violation-exempt proctor action event under the
// caller's row lock and bumps the event counter. The caller persists the
// session.
func appendAuditEvent(ctx context.Context, tx repositories.Repository, session *models.ProctorSession, eventType models.ProctorEventType, severity int, actorID string) error {
	event := &models.ProctorEvent{
		SessionID:      session.ID,
		EventType:      eventType,
		Severity:       severity,
		IsViolation:    false,
		OccurredAt:     time.Now().UTC(),
		SequenceNumber: session.TotalEvents + 1,
	}
	if err := tx.Event().Create(ctx, event); err != nil {
		return fmt.Errorf("failed to append %s event: %w", eventType, err)
	}
	session.TotalEvents++
	return nil
}

func (s *sessionService) buildSessionResponse(session *models.ProctorSession, recent []*models.ProctorEvent) *SessionResponse {
	resp := &SessionResponse{
		ID:                    session.ID,
		AttemptID:             session.AttemptID,
		ExamID:                session.ExamID,
		CandidateID:           session.CandidateID,
		Mode:                  session.Mode,
		Status:                session.Status,
		StartedAt:             session.StartedAt,
		EndedAt:               session.EndedAt,
		TotalEvents:           session.TotalEvents,
		TotalViolations:       session.TotalViolations,
		RiskScore:             session.RiskScore,
		IsFlagged:             session.IsFlagged,
		IsTerminatedByProctor: session.IsTerminatedByProctor,
		LastHeartbeatAt:       session.LastHeartbeatAt,
		RecentEvents:          recent,
	}
	if session.RiskScore != nil {
		level := models.RiskLevelFor(*session.RiskScore)
		resp.RiskLevel = &level
	}
	return resp
}

func (s *sessionService) publish(ctx context.Context, eventType events.ProctoringEventType, sessionID uint, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	// Fire-and-forget: publish failures never fail the request.
	if err := s.publisher.PublishProctoringEvent(ctx, events.NewProctoringEvent(eventType, sessionID, data)); err != nil {
		s.logger.Error("Failed to publish proctoring event",
			"event_type", eventType,
			"session_id", sessionID,
			"error", err)
	}
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
