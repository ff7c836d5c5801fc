package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type decisionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	publisher events.EventPublisher
}

func NewDecisionService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, publisher events.EventPublisher) DecisionService {
	return &decisionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *decisionService) MakeDecision(ctx context.Context, sessionID uint, req *MakeDecisionRequest, reviewerID string) (*models.ProctorDecision, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Decisions are about the exam result, so they wait for the exam to
	// conclude. Termination counts: the attempt is already Terminated.
	attempt, err := s.repo.Attempt().GetByID(ctx, session.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsConcluded() && attempt.Status != models.AttemptTerminated {
		return nil, ErrAttemptNotConcluded
	}

	var decision *models.ProctorDecision
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Decision().GetBySession(ctx, sessionID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get decision: %w", err)
		}

		now := time.Now().UTC()
		if existing == nil {
			decision = &models.ProctorDecision{
				SessionID:   sessionID,
				Status:      req.Status,
				ReasonEn:    req.ReasonEn,
				ReasonAr:    req.ReasonAr,
				Notes:       req.Notes,
				DecidedBy:   reviewerID,
				DecidedAt:   &now,
				IsFinalized: req.Finalize,
			}
			if err := tx.Decision().Create(ctx, decision); err != nil {
				return fmt.Errorf("failed to create decision: %w", err)
			}
			action := "created"
			if req.Finalize {
				action = "finalized"
			}
			return s.appendLog(ctx, tx, decision, action, req.ReasonEn, reviewerID)
		}

		if existing.IsFinalized {
			return ErrDecisionFinalized
		}

		existing.Status = req.Status
		existing.ReasonEn = req.ReasonEn
		existing.ReasonAr = req.ReasonAr
		existing.Notes = req.Notes
		existing.DecidedBy = reviewerID
		existing.DecidedAt = &now
		existing.IsFinalized = req.Finalize

		if err := tx.Decision().Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to update decision: %w", err)
		}
		decision = existing

		action := "updated"
		if req.Finalize {
			action = "finalized"
		}
		return s.appendLog(ctx, tx, decision, action, req.ReasonEn, reviewerID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session decision recorded",
		"session_id", sessionID,
		"decision_id", decision.ID,
		"status", decision.Status,
		"finalized", decision.IsFinalized,
		"decided_by", reviewerID)
	s.publish(ctx, events.DecisionMade, sessionID, map[string]interface{}{
		"decision_id": decision.ID,
		"status":      decision.Status,
		"finalized":   decision.IsFinalized,
	})
	return decision, nil
}

func (s *decisionService) Override(ctx context.Context, decisionID uint, req *OverrideDecisionRequest, adminID string) (*models.ProctorDecision, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var decision *models.ProctorDecision
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Decision().GetByID(ctx, decisionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrDecisionNotFound
			}
			return fmt.Errorf("failed to get decision: %w", err)
		}

		// Override is unconditional: it works on finalized and unfinalized
		// decisions alike, and leaves the decision finalized.
		now := time.Now().UTC()
		previous := existing.Status
		existing.PreviousStatus = &previous
		existing.Status = req.Status
		existing.OverriddenBy = &adminID
		existing.OverriddenAt = &now
		existing.OverrideReason = &req.Reason
		existing.IsFinalized = true

		if err := tx.Decision().Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to override decision: %w", err)
		}
		decision = existing
		return s.appendLog(ctx, tx, decision, "overridden", &req.Reason, adminID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("Decision overridden",
		"decision_id", decisionID,
		"session_id", decision.SessionID,
		"previous_status", decision.PreviousStatus,
		"status", decision.Status,
		"overridden_by", adminID)
	s.publish(ctx, events.DecisionOverridden, decision.SessionID, map[string]interface{}{
		"decision_id":     decision.ID,
		"previous_status": decision.PreviousStatus,
		"status":          decision.Status,
	})
	return decision, nil
}

func (s *decisionService) GetBySession(ctx context.Context, sessionID uint) (*models.ProctorDecision, error) {
	decision, err := s.repo.Decision().GetBySession(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return decision, nil
}

func (s *decisionService) GetHistory(ctx context.Context, decisionID uint) ([]*models.ProctorDecisionLog, error) {
	if _, err := s.repo.Decision().GetByID(ctx, decisionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return s.repo.Decision().GetLogs(ctx, decisionID)
}

func (s *decisionService) appendLog(ctx context.Context, tx repositories.Repository, decision *models.ProctorDecision, action string, reason *string, actorID string) error {
	entry := &models.ProctorDecisionLog{
		DecisionID: decision.ID,
		SessionID:  decision.SessionID,
		Action:     action,
		Status:     decision.Status,
		Reason:     reason,
		ActorID:    actorID,
	}
	if err := tx.Decision().AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to append decision log: %w", err)
	}
	return nil
}

func (s *decisionService) publish(ctx context.Context, eventType events.ProctoringEventType, sessionID uint, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishProctoringEvent(ctx, events.NewProctoringEvent(eventType, sessionID, data)); err != nil {
		s.logger.Error("Failed to publish proctoring event",
			"event_type", eventType,
			"session_id", sessionID,
			"error", err)
	}
}
