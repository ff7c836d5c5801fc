package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

const maxRiskScore = 100.0

type riskService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewRiskService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) RiskService {
	return &riskService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CALCULATION =====

func (s *riskService) Calculate(ctx context.Context, sessionID uint, calculatedBy string) (*RiskCalculationResponse, error) {
	// Existence check before the heavy read.
	if _, err := s.repo.Session().GetByID(ctx, sessionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var resp *RiskCalculationResponse

	// Events are append-only, so the evaluation itself needs no lock. The
	// lock is taken only to commit the score and snapshot; events arriving
	// mid-calculation land in the next run.
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session, err := tx.Session().GetForUpdate(ctx, sessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		now := time.Now().UTC()
		score, triggered, counts, err := calculateRisk(ctx, tx, session, now)
		if err != nil {
			return err
		}
		if err := persistSnapshot(ctx, tx, session, score, triggered, counts, calculatedBy); err != nil {
			return err
		}

		session.RiskScore = &score
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to store risk score: %w", err)
		}

		resp = &RiskCalculationResponse{
			SessionID:       sessionID,
			Score:           score,
			Level:           models.RiskLevelFor(score),
			TotalEvents:     session.TotalEvents,
			TotalViolations: session.TotalViolations,
			TriggeredRules:  triggered,
			EventCounts:     counts,
			CalculatedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Risk calculated",
		"session_id", sessionID,
		"score", resp.Score,
		"level", resp.Level,
		"triggered_rules", len(resp.TriggeredRules))
	return resp, nil
}

func (s *riskService) GetSnapshots(ctx context.Context, sessionID uint) ([]*models.ProctorRiskSnapshot, error) {
	if _, err := s.repo.Session().GetByID(ctx, sessionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s.repo.RiskSnapshot().GetBySession(ctx, sessionID)
}

// calculateRisk loads the active rule set and the session's events and
// evaluates them. Shared with session End, which runs it inside its own
// locked transaction.
func calculateRisk(ctx context.Context, tx repositories.Repository, session *models.ProctorSession, now time.Time) (float64, []models.TriggeredRule, map[models.ProctorEventType]int, error) {
	rules, err := tx.RiskRule().GetActive(ctx)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to load risk rules: %w", err)
	}
	events, err := tx.Event().GetBySession(ctx, session.ID)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to load events: %w", err)
	}

	score, triggered, counts := evaluateRules(rules, events, now)
	return score, triggered, counts, nil
}

// evaluateRules scores one event set against one rule set. Pure function,
// no I/O.
//
// Each rule counts its matching events (type, optional minimum severity,
// optional trailing window ending at now). Every full thresholdCount of
// matches is one trigger worth riskPoints, capped at maxTriggers. The
// total is clamped to 100.
func evaluateRules(rules []*models.ProctorRiskRule, events []*models.ProctorEvent, now time.Time) (float64, []models.TriggeredRule, map[models.ProctorEventType]int) {
	counts := make(map[models.ProctorEventType]int, len(events))
	for _, event := range events {
		counts[event.EventType]++
	}

	score := 0.0
	triggered := []models.TriggeredRule{}

	for _, rule := range rules {
		if rule.ThresholdCount < 1 {
			// Rejected at validation; a legacy row still must not divide
			// by zero.
			continue
		}

		var windowStart time.Time
		if rule.WindowSeconds > 0 {
			windowStart = now.Add(-time.Duration(rule.WindowSeconds) * time.Second)
		}

		matches := 0
		for _, event := range events {
			if event.EventType != rule.EventType {
				continue
			}
			if rule.MinSeverity != nil && event.Severity < *rule.MinSeverity {
				continue
			}
			if rule.WindowSeconds > 0 && event.OccurredAt.Before(windowStart) {
				continue
			}
			matches++
		}

		triggers := matches / rule.ThresholdCount
		if rule.MaxTriggers != nil && triggers > *rule.MaxTriggers {
			triggers = *rule.MaxTriggers
		}
		if triggers == 0 {
			continue
		}

		points := float64(triggers) * rule.RiskPoints
		score += points
		triggered = append(triggered, models.TriggeredRule{
			RuleID:       rule.ID,
			RuleName:     rule.Name,
			EventType:    rule.EventType,
			MatchCount:   matches,
			TriggerCount: triggers,
			Points:       points,
		})
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}
	return score, triggered, counts
}

// persistSnapshot writes the immutable audit record of one calculation.
// Zero-event calculations still snapshot; "nothing happened" is itself an
// auditable result.
func persistSnapshot(ctx context.Context, tx repositories.Repository, session *models.ProctorSession, score float64, triggered []models.TriggeredRule, counts map[models.ProctorEventType]int, calculatedBy string) error {
	triggeredJSON, err := json.Marshal(triggered)
	if err != nil {
		return fmt.Errorf("failed to encode triggered rules: %w", err)
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to encode event counts: %w", err)
	}

	snapshot := &models.ProctorRiskSnapshot{
		SessionID:       session.ID,
		Score:           score,
		TotalEvents:     session.TotalEvents,
		TotalViolations: session.TotalViolations,
		TriggeredRules:  triggeredJSON,
		EventCounts:     countsJSON,
		CalculatedBy:    calculatedBy,
		CalculatedAt:    time.Now().UTC(),
	}
	if err := tx.RiskSnapshot().Create(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to store risk snapshot: %w", err)
	}
	return nil
}

// ===== RULE MANAGEMENT =====

func (s *riskService) CreateRule(ctx context.Context, req *CreateRiskRuleRequest, creatorID string) (*models.ProctorRiskRule, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rule := &models.ProctorRiskRule{
		Name:           req.Name,
		EventType:      req.EventType,
		ThresholdCount: req.ThresholdCount,
		WindowSeconds:  req.WindowSeconds,
		RiskPoints:     req.RiskPoints,
		MinSeverity:    req.MinSeverity,
		MaxTriggers:    req.MaxTriggers,
		Priority:       req.Priority,
		IsActive:       true,
		CreatedBy:      creatorID,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if rule.Priority == 0 {
		rule.Priority = 100
	}

	if err := s.repo.RiskRule().Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create risk rule: %w", err)
	}

	s.logger.Info("Risk rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"event_type", rule.EventType,
		"created_by", creatorID)
	return rule, nil
}

func (s *riskService) UpdateRule(ctx context.Context, id uint, req *CreateRiskRuleRequest) (*models.ProctorRiskRule, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	rule, err := s.repo.RiskRule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRiskRuleNotFound
		}
		return nil, fmt.Errorf("failed to get risk rule: %w", err)
	}

	rule.Name = req.Name
	rule.EventType = req.EventType
	rule.ThresholdCount = req.ThresholdCount
	rule.WindowSeconds = req.WindowSeconds
	rule.RiskPoints = req.RiskPoints
	rule.MinSeverity = req.MinSeverity
	rule.MaxTriggers = req.MaxTriggers
	rule.Priority = req.Priority
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := s.repo.RiskRule().Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update risk rule: %w", err)
	}
	return rule, nil
}

func (s *riskService) DeleteRule(ctx context.Context, id uint) error {
	if _, err := s.repo.RiskRule().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRiskRuleNotFound
		}
		return fmt.Errorf("failed to get risk rule: %w", err)
	}
	// Soft delete. Past snapshots keep their breakdown lines since those
	// are denormalized JSON.
	return s.repo.RiskRule().Delete(ctx, id)
}

func (s *riskService) ToggleRule(ctx context.Context, id uint, active bool) (*models.ProctorRiskRule, error) {
	rule, err := s.repo.RiskRule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRiskRuleNotFound
		}
		return nil, fmt.Errorf("failed to get risk rule: %w", err)
	}

	rule.IsActive = active
	if err := s.repo.RiskRule().Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to toggle risk rule: %w", err)
	}
	return rule, nil
}

func (s *riskService) ListRules(ctx context.Context, filters repositories.RuleFilters) ([]*models.ProctorRiskRule, int64, error) {
	return s.repo.RiskRule().List(ctx, filters)
}
