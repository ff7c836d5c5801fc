package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

func TestEvaluateRules(t *testing.T) {
	now := time.Now().UTC()

	makeEvents := func(eventType models.ProctorEventType, severity, count int, occurredAt time.Time) []*models.ProctorEvent {
		events := make([]*models.ProctorEvent, count)
		for i := range events {
			events[i] = &models.ProctorEvent{
				EventType:  eventType,
				Severity:   severity,
				OccurredAt: occurredAt,
			}
		}
		return events
	}

	t.Run("no events yields zero score", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Tab switching", EventType: models.EventTabSwitched, ThresholdCount: 1, RiskPoints: 10},
		}

		score, triggered, counts := evaluateRules(rules, nil, now)

		assert.Equal(t, 0.0, score)
		assert.Empty(t, triggered)
		assert.Empty(t, counts)
	})

	t.Run("threshold and trigger cap", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{
				ID:             1,
				Name:           "Tab switching",
				EventType:      models.EventTabSwitched,
				ThresholdCount: 3,
				WindowSeconds:  600,
				RiskPoints:     10,
				MaxTriggers:    intPtr(2),
			},
		}
		events := makeEvents(models.EventTabSwitched, 1, 7, now.Add(-time.Minute))

		score, triggered, _ := evaluateRules(rules, events, now)

		// 7 matches / threshold 3 = 2 triggers, already at the cap.
		assert.Equal(t, 20.0, score)
		require.Len(t, triggered, 1)
		assert.Equal(t, 7, triggered[0].MatchCount)
		assert.Equal(t, 2, triggered[0].TriggerCount)
		assert.Equal(t, 20.0, triggered[0].Points)
	})

	t.Run("events outside window excluded", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Tab switching", EventType: models.EventTabSwitched, ThresholdCount: 2, WindowSeconds: 300, RiskPoints: 15},
		}
		events := append(
			makeEvents(models.EventTabSwitched, 1, 3, now.Add(-20*time.Minute)),
			makeEvents(models.EventTabSwitched, 1, 2, now.Add(-time.Minute))...,
		)

		score, triggered, counts := evaluateRules(rules, events, now)

		assert.Equal(t, 15.0, score)
		require.Len(t, triggered, 1)
		assert.Equal(t, 2, triggered[0].MatchCount)
		// The counts breakdown is windowless.
		assert.Equal(t, 5, counts[models.EventTabSwitched])
	})

	t.Run("window zero covers the whole session", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Tab switching", EventType: models.EventTabSwitched, ThresholdCount: 3, WindowSeconds: 0, RiskPoints: 10},
		}
		events := makeEvents(models.EventTabSwitched, 1, 3, now.Add(-2*time.Hour))

		score, _, _ := evaluateRules(rules, events, now)
		assert.Equal(t, 10.0, score)
	})

	t.Run("minimum severity filter", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Severe disconnects", EventType: models.EventNetworkDisconnect, ThresholdCount: 1, RiskPoints: 20, MinSeverity: intPtr(4)},
		}
		events := append(
			makeEvents(models.EventNetworkDisconnect, 2, 4, now.Add(-time.Minute)),
			makeEvents(models.EventNetworkDisconnect, 4, 1, now.Add(-time.Minute))...,
		)

		score, triggered, _ := evaluateRules(rules, events, now)

		assert.Equal(t, 20.0, score)
		require.Len(t, triggered, 1)
		assert.Equal(t, 1, triggered[0].MatchCount)
	})

	t.Run("score clamped at 100", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Multiple faces", EventType: models.EventMultipleFaces, ThresholdCount: 1, RiskPoints: 40},
		}
		events := makeEvents(models.EventMultipleFaces, 3, 4, now.Add(-time.Minute))

		score, triggered, _ := evaluateRules(rules, events, now)

		assert.Equal(t, 100.0, score)
		// The breakdown keeps the unclamped per-rule points.
		require.Len(t, triggered, 1)
		assert.Equal(t, 160.0, triggered[0].Points)
	})

	t.Run("zero threshold rule skipped", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Broken legacy rule", EventType: models.EventTabSwitched, ThresholdCount: 0, RiskPoints: 50},
		}
		events := makeEvents(models.EventTabSwitched, 1, 5, now.Add(-time.Minute))

		score, triggered, _ := evaluateRules(rules, events, now)

		assert.Equal(t, 0.0, score)
		assert.Empty(t, triggered)
	})

	t.Run("below threshold does not trigger", func(t *testing.T) {
		rules := []*models.ProctorRiskRule{
			{ID: 1, Name: "Copy attempts", EventType: models.EventCopyAttempt, ThresholdCount: 5, RiskPoints: 10},
		}
		events := makeEvents(models.EventCopyAttempt, 1, 4, now.Add(-time.Minute))

		score, triggered, _ := evaluateRules(rules, events, now)

		assert.Equal(t, 0.0, score)
		assert.Empty(t, triggered)
	})
}

func TestRiskServiceCalculate(t *testing.T) {
	ctx := context.Background()

	setup := func() (*fakeRepo, RiskService, *models.ProctorSession) {
		repo := newFakeRepo()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptInProgress)
		session := seedSession(repo.store, attempt, models.SessionActive)
		svc := NewRiskService(repo, testLogger(), testValidator())
		return repo, svc, session
	}

	t.Run("computes score and persists snapshot", func(t *testing.T) {
		repo, svc, session := setup()
		repo.store.rules[99] = &models.ProctorRiskRule{
			ID: 99, Name: "Tab switching", EventType: models.EventTabSwitched,
			ThresholdCount: 2, RiskPoints: 10, IsActive: true, Priority: 100,
		}
		for i := 0; i < 4; i++ {
			seedEvent(repo.store, session, models.EventTabSwitched, 1, time.Now().UTC())
		}

		resp, err := svc.Calculate(ctx, session.ID, "proctor-1")
		require.NoError(t, err)

		assert.Equal(t, 20.0, resp.Score)
		assert.Equal(t, models.RiskLow, resp.Level)
		require.Len(t, resp.TriggeredRules, 1)
		assert.Equal(t, 4, resp.EventCounts[models.EventTabSwitched])

		stored := repo.store.sessions[session.ID]
		require.NotNil(t, stored.RiskScore)
		assert.Equal(t, 20.0, *stored.RiskScore)

		require.Len(t, repo.store.snapshots, 1)
		assert.Equal(t, 20.0, repo.store.snapshots[0].Score)
		assert.Equal(t, "proctor-1", repo.store.snapshots[0].CalculatedBy)
	})

	t.Run("zero events still snapshots", func(t *testing.T) {
		repo, svc, session := setup()

		resp, err := svc.Calculate(ctx, session.ID, "proctor-1")
		require.NoError(t, err)

		assert.Equal(t, 0.0, resp.Score)
		assert.Len(t, repo.store.snapshots, 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, svc, _ := setup()

		_, err := svc.Calculate(ctx, 9999, "proctor-1")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("inactive rules ignored", func(t *testing.T) {
		repo, svc, session := setup()
		repo.store.rules[99] = &models.ProctorRiskRule{
			ID: 99, Name: "Disabled", EventType: models.EventTabSwitched,
			ThresholdCount: 1, RiskPoints: 10, IsActive: false,
		}
		seedEvent(repo.store, session, models.EventTabSwitched, 1, time.Now().UTC())

		resp, err := svc.Calculate(ctx, session.ID, "proctor-1")
		require.NoError(t, err)
		assert.Equal(t, 0.0, resp.Score)
	})
}

func TestRiskRuleManagement(t *testing.T) {
	ctx := context.Background()

	setup := func() (*fakeRepo, RiskService) {
		repo := newFakeRepo()
		return repo, NewRiskService(repo, testLogger(), testValidator())
	}

	t.Run("create applies defaults", func(t *testing.T) {
		_, svc := setup()

		rule, err := svc.CreateRule(ctx, &CreateRiskRuleRequest{
			Name:           "Tab switching",
			EventType:      models.EventTabSwitched,
			ThresholdCount: 3,
			RiskPoints:     10,
		}, "admin-1")
		require.NoError(t, err)

		assert.True(t, rule.IsActive)
		assert.Equal(t, 100, rule.Priority)
		assert.Equal(t, "admin-1", rule.CreatedBy)
	})

	t.Run("zero threshold rejected", func(t *testing.T) {
		_, svc := setup()

		_, err := svc.CreateRule(ctx, &CreateRiskRuleRequest{
			Name:           "Broken",
			EventType:      models.EventTabSwitched,
			ThresholdCount: 0,
			RiskPoints:     10,
		}, "admin-1")
		assert.Error(t, err)
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		_, svc := setup()

		_, err := svc.CreateRule(ctx, &CreateRiskRuleRequest{
			Name:           "Bogus",
			EventType:      "made_up_event",
			ThresholdCount: 1,
			RiskPoints:     10,
		}, "admin-1")
		assert.Error(t, err)
	})

	t.Run("toggle flips active flag", func(t *testing.T) {
		repo, svc := setup()
		repo.store.rules[5] = &models.ProctorRiskRule{ID: 5, Name: "Rule", EventType: models.EventTabSwitched, ThresholdCount: 1, RiskPoints: 5, IsActive: true}

		rule, err := svc.ToggleRule(ctx, 5, false)
		require.NoError(t, err)
		assert.False(t, rule.IsActive)
		assert.False(t, repo.store.rules[5].IsActive)
	})

	t.Run("update missing rule", func(t *testing.T) {
		_, svc := setup()

		_, err := svc.UpdateRule(ctx, 42, &CreateRiskRuleRequest{
			Name:           "Rule",
			EventType:      models.EventTabSwitched,
			ThresholdCount: 1,
			RiskPoints:     5,
		})
		assert.ErrorIs(t, err, ErrRiskRuleNotFound)
	})
}
