package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

func newDecisionServiceForTest() (*fakeRepo, *events.MockEventPublisher, DecisionService) {
	repo := newFakeRepo()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewDecisionService(repo, testLogger(), testValidator(), publisher)
	return repo, publisher, svc
}

func TestMakeDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("running attempt blocks the decision", func(t *testing.T) {
		repo, _, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptInProgress)
		session := seedSession(repo.store, attempt, models.SessionActive)

		_, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{
			Status: models.DecisionCleared,
		}, "reviewer-1")
		assert.ErrorIs(t, err, ErrAttemptNotConcluded)
	})

	t.Run("decides a submitted attempt", func(t *testing.T) {
		repo, publisher, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptSubmitted)
		session := seedSession(repo.store, attempt, models.SessionCompleted)

		reason := "No substantiated violations"
		decision, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{
			Status:   models.DecisionCleared,
			ReasonEn: &reason,
		}, "reviewer-1")
		require.NoError(t, err)

		assert.Equal(t, models.DecisionCleared, decision.Status)
		assert.Equal(t, "reviewer-1", decision.DecidedBy)
		assert.False(t, decision.IsFinalized)
		assert.NotNil(t, decision.DecidedAt)

		require.Len(t, repo.store.decisionLogs, 1)
		assert.Equal(t, "created", repo.store.decisionLogs[0].Action)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.DecisionMade, published[0].Type)
	})

	t.Run("terminated attempt can be decided", func(t *testing.T) {
		repo, _, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptTerminated)
		session := seedSession(repo.store, attempt, models.SessionCancelled)

		_, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{
			Status: models.DecisionInvalidated,
		}, "reviewer-1")
		assert.NoError(t, err)
	})

	t.Run("revision updates until finalized", func(t *testing.T) {
		repo, _, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptSubmitted)
		session := seedSession(repo.store, attempt, models.SessionCompleted)

		first, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{Status: models.DecisionPending}, "reviewer-1")
		require.NoError(t, err)

		second, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{
			Status:   models.DecisionInvalidated,
			Finalize: true,
		}, "reviewer-2")
		require.NoError(t, err)

		// Same aggregate, updated in place.
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.DecisionInvalidated, second.Status)
		assert.True(t, second.IsFinalized)

		_, err = svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{Status: models.DecisionCleared}, "reviewer-3")
		assert.ErrorIs(t, err, ErrDecisionFinalized)

		actions := []string{}
		for _, entry := range repo.store.decisionLogs {
			actions = append(actions, entry.Action)
		}
		assert.Equal(t, []string{"created", "finalized"}, actions)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		repo, _, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptSubmitted)
		session := seedSession(repo.store, attempt, models.SessionCompleted)

		_, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{Status: "Maybe"}, "reviewer-1")
		assert.Error(t, err)
	})
}

func TestOverrideDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("overrides a finalized decision", func(t *testing.T) {
		repo, publisher, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptSubmitted)
		session := seedSession(repo.store, attempt, models.SessionCompleted)

		decision, err := svc.MakeDecision(ctx, session.ID, &MakeDecisionRequest{
			Status:   models.DecisionInvalidated,
			Finalize: true,
		}, "reviewer-1")
		require.NoError(t, err)

		overridden, err := svc.Override(ctx, decision.ID, &OverrideDecisionRequest{
			Status: models.DecisionCleared,
			Reason: "Appeal upheld",
		}, "admin-1")
		require.NoError(t, err)

		assert.Equal(t, models.DecisionCleared, overridden.Status)
		require.NotNil(t, overridden.PreviousStatus)
		assert.Equal(t, models.DecisionInvalidated, *overridden.PreviousStatus)
		assert.True(t, overridden.IsFinalized)
		require.NotNil(t, overridden.OverriddenBy)
		assert.Equal(t, "admin-1", *overridden.OverriddenBy)
		assert.NotNil(t, overridden.OverriddenAt)

		history, err := svc.GetHistory(ctx, decision.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "finalized", history[0].Action)
		assert.Equal(t, "overridden", history[1].Action)

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 2)
		assert.Equal(t, events.DecisionOverridden, published[1].Type)
	})

	t.Run("override requires a reason", func(t *testing.T) {
		_, _, svc := newDecisionServiceForTest()

		_, err := svc.Override(ctx, 1, &OverrideDecisionRequest{Status: models.DecisionCleared}, "admin-1")
		assert.Error(t, err)
	})

	t.Run("unknown decision", func(t *testing.T) {
		_, _, svc := newDecisionServiceForTest()

		_, err := svc.Override(ctx, 404, &OverrideDecisionRequest{
			Status: models.DecisionCleared,
			Reason: "reason",
		}, "admin-1")
		assert.ErrorIs(t, err, ErrDecisionNotFound)
	})
}

func TestGetDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("session without a decision", func(t *testing.T) {
		repo, _, svc := newDecisionServiceForTest()
		attempt := seedAttempt(repo.store, "candidate-1", models.AttemptSubmitted)
		session := seedSession(repo.store, attempt, models.SessionCompleted)

		_, err := svc.GetBySession(ctx, session.ID)
		assert.ErrorIs(t, err, ErrDecisionNotFound)
	})

	t.Run("history of unknown decision", func(t *testing.T) {
		_, _, svc := newDecisionServiceForTest()

		_, err := svc.GetHistory(ctx, 404)
		assert.ErrorIs(t, err, ErrDecisionNotFound)
	})
}
