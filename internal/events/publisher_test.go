package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestNewProctoringEvent(t *testing.T) {
	event := NewProctoringEvent(SessionTerminated, 42, map[string]interface{}{
		"proctor_id": "proctor-1",
		"reason":     "Impersonation suspected",
	})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != SessionTerminated {
		t.Errorf("Expected type %s, got %s", SessionTerminated, event.Type)
	}
	if event.SessionID != 42 {
		t.Errorf("Expected session ID 42, got %d", event.SessionID)
	}
	if event.Source != "proctoring-service" {
		t.Errorf("Expected source proctoring-service, got %s", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if event.Data["reason"] != "Impersonation suspected" {
		t.Error("Data payload should carry the reason")
	}
}

func TestMockEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := NewMockEventPublisher(logger)
	ctx := context.Background()

	t.Run("collects published events", func(t *testing.T) {
		if err := publisher.PublishProctoringEvent(ctx, NewProctoringEvent(SessionFlagged, 1, nil)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if err := publisher.PublishProctoringEvent(ctx, NewProctoringEvent(WarningSent, 1, nil)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(published))
		}
		if published[0].Type != SessionFlagged {
			t.Errorf("Expected first event %s, got %s", SessionFlagged, published[0].Type)
		}
		if published[1].Type != WarningSent {
			t.Errorf("Expected second event %s, got %s", WarningSent, published[1].Type)
		}
	})

	t.Run("clear resets the buffer", func(t *testing.T) {
		publisher.ClearEvents()
		if got := len(publisher.GetPublishedEvents()); got != 0 {
			t.Errorf("Expected no events after clear, got %d", got)
		}
	})
}
