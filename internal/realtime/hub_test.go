package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func changeEvent(id string) ChangeEvent {
	row, _ := json.Marshal(map[string]string{"id": id})
	return ChangeEvent{Table: "approval_requests", Operation: "UPDATE", NewRow: row}
}

func receiveOne(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return ChangeEvent{}
}

func TestMemoryHubDeliversToSubscribedIdentity(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, "staff-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := hub.Publish(ctx, "staff-1", changeEvent("req-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	event := receiveOne(t, sub)
	if event.Table != "approval_requests" || event.Operation != "UPDATE" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestMemoryHubFiltersByIdentity(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	mine, _ := hub.Subscribe(ctx, "staff-1")
	defer mine.Close()
	other, _ := hub.Subscribe(ctx, "staff-2")
	defer other.Close()

	if err := hub.Publish(ctx, "staff-1", changeEvent("req-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	receiveOne(t, mine)
	select {
	case event := <-other.Events():
		t.Fatalf("staff-2 must not receive staff-1 events, got %+v", event)
	default:
	}
}

func TestMemoryHubFanOutToMultipleSubscribers(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	first, _ := hub.Subscribe(ctx, "staff-1")
	defer first.Close()
	second, _ := hub.Subscribe(ctx, "staff-1")
	defer second.Close()

	if err := hub.Publish(ctx, "staff-1", changeEvent("req-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	receiveOne(t, first)
	receiveOne(t, second)
}

func TestMemoryHubCloseReleasesRegistration(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	sub, _ := hub.Subscribe(ctx, "staff-1")
	sub.Close()
	sub.Close() // idempotent

	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed after Close")
	}

	// Publishing after close must not panic on a closed channel.
	if err := hub.Publish(ctx, "staff-1", changeEvent("req-1")); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestMemoryHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	sub, _ := hub.Subscribe(ctx, "staff-1")
	defer sub.Close()

	// Never drain: the buffer fills and later publishes are dropped rather
	// than blocking the publisher.
	for i := 0; i < subscriberBuffer+10; i++ {
		if err := hub.Publish(ctx, "staff-1", changeEvent("req")); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	drained := 0
	for {
		select {
		case <-sub.Events():
			drained++
		default:
			if drained != subscriberBuffer {
				t.Fatalf("expected %d buffered events, got %d", subscriberBuffer, drained)
			}
			return
		}
	}
}
