package notify

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	hub := NewHub(10, 0)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	published := hub.Publish(KindSuccess, "Donation confirmed", "tx abc123")
	select {
	case got := <-ch:
		if got.ID != published.ID || got.Kind != KindSuccess {
			t.Fatalf("unexpected notification: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}
	if active := hub.Active(); len(active) != 1 {
		t.Fatalf("want 1 active notification, got %d", len(active))
	}
}

func TestHistoryBounded(t *testing.T) {
	hub := NewHub(3, 0)
	defer hub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish(KindInfo, "event", "payload")
	}
	if active := hub.Active(); len(active) != 3 {
		t.Fatalf("want history capped at 3, got %d", len(active))
	}
}

func TestDismissRemovesNotification(t *testing.T) {
	hub := NewHub(10, 0)
	defer hub.Close()

	kept := hub.Publish(KindInfo, "keep", "")
	dropped := hub.Publish(KindError, "drop", "")
	hub.Dismiss(dropped.ID)

	active := hub.Active()
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Fatalf("unexpected active set after dismiss: %+v", active)
	}
	// Dismissing an unknown id is a no-op.
	hub.Dismiss("missing")
	if got := len(hub.Active()); got != 1 {
		t.Fatalf("want 1 active after no-op dismiss, got %d", got)
	}
}

func TestExpiryRemovesNotification(t *testing.T) {
	hub := NewHub(10, 20*time.Millisecond)
	defer hub.Close()

	hub.Publish(KindInfo, "ephemeral", "")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(hub.Active()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("notification never expired")
}

func TestDismissCancelsExpiry(t *testing.T) {
	hub := NewHub(10, 30*time.Millisecond)
	defer hub.Close()

	first := hub.Publish(KindInfo, "first", "")
	hub.Dismiss(first.ID)

	// A later notification must not be collateral damage of the first
	// notification's expiry timer.
	second := hub.Publish(KindInfo, "second", "")
	time.Sleep(50 * time.Millisecond)
	hub.mu.Lock()
	_, pending := hub.expiry[first.ID]
	hub.mu.Unlock()
	if pending {
		t.Fatal("dismiss left expiry timer registered")
	}
	_ = second
}

func TestLaggardSubscriberDropped(t *testing.T) {
	hub := NewHub(200, 0)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Fill the subscriber buffer and then some; the hub must not block.
	for i := 0; i < 100; i++ {
		hub.Publish(KindInfo, "burst", "")
	}
	received := 0
	for range ch {
		received++
	}
	if received == 0 {
		t.Fatal("expected buffered notifications before channel close")
	}
}
