package notify

import (
	"context"
	"testing"
)

func TestFilteredForwardsAllowedReason(t *testing.T) {
	inner := &stubNotifier{name: "webhook"}
	f := NewFiltered(inner, []string{"ImagePullBackOff", "CrashLoopBackOff"})

	if err := f.Send(context.Background(), testEvent("ImagePullBackOff")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(inner.sent) != 1 {
		t.Fatalf("got %d forwarded events, want 1", len(inner.sent))
	}
}

func TestFilteredDropsOtherReasons(t *testing.T) {
	inner := &stubNotifier{name: "webhook"}
	f := NewFiltered(inner, []string{"ImagePullBackOff"})

	if err := f.Send(context.Background(), testEvent("RuntimeError")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(inner.sent) != 0 {
		t.Errorf("filtered notifier forwarded %d events, want 0", len(inner.sent))
	}
}

func TestFilteredEmptyListPassesThrough(t *testing.T) {
	inner := &stubNotifier{name: "webhook"}

	// No reasons configured: the notifier is returned unwrapped.
	if f := NewFiltered(inner, nil); f != Notifier(inner) {
		t.Fatal("empty reason list should return the inner notifier")
	}
}

func TestFilteredKeepsName(t *testing.T) {
	inner := &stubNotifier{name: "mqtt"}
	f := NewFiltered(inner, []string{"RuntimeError"})
	if f.Name() != "mqtt" {
		t.Errorf("Name() = %q, want mqtt", f.Name())
	}
}
