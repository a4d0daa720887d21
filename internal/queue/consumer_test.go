package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/funrun2025/registration-service/internal/notify"
)

func marshal(t *testing.T, ev ChangeEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleDeliveryCreated(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	ev := ChangeEvent{
		Kind:             KindRegistrationCreated,
		RegistrationType: "individual",
		RegistrationID:   12,
		Name:             "Ana Santos",
		Status:           "pending",
		FieldOfficeID:    4,
		OccurredAt:       time.Now().UTC(),
	}
	if err := handleDelivery(marshal(t, ev), m); err != nil {
		t.Fatalf("handleDelivery: %v", err)
	}

	got := m.Notifications("")
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	n := got[0]
	if n.Type != notify.TypeNewRegistration {
		t.Errorf("type = %q", n.Type)
	}
	if n.FieldOffice != "4" {
		t.Errorf("field office tag = %q, want 4", n.FieldOffice)
	}
	if n.Message != "Ana Santos has registered for the fun run" {
		t.Errorf("message = %q", n.Message)
	}

	// Group submissions read differently.
	ev.RegistrationType = "group"
	ev.Name = "Runners Club"
	if err := handleDelivery(marshal(t, ev), m); err != nil {
		t.Fatal(err)
	}
	if msg := m.Notifications("")[0].Message; msg != "Runners Club has submitted a group registration" {
		t.Errorf("group message = %q", msg)
	}
}

func TestHandleDeliveryStatusUpdate(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	ev := ChangeEvent{
		Kind:             KindStatusUpdated,
		RegistrationType: "individual",
		RegistrationID:   7,
		Name:             "Ben Reyes",
		Status:           "approved",
		PreviousStatus:   "pending",
		OccurredAt:       time.Now().UTC(),
	}
	if err := handleDelivery(marshal(t, ev), m); err != nil {
		t.Fatal(err)
	}
	got := m.Notifications("")
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if got[0].Type != notify.TypeStatusUpdate {
		t.Errorf("type = %q", got[0].Type)
	}
	if got[0].Message != "Ben Reyes's registration status changed to approved" {
		t.Errorf("message = %q", got[0].Message)
	}

	// A no-op update (same status on both sides) produces nothing.
	ev.PreviousStatus = ev.Status
	if err := handleDelivery(marshal(t, ev), m); err != nil {
		t.Fatal(err)
	}
	if got := m.Notifications(""); len(got) != 1 {
		t.Errorf("notifications after no-op = %d, want 1", len(got))
	}

	// An event without an office is visible to every office filter.
	if got := m.Notifications("99"); len(got) != 1 {
		t.Errorf("filtered view = %d, want 1", len(got))
	}
}

func TestHandleDeliveryNotificationPassthrough(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	n := notify.Notification{
		ID:      "alert-1",
		Type:    notify.TypeSystemAlert,
		Title:   "Maintenance",
		Message: "back at noon",
	}
	ev := ChangeEvent{Kind: KindNotification, Notification: &n, OccurredAt: time.Now().UTC()}
	if err := handleDelivery(marshal(t, ev), m); err != nil {
		t.Fatal(err)
	}
	got := m.Notifications("")
	if len(got) != 1 || got[0].ID != "alert-1" {
		t.Errorf("notifications = %+v", got)
	}
}

func TestHandleDeliveryRejectsBadInput(t *testing.T) {
	t.Parallel()

	m := notify.NewManager(nil)
	if err := handleDelivery([]byte("{"), m); err == nil {
		t.Error("malformed JSON accepted")
	}
	if err := handleDelivery(marshal(t, ChangeEvent{Kind: "mystery"}), m); err == nil {
		t.Error("unknown kind accepted")
	}
	if err := handleDelivery(marshal(t, ChangeEvent{Kind: KindNotification}), m); err == nil {
		t.Error("notification event without payload accepted")
	}
	if got := m.Notifications(""); len(got) != 0 {
		t.Errorf("bad input produced %d notifications", len(got))
	}
}
