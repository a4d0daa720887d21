// Package queue defines the change-feed payloads exchanged over the
// message broker, plus the publisher and the background consumer that
// feeds the notification manager.
package queue

import (
	"time"

	"github.com/funrun2025/registration-service/internal/notify"
)

// Change-feed event kinds.
const (
	KindRegistrationCreated = "registration.created"
	KindStatusUpdated       = "status.updated"
	KindNotification        = "notification"
)

// exchangeName is the fanout exchange every process publishes to and
// consumes from.  Fanout (rather than a work queue) because each connected
// process keeps its own notification history and must see every event.
const exchangeName = "registration.events"

// ChangeEvent is published whenever a registration is created or its
// status changes, and when an admin broadcasts a system notification.  It
// carries enough for consumers to build a UI notification without querying
// the primary database.
type ChangeEvent struct {
	Kind             string               `json:"kind"`
	RegistrationType string               `json:"registration_type,omitempty"` // individual | group
	RegistrationID   uint64               `json:"registration_id,omitempty"`
	Name             string               `json:"name,omitempty"` // registrant full name or agency name
	Status           string               `json:"status,omitempty"`
	PreviousStatus   string               `json:"previous_status,omitempty"`
	FieldOfficeID    uint64               `json:"field_office_id,omitempty"`
	Notification     *notify.Notification `json:"notification,omitempty"` // set when Kind == notification
	OccurredAt       time.Time            `json:"occurred_at"`
}
