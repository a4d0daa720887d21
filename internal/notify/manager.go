// Package notify keeps a bounded in-memory notification history and fans
// incoming change-feed events out to registered listeners.  The history is
// a disposable per-process cache: a restart loses unread state, and
// independent processes converge only through the external feed.
package notify

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	TypeNewRegistration = "new_registration"
	TypeStatusUpdate    = "status_update"
	TypeSystemAlert     = "system_alert"
)

// maxHistory bounds the retained notification list.  Oldest entries are
// dropped silently once the bound is reached; that is the deliberate
// bounded-memory policy, not data loss.
const maxHistory = 100

// Notification is one entry of the bell/notification feed.  FieldOffice is
// empty for broadcasts visible to every office.
type Notification struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Read        bool      `json:"read"`
	FieldOffice string    `json:"field_office,omitempty"`
}

// Listener receives notifications for one event type.  Listeners run
// synchronously in registration order; a panicking listener is isolated so
// the rest still run.
type Listener func(Notification)

// Publisher sends a notification through the external change feed so other
// connected processes receive it too.  The queue package provides the
// RabbitMQ implementation.
type Publisher interface {
	PublishNotification(n Notification) error
}

// Manager holds the listener registry and the bounded history.  Create one
// per process with NewManager, inject it wherever needed, and Close it at
// shutdown; there is deliberately no package-level instance.
type Manager struct {
	mu            sync.RWMutex
	notifications []Notification
	listeners     map[string][]Listener
	publisher     Publisher
}

// NewManager builds a Manager.  publisher may be nil, in which case
// Broadcast only records locally.
func NewManager(publisher Publisher) *Manager {
	return &Manager{
		listeners: make(map[string][]Listener),
		publisher: publisher,
	}
}

// AddListener registers a listener for one event type.
func (m *Manager) AddListener(eventType string, l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[eventType] = append(m.listeners[eventType], l)
}

// Handle records a notification and dispatches it to the listeners of its
// type.  The queue consumer calls this for every change-feed delivery.
func (m *Manager) Handle(n Notification) {
	m.add(n)
	m.dispatch(n.Type, n)
}

func (m *Manager) add(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append([]Notification{n}, m.notifications...)
	if len(m.notifications) > maxHistory {
		m.notifications = m.notifications[:maxHistory]
	}
}

func (m *Manager) dispatch(eventType string, n Notification) {
	m.mu.RLock()
	ls := make([]Listener, len(m.listeners[eventType]))
	copy(ls, m.listeners[eventType])
	m.mu.RUnlock()

	for _, l := range ls {
		invoke(l, n)
	}
}

// invoke isolates listener panics so one failing listener cannot stop the
// others from running.
func invoke(l Listener, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notify: listener panicked: %v", r)
		}
	}()
	l(n)
}

// Notifications returns the history newest-first.  A non-empty fieldOffice
// filters to notifications with no office tag or a matching one.
func (m *Manager) Notifications(fieldOffice string) []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		if fieldOffice == "" || n.FieldOffice == "" || n.FieldOffice == fieldOffice {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount counts unread notifications under the same filter rules as
// Notifications.
func (m *Manager) UnreadCount(fieldOffice string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, n := range m.notifications {
		if !n.Read && (fieldOffice == "" || n.FieldOffice == "" || n.FieldOffice == fieldOffice) {
			count++
		}
	}
	return count
}

// MarkAsRead marks one notification read.  Marking an already-read or
// unknown id is a no-op.
//
// Read flags live on the shared per-process history, not per admin: one
// admin marking a notification read clears it for every session whose
// filter matches.  The history is a disposable convergence cache, so
// per-admin read tracking would need real persistence to mean anything.
func (m *Manager) MarkAsRead(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].Read = true
			return
		}
	}
}

// MarkAllAsRead marks every notification matching the filter read.
// Idempotent.
func (m *Manager) MarkAllAsRead(fieldOffice string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		n := &m.notifications[i]
		if fieldOffice == "" || n.FieldOffice == "" || n.FieldOffice == fieldOffice {
			n.Read = true
		}
	}
}

// Broadcast completes a partial notification (id, timestamp, unread) and
// publishes it through the external feed; the local copy arrives back via
// the feed consumer like everyone else's.  Without a publisher, or when the
// publish fails, the notification is recorded locally so the sender still
// sees it.
func (m *Manager) Broadcast(notifType, title, message, fieldOffice string) Notification {
	n := Notification{
		ID:          uuid.NewString(),
		Type:        notifType,
		Title:       title,
		Message:     message,
		Timestamp:   time.Now().UTC(),
		Read:        false,
		FieldOffice: fieldOffice,
	}
	if m.publisher == nil {
		m.Handle(n)
		return n
	}
	if err := m.publisher.PublishNotification(n); err != nil {
		log.Printf("notify: broadcast publish failed, keeping local copy: %v", err)
		m.Handle(n)
	}
	return n
}

// Close drops all listeners and history.  Call at shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = make(map[string][]Listener)
	m.notifications = nil
}
