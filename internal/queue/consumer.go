package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/funrun2025/registration-service/internal/notify"
)

// StartConsumer connects to RabbitMQ, binds a process-private queue to the
// registration.events fanout exchange, and feeds every delivery to the
// notification manager.  It runs a reconnect loop with exponential backoff
// and keeps running across broker restarts; processing errors are logged
// and the offending message rejected so the server continues operating.
// Intended to run on its own goroutine for the life of the process.
func StartConsumer(manager *notify.Manager) {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("feed-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, manager); err != nil {
			log.Printf("feed-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, manager *notify.Manager) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	// Exclusive auto-delete queue: every process gets its own copy of the
	// feed and leaves nothing behind on shutdown.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleDelivery(d.Body, manager); err != nil {
			log.Printf("feed-consumer: handle delivery failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleDelivery turns one change-feed event into a typed notification and
// hands it to the manager.
func handleDelivery(body []byte, manager *notify.Manager) error {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	switch ev.Kind {
	case KindNotification:
		if ev.Notification == nil {
			return errors.New("notification event without payload")
		}
		manager.Handle(*ev.Notification)
	case KindRegistrationCreated:
		manager.Handle(notify.Notification{
			ID:          fmt.Sprintf("new-%s-%d-%d", ev.RegistrationType, ev.RegistrationID, time.Now().UnixMilli()),
			Type:        notify.TypeNewRegistration,
			Title:       "New Registration",
			Message:     createdMessage(ev),
			Timestamp:   ev.OccurredAt,
			FieldOffice: officeTag(ev.FieldOfficeID),
		})
	case KindStatusUpdated:
		// Only real status changes become notifications; other column
		// updates ride the feed silently.
		if ev.Status == ev.PreviousStatus {
			return nil
		}
		manager.Handle(notify.Notification{
			ID:          fmt.Sprintf("status-%s-%d-%d", ev.RegistrationType, ev.RegistrationID, time.Now().UnixMilli()),
			Type:        notify.TypeStatusUpdate,
			Title:       "Status Updated",
			Message:     statusMessage(ev),
			Timestamp:   ev.OccurredAt,
			FieldOffice: officeTag(ev.FieldOfficeID),
		})
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

func createdMessage(ev ChangeEvent) string {
	if ev.RegistrationType == "group" {
		return fmt.Sprintf("%s has submitted a group registration", ev.Name)
	}
	return fmt.Sprintf("%s has registered for the fun run", ev.Name)
}

func statusMessage(ev ChangeEvent) string {
	if ev.RegistrationType == "group" {
		return fmt.Sprintf("%s's group registration status changed to %s", ev.Name, ev.Status)
	}
	return fmt.Sprintf("%s's registration status changed to %s", ev.Name, ev.Status)
}

func officeTag(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}
