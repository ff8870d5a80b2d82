package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/peopleops/recreation-booking/internal/repository"
)

// StartAssignmentConsumer connects to RabbitMQ, declares the
// slot.assigned queue and consumes assignment events.  Each event fans
// out into one notification row per addressed user plus an audit line
// in logs/assignments.log, and, when SMTP_ADDR is configured, a mail
// to each recipient.  The function runs a reconnect loop with capped
// backoff and never returns; processing errors reject the offending
// message without requeueing so a poison event cannot wedge the queue.
func StartAssignmentConsumer(notifications *repository.NotificationRepo, users *repository.UserRepo) {
	url := BrokerURL()
	mail := newMailerFromEnv()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("assignment-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, notifications, users, mail); err != nil {
			log.Printf("assignment-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, notifications *repository.NotificationRepo, users *repository.UserRepo, mail *mailer) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("assignment-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(assignmentQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(assignmentQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleAssignment(d.Body, notifications, users, mail); err != nil {
			log.Printf("assignment-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleAssignment(body []byte, notifications *repository.NotificationRepo, users *repository.UserRepo, mail *mailer) error {
	var ev AssignmentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, uid := range ev.UserIDs {
		if err := notifications.Create(ctx, uid, ev.Title, ev.Message); err != nil {
			return fmt.Errorf("create notification for user %d: %w", uid, err)
		}
	}

	if err := appendAuditLine(ev); err != nil {
		return err
	}

	// Mail delivery is best-effort: the notification rows are already
	// committed and a flaky relay must not nack the message.
	if mail.enabled() {
		var addrs []string
		for _, uid := range ev.UserIDs {
			u, err := users.GetByID(ctx, uid)
			if err != nil || u == nil {
				continue
			}
			addrs = append(addrs, u.Email)
		}
		if err := mail.Send(addrs, ev.Title, ev.Message); err != nil {
			log.Printf("assignment-consumer: send mail: %v", err)
		}
	}
	return nil
}

func appendAuditLine(ev AssignmentEvent) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "assignments.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | users=%v | %s\n", ev.EmittedAt, ev.Title, ev.UserIDs, ev.Message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
