package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ActivityLogPath is where the consumer appends one line per activity.
var ActivityLogPath = filepath.Join("logs", "ticket_activity.log")

// StartActivityConsumer connects to RabbitMQ, declares the ticket.activity
// queue (durable) and appends every message to ActivityLogPath.  It runs a
// reconnect loop with exponential backoff and never returns; call it in
// its own goroutine.
func StartActivityConsumer(url string) {
	log := logrus.WithField("component", "activity-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(conn, log)
		_ = conn.Close()
		log.WithError(err).Warn("consume loop ended; reconnecting")
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ActivityQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleActivity(d.Body); err != nil {
			log.WithError(err).Error("handle message failed")
			_ = d.Nack(false, false) // do not requeue a poison message
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleActivity decodes one message body and appends it to the log file.
func HandleActivity(body []byte) error {
	var ev TicketActivity
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.TicketID == 0 {
		return errors.New("activity missing type or ticket id")
	}
	if err := os.MkdirAll(filepath.Dir(ActivityLogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(ActivityLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | id=%s | ticket_id=%d | user_id=%d | event_id=%d\n",
		ev.OccurredAt, ev.Type, ev.ID, ev.TicketID, ev.UserID, ev.EventID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
