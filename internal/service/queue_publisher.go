package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/queue"
)

// ActivityPublisher receives ticket activity after it has been committed.
type ActivityPublisher interface {
	Publish(ctx context.Context, ev queue.TicketActivity) error
}

// AMQPPublisher publishes ticket activity to the "ticket.activity" queue.
// It dials per message; activity is low volume and this keeps the
// publisher free of connection state.  Errors are logged and returned so
// the caller can choose to ignore them.  Messages are marked persistent.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.TicketActivity) error {
	log := logrus.WithField("component", "rabbitmq")
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.WithError(err).Warn("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ActivityQueue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("marshal activity failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.ActivityQueue, false, false, pub); err != nil {
		log.WithError(err).Warn("publish failed")
		return err
	}
	return nil
}
