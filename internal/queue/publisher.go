package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends events to ActivityQueue.  It dials the broker per publish
// so the API process holds no long-lived AMQP connection.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log.Named("publisher")}
}

// Publish declares the queue (idempotent) and publishes ev as a persistent
// JSON message.  Every failure is logged and returned.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	msg, err := newPublishing(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareActivityQueue(ch); err != nil {
		p.log.Warn("queue declare failed", zap.Error(err))
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",            // default exchange
		ActivityQueue, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		msg,
	); err != nil {
		p.log.Warn("publish failed", zap.String("event_id", ev.ID), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
	return nil
}

func newPublishing(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func declareActivityQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		ActivityQueue, // name
		true,          // durable
		false,         // autoDelete
		false,         // exclusive
		false,         // noWait
		nil,           // args
	)
	return err
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
