// Package service connects the billing core to its delivery channels:
// RabbitMQ for durable event delivery and the in-process WebSocket hub.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// Publisher sends parking events to a durable RabbitMQ queue.  It dials per
// message; event volume is bounded by gate traffic.
type Publisher struct {
	URL   string
	Queue string
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so that callers can ignore them.
func (p *Publisher) Publish(ctx context.Context, ev queue.ParkingEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, msg); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// Notify publishes ev in the background so that a slow broker never delays
// the HTTP response.  It satisfies billing.Notifier.
func (p *Publisher) Notify(_ context.Context, ev queue.ParkingEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Publish(ctx, ev)
	}()
}
