package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the parking events queue into an append-only log file,
// one human-readable line per event.
type Consumer struct {
	URL    string
	Queue  string
	LogDir string

	mu sync.Mutex
}

// Run connects to the broker and consumes until ctx is cancelled.  Broker
// outages are retried with exponential backoff; a message that cannot be
// handled is rejected without requeue so it cannot block the queue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("event-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Handle(d.Body); err != nil {
			log.Printf("event-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and appends it to parking.log.
func (c *Consumer) Handle(body []byte) error {
	var ev ParkingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}

	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "parking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single log line terminated by a newline.
func FormatLine(ev ParkingEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | lot_id=%d | session_id=%d | plate=%q", ev.OccurredAt, ev.Type, ev.LotID, ev.SessionID, ev.Plate)
	if ev.TransactionID != "" {
		fmt.Fprintf(&b, " | txn=%s", ev.TransactionID)
	}
	if ev.Amount != "" {
		fmt.Fprintf(&b, " | amount=%s", ev.Amount)
	}
	if ev.Method != "" {
		fmt.Fprintf(&b, " | method=%s", ev.Method)
	}
	if ev.PaidUntil != "" {
		fmt.Fprintf(&b, " | paid_until=%s", ev.PaidUntil)
	}
	b.WriteByte('\n')
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
