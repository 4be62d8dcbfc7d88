// Package amqpbus carries change notifications between terminals over a
// RabbitMQ topic exchange. Routing keys are "<collection>.<op>".
package amqpbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/tableside/internal/events"
)

const (
	ExchangeName = "tableside.changes"
	ExchangeType = "topic"

	dialAttempts = 5
)

// Ensure Bus implements events.Bus
var _ events.Bus = (*Bus)(nil)

// Bus implements events.Bus on RabbitMQ. Publishing shares one channel;
// every subscription gets its own channel and exclusive queue.
type Bus struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// Dial connects to url, retrying while the broker starts up, and declares
// the exchange.
func Dial(url string) (*Bus, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		slog.Warn("Failed to connect to RabbitMQ", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		conn.Close()
		return nil, err
	}

	return &Bus{conn: conn, ch: ch}, nil
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare exchange: %w", err)
	}
	return nil
}

// RoutingKey returns the routing key for a single op on collection.
func RoutingKey(collection events.Collection, op events.Op) string {
	return fmt.Sprintf("%s.%s", collection, op)
}

// Publish sends e to the exchange.
func (b *Bus) Publish(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch.PublishWithContext(ctx,
		ExchangeName,                   // exchange
		RoutingKey(e.Collection, e.Op), // routing key
		false,                          // mandatory
		false,                          // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Unix(e.At, 0),
			Body:        body,
		},
	)
}

// Subscribe binds an exclusive queue for each op in mask and delivers
// matching events to h until Unsubscribe.
func (b *Bus) Subscribe(collection events.Collection, mask events.Op, h events.Handler) (*events.Subscription, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // random name
		false, // non-durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("could not declare queue: %w", err)
	}

	for _, op := range mask.Ops() {
		if err := ch.QueueBind(q.Name, RoutingKey(collection, op), ExchangeName, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("could not bind queue: %w", err)
		}
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("could not start consume: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				var e events.Event
				if err := json.Unmarshal(d.Body, &e); err != nil {
					slog.Warn("Dropping malformed change event", "routing_key", d.RoutingKey, "error", err)
					continue
				}
				h(e)
			}
		}
	}()

	return events.NewSubscription(collection, mask, func() {
		close(done)
		if err := ch.Close(); err != nil {
			slog.Debug("Closing subscription channel", "error", err)
		}
	}), nil
}

// Close closes the publishing channel and the connection, which ends all
// subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.Close(); err != nil {
		slog.Debug("Closing publish channel", "error", err)
	}
	return b.conn.Close()
}
