package amqpbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mmynk/tableside/internal/events"
)

func TestRoutingKey(t *testing.T) {
	if got := RoutingKey(events.Tables, events.Update); got != "restaurant_tables.update" {
		t.Errorf("RoutingKey() = %q", got)
	}
}

// TestPublishSubscribe needs a broker; it skips when none is reachable.
func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL not set, skipping RabbitMQ tests")
	}
	bus, err := Dial(url)
	if err != nil {
		t.Skipf("RabbitMQ not available: %v", err)
	}
	defer bus.Close()

	received := make(chan events.Event, 1)
	sub, err := bus.Subscribe(events.Orders, events.Insert, func(e events.Event) { received <- e })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	ctx := context.Background()
	// Not bound: only inserts were requested.
	if err := bus.Publish(ctx, events.Event{Collection: events.Orders, Op: events.Update, ID: "o0"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := bus.Publish(ctx, events.Event{Collection: events.Orders, Op: events.Insert, ID: "o1", At: 1700000000}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case e := <-received:
		if e.ID != "o1" || e.Op != events.Insert {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
