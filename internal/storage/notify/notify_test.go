package notify

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/events"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/storage/sqlite"
)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(events.Collection, events.Op, events.Handler) (*events.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) take() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

func newTestStore(t *testing.T) (*Store, *recordingBus) {
	t.Helper()
	inner, err := sqlite.New(filepath.Join(t.TempDir(), "notify.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { inner.Close() })
	bus := &recordingBus{}
	store := New(inner, bus)
	store.now = func() time.Time { return time.Unix(42, 0) }
	return store, bus
}

func TestPublishesCommittedWrites(t *testing.T) {
	store, bus := newTestStore(t)
	ctx := context.Background()

	item := &models.MenuItem{Name: "Chai", Price: decimal.NewFromInt(20), IsAvailable: true}
	if err := store.CreateMenuItem(ctx, item); err != nil {
		t.Fatalf("CreateMenuItem failed: %v", err)
	}
	table := &models.Table{Name: "T1", Capacity: 2}
	if err := store.CreateTable(ctx, table); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	bus.take()

	line := models.OrderLine{MenuItemID: item.ID, Name: item.Name, Quantity: 1, PriceAtOrder: item.Price}
	order := &models.Order{TableID: table.ID, Type: models.OrderDineIn, Lines: []models.OrderLine{line}, Total: line.Amount()}
	if err := store.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	got := bus.take()
	want := []events.Event{
		{Collection: events.Orders, Op: events.Insert, ID: order.ID, At: 42},
		{Collection: events.OrderItems, Op: events.Insert, ID: order.ID, At: 42},
		{Collection: events.Tables, Op: events.Update, ID: table.ID, At: 42},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFailedWritePublishesNothing(t *testing.T) {
	store, bus := newTestStore(t)
	ctx := context.Background()

	_, err := store.TransitionTable(ctx, "missing", models.Reserve{})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := bus.take(); len(got) != 0 {
		t.Errorf("expected no events, got %+v", got)
	}
}
