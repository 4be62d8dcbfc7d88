// Package notify decorates a storage.Store so that every committed
// mutation is announced on an events.Bus.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/tableside/internal/events"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store forwards to an inner store and publishes an event after each
// successful write. Failed writes publish nothing. A failed publish is
// logged and does not fail the write, which is already committed.
type Store struct {
	storage.Store
	bus events.Bus
	now func() time.Time
}

// New wraps inner.
func New(inner storage.Store, bus events.Bus) *Store {
	return &Store{Store: inner, bus: bus, now: time.Now}
}

func (s *Store) publish(ctx context.Context, c events.Collection, op events.Op, id string) {
	e := events.Event{Collection: c, Op: op, ID: id, At: s.now().Unix()}
	// The write is committed even if the caller's context has ended.
	if err := s.bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.Error("Failed to publish change", "collection", c, "op", op.String(), "id", id, "error", err)
	}
}

// Ping forwards to the inner store when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if err := s.Store.CreateMenuItem(ctx, item); err != nil {
		return err
	}
	s.publish(ctx, events.MenuItems, events.Insert, item.ID)
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	item, err := s.Store.UpdateMenuItem(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.MenuItems, events.Update, item.ID)
	return item, nil
}

func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	if err := s.Store.CreateTable(ctx, table); err != nil {
		return err
	}
	s.publish(ctx, events.Tables, events.Insert, table.ID)
	return nil
}

func (s *Store) TransitionTable(ctx context.Context, id string, t models.TableTransition) (*models.Table, error) {
	table, err := s.Store.TransitionTable(ctx, id, t)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Tables, events.Update, id)
	return table, nil
}

func (s *Store) PlaceOrder(ctx context.Context, order *models.Order) error {
	if err := s.Store.PlaceOrder(ctx, order); err != nil {
		return err
	}
	s.publish(ctx, events.Orders, events.Insert, order.ID)
	s.publish(ctx, events.OrderItems, events.Insert, order.ID)
	if order.TableID != "" {
		s.publish(ctx, events.Tables, events.Update, order.TableID)
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	if err := s.Store.UpdateOrderStatus(ctx, id, from, to); err != nil {
		return err
	}
	s.publish(ctx, events.Orders, events.Update, id)
	return nil
}

func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	if err := s.Store.CreateBill(ctx, bill); err != nil {
		return err
	}
	s.publish(ctx, events.Bills, events.Insert, bill.ID)
	return nil
}

func (s *Store) SettleBill(ctx context.Context, settlement storage.Settlement) error {
	if err := s.Store.SettleBill(ctx, settlement); err != nil {
		return err
	}
	s.publish(ctx, events.Bills, events.Update, settlement.BillID)
	if settlement.TableID != "" {
		s.publish(ctx, events.Tables, events.Update, settlement.TableID)
	}
	return nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	if err := s.Store.UpdatePaymentStatus(ctx, id, from, to); err != nil {
		return err
	}
	s.publish(ctx, events.Bills, events.Update, id)
	return nil
}
