// Package orders places orders and moves them through the kitchen stages.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/tableside/internal/cart"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/validation"
)

// Store is the storage the manager needs: orders plus menu lookups for
// price capture.
type Store interface {
	storage.OrderStore
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// CreateRequest asks for a new order.
type CreateRequest struct {
	TableID      string
	CustomerName string
	Type         models.OrderType
	Lines        []models.LineRequest
}

// Manager owns order creation and status progression.
type Manager struct {
	store Store
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates req, captures current menu prices and places the order.
// A dine-in order occupies its table in the same transaction; if another
// session got there first the error wraps storage.ErrConflict and nothing
// is written.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	if req.Type == models.OrderDineIn {
		// The table is the customer's identity for dine-in.
		req.CustomerName = ""
	}
	if err := validation.ValidateOrder(validation.OrderRequest{
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Type:         req.Type,
		Lines:        req.Lines,
	}); err != nil {
		return nil, err
	}

	lines, err := m.priceLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		TableID:      req.TableID,
		CustomerName: req.CustomerName,
		Type:         req.Type,
		Status:       models.OrderPending,
		Total:        models.LineTotal(lines),
		StaffID:      middleware.GetStaffID(ctx),
		Lines:        lines,
		CreatedAt:    m.now().Unix(),
	}

	if err := m.store.PlaceOrder(ctx, order); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.Conflicts.WithLabelValues("create_order").Inc()
			slog.Warn("Table taken by another order", "table_id", req.TableID, "error", err)
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(order.Type)).Inc()
	slog.Info("Order created",
		"order_id", order.ID,
		"type", order.Type,
		"table_id", order.TableID,
		"lines", len(order.Lines),
		"total", order.Total.String(),
		"staff_id", order.StaffID,
	)
	return order, nil
}

// priceLines resolves each requested item and fixes its price at order time.
func (m *Manager) priceLines(ctx context.Context, reqs []models.LineRequest) ([]models.OrderLine, error) {
	lines := make([]models.OrderLine, len(reqs))
	for i, r := range reqs {
		item, err := m.store.GetMenuItem(ctx, r.MenuItemID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, validation.Error{Field: fmt.Sprintf("lines[%d].menu_item_id", i), Message: "menu item does not exist"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get menu item: %w", err)
		}
		if !item.IsAvailable {
			return nil, validation.Error{Field: fmt.Sprintf("lines[%d].menu_item_id", i), Message: item.Name + " is not available"}
		}
		lines[i] = models.OrderLine{
			MenuItemID:   item.ID,
			Name:         item.Name,
			Quantity:     r.Quantity,
			PriceAtOrder: item.Price,
		}
	}
	return lines, nil
}

// CreateFromCart places the cart's contents as an order. The cart is left
// untouched; callers clear it once the order is placed.
func (m *Manager) CreateFromCart(ctx context.Context, c *cart.Cart, tableID, customerName string, orderType models.OrderType) (*models.Order, error) {
	return m.Create(ctx, CreateRequest{
		TableID:      tableID,
		CustomerName: customerName,
		Type:         orderType,
		Lines:        c.LineRequests(),
	})
}

// UpdateStatus moves an order one stage forward. Backward, skipping and
// repeated transitions fail with models.ErrInvalidTransition.
func (m *Manager) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus) (*models.Order, error) {
	order, err := m.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Status.CanTransition(next); err != nil {
		return nil, err
	}

	if err := m.store.UpdateOrderStatus(ctx, orderID, order.Status, next); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.Conflicts.WithLabelValues("update_order_status").Inc()
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	slog.Info("Order status changed", "order_id", orderID, "from", order.Status, "to", next)
	order.Status = next
	return order, nil
}

// Get returns an order with its lines.
func (m *Manager) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// List returns orders created at or after since, newest first.
// A zero since lists every order.
func (m *Manager) List(ctx context.Context, since time.Time) ([]*models.Order, error) {
	var unix int64
	if !since.IsZero() {
		unix = since.Unix()
	}
	orders, err := m.store.ListOrders(ctx, unix)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
