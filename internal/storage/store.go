// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/tableside/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional write lost a race: the
	// record was no longer in the state the caller expected. Callers may
	// re-read and retry; the store never retries on its own.
	ErrConflict = errors.New("conflicting update")

	// ErrDuplicate is returned when a uniqueness rule rejects an insert
	// (e.g., a second active bill for the same order).
	ErrDuplicate = errors.New("duplicate record")
)

// MenuStore persists the menu catalog.
type MenuStore interface {
	// CreateMenuItem persists a new item. ID and CreatedAt are populated
	// by the store when empty.
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error

	// GetMenuItem retrieves an item by ID.
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)

	// ListMenuItems returns all items in creation order.
	ListMenuItems(ctx context.Context) ([]*models.MenuItem, error)

	// UpdateMenuItem writes only the fields set in update, in a single
	// statement, and returns the item as stored afterwards.
	UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error)
}

// TableStore persists tables and their occupancy.
type TableStore interface {
	// CreateTable persists a new table.
	CreateTable(ctx context.Context, table *models.Table) error

	// GetTable retrieves a table by ID.
	GetTable(ctx context.Context, id string) (*models.Table, error)

	// ListTables returns all tables ordered by name.
	ListTables(ctx context.Context) ([]*models.Table, error)

	// TransitionTable applies t as a conditional update: it only succeeds
	// when the table is in t.From() (and, for Release, still occupied by
	// the given order). Otherwise ErrConflict is returned and nothing changes.
	TransitionTable(ctx context.Context, id string, t models.TableTransition) (*models.Table, error)
}

// OrderStore persists orders and their lines.
type OrderStore interface {
	// PlaceOrder inserts the order, its lines and, for a seated order,
	// occupies its table, all in one transaction. If the table is not
	// available ErrConflict is returned and nothing is written.
	PlaceOrder(ctx context.Context, order *models.Order) error

	// GetOrder retrieves an order with its lines.
	GetOrder(ctx context.Context, id string) (*models.Order, error)

	// ListOrders returns orders created at or after since (Unix seconds),
	// newest first. since <= 0 lists everything.
	ListOrders(ctx context.Context, since int64) ([]*models.Order, error)

	// UpdateOrderStatus moves an order from one status to another. It
	// returns ErrConflict when the order is no longer in from.
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error
}

// BillFilter narrows ListBills.
type BillFilter struct {
	// OrderID restricts to bills of one order.
	OrderID string
	// Status restricts to one payment status.
	Status models.PaymentStatus
	// Since restricts to bills created at or after this Unix time.
	Since int64
}

// Settlement is the payment of a bill, optionally freeing a table.
type Settlement struct {
	BillID string
	// From is the payment status the bill must currently have.
	From   models.PaymentStatus
	Method models.PaymentMethod
	PaidAt int64
	// TableID, when set, is released in the same transaction. The table
	// must be occupied by OrderID.
	TableID string
	OrderID string
}

// BillStore persists bills.
type BillStore interface {
	// CreateBill persists a new bill. It returns ErrDuplicate when the order
	// already has a pending or paid bill.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by ID.
	GetBill(ctx context.Context, id string) (*models.Bill, error)

	// ListBills returns bills matching filter, newest first.
	ListBills(ctx context.Context, filter BillFilter) ([]*models.Bill, error)

	// SettleBill marks the bill paid and releases the table in one
	// transaction. Either both updates are visible or neither is.
	SettleBill(ctx context.Context, s Settlement) error

	// UpdatePaymentStatus moves a bill between payment statuses without
	// touching any table. It returns ErrConflict when the bill is no
	// longer in from.
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error
}

// Store defines the interface for all Tableside storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the components that use it.
type Store interface {
	MenuStore
	TableStore
	OrderStore
	BillStore

	// Close releases any resources held by the store.
	Close() error
}
