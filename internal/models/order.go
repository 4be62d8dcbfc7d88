package models

import "github.com/shopspring/decimal"

// OrderType distinguishes table service from counter pickup.
type OrderType string

const (
	OrderDineIn   OrderType = "dine-in"
	OrderTakeaway OrderType = "takeaway"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == OrderDineIn || t == OrderTakeaway
}

// OrderStatus is the kitchen stage of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderServed    OrderStatus = "served"
)

// orderFlow lists the only forward step allowed from each status.
var orderFlow = map[OrderStatus]OrderStatus{
	OrderPending:   OrderPreparing,
	OrderPreparing: OrderServed,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderServed:
		return true
	}
	return false
}

// Next returns the status that follows s. ok is false for served.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := orderFlow[s]
	return next, ok
}

// CanTransition reports whether an order may move from s to next.
// Progression is one step at a time and never backwards.
func (s OrderStatus) CanTransition(next OrderStatus) error {
	if !next.Valid() {
		return invalidTransition("order", string(s), string(next))
	}
	if want, ok := orderFlow[s]; !ok || want != next {
		return invalidTransition("order", string(s), string(next))
	}
	return nil
}

// Order represents a placed order. Orders are never deleted; an order is
// closed once a paid Bill references it.
type Order struct {
	// ID is the unique identifier for the order (UUID format).
	ID string

	// TableID is the table the order is seated at. Empty for takeaway.
	TableID string

	// CustomerName identifies takeaway orders. Empty for dine-in.
	CustomerName string

	// Type is dine-in or takeaway.
	Type OrderType

	// Status is the kitchen stage.
	Status OrderStatus

	// Total is the sum of Quantity × PriceAtOrder over Lines.
	Total decimal.Decimal

	// StaffID is the staff member who placed the order, if known.
	StaffID string

	// Lines are the ordered items, in the order they were added.
	Lines []OrderLine

	// CreatedAt is the Unix timestamp when the order was placed.
	CreatedAt int64
}

// OrderLine is one menu item on an order. Immutable once created.
type OrderLine struct {
	// ID is the unique identifier for the line (UUID format).
	ID string

	// OrderID is the owning order.
	OrderID string

	// MenuItemID references the ordered item.
	MenuItemID string

	// Name is the item name at order time, for display.
	Name string

	// Quantity is always positive.
	Quantity int

	// PriceAtOrder is the unit price captured when the order was placed.
	PriceAtOrder decimal.Decimal
}

// Amount returns Quantity × PriceAtOrder.
func (l OrderLine) Amount() decimal.Decimal {
	return l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTotal sums the amounts of lines.
func LineTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

// LineRequest asks for Quantity units of a menu item.
type LineRequest struct {
	MenuItemID string
	Quantity   int
}
