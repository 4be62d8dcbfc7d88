// Package events fans out change notifications for the stored collections.
//
// Notifications carry only what changed, never the new state: subscribers
// are expected to re-read and re-derive whatever they cache. Delivery to a
// slow subscriber may coalesce notifications, which is safe under that rule.
package events

import (
	"context"
	"strings"
	"sync"
)

// Collection names a stored record type.
type Collection string

const (
	Tables     Collection = "restaurant_tables"
	Orders     Collection = "orders"
	OrderItems Collection = "order_items"
	MenuItems  Collection = "menu_items"
	Bills      Collection = "bills"
)

// Collections lists every collection.
var Collections = []Collection{Tables, Orders, OrderItems, MenuItems, Bills}

// Op is a kind of change. Ops are bit flags so they can be combined into a
// subscription mask.
type Op uint8

const (
	Insert Op = 1 << iota
	Update
	Delete

	// All matches every kind of change.
	All = Insert | Update | Delete
)

// String returns the lower-case name of a single op.
func (o Op) String() string {
	switch o {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	var names []string
	for _, op := range []Op{Insert, Update, Delete} {
		if o&op != 0 {
			names = append(names, op.String())
		}
	}
	return strings.Join(names, "|")
}

// Ops returns the single ops contained in mask.
func (o Op) Ops() []Op {
	var ops []Op
	for _, op := range []Op{Insert, Update, Delete} {
		if o&op != 0 {
			ops = append(ops, op)
		}
	}
	return ops
}

// ParseOp parses a single op name.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "insert":
		return Insert, true
	case "update":
		return Update, true
	case "delete":
		return Delete, true
	}
	return 0, false
}

// Event reports one committed change.
type Event struct {
	Collection Collection `json:"collection"`
	Op         Op         `json:"op"`
	ID         string     `json:"id"`
	// At is the Unix time the change was committed.
	At int64 `json:"at"`
}

// Handler receives events. Handlers run on the bus's delivery goroutine
// for the subscription and should not block for long.
type Handler func(Event)

// Bus publishes and delivers events.
type Bus interface {
	// Publish announces a committed change.
	Publish(ctx context.Context, e Event) error

	// Subscribe registers h for events on collection whose op is in mask.
	Subscribe(collection Collection, mask Op, h Handler) (*Subscription, error)

	// Close stops all deliveries.
	Close() error
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	Collection Collection
	Mask       Op

	once   sync.Once
	cancel func()
}

// NewSubscription creates a handle whose Unsubscribe calls cancel once.
// Bus implementations use it to hand out subscriptions.
func NewSubscription(collection Collection, mask Op, cancel func()) *Subscription {
	return &Subscription{Collection: collection, Mask: mask, cancel: cancel}
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
