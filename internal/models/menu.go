package models

import "github.com/shopspring/decimal"

// MenuItem represents an orderable item on the menu.
type MenuItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the display name (e.g., "Paneer Tikka").
	Name string

	// Description is optional free text shown on the menu.
	Description string

	// Price is the current unit price. Placed orders keep their own copy
	// (OrderLine.PriceAtOrder), so changing it never rewrites history.
	Price decimal.Decimal

	// Category groups items on the menu (e.g., "Starters", "Main Course").
	Category string

	// ImageURL is an optional picture of the dish.
	ImageURL string

	// IsAvailable is false when the kitchen cannot serve the item right now.
	IsAvailable bool

	// IsPopular marks bestsellers; the upsell engine favours them.
	IsPopular bool

	// PreparationTime is the estimated preparation time in minutes.
	PreparationTime int

	// CreatedAt is the Unix timestamp when the item was added.
	CreatedAt int64
}

// MenuItemUpdate names the fields of a menu item to change. Nil fields
// keep their stored value, so concurrent updates of different fields do
// not overwrite each other.
type MenuItemUpdate struct {
	Price       *decimal.Decimal
	IsAvailable *bool
}
