// Package cart composes orders in memory before they are placed.
//
// A Cart is owned by one terminal session and is not safe for concurrent
// use; Sessions hands carts out one caller at a time.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

// Line is one menu item in the cart with a positive quantity.
type Line struct {
	Item     models.MenuItem
	Quantity int
}

// Amount returns price × quantity.
func (l Line) Amount() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart aggregates selected menu items into quantities. Lines keep the order
// in which items were first added. No line ever has a quantity below 1.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(itemID string) int {
	for i, l := range c.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

// Add puts one unit of item in the cart.
func (c *Cart) Add(item models.MenuItem) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
}

// UpdateQuantity adds delta to the item's quantity. A result of zero or
// less removes the item. Unknown items are ignored.
func (c *Cart) UpdateQuantity(itemID string, delta int) {
	i := c.index(itemID)
	if i < 0 {
		return
	}
	if c.lines[i].Quantity+delta <= 0 {
		c.removeAt(i)
		return
	}
	c.lines[i].Quantity += delta
}

// Remove drops the item from the cart.
func (c *Cart) Remove(itemID string) {
	if i := c.index(itemID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	if len(c.lines) == 0 {
		c.lines = nil
	}
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Amount())
	}
	return total
}

// Lines returns a copy of the cart's lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Items returns the menu items in the cart.
func (c *Cart) Items() []models.MenuItem {
	items := make([]models.MenuItem, len(c.lines))
	for i, l := range c.lines {
		items[i] = l.Item
	}
	return items
}

// Quantity returns how many units of the item are in the cart.
func (c *Cart) Quantity(itemID string) int {
	if i := c.index(itemID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Len returns the number of distinct items.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// LineRequests converts the cart into order line requests.
func (c *Cart) LineRequests() []models.LineRequest {
	reqs := make([]models.LineRequest, len(c.lines))
	for i, l := range c.lines {
		reqs[i] = models.LineRequest{MenuItemID: l.Item.ID, Quantity: l.Quantity}
	}
	return reqs
}
