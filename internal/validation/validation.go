// Package validation checks requests before anything is written.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
)

const (
	maxNameLength = 100
	maxPercentage = 100
	minPercentage = 0
)

// Error reports a malformed request field.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a validation Error.
func IsValidation(err error) bool {
	var ve Error
	return errors.As(err, &ve)
}

// OrderRequest is the input validated by ValidateOrder.
type OrderRequest struct {
	TableID      string
	CustomerName string
	Type         models.OrderType
	Lines        []models.LineRequest
}

// ValidateOrder checks an order request before any store access.
func ValidateOrder(req OrderRequest) error {
	if err := validateOrderType(req.Type); err != nil {
		return err
	}
	if err := validateOrderTypeConditions(req); err != nil {
		return err
	}
	if len(req.CustomerName) > maxNameLength {
		return Error{Field: "customer_name", Message: "customer name must be less than 100 characters"}
	}
	return validateLines(req.Lines)
}

func validateOrderType(t models.OrderType) error {
	if t == "" {
		return Error{Field: "order_type", Message: "order type is required"}
	}
	if !t.Valid() {
		return Error{Field: "order_type", Message: "invalid order type"}
	}
	return nil
}

func validateOrderTypeConditions(req OrderRequest) error {
	if req.Type == models.OrderDineIn && req.TableID == "" {
		return Error{Field: "table_id", Message: "table is required for dine-in orders"}
	}
	if req.Type == models.OrderTakeaway && req.TableID != "" {
		return Error{Field: "table_id", Message: "takeaway orders cannot be seated at a table"}
	}
	return nil
}

func validateLines(lines []models.LineRequest) error {
	if len(lines) == 0 {
		return Error{Field: "lines", Message: "order must contain at least one item"}
	}
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		if l.MenuItemID == "" {
			return Error{Field: fmt.Sprintf("lines[%d].menu_item_id", i), Message: "menu item is required"}
		}
		if seen[l.MenuItemID] {
			return Error{Field: fmt.Sprintf("lines[%d].menu_item_id", i), Message: "menu item listed twice"}
		}
		seen[l.MenuItemID] = true
		if l.Quantity <= 0 {
			return Error{Field: fmt.Sprintf("lines[%d].quantity", i), Message: "quantity must be greater than 0"}
		}
	}
	return nil
}

// ValidateTable checks the fields of a new table.
func ValidateTable(name string, tableNumber *int, capacity int) error {
	if strings.TrimSpace(name) == "" {
		return Error{Field: "name", Message: "table name is required"}
	}
	if len(name) > maxNameLength {
		return Error{Field: "name", Message: "table name must be less than 100 characters"}
	}
	if tableNumber != nil && *tableNumber <= 0 {
		return Error{Field: "table_number", Message: "table number must be positive"}
	}
	if capacity <= 0 {
		return Error{Field: "capacity", Message: "capacity must be greater than 0"}
	}
	return nil
}

// ValidateTransition rejects occupancy changes whose order reference does
// not match the target status.
func ValidateTransition(t models.TableTransition) error {
	switch v := t.(type) {
	case models.Occupy:
		if v.OrderID == "" {
			return Error{Field: "order_id", Message: "occupying a table requires an order"}
		}
	case models.Release:
		if v.OrderID == "" {
			return Error{Field: "order_id", Message: "releasing a table requires the occupying order"}
		}
	case models.Reserve, models.CancelReservation:
	case nil:
		return Error{Field: "transition", Message: "transition is required"}
	}
	return nil
}

// ValidateMenuItem checks the fields of a new menu item.
func ValidateMenuItem(name string, price decimal.Decimal, prepMinutes int) error {
	if strings.TrimSpace(name) == "" {
		return Error{Field: "name", Message: "item name is required"}
	}
	if len(name) > maxNameLength {
		return Error{Field: "name", Message: "item name must be less than 100 characters"}
	}
	if err := ValidatePrice(price); err != nil {
		return err
	}
	if prepMinutes < 0 {
		return Error{Field: "preparation_time", Message: "preparation time cannot be negative"}
	}
	return nil
}

// ValidatePrice rejects negative prices.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return Error{Field: "price", Message: "price cannot be negative"}
	}
	return nil
}

// ValidatePercentages checks tax and discount rates of a bill.
func ValidatePercentages(taxPercent, discountPercent decimal.Decimal) error {
	if taxPercent.LessThan(decimal.NewFromInt(minPercentage)) {
		return Error{Field: "tax_percent", Message: "tax percent cannot be negative"}
	}
	if discountPercent.LessThan(decimal.NewFromInt(minPercentage)) || discountPercent.GreaterThan(decimal.NewFromInt(maxPercentage)) {
		return Error{Field: "discount_percent", Message: "discount percent must be between 0 and 100"}
	}
	return nil
}

// ValidatePaymentMethod checks a settlement's payment method.
func ValidatePaymentMethod(m models.PaymentMethod) error {
	if m == "" {
		return Error{Field: "payment_method", Message: "payment method is required"}
	}
	if !m.Valid() {
		return Error{Field: "payment_method", Message: "payment method must be cash, card or upi"}
	}
	return nil
}
