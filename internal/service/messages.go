package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/cart"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/upsell"
	"github.com/mmynk/tableside/internal/validation"
)

// Table is the wire form of models.Table.
type Table struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TableNumber    *int   `json:"table_number,omitempty"`
	Capacity       int    `json:"capacity"`
	Status         string `json:"status"`
	CurrentOrderID string `json:"current_order_id,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// MenuItem is the wire form of models.MenuItem.
type MenuItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Price           string `json:"price"`
	Category        string `json:"category,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	IsAvailable     bool   `json:"is_available"`
	IsPopular       bool   `json:"is_popular"`
	PreparationTime int    `json:"preparation_time"`
	CreatedAt       int64  `json:"created_at"`
}

// OrderLine is the wire form of models.OrderLine.
type OrderLine struct {
	ID           string `json:"id"`
	MenuItemID   string `json:"menu_item_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder string `json:"price_at_order"`
	Amount       string `json:"amount"`
}

// Order is the wire form of models.Order.
type Order struct {
	ID           string      `json:"id"`
	TableID      string      `json:"table_id,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	OrderType    string      `json:"order_type"`
	Status       string      `json:"status"`
	Total        string      `json:"total"`
	StaffID      string      `json:"staff_id,omitempty"`
	Lines        []OrderLine `json:"lines"`
	CreatedAt    int64       `json:"created_at"`
}

// Bill is the wire form of models.Bill.
type Bill struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	Subtotal        string `json:"subtotal"`
	TaxPercent      string `json:"tax_percent"`
	TaxAmount       string `json:"tax_amount"`
	DiscountPercent string `json:"discount_percent"`
	DiscountAmount  string `json:"discount_amount"`
	FinalTotal      string `json:"final_total"`
	PaymentStatus   string `json:"payment_status"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	PaidAt          int64  `json:"paid_at,omitempty"`
}

// CartLine is one entry of a cart.
type CartLine struct {
	Item     MenuItem `json:"item"`
	Quantity int      `json:"quantity"`
	Amount   string   `json:"amount"`
}

// Suggestion is an upsell proposal.
type Suggestion struct {
	Item       MenuItem `json:"item"`
	Reason     string   `json:"reason"`
	Confidence int      `json:"confidence"`
}

// Cart is a session's cart with its running total and suggestions.
type Cart struct {
	SessionID   string       `json:"session_id"`
	Lines       []CartLine   `json:"lines"`
	Total       string       `json:"total"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Summary is the wire form of the daily summary.
type Summary struct {
	Revenue           string `json:"revenue"`
	OrderCount        int    `json:"order_count"`
	AverageOrderValue string `json:"average_order_value"`
	CustomersServed   int    `json:"customers_served"`
	ActiveTables      int    `json:"active_tables"`
}

func toTable(t *models.Table) *Table {
	return &Table{
		ID:             t.ID,
		Name:           t.Name,
		TableNumber:    t.TableNumber,
		Capacity:       t.Capacity,
		Status:         string(t.Status),
		CurrentOrderID: t.CurrentOrderID,
		CreatedAt:      t.CreatedAt,
	}
}

func toMenuItem(item *models.MenuItem) MenuItem {
	return MenuItem{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		Price:           item.Price.String(),
		Category:        item.Category,
		ImageURL:        item.ImageURL,
		IsAvailable:     item.IsAvailable,
		IsPopular:       item.IsPopular,
		PreparationTime: item.PreparationTime,
		CreatedAt:       item.CreatedAt,
	}
}

func toOrder(o *models.Order) *Order {
	lines := make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLine{
			ID:           l.ID,
			MenuItemID:   l.MenuItemID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			PriceAtOrder: l.PriceAtOrder.String(),
			Amount:       l.Amount().String(),
		}
	}
	return &Order{
		ID:           o.ID,
		TableID:      o.TableID,
		CustomerName: o.CustomerName,
		OrderType:    string(o.Type),
		Status:       string(o.Status),
		Total:        o.Total.String(),
		StaffID:      o.StaffID,
		Lines:        lines,
		CreatedAt:    o.CreatedAt,
	}
}

func toBill(b *models.Bill) *Bill {
	return &Bill{
		ID:              b.ID,
		OrderID:         b.OrderID,
		Subtotal:        b.Subtotal.StringFixed(2),
		TaxPercent:      b.TaxPercent.String(),
		TaxAmount:       b.TaxAmount.StringFixed(2),
		DiscountPercent: b.DiscountPercent.String(),
		DiscountAmount:  b.DiscountAmount.StringFixed(2),
		FinalTotal:      b.FinalTotal.StringFixed(2),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentMethod:   string(b.PaymentMethod),
		CreatedAt:       b.CreatedAt,
		PaidAt:          b.PaidAt,
	}
}

func toCart(sessionID string, lines []cart.Line, total decimal.Decimal, suggestions []upsell.Suggestion) *Cart {
	out := &Cart{
		SessionID:   sessionID,
		Lines:       make([]CartLine, len(lines)),
		Total:       total.String(),
		Suggestions: make([]Suggestion, len(suggestions)),
	}
	for i, l := range lines {
		out.Lines[i] = CartLine{Item: toMenuItem(&l.Item), Quantity: l.Quantity, Amount: l.Amount().String()}
	}
	for i, s := range suggestions {
		out.Suggestions[i] = Suggestion{Item: toMenuItem(&s.Item), Reason: s.Reason, Confidence: s.Confidence}
	}
	return out
}

func toSummary(s calculator.Summary) *Summary {
	return &Summary{
		Revenue:           s.Revenue.StringFixed(2),
		OrderCount:        s.OrderCount,
		AverageOrderValue: s.AverageOrderValue.StringFixed(2),
		CustomersServed:   s.CustomersServed,
		ActiveTables:      s.ActiveTables,
	}
}

// parseDecimal reads a required amount field.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validation.Error{Field: field, Message: "must be a decimal number"}
	}
	return d, nil
}

// parseOptionalDecimal reads an amount field that may be omitted.
func parseOptionalDecimal(field string, s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseDecimal(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
