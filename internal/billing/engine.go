// Package billing creates bills for orders and settles them.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/validation"
)

// ErrBillExists is returned when an order already has a bill.
var ErrBillExists = errors.New("order already has a bill")

// DefaultTaxPercent applies when a request names no tax rate.
var DefaultTaxPercent = decimal.NewFromInt(5)

// Store is the storage the engine needs.
type Store interface {
	storage.BillStore
	GetOrder(ctx context.Context, id string) (*models.Order, error)
}

// BillRequest asks for a bill. Nil fields take defaults: the order total
// for Subtotal, the engine's tax rate, and no discount.
type BillRequest struct {
	OrderID         string
	Subtotal        *decimal.Decimal
	TaxPercent      *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// Engine computes and settles bills.
type Engine struct {
	store      Store
	taxPercent decimal.Decimal
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultTax sets the tax rate used when a request names none.
func WithDefaultTax(percent decimal.Decimal) Option {
	return func(e *Engine) { e.taxPercent = percent }
}

// WithClock overrides the clock used for CreatedAt and PaidAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, taxPercent: DefaultTaxPercent, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateBill computes the amounts for an order and stores a pending bill.
func (e *Engine) CreateBill(ctx context.Context, req BillRequest) (*models.Bill, error) {
	if req.OrderID == "" {
		return nil, validation.Error{Field: "order_id", Message: "order is required"}
	}

	order, err := e.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	subtotal := order.Total
	if req.Subtotal != nil {
		if !req.Subtotal.Equal(order.Total) {
			return nil, validation.Error{
				Field:   "subtotal",
				Message: fmt.Sprintf("subtotal %s does not match order total %s", req.Subtotal, order.Total),
			}
		}
	}
	taxPercent := e.taxPercent
	if req.TaxPercent != nil {
		taxPercent = *req.TaxPercent
	}
	discountPercent := decimal.Zero
	if req.DiscountPercent != nil {
		discountPercent = *req.DiscountPercent
	}
	if err := validation.ValidatePercentages(taxPercent, discountPercent); err != nil {
		return nil, err
	}

	amounts, err := calculator.ComputeBill(subtotal, taxPercent, discountPercent)
	if err != nil {
		return nil, validation.Error{Field: "bill", Message: err.Error()}
	}

	bill := &models.Bill{
		OrderID:         order.ID,
		Subtotal:        amounts.Subtotal,
		TaxPercent:      amounts.TaxPercent,
		TaxAmount:       amounts.TaxAmount,
		DiscountPercent: amounts.DiscountPercent,
		DiscountAmount:  amounts.DiscountAmount,
		FinalTotal:      amounts.FinalTotal,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       e.now().Unix(),
	}
	if err := e.store.CreateBill(ctx, bill); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrBillExists, err)
		}
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	metrics.BillsCreated.Inc()
	slog.Info("Bill created",
		"bill_id", bill.ID,
		"order_id", bill.OrderID,
		"subtotal", bill.Subtotal.String(),
		"final_total", bill.FinalTotal.String(),
	)
	return bill, nil
}

// Settle marks a bill paid and releases the order's table in one store
// transaction. tableID may be empty, in which case the table of a dine-in
// order is released; a tableID that is not the order's table is rejected.
func (e *Engine) Settle(ctx context.Context, billID string, method models.PaymentMethod, tableID string) (*models.Bill, error) {
	if err := validation.ValidatePaymentMethod(method); err != nil {
		return nil, err
	}

	bill, err := e.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := bill.PaymentStatus.CanTransition(models.PaymentPaid); err != nil {
		return nil, err
	}

	order, err := e.store.GetOrder(ctx, bill.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if tableID != "" && tableID != order.TableID {
		return nil, validation.Error{Field: "table_id", Message: "table does not belong to the bill's order"}
	}

	paidAt := e.now().Unix()
	err = e.store.SettleBill(ctx, storage.Settlement{
		BillID:  bill.ID,
		From:    bill.PaymentStatus,
		Method:  method,
		PaidAt:  paidAt,
		TableID: order.TableID,
		OrderID: order.ID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.Conflicts.WithLabelValues("settle_bill").Inc()
		}
		return nil, fmt.Errorf("failed to settle bill: %w", err)
	}

	bill.PaymentStatus = models.PaymentPaid
	bill.PaymentMethod = method
	bill.PaidAt = paidAt

	metrics.Settlements.WithLabelValues(string(method)).Inc()
	slog.Info("Bill settled",
		"bill_id", bill.ID,
		"order_id", order.ID,
		"method", method,
		"released_table", order.TableID,
		"final_total", bill.FinalTotal.String(),
	)
	return bill, nil
}

// MarkFailed records a failed payment attempt. The table stays occupied
// and the bill can still be settled later.
func (e *Engine) MarkFailed(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := e.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := bill.PaymentStatus.CanTransition(models.PaymentFailed); err != nil {
		return nil, err
	}
	if err := e.store.UpdatePaymentStatus(ctx, billID, bill.PaymentStatus, models.PaymentFailed); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.Conflicts.WithLabelValues("fail_bill").Inc()
		}
		return nil, fmt.Errorf("failed to mark bill failed: %w", err)
	}

	slog.Warn("Payment failed", "bill_id", billID, "order_id", bill.OrderID)
	bill.PaymentStatus = models.PaymentFailed
	return bill, nil
}

// Get returns one bill.
func (e *Engine) Get(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := e.store.GetBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// List returns bills matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter storage.BillFilter) ([]*models.Bill, error) {
	bills, err := e.store.ListBills(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}
