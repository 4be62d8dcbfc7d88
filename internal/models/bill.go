package models

import "github.com/shopspring/decimal"

// PaymentStatus is the settlement state of a bill.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentMethod is how a bill was paid.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

var paymentFlow = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPaid},
}

// CanTransition reports whether a bill may move from s to next.
// Paid is terminal.
func (s PaymentStatus) CanTransition(next PaymentStatus) error {
	for _, allowed := range paymentFlow[s] {
		if allowed == next {
			return nil
		}
	}
	return invalidTransition("bill", string(s), string(next))
}

// Bill is the financial record settling one order.
// The amount fields are always derived from Subtotal, TaxPercent and
// DiscountPercent (see calculator.ComputeBill).
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// OrderID is the order this bill settles.
	OrderID string

	// Subtotal equals the order total when the bill was created.
	Subtotal decimal.Decimal

	TaxPercent      decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal

	// FinalTotal is Subtotal + TaxAmount - DiscountAmount.
	FinalTotal decimal.Decimal

	// PaymentStatus is pending until the bill is settled.
	PaymentStatus PaymentStatus

	// PaymentMethod is set when the bill is paid.
	PaymentMethod PaymentMethod

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64

	// PaidAt is the Unix timestamp of payment, 0 while unpaid.
	PaidAt int64
}
