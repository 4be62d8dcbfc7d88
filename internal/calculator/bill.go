package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BillAmounts are the derived money fields of a bill.
type BillAmounts struct {
	Subtotal        decimal.Decimal
	TaxPercent      decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalTotal      decimal.Decimal
}

// ComputeBill derives tax, discount and final total from a subtotal.
// Based on the formulas:
//
//	tax_amount      = subtotal × tax_percent / 100
//	discount_amount = subtotal × discount_percent / 100
//	final_total     = subtotal + tax_amount − discount_amount
//
// No rounding is applied; amounts are exact decimals.
func ComputeBill(subtotal, taxPercent, discountPercent decimal.Decimal) (BillAmounts, error) {
	if subtotal.IsNegative() {
		return BillAmounts{}, fmt.Errorf("subtotal cannot be negative")
	}
	if taxPercent.IsNegative() {
		return BillAmounts{}, fmt.Errorf("tax percent cannot be negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return BillAmounts{}, fmt.Errorf("discount percent must be between 0 and 100")
	}

	tax := subtotal.Mul(taxPercent).Div(hundred)
	discount := subtotal.Mul(discountPercent).Div(hundred)

	return BillAmounts{
		Subtotal:        subtotal,
		TaxPercent:      taxPercent,
		TaxAmount:       tax,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		FinalTotal:      subtotal.Add(tax).Sub(discount),
	}, nil
}
