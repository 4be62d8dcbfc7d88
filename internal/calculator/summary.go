package calculator

import "github.com/shopspring/decimal"

// OrderForSummary represents an order with the minimal information needed for the daily summary.
type OrderForSummary struct {
	TableID      string
	CustomerName string
}

// Summary is the day's front-of-house statistics.
type Summary struct {
	Revenue           decimal.Decimal
	OrderCount        int
	AverageOrderValue decimal.Decimal
	CustomersServed   int
	ActiveTables      int
}

// Summarize derives the daily summary from already-windowed records.
//
// Algorithm:
// - Revenue: sum of the final totals of paid bills
// - Average order value: revenue / order count, 0 when there are no orders
// - Customers served: distinct tables seated by the orders + takeaway orders
//   carrying a customer name
// - Active tables: number of occupied tables, passed in as-is
func Summarize(paidTotals []decimal.Decimal, orders []OrderForSummary, occupiedTables int) Summary {
	revenue := decimal.Zero
	for _, total := range paidTotals {
		revenue = revenue.Add(total)
	}

	tables := make(map[string]bool)
	takeaway := 0
	for _, o := range orders {
		if o.TableID != "" {
			tables[o.TableID] = true
			continue
		}
		if o.CustomerName != "" {
			takeaway++
		}
	}

	average := decimal.Zero
	if len(orders) > 0 {
		average = revenue.Div(decimal.NewFromInt(int64(len(orders))))
	}

	return Summary{
		Revenue:           revenue,
		OrderCount:        len(orders),
		AverageOrderValue: average,
		CustomersServed:   len(tables) + takeaway,
		ActiveTables:      occupiedTables,
	}
}
