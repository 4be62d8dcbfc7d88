// Package analytics derives the daily front-of-house summary.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/calculator"
	"github.com/mmynk/tableside/internal/events"
	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/views"
)

// BoardName is the view and cache key of the live summary.
const BoardName = "analytics.summary"

// Source is the read access the aggregator needs.
type Source interface {
	ListBills(ctx context.Context, filter storage.BillFilter) ([]*models.Bill, error)
	ListOrders(ctx context.Context, since int64) ([]*models.Order, error)
	ListTables(ctx context.Context) ([]*models.Table, error)
}

// Aggregator computes summaries for the current local day.
type Aggregator struct {
	source Source
	now    func() time.Time
	loc    *time.Location
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// NewAggregator creates an aggregator over source.
func NewAggregator(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{source: source, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WindowStart returns local midnight of the current day.
func (a *Aggregator) WindowStart() time.Time {
	now := a.now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}

// Summary reads today's paid bills and orders plus the occupied tables and
// summarizes them. It writes nothing.
func (a *Aggregator) Summary(ctx context.Context) (calculator.Summary, error) {
	since := a.WindowStart().Unix()

	bills, err := a.source.ListBills(ctx, storage.BillFilter{Status: models.PaymentPaid, Since: since})
	if err != nil {
		return calculator.Summary{}, fmt.Errorf("failed to list paid bills: %w", err)
	}
	orders, err := a.source.ListOrders(ctx, since)
	if err != nil {
		return calculator.Summary{}, fmt.Errorf("failed to list orders: %w", err)
	}
	tables, err := a.source.ListTables(ctx)
	if err != nil {
		return calculator.Summary{}, fmt.Errorf("failed to list tables: %w", err)
	}

	totals := make([]decimal.Decimal, len(bills))
	for i, b := range bills {
		totals[i] = b.FinalTotal
	}
	summaryOrders := make([]calculator.OrderForSummary, len(orders))
	for i, o := range orders {
		summaryOrders[i] = calculator.OrderForSummary{TableID: o.TableID, CustomerName: o.CustomerName}
	}
	occupied := 0
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			occupied++
		}
	}

	return calculator.Summarize(totals, summaryOrders, occupied), nil
}

// NewBoard returns a live summary view that re-derives on every bill, order
// or table change and once a minute so the window follows the clock.
// cache may be nil.
func NewBoard(a *Aggregator, bus events.Bus, cache views.Cache) *views.Live[calculator.Summary] {
	return views.NewLive(views.Config{
		Name:     BoardName,
		Bus:      bus,
		Watch:    []events.Collection{events.Bills, events.Orders, events.Tables},
		Cache:    cache,
		TTL:      5 * time.Minute,
		Interval: time.Minute,
	}, a.Summary)
}
