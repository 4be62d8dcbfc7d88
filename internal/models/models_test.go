package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		wantErr bool
	}{
		{OrderPending, OrderPreparing, false},
		{OrderPreparing, OrderServed, false},
		{OrderPending, OrderServed, true},
		{OrderPreparing, OrderPending, true},
		{OrderServed, OrderPreparing, true},
		{OrderServed, OrderServed, true},
		{OrderPending, OrderPending, true},
		{OrderPending, "paid", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.CanTransition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		wantErr bool
	}{
		{PaymentPending, PaymentPaid, false},
		{PaymentPending, PaymentFailed, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentPaid, PaymentPending, true},
		{PaymentPaid, PaymentFailed, true},
		{PaymentPaid, PaymentPaid, true},
		{PaymentFailed, PaymentFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.CanTransition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("CanTransition() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTableApply(t *testing.T) {
	available := Table{ID: "t1", Status: TableAvailable}

	occupied, err := available.Apply(Occupy{OrderID: "o1"})
	if err != nil {
		t.Fatalf("Occupy failed: %v", err)
	}
	if occupied.Status != TableOccupied || occupied.CurrentOrderID != "o1" {
		t.Fatalf("unexpected table after occupy: %+v", occupied)
	}

	if _, err := occupied.Apply(Occupy{OrderID: "o2"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second occupy: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := occupied.Apply(Release{OrderID: "o2"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("release by wrong order: expected ErrInvalidTransition, got %v", err)
	}

	released, err := occupied.Apply(Release{OrderID: "o1"})
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Status != TableAvailable || released.CurrentOrderID != "" {
		t.Fatalf("unexpected table after release: %+v", released)
	}

	reserved, err := released.Apply(Reserve{})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := reserved.Apply(Occupy{OrderID: "o3"}); err == nil {
		t.Error("expected reserved table to reject occupy")
	}
	back, err := reserved.Apply(CancelReservation{})
	if err != nil || back.Status != TableAvailable {
		t.Errorf("CancelReservation: got %+v, %v", back, err)
	}
}

func TestLineTotal(t *testing.T) {
	lines := []OrderLine{
		{Quantity: 2, PriceAtOrder: decimal.NewFromInt(320)},
		{Quantity: 1, PriceAtOrder: decimal.NewFromInt(280)},
	}
	if got := LineTotal(lines); !got.Equal(decimal.NewFromInt(920)) {
		t.Errorf("LineTotal = %s, want 920", got)
	}
	if got := LineTotal(nil); !got.IsZero() {
		t.Errorf("LineTotal(nil) = %s, want 0", got)
	}
}
