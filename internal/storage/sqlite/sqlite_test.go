package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMenuItem(t *testing.T, store *SQLiteStore, name, price string) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{Name: name, Price: decimal.RequireFromString(price), Category: "Main Course", IsAvailable: true}
	if err := store.CreateMenuItem(context.Background(), item); err != nil {
		t.Fatalf("CreateMenuItem failed: %v", err)
	}
	return item
}

func seedTable(t *testing.T, store *SQLiteStore, name string) *models.Table {
	t.Helper()
	table := &models.Table{Name: name, Capacity: 4}
	if err := store.CreateTable(context.Background(), table); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	return table
}

func dineInOrder(tableID string, item *models.MenuItem, qty int) *models.Order {
	line := models.OrderLine{MenuItemID: item.ID, Name: item.Name, Quantity: qty, PriceAtOrder: item.Price}
	return &models.Order{
		TableID: tableID,
		Type:    models.OrderDineIn,
		Lines:   []models.OrderLine{line},
		Total:   line.Amount(),
	}
}

func TestMenuItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateMenuItem generates ID", func(t *testing.T) {
		item := seedMenuItem(t, store, "Paneer Tikka", "250")
		if item.ID == "" {
			t.Error("Expected menu item ID to be generated")
		}
		if item.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("GetMenuItem keeps exact price", func(t *testing.T) {
		original := seedMenuItem(t, store, "Masala Chai", "19.99")
		got, err := store.GetMenuItem(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetMenuItem failed: %v", err)
		}
		if !got.Price.Equal(decimal.RequireFromString("19.99")) {
			t.Errorf("Price mismatch: got %s, want 19.99", got.Price)
		}
		if !got.IsAvailable {
			t.Error("Expected item to be available")
		}
	})

	t.Run("UpdateMenuItem changes availability", func(t *testing.T) {
		item := seedMenuItem(t, store, "Dal Makhani", "180")
		unavailable := false
		updated, err := store.UpdateMenuItem(ctx, item.ID, models.MenuItemUpdate{IsAvailable: &unavailable})
		if err != nil {
			t.Fatalf("UpdateMenuItem failed: %v", err)
		}
		if updated.IsAvailable || !updated.Price.Equal(decimal.NewFromInt(180)) {
			t.Errorf("availability update touched other fields: %+v", updated)
		}
		price := decimal.NewFromInt(200)
		if _, err := store.UpdateMenuItem(ctx, item.ID, models.MenuItemUpdate{Price: &price}); err != nil {
			t.Fatalf("UpdateMenuItem failed: %v", err)
		}
		got, err := store.GetMenuItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetMenuItem failed: %v", err)
		}
		if got.IsAvailable {
			t.Error("Expected item to be unavailable")
		}
		if !got.Price.Equal(decimal.NewFromInt(200)) {
			t.Errorf("Price mismatch: got %s, want 200", got.Price)
		}
	})

	t.Run("missing item returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetMenuItem(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		_, err = store.UpdateMenuItem(ctx, "nonexistent-id", models.MenuItemUpdate{})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on update, got %v", err)
		}
	})

	t.Run("ListMenuItems returns all", func(t *testing.T) {
		items, err := store.ListMenuItems(ctx)
		if err != nil {
			t.Fatalf("ListMenuItems failed: %v", err)
		}
		if len(items) != 3 {
			t.Errorf("Expected 3 items, got %d", len(items))
		}
	})
}

func TestTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("ListTables orders by name", func(t *testing.T) {
		seedTable(t, store, "T2")
		seedTable(t, store, "T1")
		tables, err := store.ListTables(ctx)
		if err != nil {
			t.Fatalf("ListTables failed: %v", err)
		}
		if len(tables) != 2 || tables[0].Name != "T1" || tables[1].Name != "T2" {
			t.Errorf("Unexpected table order: %+v", tables)
		}
		if tables[0].Status != models.TableAvailable {
			t.Errorf("Expected new table to be available, got %s", tables[0].Status)
		}
	})

	t.Run("table number round trips", func(t *testing.T) {
		n := 7
		table := &models.Table{Name: "Window", TableNumber: &n, Capacity: 2}
		if err := store.CreateTable(ctx, table); err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}
		got, err := store.GetTable(ctx, table.ID)
		if err != nil {
			t.Fatalf("GetTable failed: %v", err)
		}
		if got.TableNumber == nil || *got.TableNumber != 7 {
			t.Errorf("Expected table number 7, got %v", got.TableNumber)
		}
	})

	t.Run("reserve and cancel", func(t *testing.T) {
		table := seedTable(t, store, "Patio")
		got, err := store.TransitionTable(ctx, table.ID, models.Reserve{})
		if err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
		if got.Status != models.TableReserved {
			t.Errorf("Expected reserved, got %s", got.Status)
		}

		// Reserving twice conflicts.
		if _, err := store.TransitionTable(ctx, table.ID, models.Reserve{}); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}

		got, err = store.TransitionTable(ctx, table.ID, models.CancelReservation{})
		if err != nil {
			t.Fatalf("CancelReservation failed: %v", err)
		}
		if got.Status != models.TableAvailable {
			t.Errorf("Expected available, got %s", got.Status)
		}
	})

	t.Run("release requires matching order", func(t *testing.T) {
		table := seedTable(t, store, "Bar")
		if _, err := store.TransitionTable(ctx, table.ID, models.Occupy{OrderID: "order-1"}); err != nil {
			t.Fatalf("Occupy failed: %v", err)
		}
		if _, err := store.TransitionTable(ctx, table.ID, models.Release{OrderID: "order-2"}); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict releasing with wrong order, got %v", err)
		}
		got, err := store.TransitionTable(ctx, table.ID, models.Release{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if got.Status != models.TableAvailable || got.CurrentOrderID != "" {
			t.Errorf("Expected available with no order, got %s/%q", got.Status, got.CurrentOrderID)
		}
	})

	t.Run("missing table returns ErrNotFound", func(t *testing.T) {
		_, err := store.TransitionTable(ctx, "nonexistent-id", models.Reserve{})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestPlaceOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedMenuItem(t, store, "Butter Chicken", "320")

	t.Run("dine-in occupies table", func(t *testing.T) {
		table := seedTable(t, store, "T1")
		order := dineInOrder(table.ID, item, 2)
		if err := store.PlaceOrder(ctx, order); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}

		got, err := store.GetTable(ctx, table.ID)
		if err != nil {
			t.Fatalf("GetTable failed: %v", err)
		}
		if got.Status != models.TableOccupied || got.CurrentOrderID != order.ID {
			t.Errorf("Expected table occupied by %s, got %s/%q", order.ID, got.Status, got.CurrentOrderID)
		}

		stored, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if len(stored.Lines) != 1 || stored.Lines[0].Quantity != 2 {
			t.Errorf("Unexpected lines: %+v", stored.Lines)
		}
		if !stored.Total.Equal(decimal.NewFromInt(640)) {
			t.Errorf("Total mismatch: got %s, want 640", stored.Total)
		}
		if stored.Status != models.OrderPending {
			t.Errorf("Expected pending, got %s", stored.Status)
		}
	})

	t.Run("occupied table rejects second order", func(t *testing.T) {
		table := seedTable(t, store, "T2")
		if err := store.PlaceOrder(ctx, dineInOrder(table.ID, item, 1)); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		before, _ := store.ListOrders(ctx, 0)

		err := store.PlaceOrder(ctx, dineInOrder(table.ID, item, 1))
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}

		after, _ := store.ListOrders(ctx, 0)
		if len(after) != len(before) {
			t.Errorf("Rejected order was persisted: %d orders before, %d after", len(before), len(after))
		}
	})

	t.Run("concurrent orders for one table", func(t *testing.T) {
		table := seedTable(t, store, "T3")

		const sessions = 8
		var wg sync.WaitGroup
		errs := make(chan error, sessions)
		for i := 0; i < sessions; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.PlaceOrder(ctx, dineInOrder(table.ID, item, 1))
			}()
		}
		wg.Wait()
		close(errs)

		var ok, conflicts int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, storage.ErrConflict):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}
		if ok != 1 || conflicts != sessions-1 {
			t.Errorf("Expected 1 success and %d conflicts, got %d and %d", sessions-1, ok, conflicts)
		}
	})

	t.Run("takeaway leaves tables alone", func(t *testing.T) {
		line := models.OrderLine{MenuItemID: item.ID, Name: item.Name, Quantity: 1, PriceAtOrder: item.Price}
		order := &models.Order{CustomerName: "Asha", Type: models.OrderTakeaway, Lines: []models.OrderLine{line}, Total: line.Amount()}
		if err := store.PlaceOrder(ctx, order); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if got.TableID != "" || got.CustomerName != "Asha" {
			t.Errorf("Unexpected takeaway order: %+v", got)
		}
	})

	t.Run("unknown table returns ErrNotFound", func(t *testing.T) {
		err := store.PlaceOrder(ctx, dineInOrder("nonexistent-id", item, 1))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListOrders filters by time", func(t *testing.T) {
		old := dineInOrder("", item, 1)
		old.Type = models.OrderTakeaway
		old.CustomerName = "Old"
		old.CreatedAt = 1000
		if err := store.PlaceOrder(ctx, old); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		recent, err := store.ListOrders(ctx, 2000)
		if err != nil {
			t.Fatalf("ListOrders failed: %v", err)
		}
		for _, o := range recent {
			if o.ID == old.ID {
				t.Error("Expected old order to be filtered out")
			}
			if len(o.Lines) == 0 {
				t.Errorf("Expected lines loaded for order %s", o.ID)
			}
		}
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedMenuItem(t, store, "Naan", "40")
	table := seedTable(t, store, "T1")
	order := dineInOrder(table.ID, item, 3)
	if err := store.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if err := store.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderPreparing); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}

	// A stale writer still expecting pending loses.
	err := store.UpdateOrderStatus(ctx, order.ID, models.OrderPending, models.OrderPreparing)
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	err = store.UpdateOrderStatus(ctx, "nonexistent-id", models.OrderPending, models.OrderPreparing)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := seedMenuItem(t, store, "Thali", "250")

	newBill := func(orderID string) *models.Bill {
		return &models.Bill{
			OrderID:         orderID,
			Subtotal:        decimal.NewFromInt(500),
			TaxPercent:      decimal.NewFromInt(5),
			TaxAmount:       decimal.NewFromInt(25),
			DiscountPercent: decimal.NewFromInt(10),
			DiscountAmount:  decimal.NewFromInt(50),
			FinalTotal:      decimal.NewFromInt(475),
		}
	}

	placeOrder := func(t *testing.T, name string) (*models.Table, *models.Order) {
		t.Helper()
		table := seedTable(t, store, name)
		order := dineInOrder(table.ID, item, 2)
		if err := store.PlaceOrder(ctx, order); err != nil {
			t.Fatalf("PlaceOrder failed: %v", err)
		}
		return table, order
	}

	t.Run("CreateBill stores amounts", func(t *testing.T) {
		_, order := placeOrder(t, "T1")
		bill := newBill(order.ID)
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		got, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if got.PaymentStatus != models.PaymentPending {
			t.Errorf("Expected pending, got %s", got.PaymentStatus)
		}
		if !got.FinalTotal.Equal(decimal.NewFromInt(475)) {
			t.Errorf("FinalTotal mismatch: got %s, want 475", got.FinalTotal)
		}
		if got.PaidAt != 0 || got.PaymentMethod != "" {
			t.Errorf("Expected unpaid bill, got method %q paid at %d", got.PaymentMethod, got.PaidAt)
		}
	})

	t.Run("second bill for an order is rejected", func(t *testing.T) {
		_, order := placeOrder(t, "T2")
		if err := store.CreateBill(ctx, newBill(order.ID)); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		err := store.CreateBill(ctx, newBill(order.ID))
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("bill for unknown order is rejected", func(t *testing.T) {
		err := store.CreateBill(ctx, newBill("nonexistent-id"))
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SettleBill pays and releases together", func(t *testing.T) {
		table, order := placeOrder(t, "T3")
		bill := newBill(order.ID)
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		err := store.SettleBill(ctx, storage.Settlement{
			BillID: bill.ID, From: models.PaymentPending, Method: models.PaymentUPI,
			PaidAt: 1700000000, TableID: table.ID, OrderID: order.ID,
		})
		if err != nil {
			t.Fatalf("SettleBill failed: %v", err)
		}

		gotBill, _ := store.GetBill(ctx, bill.ID)
		if gotBill.PaymentStatus != models.PaymentPaid || gotBill.PaymentMethod != models.PaymentUPI || gotBill.PaidAt != 1700000000 {
			t.Errorf("Unexpected settled bill: %+v", gotBill)
		}
		gotTable, _ := store.GetTable(ctx, table.ID)
		if gotTable.Status != models.TableAvailable || gotTable.CurrentOrderID != "" {
			t.Errorf("Expected table released, got %s/%q", gotTable.Status, gotTable.CurrentOrderID)
		}
	})

	t.Run("failed release rolls back payment", func(t *testing.T) {
		table, order := placeOrder(t, "T4")
		bill := newBill(order.ID)
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		err := store.SettleBill(ctx, storage.Settlement{
			BillID: bill.ID, From: models.PaymentPending, Method: models.PaymentCash,
			PaidAt: 1700000000, TableID: table.ID, OrderID: "someone-else",
		})
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}

		gotBill, _ := store.GetBill(ctx, bill.ID)
		if gotBill.PaymentStatus != models.PaymentPending {
			t.Errorf("Expected bill to stay pending, got %s", gotBill.PaymentStatus)
		}
		gotTable, _ := store.GetTable(ctx, table.ID)
		if gotTable.Status != models.TableOccupied {
			t.Errorf("Expected table to stay occupied, got %s", gotTable.Status)
		}
	})

	t.Run("failed bill can be paid later", func(t *testing.T) {
		_, order := placeOrder(t, "T5")
		bill := newBill(order.ID)
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if err := store.UpdatePaymentStatus(ctx, bill.ID, models.PaymentPending, models.PaymentFailed); err != nil {
			t.Fatalf("UpdatePaymentStatus failed: %v", err)
		}
		err := store.SettleBill(ctx, storage.Settlement{
			BillID: bill.ID, From: models.PaymentPending, Method: models.PaymentCard, PaidAt: 1,
		})
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict settling from stale status, got %v", err)
		}
		err = store.SettleBill(ctx, storage.Settlement{
			BillID: bill.ID, From: models.PaymentFailed, Method: models.PaymentCard, PaidAt: 1,
		})
		if err != nil {
			t.Errorf("SettleBill from failed: %v", err)
		}
	})

	t.Run("ListBills filters by status", func(t *testing.T) {
		paid, err := store.ListBills(ctx, storage.BillFilter{Status: models.PaymentPaid})
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(paid) != 2 {
			t.Errorf("Expected 2 paid bills, got %d", len(paid))
		}
		for _, b := range paid {
			if b.PaymentStatus != models.PaymentPaid {
				t.Errorf("Filter leaked bill with status %s", b.PaymentStatus)
			}
		}
	})
}
