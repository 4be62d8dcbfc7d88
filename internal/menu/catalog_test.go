package menu

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/storage/sqlite"
	"github.com/mmynk/tableside/internal/validation"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "menu.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewCatalog(store)
}

func TestAdd(t *testing.T) {
	unavailable := false

	tests := []struct {
		name         string
		req          NewMenuItem
		wantErr      bool
		validateFunc func(t *testing.T, item *models.MenuItem)
	}{
		{
			name: "defaults to available",
			req:  NewMenuItem{Name: "Paneer Tikka", Price: decimal.NewFromInt(320), Category: "Starters"},
			validateFunc: func(t *testing.T, item *models.MenuItem) {
				if !item.IsAvailable {
					t.Error("expected new item to be available")
				}
				if item.ID == "" {
					t.Error("expected ID to be generated")
				}
			},
		},
		{
			name: "explicitly unavailable",
			req:  NewMenuItem{Name: "Mango Lassi", Price: decimal.NewFromInt(90), IsAvailable: &unavailable},
			validateFunc: func(t *testing.T, item *models.MenuItem) {
				if item.IsAvailable {
					t.Error("expected item to be unavailable")
				}
			},
		},
		{
			name: "free item is allowed",
			req:  NewMenuItem{Name: "Water", Price: decimal.Zero},
		},
		{
			name:    "negative price",
			req:     NewMenuItem{Name: "Refund", Price: decimal.NewFromInt(-1)},
			wantErr: true,
		},
		{
			name:    "missing name",
			req:     NewMenuItem{Price: decimal.NewFromInt(10)},
			wantErr: true,
		},
		{
			name:    "negative preparation time",
			req:     NewMenuItem{Name: "Soup", Price: decimal.NewFromInt(10), PreparationTime: -5},
			wantErr: true,
		},
	}

	catalog := newTestCatalog(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := catalog.Add(context.Background(), tt.req)
			if tt.wantErr {
				if !validation.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, item)
			}
		})
	}
}

func TestUpdates(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	item, err := catalog.Add(ctx, NewMenuItem{Name: "Biryani", Price: decimal.NewFromInt(280), Category: "Main Course"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	updated, err := catalog.SetAvailability(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("SetAvailability failed: %v", err)
	}
	if updated.IsAvailable {
		t.Error("expected item to be unavailable")
	}

	_, err = catalog.UpdatePrice(ctx, item.ID, decimal.RequireFromString("299.50"))
	if err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}
	got, err := catalog.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("299.5")) || got.IsAvailable {
		t.Errorf("unexpected stored item: price %s available %v", got.Price, got.IsAvailable)
	}

	if _, err := catalog.UpdatePrice(ctx, item.ID, decimal.NewFromInt(-3)); !validation.IsValidation(err) {
		t.Errorf("expected validation error for negative price, got %v", err)
	}
	if _, err := catalog.SetAvailability(ctx, "missing", true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentUpdatesKeepBothFields(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	item, err := catalog.Add(ctx, NewMenuItem{Name: "Masala Dosa", Price: decimal.NewFromInt(120), Category: "Main Course"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := catalog.SetAvailability(ctx, item.ID, false); err != nil {
				t.Errorf("SetAvailability failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := catalog.UpdatePrice(ctx, item.ID, decimal.NewFromInt(150)); err != nil {
				t.Errorf("UpdatePrice failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := catalog.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IsAvailable || !got.Price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("lost an update: price %s available %v", got.Price, got.IsAvailable)
	}
}

func TestListByCategory(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()

	for _, req := range []NewMenuItem{
		{Name: "Samosa", Price: decimal.NewFromInt(40), Category: "Starters"},
		{Name: "Dal", Price: decimal.NewFromInt(180), Category: "Main Course"},
		{Name: "Pakora", Price: decimal.NewFromInt(60), Category: "Starters"},
	} {
		if _, err := catalog.Add(ctx, req); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	starters, err := catalog.ListByCategory(ctx, "Starters")
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	if len(starters) != 2 || starters[0].Name != "Samosa" || starters[1].Name != "Pakora" {
		t.Errorf("unexpected starters: %v", starters)
	}

	all, err := catalog.ListByCategory(ctx, "")
	if err != nil {
		t.Fatalf("ListByCategory failed: %v", err)
	}
	categories := Categories(all)
	if len(categories) != 2 || categories[0] != "Starters" || categories[1] != "Main Course" {
		t.Errorf("unexpected categories: %v", categories)
	}
}
