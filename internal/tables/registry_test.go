package tables

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/storage/sqlite"
	"github.com/mmynk/tableside/internal/validation"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRegistry(store)
}

func TestAdd(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()
	five := 5
	zero := 0

	tests := []struct {
		name        string
		tableName   string
		tableNumber *int
		capacity    int
		wantErr     bool
	}{
		{name: "valid table", tableName: "T1", capacity: 4},
		{name: "with number", tableName: "T5", tableNumber: &five, capacity: 2},
		{name: "zero capacity", tableName: "T2", capacity: 0, wantErr: true},
		{name: "negative capacity", tableName: "T3", capacity: -2, wantErr: true},
		{name: "zero table number", tableName: "T4", tableNumber: &zero, capacity: 2, wantErr: true},
		{name: "blank name", tableName: "  ", capacity: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := registry.Add(ctx, tt.tableName, tt.tableNumber, tt.capacity)
			if tt.wantErr {
				if !validation.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if table.Status != models.TableAvailable || table.CurrentOrderID != "" {
				t.Errorf("expected available table without order, got %s/%q", table.Status, table.CurrentOrderID)
			}
		})
	}

	tables, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tables) != 2 {
		t.Errorf("expected 2 tables, got %d", len(tables))
	}
}

func TestApply(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	table, err := registry.Add(ctx, "Patio", nil, 6)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	t.Run("occupy without order is rejected", func(t *testing.T) {
		if _, err := registry.Apply(ctx, table.ID, models.Occupy{}); !validation.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("occupy then release", func(t *testing.T) {
		got, err := registry.Apply(ctx, table.ID, models.Occupy{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Occupy failed: %v", err)
		}
		if got.Status != models.TableOccupied || got.CurrentOrderID != "order-1" {
			t.Errorf("unexpected table after occupy: %+v", got)
		}

		occupied, err := registry.Occupied(ctx)
		if err != nil {
			t.Fatalf("Occupied failed: %v", err)
		}
		if len(occupied) != 1 {
			t.Errorf("expected 1 occupied table, got %d", len(occupied))
		}

		if _, err := registry.Apply(ctx, table.ID, models.Reserve{}); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict reserving an occupied table, got %v", err)
		}

		got, err = registry.Apply(ctx, table.ID, models.Release{OrderID: "order-1"})
		if err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if got.Status != models.TableAvailable || got.CurrentOrderID != "" {
			t.Errorf("unexpected table after release: %+v", got)
		}
	})

	t.Run("reservation blocks seating", func(t *testing.T) {
		if _, err := registry.Apply(ctx, table.ID, models.Reserve{}); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
		if _, err := registry.Apply(ctx, table.ID, models.Occupy{OrderID: "order-2"}); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict seating a reserved table, got %v", err)
		}
		if _, err := registry.Apply(ctx, table.ID, models.CancelReservation{}); err != nil {
			t.Fatalf("CancelReservation failed: %v", err)
		}
	})
}
