// Package tables keeps the registry of dining tables and their occupancy.
package tables

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/validation"
)

// Registry manages tables. Occupancy only changes through
// models.TableTransition values, which the store applies conditionally.
type Registry struct {
	store storage.TableStore
}

// NewRegistry creates a Registry on the given store.
func NewRegistry(store storage.TableStore) *Registry {
	return &Registry{store: store}
}

// List returns all tables ordered by name.
func (r *Registry) List(ctx context.Context) ([]*models.Table, error) {
	tables, err := r.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Get returns one table.
func (r *Registry) Get(ctx context.Context, id string) (*models.Table, error) {
	table, err := r.store.GetTable(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

// Add creates an available table.
func (r *Registry) Add(ctx context.Context, name string, tableNumber *int, capacity int) (*models.Table, error) {
	if err := validation.ValidateTable(name, tableNumber, capacity); err != nil {
		return nil, err
	}

	table := &models.Table{
		Name:        name,
		TableNumber: tableNumber,
		Capacity:    capacity,
		Status:      models.TableAvailable,
	}
	if err := r.store.CreateTable(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	slog.Info("Table added", "table_id", table.ID, "name", table.Name, "capacity", table.Capacity)
	return table, nil
}

// Apply performs one occupancy transition. It fails with storage.ErrConflict
// when the table is no longer in the state the transition expects.
func (r *Registry) Apply(ctx context.Context, id string, t models.TableTransition) (*models.Table, error) {
	if err := validation.ValidateTransition(t); err != nil {
		return nil, err
	}

	table, err := r.store.TransitionTable(ctx, id, t)
	if err != nil {
		return nil, fmt.Errorf("failed to move table %s to %s: %w", id, t.To(), err)
	}

	slog.Info("Table status changed", "table_id", id, "from", t.From(), "to", t.To(), "order_id", table.CurrentOrderID)
	return table, nil
}

// Occupied returns the tables currently seating an order.
func (r *Registry) Occupied(ctx context.Context) ([]*models.Table, error) {
	tables, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var occupied []*models.Table
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			occupied = append(occupied, t)
		}
	}
	return occupied, nil
}
