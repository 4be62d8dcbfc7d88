// Package menu manages the catalog of orderable items.
package menu

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/validation"
)

// NewMenuItem describes an item to add to the catalog.
type NewMenuItem struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	Category        string
	ImageURL        string
	IsPopular       bool
	PreparationTime int
	// IsAvailable defaults to true when nil.
	IsAvailable *bool
}

// Catalog is the read-mostly set of menu items.
type Catalog struct {
	store storage.MenuStore
}

// NewCatalog creates a Catalog on the given store.
func NewCatalog(store storage.MenuStore) *Catalog {
	return &Catalog{store: store}
}

// List returns every item in the order it was added.
func (c *Catalog) List(ctx context.Context) ([]*models.MenuItem, error) {
	items, err := c.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	return items, nil
}

// ListByCategory returns the items of one category, in catalog order.
// An empty category returns the whole catalog.
func (c *Catalog) ListByCategory(ctx context.Context, category string) ([]*models.MenuItem, error) {
	items, err := c.List(ctx)
	if err != nil || category == "" {
		return items, err
	}
	var filtered []*models.MenuItem
	for _, item := range items {
		if item.Category == category {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// Categories returns the distinct categories in the order they first appear.
func Categories(items []*models.MenuItem) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, item := range items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		categories = append(categories, item.Category)
	}
	return categories
}

// Get returns one item.
func (c *Catalog) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := c.store.GetMenuItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

// Add validates and persists a new item.
func (c *Catalog) Add(ctx context.Context, req NewMenuItem) (*models.MenuItem, error) {
	if err := validation.ValidateMenuItem(req.Name, req.Price, req.PreparationTime); err != nil {
		return nil, err
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	item := &models.MenuItem{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Category:        req.Category,
		ImageURL:        req.ImageURL,
		IsAvailable:     available,
		IsPopular:       req.IsPopular,
		PreparationTime: req.PreparationTime,
	}
	if err := c.store.CreateMenuItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	slog.Info("Menu item added", "item_id", item.ID, "name", item.Name, "price", item.Price.String())
	return item, nil
}

// SetAvailability marks an item as (un)available for new orders.
func (c *Catalog) SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error) {
	return c.update(ctx, id, models.MenuItemUpdate{IsAvailable: &available})
}

// UpdatePrice changes an item's current price. Lines of placed orders keep
// the price they were ordered at.
func (c *Catalog) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (*models.MenuItem, error) {
	if err := validation.ValidatePrice(price); err != nil {
		return nil, err
	}
	return c.update(ctx, id, models.MenuItemUpdate{Price: &price})
}

func (c *Catalog) update(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	item, err := c.store.UpdateMenuItem(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	slog.Info("Menu item updated", "item_id", item.ID, "available", item.IsAvailable, "price", item.Price.String())
	return item, nil
}
