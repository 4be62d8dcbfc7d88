package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

const menuColumns = `id, name, description, price, category, image_url, is_available, is_popular, preparation_time, created_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMenuItem(row scanner) (*models.MenuItem, error) {
	var item models.MenuItem
	var description, category, imageURL sql.NullString
	err := row.Scan(&item.ID, &item.Name, &description, &item.Price, &category, &imageURL,
		&item.IsAvailable, &item.IsPopular, &item.PreparationTime, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Category = category.String
	item.ImageURL = imageURL.String
	return &item, nil
}

// CreateMenuItem persists a new menu item.
func (s *SQLiteStore) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO menu_items (`+menuColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, nullString(item.Description), item.Price.String(), nullString(item.Category),
		nullString(item.ImageURL), item.IsAvailable, item.IsPopular, item.PreparationTime, item.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: menu item %s", storage.ErrDuplicate, item.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

// GetMenuItem retrieves a menu item by ID.
func (s *SQLiteStore) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := scanMenuItem(s.db.QueryRowContext(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: menu item %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

// ListMenuItems returns every menu item in creation order.
func (s *SQLiteStore) ListMenuItems(ctx context.Context) ([]*models.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+menuColumns+` FROM menu_items ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []*models.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}
	return items, nil
}

// UpdateMenuItem changes the columns set in update and returns the row.
func (s *SQLiteStore) UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	price, available := menuUpdateArgs(update)
	item, err := scanMenuItem(s.db.QueryRowContext(ctx,
		`UPDATE menu_items SET price = COALESCE(?, price), is_available = COALESCE(?, is_available)
		 WHERE id = ? RETURNING `+menuColumns,
		price, available, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: menu item %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return item, nil
}

// menuUpdateArgs maps unset fields to NULL so COALESCE keeps the column.
func menuUpdateArgs(update models.MenuItemUpdate) (price, available interface{}) {
	if update.Price != nil {
		price = update.Price.String()
	}
	if update.IsAvailable != nil {
		available = *update.IsAvailable
	}
	return price, available
}
