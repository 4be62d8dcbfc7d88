package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

const menuColumns = `id, name, description, price, category, image_url, is_available, is_popular, preparation_time, created_at`

func scanMenuItem(row pgx.Row) (*models.MenuItem, error) {
	var item models.MenuItem
	var description, category, imageURL *string
	var price string
	err := row.Scan(&item.ID, &item.Name, &description, &price, &category, &imageURL,
		&item.IsAvailable, &item.IsPopular, &item.PreparationTime, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	item.Description = deref(description)
	item.Category = deref(category)
	item.ImageURL = deref(imageURL)
	return &item, nil
}

// CreateMenuItem persists a new menu item.
func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO menu_items (`+menuColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
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
func (s *Store) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := scanMenuItem(s.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: menu item %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}

// ListMenuItems returns every menu item in creation order.
func (s *Store) ListMenuItems(ctx context.Context) ([]*models.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY created_at, seq`)
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
func (s *Store) UpdateMenuItem(ctx context.Context, id string, update models.MenuItemUpdate) (*models.MenuItem, error) {
	var price *string
	if update.Price != nil {
		p := update.Price.String()
		price = &p
	}
	item, err := scanMenuItem(s.pool.QueryRow(ctx,
		`UPDATE menu_items SET price = COALESCE($1, price), is_available = COALESCE($2, is_available)
		 WHERE id = $3 RETURNING `+menuColumns,
		price, update.IsAvailable, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: menu item %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return item, nil
}

const tableColumns = `id, name, table_number, capacity, status, current_order_id, created_at`

func scanTable(row pgx.Row) (*models.Table, error) {
	var table models.Table
	var number *int32
	var status string
	var currentOrder *string
	if err := row.Scan(&table.ID, &table.Name, &number, &table.Capacity, &status, &currentOrder, &table.CreatedAt); err != nil {
		return nil, err
	}
	if number != nil {
		n := int(*number)
		table.TableNumber = &n
	}
	table.Status = models.TableStatus(status)
	table.CurrentOrderID = deref(currentOrder)
	return &table, nil
}

// CreateTable persists a new table.
func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	if table.ID == "" {
		table.ID = uuid.New().String()
	}
	if table.CreatedAt == 0 {
		table.CreatedAt = time.Now().Unix()
	}
	if table.Status == "" {
		table.Status = models.TableAvailable
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO restaurant_tables (`+tableColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		table.ID, table.Name, table.TableNumber, table.Capacity, string(table.Status),
		nullString(table.CurrentOrderID), table.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: table %s", storage.ErrDuplicate, table.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

// GetTable retrieves a table by ID.
func (s *Store) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return getTable(ctx, s.pool, id, false)
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTable(ctx context.Context, q querier, id string, forUpdate bool) (*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	table, err := scanTable(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

// ListTables returns all tables ordered by name.
func (s *Store) ListTables(ctx context.Context) ([]*models.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tableColumns+` FROM restaurant_tables ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []*models.Table
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// TransitionTable applies t to the table if it is still in t.From().
func (s *Store) TransitionTable(ctx context.Context, id string, t models.TableTransition) (*models.Table, error) {
	var updated *models.Table
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = transitionTable(ctx, tx, id, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func transitionTable(ctx context.Context, tx pgx.Tx, id string, t models.TableTransition) (*models.Table, error) {
	current, err := getTable(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	next, err := current.Apply(t)
	if err != nil {
		return nil, fmt.Errorf("%w: table %s is %s: %v", storage.ErrConflict, id, current.Status, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE restaurant_tables SET status = $1, current_order_id = $2
		 WHERE id = $3 AND status = $4 AND COALESCE(current_order_id, '') = $5`,
		string(next.Status), nullString(next.CurrentOrderID), id, string(current.Status), current.CurrentOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}
	if err := conflictIfNone(tag, "table "+id); err != nil {
		return nil, err
	}
	return &next, nil
}
