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

const tableColumns = `id, name, table_number, capacity, status, current_order_id, created_at`

func scanTable(row scanner) (*models.Table, error) {
	var table models.Table
	var number sql.NullInt64
	var currentOrder sql.NullString
	if err := row.Scan(&table.ID, &table.Name, &number, &table.Capacity, &table.Status, &currentOrder, &table.CreatedAt); err != nil {
		return nil, err
	}
	if number.Valid {
		n := int(number.Int64)
		table.TableNumber = &n
	}
	table.CurrentOrderID = currentOrder.String
	return &table, nil
}

// CreateTable persists a new table. New tables always start available.
func (s *SQLiteStore) CreateTable(ctx context.Context, table *models.Table) error {
	if table.ID == "" {
		table.ID = uuid.New().String()
	}
	if table.CreatedAt == 0 {
		table.CreatedAt = time.Now().Unix()
	}
	if table.Status == "" {
		table.Status = models.TableAvailable
	}

	var number interface{}
	if table.TableNumber != nil {
		number = *table.TableNumber
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurant_tables (`+tableColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table.ID, table.Name, number, table.Capacity, table.Status, nullString(table.CurrentOrderID), table.CreatedAt,
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
func (s *SQLiteStore) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return getTable(ctx, s.db, id)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getTable(ctx context.Context, q queryer, id string) (*models.Table, error) {
	table, err := scanTable(q.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

// ListTables returns all tables ordered by name.
func (s *SQLiteStore) ListTables(ctx context.Context) ([]*models.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables ORDER BY name, id`)
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
func (s *SQLiteStore) TransitionTable(ctx context.Context, id string, t models.TableTransition) (*models.Table, error) {
	var updated *models.Table
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = transitionTable(ctx, tx, id, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transitionTable reads the table inside tx, checks the transition, and
// writes it back conditioned on the state it read.
func transitionTable(ctx context.Context, tx *sql.Tx, id string, t models.TableTransition) (*models.Table, error) {
	current, err := getTable(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	next, err := current.Apply(t)
	if err != nil {
		return nil, fmt.Errorf("%w: table %s is %s: %v", storage.ErrConflict, id, current.Status, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE restaurant_tables SET status = ?, current_order_id = ?
		 WHERE id = ? AND status = ? AND COALESCE(current_order_id, '') = ?`,
		next.Status, nullString(next.CurrentOrderID), id, current.Status, current.CurrentOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}
	if err := rowsAffected(res, "table "+id); err != nil {
		return nil, err
	}
	return &next, nil
}
