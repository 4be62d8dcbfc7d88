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

const orderColumns = `id, table_id, customer_name, order_type, status, total, staff_id, created_at`

func scanOrder(row scanner) (*models.Order, error) {
	var order models.Order
	var tableID, customerName, staffID sql.NullString
	err := row.Scan(&order.ID, &tableID, &customerName, &order.Type, &order.Status,
		&order.Total, &staffID, &order.CreatedAt)
	if err != nil {
		return nil, err
	}
	order.TableID = tableID.String
	order.CustomerName = customerName.String
	order.StaffID = staffID.String
	return &order, nil
}

// PlaceOrder inserts an order with its lines and, for a dine-in order,
// occupies the table, all in one transaction.
func (s *SQLiteStore) PlaceOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt == 0 {
		order.CreatedAt = time.Now().Unix()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if order.TableID != "" {
			if _, err := getTable(ctx, tx, order.TableID); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, nullString(order.TableID), nullString(order.CustomerName), order.Type,
			order.Status, order.Total.String(), nullString(order.StaffID), order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
			line.OrderID = order.ID
			_, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, line_no, menu_item_id, name, quantity, price_at_order)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				line.ID, order.ID, i, line.MenuItemID, line.Name, line.Quantity, line.PriceAtOrder.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		if order.TableID != "" {
			if _, err := transitionTable(ctx, tx, order.TableID, models.Occupy{OrderID: order.ID}); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetOrder retrieves an order with its lines.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := s.loadLines(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders created at or after since, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, since int64) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE created_at >= ? ORDER BY created_at DESC, rowid DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	if err := s.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadLines fills in Lines for each order with a single query.
func (s *SQLiteStore) loadLines(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*models.Order, len(orders))
	args := make([]interface{}, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		args[i] = o.ID
	}

	query := `SELECT id, order_id, menu_item_id, name, quantity, price_at_order
	          FROM order_items WHERE order_id IN (?` + repeatPlaceholder(len(orders)-1) + `)
	          ORDER BY order_id, line_no`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.Name, &line.Quantity, &line.PriceAtOrder); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return rows.Err()
}

// UpdateOrderStatus moves an order from one status to another.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current models.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: order %s", storage.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get order status: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE id = ? AND status = ?`, to, id, from)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return rowsAffected(res, fmt.Sprintf("order %s is %s, not %s", id, current, from))
	})
}
