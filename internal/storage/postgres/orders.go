package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

const orderColumns = `id, table_id, customer_name, order_type, status, total, staff_id, created_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var tableID, customerName, staffID *string
	var orderType, status, total string
	err := row.Scan(&order.ID, &tableID, &customerName, &orderType, &status, &total, &staffID, &order.CreatedAt)
	if err != nil {
		return nil, err
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid order total %q: %w", total, err)
	}
	order.TableID = deref(tableID)
	order.CustomerName = deref(customerName)
	order.StaffID = deref(staffID)
	order.Type = models.OrderType(orderType)
	order.Status = models.OrderStatus(status)
	return &order, nil
}

// PlaceOrder inserts an order with its lines and, for a dine-in order,
// occupies the table, all in one transaction.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt == 0 {
		order.CreatedAt = time.Now().Unix()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the table first so a losing session fails before writing anything.
		if order.TableID != "" {
			if _, err := getTable(ctx, tx, order.TableID, true); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID, nullString(order.TableID), nullString(order.CustomerName), string(order.Type),
			string(order.Status), order.Total.String(), nullString(order.StaffID), order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range order.Lines {
			line := &order.Lines[i]
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
			line.OrderID = order.ID
			batch.Queue(`INSERT INTO order_items (id, order_id, line_no, menu_item_id, name, quantity, price_at_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				line.ID, order.ID, i, line.MenuItemID, line.Name, line.Quantity, line.PriceAtOrder.String())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
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
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
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
func (s *Store) ListOrders(ctx context.Context, since int64) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE created_at >= $1 ORDER BY created_at DESC, seq DESC`, since)
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

	if err := s.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) loadLines(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*models.Order, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, menu_item_id, name, quantity, price_at_order
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		var price string
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.Name, &line.Quantity, &price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if line.PriceAtOrder, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid line price %q: %w", price, err)
		}
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return rows.Err()
}

// UpdateOrderStatus moves an order from one status to another.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: order %s", storage.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get order status: %w", err)
		}

		tag, err := tx.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
			string(to), id, string(from))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return conflictIfNone(tag, fmt.Sprintf("order %s is %s, not %s", id, current, from))
	})
}

const billColumns = `id, order_id, subtotal, tax_percent, tax_amount, discount_percent, discount_amount,
	final_total, payment_status, payment_method, created_at, paid_at`

func scanBill(row pgx.Row) (*models.Bill, error) {
	var bill models.Bill
	var amounts [6]string
	var status string
	var method *string
	var paidAt *int64
	err := row.Scan(&bill.ID, &bill.OrderID, &amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		&amounts[5], &status, &method, &bill.CreatedAt, &paidAt)
	if err != nil {
		return nil, err
	}

	targets := []*decimal.Decimal{&bill.Subtotal, &bill.TaxPercent, &bill.TaxAmount,
		&bill.DiscountPercent, &bill.DiscountAmount, &bill.FinalTotal}
	for i, target := range targets {
		if *target, err = decimal.NewFromString(amounts[i]); err != nil {
			return nil, fmt.Errorf("invalid bill amount %q: %w", amounts[i], err)
		}
	}
	bill.PaymentStatus = models.PaymentStatus(status)
	bill.PaymentMethod = models.PaymentMethod(deref(method))
	if paidAt != nil {
		bill.PaidAt = *paidAt
	}
	return &bill, nil
}

// CreateBill persists a new bill. An order can carry only one bill.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.PaymentStatus == "" {
		bill.PaymentStatus = models.PaymentPending
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		var orderID string
		err := tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, bill.OrderID).Scan(&orderID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: order %s", storage.ErrNotFound, bill.OrderID)
		}
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO bills (`+billColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			bill.ID, bill.OrderID, bill.Subtotal.String(), bill.TaxPercent.String(), bill.TaxAmount.String(),
			bill.DiscountPercent.String(), bill.DiscountAmount.String(), bill.FinalTotal.String(),
			string(bill.PaymentStatus), nullString(string(bill.PaymentMethod)), bill.CreatedAt, nullInt64(bill.PaidAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s already has a bill", storage.ErrDuplicate, bill.OrderID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}
		return nil
	})
}

// GetBill retrieves a bill by ID.
func (s *Store) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := scanBill(s.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: bill %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// ListBills returns bills matching filter, newest first.
func (s *Store) ListBills(ctx context.Context, filter storage.BillFilter) ([]*models.Bill, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.OrderID != "" {
		add("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		add("payment_status = ?", string(filter.Status))
	}
	if filter.Since > 0 {
		add("created_at >= ?", filter.Since)
	}

	query := `SELECT ` + billColumns + ` FROM bills`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}
	return bills, nil
}

// SettleBill marks a bill paid and releases its table in one transaction.
func (s *Store) SettleBill(ctx context.Context, settlement storage.Settlement) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updatePaymentStatus(ctx, tx, settlement.BillID, settlement.From, models.PaymentPaid,
			settlement.Method, settlement.PaidAt); err != nil {
			return err
		}
		if settlement.TableID == "" {
			return nil
		}
		_, err := transitionTable(ctx, tx, settlement.TableID, models.Release{OrderID: settlement.OrderID})
		return err
	})
}

// UpdatePaymentStatus moves a bill between payment statuses.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return updatePaymentStatus(ctx, tx, id, from, to, "", 0)
	})
}

func updatePaymentStatus(ctx context.Context, tx pgx.Tx, id string, from, to models.PaymentStatus, method models.PaymentMethod, paidAt int64) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT payment_status FROM bills WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: bill %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get bill status: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE bills SET payment_status = $1, payment_method = COALESCE($2, payment_method),
		 paid_at = COALESCE($3, paid_at) WHERE id = $4 AND payment_status = $5`,
		string(to), nullString(string(method)), nullInt64(paidAt), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return conflictIfNone(tag, fmt.Sprintf("bill %s is %s, not %s", id, current, from))
}
