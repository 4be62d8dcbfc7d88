package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tableside/internal/models"
	"github.com/mmynk/tableside/internal/storage"
)

const billColumns = `id, order_id, subtotal, tax_percent, tax_amount, discount_percent, discount_amount,
	final_total, payment_status, payment_method, created_at, paid_at`

func scanBill(row scanner) (*models.Bill, error) {
	var bill models.Bill
	var method sql.NullString
	var paidAt sql.NullInt64
	err := row.Scan(&bill.ID, &bill.OrderID, &bill.Subtotal, &bill.TaxPercent, &bill.TaxAmount,
		&bill.DiscountPercent, &bill.DiscountAmount, &bill.FinalTotal, &bill.PaymentStatus,
		&method, &bill.CreatedAt, &paidAt)
	if err != nil {
		return nil, err
	}
	bill.PaymentMethod = models.PaymentMethod(method.String)
	bill.PaidAt = paidAt.Int64
	return &bill, nil
}

// CreateBill persists a new bill. An order can carry only one bill.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.PaymentStatus == "" {
		bill.PaymentStatus = models.PaymentPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT id FROM bills WHERE order_id = ?`, bill.OrderID).Scan(&existing)
		if err == nil {
			return fmt.Errorf("%w: order %s already has bill %s", storage.ErrDuplicate, bill.OrderID, existing)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check existing bill: %w", err)
		}

		var orderExists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, bill.OrderID).Scan(&orderExists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: order %s", storage.ErrNotFound, bill.OrderID)
		}
		if err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			bill.ID, bill.OrderID, bill.Subtotal.String(), bill.TaxPercent.String(), bill.TaxAmount.String(),
			bill.DiscountPercent.String(), bill.DiscountAmount.String(), bill.FinalTotal.String(),
			bill.PaymentStatus, nullString(string(bill.PaymentMethod)), bill.CreatedAt, nullInt64(bill.PaidAt),
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
func (s *SQLiteStore) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bill %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// ListBills returns bills matching filter, newest first.
func (s *SQLiteStore) ListBills(ctx context.Context, filter storage.BillFilter) ([]*models.Bill, error) {
	var where []string
	var args []interface{}
	if filter.OrderID != "" {
		where = append(where, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Status != "" {
		where = append(where, "payment_status = ?")
		args = append(args, filter.Status)
	}
	if filter.Since > 0 {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since)
	}

	query := `SELECT ` + billColumns + ` FROM bills`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) SettleBill(ctx context.Context, settlement storage.Settlement) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
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
func (s *SQLiteStore) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updatePaymentStatus(ctx, tx, id, from, to, "", 0)
	})
}

func updatePaymentStatus(ctx context.Context, tx *sql.Tx, id string, from, to models.PaymentStatus, method models.PaymentMethod, paidAt int64) error {
	var current models.PaymentStatus
	err := tx.QueryRowContext(ctx, `SELECT payment_status FROM bills WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: bill %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get bill status: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bills SET payment_status = ?, payment_method = COALESCE(?, payment_method), paid_at = COALESCE(?, paid_at)
		 WHERE id = ? AND payment_status = ?`,
		to, nullString(string(method)), nullInt64(paidAt), id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return rowsAffected(res, fmt.Sprintf("bill %s is %s, not %s", id, current, from))
}
