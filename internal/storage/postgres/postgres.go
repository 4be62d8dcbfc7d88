// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface for deployments with several front-of-house
// terminals sharing one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/tableside/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const connectAttempts = 5

// Store implements storage.Store on a pgx connection pool.
// Contested rows are locked with SELECT ... FOR UPDATE before the
// conditional UPDATE, so concurrent sessions queue on the row.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn and runs migrations.
// Connection failures are retried with a linear backoff.
func New(ctx context.Context, dsn string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	var pool *pgxpool.Pool
	for i := 0; i < connectAttempts; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				break
			}
			pool.Close()
		}

		if i < connectAttempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			slog.Warn("Database connection failed, retrying", "attempt", i+1, "wait", wait, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func conflictIfNone(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrConflict, what)
	}
	return nil
}

// schema mirrors the SQLite schema. Money columns hold exact decimal strings.
const schema = `
CREATE TABLE IF NOT EXISTS menu_items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    price TEXT NOT NULL,
    category TEXT,
    image_url TEXT,
    is_available BOOLEAN NOT NULL DEFAULT TRUE,
    is_popular BOOLEAN NOT NULL DEFAULT FALSE,
    preparation_time INTEGER NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    seq BIGSERIAL
);

CREATE TABLE IF NOT EXISTS restaurant_tables (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    table_number INTEGER,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'occupied', 'reserved')),
    current_order_id TEXT,
    created_at BIGINT NOT NULL,
    CHECK ((status = 'occupied') = (current_order_id IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    table_id TEXT REFERENCES restaurant_tables(id),
    customer_name TEXT,
    order_type TEXT NOT NULL CHECK (order_type IN ('dine-in', 'takeaway')),
    status TEXT NOT NULL CHECK (status IN ('pending', 'preparing', 'served')),
    total TEXT NOT NULL,
    staff_id TEXT,
    created_at BIGINT NOT NULL,
    seq BIGSERIAL
);

CREATE TABLE IF NOT EXISTS order_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL REFERENCES orders(id),
    line_no INTEGER NOT NULL,
    menu_item_id TEXT NOT NULL REFERENCES menu_items(id),
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    price_at_order TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL UNIQUE REFERENCES orders(id),
    subtotal TEXT NOT NULL,
    tax_percent TEXT NOT NULL,
    tax_amount TEXT NOT NULL,
    discount_percent TEXT NOT NULL,
    discount_amount TEXT NOT NULL,
    final_total TEXT NOT NULL,
    payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'paid', 'failed')),
    payment_method TEXT,
    created_at BIGINT NOT NULL,
    paid_at BIGINT,
    seq BIGSERIAL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
`
