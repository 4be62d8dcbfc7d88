package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Money columns are TEXT holding exact decimal strings.
const schema = `
CREATE TABLE IF NOT EXISTS menu_items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    price TEXT NOT NULL,
    category TEXT,
    image_url TEXT,
    is_available INTEGER NOT NULL DEFAULT 1,
    is_popular INTEGER NOT NULL DEFAULT 0,
    preparation_time INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS restaurant_tables (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    table_number INTEGER,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'occupied', 'reserved')),
    current_order_id TEXT,
    created_at INTEGER NOT NULL,
    CHECK ((status = 'occupied') = (current_order_id IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    table_id TEXT,
    customer_name TEXT,
    order_type TEXT NOT NULL CHECK (order_type IN ('dine-in', 'takeaway')),
    status TEXT NOT NULL CHECK (status IN ('pending', 'preparing', 'served')),
    total TEXT NOT NULL,
    staff_id TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (table_id) REFERENCES restaurant_tables(id)
);

CREATE TABLE IF NOT EXISTS order_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    line_no INTEGER NOT NULL,
    menu_item_id TEXT NOT NULL,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    price_at_order TEXT NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(id),
    FOREIGN KEY (menu_item_id) REFERENCES menu_items(id)
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL UNIQUE,
    subtotal TEXT NOT NULL,
    tax_percent TEXT NOT NULL,
    tax_amount TEXT NOT NULL,
    discount_percent TEXT NOT NULL,
    discount_amount TEXT NOT NULL,
    final_total TEXT NOT NULL,
    payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'paid', 'failed')),
    payment_method TEXT,
    created_at INTEGER NOT NULL,
    paid_at INTEGER,
    FOREIGN KEY (order_id) REFERENCES orders(id)
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
