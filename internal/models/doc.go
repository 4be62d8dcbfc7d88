// Package models defines the core domain models for Tableside.
//
// # Records
//
// The following models mirror the shared collections every terminal reads:
//   - MenuItem: an orderable item (menu_items)
//   - Table: a physical table and its occupancy (restaurant_tables)
//   - Order and OrderLine: a placed order and its immutable lines (orders, order_items)
//   - Bill: the financial settlement record for one order (bills)
//   - Staff: the identity stamped on orders (from a signed token, never stored here)
//
// # Design Principles
//
// 1. **IDs, not pointers**: relationships are expressed with ID strings (UUID format)
// 2. **Closed sets**: statuses are typed strings with explicit transition rules
// 3. **Money is decimal**: every currency amount is a decimal.Decimal, never a float
// 4. **Write-once**: only Table occupancy, Order status and Bill payment status change
//    after creation
//
// # State Machines
//
// Table occupancy changes only through a TableTransition variant (Occupy, Release,
// Reserve, CancelReservation). Order status moves pending → preparing → served.
// Bill payment status moves pending → paid, pending → failed, failed → paid.
// Invalid moves return ErrInvalidTransition.
package models
