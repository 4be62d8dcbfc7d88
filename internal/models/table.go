package models

// TableStatus is the occupancy state of a table.
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Valid reports whether s is a known table status.
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved:
		return true
	}
	return false
}

// Table represents a physical dining table.
type Table struct {
	// ID is the unique identifier for the table (UUID format).
	ID string

	// Name is the display name (e.g., "Patio 2").
	Name string

	// TableNumber is the optional number painted on the table.
	TableNumber *int

	// Capacity is the number of seats. Always positive.
	Capacity int

	// Status is the occupancy state.
	Status TableStatus

	// CurrentOrderID is the order occupying the table.
	// Non-empty exactly when Status is TableOccupied.
	CurrentOrderID string

	// CreatedAt is the Unix timestamp when the table was added.
	CreatedAt int64
}

// TableTransition is one allowed change of a table's occupancy.
// Implementations are Occupy, Release, Reserve and CancelReservation; each
// names the state the table must be in for the change to apply.
type TableTransition interface {
	// From is the status the table must currently have.
	From() TableStatus
	// To is the status the table ends up with.
	To() TableStatus
	isTableTransition()
}

// Occupy seats an order at an available table.
type Occupy struct {
	OrderID string
}

// Release frees a table occupied by OrderID.
type Release struct {
	OrderID string
}

// Reserve holds an available table.
type Reserve struct{}

// CancelReservation makes a reserved table available again.
type CancelReservation struct{}

func (Occupy) From() TableStatus            { return TableAvailable }
func (Occupy) To() TableStatus              { return TableOccupied }
func (Release) From() TableStatus           { return TableOccupied }
func (Release) To() TableStatus             { return TableAvailable }
func (Reserve) From() TableStatus           { return TableAvailable }
func (Reserve) To() TableStatus             { return TableReserved }
func (CancelReservation) From() TableStatus { return TableReserved }
func (CancelReservation) To() TableStatus   { return TableAvailable }

func (Occupy) isTableTransition()            {}
func (Release) isTableTransition()           {}
func (Reserve) isTableTransition()           {}
func (CancelReservation) isTableTransition() {}

// ExpectedOrderID returns the order the transition is conditioned on:
// the order being seated for Occupy, the occupant for Release, "" otherwise.
func ExpectedOrderID(t TableTransition) string {
	switch v := t.(type) {
	case Occupy:
		return v.OrderID
	case Release:
		return v.OrderID
	}
	return ""
}

// Apply returns a copy of table with the transition applied, or
// ErrInvalidTransition if the table is not in the required prior state.
func (t Table) Apply(tr TableTransition) (Table, error) {
	if t.Status != tr.From() {
		return t, invalidTransition("table", string(t.Status), string(tr.To()))
	}
	if r, ok := tr.(Release); ok && t.CurrentOrderID != r.OrderID {
		return t, invalidTransition("table", string(t.Status), string(tr.To()))
	}
	t.Status = tr.To()
	if o, ok := tr.(Occupy); ok {
		t.CurrentOrderID = o.OrderID
	} else {
		t.CurrentOrderID = ""
	}
	return t, nil
}
