package models

// Role is a staff member's permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Staff identifies the person operating a terminal.
//
// Tableside does not manage accounts: the identity arrives in a signed token
// and is only used to stamp orders (Order.StaffID).
type Staff struct {
	// ID is the staff member's identifier in the issuing system.
	ID string

	// Name is the display name.
	Name string

	// Role is admin or staff.
	Role Role
}
