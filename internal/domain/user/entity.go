package user

type Role string

const (
	RoleAdmin    Role = "admin"    // Approves requests, corrects records, runs payroll
	RoleEmployee Role = "employee" // Files their own requests
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Actor is the authenticated caller, taken from access token claims.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
}

// IsAdmin checks if actor is an admin
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanView reports whether the actor may read data belonging to employeeID.
func (a Actor) CanView(employeeID string) bool {
	return a.IsAdmin() || (a.EmployeeID != "" && a.EmployeeID == employeeID)
}
