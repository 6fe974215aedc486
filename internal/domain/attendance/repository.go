package attendance

import (
	"context"
	"time"
)

// AttendanceRepository stores at most one record per (employee, date).
type AttendanceRepository interface {
	// Create inserts a new record and assigns its ID and Version.
	// Returns ErrRecordExists if the employee already has a record for that date.
	Create(ctx context.Context, newAttendance Attendance) (Attendance, error)

	// GetByID returns ErrRecordNotFound when the id does not resolve.
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetByEmployeeAndDate returns nil, nil when no record exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)

	// Update writes the record if its Version still matches the stored one
	// and returns it with the bumped Version. Returns ErrVersionConflict
	// on a stale write and ErrRecordNotFound if the record is gone.
	Update(ctx context.Context, att Attendance) (Attendance, error)

	// Delete hard-deletes a record.
	Delete(ctx context.Context, id string) error

	// List returns records newest first with employee identity joined.
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// ListByEmployeeBetween returns an employee's records with from <= date <= to, oldest first.
	ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Attendance, error)
}
