package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)

	// Save inserts the profile or replaces the existing one with the same ID.
	Save(ctx context.Context, emp Employee) (Employee, error)
}
