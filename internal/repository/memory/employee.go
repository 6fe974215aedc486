package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/google/uuid"
)

type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
	now       func() time.Time
}

// NewEmployeeRepository returns an in-process directory, mainly for local
// runs and tests.
func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{
		employees: make(map[string]employee.Employee),
		now:       time.Now,
	}
}

// GetByID implements employee.EmployeeRepository.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emp, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

// GetByUserID implements employee.EmployeeRepository.
func (r *EmployeeRepository) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, emp := range r.employees {
		if emp.UserID != nil && *emp.UserID == userID {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

// Save implements employee.EmployeeRepository.
func (r *EmployeeRepository) Save(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}
	if emp.UserID != nil {
		for id, other := range r.employees {
			if id != emp.ID && other.UserID != nil && *other.UserID == *emp.UserID {
				return employee.Employee{}, employee.ErrUserIDTaken
			}
		}
	}
	now := r.now()
	if existing, ok := r.employees[emp.ID]; ok {
		emp.CreatedAt = existing.CreatedAt
	} else {
		emp.CreatedAt = now
	}
	emp.UpdatedAt = now
	r.employees[emp.ID] = emp
	return emp, nil
}

// names returns the display identity for employeeID, if known.
func (r *EmployeeRepository) names(employeeID string) (*string, *string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emp, ok := r.employees[employeeID]
	if !ok {
		return nil, nil
	}
	name, email := emp.FullName, emp.Email
	return &name, &email
}
