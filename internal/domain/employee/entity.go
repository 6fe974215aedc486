package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the read-only profile this service needs from the HR directory.
type Employee struct {
	ID         string
	UserID     *string
	FullName   string
	Email      string
	BaseSalary *decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Salary returns the monthly base salary, zero when unset.
func (e Employee) Salary() decimal.Decimal {
	if e.BaseSalary == nil {
		return decimal.Zero
	}
	return *e.BaseSalary
}
