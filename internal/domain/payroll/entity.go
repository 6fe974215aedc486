package payroll

import (
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/shopspring/decimal"
)

// Plan constants for the hourly-rate salary model.
const (
	StandardDays  = 30
	StandardHours = 8
	HalfDayHours  = 4
	HolidayHours  = 8
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusGenerated PayrollStatus = "Generated"
	PayrollStatusPaid      PayrollStatus = "Paid"
)

// PayrollRecord is the frozen slip for one employee and month. It is only
// ever produced from live attendance at generation time.
type PayrollRecord struct {
	ID                  string
	EmployeeID          string
	Month               int
	Year                int
	BaseSalary          decimal.Decimal
	HourlyRate          decimal.Decimal
	TotalDays           int
	PresentDays         int
	TotalHours          decimal.Decimal
	CalculatedWithHours decimal.Decimal
	Bonus               decimal.Decimal
	Deductions          decimal.Decimal
	NetSalary           decimal.Decimal
	Status              PayrollStatus
	GeneratedBy         string
	GeneratedAt         time.Time
	PaymentDate         *time.Time
	PaymentMethod       *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// Joined fields
	EmployeeName  *string
	EmployeeEmail *string
}

func (r PayrollRecord) IsPaid() bool {
	return r.Status == PayrollStatusPaid
}

// Period is a calendar month.
type Period struct {
	Month int
	Year  int
}

// Range returns the first and last day of the period in loc.
func (p Period) Range(loc *time.Location) (time.Time, time.Time) {
	return clock.MonthRange(p.Year, time.Month(p.Month), loc)
}
