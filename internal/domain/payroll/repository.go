package payroll

import (
	"context"
	"time"
)

// PayrollRepository stores one record per (employee, month, year).
type PayrollRepository interface {
	// Upsert inserts the record or overwrites the computed fields of the
	// existing one for the same period, keeping its ID, GeneratedBy and
	// CreatedAt. Returns ErrPayrollAlreadyPaid if the existing record is Paid.
	Upsert(ctx context.Context, record PayrollRecord) (PayrollRecord, error)

	GetByID(ctx context.Context, id string) (PayrollRecord, error)

	// GetByEmployeePeriod returns nil, nil when nothing has been generated.
	GetByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*PayrollRecord, error)

	// MarkPaid moves a Generated record to Paid. Returns ErrPayrollAlreadyPaid
	// if it was already paid.
	MarkPaid(ctx context.Context, id string, paymentDate time.Time, paymentMethod string) (PayrollRecord, error)
}
