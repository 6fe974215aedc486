package payroll

import "context"

// PayrollService computes and freezes monthly pay.
type PayrollService interface {
	// Breakdown prices the month's attendance without storing anything (admin or self)
	Breakdown(ctx context.Context, query PeriodQuery) (BreakdownResponse, error)

	// Generate recomputes the breakdown and upserts the slip (admin)
	Generate(ctx context.Context, req GeneratePayrollRequest) (PayrollRecordResponse, error)

	// Status returns the slip for the period, or nil if none was generated (admin or self)
	Status(ctx context.Context, query PeriodQuery) (*PayrollRecordResponse, error)

	// MarkPaid records payment of a generated slip (admin)
	MarkPaid(ctx context.Context, req MarkPaidRequest) (PayrollRecordResponse, error)

	// ExportBreakdown renders the breakdown as an xlsx workbook (admin or self)
	ExportBreakdown(ctx context.Context, query PeriodQuery) (Document, error)

	// Payslip renders a generated slip as PDF (admin or self)
	Payslip(ctx context.Context, query PeriodQuery) (Document, error)
}
