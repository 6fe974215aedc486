package payroll

import "errors"

var (
	ErrPayrollRecordNotFound = errors.New("payroll record not found")
	ErrPayrollAlreadyPaid    = errors.New("payroll record already paid, cannot modify")
	ErrInvalidPeriod         = errors.New("invalid payroll period")
)
