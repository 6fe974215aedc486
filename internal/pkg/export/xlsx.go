package export

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	breakdownSheet  = "Breakdown"
	summarySheet    = "Summary"
)

var breakdownHeaders = []interface{}{"Date", "Status", "Check In", "Check Out", "Hours", "Daily Pay"}

// BreakdownXLSX renders a monthly breakdown as a two-sheet workbook: one row
// per attendance day, then the period totals.
func BreakdownXLSX(b payroll.BreakdownResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", breakdownSheet); err != nil {
		return nil, fmt.Errorf("error renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}

	if err := f.SetSheetRow(breakdownSheet, "A1", &breakdownHeaders); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(breakdownSheet, 1, 1, headerStyle)
	}

	for i, row := range b.Breakdown {
		values := []interface{}{
			row.Date,
			row.Status,
			formatTime(row.CheckIn),
			formatTime(row.CheckOut),
			row.Hours.InexactFloat64(),
			row.DailyPay.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(breakdownSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	f.SetColWidth(breakdownSheet, "A", "F", 15)

	summary := [][]interface{}{
		{"Employee", b.Employee.FullName},
		{"Email", b.Employee.Email},
		{"Period", fmt.Sprintf("%04d-%02d", b.Year, b.Month)},
		{"Base Salary", b.BaseSalary.InexactFloat64()},
		{"Hourly Rate", b.HourlyRate.InexactFloat64()},
		{"Total Days", b.Summary.TotalDays},
		{"Present Days", b.Summary.PresentDays},
		{"Total Hours", b.Summary.TotalHours.InexactFloat64()},
		{"Total Pay", b.Summary.TotalPay.InexactFloat64()},
		{"Net Salary", b.Summary.NetSalary.InexactFloat64()},
	}
	for i, values := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return nil, err
		}
	}
	f.SetColWidth(summarySheet, "A", "B", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
