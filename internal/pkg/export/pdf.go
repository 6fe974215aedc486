package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const ContentTypePDF = "application/pdf"

// PayslipPDF renders a generated payroll record as a single-page A4 slip.
func PayslipPDF(emp payroll.EmployeeSummary, r payroll.PayrollRecordResponse) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", emp.FullName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", emp.Email))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s %d", time.Month(r.Month), r.Year))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", r.Status))
	pdf.Ln(10)

	lines := []struct {
		label string
		value string
	}{
		{"Base Salary", money(r.BaseSalary)},
		{"Hourly Rate", money(r.HourlyRate)},
		{"Working Days", fmt.Sprintf("%d / %d", r.PresentDays, r.TotalDays)},
		{"Total Hours", r.TotalHours.StringFixed(2)},
		{"Calculated Pay", money(r.CalculatedWithHours)},
		{"Bonus", money(r.Bonus)},
		{"Deductions", money(r.Deductions)},
	}
	for _, line := range lines {
		pdf.CellFormat(60, 8, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, line.value, "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(60, 8, "Net Salary", "T", 0, "L", false, 0, "")
	pdf.CellFormat(60, 8, money(r.NetSalary), "T", 1, "R", false, 0, "")

	if r.PaymentDate != nil {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Ln(6)
		method := ""
		if r.PaymentMethod != nil {
			method = " via " + *r.PaymentMethod
		}
		pdf.Cell(0, 6, fmt.Sprintf("Paid on %s%s", *r.PaymentDate, method))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error rendering payslip: %w", err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04:05")
}
