package payroll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// PeriodQuery is the month/year pair from a query string. Month accepts
// "1" or "01".
type PeriodQuery struct {
	EmployeeID string
	Month      string
	Year       string
}

// Parse validates the query and returns the period it names.
func (q PeriodQuery) Parse() (Period, error) {
	var errs validator.ValidationErrors

	if validator.IsEmpty(q.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	month, ok := validator.ParseMonth(q.Month)
	if !ok {
		errs.Add("month", "month must be between 1 and 12")
	}
	year, ok := validator.ParseYear(q.Year)
	if !ok {
		errs.Add("year", "year must be a four-digit year")
	}

	if err := errs.Err(); err != nil {
		return Period{}, err
	}
	return Period{Month: month, Year: year}, nil
}

// PeriodPart decodes a month or year sent either as a number or a string.
type PeriodPart int

func (p *PeriodPart) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid period value %s: %w", b, ErrInvalidPeriod)
	}
	*p = PeriodPart(n)
	return nil
}

type GeneratePayrollRequest struct {
	EmployeeID string           `json:"employee_id" validate:"required"`
	Month      PeriodPart       `json:"month" validate:"gte=1,lte=12"`
	Year       PeriodPart       `json:"year" validate:"gte=1000,lte=9999"`
	Bonus      *decimal.Decimal `json:"bonus"`
	Deductions *decimal.Decimal `json:"deductions"`
}

func (r *GeneratePayrollRequest) Validate() error {
	errs := validator.Struct(r)
	if r.Bonus != nil && r.Bonus.IsNegative() {
		errs.Add("bonus", "bonus must not be negative")
	}
	if r.Deductions != nil && r.Deductions.IsNegative() {
		errs.Add("deductions", "deductions must not be negative")
	}
	return errs.Err()
}

func (r GeneratePayrollRequest) Period() Period {
	return Period{Month: int(r.Month), Year: int(r.Year)}
}

func (r GeneratePayrollRequest) BonusOrZero() decimal.Decimal {
	if r.Bonus == nil {
		return decimal.Zero
	}
	return *r.Bonus
}

func (r GeneratePayrollRequest) DeductionsOrZero() decimal.Decimal {
	if r.Deductions == nil {
		return decimal.Zero
	}
	return *r.Deductions
}

type MarkPaidRequest struct {
	ID            string  `json:"-"`
	PaymentDate   *string `json:"payment_date"` // YYYY-MM-DD, defaults to today
	PaymentMethod string  `json:"payment_method" validate:"required,max=50"`
}

func (r *MarkPaidRequest) Validate() error {
	errs := validator.Struct(r)
	if validator.IsEmpty(r.ID) {
		errs.Add("id", "id is required")
	}
	if r.PaymentDate != nil && *r.PaymentDate != "" {
		if _, ok := validator.IsValidDate(*r.PaymentDate); !ok {
			errs.Add("payment_date", "payment_date must be in YYYY-MM-DD format")
		}
	}
	return errs.Err()
}

// ========== RESPONSES ==========

type EmployeeSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type BreakdownRowResponse struct {
	Date     string          `json:"date"`
	Status   string          `json:"status"`
	CheckIn  *time.Time      `json:"check_in"`
	CheckOut *time.Time      `json:"check_out"`
	Hours    decimal.Decimal `json:"hours"`
	DailyPay decimal.Decimal `json:"daily_pay"`
}

type BreakdownSummary struct {
	TotalDays   int             `json:"total_days"`
	PresentDays int             `json:"present_days"`
	TotalHours  decimal.Decimal `json:"total_hours"`
	TotalPay    decimal.Decimal `json:"total_pay"`
	NetSalary   decimal.Decimal `json:"net_salary"`
}

type BreakdownResponse struct {
	Employee   EmployeeSummary        `json:"employee"`
	Month      int                    `json:"month"`
	Year       int                    `json:"year"`
	BaseSalary decimal.Decimal        `json:"base_salary"`
	HourlyRate decimal.Decimal        `json:"hourly_rate"`
	Breakdown  []BreakdownRowResponse `json:"breakdown"`
	Summary    BreakdownSummary       `json:"summary"`
}

func NewBreakdownResponse(emp EmployeeSummary, b Breakdown) BreakdownResponse {
	rows := make([]BreakdownRowResponse, 0, len(b.Rows))
	for _, row := range b.Rows {
		rows = append(rows, BreakdownRowResponse{
			Date:     row.Date.Format("2006-01-02"),
			Status:   string(row.Status),
			CheckIn:  row.CheckIn,
			CheckOut: row.CheckOut,
			Hours:    row.Hours,
			DailyPay: row.DailyPay,
		})
	}
	return BreakdownResponse{
		Employee:   emp,
		Month:      b.Period.Month,
		Year:       b.Period.Year,
		BaseSalary: b.BaseSalary,
		HourlyRate: b.HourlyRate,
		Breakdown:  rows,
		Summary: BreakdownSummary{
			TotalDays:   b.TotalDays,
			PresentDays: b.PresentDays,
			TotalHours:  b.TotalHours,
			TotalPay:    b.TotalPay,
			NetSalary:   b.NetSalary(),
		},
	}
}

type PayrollRecordResponse struct {
	ID                  string          `json:"id"`
	EmployeeID          string          `json:"employee_id"`
	EmployeeName        *string         `json:"employee_name,omitempty"`
	Month               int             `json:"month"`
	Year                int             `json:"year"`
	BaseSalary          decimal.Decimal `json:"base_salary"`
	HourlyRate          decimal.Decimal `json:"hourly_rate"`
	TotalDays           int             `json:"total_days"`
	PresentDays         int             `json:"present_days"`
	TotalHours          decimal.Decimal `json:"total_hours"`
	CalculatedWithHours decimal.Decimal `json:"calculated_with_hours"`
	Bonus               decimal.Decimal `json:"bonus"`
	Deductions          decimal.Decimal `json:"deductions"`
	NetSalary           decimal.Decimal `json:"net_salary"`
	Status              string          `json:"status"`
	GeneratedBy         string          `json:"generated_by"`
	GeneratedAt         time.Time       `json:"generated_at"`
	PaymentDate         *string         `json:"payment_date,omitempty"`
	PaymentMethod       *string         `json:"payment_method,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func NewPayrollRecordResponse(r PayrollRecord) PayrollRecordResponse {
	var paymentDate *string
	if r.PaymentDate != nil {
		s := r.PaymentDate.Format("2006-01-02")
		paymentDate = &s
	}
	return PayrollRecordResponse{
		ID:                  r.ID,
		EmployeeID:          r.EmployeeID,
		EmployeeName:        r.EmployeeName,
		Month:               r.Month,
		Year:                r.Year,
		BaseSalary:          r.BaseSalary,
		HourlyRate:          r.HourlyRate,
		TotalDays:           r.TotalDays,
		PresentDays:         r.PresentDays,
		TotalHours:          r.TotalHours,
		CalculatedWithHours: r.CalculatedWithHours,
		Bonus:               r.Bonus,
		Deductions:          r.Deductions,
		NetSalary:           r.NetSalary,
		Status:              string(r.Status),
		GeneratedBy:         r.GeneratedBy,
		GeneratedAt:         r.GeneratedAt,
		PaymentDate:         paymentDate,
		PaymentMethod:       r.PaymentMethod,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// Document is a rendered file ready to stream to the client.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}
