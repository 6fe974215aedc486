package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/export"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
)

type PayrollServiceImpl struct {
	payrollRepo    payroll.PayrollRepository
	attendanceRepo attendance.AttendanceRepository
	employeeRepo   employee.EmployeeRepository
	notifier       notification.Service
	clock          clock.Clock
	logger         *slog.Logger
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	notifier notification.Service,
	clk clock.Clock,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		payrollRepo:    payrollRepo,
		attendanceRepo: attendanceRepo,
		employeeRepo:   employeeRepo,
		notifier:       notifier,
		clock:          clk,
		logger:         slog.Default().With("service", "payroll"),
	}
}

// authorizeView lets admins read anyone and employees read themselves.
func authorizeView(ctx context.Context, employeeID string) (user.Actor, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if !actor.CanView(employeeID) {
		return user.Actor{}, user.ErrForbidden
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (user.Actor, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if !actor.IsAdmin() {
		return user.Actor{}, user.ErrForbidden
	}
	return actor, nil
}

// compute prices the live attendance of the period.
func (s *PayrollServiceImpl) compute(ctx context.Context, employeeID string, period payroll.Period) (employee.Employee, payroll.Breakdown, error) {
	emp, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return employee.Employee{}, payroll.Breakdown{}, err
	}

	from, to := period.Range(s.clock.Location())
	records, err := s.attendanceRepo.ListByEmployeeBetween(ctx, employeeID, from, to)
	if err != nil {
		return employee.Employee{}, payroll.Breakdown{}, fmt.Errorf("failed to load attendance for payroll: %w", err)
	}

	return emp, payroll.Calculate(period, emp.Salary(), records), nil
}

// Breakdown implements payroll.PayrollService.
func (s *PayrollServiceImpl) Breakdown(ctx context.Context, query payroll.PeriodQuery) (payroll.BreakdownResponse, error) {
	period, err := query.Parse()
	if err != nil {
		return payroll.BreakdownResponse{}, err
	}
	if _, err := authorizeView(ctx, query.EmployeeID); err != nil {
		return payroll.BreakdownResponse{}, err
	}

	emp, breakdown, err := s.compute(ctx, query.EmployeeID, period)
	if err != nil {
		return payroll.BreakdownResponse{}, err
	}
	return payroll.NewBreakdownResponse(summary(emp), breakdown), nil
}

// Generate implements payroll.PayrollService.
func (s *PayrollServiceImpl) Generate(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	actor, err := requireAdmin(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	emp, breakdown, err := s.compute(ctx, req.EmployeeID, req.Period())
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	record := breakdown.Finalize(emp.ID, req.BonusOrZero(), req.DeductionsOrZero())
	record.GeneratedBy = actor.UserID
	record.GeneratedAt = s.clock.Now()

	saved, err := s.payrollRepo.Upsert(ctx, record)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	if saved.EmployeeName == nil {
		saved.EmployeeName = &emp.FullName
	}

	s.logger.Info("payroll generated",
		"payroll_id", saved.ID, "employee_id", emp.ID, "month", saved.Month, "year", saved.Year,
		"net_salary", saved.NetSalary.String(), "admin", actor.UserID)
	s.notify(ctx, notification.Notification{
		Type:        notification.TypePayrollGenerated,
		RecipientID: emp.ID,
		ActorID:     actor.UserID,
		Title:       "Payslip generated",
		Message:     fmt.Sprintf("Your payslip for %02d/%d is ready", saved.Month, saved.Year),
		Data: map[string]interface{}{
			"payroll_id": saved.ID,
			"net_salary": saved.NetSalary.String(),
		},
	})
	return payroll.NewPayrollRecordResponse(saved), nil
}

// Status implements payroll.PayrollService.
func (s *PayrollServiceImpl) Status(ctx context.Context, query payroll.PeriodQuery) (*payroll.PayrollRecordResponse, error) {
	period, err := query.Parse()
	if err != nil {
		return nil, err
	}
	if _, err := authorizeView(ctx, query.EmployeeID); err != nil {
		return nil, err
	}

	record, err := s.payrollRepo.GetByEmployeePeriod(ctx, query.EmployeeID, period.Month, period.Year)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	resp := payroll.NewPayrollRecordResponse(*record)
	return &resp, nil
}

// MarkPaid implements payroll.PayrollService.
func (s *PayrollServiceImpl) MarkPaid(ctx context.Context, req payroll.MarkPaidRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	actor, err := requireAdmin(ctx)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	paymentDate := clock.Today(s.clock)
	if req.PaymentDate != nil && *req.PaymentDate != "" {
		d, _ := validator.IsValidDate(*req.PaymentDate)
		paymentDate = d
	}

	paid, err := s.payrollRepo.MarkPaid(ctx, req.ID, paymentDate, req.PaymentMethod)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.logger.Info("payroll paid", "payroll_id", paid.ID, "employee_id", paid.EmployeeID, "admin", actor.UserID)
	s.notify(ctx, notification.Notification{
		Type:        notification.TypePayrollPaid,
		RecipientID: paid.EmployeeID,
		ActorID:     actor.UserID,
		Title:       "Salary paid",
		Message:     fmt.Sprintf("Your salary for %02d/%d was paid via %s", paid.Month, paid.Year, req.PaymentMethod),
		Data: map[string]interface{}{
			"payroll_id":   paid.ID,
			"payment_date": paymentDate.Format("2006-01-02"),
		},
	})
	return payroll.NewPayrollRecordResponse(paid), nil
}

// ExportBreakdown implements payroll.PayrollService.
func (s *PayrollServiceImpl) ExportBreakdown(ctx context.Context, query payroll.PeriodQuery) (payroll.Document, error) {
	breakdown, err := s.Breakdown(ctx, query)
	if err != nil {
		return payroll.Document{}, err
	}

	content, err := export.BreakdownXLSX(breakdown)
	if err != nil {
		return payroll.Document{}, fmt.Errorf("failed to render breakdown: %w", err)
	}
	return payroll.Document{
		Filename:    fmt.Sprintf("breakdown-%s-%d-%02d.xlsx", breakdown.Employee.ID, breakdown.Year, breakdown.Month),
		ContentType: export.ContentTypeXLSX,
		Content:     content,
	}, nil
}

// Payslip implements payroll.PayrollService.
func (s *PayrollServiceImpl) Payslip(ctx context.Context, query payroll.PeriodQuery) (payroll.Document, error) {
	period, err := query.Parse()
	if err != nil {
		return payroll.Document{}, err
	}
	if _, err := authorizeView(ctx, query.EmployeeID); err != nil {
		return payroll.Document{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, query.EmployeeID)
	if err != nil {
		return payroll.Document{}, err
	}
	record, err := s.payrollRepo.GetByEmployeePeriod(ctx, query.EmployeeID, period.Month, period.Year)
	if err != nil {
		return payroll.Document{}, err
	}
	if record == nil {
		return payroll.Document{}, payroll.ErrPayrollRecordNotFound
	}

	content, err := export.PayslipPDF(summary(emp), payroll.NewPayrollRecordResponse(*record))
	if err != nil {
		return payroll.Document{}, fmt.Errorf("failed to render payslip: %w", err)
	}
	return payroll.Document{
		Filename:    fmt.Sprintf("payslip-%s-%d-%02d.pdf", emp.ID, period.Year, period.Month),
		ContentType: export.ContentTypePDF,
		Content:     content,
	}, nil
}

func (s *PayrollServiceImpl) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Queue(ctx, n)
}

func summary(emp employee.Employee) payroll.EmployeeSummary {
	return payroll.EmployeeSummary{ID: emp.ID, FullName: emp.FullName, Email: emp.Email}
}
