package payroll

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/export"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queued struct {
	sent []notification.Notification
}

func (q *queued) Queue(ctx context.Context, n notification.Notification) { q.sent = append(q.sent, n) }
func (q *queued) Stop()                                                  {}

type fixture struct {
	svc         payroll.PayrollService
	attendances attendance.AttendanceRepository
	notifier    *queued
	admin       context.Context
	otherAdmin  context.Context
	alice       context.Context
	bob         context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	salary := decimal.NewFromInt(15000)
	employees := memory.NewEmployeeRepository()
	for _, emp := range []employee.Employee{
		{ID: "emp-alice", FullName: "Alice", Email: "alice@example.com", BaseSalary: &salary},
		{ID: "emp-bob", FullName: "Bob", Email: "bob@example.com"},
	} {
		_, err := employees.Save(context.Background(), emp)
		require.NoError(t, err)
	}

	clk := &clock.Fixed{T: time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)}
	f := &fixture{
		attendances: memory.NewAttendanceRepository(employees),
		notifier:    &queued{},
	}
	f.svc = NewPayrollService(memory.NewPayrollRepository(employees), f.attendances, employees, f.notifier, clk)

	tokens := jwt.NewJWTService("test-secret", time.Hour)
	f.admin = actorContext(t, tokens, user.Actor{UserID: "user-admin", Role: user.RoleAdmin})
	f.otherAdmin = actorContext(t, tokens, user.Actor{UserID: "user-admin-2", Role: user.RoleAdmin})
	f.alice = actorContext(t, tokens, user.Actor{UserID: "user-alice", EmployeeID: "emp-alice", Role: user.RoleEmployee})
	f.bob = actorContext(t, tokens, user.Actor{UserID: "user-bob", EmployeeID: "emp-bob", Role: user.RoleEmployee})
	return f
}

func actorContext(t *testing.T, tokens *jwt.JWTService, actor user.Actor) context.Context {
	t.Helper()
	raw, _, err := tokens.GenerateAccessToken(actor)
	require.NoError(t, err)
	token, err := jwtauth.VerifyToken(tokens.JWTAuth(), raw)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

// seedDay stores a record for alice with the given duration and optional override.
func (f *fixture) seedDay(t *testing.T, day int, month time.Month, minutes int, override *attendance.Status) {
	t.Helper()
	date := time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
	rec := attendance.New("emp-alice", date, date)
	rec.DurationMinutes = minutes
	rec.StatusOverride = override
	rec.Refresh()
	_, err := f.attendances.Create(context.Background(), rec)
	require.NoError(t, err)
}

func march(employeeID string) payroll.PeriodQuery {
	return payroll.PeriodQuery{EmployeeID: employeeID, Month: "03", Year: "2025"}
}

func TestPayrollService_Breakdown(t *testing.T) {
	f := newFixture(t)
	holiday := attendance.StatusHoliday
	f.seedDay(t, 11, time.March, 0, &holiday)
	f.seedDay(t, 10, time.March, 510, nil)
	f.seedDay(t, 12, time.March, 0, nil)
	f.seedDay(t, 1, time.April, 480, nil)

	resp, err := f.svc.Breakdown(f.alice, march("emp-alice"))
	require.NoError(t, err)

	assert.Equal(t, "62.5", resp.HourlyRate.String())
	require.Len(t, resp.Breakdown, 3)
	assert.Equal(t, "2025-03-10", resp.Breakdown[0].Date)
	assert.Equal(t, "8.5", resp.Breakdown[0].Hours.String())
	assert.Equal(t, "531", resp.Breakdown[0].DailyPay.String())
	assert.Equal(t, string(attendance.StatusHoliday), resp.Breakdown[1].Status)
	assert.Equal(t, "500", resp.Breakdown[1].DailyPay.String())
	assert.True(t, resp.Breakdown[2].Hours.IsZero())

	assert.Equal(t, payroll.StandardDays, resp.Summary.TotalDays)
	assert.Equal(t, 2, resp.Summary.PresentDays)
	assert.Equal(t, "16.5", resp.Summary.TotalHours.String())
	assert.Equal(t, "1031", resp.Summary.TotalPay.String())
	assert.True(t, resp.Summary.NetSalary.Equal(resp.Summary.TotalPay))
	assert.Equal(t, "Alice", resp.Employee.FullName)

	again, err := f.svc.Breakdown(f.admin, march("emp-alice"))
	require.NoError(t, err)
	assert.Equal(t, resp, again)
}

func TestPayrollService_BreakdownAccess(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Breakdown(f.bob, march("emp-alice"))
	assert.ErrorIs(t, err, user.ErrForbidden)

	_, err = f.svc.Breakdown(f.admin, march("emp-ghost"))
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	_, err = f.svc.Breakdown(f.admin, payroll.PeriodQuery{EmployeeID: "emp-alice", Month: "13", Year: "2025"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	resp, err := f.svc.Breakdown(f.bob, march("emp-bob"))
	require.NoError(t, err)
	assert.True(t, resp.HourlyRate.IsZero())
	assert.Empty(t, resp.Breakdown)
}

func TestPayrollService_Generate(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t, 10, time.March, 510, nil)

	bonus, deductions := decimal.NewFromInt(1000), decimal.NewFromInt(200)
	req := payroll.GeneratePayrollRequest{EmployeeID: "emp-alice", Month: 3, Year: 2025, Bonus: &bonus, Deductions: &deductions}

	first, err := f.svc.Generate(f.admin, req)
	require.NoError(t, err)
	assert.Equal(t, "531", first.CalculatedWithHours.String())
	assert.Equal(t, "1331", first.NetSalary.String())
	assert.Equal(t, string(payroll.PayrollStatusGenerated), first.Status)
	assert.Equal(t, "user-admin", first.GeneratedBy)

	second, err := f.svc.Generate(f.otherAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "user-admin", second.GeneratedBy)
	assert.Equal(t, first.NetSalary.String(), second.NetSalary.String())

	status, err := f.svc.Status(f.alice, march("emp-alice"))
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, first.ID, status.ID)

	_, err = f.svc.Generate(f.alice, req)
	assert.ErrorIs(t, err, user.ErrForbidden)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, notification.TypePayrollGenerated, f.notifier.sent[0].Type)
	assert.Equal(t, "emp-alice", f.notifier.sent[0].RecipientID)
}

func TestPayrollService_StatusWhenNotGenerated(t *testing.T) {
	f := newFixture(t)

	status, err := f.svc.Status(f.admin, march("emp-alice"))
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = f.svc.Status(f.bob, march("emp-alice"))
	assert.ErrorIs(t, err, user.ErrForbidden)
}

func TestPayrollService_MarkPaid(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t, 10, time.March, 510, nil)

	req := payroll.GeneratePayrollRequest{EmployeeID: "emp-alice", Month: 3, Year: 2025}
	generated, err := f.svc.Generate(f.admin, req)
	require.NoError(t, err)
	assert.Equal(t, "531", generated.NetSalary.String())

	_, err = f.svc.MarkPaid(f.alice, payroll.MarkPaidRequest{ID: generated.ID, PaymentMethod: "transfer"})
	assert.ErrorIs(t, err, user.ErrForbidden)

	paid, err := f.svc.MarkPaid(f.admin, payroll.MarkPaidRequest{ID: generated.ID, PaymentMethod: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, string(payroll.PayrollStatusPaid), paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, "2025-04-02", *paid.PaymentDate)

	_, err = f.svc.MarkPaid(f.admin, payroll.MarkPaidRequest{ID: generated.ID, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, payroll.ErrPayrollAlreadyPaid)

	_, err = f.svc.Generate(f.admin, req)
	assert.ErrorIs(t, err, payroll.ErrPayrollAlreadyPaid)

	_, err = f.svc.MarkPaid(f.admin, payroll.MarkPaidRequest{ID: "missing", PaymentMethod: "cash"})
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	date := "2025-04-05"
	other, err := f.svc.Generate(f.admin, payroll.GeneratePayrollRequest{EmployeeID: "emp-bob", Month: 3, Year: 2025})
	require.NoError(t, err)
	paidOn, err := f.svc.MarkPaid(f.admin, payroll.MarkPaidRequest{ID: other.ID, PaymentDate: &date, PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Equal(t, date, *paidOn.PaymentDate)
}

func TestPayrollService_Documents(t *testing.T) {
	f := newFixture(t)
	f.seedDay(t, 10, time.March, 510, nil)

	sheet, err := f.svc.ExportBreakdown(f.alice, march("emp-alice"))
	require.NoError(t, err)
	assert.Equal(t, export.ContentTypeXLSX, sheet.ContentType)
	assert.Equal(t, "breakdown-emp-alice-2025-03.xlsx", sheet.Filename)
	assert.NotEmpty(t, sheet.Content)

	_, err = f.svc.Payslip(f.alice, march("emp-alice"))
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)

	_, err = f.svc.Generate(f.admin, payroll.GeneratePayrollRequest{EmployeeID: "emp-alice", Month: 3, Year: 2025})
	require.NoError(t, err)

	slip, err := f.svc.Payslip(f.alice, march("emp-alice"))
	require.NoError(t, err)
	assert.Equal(t, export.ContentTypePDF, slip.ContentType)
	assert.True(t, bytes.HasPrefix(slip.Content, []byte("%PDF-")))

	_, err = f.svc.Payslip(f.bob, march("emp-alice"))
	assert.ErrorIs(t, err, user.ErrForbidden)
}
