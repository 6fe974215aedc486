package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayrollRepository_UpsertAndPay(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	emp := seedEmployee(t, ctx, postgresql.NewEmployeeRepository(setup.DB), "budi")

	none, err := repo.GetByEmployeePeriod(ctx, emp.ID, 1, 2026)
	require.NoError(t, err)
	assert.Nil(t, none)

	record := payroll.PayrollRecord{
		EmployeeID:          emp.ID,
		Month:               1,
		Year:                2026,
		BaseSalary:          decimal.NewFromInt(15000),
		HourlyRate:          decimal.RequireFromString("62.5"),
		TotalDays:           30,
		PresentDays:         1,
		TotalHours:          decimal.RequireFromString("8.5"),
		CalculatedWithHours: decimal.NewFromInt(531),
		Bonus:               decimal.NewFromInt(1000),
		Deductions:          decimal.NewFromInt(200),
		NetSalary:           decimal.NewFromInt(1331),
		Status:              payroll.PayrollStatusGenerated,
		GeneratedBy:         "admin-1",
		GeneratedAt:         time.Now().UTC(),
	}

	first, err := repo.Upsert(ctx, record)
	require.NoError(t, err)

	record.Bonus = decimal.Zero
	record.NetSalary = decimal.NewFromInt(331)
	second, err := repo.Upsert(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one record per period")
	assert.True(t, decimal.NewFromInt(331).Equal(second.NetSalary))

	paid, err := repo.MarkPaid(ctx, first.ID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "Bank Transfer")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid())
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, "2026-02-01", paid.PaymentDate.Format("2006-01-02"))

	_, err = repo.MarkPaid(ctx, first.ID, time.Now(), "Cash")
	assert.ErrorIs(t, err, payroll.ErrPayrollAlreadyPaid)

	_, err = repo.Upsert(ctx, record)
	assert.ErrorIs(t, err, payroll.ErrPayrollAlreadyPaid)

	_, err = repo.MarkPaid(ctx, "00000000-0000-0000-0000-000000000000", time.Now(), "Cash")
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)
}
