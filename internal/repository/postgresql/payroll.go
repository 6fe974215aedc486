package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollColumns = `
	pr.id, pr.employee_id, pr.month, pr.year, pr.base_salary, pr.hourly_rate,
	pr.total_days, pr.present_days, pr.total_hours, pr.calculated_with_hours,
	pr.bonus, pr.deductions, pr.net_salary, pr.status, pr.generated_by, pr.generated_at,
	pr.payment_date, pr.payment_method, pr.created_at, pr.updated_at`

func scanPayrollRecord(row pgx.Row, extra ...any) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	dest := []any{
		&rec.ID, &rec.EmployeeID, &rec.Month, &rec.Year, &rec.BaseSalary, &rec.HourlyRate,
		&rec.TotalDays, &rec.PresentDays, &rec.TotalHours, &rec.CalculatedWithHours,
		&rec.Bonus, &rec.Deductions, &rec.NetSalary, &rec.Status, &rec.GeneratedBy, &rec.GeneratedAt,
		&rec.PaymentDate, &rec.PaymentMethod, &rec.CreatedAt, &rec.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return rec, err
}

// Upsert implements payroll.PayrollRepository.
func (r *payrollRepository) Upsert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to generate payroll id: %w", err)
	}

	// The WHERE on the conflict branch leaves Paid records untouched, in which
	// case nothing is returned.
	query := `
		INSERT INTO payroll_records AS pr (
			id, employee_id, month, year, base_salary, hourly_rate,
			total_days, present_days, total_hours, calculated_with_hours,
			bonus, deductions, net_salary, status, generated_by, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (employee_id, month, year) DO UPDATE SET
			base_salary = EXCLUDED.base_salary,
			hourly_rate = EXCLUDED.hourly_rate,
			total_days = EXCLUDED.total_days,
			present_days = EXCLUDED.present_days,
			total_hours = EXCLUDED.total_hours,
			calculated_with_hours = EXCLUDED.calculated_with_hours,
			bonus = EXCLUDED.bonus,
			deductions = EXCLUDED.deductions,
			net_salary = EXCLUDED.net_salary,
			generated_at = EXCLUDED.generated_at,
			updated_at = NOW()
		WHERE pr.status <> 'Paid'
		RETURNING ` + payrollColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query,
		id.String(), record.EmployeeID, record.Month, record.Year, record.BaseSalary, record.HourlyRate,
		record.TotalDays, record.PresentDays, record.TotalHours, record.CalculatedWithHours,
		record.Bonus, record.Deductions, record.NetSalary, record.Status, record.GeneratedBy, record.GeneratedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollAlreadyPaid
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to upsert payroll record: %w", err)
	}

	return rec, nil
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollColumns + `, e.full_name, e.email
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.id = $1`

	var name, email string
	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id), &name, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	rec.EmployeeName, rec.EmployeeEmail = &name, &email

	return rec, nil
}

// GetByEmployeePeriod implements payroll.PayrollRepository.
func (r *payrollRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollColumns + `, e.full_name, e.email
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.employee_id = $1 AND pr.month = $2 AND pr.year = $3`

	var name, email string
	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, employeeID, month, year), &name, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payroll record: %w", err)
	}
	rec.EmployeeName, rec.EmployeeEmail = &name, &email

	return &rec, nil
}

// MarkPaid implements payroll.PayrollRepository.
func (r *payrollRepository) MarkPaid(ctx context.Context, id string, paymentDate time.Time, paymentMethod string) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_records AS pr
		SET status = 'Paid', payment_date = $2, payment_method = $3, updated_at = NOW()
		WHERE pr.id = $1 AND pr.status <> 'Paid'
		RETURNING ` + payrollColumns

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, id, paymentDate.Format("2006-01-02"), paymentMethod))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payroll.PayrollRecord{}, fmt.Errorf("failed to mark payroll record paid: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return payroll.PayrollRecord{}, err
	}
	return payroll.PayrollRecord{}, payroll.ErrPayrollAlreadyPaid
}
