package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/google/uuid"
)

type payrollKey struct {
	employeeID string
	month      int
	year       int
}

type payrollRepository struct {
	mu        sync.RWMutex
	records   map[string]payroll.PayrollRecord
	byPeriod  map[payrollKey]string
	employees *EmployeeRepository
	now       func() time.Time
}

func NewPayrollRepository(employees *EmployeeRepository) payroll.PayrollRepository {
	return &payrollRepository{
		records:   make(map[string]payroll.PayrollRecord),
		byPeriod:  make(map[payrollKey]string),
		employees: employees,
		now:       time.Now,
	}
}

func (r *payrollRepository) withEmployee(rec payroll.PayrollRecord) payroll.PayrollRecord {
	if r.employees != nil {
		rec.EmployeeName, rec.EmployeeEmail = r.employees.names(rec.EmployeeID)
	}
	if rec.PaymentDate != nil {
		d := *rec.PaymentDate
		rec.PaymentDate = &d
	}
	if rec.PaymentMethod != nil {
		m := *rec.PaymentMethod
		rec.PaymentMethod = &m
	}
	return rec
}

// Upsert implements payroll.PayrollRepository.
func (r *payrollRepository) Upsert(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := payrollKey{record.EmployeeID, record.Month, record.Year}
	now := r.now()

	if id, ok := r.byPeriod[key]; ok {
		existing := r.records[id]
		if existing.IsPaid() {
			return payroll.PayrollRecord{}, payroll.ErrPayrollAlreadyPaid
		}
		record.ID = existing.ID
		record.Status = existing.Status
		record.GeneratedBy = existing.GeneratedBy
		record.PaymentDate = existing.PaymentDate
		record.PaymentMethod = existing.PaymentMethod
		record.CreatedAt = existing.CreatedAt
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.PayrollRecord{}, err
		}
		record.ID = id.String()
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.EmployeeName, record.EmployeeEmail = nil, nil

	r.records[record.ID] = record
	r.byPeriod[key] = record.ID
	return r.withEmployee(record), nil
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return r.withEmployee(rec), nil
}

// GetByEmployeePeriod implements payroll.PayrollRepository.
func (r *payrollRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*payroll.PayrollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPeriod[payrollKey{employeeID, month, year}]
	if !ok {
		return nil, nil
	}
	rec := r.withEmployee(r.records[id])
	return &rec, nil
}

// MarkPaid implements payroll.PayrollRepository.
func (r *payrollRepository) MarkPaid(ctx context.Context, id string, paymentDate time.Time, paymentMethod string) (payroll.PayrollRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	if rec.IsPaid() {
		return payroll.PayrollRecord{}, payroll.ErrPayrollAlreadyPaid
	}

	rec.Status = payroll.PayrollStatusPaid
	rec.PaymentDate = &paymentDate
	rec.PaymentMethod = &paymentMethod
	rec.UpdatedAt = r.now()
	r.records[id] = rec
	return r.withEmployee(rec), nil
}
