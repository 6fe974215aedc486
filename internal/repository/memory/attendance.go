package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/google/uuid"
)

type attendanceRepository struct {
	mu        sync.RWMutex
	records   map[string]attendance.Attendance
	byDay     map[string]string // employeeID|date -> id
	employees *EmployeeRepository
}

// NewAttendanceRepository returns a mutex-guarded store with the same
// uniqueness and versioning rules as the Postgres one. employees supplies
// the joined name and email.
func NewAttendanceRepository(employees *EmployeeRepository) attendance.AttendanceRepository {
	return &attendanceRepository{
		records:   make(map[string]attendance.Attendance),
		byDay:     make(map[string]string),
		employees: employees,
	}
}

func dayKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

// withEmployee returns a detached copy carrying the joined identity.
func (r *attendanceRepository) withEmployee(att attendance.Attendance) attendance.Attendance {
	c := att.Clone()
	if r.employees != nil {
		c.EmployeeName, c.EmployeeEmail = r.employees.names(att.EmployeeID)
	}
	return c
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey(newAttendance.EmployeeID, newAttendance.Date)
	if _, exists := r.byDay[key]; exists {
		return attendance.Attendance{}, attendance.ErrRecordExists
	}

	if newAttendance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Attendance{}, err
		}
		newAttendance.ID = id.String()
	}
	newAttendance.Version = 1
	newAttendance.Refresh()

	stored := newAttendance.Clone()
	stored.EmployeeName, stored.EmployeeEmail = nil, nil
	r.records[stored.ID] = stored
	r.byDay[key] = stored.ID

	return r.withEmployee(stored), nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	att, ok := r.records[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrRecordNotFound
	}
	return r.withEmployee(att), nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDay[dayKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	att := r.withEmployee(r.records[id])
	return &att, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[att.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrRecordNotFound
	}
	if current.Version != att.Version {
		return attendance.Attendance{}, attendance.ErrVersionConflict
	}

	att.Version++
	att.Refresh()
	// Identity columns are immutable.
	att.EmployeeID, att.Date, att.CreatedAt = current.EmployeeID, current.Date, current.CreatedAt

	stored := att.Clone()
	stored.EmployeeName, stored.EmployeeEmail = nil, nil
	r.records[stored.ID] = stored

	return r.withEmployee(stored), nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	att, ok := r.records[id]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	delete(r.records, id)
	delete(r.byDay, dayKey(att.EmployeeID, att.Date))
	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]attendance.Attendance, 0, len(r.records))
	for _, att := range r.records {
		if !matches(att, filter) {
			continue
		}
		matched = append(matched, att)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	page := make([]attendance.Attendance, 0, end-start)
	for _, att := range matched[start:end] {
		page = append(page, r.withEmployee(att))
	}
	return page, total, nil
}

func matches(att attendance.Attendance, filter attendance.AttendanceFilter) bool {
	if filter.EmployeeID != nil && *filter.EmployeeID != "" && att.EmployeeID != *filter.EmployeeID {
		return false
	}
	if filter.Status != nil && *filter.Status != "" && string(att.Status) != *filter.Status {
		return false
	}
	day := att.Date.Format("2006-01-02")
	if filter.StartDate != nil && *filter.StartDate != "" && day < *filter.StartDate {
		return false
	}
	if filter.EndDate != nil && *filter.EndDate != "" && day > *filter.EndDate {
		return false
	}
	return true
}

// ListByEmployeeBetween implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Attendance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	first, last := from.Format("2006-01-02"), to.Format("2006-01-02")
	result := []attendance.Attendance{}
	for _, att := range r.records {
		day := att.Date.Format("2006-01-02")
		if att.EmployeeID != employeeID || day < first || day > last {
			continue
		}
		result = append(result, r.withEmployee(att))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}
