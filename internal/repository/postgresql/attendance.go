package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewAttendanceRepository returns a repository that keys dates in loc.
func NewAttendanceRepository(db *database.DB, loc *time.Location) attendance.AttendanceRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceRepository{db: db, loc: loc}
}

const attendanceColumns = `
	a.id, a.employee_id, a.date,
	a.check_in_time, a.check_in_status, a.check_in_remarks,
	a.check_out_time, a.check_out_status, a.check_out_remarks,
	a.half_day_requested, a.half_day_type, a.half_day_reason, a.half_day_attachment, a.half_day_status,
	a.leave_requested, a.leave_reason, a.leave_attachment, a.leave_status,
	a.status, a.focus, a.status_override, a.duration_minutes, a.location, a.admin_remarks,
	a.action_log, a.version, a.created_at, a.updated_at,
	e.full_name, e.email`

func (a *attendanceRepository) scan(row pgx.Row) (attendance.Attendance, error) {
	var att attendance.Attendance
	var date time.Time
	var actionLog []byte
	err := row.Scan(
		&att.ID, &att.EmployeeID, &date,
		&att.CheckIn.Time, &att.CheckIn.Status, &att.CheckIn.Remarks,
		&att.CheckOut.Time, &att.CheckOut.Status, &att.CheckOut.Remarks,
		&att.HalfDay.IsRequested, &att.HalfDay.Type, &att.HalfDay.Reason, &att.HalfDay.Attachment, &att.HalfDay.Status,
		&att.Leave.IsRequested, &att.Leave.Reason, &att.Leave.Attachment, &att.Leave.Status,
		&att.Status, &att.Focus, &att.StatusOverride, &att.DurationMinutes, &att.Location, &att.AdminRemarks,
		&actionLog, &att.Version, &att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName, &att.EmployeeEmail,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}

	att.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, a.loc)
	if len(actionLog) > 0 {
		if err := json.Unmarshal(actionLog, &att.ActionLog); err != nil {
			return attendance.Attendance{}, fmt.Errorf("decode action log: %w", err)
		}
	}
	return att, nil
}

func encodeActionLog(entries []attendance.ActionLogEntry) ([]byte, error) {
	if entries == nil {
		entries = []attendance.ActionLogEntry{}
	}
	return json.Marshal(entries)
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	if newAttendance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		newAttendance.ID = id.String()
	}
	newAttendance.Refresh()

	actionLog, err := encodeActionLog(newAttendance.ActionLog)
	if err != nil {
		return attendance.Attendance{}, err
	}

	query := `
		INSERT INTO attendances (
			id, employee_id, date,
			check_in_time, check_in_status, check_in_remarks,
			check_out_time, check_out_status, check_out_remarks,
			half_day_requested, half_day_type, half_day_reason, half_day_attachment, half_day_status,
			leave_requested, leave_reason, leave_attachment, leave_status,
			status, focus, status_override, duration_minutes, location, admin_remarks,
			action_log, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, 1, $26, $27
		)
		ON CONFLICT (employee_id, date) DO NOTHING
		RETURNING version
	`

	n := newAttendance
	err = q.QueryRow(ctx, query,
		n.ID, n.EmployeeID, n.Date.Format("2006-01-02"),
		n.CheckIn.Time, n.CheckIn.Status, n.CheckIn.Remarks,
		n.CheckOut.Time, n.CheckOut.Status, n.CheckOut.Remarks,
		n.HalfDay.IsRequested, n.HalfDay.Type, n.HalfDay.Reason, n.HalfDay.Attachment, n.HalfDay.Status,
		n.Leave.IsRequested, n.Leave.Reason, n.Leave.Attachment, n.Leave.Status,
		n.Status, n.Focus, n.StatusOverride, n.DurationMinutes, n.Location, n.AdminRemarks,
		actionLog, n.CreatedAt, n.UpdatedAt,
	).Scan(&newAttendance.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrRecordExists
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances a
		JOIN employees e ON a.employee_id = e.id
		WHERE a.id = $1`

	att, err := a.scan(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrRecordNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}
	return att, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances a
		JOIN employees e ON a.employee_id = e.id
		WHERE a.employee_id = $1 AND a.date = $2`

	att, err := a.scan(q.QueryRow(ctx, query, employeeID, date.Format("2006-01-02")))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}
	return &att, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	att.Refresh()
	actionLog, err := encodeActionLog(att.ActionLog)
	if err != nil {
		return attendance.Attendance{}, err
	}

	query := `
		UPDATE attendances SET
			check_in_time = $3, check_in_status = $4, check_in_remarks = $5,
			check_out_time = $6, check_out_status = $7, check_out_remarks = $8,
			half_day_requested = $9, half_day_type = $10, half_day_reason = $11,
			half_day_attachment = $12, half_day_status = $13,
			leave_requested = $14, leave_reason = $15, leave_attachment = $16, leave_status = $17,
			status = $18, focus = $19, status_override = $20, duration_minutes = $21,
			location = $22, admin_remarks = $23, action_log = $24, updated_at = $25,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	err = q.QueryRow(ctx, query,
		att.ID, att.Version,
		att.CheckIn.Time, att.CheckIn.Status, att.CheckIn.Remarks,
		att.CheckOut.Time, att.CheckOut.Status, att.CheckOut.Remarks,
		att.HalfDay.IsRequested, att.HalfDay.Type, att.HalfDay.Reason,
		att.HalfDay.Attachment, att.HalfDay.Status,
		att.Leave.IsRequested, att.Leave.Reason, att.Leave.Attachment, att.Leave.Status,
		att.Status, att.Focus, att.StatusOverride, att.DurationMinutes,
		att.Location, att.AdminRemarks, actionLog, att.UpdatedAt,
	).Scan(&att.Version)
	if err == nil {
		return att, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM attendances WHERE id = $1)`, att.ID).Scan(&exists); err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to check attendance existence: %w", err)
	}
	if !exists {
		return attendance.Attendance{}, attendance.ErrRecordNotFound
	}
	return attendance.Attendance{}, attendance.ErrVersionConflict
}

// Delete implements attendance.AttendanceRepository.
func (a *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, a.db)

	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	countQuery := `SELECT COUNT(*) FROM attendances a WHERE ` + baseWhere
	var totalCount int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM attendances a
		JOIN employees e ON a.employee_id = e.id
		WHERE %s
		ORDER BY a.date DESC, a.created_at DESC
		LIMIT $%d OFFSET $%d`, attendanceColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	attendances := []attendance.Attendance{}
	for rows.Next() {
		att, err := a.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, totalCount, nil
}

// ListByEmployeeBetween implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances a
		JOIN employees e ON a.employee_id = e.id
		WHERE a.employee_id = $1 AND a.date >= $2 AND a.date <= $3
		ORDER BY a.date ASC`

	rows, err := q.Query(ctx, query, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances for employee: %w", err)
	}
	defer rows.Close()

	attendances := []attendance.Attendance{}
	for rows.Next() {
		att, err := a.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return attendances, nil
}
