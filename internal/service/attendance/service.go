package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime/multipart"
	"path"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-payroll/internal/service/file"
)

// maxWriteAttempts bounds the read-modify-write loop on version conflicts.
const maxWriteAttempts = 3

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	employeeRepo employee.EmployeeRepository
	fileService file.FileService
	notifier    notification.Service
	clock       clock.Clock
	logger      *slog.Logger
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	fileService file.FileService,
	notifier notification.Service,
	clk clock.Clock,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		employeeRepo:         employeeRepo,
		fileService:          fileService,
		notifier:             notifier,
		clock:                clk,
		logger:               slog.Default().With("service", "attendance"),
	}
}

// requestingEmployee resolves the caller's own employee profile.
func (s *AttendanceServiceImpl) requestingEmployee(ctx context.Context) (user.Actor, employee.Employee, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, employee.Employee{}, err
	}
	if actor.EmployeeID == "" {
		return user.Actor{}, employee.Employee{}, user.ErrEmployeeProfileRequired
	}
	emp, err := s.employeeRepo.GetByID(ctx, actor.EmployeeID)
	if err != nil {
		return user.Actor{}, employee.Employee{}, err
	}
	return actor, emp, nil
}

func (s *AttendanceServiceImpl) requireAdmin(ctx context.Context) (user.Actor, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	if !actor.IsAdmin() {
		return user.Actor{}, user.ErrForbidden
	}
	return actor, nil
}

// mutateToday applies fn to the employee's record for today, creating it
// when absent. fn re-runs against fresh state after a lost race.
func (s *AttendanceServiceImpl) mutateToday(ctx context.Context, employeeID string, fn func(rec *attendance.Attendance, now time.Time) error) (attendance.Attendance, error) {
	today := clock.Today(s.clock)

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		now := s.clock.Now()

		current, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, today)
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to load today's attendance: %w", err)
		}

		if current == nil {
			rec := attendance.New(employeeID, today, now)
			if err := fn(&rec, now); err != nil {
				var conflict *attendance.ConflictError
				if errors.As(err, &conflict) {
					// Nothing was stored, so there is no record to report.
					return attendance.Attendance{}, attendance.NewConflict(conflict.Err, nil)
				}
				return attendance.Attendance{}, err
			}
			created, err := s.AttendanceRepository.Create(ctx, rec)
			if errors.Is(err, attendance.ErrRecordExists) {
				s.logger.Debug("lost create race, retrying", "employee_id", employeeID, "attempt", attempt)
				continue
			}
			if err != nil {
				return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
			}
			return created, nil
		}

		rec := current.Clone()
		if err := fn(&rec, now); err != nil {
			return attendance.Attendance{}, err
		}
		updated, err := s.AttendanceRepository.Update(ctx, rec)
		if errors.Is(err, attendance.ErrVersionConflict) || errors.Is(err, attendance.ErrRecordNotFound) {
			s.logger.Debug("stale attendance write, retrying", "employee_id", employeeID, "attempt", attempt)
			continue
		}
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to update attendance: %w", err)
		}
		return updated, nil
	}

	return attendance.Attendance{}, fmt.Errorf("failed to write attendance after %d attempts: %w", maxWriteAttempts, attendance.ErrVersionConflict)
}

// mutateByID is the admin counterpart of mutateToday for an existing record.
func (s *AttendanceServiceImpl) mutateByID(ctx context.Context, id string, fn func(rec *attendance.Attendance, now time.Time) error) (attendance.Attendance, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := s.AttendanceRepository.GetByID(ctx, id)
		if err != nil {
			return attendance.Attendance{}, err
		}

		rec := current.Clone()
		if err := fn(&rec, s.clock.Now()); err != nil {
			return attendance.Attendance{}, err
		}
		updated, err := s.AttendanceRepository.Update(ctx, rec)
		if errors.Is(err, attendance.ErrVersionConflict) {
			s.logger.Debug("stale attendance write, retrying", "attendance_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return attendance.Attendance{}, err
		}
		return updated, nil
	}

	return attendance.Attendance{}, fmt.Errorf("failed to write attendance after %d attempts: %w", maxWriteAttempts, attendance.ErrVersionConflict)
}

// RequestCheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RequestCheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, emp, err := s.requestingEmployee(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := s.mutateToday(ctx, emp.ID, func(rec *attendance.Attendance, now time.Time) error {
		return rec.RequestCheckIn(now, req.Location, req.Remarks)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.logger.Info("check-in requested", "employee_id", emp.ID, "attendance_id", rec.ID)
	s.notifyRequested(ctx, actor, emp, rec, "check-in")
	return attendance.NewAttendanceResponse(rec), nil
}

// RequestCheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RequestCheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, emp, err := s.requestingEmployee(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := s.mutateToday(ctx, emp.ID, func(rec *attendance.Attendance, now time.Time) error {
		return rec.RequestCheckOut(now, req.Remarks)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.logger.Info("check-out requested", "employee_id", emp.ID, "attendance_id", rec.ID)
	s.notifyRequested(ctx, actor, emp, rec, "check-out")
	return attendance.NewAttendanceResponse(rec), nil
}

// RequestHalfDay implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RequestHalfDay(ctx context.Context, req attendance.CreateHalfDayRequest) (attendance.AttendanceResponse, error) {
	defer closeUpload(req.File)
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, emp, err := s.requestingEmployee(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	attachment, err := s.storeAttachment(ctx, emp.ID, attendance.KindHalfDay, req.File, req.FileHeader)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var replaced *string
	rec, err := s.mutateToday(ctx, emp.ID, func(rec *attendance.Attendance, now time.Time) error {
		replaced = rec.HalfDay.Attachment
		return rec.RequestHalfDay(now, attendance.HalfDayType(req.Type), req.Reason, attachment)
	})
	if err != nil {
		s.discardAttachment(ctx, attachment)
		return attendance.AttendanceResponse{}, err
	}
	s.discardReplaced(ctx, replaced, attachment)

	s.logger.Info("half-day requested", "employee_id", emp.ID, "attendance_id", rec.ID, "type", req.Type)
	s.notifyRequested(ctx, actor, emp, rec, "half-day")
	return attendance.NewAttendanceResponse(rec), nil
}

// RequestLeave implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RequestLeave(ctx context.Context, req attendance.CreateLeaveRequest) (attendance.AttendanceResponse, error) {
	defer closeUpload(req.File)
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, emp, err := s.requestingEmployee(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	attachment, err := s.storeAttachment(ctx, emp.ID, attendance.KindLeave, req.File, req.FileHeader)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var replaced *string
	rec, err := s.mutateToday(ctx, emp.ID, func(rec *attendance.Attendance, now time.Time) error {
		replaced = rec.Leave.Attachment
		return rec.RequestLeave(now, req.Reason, attachment)
	})
	if err != nil {
		s.discardAttachment(ctx, attachment)
		return attendance.AttendanceResponse{}, err
	}
	s.discardReplaced(ctx, replaced, attachment)

	s.logger.Info("leave requested", "employee_id", emp.ID, "attendance_id", rec.ID)
	s.notifyRequested(ctx, actor, emp, rec, "leave")
	return attendance.NewAttendanceResponse(rec), nil
}

// ApplyAction implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ApplyAction(ctx context.Context, req attendance.ActionRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	action := attendance.Action(req.Action)
	if !action.Known() {
		s.logger.Warn("unrecognized attendance action, logging only", "attendance_id", req.ID, "action", req.Action)
	}

	rec, err := s.mutateByID(ctx, req.ID, func(rec *attendance.Attendance, now time.Time) error {
		rec.ApplyAction(action, actor.UserID, now, req.Remarks)
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.logger.Info("attendance action applied",
		"attendance_id", rec.ID, "action", req.Action, "admin", actor.UserID, "status", rec.Status)
	s.notify(ctx, notification.Notification{
		Type:        notification.TypeAttendanceDecided,
		RecipientID: rec.EmployeeID,
		ActorID:     actor.UserID,
		Title:       "Attendance request reviewed",
		Message:     fmt.Sprintf("%s on %s: %s", req.Action, rec.Date.Format("2006-01-02"), rec.Status),
		Data:        recordData(rec),
	})
	return attendance.NewAttendanceResponse(rec), nil
}

// SetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) SetAttendance(ctx context.Context, req attendance.UpdateAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := s.mutateByID(ctx, req.ID, func(rec *attendance.Attendance, now time.Time) error {
		correction := attendance.Correction{Remarks: req.Remarks}
		if req.Status != nil {
			status := attendance.Status(*req.Status)
			correction.Status = &status
		}
		if req.CheckInTime != nil {
			t, err := attendance.ParseCorrectionTime(*req.CheckInTime, rec.Date)
			if err != nil {
				return err
			}
			correction.CheckInTime = &t
		}
		if req.CheckOutTime != nil {
			t, err := attendance.ParseCorrectionTime(*req.CheckOutTime, rec.Date)
			if err != nil {
				return err
			}
			correction.CheckOutTime = &t
		}
		rec.Correct(correction, actor.UserID, now)
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.logger.Info("attendance corrected", "attendance_id", rec.ID, "admin", actor.UserID, "status", rec.Status)
	s.notify(ctx, notification.Notification{
		Type:        notification.TypeAttendanceCorrected,
		RecipientID: rec.EmployeeID,
		ActorID:     actor.UserID,
		Title:       "Attendance corrected",
		Message:     fmt.Sprintf("Your attendance on %s was updated to %s", rec.Date.Format("2006-01-02"), rec.Status),
		Data:        recordData(rec),
	})
	return attendance.NewAttendanceResponse(rec), nil
}

// DeleteAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) DeleteAttendance(ctx context.Context, id string) error {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.AttendanceRepository.Delete(ctx, id); err != nil {
		return err
	}

	s.discardAttachment(ctx, rec.HalfDay.Attachment)
	s.discardAttachment(ctx, rec.Leave.Attachment)
	s.logger.Info("attendance deleted", "attendance_id", id, "employee_id", rec.EmployeeID, "admin", actor.UserID)
	return nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(rec), nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	if actor.EmployeeID == "" {
		return attendance.ListAttendanceResponse{}, user.ErrEmployeeProfileRequired
	}

	filter.EmployeeID = &actor.EmployeeID
	return s.list(ctx, filter)
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	return s.list(ctx, filter)
}

// GetAttachment implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttachment(ctx context.Context, id string, kind attendance.RequestKind) (attendance.AttachmentFile, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return attendance.AttachmentFile{}, err
	}
	if kind != attendance.KindHalfDay && kind != attendance.KindLeave {
		var errs validator.ValidationErrors
		errs.Add("kind", "kind must be one of: half_day, leave")
		return attendance.AttachmentFile{}, errs.Err()
	}

	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttachmentFile{}, err
	}
	if !actor.IsAdmin() && actor.EmployeeID != rec.EmployeeID {
		return attendance.AttachmentFile{}, user.ErrForbidden
	}

	p := rec.HalfDay.Attachment
	if kind == attendance.KindLeave {
		p = rec.Leave.Attachment
	}
	if p == nil || *p == "" {
		return attendance.AttachmentFile{}, attendance.ErrAttachmentNotFound
	}

	content, contentType, err := s.fileService.ReadFile(ctx, *p)
	if errors.Is(err, storage.ErrFileNotFound) {
		s.logger.Warn("attachment missing from storage", "attendance_id", id, "path", *p)
		return attendance.AttachmentFile{}, attendance.ErrAttachmentNotFound
	}
	if err != nil {
		return attendance.AttachmentFile{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	return attendance.AttachmentFile{
		Filename:    path.Base(*p),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (s *AttendanceServiceImpl) list(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	attendances, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, attendance.NewAttendanceResponse(att))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", filter.Offset()+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 || len(responses) == 0 {
		showing = fmt.Sprintf("0 of %d", total)
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// ==================== HELPERS ====================

// storeAttachment uploads optional supporting evidence before the record is
// written. A nil file stores nothing.
func (s *AttendanceServiceImpl) storeAttachment(ctx context.Context, employeeID string, kind attendance.RequestKind, f multipart.File, header *multipart.FileHeader) (*string, error) {
	if f == nil || header == nil {
		return nil, nil
	}

	p, err := s.fileService.UploadAttendanceAttachment(ctx, employeeID, clock.Today(s.clock), string(kind), f, header.Filename)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// discardAttachment removes an orphaned upload. Failures are only logged.
func (s *AttendanceServiceImpl) discardAttachment(ctx context.Context, p *string) {
	if p == nil || *p == "" {
		return
	}
	if err := s.fileService.DeleteFile(ctx, *p); err != nil {
		s.logger.Warn("failed to delete attachment", "path", *p, "error", err)
	}
}

// discardReplaced removes the attachment a re-request has overwritten.
func (s *AttendanceServiceImpl) discardReplaced(ctx context.Context, previous, current *string) {
	if previous == nil || (current != nil && *previous == *current) {
		return
	}
	s.discardAttachment(ctx, previous)
}

func closeUpload(f multipart.File) {
	if f != nil {
		_ = f.Close()
	}
}

func (s *AttendanceServiceImpl) notifyRequested(ctx context.Context, actor user.Actor, emp employee.Employee, rec attendance.Attendance, kind string) {
	s.notify(ctx, notification.Notification{
		Type:        notification.TypeAttendanceRequested,
		RecipientID: notification.RecipientAdmins,
		ActorID:     actor.UserID,
		Title:       "New attendance request",
		Message:     fmt.Sprintf("%s requested %s for %s", emp.FullName, kind, rec.Date.Format("2006-01-02")),
		Data:        recordData(rec),
	})
}

func (s *AttendanceServiceImpl) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Queue(ctx, n)
}

func recordData(rec attendance.Attendance) map[string]interface{} {
	return map[string]interface{}{
		"attendance_id": rec.ID,
		"employee_id":   rec.EmployeeID,
		"date":          rec.Date.Format("2006-01-02"),
		"status":        string(rec.Status),
	}
}
