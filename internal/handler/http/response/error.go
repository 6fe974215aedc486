package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// State-machine rejections carry the record as it stood
	var conflict *attendance.ConflictError
	if errors.As(err, &conflict) {
		var data interface{}
		if conflict.Record != nil {
			data = attendance.NewAttendanceResponse(*conflict.Record)
		}
		AttendanceConflict(w, conflict.Code(), conflict.Error(), conflict.Details(), data)
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingClaims),
		errors.Is(err, auth.ErrUnsupportedToken),
		errors.Is(err, user.ErrUnauthenticated):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrForbidden),
		errors.Is(err, user.ErrAdminPrivilegeRequired),
		errors.Is(err, user.ErrEmployeeProfileRequired):
		Forbidden(w, err.Error())

	// Attendance
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrAttachmentNotFound):
		NotFound(w, "Attachment not found")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)

	// Employee
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Payroll
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrPayrollAlreadyPaid):
		Conflict(w, "Payroll record already paid")

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
