package attendance

import (
	"context"
)

// AttendanceService defines business logic for attendance operations.
// The caller is taken from the access token in ctx.
type AttendanceService interface {
	// RequestCheckIn files today's check-in for the caller
	RequestCheckIn(ctx context.Context, req CheckInRequest) (AttendanceResponse, error)

	// RequestCheckOut files today's check-out for the caller
	RequestCheckOut(ctx context.Context, req CheckOutRequest) (AttendanceResponse, error)

	// RequestHalfDay files or replaces today's half-day request
	RequestHalfDay(ctx context.Context, req CreateHalfDayRequest) (AttendanceResponse, error)

	// RequestLeave files or replaces today's full-day leave request
	RequestLeave(ctx context.Context, req CreateLeaveRequest) (AttendanceResponse, error)

	// ApplyAction approves or rejects a request on a record (admin)
	ApplyAction(ctx context.Context, req ActionRequest) (AttendanceResponse, error)

	// SetAttendance manually corrects a record (admin)
	SetAttendance(ctx context.Context, req UpdateAttendanceRequest) (AttendanceResponse, error)

	// DeleteAttendance hard deletes a record (admin)
	DeleteAttendance(ctx context.Context, id string) error

	// GetAttendance retrieves a single record (admin)
	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// GetMyAttendance lists the caller's records, newest first
	GetMyAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// ListAttendance lists all records with employee identity (admin)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// GetAttachment loads a half-day or leave document (admin or the owner)
	GetAttachment(ctx context.Context, id string, kind RequestKind) (AttachmentFile, error)
}
