package attendance

import (
	"errors"
)

// Attendance domain errors
var (
	// Request intake conflicts
	ErrAlreadyCheckedIn      = errors.New("you have already checked in today")
	ErrNotCheckedIn          = errors.New("you have not checked in yet")
	ErrAlreadyCheckedOut     = errors.New("you have already checked out")
	ErrRequestAlreadyPending = errors.New("a request of this kind is already pending")

	// General errors
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrRecordExists    = errors.New("attendance record already exists for this employee and date")
	ErrVersionConflict = errors.New("attendance record was modified concurrently")

	// Supporting documents
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// ConflictError is a state-machine rejection. It carries a snapshot of the
// record as it was when the request was refused; Record is nil when the
// employee has no record for the day.
type ConflictError struct {
	Err    error
	Record *Attendance
}

func NewConflict(err error, record *Attendance) *ConflictError {
	c := &ConflictError{Err: err}
	if record != nil {
		snapshot := record.Clone()
		c.Record = &snapshot
	}
	return c
}

func (e *ConflictError) Error() string {
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// Code is a stable identifier for clients.
func (e *ConflictError) Code() string {
	switch {
	case errors.Is(e.Err, ErrAlreadyCheckedIn):
		return "ALREADY_CHECKED_IN"
	case errors.Is(e.Err, ErrAlreadyCheckedOut):
		return "ALREADY_CHECKED_OUT"
	case errors.Is(e.Err, ErrNotCheckedIn):
		return "NOT_CHECKED_IN"
	case errors.Is(e.Err, ErrRequestAlreadyPending):
		return "REQUEST_ALREADY_PENDING"
	default:
		return "CONFLICT"
	}
}

// Details reports the current status of each sub-request.
func (e *ConflictError) Details() map[string]string {
	if e.Record == nil {
		return map[string]string{"record": "none"}
	}
	r := e.Record
	details := map[string]string{
		"status":    string(r.Status),
		"check_in":  statusText(r.CheckIn.Status),
		"check_out": statusText(r.CheckOut.Status),
		"half_day":  "none",
		"leave":     "none",
	}
	if r.HalfDay.IsRequested {
		details["half_day"] = statusText(r.HalfDay.Status)
	}
	if r.Leave.IsRequested {
		details["leave"] = statusText(r.Leave.Status)
	}
	return details
}

func statusText(s *RequestStatus) string {
	if s == nil {
		return "none"
	}
	return string(*s)
}
