package attendance

import (
	"time"
)

// RequestStatus is the lifecycle of one employee request. A nil *RequestStatus
// means no request was made, which is distinct from Rejected.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestRejected RequestStatus = "Rejected"
)

// RequestKind names the four independent request machines on a record.
type RequestKind string

const (
	KindCheckIn  RequestKind = "check_in"
	KindCheckOut RequestKind = "check_out"
	KindHalfDay  RequestKind = "half_day"
	KindLeave    RequestKind = "leave"
)

type HalfDayType string

const (
	FirstHalf  HalfDayType = "First Half"
	SecondHalf HalfDayType = "Second Half"
)

// Status is the derived, human-readable label of a record.
type Status string

const (
	StatusAbsent          Status = "Absent"
	StatusPresent         Status = "Present"
	StatusHalfDay         Status = "Half Day"
	StatusOnLeave         Status = "On Leave"
	StatusPendingCheckIn  Status = "Pending Check-In"
	StatusPendingCheckOut Status = "Pending Check-Out"
	StatusPendingHalfDay  Status = "Pending Half-Day"
	StatusPendingLeave    Status = "Pending Leave"
	StatusCheckedOut      Status = "Checked-Out"
	StatusRejected        Status = "Rejected"
	StatusHoliday         Status = "Holiday"
)

// AllStatuses lists every label a record can carry.
func AllStatuses() []Status {
	return []Status{
		StatusAbsent,
		StatusPresent,
		StatusHalfDay,
		StatusOnLeave,
		StatusPendingCheckIn,
		StatusPendingCheckOut,
		StatusPendingHalfDay,
		StatusPendingLeave,
		StatusCheckedOut,
		StatusRejected,
		StatusHoliday,
	}
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

const (
	// HalfDayMinutes is credited when a half-day is approved.
	HalfDayMinutes = 240
	// ManualUpdateAction is logged for every manual correction.
	ManualUpdateAction = "Manual Update"
)

// Punch is a check-in or check-out request.
type Punch struct {
	Time    *time.Time
	Status  *RequestStatus
	Remarks *string
}

type HalfDayRequest struct {
	IsRequested bool
	Type        *HalfDayType
	Reason      *string
	Attachment  *string
	Status      *RequestStatus
}

type LeaveRequest struct {
	IsRequested bool
	Reason      *string
	Attachment  *string
	Status      *RequestStatus
}

type ActionLogEntry struct {
	Action    string    `json:"action"`
	Admin     string    `json:"admin"`
	Timestamp time.Time `json:"timestamp"`
}

// Attendance is the single record for one employee on one calendar day.
type Attendance struct {
	ID              string
	EmployeeID      string
	Date            time.Time
	CheckIn         Punch
	CheckOut        Punch
	HalfDay         HalfDayRequest
	Leave           LeaveRequest
	Status          Status
	Focus           *RequestKind
	StatusOverride  *Status
	DurationMinutes int
	Location        *string
	AdminRemarks    *string
	ActionLog       []ActionLogEntry
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Joined fields
	EmployeeName  *string
	EmployeeEmail *string
}

// New starts an empty record for employeeID on date. It is only persisted
// once a request has been applied to it.
func New(employeeID string, date time.Time, now time.Time) Attendance {
	return Attendance{
		EmployeeID: employeeID,
		Date:       date,
		Status:     StatusAbsent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsNew reports whether the record has not been stored yet.
func (a Attendance) IsNew() bool {
	return a.ID == ""
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a Attendance) Clone() Attendance {
	c := a
	c.CheckIn = a.CheckIn.clone()
	c.CheckOut = a.CheckOut.clone()
	c.HalfDay = HalfDayRequest{
		IsRequested: a.HalfDay.IsRequested,
		Type:        clonePtr(a.HalfDay.Type),
		Reason:      clonePtr(a.HalfDay.Reason),
		Attachment:  clonePtr(a.HalfDay.Attachment),
		Status:      clonePtr(a.HalfDay.Status),
	}
	c.Leave = LeaveRequest{
		IsRequested: a.Leave.IsRequested,
		Reason:      clonePtr(a.Leave.Reason),
		Attachment:  clonePtr(a.Leave.Attachment),
		Status:      clonePtr(a.Leave.Status),
	}
	c.Focus = clonePtr(a.Focus)
	c.StatusOverride = clonePtr(a.StatusOverride)
	c.Location = clonePtr(a.Location)
	c.AdminRemarks = clonePtr(a.AdminRemarks)
	c.EmployeeName = clonePtr(a.EmployeeName)
	c.EmployeeEmail = clonePtr(a.EmployeeEmail)
	if a.ActionLog != nil {
		c.ActionLog = make([]ActionLogEntry, len(a.ActionLog))
		copy(c.ActionLog, a.ActionLog)
	}
	return c
}

func (p Punch) clone() Punch {
	return Punch{Time: clonePtr(p.Time), Status: clonePtr(p.Status), Remarks: clonePtr(p.Remarks)}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T {
	return &v
}

// is reports whether s is set and equal to want.
func is(s *RequestStatus, want RequestStatus) bool {
	return s != nil && *s == want
}
