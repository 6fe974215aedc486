package attendance

import (
	"math"
	"time"
)

// Action is an admin decision on one of the record's requests.
type Action string

const (
	ActionApproveCheckIn  Action = "approve_checkin"
	ActionRejectCheckIn   Action = "reject_checkin"
	ActionApproveCheckOut Action = "approve_checkout"
	ActionRejectCheckOut  Action = "reject_checkout"
	ActionApproveHalfDay  Action = "approve_halfday"
	ActionRejectHalfDay   Action = "reject_halfday"
	ActionApproveLeave    Action = "approve_leave"
	ActionRejectLeave     Action = "reject_leave"
)

// AllActions lists the recognized decisions.
func AllActions() []Action {
	return []Action{
		ActionApproveCheckIn,
		ActionRejectCheckIn,
		ActionApproveCheckOut,
		ActionRejectCheckOut,
		ActionApproveHalfDay,
		ActionRejectHalfDay,
		ActionApproveLeave,
		ActionRejectLeave,
	}
}

func (a Action) Known() bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}

// ApplyAction records an admin decision. Decisions do not require the
// target request to be Pending. An unrecognized action leaves every
// sub-request untouched but is still appended to the action log.
func (a *Attendance) ApplyAction(action Action, admin string, at time.Time, remarks *string) {
	switch action {
	case ActionApproveCheckIn:
		a.CheckIn.Status = ptr(RequestApproved)
		a.focus(KindCheckIn)
	case ActionRejectCheckIn:
		a.CheckIn.Status = ptr(RequestRejected)
		a.focus(KindCheckIn)
	case ActionApproveCheckOut:
		a.CheckOut.Status = ptr(RequestApproved)
		a.focus(KindCheckOut)
		if a.CheckIn.Time != nil && a.CheckOut.Time != nil {
			a.DurationMinutes = MinutesBetween(*a.CheckIn.Time, *a.CheckOut.Time)
		}
	case ActionRejectCheckOut:
		a.CheckOut.Status = ptr(RequestRejected)
		a.focus(KindCheckOut)
	case ActionApproveHalfDay:
		a.HalfDay.Status = ptr(RequestApproved)
		a.DurationMinutes = HalfDayMinutes
		a.focus(KindHalfDay)
	case ActionRejectHalfDay:
		a.HalfDay.Status = ptr(RequestRejected)
		a.focus(KindHalfDay)
	case ActionApproveLeave:
		a.Leave.Status = ptr(RequestApproved)
		a.DurationMinutes = 0
		a.focus(KindLeave)
	case ActionRejectLeave:
		a.Leave.Status = ptr(RequestRejected)
		a.focus(KindLeave)
	}

	if remarks != nil {
		a.AdminRemarks = ptr(*remarks)
	}
	a.log(string(action), admin, at)
	a.Refresh()
}

// Correction is a manual admin edit. Nil fields are left as they are.
type Correction struct {
	Status       *Status
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	Remarks      *string
}

// Correct applies a manual edit without state-machine checks. Supplied
// times are force-approved and an explicit status pins the label until the
// next request or decision.
func (a *Attendance) Correct(c Correction, admin string, at time.Time) {
	if c.CheckInTime != nil {
		a.CheckIn.Time = ptr(*c.CheckInTime)
		a.CheckIn.Status = ptr(RequestApproved)
		a.Focus = ptr(KindCheckIn)
	}
	if c.CheckOutTime != nil {
		a.CheckOut.Time = ptr(*c.CheckOutTime)
		a.CheckOut.Status = ptr(RequestApproved)
		a.Focus = ptr(KindCheckOut)
	}
	if a.CheckIn.Time != nil && a.CheckOut.Time != nil {
		a.DurationMinutes = MinutesBetween(*a.CheckIn.Time, *a.CheckOut.Time)
	}
	if c.Status != nil {
		a.StatusOverride = ptr(*c.Status)
	}
	if c.Remarks != nil {
		a.AdminRemarks = ptr(*c.Remarks)
	}
	a.log(ManualUpdateAction, admin, at)
	a.Refresh()
}

// MinutesBetween returns |t1-t0| in whole minutes, rounded half away from zero.
func MinutesBetween(t0, t1 time.Time) int {
	return int(math.Round(math.Abs(t1.Sub(t0).Minutes())))
}

func (a *Attendance) log(action, admin string, at time.Time) {
	a.ActionLog = append(a.ActionLog, ActionLogEntry{Action: action, Admin: admin, Timestamp: at})
	a.UpdatedAt = at
}
