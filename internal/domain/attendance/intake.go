package attendance

import "time"

// RequestCheckIn files a pending check-in. A rejected or absent check-in may
// be re-requested.
func (a *Attendance) RequestCheckIn(at time.Time, location, remarks *string) error {
	switch {
	case is(a.CheckIn.Status, RequestApproved):
		return NewConflict(ErrAlreadyCheckedIn, a)
	case is(a.CheckIn.Status, RequestPending):
		return NewConflict(ErrRequestAlreadyPending, a)
	}

	a.CheckIn = Punch{Time: ptr(at), Status: ptr(RequestPending), Remarks: clonePtr(remarks)}
	if location != nil {
		a.Location = ptr(*location)
	}
	a.touch(KindCheckIn, at)
	return nil
}

// RequestCheckOut files a pending check-out against an approved check-in.
func (a *Attendance) RequestCheckOut(at time.Time, remarks *string) error {
	if !is(a.CheckIn.Status, RequestApproved) {
		return NewConflict(ErrNotCheckedIn, a)
	}
	switch {
	case is(a.CheckOut.Status, RequestApproved):
		return NewConflict(ErrAlreadyCheckedOut, a)
	case is(a.CheckOut.Status, RequestPending):
		return NewConflict(ErrRequestAlreadyPending, a)
	}

	a.CheckOut = Punch{Time: ptr(at), Status: ptr(RequestPending), Remarks: clonePtr(remarks)}
	a.touch(KindCheckOut, at)
	return nil
}

// RequestHalfDay replaces the half-day request. Only a still-pending one
// blocks; an approved half-day is overwritten.
func (a *Attendance) RequestHalfDay(at time.Time, kind HalfDayType, reason string, attachment *string) error {
	if a.HalfDay.IsRequested && is(a.HalfDay.Status, RequestPending) {
		return NewConflict(ErrRequestAlreadyPending, a)
	}

	a.HalfDay = HalfDayRequest{
		IsRequested: true,
		Type:        ptr(kind),
		Reason:      ptr(reason),
		Attachment:  clonePtr(attachment),
		Status:      ptr(RequestPending),
	}
	a.touch(KindHalfDay, at)
	return nil
}

// RequestLeave replaces the full-day leave request, same rules as RequestHalfDay.
func (a *Attendance) RequestLeave(at time.Time, reason string, attachment *string) error {
	if a.Leave.IsRequested && is(a.Leave.Status, RequestPending) {
		return NewConflict(ErrRequestAlreadyPending, a)
	}

	a.Leave = LeaveRequest{
		IsRequested: true,
		Reason:      ptr(reason),
		Attachment:  clonePtr(attachment),
		Status:      ptr(RequestPending),
	}
	a.touch(KindLeave, at)
	return nil
}

func (a *Attendance) touch(kind RequestKind, at time.Time) {
	a.focus(kind)
	a.UpdatedAt = at
	a.Refresh()
}
