package attendance

// DeriveStatus computes the display label from the record's sub-requests.
// An explicit manual status wins; otherwise the label follows the request
// kind that was last requested or decided.
func DeriveStatus(a Attendance) Status {
	if a.StatusOverride != nil {
		return *a.StatusOverride
	}
	if a.Focus == nil {
		return StatusAbsent
	}

	switch *a.Focus {
	case KindCheckOut:
		switch {
		case is(a.CheckOut.Status, RequestPending):
			return StatusPendingCheckOut
		case is(a.CheckOut.Status, RequestApproved):
			return StatusCheckedOut
		case is(a.CheckOut.Status, RequestRejected):
			return StatusPresent
		}
		return checkInStatus(a)
	case KindHalfDay:
		switch {
		case is(a.HalfDay.Status, RequestPending):
			return StatusPendingHalfDay
		case is(a.HalfDay.Status, RequestApproved):
			return StatusHalfDay
		case is(a.HalfDay.Status, RequestRejected):
			if is(a.CheckIn.Status, RequestApproved) {
				return StatusPresent
			}
			return StatusAbsent
		}
		return checkInStatus(a)
	case KindLeave:
		switch {
		case is(a.Leave.Status, RequestPending):
			return StatusPendingLeave
		case is(a.Leave.Status, RequestApproved):
			return StatusOnLeave
		case is(a.Leave.Status, RequestRejected):
			return StatusAbsent
		}
		return checkInStatus(a)
	default:
		return checkInStatus(a)
	}
}

func checkInStatus(a Attendance) Status {
	switch {
	case is(a.CheckIn.Status, RequestPending):
		return StatusPendingCheckIn
	case is(a.CheckIn.Status, RequestApproved):
		return StatusPresent
	case is(a.CheckIn.Status, RequestRejected):
		return StatusRejected
	}
	return StatusAbsent
}

// Refresh writes the derived label into Status.
func (a *Attendance) Refresh() {
	a.Status = DeriveStatus(*a)
}

func (a *Attendance) focus(kind RequestKind) {
	a.Focus = ptr(kind)
	a.StatusOverride = nil
}
