package attendance

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	kind := func(k RequestKind) *RequestKind { return &k }
	override := func(s Status) *Status { return &s }

	cases := []struct {
		name string
		rec  Attendance
		want Status
	}{
		{"empty record", Attendance{}, StatusAbsent},
		{"pending check-in", Attendance{Focus: kind(KindCheckIn), CheckIn: Punch{Status: statusPtr(RequestPending)}}, StatusPendingCheckIn},
		{"approved check-in", Attendance{Focus: kind(KindCheckIn), CheckIn: Punch{Status: statusPtr(RequestApproved)}}, StatusPresent},
		{"rejected check-in", Attendance{Focus: kind(KindCheckIn), CheckIn: Punch{Status: statusPtr(RequestRejected)}}, StatusRejected},
		{"pending check-out", Attendance{Focus: kind(KindCheckOut), CheckOut: Punch{Status: statusPtr(RequestPending)}}, StatusPendingCheckOut},
		{"approved check-out", Attendance{Focus: kind(KindCheckOut), CheckOut: Punch{Status: statusPtr(RequestApproved)}}, StatusCheckedOut},
		{"rejected check-out", Attendance{Focus: kind(KindCheckOut), CheckOut: Punch{Status: statusPtr(RequestRejected)}}, StatusPresent},
		{"check-out focus without request falls back", Attendance{Focus: kind(KindCheckOut), CheckIn: Punch{Status: statusPtr(RequestApproved)}}, StatusPresent},
		{"pending half-day", Attendance{Focus: kind(KindHalfDay), HalfDay: HalfDayRequest{IsRequested: true, Status: statusPtr(RequestPending)}}, StatusPendingHalfDay},
		{"approved half-day", Attendance{Focus: kind(KindHalfDay), HalfDay: HalfDayRequest{IsRequested: true, Status: statusPtr(RequestApproved)}}, StatusHalfDay},
		{"rejected half-day after check-in", Attendance{Focus: kind(KindHalfDay), CheckIn: Punch{Status: statusPtr(RequestApproved)}, HalfDay: HalfDayRequest{IsRequested: true, Status: statusPtr(RequestRejected)}}, StatusPresent},
		{"rejected half-day without check-in", Attendance{Focus: kind(KindHalfDay), HalfDay: HalfDayRequest{IsRequested: true, Status: statusPtr(RequestRejected)}}, StatusAbsent},
		{"pending leave", Attendance{Focus: kind(KindLeave), Leave: LeaveRequest{IsRequested: true, Status: statusPtr(RequestPending)}}, StatusPendingLeave},
		{"approved leave", Attendance{Focus: kind(KindLeave), Leave: LeaveRequest{IsRequested: true, Status: statusPtr(RequestApproved)}}, StatusOnLeave},
		{"rejected leave", Attendance{Focus: kind(KindLeave), Leave: LeaveRequest{IsRequested: true, Status: statusPtr(RequestRejected)}}, StatusAbsent},
		{"override wins", Attendance{Focus: kind(KindCheckIn), CheckIn: Punch{Status: statusPtr(RequestApproved)}, StatusOverride: override(StatusHoliday)}, StatusHoliday},
	}

	for _, c := range cases {
		got := DeriveStatus(c.rec)
		if got != c.want {
			t.Errorf("%s: DeriveStatus = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses() {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false", s)
		}
	}
	if Status("Late").Valid() {
		t.Errorf("Status(Late).Valid() = true, want false")
	}
}

func TestParseCorrectionTime(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	recordDay := time.Date(2026, 1, 5, 0, 0, 0, 0, wib)

	cases := []struct {
		input string
		want  time.Time
	}{
		{"2026-01-05T09:00:00Z", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)},
		{"2026-01-05 09:15:00", time.Date(2026, 1, 5, 9, 15, 0, 0, wib)},
		{"08:30", time.Date(2026, 1, 5, 8, 30, 0, 0, wib)},
		{"17:45:10", time.Date(2026, 1, 5, 17, 45, 10, 0, wib)},
	}
	for _, c := range cases {
		got, err := ParseCorrectionTime(c.input, recordDay)
		if err != nil {
			t.Errorf("ParseCorrectionTime(%q) error: %v", c.input, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseCorrectionTime(%q) = %v, want %v", c.input, got, c.want)
		}
	}

	if _, err := ParseCorrectionTime("half past nine", recordDay); err == nil {
		t.Errorf("ParseCorrectionTime accepted garbage")
	}
}

func TestUpdateAttendanceRequest_Validate(t *testing.T) {
	bad := "Late"
	badTime := "noon"
	req := UpdateAttendanceRequest{ID: "x", Status: &bad, CheckInTime: &badTime}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	ok := "Holiday"
	req = UpdateAttendanceRequest{ID: "x", Status: &ok}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
