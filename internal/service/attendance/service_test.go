package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/user"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/memory"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

type fakeFiles struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	contents map[string][]byte
}

func (f *fakeFiles) UploadAttendanceAttachment(ctx context.Context, employeeID string, date time.Time, kind string, file io.Reader, filename string) (string, error) {
	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := fmt.Sprintf("attendance/%s/%s/%s-%d-%s", employeeID, date.Format("2006-01-02"), kind, len(f.uploaded), filename)
	f.uploaded = append(f.uploaded, p)
	if f.contents == nil {
		f.contents = map[string][]byte{}
	}
	f.contents[p] = body
	return p, nil
}

func (f *fakeFiles) ReadFile(ctx context.Context, path string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.contents[path]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", storage.ErrFileNotFound, path)
	}
	return body, "application/pdf", nil
}

func (f *fakeFiles) DeleteFile(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	delete(f.contents, path)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Queue(ctx context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) Stop() {}

func (r *recordingNotifier) types() []notification.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.NotificationType
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

type nopFile struct{ *bytes.Reader }

func (nopFile) Close() error { return nil }

// trackedFile records whether the service released the upload.
type trackedFile struct {
	*bytes.Reader
	closed bool
}

func (f *trackedFile) Close() error {
	f.closed = true
	return nil
}

func pdfUpload(name, body string) (multipart.File, *multipart.FileHeader) {
	return nopFile{bytes.NewReader([]byte(body))}, &multipart.FileHeader{Filename: name, Size: int64(len(body))}
}

type fixture struct {
	svc      attendance.AttendanceService
	clock    *clock.Fixed
	files    *fakeFiles
	notifier *recordingNotifier
	admin    context.Context
	alice    context.Context
	bob      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	employees := memory.NewEmployeeRepository()
	for _, emp := range []employee.Employee{
		{ID: "emp-alice", UserID: strPtr("user-alice"), FullName: "Alice", Email: "alice@example.com"},
		{ID: "emp-bob", UserID: strPtr("user-bob"), FullName: "Bob", Email: "bob@example.com"},
	} {
		_, err := employees.Save(context.Background(), emp)
		require.NoError(t, err)
	}

	f := &fixture{
		clock:    &clock.Fixed{T: time.Date(2025, 3, 10, 8, 0, 0, 0, wib), Loc: wib},
		files:    &fakeFiles{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewAttendanceService(memory.NewAttendanceRepository(employees), employees, f.files, f.notifier, f.clock)

	tokens := jwt.NewJWTService("test-secret", time.Hour)
	f.admin = actorContext(t, tokens, user.Actor{UserID: "user-admin", Role: user.RoleAdmin})
	f.alice = actorContext(t, tokens, user.Actor{UserID: "user-alice", EmployeeID: "emp-alice", Role: user.RoleEmployee})
	f.bob = actorContext(t, tokens, user.Actor{UserID: "user-bob", EmployeeID: "emp-bob", Role: user.RoleEmployee})
	return f
}

func actorContext(t *testing.T, tokens *jwt.JWTService, actor user.Actor) context.Context {
	t.Helper()
	raw, _, err := tokens.GenerateAccessToken(actor)
	require.NoError(t, err)
	token, err := jwtauth.VerifyToken(tokens.JWTAuth(), raw)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func strPtr(s string) *string { return &s }

func (f *fixture) act(t *testing.T, id string, action attendance.Action) attendance.AttendanceResponse {
	t.Helper()
	resp, err := f.svc.ApplyAction(f.admin, attendance.ActionRequest{ID: id, Action: string(action)})
	require.NoError(t, err)
	return resp
}

func TestAttendanceService_FullDay(t *testing.T) {
	f := newFixture(t)

	in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{Location: strPtr("Office")})
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusPendingCheckIn), in.Status)
	assert.Equal(t, "2025-03-10", in.Date)
	assert.Equal(t, "Office", *in.Location)

	approved := f.act(t, in.ID, attendance.ActionApproveCheckIn)
	assert.Equal(t, string(attendance.StatusPresent), approved.Status)
	require.Len(t, approved.ActionLog, 1)
	assert.Equal(t, "user-admin", approved.ActionLog[0].Admin)

	f.clock.Advance(8*time.Hour + 30*time.Minute)
	out, err := f.svc.RequestCheckOut(f.alice, attendance.CheckOutRequest{})
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, string(attendance.StatusPendingCheckOut), out.Status)

	done := f.act(t, in.ID, attendance.ActionApproveCheckOut)
	assert.Equal(t, string(attendance.StatusCheckedOut), done.Status)
	assert.Equal(t, 510, done.DurationMinutes)

	assert.Equal(t, []notification.NotificationType{
		notification.TypeAttendanceRequested,
		notification.TypeAttendanceDecided,
		notification.TypeAttendanceRequested,
		notification.TypeAttendanceDecided,
	}, f.notifier.types())
}

func TestAttendanceService_IntakeConflicts(t *testing.T) {
	t.Run("check-out without any record", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestCheckOut(f.alice, attendance.CheckOutRequest{})

		var conflict *attendance.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
		assert.Nil(t, conflict.Record)
		assert.Equal(t, "NOT_CHECKED_IN", conflict.Code())
	})

	t.Run("check-out before check-in is approved", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		require.NoError(t, err)

		_, err = f.svc.RequestCheckOut(f.alice, attendance.CheckOutRequest{})
		var conflict *attendance.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.NotNil(t, conflict.Record)
		assert.Equal(t, attendance.StatusPendingCheckIn, conflict.Record.Status)
	})

	t.Run("second check-in after approval", func(t *testing.T) {
		f := newFixture(t)
		in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		require.NoError(t, err)
		f.act(t, in.ID, attendance.ActionApproveCheckIn)

		_, err = f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	})

	t.Run("rejected check-in may be re-requested", func(t *testing.T) {
		f := newFixture(t)
		in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		require.NoError(t, err)
		rejected := f.act(t, in.ID, attendance.ActionRejectCheckIn)
		assert.Equal(t, string(attendance.StatusRejected), rejected.Status)

		again, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		require.NoError(t, err)
		assert.Equal(t, in.ID, again.ID)
		assert.Equal(t, string(attendance.StatusPendingCheckIn), again.Status)
	})
}

func TestAttendanceService_ConcurrentCheckIn(t *testing.T) {
	f := newFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, attendance.ErrRequestAlreadyPending)
	}
	assert.Equal(t, 1, succeeded)

	list, err := f.svc.GetMyAttendance(f.alice, attendance.AttendanceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.TotalCount)
}

func TestAttendanceService_HalfDayAndLeave(t *testing.T) {
	f := newFixture(t)

	half, err := f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{
		Type:       string(attendance.FirstHalf),
		Reason:     "Doctor appointment",
		File:       nopFile{bytes.NewReader([]byte("%PDF-1.4"))},
		FileHeader: &multipart.FileHeader{Filename: "note.pdf", Size: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusPendingHalfDay), half.Status)
	require.NotNil(t, half.HalfDay.Attachment)
	assert.Contains(t, *half.HalfDay.Attachment, "attendance/emp-alice/2025-03-10/half_day")

	_, err = f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{
		Type:       string(attendance.SecondHalf),
		Reason:     "Again",
		File:       nopFile{bytes.NewReader([]byte("%PDF-1.4"))},
		FileHeader: &multipart.FileHeader{Filename: "again.pdf", Size: 8},
	})
	assert.ErrorIs(t, err, attendance.ErrRequestAlreadyPending)
	require.Len(t, f.files.uploaded, 2)
	assert.Equal(t, []string{f.files.uploaded[1]}, f.files.deleted)

	approved := f.act(t, half.ID, attendance.ActionApproveHalfDay)
	assert.Equal(t, string(attendance.StatusHalfDay), approved.Status)
	assert.Equal(t, attendance.HalfDayMinutes, approved.DurationMinutes)

	leave, err := f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{Reason: "Family"})
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusPendingLeave), leave.Status)
	assert.Nil(t, leave.Leave.Attachment)

	onLeave := f.act(t, leave.ID, attendance.ActionApproveLeave)
	assert.Equal(t, string(attendance.StatusOnLeave), onLeave.Status)
	assert.Zero(t, onLeave.DurationMinutes)
}

func TestAttendanceService_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{Type: "Morning"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Empty(t, f.files.uploaded)
}

func TestAttendanceService_ClosesUploadOnEveryPath(t *testing.T) {
	f := newFixture(t)
	header := &multipart.FileHeader{Filename: "note.pdf", Size: 8}

	invalid := &trackedFile{Reader: bytes.NewReader([]byte("%PDF-1.4"))}
	_, err := f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{Type: "Morning", Reason: "x", File: invalid, FileHeader: header})
	require.Error(t, err)
	assert.True(t, invalid.closed)

	noProfile := &trackedFile{Reader: bytes.NewReader([]byte("%PDF-1.4"))}
	_, err = f.svc.RequestLeave(f.admin, attendance.CreateLeaveRequest{Reason: "x", File: noProfile, FileHeader: header})
	assert.ErrorIs(t, err, user.ErrEmployeeProfileRequired)
	assert.True(t, noProfile.closed)

	stored := &trackedFile{Reader: bytes.NewReader([]byte("%PDF-1.4"))}
	_, err = f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{Reason: "x", File: stored, FileHeader: header})
	require.NoError(t, err)
	assert.True(t, stored.closed)
	assert.Empty(t, f.files.deleted)
}

func TestAttendanceService_ReRequestDiscardsReplacedAttachment(t *testing.T) {
	f := newFixture(t)

	file, header := pdfUpload("a.pdf", "%PDF-a")
	first, err := f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{
		Type: string(attendance.FirstHalf), Reason: "Dentist", File: file, FileHeader: header,
	})
	require.NoError(t, err)
	f.act(t, first.ID, attendance.ActionApproveHalfDay)

	file, header = pdfUpload("b.pdf", "%PDF-b")
	second, err := f.svc.RequestHalfDay(f.alice, attendance.CreateHalfDayRequest{
		Type: string(attendance.SecondHalf), Reason: "Dentist again", File: file, FileHeader: header,
	})
	require.NoError(t, err)
	require.Len(t, f.files.uploaded, 2)
	assert.Equal(t, f.files.uploaded[1], *second.HalfDay.Attachment)
	assert.Equal(t, []string{f.files.uploaded[0]}, f.files.deleted)

	// A leave re-request without a document still drops the old one.
	file, header = pdfUpload("c.pdf", "%PDF-c")
	leave, err := f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{Reason: "Sick", File: file, FileHeader: header})
	require.NoError(t, err)
	f.act(t, leave.ID, attendance.ActionRejectLeave)
	_, err = f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{Reason: "Sick, no note"})
	require.NoError(t, err)
	assert.Contains(t, f.files.deleted, f.files.uploaded[2])

	require.NoError(t, f.svc.DeleteAttendance(f.admin, second.ID))
	assert.ElementsMatch(t, f.files.uploaded, f.files.deleted)
}

func TestAttendanceService_GetAttachment(t *testing.T) {
	f := newFixture(t)

	file, header := pdfUpload("sicknote.pdf", "%PDF-1.4 diagnosis")
	leave, err := f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{Reason: "Flu", File: file, FileHeader: header})
	require.NoError(t, err)

	for name, ctx := range map[string]context.Context{"owner": f.alice, "admin": f.admin} {
		t.Run(name, func(t *testing.T) {
			doc, err := f.svc.GetAttachment(ctx, leave.ID, attendance.KindLeave)
			require.NoError(t, err)
			assert.Equal(t, "%PDF-1.4 diagnosis", string(doc.Content))
			assert.Equal(t, "application/pdf", doc.ContentType)
			assert.Equal(t, "leave-0-sicknote.pdf", doc.Filename)
		})
	}

	_, err = f.svc.GetAttachment(f.bob, leave.ID, attendance.KindLeave)
	assert.ErrorIs(t, err, user.ErrForbidden)

	_, err = f.svc.GetAttachment(f.alice, leave.ID, attendance.KindHalfDay)
	assert.ErrorIs(t, err, attendance.ErrAttachmentNotFound)

	_, err = f.svc.GetAttachment(f.alice, leave.ID, attendance.KindCheckIn)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = f.svc.GetAttachment(f.admin, "missing", attendance.KindLeave)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)

	_, err = f.svc.GetAttachment(context.Background(), leave.ID, attendance.KindLeave)
	assert.Error(t, err)

	// The record outlives a file removed from storage behind its back.
	require.NoError(t, f.files.DeleteFile(context.Background(), *leave.Leave.Attachment))
	_, err = f.svc.GetAttachment(f.admin, leave.ID, attendance.KindLeave)
	assert.ErrorIs(t, err, attendance.ErrAttachmentNotFound)
}

func TestAttendanceService_AdminOnly(t *testing.T) {
	f := newFixture(t)
	in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
	require.NoError(t, err)

	_, err = f.svc.ApplyAction(f.alice, attendance.ActionRequest{ID: in.ID, Action: string(attendance.ActionApproveCheckIn)})
	assert.ErrorIs(t, err, user.ErrForbidden)

	_, err = f.svc.GetAttendance(f.bob, in.ID)
	assert.ErrorIs(t, err, user.ErrForbidden)

	_, err = f.svc.ListAttendance(f.alice, attendance.AttendanceFilter{})
	assert.ErrorIs(t, err, user.ErrForbidden)

	assert.ErrorIs(t, f.svc.DeleteAttendance(f.bob, in.ID), user.ErrForbidden)

	_, err = f.svc.RequestCheckIn(f.admin, attendance.CheckInRequest{})
	assert.ErrorIs(t, err, user.ErrEmployeeProfileRequired)

	_, err = f.svc.RequestCheckIn(context.Background(), attendance.CheckInRequest{})
	assert.Error(t, err)
}

func TestAttendanceService_ApplyAction(t *testing.T) {
	f := newFixture(t)
	in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
	require.NoError(t, err)

	t.Run("unknown action is logged only", func(t *testing.T) {
		resp := f.act(t, in.ID, attendance.Action("escalate"))
		assert.Equal(t, string(attendance.StatusPendingCheckIn), resp.Status)
		require.Len(t, resp.ActionLog, 1)
		assert.Equal(t, "escalate", resp.ActionLog[0].Action)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := f.svc.ApplyAction(f.admin, attendance.ActionRequest{ID: "nope", Action: string(attendance.ActionApproveCheckIn)})
		assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
	})

	t.Run("remarks are kept", func(t *testing.T) {
		resp, err := f.svc.ApplyAction(f.admin, attendance.ActionRequest{
			ID: in.ID, Action: string(attendance.ActionApproveCheckIn), Remarks: strPtr("ok"),
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", *resp.AdminRemarks)
	})
}

func TestAttendanceService_SetAttendance(t *testing.T) {
	f := newFixture(t)
	in, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
	require.NoError(t, err)

	resp, err := f.svc.SetAttendance(f.admin, attendance.UpdateAttendanceRequest{
		ID:           in.ID,
		CheckInTime:  strPtr("09:00"),
		CheckOutTime: strPtr("17:15"),
		Remarks:      strPtr("forgot to punch"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(attendance.StatusCheckedOut), resp.Status)
	assert.Equal(t, 495, resp.DurationMinutes)
	assert.Equal(t, string(attendance.RequestApproved), *resp.CheckIn.Status)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, wib), resp.CheckIn.Time.In(wib))
	assert.Equal(t, attendance.ManualUpdateAction, resp.ActionLog[len(resp.ActionLog)-1].Action)

	status := string(attendance.StatusHoliday)
	pinned, err := f.svc.SetAttendance(f.admin, attendance.UpdateAttendanceRequest{ID: in.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, status, pinned.Status)

	_, err = f.svc.SetAttendance(f.admin, attendance.UpdateAttendanceRequest{ID: in.ID, CheckInTime: strPtr("noon")})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestAttendanceService_DeleteAttendance(t *testing.T) {
	f := newFixture(t)
	leave, err := f.svc.RequestLeave(f.alice, attendance.CreateLeaveRequest{
		Reason:     "Sick",
		File:       nopFile{bytes.NewReader([]byte("%PDF-1.4"))},
		FileHeader: &multipart.FileHeader{Filename: "sick.pdf", Size: 8},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAttendance(f.admin, leave.ID))
	assert.Equal(t, f.files.uploaded, f.files.deleted)

	_, err = f.svc.GetAttendance(f.admin, leave.ID)
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
	assert.ErrorIs(t, f.svc.DeleteAttendance(f.admin, leave.ID), attendance.ErrRecordNotFound)
}

func TestAttendanceService_Listing(t *testing.T) {
	f := newFixture(t)

	for day := 0; day < 5; day++ {
		_, err := f.svc.RequestCheckIn(f.alice, attendance.CheckInRequest{})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}
	_, err := f.svc.RequestCheckIn(f.bob, attendance.CheckInRequest{})
	require.NoError(t, err)

	mine, err := f.svc.GetMyAttendance(f.alice, attendance.AttendanceFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, mine.TotalCount)
	assert.Equal(t, 3, mine.TotalPages)
	assert.Equal(t, "3-4 of 5", mine.Showing)
	require.Len(t, mine.Attendances, 2)
	assert.Equal(t, "2025-03-12", mine.Attendances[0].Date)

	all, err := f.svc.ListAttendance(f.admin, attendance.AttendanceFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, all.TotalCount)
	assert.Equal(t, "Bob", *all.Attendances[0].EmployeeName)

	empty, err := f.svc.GetMyAttendance(f.bob, attendance.AttendanceFilter{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, "0 of 1", empty.Showing)

	_, err = f.svc.ListAttendance(f.admin, attendance.AttendanceFilter{Limit: 500})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}
