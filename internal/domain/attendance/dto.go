package attendance

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/validator"
)

// ========================================
// REQUEST INTAKE DTOs
// ========================================

type CheckInRequest struct {
	Location *string `json:"location" validate:"omitempty,max=255"`
	Remarks  *string `json:"remarks" validate:"omitempty,max=1000"`
}

func (r *CheckInRequest) Validate() error {
	return validator.Struct(r).Err()
}

type CheckOutRequest struct {
	Remarks *string `json:"remarks" validate:"omitempty,max=1000"`
}

func (r *CheckOutRequest) Validate() error {
	return validator.Struct(r).Err()
}

// MaxAttachmentSize bounds half-day and leave evidence uploads.
const MaxAttachmentSize = 10 << 20

var allowedAttachmentExts = []string{".jpg", ".jpeg", ".png", ".pdf"}

type CreateHalfDayRequest struct {
	Type       string                `json:"type" validate:"required,oneof='First Half' 'Second Half'"`
	Reason     string                `json:"reason" validate:"required,max=1000"`
	File       multipart.File        `json:"-" validate:"-"`
	FileHeader *multipart.FileHeader `json:"-" validate:"-"`
}

func (r *CreateHalfDayRequest) Validate() error {
	errs := validator.Struct(r)
	validateAttachment(r.FileHeader, &errs)
	return errs.Err()
}

type CreateLeaveRequest struct {
	Reason     string                `json:"reason" validate:"required,max=1000"`
	File       multipart.File        `json:"-" validate:"-"`
	FileHeader *multipart.FileHeader `json:"-" validate:"-"`
}

func (r *CreateLeaveRequest) Validate() error {
	errs := validator.Struct(r)
	validateAttachment(r.FileHeader, &errs)
	return errs.Err()
}

// Attachments are optional; when present they must be an image or PDF.
func validateAttachment(header *multipart.FileHeader, errs *validator.ValidationErrors) {
	if header == nil {
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !validator.IsInSlice(ext, allowedAttachmentExts) {
		errs.Add("attachment", "invalid file type: only jpg, jpeg, png, pdf allowed")
	} else if header.Size > MaxAttachmentSize {
		errs.Add("attachment", "attachment size must not exceed 10MB")
	}
}

// ========================================
// ADMIN DTOs
// ========================================

type ActionRequest struct {
	ID      string  `json:"-"`
	Action  string  `json:"action" validate:"required,max=64"`
	Remarks *string `json:"remarks" validate:"omitempty,max=1000"`
}

func (r *ActionRequest) Validate() error {
	errs := validator.Struct(r)
	if validator.IsEmpty(r.ID) {
		errs.Add("id", "id is required")
	}
	return errs.Err()
}

// UpdateAttendanceRequest is a manual correction. Times accept RFC3339,
// "2006-01-02 15:04:05", or a bare "15:04[:05]" on the record's own date.
type UpdateAttendanceRequest struct {
	ID           string  `json:"-"`
	Status       *string `json:"status"`
	CheckInTime  *string `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time"`
	Remarks      *string `json:"remarks" validate:"omitempty,max=1000"`
}

func (r *UpdateAttendanceRequest) Validate() error {
	errs := validator.Struct(r)
	if validator.IsEmpty(r.ID) {
		errs.Add("id", "id is required")
	}
	if r.Status != nil && !Status(*r.Status).Valid() {
		errs.Add("status", fmt.Sprintf("status must be one of: %s", joinStatuses()))
	}

	refDay := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if r.CheckInTime != nil {
		if _, err := ParseCorrectionTime(*r.CheckInTime, refDay); err != nil {
			errs.Add("check_in_time", err.Error())
		}
	}
	if r.CheckOutTime != nil {
		if _, err := ParseCorrectionTime(*r.CheckOutTime, refDay); err != nil {
			errs.Add("check_out_time", err.Error())
		}
	}
	return errs.Err()
}

var correctionLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}
var clockLayouts = []string{"15:04:05", "15:04"}

// ParseCorrectionTime resolves s against day, whose location is used for
// zone-less inputs.
func ParseCorrectionTime(s string, day time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, ok := validator.IsValidDateTime(s); ok {
		return t, nil
	}
	loc := day.Location()
	for _, layout := range correctionLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("time must be RFC3339, YYYY-MM-DD HH:MM:SS or HH:MM")
}

func joinStatuses() string {
	var names []string
	for _, s := range AllStatuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// ========================================
// LISTING
// ========================================

type AttendanceFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}

	if f.Status != nil && *f.Status != "" && !Status(*f.Status).Valid() {
		errs.Add("status", fmt.Sprintf("status must be one of: %s", joinStatuses()))
	}

	var start, end time.Time
	if f.StartDate != nil && *f.StartDate != "" {
		d, valid := validator.IsValidDate(*f.StartDate)
		if !valid {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		}
		start = d
	}
	if f.EndDate != nil && *f.EndDate != "" {
		d, valid := validator.IsValidDate(*f.EndDate)
		if !valid {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		}
		end = d
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}

	return errs.Err()
}

// Offset returns the row offset for the current page.
func (f AttendanceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ========================================
// RESPONSES
// ========================================

type PunchResponse struct {
	Time    *time.Time `json:"time"`
	Status  *string    `json:"status"`
	Remarks *string    `json:"remarks"`
}

type HalfDayResponse struct {
	IsRequested bool    `json:"is_requested"`
	Type        *string `json:"type"`
	Reason      *string `json:"reason"`
	Attachment  *string `json:"attachment"`
	Status      *string `json:"status"`
}

type LeaveResponse struct {
	IsRequested bool    `json:"is_requested"`
	Reason      *string `json:"reason"`
	Attachment  *string `json:"attachment"`
	Status      *string `json:"status"`
}

type AttendanceResponse struct {
	ID              string           `json:"id"`
	EmployeeID      string           `json:"employee_id"`
	EmployeeName    *string          `json:"employee_name,omitempty"`
	EmployeeEmail   *string          `json:"employee_email,omitempty"`
	Date            string           `json:"date"`
	CheckIn         PunchResponse    `json:"check_in"`
	CheckOut        PunchResponse    `json:"check_out"`
	HalfDay         HalfDayResponse  `json:"half_day"`
	Leave           LeaveResponse    `json:"leave"`
	Status          string           `json:"status"`
	DurationMinutes int              `json:"duration_minutes"`
	Location        *string          `json:"location"`
	AdminRemarks    *string          `json:"admin_remarks"`
	ActionLog       []ActionLogEntry `json:"action_log"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

type DeleteAttendanceResponse struct {
	Msg string `json:"msg"`
}

// AttachmentFile is a stored half-day or leave document.
type AttachmentFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// NewAttendanceResponse maps a record to its wire form. The label is
// recomputed rather than trusted from storage.
func NewAttendanceResponse(a Attendance) AttendanceResponse {
	actionLog := a.ActionLog
	if actionLog == nil {
		actionLog = []ActionLogEntry{}
	}
	return AttendanceResponse{
		ID:            a.ID,
		EmployeeID:    a.EmployeeID,
		EmployeeName:  a.EmployeeName,
		EmployeeEmail: a.EmployeeEmail,
		Date:          a.Date.Format("2006-01-02"),
		CheckIn:       punchResponse(a.CheckIn),
		CheckOut:      punchResponse(a.CheckOut),
		HalfDay: HalfDayResponse{
			IsRequested: a.HalfDay.IsRequested,
			Type:        (*string)(a.HalfDay.Type),
			Reason:      a.HalfDay.Reason,
			Attachment:  a.HalfDay.Attachment,
			Status:      (*string)(a.HalfDay.Status),
		},
		Leave: LeaveResponse{
			IsRequested: a.Leave.IsRequested,
			Reason:      a.Leave.Reason,
			Attachment:  a.Leave.Attachment,
			Status:      (*string)(a.Leave.Status),
		},
		Status:          string(DeriveStatus(a)),
		DurationMinutes: a.DurationMinutes,
		Location:        a.Location,
		AdminRemarks:    a.AdminRemarks,
		ActionLog:       actionLog,
		Version:         a.Version,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func punchResponse(p Punch) PunchResponse {
	return PunchResponse{Time: p.Time, Status: (*string)(p.Status), Remarks: p.Remarks}
}
