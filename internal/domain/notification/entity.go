package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeAttendanceRequested NotificationType = "attendance_requested"
	TypeAttendanceDecided   NotificationType = "attendance_decided"
	TypeAttendanceCorrected NotificationType = "attendance_corrected"
	TypePayrollGenerated    NotificationType = "payroll_generated"
	TypePayrollPaid         NotificationType = "payroll_paid"
)

// RecipientAdmins addresses every admin rather than one employee.
const RecipientAdmins = "admins"

// Notification is an informational event. Delivery is best effort and never
// affects the operation that produced it.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string
	ActorID     string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}
