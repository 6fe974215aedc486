package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
)

// digestLookbackDays is how far back the pending digest looks.
const digestLookbackDays = 7

var pendingStatuses = []attendance.Status{
	attendance.StatusPendingCheckIn,
	attendance.StatusPendingCheckOut,
	attendance.StatusPendingHalfDay,
	attendance.StatusPendingLeave,
}

type AttendanceJobs struct {
	attendanceRepo  attendance.AttendanceRepository
	notificationSvc notification.Service
	clock           clock.Clock
	logger          *slog.Logger
}

func NewAttendanceJobs(
	attendanceRepo attendance.AttendanceRepository,
	notificationSvc notification.Service,
	clk clock.Clock,
) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceRepo:  attendanceRepo,
		notificationSvc: notificationSvc,
		clock:           clk,
		logger:          slog.Default().With("job", "pending_digest"),
	}
}

// RegisterJobs schedules the pending digest. A cron expression takes
// precedence over the interval; with neither the digest stays off.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, digestInterval time.Duration, digestSchedule string) error {
	if digestSchedule != "" {
		return scheduler.AddCronJob("pending_attendance_digest", digestSchedule, j.PendingDigest)
	}
	scheduler.AddJob("pending_attendance_digest", digestInterval, j.PendingDigest)
	return nil
}

// PendingDigest tells admins how many requests still wait for a decision.
// Nothing is sent when the queue is empty.
func (j *AttendanceJobs) PendingDigest(ctx context.Context) error {
	today := clock.Today(j.clock)
	start := today.AddDate(0, 0, -digestLookbackDays).Format("2006-01-02")
	end := today.Format("2006-01-02")

	counts := make(map[string]int64, len(pendingStatuses))
	var total int64
	for _, status := range pendingStatuses {
		s := string(status)
		_, n, err := j.attendanceRepo.List(ctx, attendance.AttendanceFilter{
			Status:    &s,
			StartDate: &start,
			EndDate:   &end,
			Page:      1,
			Limit:     1,
		})
		if err != nil {
			return fmt.Errorf("failed to count %s records: %w", status, err)
		}
		if n > 0 {
			counts[s] = n
			total += n
		}
	}

	if total == 0 {
		j.logger.Debug("no pending attendance requests")
		return nil
	}

	parts := make([]string, 0, len(counts))
	data := make(map[string]interface{}, len(counts)+2)
	for status, n := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", status, n))
		data[status] = n
	}
	sort.Strings(parts)
	data["from"], data["to"] = start, end

	j.notificationSvc.Queue(ctx, notification.Notification{
		Type:        notification.TypeAttendanceRequested,
		RecipientID: notification.RecipientAdmins,
		Title:       fmt.Sprintf("%d attendance requests awaiting review", total),
		Message:     strings.Join(parts, ", "),
		Data:        data,
	})
	j.logger.Info("pending digest queued", "total", total)
	return nil
}
