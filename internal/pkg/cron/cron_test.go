package cron

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-payroll/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (c *collector) Queue(ctx context.Context, n notification.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *collector) Stop() {}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil, time.UTC)
	var runs atomic.Int32
	s.AddJob("tick", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	})
	s.AddJob("disabled", 0, func(ctx context.Context) error {
		t.Error("disabled job must not run")
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()

	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestScheduler_StopsWithContext(t *testing.T) {
	s := NewScheduler(nil, nil)
	var runs atomic.Int32
	s.AddJob("tick", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	time.Sleep(1500 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestScheduler_AddCronJob(t *testing.T) {
	s := NewScheduler(nil, time.UTC)
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.AddCronJob("weekday", "0 17 * * 1-5", noop))
	require.NoError(t, s.AddCronJob("daily", "@daily", noop))
	assert.ErrorContains(t, s.AddCronJob("broken", "every tuesday", noop), "invalid cron expression")
	assert.Len(t, s.jobs, 2)

	schedule, err := ParseSchedule("0 17 * * 1-5")
	require.NoError(t, err)
	friday := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 17, 17, 0, 0, 0, time.UTC), schedule.Next(friday))
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(nil, nil)
	var runs atomic.Int32
	s.AddJob("once", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.RunOnce(context.Background())
	assert.EqualValues(t, 1, runs.Load())
}

func TestAttendanceJobs_PendingDigest(t *testing.T) {
	ctx := context.Background()
	clk := &clock.Fixed{T: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)}
	repo := memory.NewAttendanceRepository(memory.NewEmployeeRepository())
	notifier := &collector{}
	jobs := NewAttendanceJobs(repo, notifier, clk)

	require.NoError(t, jobs.PendingDigest(ctx))
	assert.Empty(t, notifier.sent)

	seed := func(employeeID string, daysAgo int, request func(rec *attendance.Attendance, at time.Time)) {
		date := clock.Today(clk).AddDate(0, 0, -daysAgo)
		rec := attendance.New(employeeID, date, date)
		request(&rec, date.Add(9*time.Hour))
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}
	checkIn := func(rec *attendance.Attendance, at time.Time) { require.NoError(t, rec.RequestCheckIn(at, nil, nil)) }

	seed("emp-1", 0, checkIn)
	seed("emp-2", 1, checkIn)
	seed("emp-3", 2, func(rec *attendance.Attendance, at time.Time) {
		require.NoError(t, rec.RequestLeave(at, "family", nil))
	})
	seed("emp-4", 30, checkIn)

	require.NoError(t, jobs.PendingDigest(ctx))
	require.Len(t, notifier.sent, 1)

	n := notifier.sent[0]
	assert.Equal(t, notification.RecipientAdmins, n.RecipientID)
	assert.Equal(t, "3 attendance requests awaiting review", n.Title)
	assert.Equal(t, "Pending Check-In: 2, Pending Leave: 1", n.Message)
	assert.EqualValues(t, 2, n.Data[string(attendance.StatusPendingCheckIn)])
}

func TestAttendanceJobs_RegisterJobs(t *testing.T) {
	clk := &clock.Fixed{T: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)}
	jobs := NewAttendanceJobs(memory.NewAttendanceRepository(memory.NewEmployeeRepository()), &collector{}, clk)

	s := NewScheduler(nil, time.UTC)
	require.NoError(t, jobs.RegisterJobs(s, 0, ""))
	assert.Empty(t, s.jobs)

	require.NoError(t, jobs.RegisterJobs(s, time.Hour, ""))
	require.NoError(t, jobs.RegisterJobs(s, time.Hour, "0 17 * * *"))
	assert.Len(t, s.jobs, 2)

	assert.Error(t, jobs.RegisterJobs(s, 0, "not a schedule"))
}
