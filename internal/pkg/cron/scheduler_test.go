package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	calls []time.Time
	err   error
}

func (f *fakeReconciler) ReconcileOvertime(ctx context.Context, date *time.Time) (attendance.ReconcileResult, error) {
	f.calls = append(f.calls, *date)
	if f.err != nil {
		return attendance.ReconcileResult{}, f.err
	}
	return attendance.ReconcileResult{Date: date.Format("2006-01-02")}, nil
}

func TestReconcileOvertimeActsOncePerDate(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC))
	rec := &fakeReconciler{}
	jobs := NewAttendanceJobs(rec, clk)

	require.NoError(t, jobs.ReconcileOvertime(context.Background()))
	require.NoError(t, jobs.ReconcileOvertime(context.Background()))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "2025-03-09", rec.calls[0].Format("2006-01-02"))

	clk.Set(time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC))
	require.NoError(t, jobs.ReconcileOvertime(context.Background()))
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "2025-03-10", rec.calls[1].Format("2006-01-02"))
}

func TestReconcileOvertimeRetriesAfterFailure(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC))
	rec := &fakeReconciler{err: errors.New("database is down")}
	jobs := NewAttendanceJobs(rec, clk)

	assert.Error(t, jobs.ReconcileOvertime(context.Background()))

	rec.err = nil
	require.NoError(t, jobs.ReconcileOvertime(context.Background()))
	assert.Len(t, rec.calls, 2)
}

func TestSchedulerRunsJobsUntilStopped(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddJob("tick", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestRunOnce(t *testing.T) {
	s := NewScheduler()
	var ran []string
	s.AddJob("a", time.Hour, func(ctx context.Context) error { ran = append(ran, "a"); return nil })
	s.AddJob("b", time.Hour, func(ctx context.Context) error { ran = append(ran, "b"); return errors.New("boom") })
	s.AddJob("c", time.Hour, func(ctx context.Context) error { ran = append(ran, "c"); return nil })

	failed := s.RunOnce(context.Background())
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, 1, failed)
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddJob("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("first run explodes")
		}
		return nil
	})

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestRunOnceCountsPanicAsFailure(t *testing.T) {
	s := NewScheduler()
	s.AddJob("explodes", time.Hour, func(ctx context.Context) error { panic("boom") })

	assert.Equal(t, 1, s.RunOnce(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewScheduler()
	s.AddJob("noop", time.Hour, func(ctx context.Context) error { return nil })
	s.Start()

	s.Stop()
	assert.NotPanics(t, s.Stop)
}

type fakePurger struct {
	retention time.Duration
	calls     int
}

func (f *fakePurger) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return 0, nil
}

func TestNotificationJobs(t *testing.T) {
	t.Run("registers purge with retention", func(t *testing.T) {
		p := &fakePurger{}
		s := NewScheduler()
		NewNotificationJobs(p, 90*24*time.Hour).RegisterJobs(s)

		assert.Zero(t, s.RunOnce(context.Background()))
		assert.Equal(t, 1, p.calls)
		assert.Equal(t, 90*24*time.Hour, p.retention)
	})

	t.Run("zero retention registers nothing", func(t *testing.T) {
		p := &fakePurger{}
		s := NewScheduler()
		NewNotificationJobs(p, 0).RegisterJobs(s)

		s.RunOnce(context.Background())
		assert.Zero(t, p.calls)
	})
}
