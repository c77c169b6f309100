package cron

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
)

// Reconciler is the part of the attendance service the nightly job drives.
type Reconciler interface {
	ReconcileOvertime(ctx context.Context, date *time.Time) (attendance.ReconcileResult, error)
}

type AttendanceJobs struct {
	reconciler Reconciler
	clock      clock.Clock

	mu         sync.Mutex
	lastRunFor time.Time
}

func NewAttendanceJobs(reconciler Reconciler, clk clock.Clock) *AttendanceJobs {
	return &AttendanceJobs{
		reconciler: reconciler,
		clock:      clk,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	scheduler.AddJob("reconcile_overtime", interval, j.ReconcileOvertime)
}

// ReconcileOvertime recomputes yesterday's overtime. The job ticks hourly but acts once per date;
// a run that fails outright is retried on the next tick.
func (j *AttendanceJobs) ReconcileOvertime(ctx context.Context) error {
	target := clock.Today(j.clock).AddDate(0, 0, -1)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRunFor.Equal(target) {
		return nil
	}

	if _, err := j.reconciler.ReconcileOvertime(ctx, &target); err != nil {
		return err
	}
	j.lastRunFor = target
	return nil
}
