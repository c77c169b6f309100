package cron

import (
	"context"
	"time"
)

// Purger removes read notifications older than the retention window.
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

type NotificationJobs struct {
	purger    Purger
	retention time.Duration
}

func NewNotificationJobs(purger Purger, retention time.Duration) *NotificationJobs {
	return &NotificationJobs{purger: purger, retention: retention}
}

// RegisterJobs adds the daily purge. A zero retention keeps notifications forever.
func (j *NotificationJobs) RegisterJobs(scheduler *Scheduler) {
	if j.retention <= 0 {
		return
	}
	scheduler.AddJob("purge_notifications", 24*time.Hour, j.PurgeRead)
}

func (j *NotificationJobs) PurgeRead(ctx context.Context) error {
	_, err := j.purger.Purge(ctx, j.retention)
	return err
}
