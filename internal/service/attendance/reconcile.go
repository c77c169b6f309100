package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
)

// ReconcileOvertime implements attendance.AttendanceService.
// A failing record is reported in the result and does not stop the rest.
func (s *AttendanceServiceImpl) ReconcileOvertime(ctx context.Context, date *time.Time) (attendance.ReconcileResult, error) {
	start := time.Now()
	defer metrics.ObserveJob("reconcile_overtime", start)

	target := clock.Today(s.clock).AddDate(0, 0, -1)
	if date != nil {
		target = clock.DateOf(*date, time.UTC)
	}

	result := attendance.ReconcileResult{
		Date:     target.Format("2006-01-02"),
		Failures: []attendance.RecordFailure{},
	}

	records, err := s.attendanceRepo.ListClosedByDate(ctx, target, nil)
	if err != nil {
		return result, fmt.Errorf("failed to list attendance for %s: %w", result.Date, err)
	}

	var changed []attendance.Attendance
	for _, att := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++

		seconds := att.ComputeOvertimeSeconds()
		stamped := att.OvertimeComputedFor != nil && att.OvertimeComputedFor.Equal(target)
		if seconds == att.OvertimeSeconds && stamped {
			result.Unchanged++
			metrics.ReconcileRecords.WithLabelValues("unchanged").Inc()
			continue
		}

		if err := s.attendanceRepo.UpdateOvertime(ctx, att.ID, seconds, target); err != nil {
			slog.Error("Cron: overtime reconciliation failed", "attendance_id", att.ID, "employee_id", att.EmployeeID, "error", err)
			result.Failures = append(result.Failures, attendance.RecordFailure{
				AttendanceID: att.ID,
				EmployeeID:   att.EmployeeID,
				Error:        err.Error(),
			})
			metrics.ReconcileRecords.WithLabelValues("failed").Inc()
			continue
		}

		if seconds == att.OvertimeSeconds {
			result.Unchanged++
			metrics.ReconcileRecords.WithLabelValues("unchanged").Inc()
			continue
		}

		att.OvertimeSeconds = seconds
		changed = append(changed, att)
		result.Updated++
		metrics.ReconcileRecords.WithLabelValues("updated").Inc()
	}

	s.notifyReconciled(ctx, changed)

	slog.Info("Cron: overtime reconciled",
		"date", result.Date, "scanned", result.Scanned, "updated", result.Updated,
		"unchanged", result.Unchanged, "failed", len(result.Failures))

	return result, nil
}

func (s *AttendanceServiceImpl) notifyReconciled(ctx context.Context, changed []attendance.Attendance) {
	if s.notifier == nil {
		return
	}
	cache := make(map[string]employee.Employee)
	for _, att := range changed {
		emp, ok := cache[att.EmployeeID]
		if !ok {
			var err error
			emp, err = s.employeeRepo.GetByID(ctx, att.EmployeeID)
			if err != nil {
				slog.Warn("Cron: employee lookup failed", "employee_id", att.EmployeeID, "error", err)
				continue
			}
			cache[att.EmployeeID] = emp
		}
		if emp.UserID == nil {
			continue
		}
		err := s.notifier.QueueNotification(ctx, notification.CreateNotificationRequest{
			CompanyID:   att.CompanyID,
			RecipientID: *emp.UserID,
			Type:        notification.TypeOvertimeReconciled,
			Title:       "Overtime updated",
			Message: fmt.Sprintf("Overtime for %s is now %s",
				att.Date.Format("2006-01-02"), duration.Format(duration.FromSeconds(att.OvertimeSeconds))),
			Data: map[string]interface{}{
				"attendance_id":    att.ID,
				"overtime_seconds": att.OvertimeSeconds,
			},
		})
		if err != nil {
			slog.Warn("Cron: failed to queue notification", "attendance_id", att.ID, "error", err)
		}
	}
}
