package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// Config holds the attendance settings read from the environment.
type Config struct {
	Scheme                attendance.StatusScheme
	DefaultScheduledHours int
	// ElevatedBypassNetwork lets HR/Admin use the check endpoint from anywhere.
	ElevatedBypassNetwork bool
}

type AttendanceServiceImpl struct {
	tx             database.Transactor
	attendanceRepo attendance.AttendanceRepository
	adjustmentRepo attendance.AdjustmentRepository
	networkRepo    attendance.OfficeNetworkRepository
	employeeRepo   employee.EmployeeRepository
	policy         attendance.NetworkPolicy
	notifier       notification.Dispatcher
	clock          clock.Clock
	cfg            Config
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	adjustmentRepo attendance.AdjustmentRepository,
	networkRepo attendance.OfficeNetworkRepository,
	employeeRepo employee.EmployeeRepository,
	policy attendance.NetworkPolicy,
	notifier notification.Dispatcher,
	clk clock.Clock,
	cfg Config,
) attendance.AttendanceService {
	if cfg.Scheme == "" {
		cfg.Scheme = attendance.SchemeApproval
	}
	return &AttendanceServiceImpl{
		tx:             tx,
		attendanceRepo: attendanceRepo,
		adjustmentRepo: adjustmentRepo,
		networkRepo:    networkRepo,
		employeeRepo:   employeeRepo,
		policy:         policy,
		notifier:       notifier,
		clock:          clk,
		cfg:            cfg,
	}
}

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, actor user.Actor, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	emp, err := s.resolveEmployee(ctx, actor, req.EmployeeID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !actor.IsSelf(emp.ID) && !actor.CanManage(emp) {
		return attendance.AttendanceResponse{}, user.Forbidden("cannot clock in for this employee")
	}

	instant := s.clock.Now()
	if t := attendance.ParseInstant(req.Instant); t != nil {
		instant = *t
	}
	date := clock.DateOf(instant, s.clock.Location())

	existing, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, date, emp.CompanyID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if existing != nil {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedIn
	}

	hours := emp.DailyHours(s.cfg.DefaultScheduledHours)
	created, err := s.attendanceRepo.Create(ctx, attendance.Attendance{
		CompanyID:       emp.CompanyID,
		EmployeeID:      emp.ID,
		Date:            date,
		ClockIn:         instant,
		ClockInLocation: req.Location,
		PaidTime:        duration.Hours(hours),
		ScheduledHours:  hours,
		Status:          attendance.StatusPending,
	})
	if err != nil {
		// the unique (employee_id, date) constraint decides concurrent clock-ins
		return attendance.AttendanceResponse{}, err
	}
	created.EmployeeName = &emp.FullName

	metrics.AttendanceTransitions.WithLabelValues("clock_in").Inc()
	return attendance.NewAttendanceResponse(created, s.cfg.Scheme), nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, actor user.Actor, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var att attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.GetByIDForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		emp, err := s.employee(ctx, actor, att.EmployeeID)
		if err != nil {
			return err
		}
		if !actor.IsSelf(emp.ID) && !actor.CanManage(emp) {
			return user.Forbidden("cannot clock out for this employee")
		}
		return s.closeRecord(ctx, &att, attendance.ParseInstant(req.Instant), req.Location)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	metrics.AttendanceTransitions.WithLabelValues("clock_out").Inc()
	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// closeRecord sets clock_out and derives paid time and overtime. Runs inside a transaction.
func (s *AttendanceServiceImpl) closeRecord(ctx context.Context, att *attendance.Attendance, at *time.Time, location string) error {
	if !att.IsOpen() {
		return attendance.ErrAlreadyClockedOut
	}

	instant := s.clock.Now()
	if at != nil {
		instant = *at
	}
	if instant.Before(att.ClockIn) {
		return validator.ValidationErrors{{Field: "instant", Message: attendance.ErrClockOutBeforeIn.Error()}}
	}

	att.ClockOut = &instant
	att.ClockOutLocation = location
	if !att.PaidTimeAdjusted {
		att.PaidTime, _ = att.Logged()
	}
	s.stampOvertime(att)

	return s.attendanceRepo.Update(ctx, *att)
}

func (s *AttendanceServiceImpl) stampOvertime(att *attendance.Attendance) {
	att.OvertimeSeconds = att.ComputeOvertimeSeconds()
	date := att.Date
	att.OvertimeComputedFor = &date
}

// AdjustPaidTime implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AdjustPaidTime(ctx context.Context, actor user.Actor, req attendance.AdjustPaidTimeRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var (
		att attendance.Attendance
		emp employee.Employee
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.GetByIDForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		emp, err = s.employee(ctx, actor, att.EmployeeID)
		if err != nil {
			return err
		}
		if !actor.CanManage(emp) {
			return user.Forbidden("only HR, admins or the employee's manager may adjust paid time")
		}

		attendanceID := att.ID
		if _, err := s.adjustmentRepo.Create(ctx, attendance.Adjustment{
			CompanyID:        att.CompanyID,
			AttendanceID:     &attendanceID,
			EmployeeID:       att.EmployeeID,
			PreviousPaidTime: att.PaidTime,
			NewPaidTime:      req.Duration(),
			PerformedBy:      actor.UserID,
			Notes:            req.Notes,
		}); err != nil {
			return err
		}

		att.PaidTime = req.Duration()
		att.PaidTimeAdjusted = true
		att.Status = attendance.StatusPending
		att.ApprovedBy = nil
		att.ApprovedAt = nil
		s.stampOvertime(&att)

		return s.attendanceRepo.Update(ctx, att)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	metrics.AttendanceTransitions.WithLabelValues("adjust").Inc()
	s.notify(ctx, actor, emp, notification.TypeAttendanceAdjusted,
		"Paid time adjusted",
		fmt.Sprintf("Your paid time for %s was set to %s", att.Date.Format("2006-01-02"), duration.FormatUnsigned(att.PaidTime)),
		att)

	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// Approve implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Approve(ctx context.Context, actor user.Actor, req attendance.ApproveRequest) (attendance.AttendanceResponse, error) {
	target := s.cfg.Scheme.DefaultApproved()
	if req.Status != nil && !validator.IsEmpty(*req.Status) {
		st, ok := s.cfg.Scheme.ParseStatus(*req.Status)
		if !ok || !s.cfg.Scheme.IsTerminal(st) {
			return attendance.AttendanceResponse{}, attendance.ErrInvalidStatus
		}
		target = st
	}

	var (
		att     attendance.Attendance
		emp     employee.Employee
		changed bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.GetByIDForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		emp, err = s.employee(ctx, actor, att.EmployeeID)
		if err != nil {
			return err
		}
		if !actor.CanManage(emp) {
			return user.Forbidden("only HR, admins or the employee's manager may approve attendance")
		}
		if att.IsOpen() {
			return attendance.ErrAttendanceStillOpen
		}
		if att.Status == target {
			return nil
		}

		now := s.clock.Now()
		approver := actor.UserID
		att.Status = target
		att.ApprovedBy = &approver
		att.ApprovedAt = &now
		changed = true

		return s.attendanceRepo.Update(ctx, att)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if changed {
		metrics.AttendanceTransitions.WithLabelValues("approve").Inc()
		s.notify(ctx, actor, emp, notification.TypeAttendanceApproved,
			"Attendance approved",
			fmt.Sprintf("Your attendance for %s was marked %s", att.Date.Format("2006-01-02"), att.Status),
			att)
	}

	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// RevokeApproval implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RevokeApproval(ctx context.Context, actor user.Actor, id string) (attendance.AttendanceResponse, error) {
	var (
		att     attendance.Attendance
		emp     employee.Employee
		changed bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.GetByIDForUpdate(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		emp, err = s.employee(ctx, actor, att.EmployeeID)
		if err != nil {
			return err
		}
		if !actor.CanManage(emp) {
			return user.Forbidden("only HR, admins or the employee's manager may revoke approval")
		}
		if att.Status == attendance.StatusPending {
			return nil
		}

		att.Status = attendance.StatusPending
		att.ApprovedBy = nil
		att.ApprovedAt = nil
		changed = true

		return s.attendanceRepo.Update(ctx, att)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if changed {
		metrics.AttendanceTransitions.WithLabelValues("revoke").Inc()
		s.notify(ctx, actor, emp, notification.TypeAttendanceApprovalRevoked,
			"Attendance approval revoked",
			fmt.Sprintf("Approval of your attendance for %s was revoked", att.Date.Format("2006-01-02")),
			att)
	}

	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// Today implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Today(ctx context.Context, actor user.Actor, employeeID string, date *time.Time) (attendance.TodayResponse, error) {
	emp, err := s.resolveEmployee(ctx, actor, employeeID)
	if err != nil {
		return attendance.TodayResponse{}, err
	}
	if !actor.CanView(emp) {
		return attendance.TodayResponse{}, user.Forbidden("cannot view this employee's attendance")
	}

	day := clock.Today(s.clock)
	if date != nil {
		day = *date
	}

	resp := attendance.TodayResponse{
		EmployeeID: emp.ID,
		Date:       day.Format("2006-01-02"),
		State:      attendance.StateNone,
		Punches:    []attendance.Punch{},
	}

	att, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, day, emp.CompanyID)
	if err != nil {
		return attendance.TodayResponse{}, err
	}
	if att == nil {
		return resp, nil
	}

	resp.Punches = append(resp.Punches, attendance.Punch{
		Type:     attendance.CheckActionClockIn,
		At:       att.ClockIn.Format(time.RFC3339),
		Location: att.ClockInLocation,
	})
	if att.ClockOut != nil {
		resp.Punches = append(resp.Punches, attendance.Punch{
			Type:     attendance.CheckActionClockOut,
			At:       att.ClockOut.Format(time.RFC3339),
			Location: att.ClockOutLocation,
		})
	}
	resp.State = att.State(s.cfg.Scheme)
	full := attendance.NewAttendanceResponse(*att, s.cfg.Scheme)
	resp.Attendance = &full

	return resp, nil
}

// ========================================
// helpers
// ========================================

// resolveEmployee loads employeeID, or the actor's own employee record when it is empty.
func (s *AttendanceServiceImpl) resolveEmployee(ctx context.Context, actor user.Actor, employeeID string) (employee.Employee, error) {
	if employeeID == "" {
		if actor.EmployeeID == "" {
			return employee.Employee{}, user.Deny(user.ErrEmployeeProfileRequired)
		}
		employeeID = actor.EmployeeID
	}
	return s.employee(ctx, actor, employeeID)
}

// employee loads an employee of the actor's company. Other companies read as not found.
func (s *AttendanceServiceImpl) employee(ctx context.Context, actor user.Actor, id string) (employee.Employee, error) {
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.Employee{}, err
	}
	if emp.CompanyID != actor.CompanyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

// notify queues a notification for the employee's user account. Failures are logged only.
func (s *AttendanceServiceImpl) notify(ctx context.Context, actor user.Actor, emp employee.Employee, typ notification.NotificationType, title, message string, att attendance.Attendance) {
	if s.notifier == nil || emp.UserID == nil {
		return
	}
	sender := actor.UserID
	err := s.notifier.QueueNotification(ctx, notification.CreateNotificationRequest{
		CompanyID:   emp.CompanyID,
		RecipientID: *emp.UserID,
		SenderID:    &sender,
		Type:        typ,
		Title:       title,
		Message:     message,
		Data: map[string]interface{}{
			"attendance_id": att.ID,
			"date":          att.Date.Format("2006-01-02"),
			"status":        string(att.Status),
			"paid_time":     duration.FormatUnsigned(att.PaidTime),
		},
	})
	if err != nil {
		slog.Warn("attendance: failed to queue notification", "type", typ, "attendance_id", att.ID, "error", err)
	}
}

func requireElevated(actor user.Actor) error {
	if !actor.IsElevated() {
		return user.Deny(user.ErrElevatedAccessRequired)
	}
	return nil
}
