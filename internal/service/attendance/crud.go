package attendance

import (
	"context"
	"fmt"
	"math"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, actor user.Actor, id string) (attendance.AttendanceResponse, error) {
	att, err := s.attendanceRepo.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := s.authorizeView(ctx, actor, att.EmployeeID); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// ListAttendance implements attendance.AttendanceService.
// The filter is narrowed to what the actor may read before it reaches the repository.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, actor user.Actor, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	if filter.Status != nil && *filter.Status != "" {
		st, ok := s.cfg.Scheme.ParseStatus(*filter.Status)
		if !ok {
			return attendance.ListAttendanceResponse{}, validator.ValidationErrors{{Field: "status", Message: s.cfg.Scheme.InvalidStatusMessage()}}
		}
		normalized := string(st)
		filter.Status = &normalized
	}

	filter.CompanyID = actor.CompanyID
	switch {
	case actor.IsElevated():
	case actor.Role == user.RoleManager && actor.EmployeeID != "":
		filter.ScopeManagerID = &actor.EmployeeID
	case actor.EmployeeID != "":
		filter.ScopeEmployeeID = &actor.EmployeeID
	default:
		return attendance.ListAttendanceResponse{}, user.Deny(user.ErrEmployeeProfileRequired)
	}

	attendances, total, err := s.attendanceRepo.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(attendances))
	for _, att := range attendances {
		responses = append(responses, attendance.NewAttendanceResponse(att, s.cfg.Scheme))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// CreateAttendance implements attendance.AttendanceService. Used by HR to record a missed day.
func (s *AttendanceServiceImpl) CreateAttendance(ctx context.Context, actor user.Actor, req attendance.CreateAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := requireElevated(actor); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	status := attendance.StatusPending
	if req.Status != nil && !validator.IsEmpty(*req.Status) {
		st, ok := s.cfg.Scheme.ParseStatus(*req.Status)
		if !ok {
			return attendance.AttendanceResponse{}, validator.ValidationErrors{{Field: "status", Message: s.cfg.Scheme.InvalidStatusMessage()}}
		}
		status = st
	}

	emp, err := s.employee(ctx, actor, req.EmployeeID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	clockIn := *attendance.ParseInstant(&req.ClockIn)
	hours := emp.DailyHours(s.cfg.DefaultScheduledHours)
	att := attendance.Attendance{
		CompanyID:        emp.CompanyID,
		EmployeeID:       emp.ID,
		Date:             clock.DateOf(clockIn, s.clock.Location()),
		ClockIn:          clockIn,
		ClockInLocation:  req.ClockInLocation,
		ClockOut:         attendance.ParseInstant(req.ClockOut),
		ClockOutLocation: req.ClockOutLocation,
		PaidTime:         duration.Hours(hours),
		ScheduledHours:   hours,
		Status:           status,
	}
	if logged, ok := att.Logged(); ok {
		att.PaidTime = logged
		s.stampOvertime(&att)
	}
	if s.cfg.Scheme.IsTerminal(status) {
		now := s.clock.Now()
		approver := actor.UserID
		att.ApprovedBy = &approver
		att.ApprovedAt = &now
	}

	created, err := s.attendanceRepo.Create(ctx, att)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	created.EmployeeName = &emp.FullName

	metrics.AttendanceTransitions.WithLabelValues("create").Inc()
	return attendance.NewAttendanceResponse(created, s.cfg.Scheme), nil
}

// UpdateAttendance implements attendance.AttendanceService.
// Only clock instants and locations change here; the record date stays fixed.
func (s *AttendanceServiceImpl) UpdateAttendance(ctx context.Context, actor user.Actor, req attendance.UpdateAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := requireElevated(actor); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	var att attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		att, err = s.attendanceRepo.GetByIDForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}

		if t := attendance.ParseInstant(req.ClockIn); t != nil {
			att.ClockIn = *t
		}
		if t := attendance.ParseInstant(req.ClockOut); t != nil {
			att.ClockOut = t
		}
		if req.ClockInLocation != nil {
			att.ClockInLocation = *req.ClockInLocation
		}
		if req.ClockOutLocation != nil {
			att.ClockOutLocation = *req.ClockOutLocation
		}
		if att.ClockOut != nil && att.ClockOut.Before(att.ClockIn) {
			return validator.ValidationErrors{{Field: "clock_out", Message: attendance.ErrClockOutBeforeIn.Error()}}
		}

		if logged, ok := att.Logged(); ok {
			if !att.PaidTimeAdjusted {
				att.PaidTime = logged
			}
			s.stampOvertime(&att)
		}

		return s.attendanceRepo.Update(ctx, att)
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	return attendance.NewAttendanceResponse(att, s.cfg.Scheme), nil
}

// DeleteAttendance implements attendance.AttendanceService.
// Adjustment rows survive with a null attendance reference.
func (s *AttendanceServiceImpl) DeleteAttendance(ctx context.Context, actor user.Actor, id string) error {
	if !actor.IsAdmin() {
		return user.Deny(user.ErrAdminPrivilegeRequired)
	}
	return s.attendanceRepo.Delete(ctx, id, actor.CompanyID)
}

// ListAdjustments implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAdjustments(ctx context.Context, actor user.Actor, attendanceID string) ([]attendance.AdjustmentResponse, error) {
	att, err := s.attendanceRepo.GetByID(ctx, attendanceID, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, att.EmployeeID); err != nil {
		return nil, err
	}

	adjustments, err := s.adjustmentRepo.ListByAttendance(ctx, att.ID, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	out := make([]attendance.AdjustmentResponse, 0, len(adjustments))
	for _, adj := range adjustments {
		out = append(out, attendance.NewAdjustmentResponse(adj))
	}
	return out, nil
}

func (s *AttendanceServiceImpl) authorizeView(ctx context.Context, actor user.Actor, employeeID string) error {
	if actor.IsSelf(employeeID) || actor.IsElevated() {
		return nil
	}
	emp, err := s.employee(ctx, actor, employeeID)
	if err != nil {
		return err
	}
	if !actor.CanView(emp) {
		return user.Forbidden("cannot view this employee's attendance")
	}
	return nil
}
