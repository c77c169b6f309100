package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

type cidrPolicy struct {
	repo attendance.OfficeNetworkRepository
}

// NewNetworkPolicy matches client addresses against the company's active office networks.
func NewNetworkPolicy(repo attendance.OfficeNetworkRepository) attendance.NetworkPolicy {
	return &cidrPolicy{repo: repo}
}

// Allowed implements attendance.NetworkPolicy. Unparseable addresses are never allowed.
func (p *cidrPolicy) Allowed(ctx context.Context, companyID string, ip string) (bool, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false, nil
	}
	addr = addr.Unmap()

	networks, err := p.repo.ListActive(ctx, companyID)
	if err != nil {
		return false, fmt.Errorf("failed to load office networks: %w", err)
	}

	for _, n := range networks {
		prefix, err := netip.ParsePrefix(n.CIDR)
		if err != nil {
			slog.Warn("attendance: skipping malformed office network", "id", n.ID, "cidr", n.CIDR)
			continue
		}
		if prefix.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

// Check implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Check(ctx context.Context, actor user.Actor, req attendance.CheckRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if !(actor.IsElevated() && s.cfg.ElevatedBypassNetwork) {
		allowed, err := s.policy.Allowed(ctx, actor.CompanyID, req.ClientIP)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		if !allowed {
			return attendance.AttendanceResponse{}, user.Deny(attendance.ErrOutsideOfficeNetwork)
		}
	}

	if req.Action == attendance.CheckActionClockIn {
		return s.ClockIn(ctx, actor, attendance.ClockInRequest{EmployeeID: req.EmployeeID, Location: req.Location})
	}
	return s.clockOutCurrent(ctx, actor, req.EmployeeID, req.Location)
}

// clockOutCurrent closes today's record, or yesterday's if it is still open (overnight shifts).
func (s *AttendanceServiceImpl) clockOutCurrent(ctx context.Context, actor user.Actor, employeeID, location string) (attendance.AttendanceResponse, error) {
	emp, err := s.resolveEmployee(ctx, actor, employeeID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if !actor.IsSelf(emp.ID) && !actor.CanManage(emp) {
		return attendance.AttendanceResponse{}, user.Forbidden("cannot clock out for this employee")
	}

	today := clock.Today(s.clock)
	var target *attendance.Attendance
	for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
		att, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, day, emp.CompanyID)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		if att == nil {
			continue
		}
		if day.Equal(today) || att.IsOpen() {
			target = att
			break
		}
	}
	if target == nil {
		return attendance.AttendanceResponse{}, attendance.ErrNotClockedIn
	}

	return s.ClockOut(ctx, actor, attendance.ClockOutRequest{ID: target.ID, Location: location})
}

// NetworkStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) NetworkStatus(ctx context.Context, actor user.Actor, employeeID string, ip string) (attendance.NetworkStatusResponse, error) {
	emp, err := s.resolveEmployee(ctx, actor, employeeID)
	if err != nil {
		return attendance.NetworkStatusResponse{}, err
	}
	if !actor.CanView(emp) {
		return attendance.NetworkStatusResponse{}, user.Forbidden("cannot view this employee")
	}

	allowed, err := s.policy.Allowed(ctx, actor.CompanyID, ip)
	if err != nil {
		return attendance.NetworkStatusResponse{}, err
	}

	return attendance.NetworkStatusResponse{IP: ip, IsOfficeNetwork: allowed, Employee: emp.ID}, nil
}

// ListOfficeNetworks implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListOfficeNetworks(ctx context.Context, actor user.Actor) ([]attendance.OfficeNetworkResponse, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	networks, err := s.networkRepo.List(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]attendance.OfficeNetworkResponse, 0, len(networks))
	for _, n := range networks {
		out = append(out, attendance.NewOfficeNetworkResponse(n))
	}
	return out, nil
}

// CreateOfficeNetwork implements attendance.AttendanceService. The CIDR is stored in canonical form.
func (s *AttendanceServiceImpl) CreateOfficeNetwork(ctx context.Context, actor user.Actor, req attendance.CreateOfficeNetworkRequest) (attendance.OfficeNetworkResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.OfficeNetworkResponse{}, err
	}
	if err := requireElevated(actor); err != nil {
		return attendance.OfficeNetworkResponse{}, err
	}

	prefix, err := netip.ParsePrefix(req.CIDR)
	if err != nil {
		return attendance.OfficeNetworkResponse{}, validator.ValidationErrors{{Field: "cidr", Message: "cidr must be a valid CIDR block"}}
	}

	created, err := s.networkRepo.Create(ctx, attendance.OfficeNetwork{
		CompanyID: actor.CompanyID,
		CIDR:      prefix.Masked().String(),
		Label:     req.Label,
		IsActive:  true,
	})
	if err != nil {
		return attendance.OfficeNetworkResponse{}, err
	}

	return attendance.NewOfficeNetworkResponse(created), nil
}

// DeleteOfficeNetwork implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) DeleteOfficeNetwork(ctx context.Context, actor user.Actor, id string) error {
	if err := requireElevated(actor); err != nil {
		return err
	}
	return s.networkRepo.Delete(ctx, id, actor.CompanyID)
}
