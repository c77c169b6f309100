package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// summaryRange resolves the filter dates; defaults are the first of the current month and today.
func (s *AttendanceServiceImpl) summaryRange(filter attendance.SummaryFilter) (time.Time, time.Time, *attendance.Status, error) {
	if err := filter.Validate(); err != nil {
		return time.Time{}, time.Time{}, nil, err
	}

	today := clock.Today(s.clock)
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := today

	var errs validator.ValidationErrors
	if d := validator.ParseOptionalDate("start_date", filter.StartDate, &errs); d != nil {
		start = *d
	}
	if d := validator.ParseOptionalDate("end_date", filter.EndDate, &errs); d != nil {
		end = *d
	}
	if end.Before(start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}

	var status *attendance.Status
	if filter.Status != nil && !validator.IsEmpty(*filter.Status) {
		st, ok := s.cfg.Scheme.ParseStatus(*filter.Status)
		if !ok {
			errs.Add("status", s.cfg.Scheme.InvalidStatusMessage())
		}
		status = &st
	}

	return start, end, status, errs.Err()
}

// MySummary implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) MySummary(ctx context.Context, actor user.Actor, filter attendance.SummaryFilter) (attendance.MySummaryResponse, error) {
	if actor.EmployeeID == "" {
		return attendance.MySummaryResponse{}, user.Deny(user.ErrEmployeeProfileRequired)
	}
	start, end, status, err := s.summaryRange(filter)
	if err != nil {
		return attendance.MySummaryResponse{}, err
	}

	emp, err := s.employee(ctx, actor, actor.EmployeeID)
	if err != nil {
		return attendance.MySummaryResponse{}, err
	}

	records, err := s.attendanceRepo.ListForSummary(ctx, attendance.SummaryQuery{
		CompanyID:   actor.CompanyID,
		EmployeeIDs: []string{emp.ID},
		Start:       start,
		End:         end,
		Status:      status,
	})
	if err != nil {
		return attendance.MySummaryResponse{}, err
	}

	totals := attendance.Totals{EmployeeID: emp.ID, EmployeeName: emp.FullName}
	for _, r := range records {
		totals.Add(r)
	}

	return attendance.MySummaryResponse{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		Summary:   attendance.NewSummaryResponse(totals),
	}, nil
}

// TeamSummary implements attendance.AttendanceService.
// HR and admins see the whole company; managers see their direct reports.
func (s *AttendanceServiceImpl) TeamSummary(ctx context.Context, actor user.Actor, filter attendance.SummaryFilter) (attendance.TeamSummaryResponse, error) {
	start, end, status, err := s.summaryRange(filter)
	if err != nil {
		return attendance.TeamSummaryResponse{}, err
	}

	q := attendance.SummaryQuery{
		CompanyID: actor.CompanyID,
		Start:     start,
		End:       end,
		Status:    status,
		Office:    filter.Office,
	}

	switch {
	case actor.IsElevated():
	case actor.Role == user.RoleManager:
		if actor.EmployeeID == "" {
			return attendance.TeamSummaryResponse{}, user.Deny(user.ErrEmployeeProfileRequired)
		}
		reports, err := s.employeeRepo.ListDirectReports(ctx, actor.EmployeeID)
		if err != nil {
			return attendance.TeamSummaryResponse{}, err
		}
		q.EmployeeIDs = make([]string, 0, len(reports))
		for _, r := range reports {
			q.EmployeeIDs = append(q.EmployeeIDs, r.ID)
		}
	default:
		return attendance.TeamSummaryResponse{}, user.Deny(user.ErrManagerAccessRequired)
	}

	resp := attendance.TeamSummaryResponse{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
		Employees: []attendance.SummaryResponse{},
	}
	if q.EmployeeIDs != nil && len(q.EmployeeIDs) == 0 {
		return resp, nil
	}

	records, err := s.attendanceRepo.ListForSummary(ctx, q)
	if err != nil {
		return attendance.TeamSummaryResponse{}, err
	}

	for _, t := range groupTotals(records) {
		resp.Employees = append(resp.Employees, attendance.NewSummaryResponse(t))
	}
	return resp, nil
}

// groupTotals folds records per employee, keeping first-seen order.
func groupTotals(records []attendance.Attendance) []attendance.Totals {
	index := make(map[string]int)
	var out []attendance.Totals
	for _, r := range records {
		i, ok := index[r.EmployeeID]
		if !ok {
			name := ""
			if r.EmployeeName != nil {
				name = *r.EmployeeName
			}
			out = append(out, attendance.Totals{EmployeeID: r.EmployeeID, EmployeeName: name})
			i = len(out) - 1
			index[r.EmployeeID] = i
		}
		out[i].Add(r)
	}
	return out
}
