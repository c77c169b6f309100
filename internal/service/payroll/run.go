package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/ids"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"golang.org/x/sync/errgroup"
)

// countedStatuses are the attendance statuses whose time is paid.
var countedStatuses = []string{string(attendance.StatusApproved), string(attendance.StatusPresent)}

// runInputs is the data one run reads before it writes anything.
type runInputs struct {
	settings      payroll.Settings
	policy        payroll.ProrationPolicy
	employees     []employee.Employee
	missing       []string
	compensations map[string]compensation.Compensation
	totals        map[string]payroll.AttendanceTotals
}

// Run implements payroll.PayrollService.
//
// A run holds the cycle for its whole duration: an in-process lock first, then a
// transaction-scoped advisory lock in Postgres. Records are upserted per (cycle, employee),
// so running a closed cycle again replaces its records instead of adding new ones.
// An employee whose record cannot be written is reported in Failures and the run goes on.
// Records left from an earlier run for employees who are no longer eligible are removed.
func (s *PayrollServiceImpl) Run(ctx context.Context, actor user.Actor, cycleID string) (payroll.RunResult, error) {
	if err := requirePermission(actor, user.PermissionPayrollRun); err != nil {
		return payroll.RunResult{}, err
	}
	if !validator.IsValidUUID(cycleID) {
		return payroll.RunResult{}, payroll.ErrCycleNotFound
	}
	if !s.locks.tryAcquire(cycleID) {
		return payroll.RunResult{}, payroll.ErrRunInProgress
	}
	defer s.locks.release(cycleID)

	started := time.Now()
	defer metrics.ObserveJob("payroll_run", started)

	now := s.clock.Now()
	result := payroll.RunResult{
		RunID:    ids.NewRunIDAt(now),
		CycleID:  cycleID,
		Records:  []payroll.RecordResponse{},
		Warnings: []payroll.RunWarning{},
		Failures: []payroll.RecordFailure{},
	}

	var (
		cycle payroll.Cycle
		saved []payroll.Record
	)
	byID := make(map[string]employee.Employee)
	var eligibleIDs []string
	readCtx := ctx
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.payrollRepo.TryLockCycle(ctx, cycleID)
		if err != nil {
			return err
		}
		if !locked {
			return payroll.ErrRunInProgress
		}

		cycle, err = s.payrollRepo.GetCycleByID(ctx, cycleID, actor.CompanyID)
		if err != nil {
			return err
		}

		// inputs are read on pooled connections so they can load in parallel
		in, err := s.loadRunInputs(readCtx, cycle)
		if err != nil {
			return err
		}
		for _, id := range in.missing {
			result.Warnings = append(result.Warnings, payroll.RunWarning{EmployeeID: id, Message: employee.ErrEmployeeNotFound.Error()})
		}

		for _, emp := range in.employees {
			byID[emp.ID] = emp
			eligibleIDs = append(eligibleIDs, emp.ID)
			calc := payroll.CalcInput{
				Cycle:    cycle,
				Settings: in.settings,
				Policy:   in.policy,
				Employee: emp,
				Totals:   in.totals[emp.ID],
			}
			if c, ok := in.compensations[emp.ID]; ok {
				calc.Compensation = &c
			}
			rec := payroll.Calculate(calc)
			rec.RunID = result.RunID
			if rec.Warning != nil {
				result.Warnings = append(result.Warnings, payroll.RunWarning{EmployeeID: emp.ID, Message: *rec.Warning})
			}

			var created bool
			err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				var err error
				rec, created, err = s.payrollRepo.UpsertRecord(ctx, rec)
				return err
			})
			if err != nil {
				slog.Warn("Payroll: record failed", "cycle_id", cycle.ID, "employee_id", emp.ID, "error", err)
				result.Failures = append(result.Failures, payroll.RecordFailure{EmployeeID: emp.ID, Error: err.Error()})
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			name := emp.FullName
			rec.EmployeeName = &name
			saved = append(saved, rec)
		}

		removed, err := s.payrollRepo.DeleteRecordsExcept(ctx, cycle.ID, eligibleIDs)
		if err != nil {
			return err
		}
		result.Removed = int(removed)

		return s.payrollRepo.MarkCycleRun(ctx, cycle.ID, result.RunID, now)
	})
	if err != nil {
		return payroll.RunResult{}, err
	}

	for _, rec := range saved {
		result.Records = append(result.Records, payroll.NewRecordResponse(rec))
	}
	metrics.PayrollRecords.WithLabelValues("created").Add(float64(result.Created))
	metrics.PayrollRecords.WithLabelValues("updated").Add(float64(result.Updated))
	metrics.PayrollRecords.WithLabelValues("removed").Add(float64(result.Removed))
	metrics.PayrollRecords.WithLabelValues("failed").Add(float64(len(result.Failures)))

	s.notifyGenerated(ctx, actor, cycle, saved, byID)

	slog.Info("Payroll: run finished",
		"cycle_id", cycle.ID,
		"run_id", result.RunID,
		"created", result.Created,
		"updated", result.Updated,
		"removed", result.Removed,
		"warnings", len(result.Warnings),
		"failures", len(result.Failures),
	)
	return result, nil
}

func (s *PayrollServiceImpl) loadRunInputs(ctx context.Context, cycle payroll.Cycle) (runInputs, error) {
	var in runInputs

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Settings and proration policy
	g.Go(func() error {
		settings, _, err := s.settings(gCtx, cycle.CompanyID)
		if err != nil {
			return err
		}
		policy, err := payroll.NewProrationPolicy(settings)
		if err != nil {
			return err
		}
		in.settings, in.policy = settings, policy
		return nil
	})

	// 2. Eligible employees
	g.Go(func() error {
		emps, missing, err := s.eligible(gCtx, cycle)
		if err != nil {
			return err
		}
		in.employees, in.missing = emps, missing
		return nil
	})

	if err := g.Wait(); err != nil {
		return runInputs{}, err
	}

	employeeIDs := make([]string, 0, len(in.employees))
	for _, e := range in.employees {
		employeeIDs = append(employeeIDs, e.ID)
	}

	g, gCtx = errgroup.WithContext(ctx)

	// 3. Compensation snapshots
	g.Go(func() error {
		comps, err := s.compensationRepo.ListActiveByEmployees(gCtx, cycle.CompanyID, employeeIDs)
		if err != nil {
			return fmt.Errorf("failed to get compensations: %w", err)
		}
		in.compensations = comps
		return nil
	})

	// 4. Approved attendance in the period
	g.Go(func() error {
		totals, err := s.payrollRepo.GetAttendanceTotals(gCtx, cycle.CompanyID, employeeIDs, cycle.PeriodStart, cycle.PeriodEnd, countedStatuses)
		if err != nil {
			return fmt.Errorf("failed to get attendance totals: %w", err)
		}
		in.totals = totals
		return nil
	})

	if err := g.Wait(); err != nil {
		return runInputs{}, err
	}
	return in, nil
}

// eligible resolves the cycle's employees, sorted by name. For list eligibility,
// ids that are not in the company are returned as missing.
func (s *PayrollServiceImpl) eligible(ctx context.Context, cycle payroll.Cycle) ([]employee.Employee, []string, error) {
	var (
		emps    []employee.Employee
		missing []string
		err     error
	)
	switch cycle.Eligibility {
	case payroll.EligibilityList:
		emps, err = s.employeeRepo.GetByIDs(ctx, cycle.CompanyID, cycle.EligibleEmployees)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get employees: %w", err)
		}
		found := make(map[string]bool, len(emps))
		for _, e := range emps {
			found[e.ID] = true
		}
		for _, id := range cycle.EligibleEmployees {
			if !found[id] {
				missing = append(missing, id)
			}
		}
	default:
		criteria := cycle.Criteria
		if criteria.HiredOnOrBefore == nil {
			cutoff := cycle.HireCutoff()
			criteria.HiredOnOrBefore = &cutoff
		}
		emps, err = s.employeeRepo.ListByCriteria(ctx, cycle.CompanyID, criteria)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get employees: %w", err)
		}
	}

	sort.SliceStable(emps, func(i, j int) bool { return emps[i].FullName < emps[j].FullName })
	return emps, missing, nil
}

// notifyGenerated tells each paid employee that their record is ready. Failures are only logged.
func (s *PayrollServiceImpl) notifyGenerated(ctx context.Context, actor user.Actor, cycle payroll.Cycle, records []payroll.Record, employees map[string]employee.Employee) {
	if s.notifier == nil {
		return
	}
	sender := actor.UserID
	for _, rec := range records {
		emp, ok := employees[rec.EmployeeID]
		if !ok || emp.UserID == nil {
			continue
		}
		err := s.notifier.QueueNotification(ctx, notification.CreateNotificationRequest{
			CompanyID:   cycle.CompanyID,
			RecipientID: *emp.UserID,
			SenderID:    &sender,
			Type:        notification.TypePayrollGenerated,
			Title:       "Payroll generated",
			Message:     fmt.Sprintf("Your payroll for %s is ready. Net pay: %s", cycle.Name, rec.Net.StringFixed(2)),
			Data: map[string]interface{}{
				"record_id": rec.ID,
				"cycle_id":  cycle.ID,
				"run_id":    rec.RunID,
				"net":       rec.Net.StringFixed(2),
			},
		})
		if err != nil {
			slog.Warn("Payroll: notification failed", "employee_id", rec.EmployeeID, "error", err)
		}
	}
}
