package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/ids"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	companyID  = "5f1d0c2e-0000-4000-8000-000000000001"
	aliceID    = "5f1d0c2e-0000-4000-8000-000000000010"
	bobID      = "5f1d0c2e-0000-4000-8000-000000000011"
	carolID    = "5f1d0c2e-0000-4000-8000-000000000012"
	strangerID = "5f1d0c2e-0000-4000-8000-0000000000ff"
)

type harness struct {
	svc      payroll.PayrollService
	impl     *PayrollServiceImpl
	repo     *memPayrollRepo
	emps     *memEmployees
	comps    *memCompensations
	notifier *recordingNotifier
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func newHarness() *harness {
	aliceUser := "user-alice"
	emps := &memEmployees{byID: map[string]employee.Employee{
		aliceID: {ID: aliceID, CompanyID: companyID, UserID: &aliceUser, FullName: "Alice", Office: "Jakarta",
			EmploymentStatus: employee.EmploymentStatusActive, HireDate: date("2024-01-01")},
		bobID: {ID: bobID, CompanyID: companyID, FullName: "Bob", Office: "Bandung",
			EmploymentStatus: employee.EmploymentStatusActive, HireDate: date("2024-06-01")},
		carolID: {ID: carolID, CompanyID: companyID, FullName: "Carol", Office: "Jakarta",
			EmploymentStatus: employee.EmploymentStatusActive, HireDate: date("2025-04-15")},
	}}
	comps := &memCompensations{byEmployee: map[string]compensation.Compensation{
		aliceID: {EmployeeID: aliceID, IsActive: true, Components: []compensation.SalaryComponent{
			{Kind: compensation.KindBase, Amount: dec("3000.00"), Label: "Base"},
			{Kind: compensation.KindRecurring, Amount: dec("200.00"), Label: "Transport"},
			{Kind: compensation.KindOneOff, Amount: dec("150.00"), Label: "Bonus"},
			{Kind: compensation.KindOffset, Amount: dec("50.00"), Label: "Canteen"},
		}},
		carolID: {EmployeeID: carolID, IsActive: true, Components: []compensation.SalaryComponent{
			{Kind: compensation.KindBase, Amount: dec("1000.00")},
		}},
	}}
	repo := newMemPayrollRepo()
	notifier := &recordingNotifier{}
	clk := clock.Fixed(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))

	svc := NewPayrollService(fakeTx{}, repo, comps, emps, notifier, clk, Config{})
	return &harness{svc: svc, impl: svc.(*PayrollServiceImpl), repo: repo, emps: emps, comps: comps, notifier: notifier}
}

func hr() user.Actor {
	return user.Actor{UserID: "user-hr", CompanyID: companyID, Role: user.RoleHR}
}

func alice() user.Actor {
	return user.Actor{UserID: "user-alice", EmployeeID: aliceID, CompanyID: companyID, Role: user.RoleEmployee}
}

func (h *harness) listCycle(t *testing.T, ids ...string) string {
	t.Helper()
	c, err := h.svc.CreateCycle(context.Background(), hr(), payroll.CreateCycleRequest{
		Name:        "March 2025",
		PeriodStart: "2025-03-01",
		PeriodEnd:   "2025-03-31",
		Eligibility: "list",
		EmployeeIDs: ids,
	})
	require.NoError(t, err)
	return c.ID
}

func TestRunComputesNetFromComponents(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID)

	res, err := h.svc.Run(context.Background(), hr(), cycleID)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "3300.00", rec.Net)
	assert.Equal(t, "3000.00", rec.ProratedBase)
	assert.Equal(t, "0.00", rec.AttendanceAdjustment)
	assert.Equal(t, res.RunID, rec.RunID)

	_, err = ids.RunTime(res.RunID)
	assert.NoError(t, err)

	cycle := h.repo.cycles[cycleID]
	assert.Equal(t, payroll.CycleStatusClosed, cycle.Status)
	require.NotNil(t, cycle.LastRunID)
	assert.Equal(t, res.RunID, *cycle.LastRunID)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notification.TypePayrollGenerated, h.notifier.sent[0].Type)
	assert.Equal(t, "user-alice", h.notifier.sent[0].RecipientID)
}

func TestRerunSupersedesWithoutDuplicates(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID, bobID)
	ctx := context.Background()

	first, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 2, h.repo.recordCount())

	// a raise between runs shows up in the rerun
	c := h.comps.byEmployee[aliceID]
	c.Components = append(c.Components, compensation.SalaryComponent{Kind: compensation.KindRecurring, Amount: dec("100.00")})
	h.comps.byEmployee[aliceID] = c

	second, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 2, h.repo.recordCount())
	assert.NotEqual(t, first.RunID, second.RunID)

	byEmployee := map[string]payroll.RecordResponse{}
	for _, r := range second.Records {
		byEmployee[r.EmployeeID] = r
	}
	firstAlice := first.Records[0]
	for _, r := range first.Records {
		if r.EmployeeID == aliceID {
			firstAlice = r
		}
	}
	assert.Equal(t, firstAlice.ID, byEmployee[aliceID].ID)
	assert.Equal(t, "3400.00", byEmployee[aliceID].Net)
	assert.Equal(t, 1, byEmployee[aliceID].SupersededCount)
	assert.Equal(t, second.RunID, byEmployee[aliceID].RunID)
}

func TestRerunRemovesEmployeesNoLongerEligible(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c, err := h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name:        "March Jakarta",
		PeriodStart: "2025-03-01",
		PeriodEnd:   "2025-03-31",
		Eligibility: "criteria",
		Criteria:    &payroll.CriteriaInput{Office: strPtr("jakarta")},
	})
	require.NoError(t, err)

	first, err := h.svc.Run(ctx, hr(), c.ID)
	require.NoError(t, err)
	require.Len(t, first.Records, 1)
	assert.Equal(t, 0, first.Removed)

	a := h.emps.byID[aliceID]
	a.EmploymentStatus = employee.EmploymentStatusResigned
	h.emps.byID[aliceID] = a

	second, err := h.svc.Run(ctx, hr(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Records)
	assert.Equal(t, 1, second.Removed)
	assert.Equal(t, 0, h.repo.recordCount())

	cycleID := c.ID
	recs, err := h.svc.ListRecords(ctx, hr(), payroll.RecordFilter{CycleID: &cycleID})
	require.NoError(t, err)
	assert.Empty(t, recs.Records)
}

func TestRerunKeepsRecordOfFailedEmployee(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID, bobID)
	ctx := context.Background()

	first, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	h.repo.failUpsert[aliceID] = errDiskFull
	second, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, 0, second.Removed)
	assert.Equal(t, 2, h.repo.recordCount())
	assert.Equal(t, first.RunID, h.repo.records[cycleID+"|"+aliceID].RunID)
}

func TestRunWarnsForEmployeeOutsidePeriod(t *testing.T) {
	h := newHarness()
	left := date("2025-02-10")
	a := h.emps.byID[aliceID]
	a.EmploymentStatus = employee.EmploymentStatusTerminated
	a.TerminationDate = &left
	h.emps.byID[aliceID] = a

	// Carol starts in April
	res, err := h.svc.Run(context.Background(), hr(), h.listCycle(t, aliceID, carolID))
	require.NoError(t, err)

	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.Equal(t, payroll.ErrNotEmployedInPeriod.Error(), w.Message)
	}
	require.Len(t, res.Records, 2)
	for _, r := range res.Records {
		assert.Equal(t, "0.00", r.Gross)
		assert.Equal(t, "0.00", r.Net)
	}
}

func TestRunWarnsWhenCompensationMissing(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID, bobID)

	res, err := h.svc.Run(context.Background(), hr(), cycleID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, bobID, res.Warnings[0].EmployeeID)
	assert.Equal(t, payroll.ErrMissingCompensation.Error(), res.Warnings[0].Message)

	for _, r := range res.Records {
		if r.EmployeeID == bobID {
			assert.Equal(t, "0.00", r.Net)
			require.NotNil(t, r.Warning)
		}
	}
}

func TestRunCollectsPerEmployeeFailures(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID, bobID)
	h.repo.failUpsert[bobID] = errDiskFull

	res, err := h.svc.Run(context.Background(), hr(), cycleID)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, bobID, res.Failures[0].EmployeeID)
	assert.Contains(t, res.Failures[0].Error, "disk full")
	assert.Equal(t, payroll.CycleStatusClosed, h.repo.cycles[cycleID].Status)
}

func TestRunIsExclusivePerCycle(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID)
	ctx := context.Background()

	require.True(t, h.impl.locks.tryAcquire(cycleID))
	_, err := h.svc.Run(ctx, hr(), cycleID)
	assert.ErrorIs(t, err, payroll.ErrRunInProgress)

	got, err := h.svc.GetCycle(ctx, hr(), cycleID)
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status)
	_, err = h.svc.UpdateCycle(ctx, hr(), payroll.UpdateCycleRequest{ID: cycleID, Name: strPtr("x")})
	assert.ErrorIs(t, err, payroll.ErrCycleLocked)
	h.impl.locks.release(cycleID)

	// another process holds the advisory lock
	h.repo.lockHeld = true
	_, err = h.svc.Run(ctx, hr(), cycleID)
	assert.ErrorIs(t, err, payroll.ErrRunInProgress)
	assert.Equal(t, 0, h.repo.recordCount())

	h.repo.lockHeld = false
	_, err = h.svc.Run(ctx, hr(), cycleID)
	assert.NoError(t, err)
}

func TestRunByCriteria(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c, err := h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name:        "March Jakarta",
		PeriodStart: "2025-03-01",
		PeriodEnd:   "2025-03-31",
		Eligibility: "criteria",
		Criteria:    &payroll.CriteriaInput{Office: strPtr("jakarta")},
	})
	require.NoError(t, err)

	res, err := h.svc.Run(ctx, hr(), c.ID)
	require.NoError(t, err)

	// Carol is in Jakarta but hired after the period ends; Bob is in Bandung
	require.Len(t, res.Records, 1)
	assert.Equal(t, aliceID, res.Records[0].EmployeeID)
}

func TestRunPaysApprovedOvertime(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID)
	h.repo.totals[aliceID] = payroll.AttendanceTotals{Days: 20, OvertimeSeconds: 4 * 3600, DeficitSeconds: 2 * 3600}

	res, err := h.svc.Run(context.Background(), hr(), cycleID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{string(attendance.StatusApproved), string(attendance.StatusPresent)}, h.repo.statuses)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "107.14", res.Records[0].OvertimePay)
	assert.Equal(t, "35.71", res.Records[0].DeficitDeduction)
	assert.Equal(t, "3371.43", res.Records[0].Net)
	assert.Equal(t, "04:00:00", res.Records[0].Overtime)
}

func TestRunUsesSavedSettings(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, err := h.svc.UpdateSettings(ctx, hr(), payroll.UpdateSettingsRequest{ProrationPolicy: strPtr("actual_days")})
	require.NoError(t, err)

	c, err := h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name: "April", PeriodStart: "2025-04-01", PeriodEnd: "2025-04-30",
		Eligibility: "list", EmployeeIDs: []string{carolID},
	})
	require.NoError(t, err)

	res, err := h.svc.Run(ctx, hr(), c.ID)
	require.NoError(t, err)
	// hired on the 15th: 16 of 30 calendar days
	require.Len(t, res.Records, 1)
	assert.Equal(t, "533.33", res.Records[0].ProratedBase)
}

func TestRunPermissions(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID)

	_, err := h.svc.Run(context.Background(), alice(), cycleID)
	assert.ErrorIs(t, err, user.ErrForbidden)

	manager := user.Actor{UserID: "u-m", EmployeeID: bobID, CompanyID: companyID, Role: user.RoleManager}
	_, err = h.svc.Run(context.Background(), manager, cycleID)
	assert.True(t, user.IsForbidden(err))

	_, err = h.svc.Run(context.Background(), hr(), "not-a-uuid")
	assert.ErrorIs(t, err, payroll.ErrCycleNotFound)
}

func TestClosedCycleCannotChange(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID)
	ctx := context.Background()

	_, err := h.svc.UpdateCycle(ctx, hr(), payroll.UpdateCycleRequest{ID: cycleID, Name: strPtr("March (final)")})
	require.NoError(t, err)

	_, err = h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)

	_, err = h.svc.UpdateCycle(ctx, hr(), payroll.UpdateCycleRequest{ID: cycleID, Name: strPtr("again")})
	assert.ErrorIs(t, err, payroll.ErrCycleLocked)
	assert.ErrorIs(t, h.svc.DeleteCycle(ctx, hr(), cycleID), payroll.ErrCycleLocked)

	// running again is still allowed
	_, err = h.svc.Run(ctx, hr(), cycleID)
	assert.NoError(t, err)
}

func TestCreateCycleValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name: "Bad", PeriodStart: "2025-03-31", PeriodEnd: "2025-03-01", Eligibility: "criteria",
	})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.ToMap(), "period_end")

	_, err = h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name: "Stranger", PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", Eligibility: "list",
		EmployeeIDs: []string{aliceID, strangerID},
	})
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.ToMap(), "employee_ids[1]")

	_, err = h.svc.CreateCycle(ctx, hr(), payroll.CreateCycleRequest{
		Name: "Empty list", PeriodStart: "2025-03-01", PeriodEnd: "2025-03-31", Eligibility: "list",
	})
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs.ToMap(), "employee_ids")
}

func TestRecordScope(t *testing.T) {
	h := newHarness()
	cycleID := h.listCycle(t, aliceID, bobID)
	ctx := context.Background()
	_, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)

	all, err := h.svc.ListRecords(ctx, hr(), payroll.RecordFilter{CycleID: &cycleID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)
	assert.Equal(t, "1-2 of 2", all.Showing)

	own, err := h.svc.ListRecords(ctx, alice(), payroll.RecordFilter{EmployeeID: strPtr(bobID)})
	require.NoError(t, err)
	require.Len(t, own.Records, 1)
	assert.Equal(t, aliceID, own.Records[0].EmployeeID)

	var bobRecordID string
	for _, r := range all.Records {
		if r.EmployeeID == bobID {
			bobRecordID = r.ID
		}
	}
	_, err = h.svc.GetRecord(ctx, alice(), bobRecordID)
	assert.True(t, user.IsForbidden(err))
	_, err = h.svc.GetRecord(ctx, alice(), own.Records[0].ID)
	assert.NoError(t, err)
}

func TestSettings(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	got, err := h.svc.GetSettings(ctx, hr())
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, "fixed_day", got.ProrationPolicy)
	assert.Equal(t, "1.50", got.OvertimeMultiplier)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got.WorkingWeekdays)

	mult := dec("2")
	updated, err := h.svc.UpdateSettings(ctx, hr(), payroll.UpdateSettingsRequest{
		OvertimeMultiplier: &mult,
		WorkingWeekdays:    []int{1, 2, 3, 4, 5, 6},
	})
	require.NoError(t, err)
	assert.False(t, updated.IsDefault)
	assert.Equal(t, "2.00", updated.OvertimeMultiplier)
	assert.Equal(t, "fixed_day", updated.ProrationPolicy)

	low := dec("0.5")
	_, err = h.svc.UpdateSettings(ctx, hr(), payroll.UpdateSettingsRequest{OvertimeMultiplier: &low})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = h.svc.GetSettings(ctx, alice())
	assert.ErrorIs(t, err, user.ErrForbidden)
}

func TestReportOrdersByNet(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	cycleID := h.listCycle(t, aliceID, bobID)
	_, err := h.svc.Run(ctx, hr(), cycleID)
	require.NoError(t, err)

	report, err := h.svc.Report(ctx, hr(), payroll.ReportRequest{StartDate: "2025-01-01", EndDate: "2025-12-31"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, aliceID, report.Rows[0].EmployeeID)
	assert.Equal(t, "3300.00", report.Rows[0].Net)
	assert.Equal(t, "3300.00", report.TotalNet)

	empty, err := h.svc.Report(ctx, hr(), payroll.ReportRequest{StartDate: "2025-03-15", EndDate: "2025-12-31"})
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)

	_, err = h.svc.Report(ctx, hr(), payroll.ReportRequest{StartDate: "2025-12-31", EndDate: "2025-01-01"})
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	_, err = h.svc.Report(ctx, alice(), payroll.ReportRequest{StartDate: "2025-01-01", EndDate: "2025-12-31"})
	assert.True(t, user.IsForbidden(err))
}
