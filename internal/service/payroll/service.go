package payroll

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Config overrides the built-in payroll defaults for companies without saved settings.
type Config struct {
	ProrationPolicy    payroll.PolicyName
	StandardHours      int
	OvertimeMultiplier decimal.Decimal
	Currency           string
}

type PayrollServiceImpl struct {
	tx               database.Transactor
	payrollRepo      payroll.PayrollRepository
	compensationRepo compensation.CompensationRepository
	employeeRepo     employee.EmployeeRepository
	notifier         notification.Dispatcher
	clock            clock.Clock
	cfg              Config
	locks            *cycleLocks
}

func NewPayrollService(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	compensationRepo compensation.CompensationRepository,
	employeeRepo employee.EmployeeRepository,
	notifier notification.Dispatcher,
	clk clock.Clock,
	cfg Config,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:               tx,
		payrollRepo:      payrollRepo,
		compensationRepo: compensationRepo,
		employeeRepo:     employeeRepo,
		notifier:         notifier,
		clock:            clk,
		cfg:              cfg,
		locks:            newCycleLocks(),
	}
}

// ========== SETTINGS ==========

// GetSettings implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetSettings(ctx context.Context, actor user.Actor) (payroll.SettingsResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.SettingsResponse{}, err
	}
	settings, isDefault, err := s.settings(ctx, actor.CompanyID)
	if err != nil {
		return payroll.SettingsResponse{}, err
	}
	return payroll.NewSettingsResponse(settings, isDefault), nil
}

// UpdateSettings implements payroll.PayrollService.
func (s *PayrollServiceImpl) UpdateSettings(ctx context.Context, actor user.Actor, req payroll.UpdateSettingsRequest) (payroll.SettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.SettingsResponse{}, err
	}
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.SettingsResponse{}, err
	}

	current, _, err := s.settings(ctx, actor.CompanyID)
	if err != nil {
		return payroll.SettingsResponse{}, err
	}
	req.Apply(&current)
	if _, err := payroll.NewProrationPolicy(current); err != nil {
		return payroll.SettingsResponse{}, validator.ValidationErrors{{Field: "proration_policy", Message: err.Error()}}
	}

	updated, err := s.payrollRepo.UpsertSettings(ctx, current)
	if err != nil {
		return payroll.SettingsResponse{}, err
	}
	return payroll.NewSettingsResponse(updated, false), nil
}

// settings returns the company's saved settings, or the configured defaults.
func (s *PayrollServiceImpl) settings(ctx context.Context, companyID string) (payroll.Settings, bool, error) {
	saved, err := s.payrollRepo.GetSettings(ctx, companyID)
	if err == nil {
		return saved, false, nil
	}
	if !errors.Is(err, payroll.ErrSettingsNotFound) {
		return payroll.Settings{}, false, err
	}

	d := payroll.DefaultSettings(companyID)
	if s.cfg.ProrationPolicy.Valid() {
		d.ProrationPolicy = s.cfg.ProrationPolicy
	}
	if s.cfg.StandardHours > 0 {
		d.StandardHours = s.cfg.StandardHours
	}
	if s.cfg.OvertimeMultiplier.IsPositive() {
		d.OvertimeMultiplier = s.cfg.OvertimeMultiplier
	}
	if s.cfg.Currency != "" {
		d.Currency = s.cfg.Currency
	}
	return d, true, nil
}

// ========== CYCLES ==========

// CreateCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) CreateCycle(ctx context.Context, actor user.Actor, req payroll.CreateCycleRequest) (payroll.CycleResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.CycleResponse{}, err
	}
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.CycleResponse{}, err
	}

	cycle := req.ToEntity()
	cycle.CompanyID = actor.CompanyID
	if err := s.checkEmployees(ctx, cycle); err != nil {
		return payroll.CycleResponse{}, err
	}

	created, err := s.payrollRepo.CreateCycle(ctx, cycle)
	if err != nil {
		return payroll.CycleResponse{}, err
	}
	return payroll.NewCycleResponse(created), nil
}

// GetCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetCycle(ctx context.Context, actor user.Actor, id string) (payroll.CycleResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.CycleResponse{}, err
	}
	cycle, err := s.payrollRepo.GetCycleByID(ctx, id, actor.CompanyID)
	if err != nil {
		return payroll.CycleResponse{}, err
	}
	return s.cycleResponse(cycle), nil
}

// ListCycles implements payroll.PayrollService.
func (s *PayrollServiceImpl) ListCycles(ctx context.Context, actor user.Actor, filter payroll.CycleFilter) (payroll.ListCycleResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListCycleResponse{}, err
	}
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.ListCycleResponse{}, err
	}
	filter.CompanyID = actor.CompanyID

	cycles, total, err := s.payrollRepo.ListCycles(ctx, filter)
	if err != nil {
		return payroll.ListCycleResponse{}, err
	}

	responses := make([]payroll.CycleResponse, 0, len(cycles))
	for _, c := range cycles {
		responses = append(responses, s.cycleResponse(c))
	}
	showing, totalPages := pageInfo(filter.Page, filter.Limit, total)

	return payroll.ListCycleResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Cycles:     responses,
	}, nil
}

// UpdateCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) UpdateCycle(ctx context.Context, actor user.Actor, req payroll.UpdateCycleRequest) (payroll.CycleResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.CycleResponse{}, err
	}
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.CycleResponse{}, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cycle, err := s.payrollRepo.GetCycleByID(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		if cycle.IsLocked() || s.locks.isHeld(cycle.ID) {
			return payroll.ErrCycleLocked
		}
		if err := req.Apply(&cycle); err != nil {
			return err
		}
		if err := s.checkEmployees(ctx, cycle); err != nil {
			return err
		}
		return s.payrollRepo.UpdateCycle(ctx, cycle)
	})
	if err != nil {
		return payroll.CycleResponse{}, err
	}

	return s.GetCycle(ctx, actor, req.ID)
}

// DeleteCycle implements payroll.PayrollService.
func (s *PayrollServiceImpl) DeleteCycle(ctx context.Context, actor user.Actor, id string) error {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cycle, err := s.payrollRepo.GetCycleByID(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if cycle.IsLocked() || s.locks.isHeld(cycle.ID) {
			return payroll.ErrCycleLocked
		}
		return s.payrollRepo.DeleteCycle(ctx, id, actor.CompanyID)
	})
}

// checkEmployees rejects list eligibility naming employees outside the company.
func (s *PayrollServiceImpl) checkEmployees(ctx context.Context, cycle payroll.Cycle) error {
	if cycle.Eligibility != payroll.EligibilityList {
		return nil
	}
	found, err := s.employeeRepo.GetByIDs(ctx, cycle.CompanyID, cycle.EligibleEmployees)
	if err != nil {
		return fmt.Errorf("failed to get employees: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, e := range found {
		known[e.ID] = true
	}
	var errs validator.ValidationErrors
	for i, id := range cycle.EligibleEmployees {
		if !known[id] {
			errs.Add(fmt.Sprintf("employee_ids[%d]", i), "employee not found: "+id)
		}
	}
	return errs.Err()
}

func (s *PayrollServiceImpl) cycleResponse(c payroll.Cycle) payroll.CycleResponse {
	if s.locks.isHeld(c.ID) {
		c.Status = payroll.CycleStatusProcessing
	}
	return payroll.NewCycleResponse(c)
}

// ========== RECORDS ==========

// ListRecords implements payroll.PayrollService. Callers without payroll access only see their own.
func (s *PayrollServiceImpl) ListRecords(ctx context.Context, actor user.Actor, filter payroll.RecordFilter) (payroll.ListRecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListRecordResponse{}, err
	}
	filter.CompanyID = actor.CompanyID
	if !user.HasPermission(actor.Role, user.PermissionPayrollManage) {
		if err := requirePermission(actor, user.PermissionPayrollViewOwn); err != nil {
			return payroll.ListRecordResponse{}, err
		}
		if actor.EmployeeID == "" {
			return payroll.ListRecordResponse{}, user.Deny(user.ErrEmployeeProfileRequired)
		}
		own := actor.EmployeeID
		filter.EmployeeID = &own
	}

	records, total, err := s.payrollRepo.ListRecords(ctx, filter)
	if err != nil {
		return payroll.ListRecordResponse{}, err
	}

	responses := make([]payroll.RecordResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, payroll.NewRecordResponse(r))
	}
	showing, totalPages := pageInfo(filter.Page, filter.Limit, total)

	return payroll.ListRecordResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Records:    responses,
	}, nil
}

// GetRecord implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetRecord(ctx context.Context, actor user.Actor, id string) (payroll.RecordResponse, error) {
	record, err := s.payrollRepo.GetRecordByID(ctx, id, actor.CompanyID)
	if err != nil {
		return payroll.RecordResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionPayrollManage) && !actor.IsSelf(record.EmployeeID) {
		return payroll.RecordResponse{}, user.Forbidden("cannot view another employee's payroll record")
	}
	return payroll.NewRecordResponse(record), nil
}

// ========== REPORT ==========

// Report implements payroll.PayrollService.
func (s *PayrollServiceImpl) Report(ctx context.Context, actor user.Actor, req payroll.ReportRequest) (payroll.ReportResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ReportResponse{}, err
	}
	if err := requirePermission(actor, user.PermissionReportsView); err != nil {
		return payroll.ReportResponse{}, err
	}

	start, end := req.Range()
	rows, err := s.payrollRepo.Report(ctx, actor.CompanyID, start, end)
	if err != nil {
		return payroll.ReportResponse{}, err
	}
	return payroll.NewReportResponse(start, end, rows), nil
}

// ========== HELPERS ==========

func requirePermission(actor user.Actor, perm user.Permission) error {
	if !user.HasPermission(actor.Role, perm) {
		return user.Deny(user.ErrElevatedAccessRequired)
	}
	return nil
}

func pageInfo(page, limit int, total int64) (string, int) {
	if total == 0 {
		return "0 of 0", 0
	}
	from := (page-1)*limit + 1
	to := min(page*limit, int(total))
	return fmt.Sprintf("%d-%d of %d", from, to, total), int(math.Ceil(float64(total) / float64(limit)))
}
