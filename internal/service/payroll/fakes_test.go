package payroll

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/google/uuid"
)

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memPayrollRepo is an in-memory payroll store keyed the way the tables are.
type memPayrollRepo struct {
	mu         sync.Mutex
	settings   map[string]payroll.Settings
	cycles     map[string]payroll.Cycle
	records    map[string]payroll.Record // cycleID|employeeID
	totals     map[string]payroll.AttendanceTotals
	statuses   []string
	lockHeld   bool
	failUpsert map[string]error // by employee id
}

func newMemPayrollRepo() *memPayrollRepo {
	return &memPayrollRepo{
		settings:   map[string]payroll.Settings{},
		cycles:     map[string]payroll.Cycle{},
		records:    map[string]payroll.Record{},
		totals:     map[string]payroll.AttendanceTotals{},
		failUpsert: map[string]error{},
	}
}

func (m *memPayrollRepo) GetSettings(ctx context.Context, companyID string) (payroll.Settings, error) {
	s, ok := m.settings[companyID]
	if !ok {
		return payroll.Settings{}, payroll.ErrSettingsNotFound
	}
	return s, nil
}

func (m *memPayrollRepo) UpsertSettings(ctx context.Context, s payroll.Settings) (payroll.Settings, error) {
	now := time.Now()
	s.UpdatedAt = &now
	m.settings[s.CompanyID] = s
	return s, nil
}

func (m *memPayrollRepo) CreateCycle(ctx context.Context, c payroll.Cycle) (payroll.Cycle, error) {
	c.ID = uuid.NewString()
	m.cycles[c.ID] = c
	return c, nil
}

func (m *memPayrollRepo) GetCycleByID(ctx context.Context, id, companyID string) (payroll.Cycle, error) {
	c, ok := m.cycles[id]
	if !ok || c.CompanyID != companyID {
		return payroll.Cycle{}, payroll.ErrCycleNotFound
	}
	return c, nil
}

func (m *memPayrollRepo) ListCycles(ctx context.Context, f payroll.CycleFilter) ([]payroll.Cycle, int64, error) {
	var out []payroll.Cycle
	for _, c := range m.cycles {
		if c.CompanyID == f.CompanyID && (f.Status == nil || string(c.Status) == *f.Status) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, int64(len(out)), nil
}

func (m *memPayrollRepo) UpdateCycle(ctx context.Context, c payroll.Cycle) error {
	if _, ok := m.cycles[c.ID]; !ok {
		return payroll.ErrCycleNotFound
	}
	m.cycles[c.ID] = c
	return nil
}

func (m *memPayrollRepo) DeleteCycle(ctx context.Context, id, companyID string) error {
	if _, ok := m.cycles[id]; !ok {
		return payroll.ErrCycleNotFound
	}
	delete(m.cycles, id)
	return nil
}

func (m *memPayrollRepo) MarkCycleRun(ctx context.Context, id, runID string, at time.Time) error {
	c, ok := m.cycles[id]
	if !ok {
		return payroll.ErrCycleNotFound
	}
	c.Status = payroll.CycleStatusClosed
	c.LastRunID = &runID
	c.LastRunAt = &at
	m.cycles[id] = c
	return nil
}

func (m *memPayrollRepo) TryLockCycle(ctx context.Context, id string) (bool, error) {
	return !m.lockHeld, nil
}

func (m *memPayrollRepo) GetAttendanceTotals(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time, statuses []string) (map[string]payroll.AttendanceTotals, error) {
	m.mu.Lock()
	m.statuses = statuses
	m.mu.Unlock()
	out := map[string]payroll.AttendanceTotals{}
	for _, id := range employeeIDs {
		if t, ok := m.totals[id]; ok {
			t.EmployeeID = id
			out[id] = t
		}
	}
	return out, nil
}

func (m *memPayrollRepo) UpsertRecord(ctx context.Context, rec payroll.Record) (payroll.Record, bool, error) {
	if err := m.failUpsert[rec.EmployeeID]; err != nil {
		return payroll.Record{}, false, err
	}
	key := rec.CycleID + "|" + rec.EmployeeID
	existing, ok := m.records[key]
	if ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.SupersededCount = existing.SupersededCount + 1
	} else {
		rec.ID = uuid.NewString()
		rec.CreatedAt = time.Now()
	}
	m.records[key] = rec
	return rec, !ok, nil
}

func (m *memPayrollRepo) DeleteRecordsExcept(ctx context.Context, cycleID string, keep []string) (int64, error) {
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	var n int64
	for key, r := range m.records {
		if r.CycleID == cycleID && !kept[r.EmployeeID] {
			delete(m.records, key)
			n++
		}
	}
	return n, nil
}

func (m *memPayrollRepo) GetRecordByID(ctx context.Context, id, companyID string) (payroll.Record, error) {
	for _, r := range m.records {
		if r.ID == id && r.CompanyID == companyID {
			return r, nil
		}
	}
	return payroll.Record{}, payroll.ErrRecordNotFound
}

func (m *memPayrollRepo) ListRecords(ctx context.Context, f payroll.RecordFilter) ([]payroll.Record, int64, error) {
	var out []payroll.Record
	for _, r := range m.records {
		if r.CompanyID != f.CompanyID {
			continue
		}
		if f.CycleID != nil && r.CycleID != *f.CycleID {
			continue
		}
		if f.EmployeeID != nil && r.EmployeeID != *f.EmployeeID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, int64(len(out)), nil
}

func (m *memPayrollRepo) Report(ctx context.Context, companyID string, start, end time.Time) ([]payroll.ReportRow, error) {
	rows := map[string]*payroll.ReportRow{}
	for _, r := range m.records {
		if r.CompanyID != companyID || r.PeriodStart.Before(start) || r.PeriodEnd.After(end) {
			continue
		}
		row, ok := rows[r.EmployeeID]
		if !ok {
			row = &payroll.ReportRow{EmployeeID: r.EmployeeID}
			rows[r.EmployeeID] = row
		}
		row.Records++
		row.Gross = row.Gross.Add(r.Gross)
		row.AttendanceAdjustment = row.AttendanceAdjustment.Add(r.AttendanceAdjustment)
		row.Net = row.Net.Add(r.Net)
		row.OvertimeSeconds += r.OvertimeSeconds
		row.DeficitSeconds += r.DeficitSeconds
	}
	out := make([]payroll.ReportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Net.GreaterThan(out[j].Net) })
	return out, nil
}

func (m *memPayrollRepo) recordCount() int { return len(m.records) }

// memCompensations serves the snapshot read the run makes. Other methods are unused here.
type memCompensations struct {
	compensation.CompensationRepository
	byEmployee map[string]compensation.Compensation
}

func (m *memCompensations) ListActiveByEmployees(ctx context.Context, companyID string, employeeIDs []string) (map[string]compensation.Compensation, error) {
	out := map[string]compensation.Compensation{}
	for _, id := range employeeIDs {
		if c, ok := m.byEmployee[id]; ok && c.IsActive {
			out[id] = c
		}
	}
	return out, nil
}

type memEmployees struct {
	employee.EmployeeRepository
	byID map[string]employee.Employee
}

func (m *memEmployees) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	if e, ok := m.byID[id]; ok {
		return e, nil
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (m *memEmployees) GetByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, id := range ids {
		if e, ok := m.byID[id]; ok && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEmployees) ListByCriteria(ctx context.Context, companyID string, c employee.Criteria) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range m.byID {
		if e.CompanyID == companyID && matchesCriteria(c, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// matchesCriteria mirrors the directory's SQL filter.
func matchesCriteria(c employee.Criteria, e employee.Employee) bool {
	if c.ActiveOnly && !e.IsActive() {
		return false
	}
	if c.Office != nil && *c.Office != "" && !strings.Contains(strings.ToLower(e.Office), strings.ToLower(*c.Office)) {
		return false
	}
	return c.HiredOnOrBefore == nil || !e.HireDate.After(*c.HiredOnOrBefore)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
	err  error
}

func (n *recordingNotifier) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, req)
	return nil
}

var errDiskFull = errors.New("disk full")
