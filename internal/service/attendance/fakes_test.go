package attendance

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/google/uuid"
)

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memAttendanceRepo struct {
	mu        sync.Mutex
	records   map[string]attendance.Attendance
	employees *memEmployeeRepo
	failIDs   map[string]error
}

func newMemAttendanceRepo(emps *memEmployeeRepo) *memAttendanceRepo {
	return &memAttendanceRepo{records: map[string]attendance.Attendance{}, employees: emps, failIDs: map[string]error{}}
}

func (m *memAttendanceRepo) join(a attendance.Attendance) attendance.Attendance {
	if e, ok := m.employees.byID[a.EmployeeID]; ok {
		name, office := e.FullName, e.Office
		a.EmployeeName = &name
		a.Office = &office
	}
	return a
}

func (m *memAttendanceRepo) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.EmployeeID == a.EmployeeID && r.Date.Equal(a.Date) {
			return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.records[a.ID] = a
	return a, nil
}

func (m *memAttendanceRepo) GetByID(ctx context.Context, id, companyID string) (attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.records[id]
	if !ok || a.CompanyID != companyID {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return m.join(a), nil
}

func (m *memAttendanceRepo) GetByIDForUpdate(ctx context.Context, id, companyID string) (attendance.Attendance, error) {
	return m.GetByID(ctx, id, companyID)
}

func (m *memAttendanceRepo) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, companyID string) (*attendance.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.records {
		if a.EmployeeID == employeeID && a.Date.Equal(date) && a.CompanyID == companyID {
			j := m.join(a)
			return &j, nil
		}
	}
	return nil, nil
}

func (m *memAttendanceRepo) Update(ctx context.Context, a attendance.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[a.ID]; !ok {
		return attendance.ErrAttendanceNotFound
	}
	a.EmployeeName, a.Office = nil, nil
	m.records[a.ID] = a
	return nil
}

func (m *memAttendanceRepo) UpdateOvertime(ctx context.Context, id string, seconds int64, computedFor time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failIDs[id]; ok {
		return err
	}
	a, ok := m.records[id]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	a.OvertimeSeconds = seconds
	a.OvertimeComputedFor = &computedFor
	m.records[id] = a
	return nil
}

func (m *memAttendanceRepo) Delete(ctx context.Context, id, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.records[id]; !ok || a.CompanyID != companyID {
		return attendance.ErrAttendanceNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memAttendanceRepo) sorted(keep func(attendance.Attendance) bool) []attendance.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Attendance
	for _, a := range m.records {
		if keep(a) {
			out = append(out, m.join(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out
}

func (m *memAttendanceRepo) List(ctx context.Context, f attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	out := m.sorted(func(a attendance.Attendance) bool {
		if a.CompanyID != f.CompanyID {
			return false
		}
		if f.ScopeEmployeeID != nil && a.EmployeeID != *f.ScopeEmployeeID {
			return false
		}
		if f.ScopeManagerID != nil {
			e := m.employees.byID[a.EmployeeID]
			if a.EmployeeID != *f.ScopeManagerID && !e.ReportsTo(*f.ScopeManagerID) {
				return false
			}
		}
		if f.Status != nil && string(a.Status) != *f.Status {
			return false
		}
		if f.Location != nil {
			loc := strings.ToLower(*f.Location)
			if !strings.Contains(strings.ToLower(a.ClockInLocation), loc) && !strings.Contains(strings.ToLower(a.ClockOutLocation), loc) {
				return false
			}
		}
		return true
	})
	return out, int64(len(out)), nil
}

func (m *memAttendanceRepo) ListClosedByDate(ctx context.Context, date time.Time, companyID *string) ([]attendance.Attendance, error) {
	return m.sorted(func(a attendance.Attendance) bool {
		return a.Date.Equal(date) && a.ClockOut != nil && (companyID == nil || a.CompanyID == *companyID)
	}), nil
}

func (m *memAttendanceRepo) ListForSummary(ctx context.Context, q attendance.SummaryQuery) ([]attendance.Attendance, error) {
	ids := map[string]bool{}
	for _, id := range q.EmployeeIDs {
		ids[id] = true
	}
	return m.sorted(func(a attendance.Attendance) bool {
		if a.CompanyID != q.CompanyID || a.Date.Before(q.Start) || a.Date.After(q.End) {
			return false
		}
		if q.EmployeeIDs != nil && !ids[a.EmployeeID] {
			return false
		}
		if q.Status != nil && a.Status != *q.Status {
			return false
		}
		if q.Office != nil && !strings.Contains(strings.ToLower(m.employees.byID[a.EmployeeID].Office), strings.ToLower(*q.Office)) {
			return false
		}
		return true
	}), nil
}

type memAdjustmentRepo struct {
	mu   sync.Mutex
	rows []attendance.Adjustment
}

func (m *memAdjustmentRepo) Create(ctx context.Context, a attendance.Adjustment) (attendance.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *memAdjustmentRepo) ListByAttendance(ctx context.Context, attendanceID, companyID string) ([]attendance.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Adjustment
	for _, a := range m.rows {
		if a.AttendanceID != nil && *a.AttendanceID == attendanceID && a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memNetworkRepo struct {
	networks []attendance.OfficeNetwork
}

func (m *memNetworkRepo) List(ctx context.Context, companyID string) ([]attendance.OfficeNetwork, error) {
	var out []attendance.OfficeNetwork
	for _, n := range m.networks {
		if n.CompanyID == companyID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNetworkRepo) ListActive(ctx context.Context, companyID string) ([]attendance.OfficeNetwork, error) {
	all, _ := m.List(ctx, companyID)
	var out []attendance.OfficeNetwork
	for _, n := range all {
		if n.IsActive {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNetworkRepo) Create(ctx context.Context, n attendance.OfficeNetwork) (attendance.OfficeNetwork, error) {
	for _, existing := range m.networks {
		if existing.CompanyID == n.CompanyID && existing.CIDR == n.CIDR {
			return attendance.OfficeNetwork{}, attendance.ErrOfficeNetworkExists
		}
	}
	n.ID = uuid.NewString()
	m.networks = append(m.networks, n)
	return n, nil
}

func (m *memNetworkRepo) Delete(ctx context.Context, id, companyID string) error {
	for i, n := range m.networks {
		if n.ID == id && n.CompanyID == companyID {
			m.networks = append(m.networks[:i], m.networks[i+1:]...)
			return nil
		}
	}
	return attendance.ErrOfficeNetworkNotFound
}

type memEmployeeRepo struct {
	byID map[string]employee.Employee
}

func newMemEmployeeRepo(emps ...employee.Employee) *memEmployeeRepo {
	m := &memEmployeeRepo{byID: map[string]employee.Employee{}}
	for _, e := range emps {
		m.byID[e.ID] = e
	}
	return m
}

func (m *memEmployeeRepo) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	e, ok := m.byID[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (m *memEmployeeRepo) GetByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, id := range ids {
		if e, ok := m.byID[id]; ok && e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEmployeeRepo) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	for _, e := range m.byID {
		if e.UserID != nil && *e.UserID == userID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (m *memEmployeeRepo) ListByCriteria(ctx context.Context, companyID string, c employee.Criteria) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range m.byID {
		if e.CompanyID == companyID && (!c.ActiveOnly || e.IsActive()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (m *memEmployeeRepo) ListDirectReports(ctx context.Context, managerID string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range m.byID {
		if e.ReportsTo(managerID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
	err  error
}

func (r *recordingNotifier) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, req)
	return nil
}

func (r *recordingNotifier) types() []notification.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.NotificationType
	for _, s := range r.sent {
		out = append(out, s.Type)
	}
	return out
}
