package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// Settings
	GetSettings(ctx context.Context, companyID string) (Settings, error)
	UpsertSettings(ctx context.Context, settings Settings) (Settings, error)

	// Cycles
	CreateCycle(ctx context.Context, cycle Cycle) (Cycle, error)
	GetCycleByID(ctx context.Context, id string, companyID string) (Cycle, error)
	ListCycles(ctx context.Context, filter CycleFilter) ([]Cycle, int64, error)
	UpdateCycle(ctx context.Context, cycle Cycle) error
	DeleteCycle(ctx context.Context, id string, companyID string) error
	// MarkCycleRun closes the cycle and stamps the run that closed it.
	MarkCycleRun(ctx context.Context, id string, runID string, at time.Time) error
	// TryLockCycle takes a transaction-scoped lock on the cycle. It must run inside a transaction.
	TryLockCycle(ctx context.Context, id string) (bool, error)

	// Attendance sums approved time per employee over [start, end].
	GetAttendanceTotals(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time, statuses []string) (map[string]AttendanceTotals, error)

	// Records
	// UpsertRecord writes the record for (cycle, employee), replacing an earlier run's. created is false on replace.
	UpsertRecord(ctx context.Context, record Record) (saved Record, created bool, err error)
	// DeleteRecordsExcept removes the cycle's records for employees not in keep and reports how many went.
	DeleteRecordsExcept(ctx context.Context, cycleID string, keep []string) (int64, error)
	GetRecordByID(ctx context.Context, id string, companyID string) (Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, int64, error)

	// Report sums records whose period lies inside [start, end], ordered by net descending.
	Report(ctx context.Context, companyID string, start, end time.Time) ([]ReportRow, error)
}
