package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
// Reads take companyID to prevent cross-company access.
type AttendanceRepository interface {
	// Create inserts a record. A second record for the same (employee, date) returns ErrAlreadyClockedIn.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	GetByID(ctx context.Context, id string, companyID string) (Attendance, error)

	// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (Attendance, error)

	// GetByEmployeeAndDate returns nil when the employee has no record on date.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, companyID string) (*Attendance, error)

	Update(ctx context.Context, attendance Attendance) error

	// UpdateOvertime stores overtime seconds and stamps the computed-for marker.
	UpdateOvertime(ctx context.Context, id string, overtimeSeconds int64, computedFor time.Time) error

	Delete(ctx context.Context, id string, companyID string) error

	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)

	// ListClosedByDate returns every clocked-out record of date. companyID nil means all companies.
	ListClosedByDate(ctx context.Context, date time.Time, companyID *string) ([]Attendance, error)

	// ListForSummary returns records matching q with employee name joined.
	ListForSummary(ctx context.Context, q SummaryQuery) ([]Attendance, error)
}

type AdjustmentRepository interface {
	Create(ctx context.Context, adjustment Adjustment) (Adjustment, error)
	ListByAttendance(ctx context.Context, attendanceID string, companyID string) ([]Adjustment, error)
}

type OfficeNetworkRepository interface {
	List(ctx context.Context, companyID string) ([]OfficeNetwork, error)
	ListActive(ctx context.Context, companyID string) ([]OfficeNetwork, error)
	Create(ctx context.Context, network OfficeNetwork) (OfficeNetwork, error)
	Delete(ctx context.Context, id string, companyID string) error
}
