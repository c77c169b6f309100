package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
)

type Attendance struct {
	ID                  string
	CompanyID           string
	EmployeeID          string
	Date                time.Time
	ClockIn             time.Time
	ClockInLocation     string
	ClockOut            *time.Time
	ClockOutLocation    string
	PaidTime            time.Duration
	PaidTimeAdjusted    bool
	ScheduledHours      int
	Status              Status
	OvertimeSeconds     int64
	OvertimeComputedFor *time.Time
	ApprovedBy          *string
	ApprovedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// DTO
	EmployeeName *string
	Office       *string
}

// Scheduled returns the scheduled time copied onto the record at clock-in.
func (a Attendance) Scheduled() time.Duration {
	return duration.Hours(a.ScheduledHours)
}

// Logged returns clock_out - clock_in; ok is false while the record is open.
func (a Attendance) Logged() (time.Duration, bool) {
	return duration.Logged(a.ClockIn, a.ClockOut)
}

func (a Attendance) IsOpen() bool {
	return a.ClockOut == nil
}

// Deficit is scheduled - paid.
func (a Attendance) Deficit() time.Duration {
	return duration.Deficit(a.Scheduled(), a.PaidTime)
}

// Overtime is paid - scheduled.
func (a Attendance) Overtime() time.Duration {
	return duration.Overtime(a.PaidTime, a.Scheduled())
}

// ComputeOvertimeSeconds is the value the reconciliation job stores in OvertimeSeconds.
func (a Attendance) ComputeOvertimeSeconds() int64 {
	return duration.Seconds(a.Overtime())
}

// State derives the lifecycle state under the given status scheme.
func (a Attendance) State(scheme StatusScheme) State {
	switch {
	case a.IsOpen():
		return StateOpen
	case scheme.IsTerminal(a.Status):
		return StateApproved
	default:
		return StateClosed
	}
}

type State string

const (
	StateNone     State = "none"
	StateOpen     State = "open"
	StateClosed   State = "closed"
	StateApproved State = "approved"
)

// Adjustment is an append-only audit row for a paid-time change.
// AttendanceID is nil once the attendance it described has been deleted.
type Adjustment struct {
	ID               string
	CompanyID        string
	AttendanceID     *string
	EmployeeID       string
	PreviousPaidTime time.Duration
	NewPaidTime      time.Duration
	PerformedBy      string
	Notes            string
	CreatedAt        time.Time
}

// OfficeNetwork is an address block treated as "on premises" by the check endpoint.
type OfficeNetwork struct {
	ID        string
	CompanyID string
	CIDR      string
	Label     string
	IsActive  bool
	CreatedAt time.Time
}

// Totals is the per-employee aggregate behind the attendance summaries.
type Totals struct {
	EmployeeID     string
	EmployeeName   string
	Count          int
	TotalLogged    time.Duration
	TotalPaid      time.Duration
	TotalScheduled time.Duration
}

// Add folds a record into t. Open records count but contribute no logged time.
func (t *Totals) Add(a Attendance) {
	t.Count++
	if logged, ok := a.Logged(); ok {
		t.TotalLogged += logged
	}
	t.TotalPaid += a.PaidTime
	t.TotalScheduled += a.Scheduled()
}

func (t Totals) Overtime() time.Duration {
	return duration.Overtime(t.TotalPaid, t.TotalScheduled)
}

func (t Totals) Deficit() time.Duration {
	return duration.Deficit(t.TotalScheduled, t.TotalPaid)
}
