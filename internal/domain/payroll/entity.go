package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// ========================================
// SETTINGS
// ========================================

// Settings - Company payroll configuration
type Settings struct {
	CompanyID          string
	ProrationPolicy    PolicyName
	WorkingWeekdays    []int // time.Weekday values, Sunday = 0
	StandardHours      int
	OvertimeMultiplier decimal.Decimal
	Currency           string
	UpdatedAt          *time.Time
}

// DefaultSettings is what a company gets before it saves its own.
func DefaultSettings(companyID string) Settings {
	return Settings{
		CompanyID:          companyID,
		ProrationPolicy:    PolicyFixedDay,
		WorkingWeekdays:    []int{1, 2, 3, 4, 5},
		StandardHours:      8,
		OvertimeMultiplier: decimal.RequireFromString("1.5"),
		Currency:           "USD",
	}
}

// ========================================
// CYCLE
// ========================================

type Frequency string

const (
	FrequencyMonthly  Frequency = "monthly"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

type Eligibility string

const (
	EligibilityList     Eligibility = "list"
	EligibilityCriteria Eligibility = "criteria"
)

type CycleStatus string

const (
	CycleStatusDraft      CycleStatus = "draft"
	CycleStatusProcessing CycleStatus = "processing"
	CycleStatusClosed     CycleStatus = "closed"
)

// Cycle - A pay period plus the rule that picks who is paid in it
type Cycle struct {
	ID                string
	CompanyID         string
	Name              string
	Frequency         Frequency
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CutoffDate        *time.Time
	Eligibility       Eligibility
	Criteria          employee.Criteria
	EligibleEmployees []string
	Status            CycleStatus
	LastRunID         *string
	LastRunAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLocked reports whether the definition can no longer change. Runs are still allowed.
func (c Cycle) IsLocked() bool {
	return c.Status == CycleStatusClosed
}

// HireCutoff is the latest hire date an employee may have to be picked by criteria.
func (c Cycle) HireCutoff() time.Time {
	if c.CutoffDate != nil {
		return *c.CutoffDate
	}
	return c.PeriodEnd
}

// ========================================
// RECORD
// ========================================

// ComponentSnapshot is a point-in-time copy of a salary component.
type ComponentSnapshot struct {
	Kind   string          `json:"kind"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Record - One employee's pay for one cycle. Unique per (cycle, employee).
type Record struct {
	ID                   string
	CompanyID            string
	CycleID              string
	EmployeeID           string
	RunID                string
	PeriodStart          time.Time
	PeriodEnd            time.Time
	Base                 decimal.Decimal
	ProratedBase         decimal.Decimal
	Recurring            decimal.Decimal
	OneOff               decimal.Decimal
	Offset               decimal.Decimal
	Gross                decimal.Decimal
	Components           []ComponentSnapshot
	OvertimeSeconds      int64
	DeficitSeconds       int64
	OvertimePay          decimal.Decimal
	DeficitDeduction     decimal.Decimal
	AttendanceAdjustment decimal.Decimal
	Net                  decimal.Decimal
	Warning              *string
	SupersededCount      int
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Joined fields
	EmployeeName *string
	CycleName    *string
}

// AttendanceTotals - Approved time aggregated over a period
type AttendanceTotals struct {
	EmployeeID      string
	Days            int
	OvertimeSeconds int64 // sum of positive daily overtime
	DeficitSeconds  int64 // sum of daily shortfall, positive
}

// ReportRow - Per-employee sums over the records in a date range
type ReportRow struct {
	EmployeeID           string
	EmployeeName         string
	Records              int
	Gross                decimal.Decimal
	AttendanceAdjustment decimal.Decimal
	Net                  decimal.Decimal
	OvertimeSeconds      int64
	DeficitSeconds       int64
}
