package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// ========================================
// LIFECYCLE DTOs
// ========================================

type ClockInRequest struct {
	EmployeeID string  `json:"employee_id" validate:"omitempty,uuid"` // empty = caller's own employee record
	Instant    *string `json:"instant,omitempty"`                     // RFC3339, defaults to now
	Location   string  `json:"location" validate:"max=255"`
}

func (r *ClockInRequest) Validate() error {
	errs := validator.StructErrors(r)
	parseInstant("instant", r.Instant, &errs)
	return errs.Err()
}

type ClockOutRequest struct {
	ID       string  `json:"-"`
	Instant  *string `json:"instant,omitempty"`
	Location string  `json:"location" validate:"max=255"`
}

func (r *ClockOutRequest) Validate() error {
	errs := validator.StructErrors(r)
	parseInstant("instant", r.Instant, &errs)
	return errs.Err()
}

type AdjustPaidTimeRequest struct {
	ID       string `json:"-"`
	PaidTime string `json:"paid_time" validate:"required"` // HH:MM:SS
	Notes    string `json:"notes" validate:"max=1000"`
}

func (r *AdjustPaidTimeRequest) Validate() error {
	errs := validator.StructErrors(r)
	if !validator.IsEmpty(r.PaidTime) {
		d, err := duration.Parse(r.PaidTime)
		if err != nil {
			errs.Add("paid_time", "paid_time must be in HH:MM:SS format")
		} else if d < 0 {
			errs.Add("paid_time", "paid_time must not be negative")
		}
	}
	return errs.Err()
}

// Duration returns the parsed paid time. Call after Validate.
func (r *AdjustPaidTimeRequest) Duration() time.Duration {
	d, _ := duration.Parse(r.PaidTime)
	return d
}

type ApproveRequest struct {
	ID     string  `json:"-"`
	Status *string `json:"status,omitempty"` // optional terminal status override
}

// CheckRequest is the self-service clock in / clock out wrapper.
type CheckRequest struct {
	EmployeeID string `json:"employee_id" validate:"omitempty,uuid"`
	Action     string `json:"action" validate:"required,oneof=clock_in clock_out"`
	Location   string `json:"location" validate:"max=255"`
	ClientIP   string `json:"-"`
}

func (r *CheckRequest) Validate() error {
	errs := validator.StructErrors(r)
	return errs.Err()
}

const (
	CheckActionClockIn  = "clock_in"
	CheckActionClockOut = "clock_out"
)

// ========================================
// ADMIN CRUD DTOs
// ========================================

type CreateAttendanceRequest struct {
	EmployeeID       string  `json:"employee_id" validate:"required,uuid"`
	ClockIn          string  `json:"clock_in" validate:"required"` // RFC3339
	ClockOut         *string `json:"clock_out,omitempty"`
	ClockInLocation  string  `json:"clock_in_location" validate:"max=255"`
	ClockOutLocation string  `json:"clock_out_location" validate:"max=255"`
	Status           *string `json:"status,omitempty"`
}

func (r *CreateAttendanceRequest) Validate() error {
	errs := validator.StructErrors(r)
	in := parseInstant("clock_in", &r.ClockIn, &errs)
	out := parseInstant("clock_out", r.ClockOut, &errs)
	if in != nil && out != nil && out.Before(*in) {
		errs.Add("clock_out", ErrClockOutBeforeIn.Error())
	}
	return errs.Err()
}

// UpdateAttendanceRequest corrects clock instants and locations.
// Paid time is only changed through AdjustPaidTime so the audit trail stays complete.
type UpdateAttendanceRequest struct {
	ID               string  `json:"-"`
	ClockIn          *string `json:"clock_in,omitempty"`
	ClockOut         *string `json:"clock_out,omitempty"`
	ClockInLocation  *string `json:"clock_in_location,omitempty" validate:"omitempty,max=255"`
	ClockOutLocation *string `json:"clock_out_location,omitempty" validate:"omitempty,max=255"`
}

func (r *UpdateAttendanceRequest) Validate() error {
	errs := validator.StructErrors(r)
	parseInstant("clock_in", r.ClockIn, &errs)
	parseInstant("clock_out", r.ClockOut, &errs)
	return errs.Err()
}

type CreateOfficeNetworkRequest struct {
	CIDR  string `json:"cidr" validate:"required,cidr"`
	Label string `json:"label" validate:"max=100"`
}

func (r *CreateOfficeNetworkRequest) Validate() error {
	errs := validator.StructErrors(r)
	return errs.Err()
}

// ========================================
// FILTERS
// ========================================

type AttendanceFilter struct {
	// Search & Filter
	EmployeeID *string `json:"employee_id,omitempty"`
	Date       *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`
	Location   *string `json:"location,omitempty"` // matches clock-in or clock-out location
	Office     *string `json:"office,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, clock_in, clock_out, status, employee_name
	SortOrder string `json:"sort_order"` // asc, desc

	// Scope, set by the service from the actor
	CompanyID       string  `json:"-"`
	ScopeEmployeeID *string `json:"-"` // only this employee
	ScopeManagerID  *string `json:"-"` // this employee plus direct reports
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}

	if f.EmployeeID != nil && *f.EmployeeID != "" && !validator.IsValidUUID(*f.EmployeeID) {
		errs.Add("employee_id", "employee_id must be a valid UUID")
	}

	validator.ParseOptionalDate("date", f.Date, &errs)
	start := validator.ParseOptionalDate("start_date", f.StartDate, &errs)
	end := validator.ParseOptionalDate("end_date", f.EndDate, &errs)
	if start != nil && end != nil && end.Before(*start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}

	if f.SortBy != "" {
		validSortFields := []string{"date", "clock_in", "clock_out", "status", "employee_name"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs.Add("sort_by", "sort_by must be one of: date, clock_in, clock_out, status, employee_name")
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		f.SortOrder = strings.ToLower(f.SortOrder)
		if !validator.IsInSlice(f.SortOrder, []string{"asc", "desc"}) {
			errs.Add("sort_order", "sort_order must be one of: asc, desc")
		}
	} else {
		f.SortOrder = "desc" // newest first
	}

	return errs.Err()
}

// SummaryFilter selects the date range of a summary. Dates are inclusive.
type SummaryFilter struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Status    *string `json:"status,omitempty"`
	Office    *string `json:"office,omitempty"` // team summary only
}

func (f *SummaryFilter) Validate() error {
	var errs validator.ValidationErrors
	start := validator.ParseOptionalDate("start_date", f.StartDate, &errs)
	end := validator.ParseOptionalDate("end_date", f.EndDate, &errs)
	if start != nil && end != nil && end.Before(*start) {
		errs.Add("end_date", "end_date must not be before start_date")
	}
	return errs.Err()
}

// SummaryQuery is the resolved form of SummaryFilter handed to the repository.
type SummaryQuery struct {
	CompanyID   string
	EmployeeIDs []string // nil = every employee of the company
	Start       time.Time
	End         time.Time
	Status      *Status
	Office      *string
}

// ========================================
// RESPONSES
// ========================================

type AttendanceResponse struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	EmployeeName     *string `json:"employee_name,omitempty"`
	Date             string  `json:"date"`
	ClockIn          string  `json:"clock_in"`
	ClockInLocation  string  `json:"clock_in_location"`
	ClockOut         *string `json:"clock_out,omitempty"`
	ClockOutLocation string  `json:"clock_out_location"`
	LoggedTime       *string `json:"logged_time,omitempty"` // omitted while open
	PaidTime         string  `json:"paid_time"`
	PaidTimeAdjusted bool    `json:"paid_time_adjusted"`
	ScheduledHours   int     `json:"scheduled_hours"`
	Deficit          string  `json:"deficit"`
	Overtime         string  `json:"overtime"`
	OvertimeSeconds  int64   `json:"overtime_seconds"`
	Status           Status  `json:"status"`
	State            State   `json:"state"`
	ApprovedBy       *string `json:"approved_by,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// NewAttendanceResponse renders a record, formatting every duration as HH:MM:SS.
func NewAttendanceResponse(a Attendance, scheme StatusScheme) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               a.ID,
		EmployeeID:       a.EmployeeID,
		EmployeeName:     a.EmployeeName,
		Date:             a.Date.Format("2006-01-02"),
		ClockIn:          a.ClockIn.Format(time.RFC3339),
		ClockInLocation:  a.ClockInLocation,
		ClockOutLocation: a.ClockOutLocation,
		PaidTime:         duration.FormatUnsigned(a.PaidTime),
		PaidTimeAdjusted: a.PaidTimeAdjusted,
		ScheduledHours:   a.ScheduledHours,
		Deficit:          duration.Format(a.Deficit()),
		Overtime:         duration.Format(a.Overtime()),
		OvertimeSeconds:  a.OvertimeSeconds,
		Status:           a.Status,
		State:            a.State(scheme),
		ApprovedBy:       a.ApprovedBy,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ClockOut != nil {
		out := a.ClockOut.Format(time.RFC3339)
		resp.ClockOut = &out
	}
	if logged, ok := a.Logged(); ok {
		s := duration.FormatUnsigned(logged)
		resp.LoggedTime = &s
	}
	if a.ApprovedAt != nil {
		at := a.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &at
	}
	return resp
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

type Punch struct {
	Type     string `json:"type"` // clock_in | clock_out
	At       string `json:"at"`
	Location string `json:"location"`
}

type TodayResponse struct {
	EmployeeID string              `json:"employee_id"`
	Date       string              `json:"date"`
	State      State               `json:"state"`
	Punches    []Punch             `json:"punches"`
	Attendance *AttendanceResponse `json:"attendance,omitempty"`
}

type AdjustmentResponse struct {
	ID               string  `json:"id"`
	AttendanceID     *string `json:"attendance_id"`
	EmployeeID       string  `json:"employee_id"`
	PreviousPaidTime string  `json:"previous_paid_time"`
	NewPaidTime      string  `json:"new_paid_time"`
	PerformedBy      string  `json:"performed_by"`
	Notes            string  `json:"notes"`
	CreatedAt        string  `json:"created_at"`
}

func NewAdjustmentResponse(a Adjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:               a.ID,
		AttendanceID:     a.AttendanceID,
		EmployeeID:       a.EmployeeID,
		PreviousPaidTime: duration.FormatUnsigned(a.PreviousPaidTime),
		NewPaidTime:      duration.FormatUnsigned(a.NewPaidTime),
		PerformedBy:      a.PerformedBy,
		Notes:            a.Notes,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

type SummaryResponse struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Count        int    `json:"count"`
	TotalLogged  string `json:"total_logged"`
	TotalPaid    string `json:"total_paid"`
	Overtime     string `json:"overtime"`
	Deficit      string `json:"deficit"`
}

func NewSummaryResponse(t Totals) SummaryResponse {
	return SummaryResponse{
		EmployeeID:   t.EmployeeID,
		EmployeeName: t.EmployeeName,
		Count:        t.Count,
		TotalLogged:  duration.Format(t.TotalLogged),
		TotalPaid:    duration.Format(t.TotalPaid),
		Overtime:     duration.Format(t.Overtime()),
		Deficit:      duration.Format(t.Deficit()),
	}
}

type MySummaryResponse struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Summary   SummaryResponse `json:"summary"`
}

type TeamSummaryResponse struct {
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Employees []SummaryResponse `json:"employees"`
}

type NetworkStatusResponse struct {
	IP              string `json:"ip"`
	IsOfficeNetwork bool   `json:"is_office_network"`
	Employee        string `json:"employee"`
}

type OfficeNetworkResponse struct {
	ID        string `json:"id"`
	CIDR      string `json:"cidr"`
	Label     string `json:"label"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func NewOfficeNetworkResponse(n OfficeNetwork) OfficeNetworkResponse {
	return OfficeNetworkResponse{
		ID:        n.ID,
		CIDR:      n.CIDR,
		Label:     n.Label,
		IsActive:  n.IsActive,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// RecordFailure is one record the reconciliation job could not process.
type RecordFailure struct {
	AttendanceID string `json:"attendance_id"`
	EmployeeID   string `json:"employee_id"`
	Error        string `json:"error"`
}

type ReconcileResult struct {
	Date      string          `json:"date"`
	Scanned   int             `json:"scanned"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failures  []RecordFailure `json:"failures"`
}

// ========================================
// helpers
// ========================================

func parseInstant(field string, s *string, errs *validator.ValidationErrors) *time.Time {
	if s == nil || validator.IsEmpty(*s) {
		return nil
	}
	t, ok := validator.IsValidDateTime(*s)
	if !ok {
		errs.Add(field, field+" must be an RFC3339 timestamp")
		return nil
	}
	return &t
}

// ParseInstant returns the parsed value of an optional RFC3339 field. Call after Validate.
func ParseInstant(s *string) *time.Time {
	var errs validator.ValidationErrors
	return parseInstant("", s, &errs)
}
