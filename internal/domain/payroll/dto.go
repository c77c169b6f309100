package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ========== SETTINGS DTOs ==========

type SettingsResponse struct {
	CompanyID          string  `json:"company_id"`
	ProrationPolicy    string  `json:"proration_policy"`
	WorkingWeekdays    []int   `json:"working_weekdays"`
	StandardHours      int     `json:"standard_hours"`
	OvertimeMultiplier string  `json:"overtime_multiplier"`
	Currency           string  `json:"currency"`
	IsDefault          bool    `json:"is_default"`
	UpdatedAt          *string `json:"updated_at,omitempty"`
}

func NewSettingsResponse(s Settings, isDefault bool) SettingsResponse {
	resp := SettingsResponse{
		CompanyID:          s.CompanyID,
		ProrationPolicy:    string(s.ProrationPolicy),
		WorkingWeekdays:    s.WorkingWeekdays,
		StandardHours:      s.StandardHours,
		OvertimeMultiplier: s.OvertimeMultiplier.StringFixed(2),
		Currency:           s.Currency,
		IsDefault:          isDefault,
	}
	if s.UpdatedAt != nil {
		ts := s.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &ts
	}
	return resp
}

type UpdateSettingsRequest struct {
	ProrationPolicy    *string          `json:"proration_policy,omitempty" validate:"omitempty,oneof=fixed_day actual_days"`
	WorkingWeekdays    []int            `json:"working_weekdays,omitempty" validate:"omitempty,min=1,max=7,dive,gte=0,lte=6"`
	StandardHours      *int             `json:"standard_hours,omitempty" validate:"omitempty,gte=1,lte=24"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	Currency           *string          `json:"currency,omitempty" validate:"omitempty,len=3"`
}

func (r *UpdateSettingsRequest) Validate() error {
	errs := validator.StructErrors(r)
	if r.OvertimeMultiplier != nil && r.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		errs.Add("overtime_multiplier", "overtime_multiplier must be at least 1")
	}
	return errs.Err()
}

// Apply merges the changed fields into s.
func (r *UpdateSettingsRequest) Apply(s *Settings) {
	if r.ProrationPolicy != nil {
		s.ProrationPolicy = PolicyName(*r.ProrationPolicy)
	}
	if r.WorkingWeekdays != nil {
		s.WorkingWeekdays = r.WorkingWeekdays
	}
	if r.StandardHours != nil {
		s.StandardHours = *r.StandardHours
	}
	if r.OvertimeMultiplier != nil {
		s.OvertimeMultiplier = *r.OvertimeMultiplier
	}
	if r.Currency != nil {
		s.Currency = *r.Currency
	}
}

// ========== CYCLE DTOs ==========

type CriteriaInput struct {
	ActiveOnly      *bool   `json:"active_only,omitempty"`
	Office          *string `json:"office,omitempty"`
	HiredOnOrBefore *string `json:"hired_on_or_before,omitempty"`
}

func (c *CriteriaInput) toEntity(errs *validator.ValidationErrors) employee.Criteria {
	// active employees only unless told otherwise
	out := employee.Criteria{ActiveOnly: true}
	if c == nil {
		return out
	}
	if c.ActiveOnly != nil {
		out.ActiveOnly = *c.ActiveOnly
	}
	out.Office = c.Office
	out.HiredOnOrBefore = validator.ParseOptionalDate("criteria.hired_on_or_before", c.HiredOnOrBefore, errs)
	return out
}

type CreateCycleRequest struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Frequency   string         `json:"frequency" validate:"omitempty,oneof=monthly weekly biweekly"`
	PeriodStart string         `json:"period_start" validate:"required"`
	PeriodEnd   string         `json:"period_end" validate:"required"`
	CutoffDate  *string        `json:"cutoff_date,omitempty"`
	Eligibility string         `json:"eligibility" validate:"required,oneof=list criteria"`
	Criteria    *CriteriaInput `json:"criteria,omitempty"`
	EmployeeIDs []string       `json:"employee_ids,omitempty" validate:"omitempty,dive,uuid"`

	cycle Cycle
}

// Validate checks the request and prepares the entity returned by ToEntity.
func (r *CreateCycleRequest) Validate() error {
	errs := validator.StructErrors(r)

	c := Cycle{
		Name:        r.Name,
		Frequency:   Frequency(r.Frequency),
		Eligibility: Eligibility(r.Eligibility),
		Status:      CycleStatusDraft,
	}
	if c.Frequency == "" {
		c.Frequency = FrequencyMonthly
	}
	start, startOK := parseDate("period_start", r.PeriodStart, &errs)
	end, endOK := parseDate("period_end", r.PeriodEnd, &errs)
	if startOK && endOK && start.After(end) {
		errs.Add("period_end", "period_end must be on or after period_start")
	}
	c.PeriodStart, c.PeriodEnd = start, end
	c.CutoffDate = validator.ParseOptionalDate("cutoff_date", r.CutoffDate, &errs)
	c.Criteria = r.Criteria.toEntity(&errs)
	if c.Eligibility == EligibilityList {
		if len(r.EmployeeIDs) == 0 {
			errs.Add("employee_ids", "employee_ids is required when eligibility is list")
		}
		c.EligibleEmployees = dedupe(r.EmployeeIDs)
	}

	r.cycle = c
	return errs.Err()
}

// ToEntity returns the cycle built by Validate.
func (r *CreateCycleRequest) ToEntity() Cycle {
	return r.cycle
}

type UpdateCycleRequest struct {
	ID          string         `json:"-"`
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Frequency   *string        `json:"frequency,omitempty" validate:"omitempty,oneof=monthly weekly biweekly"`
	PeriodStart *string        `json:"period_start,omitempty"`
	PeriodEnd   *string        `json:"period_end,omitempty"`
	CutoffDate  *string        `json:"cutoff_date,omitempty"`
	Eligibility *string        `json:"eligibility,omitempty" validate:"omitempty,oneof=list criteria"`
	Criteria    *CriteriaInput `json:"criteria,omitempty"`
	EmployeeIDs *[]string      `json:"employee_ids,omitempty"`
}

func (r *UpdateCycleRequest) Validate() error {
	errs := validator.StructErrors(r)
	if r.EmployeeIDs != nil {
		for i, id := range *r.EmployeeIDs {
			if !validator.IsValidUUID(id) {
				errs.Add(fmt.Sprintf("employee_ids[%d]", i), "employee_ids must contain valid UUIDs")
			}
		}
	}
	return errs.Err()
}

// Apply merges the changes into c and re-checks the merged cycle.
func (r *UpdateCycleRequest) Apply(c *Cycle) error {
	var errs validator.ValidationErrors
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Frequency != nil {
		c.Frequency = Frequency(*r.Frequency)
	}
	if r.PeriodStart != nil {
		if d, ok := parseDate("period_start", *r.PeriodStart, &errs); ok {
			c.PeriodStart = d
		}
	}
	if r.PeriodEnd != nil {
		if d, ok := parseDate("period_end", *r.PeriodEnd, &errs); ok {
			c.PeriodEnd = d
		}
	}
	if r.CutoffDate != nil {
		c.CutoffDate = validator.ParseOptionalDate("cutoff_date", r.CutoffDate, &errs)
	}
	if r.Eligibility != nil {
		c.Eligibility = Eligibility(*r.Eligibility)
	}
	if r.Criteria != nil {
		c.Criteria = r.Criteria.toEntity(&errs)
	}
	if r.EmployeeIDs != nil {
		c.EligibleEmployees = dedupe(*r.EmployeeIDs)
	}

	if c.PeriodStart.After(c.PeriodEnd) {
		errs.Add("period_end", "period_end must be on or after period_start")
	}
	if c.Eligibility == EligibilityList && len(c.EligibleEmployees) == 0 {
		errs.Add("employee_ids", "employee_ids is required when eligibility is list")
	}
	return errs.Err()
}

type CycleFilter struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`

	CompanyID string `json:"-"`
}

func (f *CycleFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.Status != nil && *f.Status != "" && !validator.IsInSlice(*f.Status, []string{
		string(CycleStatusDraft), string(CycleStatusProcessing), string(CycleStatusClosed),
	}) {
		errs.Add("status", "status must be one of: draft, processing, closed")
	}
	normalizePage(&f.Page, &f.Limit, &errs)
	return errs.Err()
}

type CriteriaResponse struct {
	ActiveOnly      bool    `json:"active_only"`
	Office          *string `json:"office,omitempty"`
	HiredOnOrBefore *string `json:"hired_on_or_before,omitempty"`
}

type CycleResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Frequency   string            `json:"frequency"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	CutoffDate  *string           `json:"cutoff_date,omitempty"`
	Eligibility string            `json:"eligibility"`
	Criteria    *CriteriaResponse `json:"criteria,omitempty"`
	EmployeeIDs []string          `json:"employee_ids,omitempty"`
	Status      string            `json:"status"`
	LastRunID   *string           `json:"last_run_id,omitempty"`
	LastRunAt   *string           `json:"last_run_at,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func NewCycleResponse(c Cycle) CycleResponse {
	resp := CycleResponse{
		ID:          c.ID,
		Name:        c.Name,
		Frequency:   string(c.Frequency),
		PeriodStart: c.PeriodStart.Format(dateLayout),
		PeriodEnd:   c.PeriodEnd.Format(dateLayout),
		CutoffDate:  formatDatePtr(c.CutoffDate),
		Eligibility: string(c.Eligibility),
		Status:      string(c.Status),
		LastRunID:   c.LastRunID,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Eligibility == EligibilityList {
		resp.EmployeeIDs = c.EligibleEmployees
	} else {
		resp.Criteria = &CriteriaResponse{
			ActiveOnly:      c.Criteria.ActiveOnly,
			Office:          c.Criteria.Office,
			HiredOnOrBefore: formatDatePtr(c.Criteria.HiredOnOrBefore),
		}
	}
	if c.LastRunAt != nil {
		ts := c.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &ts
	}
	return resp
}

type ListCycleResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Showing    string          `json:"showing"`
	Cycles     []CycleResponse `json:"cycles"`
}

// ========== RECORD DTOs ==========

type RecordFilter struct {
	CycleID    *string `json:"cycle_id,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`

	CompanyID string `json:"-"`
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.CycleID != nil && *f.CycleID != "" && !validator.IsValidUUID(*f.CycleID) {
		errs.Add("cycle_id", "cycle_id must be a valid UUID")
	}
	if f.EmployeeID != nil && *f.EmployeeID != "" && !validator.IsValidUUID(*f.EmployeeID) {
		errs.Add("employee_id", "employee_id must be a valid UUID")
	}
	normalizePage(&f.Page, &f.Limit, &errs)
	return errs.Err()
}

type ComponentSnapshotResponse struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type RecordResponse struct {
	ID                   string                      `json:"id"`
	CycleID              string                      `json:"cycle_id"`
	CycleName            *string                     `json:"cycle_name,omitempty"`
	EmployeeID           string                      `json:"employee_id"`
	EmployeeName         *string                     `json:"employee_name,omitempty"`
	RunID                string                      `json:"run_id"`
	PeriodStart          string                      `json:"period_start"`
	PeriodEnd            string                      `json:"period_end"`
	Base                 string                      `json:"base"`
	ProratedBase         string                      `json:"prorated_base"`
	Recurring            string                      `json:"recurring"`
	OneOff               string                      `json:"one_off"`
	Offset               string                      `json:"offset"`
	Gross                string                      `json:"gross"`
	Components           []ComponentSnapshotResponse `json:"components"`
	Overtime             string                      `json:"overtime"`
	Deficit              string                      `json:"deficit"`
	OvertimeSeconds      int64                       `json:"overtime_seconds"`
	DeficitSeconds       int64                       `json:"deficit_seconds"`
	OvertimePay          string                      `json:"overtime_pay"`
	DeficitDeduction     string                      `json:"deficit_deduction"`
	AttendanceAdjustment string                      `json:"attendance_adjustment"`
	Net                  string                      `json:"net"`
	Warning              *string                     `json:"warning,omitempty"`
	SupersededCount      int                         `json:"superseded_count"`
	CreatedAt            string                      `json:"created_at"`
	UpdatedAt            string                      `json:"updated_at"`
}

func NewRecordResponse(r Record) RecordResponse {
	resp := RecordResponse{
		ID:                   r.ID,
		CycleID:              r.CycleID,
		CycleName:            r.CycleName,
		EmployeeID:           r.EmployeeID,
		EmployeeName:         r.EmployeeName,
		RunID:                r.RunID,
		PeriodStart:          r.PeriodStart.Format(dateLayout),
		PeriodEnd:            r.PeriodEnd.Format(dateLayout),
		Base:                 r.Base.StringFixed(2),
		ProratedBase:         r.ProratedBase.StringFixed(2),
		Recurring:            r.Recurring.StringFixed(2),
		OneOff:               r.OneOff.StringFixed(2),
		Offset:               r.Offset.StringFixed(2),
		Gross:                r.Gross.StringFixed(2),
		Components:           make([]ComponentSnapshotResponse, 0, len(r.Components)),
		Overtime:             duration.FormatUnsigned(duration.FromSeconds(r.OvertimeSeconds)),
		Deficit:              duration.FormatUnsigned(duration.FromSeconds(r.DeficitSeconds)),
		OvertimeSeconds:      r.OvertimeSeconds,
		DeficitSeconds:       r.DeficitSeconds,
		OvertimePay:          r.OvertimePay.StringFixed(2),
		DeficitDeduction:     r.DeficitDeduction.StringFixed(2),
		AttendanceAdjustment: r.AttendanceAdjustment.StringFixed(2),
		Net:                  r.Net.StringFixed(2),
		Warning:              r.Warning,
		SupersededCount:      r.SupersededCount,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
	for _, c := range r.Components {
		resp.Components = append(resp.Components, ComponentSnapshotResponse{
			Kind:   c.Kind,
			Label:  c.Label,
			Amount: c.Amount.StringFixed(2),
		})
	}
	return resp
}

type ListRecordResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Showing    string           `json:"showing"`
	Records    []RecordResponse `json:"records"`
}

// ========== RUN DTOs ==========

type RunWarning struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// RecordFailure is one employee the run could not persist. The rest of the run continues.
type RecordFailure struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

type RunResult struct {
	RunID    string           `json:"run_id"`
	CycleID  string           `json:"cycle_id"`
	Created  int              `json:"created"`
	Updated  int              `json:"updated"`
	Removed  int              `json:"removed"`
	Records  []RecordResponse `json:"records"`
	Warnings []RunWarning     `json:"warnings"`
	Failures []RecordFailure  `json:"failures"`
}

// ========== REPORT DTOs ==========

type ReportRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`

	start, end time.Time
}

func (r *ReportRequest) Validate() error {
	errs := validator.StructErrors(r)
	var startOK, endOK bool
	r.start, startOK = parseDate("start_date", r.StartDate, &errs)
	r.end, endOK = parseDate("end_date", r.EndDate, &errs)
	if startOK && endOK && r.start.After(r.end) {
		errs.Add("end_date", "end_date must be on or after start_date")
	}
	return errs.Err()
}

// Range returns the parsed bounds. Call after Validate.
func (r *ReportRequest) Range() (time.Time, time.Time) {
	return r.start, r.end
}

type ReportRowResponse struct {
	EmployeeID           string `json:"employee_id"`
	EmployeeName         string `json:"employee_name"`
	Records              int    `json:"records"`
	Gross                string `json:"gross"`
	AttendanceAdjustment string `json:"attendance_adjustment"`
	Net                  string `json:"net"`
	Overtime             string `json:"overtime"`
	Deficit              string `json:"deficit"`
}

type ReportResponse struct {
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	TotalNet  string              `json:"total_net"`
	Rows      []ReportRowResponse `json:"rows"`
}

func NewReportResponse(start, end time.Time, rows []ReportRow) ReportResponse {
	resp := ReportResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Rows:      make([]ReportRowResponse, 0, len(rows)),
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Net)
		resp.Rows = append(resp.Rows, ReportRowResponse{
			EmployeeID:           r.EmployeeID,
			EmployeeName:         r.EmployeeName,
			Records:              r.Records,
			Gross:                r.Gross.StringFixed(2),
			AttendanceAdjustment: r.AttendanceAdjustment.StringFixed(2),
			Net:                  r.Net.StringFixed(2),
			Overtime:             duration.FormatUnsigned(duration.FromSeconds(r.OvertimeSeconds)),
			Deficit:              duration.FormatUnsigned(duration.FromSeconds(r.DeficitSeconds)),
		})
	}
	resp.TotalNet = total.StringFixed(2)
	return resp
}

// ========== HELPERS ==========

func parseDate(field, s string, errs *validator.ValidationErrors) (time.Time, bool) {
	if validator.IsEmpty(s) {
		return time.Time{}, false
	}
	d, ok := validator.IsValidDate(s)
	if !ok {
		errs.Add(field, field+" must be in YYYY-MM-DD format")
	}
	return d, ok
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func normalizePage(page, limit *int, errs *validator.ValidationErrors) {
	if *page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if *page == 0 {
		*page = 1
	}
	if *limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if *limit == 0 {
		*limit = 20
	}
	if *limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
