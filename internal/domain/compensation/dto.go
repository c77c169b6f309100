package compensation

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// REQUEST DTOs
// ========================================

type ComponentInput struct {
	Kind   string          `json:"kind" validate:"required,oneof=base recurring one_off offset"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label" validate:"max=100"`
}

func (c ComponentInput) validateAmount(field string, errs *validator.ValidationErrors) {
	if c.Amount.IsNegative() {
		errs.Add(field, field+" must not be negative")
	}
}

func (c ComponentInput) toEntity() SalaryComponent {
	return SalaryComponent{Kind: ComponentKind(c.Kind), Amount: c.Amount.Round(2), Label: c.Label}
}

type CreateCompensationRequest struct {
	EmployeeID string           `json:"employee_id" validate:"required,uuid"`
	Components []ComponentInput `json:"components" validate:"dive"`
}

func (r *CreateCompensationRequest) Validate() error {
	errs := validator.StructErrors(r)
	for i, c := range r.Components {
		c.validateAmount(fmt.Sprintf("components[%d].amount", i), &errs)
	}
	return errs.Err()
}

// ToComponents converts the request into entities. Call after Validate.
func (r *CreateCompensationRequest) ToComponents() []SalaryComponent {
	out := make([]SalaryComponent, 0, len(r.Components))
	for _, c := range r.Components {
		out = append(out, c.toEntity())
	}
	return out
}

type AddComponentRequest struct {
	CompensationID string          `json:"-"`
	Kind           string          `json:"kind" validate:"required,oneof=base recurring one_off offset"`
	Amount         decimal.Decimal `json:"amount"`
	Label          string          `json:"label" validate:"max=100"`
}

func (r *AddComponentRequest) Validate() error {
	errs := validator.StructErrors(r)
	if r.Amount.IsNegative() {
		errs.Add("amount", "amount must not be negative")
	}
	return errs.Err()
}

// ToComponent converts the request into an entity. Call after Validate.
func (r *AddComponentRequest) ToComponent() SalaryComponent {
	return SalaryComponent{
		CompensationID: r.CompensationID,
		Kind:           ComponentKind(r.Kind),
		Amount:         r.Amount.Round(2),
		Label:          r.Label,
	}
}

type UpdateComponentRequest struct {
	CompensationID string           `json:"-"`
	ComponentID    string           `json:"-"`
	Kind           *string          `json:"kind,omitempty" validate:"omitempty,oneof=base recurring one_off offset"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Label          *string          `json:"label,omitempty" validate:"omitempty,max=100"`
}

func (r *UpdateComponentRequest) Validate() error {
	errs := validator.StructErrors(r)
	if r.Amount != nil && r.Amount.IsNegative() {
		errs.Add("amount", "amount must not be negative")
	}
	return errs.Err()
}

// Apply merges the changed fields into c.
func (r *UpdateComponentRequest) Apply(c *SalaryComponent) {
	if r.Kind != nil {
		c.Kind = ComponentKind(*r.Kind)
	}
	if r.Amount != nil {
		c.Amount = r.Amount.Round(2)
	}
	if r.Label != nil {
		c.Label = *r.Label
	}
}

// ApplyToEmployeeRequest clones a compensation onto another employee.
type ApplyToEmployeeRequest struct {
	SourceID   string `json:"-"`
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	// Replace deactivates the target's current compensation instead of failing.
	Replace bool `json:"replace"`
}

func (r *ApplyToEmployeeRequest) Validate() error {
	errs := validator.StructErrors(r)
	return errs.Err()
}

type CompensationFilter struct {
	EmployeeID      *string `json:"employee_id,omitempty"`
	IncludeInactive bool    `json:"include_inactive"`
	Page            int     `json:"page"`
	Limit           int     `json:"limit"`

	CompanyID string `json:"-"`
}

func (f *CompensationFilter) Validate() error {
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
	return errs.Err()
}

// ========================================
// RESPONSE DTOs
// ========================================

type ComponentResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Label  string `json:"label"`
}

type CompensationResponse struct {
	ID           string              `json:"id"`
	EmployeeID   string              `json:"employee_id"`
	EmployeeName *string             `json:"employee_name,omitempty"`
	Total        string              `json:"total"`
	IsActive     bool                `json:"is_active"`
	Components   []ComponentResponse `json:"components"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
}

func NewCompensationResponse(c Compensation) CompensationResponse {
	resp := CompensationResponse{
		ID:           c.ID,
		EmployeeID:   c.EmployeeID,
		EmployeeName: c.EmployeeName,
		Total:        c.Total.StringFixed(2),
		IsActive:     c.IsActive,
		Components:   make([]ComponentResponse, 0, len(c.Components)),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
	}
	for _, sc := range c.Components {
		resp.Components = append(resp.Components, ComponentResponse{
			ID:     sc.ID,
			Kind:   string(sc.Kind),
			Amount: sc.Amount.StringFixed(2),
			Label:  sc.Label,
		})
	}
	return resp
}

type ListCompensationResponse struct {
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
	TotalPages    int                    `json:"total_pages"`
	Showing       string                 `json:"showing"`
	Compensations []CompensationResponse `json:"compensations"`
}

