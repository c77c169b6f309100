package employee

import "time"

// Employee is the slice of the HR directory the time & pay engine reads.
type Employee struct {
	ID               string
	CompanyID        string
	UserID           *string
	FullName         string
	ManagerID        *string
	ScheduledHours   int
	Office           string
	EmploymentStatus EmploymentStatus
	HireDate         time.Time
	TerminationDate  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// DefaultScheduledHours applies when the directory has no schedule for an employee.
const DefaultScheduledHours = 8

// IsActive reports whether the employee is currently employed.
func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

// DailyHours returns the scheduled hours. Without a schedule it uses fallback, or
// DefaultScheduledHours when fallback is not positive.
func (e Employee) DailyHours(fallback int) int {
	switch {
	case e.ScheduledHours > 0:
		return e.ScheduledHours
	case fallback > 0:
		return fallback
	}
	return DefaultScheduledHours
}

// ReportsTo reports whether managerEmployeeID is the direct manager of e.
func (e Employee) ReportsTo(managerEmployeeID string) bool {
	return managerEmployeeID != "" && e.ManagerID != nil && *e.ManagerID == managerEmployeeID
}

// Criteria selects employees for rule-based payroll eligibility.
type Criteria struct {
	ActiveOnly      bool       `json:"active_only"`
	Office          *string    `json:"office,omitempty"`
	HiredOnOrBefore *time.Time `json:"hired_on_or_before,omitempty"`
}
