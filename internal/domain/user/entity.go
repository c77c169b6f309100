package user

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
)

type Role string

const (
	RoleAdmin    Role = "admin"    // System administrator - full access
	RoleHR       Role = "hr"       // HR staff - company-wide access
	RoleManager  Role = "manager"  // Line manager - own record and direct reports
	RoleEmployee Role = "employee" // Regular employee - own records only
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Actor is the caller of an engine operation together with its role scope.
// Handlers build it from the access token and pass it down explicitly.
type Actor struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       Role
}

// IsElevated reports HR/Admin scope (unrestricted within the company).
func (a Actor) IsElevated() bool {
	return a.Role == RoleAdmin || a.Role == RoleHR
}

// IsAdmin reports the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsSelf reports whether employeeID is the actor's own employee record.
func (a Actor) IsSelf(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}

// IsManagerOf reports whether the actor is the line manager of emp.
func (a Actor) IsManagerOf(emp employee.Employee) bool {
	return a.Role == RoleManager && emp.ReportsTo(a.EmployeeID)
}

// CanManage reports whether the actor may administer emp's records.
func (a Actor) CanManage(emp employee.Employee) bool {
	if emp.CompanyID != "" && emp.CompanyID != a.CompanyID {
		return false
	}
	return a.IsElevated() || a.IsManagerOf(emp)
}

// CanView reports whether the actor may read emp's records.
func (a Actor) CanView(emp employee.Employee) bool {
	if emp.CompanyID != "" && emp.CompanyID != a.CompanyID {
		return false
	}
	return a.IsSelf(emp.ID) || a.CanManage(emp)
}

// ActorFromClaims builds an Actor from access-token claims.
func ActorFromClaims(claims map[string]interface{}) (Actor, error) {
	if claims == nil {
		return Actor{}, ErrInvalidClaims
	}

	var a Actor
	a.UserID, _ = claims["user_id"].(string)
	a.EmployeeID, _ = claims["employee_id"].(string)
	a.CompanyID, _ = claims["company_id"].(string)
	role, _ := claims["role"].(string)
	a.Role = Role(role)

	if a.UserID == "" {
		return Actor{}, fmt.Errorf("%w: user_id is missing", ErrInvalidClaims)
	}
	if a.CompanyID == "" {
		return Actor{}, fmt.Errorf("%w: company_id is missing", ErrInvalidClaims)
	}
	if !a.Role.Valid() {
		return Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, role)
	}
	return a, nil
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// IsForbidden reports whether err is a scope violation.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// Deny wraps a reason sentinel so errors.Is matches both the reason and ErrForbidden.
func Deny(reason error) error {
	return fmt.Errorf("%w: %w", ErrForbidden, reason)
}
