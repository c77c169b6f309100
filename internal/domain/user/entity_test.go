package user

import (
	"testing"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorScope(t *testing.T) {
	managerID := "emp-manager"
	report := employee.Employee{ID: "emp-report", CompanyID: "co-1", ManagerID: &managerID}
	stranger := employee.Employee{ID: "emp-other", CompanyID: "co-1"}
	otherCompany := employee.Employee{ID: "emp-x", CompanyID: "co-2"}

	hr := Actor{UserID: "u-hr", EmployeeID: "emp-hr", CompanyID: "co-1", Role: RoleHR}
	manager := Actor{UserID: "u-m", EmployeeID: managerID, CompanyID: "co-1", Role: RoleManager}
	staff := Actor{UserID: "u-r", EmployeeID: "emp-report", CompanyID: "co-1", Role: RoleEmployee}

	assert.True(t, hr.CanManage(report))
	assert.True(t, hr.CanManage(stranger))
	assert.False(t, hr.CanManage(otherCompany))

	assert.True(t, manager.IsManagerOf(report))
	assert.True(t, manager.CanManage(report))
	assert.False(t, manager.CanManage(stranger))

	assert.True(t, staff.CanView(report))
	assert.False(t, staff.CanManage(report))
	assert.False(t, staff.CanView(stranger))
}

func TestActorFromClaims(t *testing.T) {
	a, err := ActorFromClaims(map[string]interface{}{
		"user_id":     "u-1",
		"employee_id": "e-1",
		"company_id":  "c-1",
		"role":        "manager",
	})
	require.NoError(t, err)
	assert.Equal(t, Actor{UserID: "u-1", EmployeeID: "e-1", CompanyID: "c-1", Role: RoleManager}, a)

	_, err = ActorFromClaims(map[string]interface{}{"user_id": "u-1", "company_id": "c-1", "role": "owner"})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = ActorFromClaims(map[string]interface{}{"user_id": "u-1", "role": "hr"})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleHR, PermissionPayrollRun))
	assert.False(t, HasPermission(RoleManager, PermissionPayrollRun))
	assert.True(t, HasPermission(RoleAdmin, PermissionAttendanceDelete))
	assert.False(t, HasPermission(RoleHR, PermissionAttendanceDelete))
	assert.False(t, HasPermission(Role("ghost"), PermissionAttendanceViewOwn))
}

func TestForbidden(t *testing.T) {
	err := Forbidden("not your record")
	assert.True(t, IsForbidden(err))
	assert.Contains(t, err.Error(), "not your record")
}

func TestDeny(t *testing.T) {
	err := Deny(ErrElevatedAccessRequired)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrElevatedAccessRequired)
}
