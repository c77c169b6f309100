package user

import "errors"

var (
	ErrForbidden               = errors.New("insufficient permissions")
	ErrInvalidClaims           = errors.New("invalid token claims")
	ErrElevatedAccessRequired  = errors.New("hr or admin access required")
	ErrManagerAccessRequired   = errors.New("manager access required")
	ErrAdminPrivilegeRequired  = errors.New("admin privilege required")
	ErrEmployeeProfileRequired = errors.New("an employee profile is required for this action")
)
