package user

type Permission string

const (
	// Attendance
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCreate  Permission = "attendance.create"
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceApprove Permission = "attendance.approve"
	PermissionAttendanceAdjust  Permission = "attendance.adjust"
	PermissionAttendanceManage  Permission = "attendance.manage"
	PermissionAttendanceDelete  Permission = "attendance.delete"

	// Office networks
	PermissionNetworkManage Permission = "network.manage"

	// Compensation
	PermissionCompensationView   Permission = "compensation.view"
	PermissionCompensationManage Permission = "compensation.manage"

	// Payroll
	PermissionPayrollViewOwn Permission = "payroll.view_own"
	PermissionPayrollManage  Permission = "payroll.manage"
	PermissionPayrollRun     Permission = "payroll.run"
	PermissionReportsView    Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceApprove,
		PermissionAttendanceAdjust,
		PermissionAttendanceManage,
		PermissionAttendanceDelete,
		PermissionNetworkManage,
		PermissionCompensationView,
		PermissionCompensationManage,
		PermissionPayrollViewOwn,
		PermissionPayrollManage,
		PermissionPayrollRun,
		PermissionReportsView,
	},
	RoleHR: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceApprove,
		PermissionAttendanceAdjust,
		PermissionAttendanceManage,
		PermissionNetworkManage,
		PermissionCompensationView,
		PermissionCompensationManage,
		PermissionPayrollViewOwn,
		PermissionPayrollManage,
		PermissionPayrollRun,
		PermissionReportsView,
	},
	RoleManager: {
		// Manager approves and adjusts direct reports; record-level scope is checked in the services
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceApprove,
		PermissionAttendanceAdjust,
		PermissionPayrollViewOwn,
	},
	RoleEmployee: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionPayrollViewOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
