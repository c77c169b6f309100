package notification

import (
	"time"
)

// NotificationType names the engine event an entry reports. It doubles as the SSE payload type.
type NotificationType string

const (
	TypeAttendanceAdjusted        NotificationType = "attendance.adjusted"
	TypeAttendanceApproved        NotificationType = "attendance.approved"
	TypeAttendanceApprovalRevoked NotificationType = "attendance.approval_revoked"
	TypePayrollGenerated          NotificationType = "payroll.generated"
	TypeOvertimeReconciled        NotificationType = "overtime.reconciled"
)

var knownTypes = map[NotificationType]struct{}{
	TypeAttendanceAdjusted:        {},
	TypeAttendanceApproved:        {},
	TypeAttendanceApprovalRevoked: {},
	TypePayrollGenerated:          {},
	TypeOvertimeReconciled:        {},
}

func (t NotificationType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Notification is one inbox entry. RecipientID is a user id, not an employee id.
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
