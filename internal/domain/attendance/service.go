package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
)

// AttendanceService defines business logic for attendance operations.
// Every call carries the acting user; scope checks happen inside the service.
type AttendanceService interface {
	ClockIn(ctx context.Context, actor user.Actor, req ClockInRequest) (AttendanceResponse, error)
	ClockOut(ctx context.Context, actor user.Actor, req ClockOutRequest) (AttendanceResponse, error)

	// AdjustPaidTime overrides paid time and records an audit row in the same transaction.
	AdjustPaidTime(ctx context.Context, actor user.Actor, req AdjustPaidTimeRequest) (AttendanceResponse, error)
	Approve(ctx context.Context, actor user.Actor, req ApproveRequest) (AttendanceResponse, error)
	RevokeApproval(ctx context.Context, actor user.Actor, id string) (AttendanceResponse, error)

	// Today returns the day's punches for employeeID (empty = self) on date (nil = today).
	Today(ctx context.Context, actor user.Actor, employeeID string, date *time.Time) (TodayResponse, error)

	// Check is the self-service clock in / clock out wrapper guarded by the office network policy.
	Check(ctx context.Context, actor user.Actor, req CheckRequest) (AttendanceResponse, error)
	NetworkStatus(ctx context.Context, actor user.Actor, employeeID string, ip string) (NetworkStatusResponse, error)

	GetAttendance(ctx context.Context, actor user.Actor, id string) (AttendanceResponse, error)
	ListAttendance(ctx context.Context, actor user.Actor, filter AttendanceFilter) (ListAttendanceResponse, error)
	CreateAttendance(ctx context.Context, actor user.Actor, req CreateAttendanceRequest) (AttendanceResponse, error)
	UpdateAttendance(ctx context.Context, actor user.Actor, req UpdateAttendanceRequest) (AttendanceResponse, error)
	DeleteAttendance(ctx context.Context, actor user.Actor, id string) error
	ListAdjustments(ctx context.Context, actor user.Actor, attendanceID string) ([]AdjustmentResponse, error)

	MySummary(ctx context.Context, actor user.Actor, filter SummaryFilter) (MySummaryResponse, error)
	TeamSummary(ctx context.Context, actor user.Actor, filter SummaryFilter) (TeamSummaryResponse, error)

	// ReconcileOvertime recomputes overtime for every closed record of date (nil = yesterday).
	ReconcileOvertime(ctx context.Context, date *time.Time) (ReconcileResult, error)

	ListOfficeNetworks(ctx context.Context, actor user.Actor) ([]OfficeNetworkResponse, error)
	CreateOfficeNetwork(ctx context.Context, actor user.Actor, req CreateOfficeNetworkRequest) (OfficeNetworkResponse, error)
	DeleteOfficeNetwork(ctx context.Context, actor user.Actor, id string) error
}

// NetworkPolicy decides whether a client address is inside an office network.
type NetworkPolicy interface {
	Allowed(ctx context.Context, companyID string, ip string) (bool, error)
}
