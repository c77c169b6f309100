package payroll

import (
	"context"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
)

type PayrollService interface {
	// Settings
	GetSettings(ctx context.Context, actor user.Actor) (SettingsResponse, error)
	UpdateSettings(ctx context.Context, actor user.Actor, req UpdateSettingsRequest) (SettingsResponse, error)

	// Cycles
	CreateCycle(ctx context.Context, actor user.Actor, req CreateCycleRequest) (CycleResponse, error)
	GetCycle(ctx context.Context, actor user.Actor, id string) (CycleResponse, error)
	ListCycles(ctx context.Context, actor user.Actor, filter CycleFilter) (ListCycleResponse, error)
	UpdateCycle(ctx context.Context, actor user.Actor, req UpdateCycleRequest) (CycleResponse, error)
	DeleteCycle(ctx context.Context, actor user.Actor, id string) error

	// Run computes one record per eligible employee. Re-running supersedes the cycle's earlier records.
	Run(ctx context.Context, actor user.Actor, cycleID string) (RunResult, error)

	// Records
	ListRecords(ctx context.Context, actor user.Actor, filter RecordFilter) (ListRecordResponse, error)
	GetRecord(ctx context.Context, actor user.Actor, id string) (RecordResponse, error)

	Report(ctx context.Context, actor user.Actor, req ReportRequest) (ReportResponse, error)
}
