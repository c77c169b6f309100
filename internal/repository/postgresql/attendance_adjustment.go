package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
)

type adjustmentRepository struct {
	db *database.DB
}

// Create implements attendance.AdjustmentRepository.
func (r *adjustmentRepository) Create(ctx context.Context, adj attendance.Adjustment) (attendance.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_adjustments (
			company_id, attendance_id, employee_id,
			previous_paid_seconds, new_paid_seconds, performed_by, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		adj.CompanyID,
		adj.AttendanceID,
		adj.EmployeeID,
		duration.Seconds(adj.PreviousPaidTime),
		duration.Seconds(adj.NewPaidTime),
		adj.PerformedBy,
		adj.Notes,
	).Scan(&adj.ID, &adj.CreatedAt)
	if err != nil {
		return attendance.Adjustment{}, fmt.Errorf("failed to create attendance adjustment: %w", err)
	}

	return adj, nil
}

// ListByAttendance implements attendance.AdjustmentRepository.
func (r *adjustmentRepository) ListByAttendance(ctx context.Context, attendanceID string, companyID string) ([]attendance.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, attendance_id, employee_id,
			   previous_paid_seconds, new_paid_seconds, performed_by, notes, created_at
		FROM attendance_adjustments
		WHERE attendance_id = $1 AND company_id = $2
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, attendanceID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []attendance.Adjustment
	for rows.Next() {
		var (
			adj       attendance.Adjustment
			prev, cur int64
		)
		if err := rows.Scan(
			&adj.ID, &adj.CompanyID, &adj.AttendanceID, &adj.EmployeeID,
			&prev, &cur, &adj.PerformedBy, &adj.Notes, &adj.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance adjustment: %w", err)
		}
		adj.PreviousPaidTime = duration.FromSeconds(prev)
		adj.NewPaidTime = duration.FromSeconds(cur)
		adjustments = append(adjustments, adj)
	}

	return adjustments, rows.Err()
}

func NewAdjustmentRepository(db *database.DB) attendance.AdjustmentRepository {
	return &adjustmentRepository{db: db}
}
