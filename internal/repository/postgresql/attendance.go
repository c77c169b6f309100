package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/jackc/pgx/v5"
)

const attendanceColumns = `
	a.id, a.company_id, a.employee_id, a.date,
	a.clock_in, a.clock_in_location, a.clock_out, a.clock_out_location,
	a.paid_time_seconds, a.paid_time_adjusted, a.scheduled_hours, a.status,
	a.overtime_seconds, a.overtime_computed_for, a.approved_by, a.approved_at,
	a.created_at, a.updated_at,
	e.full_name, e.office`

type attendanceRepository struct {
	db *database.DB
}

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		att         attendance.Attendance
		paidSeconds int64
		status      string
	)
	err := row.Scan(
		&att.ID, &att.CompanyID, &att.EmployeeID, &att.Date,
		&att.ClockIn, &att.ClockInLocation, &att.ClockOut, &att.ClockOutLocation,
		&paidSeconds, &att.PaidTimeAdjusted, &att.ScheduledHours, &status,
		&att.OvertimeSeconds, &att.OvertimeComputedFor, &att.ApprovedBy, &att.ApprovedAt,
		&att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName, &att.Office,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.PaidTime = duration.FromSeconds(paidSeconds)
	att.Status = attendance.Status(status)
	return att, nil
}

func collectAttendances(rows pgx.Rows) ([]attendance.Attendance, error) {
	defer rows.Close()

	var attendances []attendance.Attendance
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendances = append(attendances, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}
	return attendances, nil
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendances (
			company_id, employee_id, date, clock_in, clock_in_location,
			clock_out, clock_out_location, paid_time_seconds, paid_time_adjusted,
			scheduled_hours, status, overtime_seconds, overtime_computed_for,
			approved_by, approved_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		newAttendance.CompanyID,
		newAttendance.EmployeeID,
		newAttendance.Date,
		newAttendance.ClockIn,
		newAttendance.ClockInLocation,
		newAttendance.ClockOut,
		newAttendance.ClockOutLocation,
		duration.Seconds(newAttendance.PaidTime),
		newAttendance.PaidTimeAdjusted,
		newAttendance.ScheduledHours,
		string(newAttendance.Status),
		newAttendance.OvertimeSeconds,
		newAttendance.OvertimeComputedFor,
		newAttendance.ApprovedBy,
		newAttendance.ApprovedAt,
	).Scan(&newAttendance.ID, &newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, "uq_attendances_employee_date") {
			return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Attendance, error) {
	return r.getByID(ctx, id, companyID, false)
}

// GetByIDForUpdate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (attendance.Attendance, error) {
	return r.getByID(ctx, id, companyID, true)
}

func (r *attendanceRepository) getByID(ctx context.Context, id string, companyID string, lock bool) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1 AND a.company_id = $2
	`
	if lock {
		query += " FOR UPDATE OF a"
	}

	att, err := scanAttendance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by ID: %w", err)
	}

	return att, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, companyID string) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.employee_id = $1
		  AND a.date = $2
		  AND a.company_id = $3
		LIMIT 1
	`

	att, err := scanAttendance(q.QueryRow(ctx, query, employeeID, date, companyID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &att, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, att attendance.Attendance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendances SET
			clock_in = $1,
			clock_in_location = $2,
			clock_out = $3,
			clock_out_location = $4,
			paid_time_seconds = $5,
			paid_time_adjusted = $6,
			status = $7,
			overtime_seconds = $8,
			overtime_computed_for = $9,
			approved_by = $10,
			approved_at = $11,
			updated_at = NOW()
		WHERE id = $12 AND company_id = $13
	`

	tag, err := q.Exec(ctx, query,
		att.ClockIn,
		att.ClockInLocation,
		att.ClockOut,
		att.ClockOutLocation,
		duration.Seconds(att.PaidTime),
		att.PaidTimeAdjusted,
		string(att.Status),
		att.OvertimeSeconds,
		att.OvertimeComputedFor,
		att.ApprovedBy,
		att.ApprovedAt,
		att.ID,
		att.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// UpdateOvertime implements attendance.AttendanceRepository.
func (r *attendanceRepository) UpdateOvertime(ctx context.Context, id string, overtimeSeconds int64, computedFor time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendances
		SET overtime_seconds = $1, overtime_computed_for = $2, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := q.Exec(ctx, query, overtimeSeconds, computedFor, id)
	if err != nil {
		return fmt.Errorf("failed to update overtime: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepository) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendances WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "a.company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	// Scope from the actor
	if filter.ScopeEmployeeID != nil {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.ScopeEmployeeID)
		argIdx++
	}
	if filter.ScopeManagerID != nil {
		baseWhere += fmt.Sprintf(" AND (a.employee_id = $%d OR e.manager_id = $%d)", argIdx, argIdx)
		args = append(args, *filter.ScopeManagerID)
		argIdx++
	}

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND a.date = $%d", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, strings.ToUpper(*filter.Status))
		argIdx++
	}
	if filter.Location != nil && *filter.Location != "" {
		baseWhere += fmt.Sprintf(" AND (a.clock_in_location ILIKE $%d ESCAPE '\\' OR a.clock_out_location ILIKE $%d ESCAPE '\\')", argIdx, argIdx)
		args = append(args, containsPattern(*filter.Location))
		argIdx++
	}
	if filter.Office != nil && *filter.Office != "" {
		baseWhere += fmt.Sprintf(" AND e.office ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, containsPattern(*filter.Office))
		argIdx++
	}

	countQuery := `
		SELECT COUNT(*)
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	orderByField := "a.date"
	switch filter.SortBy {
	case "employee_name":
		orderByField = "e.full_name"
	case "clock_in":
		orderByField = "a.clock_in"
	case "clock_out":
		orderByField = "a.clock_out"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY %s %s, a.clock_in ASC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}

	attendances, err := collectAttendances(rows)
	if err != nil {
		return nil, 0, err
	}

	return attendances, total, nil
}

// ListClosedByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListClosedByDate(ctx context.Context, date time.Time, companyID *string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.date = $1
		  AND a.clock_out IS NOT NULL
		  AND ($2::uuid IS NULL OR a.company_id = $2)
		ORDER BY a.company_id, a.clock_in
	`

	rows, err := q.Query(ctx, query, date, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed attendances: %w", err)
	}

	return collectAttendances(rows)
}

// ListForSummary implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListForSummary(ctx context.Context, sq attendance.SummaryQuery) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	where := "a.company_id = $1 AND a.date >= $2 AND a.date <= $3"
	args := []interface{}{sq.CompanyID, sq.Start, sq.End}
	argIdx := 4

	if sq.EmployeeIDs != nil {
		where += fmt.Sprintf(" AND a.employee_id = ANY($%d)", argIdx)
		args = append(args, sq.EmployeeIDs)
		argIdx++
	}
	if sq.Status != nil {
		where += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, string(*sq.Status))
		argIdx++
	}
	if sq.Office != nil && *sq.Office != "" {
		where += fmt.Sprintf(" AND e.office ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, containsPattern(*sq.Office))
	}

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE ` + where + `
		ORDER BY e.full_name, a.date
	`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances for summary: %w", err)
	}

	return collectAttendances(rows)
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
