package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== SETTINGS ==========

func (r *payrollRepository) GetSettings(ctx context.Context, companyID string) (payroll.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, proration_policy, working_weekdays, standard_hours,
			   overtime_multiplier, currency, updated_at
		FROM payroll_settings
		WHERE company_id = $1
	`

	var (
		s         payroll.Settings
		weekdays  []int32
		updatedAt time.Time
	)
	err := q.QueryRow(ctx, query, companyID).Scan(
		&s.CompanyID, &s.ProrationPolicy, &weekdays, &s.StandardHours,
		&s.OvertimeMultiplier, &s.Currency, &updatedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return payroll.Settings{}, payroll.ErrSettingsNotFound
		}
		return payroll.Settings{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}
	s.WorkingWeekdays = fromInt32s(weekdays)
	s.UpdatedAt = &updatedAt

	return s, nil
}

func (r *payrollRepository) UpsertSettings(ctx context.Context, settings payroll.Settings) (payroll.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_settings (
			company_id, proration_policy, working_weekdays, standard_hours,
			overtime_multiplier, currency
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE SET
			proration_policy = EXCLUDED.proration_policy,
			working_weekdays = EXCLUDED.working_weekdays,
			standard_hours = EXCLUDED.standard_hours,
			overtime_multiplier = EXCLUDED.overtime_multiplier,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := q.QueryRow(ctx, query,
		settings.CompanyID, string(settings.ProrationPolicy), toInt32s(settings.WorkingWeekdays),
		settings.StandardHours, settings.OvertimeMultiplier, settings.Currency,
	).Scan(&updatedAt)
	if err != nil {
		return payroll.Settings{}, fmt.Errorf("failed to upsert payroll settings: %w", err)
	}
	settings.UpdatedAt = &updatedAt

	return settings, nil
}

// ========== CYCLES ==========

const cycleColumns = `
	id, company_id, name, frequency, period_start, period_end, cutoff_date,
	eligibility, criteria, status, last_run_id, last_run_at, created_at, updated_at`

func scanCycle(row pgx.Row) (payroll.Cycle, error) {
	var (
		c        payroll.Cycle
		criteria []byte
	)
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Frequency, &c.PeriodStart, &c.PeriodEnd, &c.CutoffDate,
		&c.Eligibility, &criteria, &c.Status, &c.LastRunID, &c.LastRunAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return payroll.Cycle{}, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &c.Criteria); err != nil {
			return payroll.Cycle{}, fmt.Errorf("failed to decode cycle criteria: %w", err)
		}
	}
	return c, nil
}

func (r *payrollRepository) CreateCycle(ctx context.Context, cycle payroll.Cycle) (payroll.Cycle, error) {
	criteria, err := json.Marshal(cycle.Criteria)
	if err != nil {
		return payroll.Cycle{}, fmt.Errorf("failed to encode cycle criteria: %w", err)
	}

	err = NewTransactor(r.db).WithinTransaction(ctx, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		query := `
			INSERT INTO pay_cycles (
				company_id, name, frequency, period_start, period_end, cutoff_date,
				eligibility, criteria, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`
		err := q.QueryRow(ctx, query,
			cycle.CompanyID, cycle.Name, string(cycle.Frequency), cycle.PeriodStart, cycle.PeriodEnd, cycle.CutoffDate,
			string(cycle.Eligibility), criteria, string(cycle.Status),
		).Scan(&cycle.ID, &cycle.CreatedAt, &cycle.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create pay cycle: %w", err)
		}
		return r.replaceCycleEmployees(ctx, cycle.ID, cycle.EligibleEmployees)
	})
	if err != nil {
		return payroll.Cycle{}, err
	}
	return cycle, nil
}

func (r *payrollRepository) GetCycleByID(ctx context.Context, id string, companyID string) (payroll.Cycle, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + cycleColumns + ` FROM pay_cycles WHERE id = $1 AND company_id = $2`
	c, err := scanCycle(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Cycle{}, payroll.ErrCycleNotFound
		}
		return payroll.Cycle{}, fmt.Errorf("failed to get pay cycle: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT employee_id FROM pay_cycle_employees WHERE cycle_id = $1 ORDER BY employee_id`, id)
	if err != nil {
		return payroll.Cycle{}, fmt.Errorf("failed to get pay cycle employees: %w", err)
	}
	c.EligibleEmployees, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return payroll.Cycle{}, fmt.Errorf("failed to scan pay cycle employees: %w", err)
	}

	return c, nil
}

func (r *payrollRepository) ListCycles(ctx context.Context, filter payroll.CycleFilter) ([]payroll.Cycle, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"company_id = $1"}
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.Status != nil && *filter.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM pay_cycles WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pay cycles: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM pay_cycles
		WHERE %s
		ORDER BY period_start DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, cycleColumns, whereSQL, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pay cycles: %w", err)
	}
	defer rows.Close()

	var cycles []payroll.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pay cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate pay cycles: %w", err)
	}

	return cycles, total, nil
}

func (r *payrollRepository) UpdateCycle(ctx context.Context, cycle payroll.Cycle) error {
	criteria, err := json.Marshal(cycle.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode cycle criteria: %w", err)
	}

	return NewTransactor(r.db).WithinTransaction(ctx, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		query := `
			UPDATE pay_cycles SET
				name = $3, frequency = $4, period_start = $5, period_end = $6, cutoff_date = $7,
				eligibility = $8, criteria = $9, updated_at = NOW()
			WHERE id = $1 AND company_id = $2
		`
		tag, err := q.Exec(ctx, query,
			cycle.ID, cycle.CompanyID, cycle.Name, string(cycle.Frequency), cycle.PeriodStart, cycle.PeriodEnd,
			cycle.CutoffDate, string(cycle.Eligibility), criteria,
		)
		if err != nil {
			return fmt.Errorf("failed to update pay cycle: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return payroll.ErrCycleNotFound
		}
		return r.replaceCycleEmployees(ctx, cycle.ID, cycle.EligibleEmployees)
	})
}

func (r *payrollRepository) DeleteCycle(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM pay_cycles WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete pay cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrCycleNotFound
	}
	return nil
}

func (r *payrollRepository) MarkCycleRun(ctx context.Context, id string, runID string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE pay_cycles
		SET status = $2, last_run_id = $3, last_run_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, id, string(payroll.CycleStatusClosed), runID, at)
	if err != nil {
		return fmt.Errorf("failed to mark pay cycle run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrCycleNotFound
	}
	return nil
}

// TryLockCycle uses pg_try_advisory_xact_lock, released when the surrounding transaction ends.
func (r *payrollRepository) TryLockCycle(ctx context.Context, id string) (bool, error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); !ok {
		return false, errors.New("cycle lock requires a transaction")
	}
	q := GetQuerier(ctx, r.db)

	var locked bool
	if err := q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, id).Scan(&locked); err != nil {
		return false, fmt.Errorf("failed to lock pay cycle: %w", err)
	}
	return locked, nil
}

func (r *payrollRepository) replaceCycleEmployees(ctx context.Context, cycleID string, employeeIDs []string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM pay_cycle_employees WHERE cycle_id = $1`, cycleID); err != nil {
		return fmt.Errorf("failed to clear pay cycle employees: %w", err)
	}
	if len(employeeIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO pay_cycle_employees (cycle_id, employee_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, cycleID, employeeIDs)
	if err != nil {
		return fmt.Errorf("failed to set pay cycle employees: %w", err)
	}
	return nil
}

// ========== ATTENDANCE ==========

func (r *payrollRepository) GetAttendanceTotals(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time, statuses []string) (map[string]payroll.AttendanceTotals, error) {
	result := make(map[string]payroll.AttendanceTotals, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id,
			   COUNT(DISTINCT date),
			   COALESCE(SUM(GREATEST(overtime_seconds, 0)), 0)::bigint,
			   COALESCE(SUM(GREATEST(-overtime_seconds, 0)), 0)::bigint
		FROM attendances
		WHERE company_id = $1
		  AND employee_id = ANY($2)
		  AND date BETWEEN $3 AND $4
		  AND status = ANY($5)
		  AND clock_out IS NOT NULL
		GROUP BY employee_id
	`
	rows, err := q.Query(ctx, query, companyID, employeeIDs, start, end, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t payroll.AttendanceTotals
		if err := rows.Scan(&t.EmployeeID, &t.Days, &t.OvertimeSeconds, &t.DeficitSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan attendance totals: %w", err)
		}
		result[t.EmployeeID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance totals: %w", err)
	}

	return result, nil
}

// ========== RECORDS ==========

const recordColumns = `
	pr.id, pr.company_id, pr.cycle_id, pr.employee_id, pr.run_id, pr.period_start, pr.period_end,
	pr.base, pr.prorated_base, pr.recurring, pr.one_off, pr.offset_amount, pr.gross, pr.components,
	pr.overtime_seconds, pr.deficit_seconds, pr.overtime_pay, pr.deficit_deduction,
	pr.attendance_adjustment, pr.net, pr.warning, pr.superseded_count, pr.created_at, pr.updated_at,
	e.full_name, pc.name`

func scanRecord(row pgx.Row) (payroll.Record, error) {
	var (
		rec        payroll.Record
		components []byte
	)
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.CycleID, &rec.EmployeeID, &rec.RunID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.Base, &rec.ProratedBase, &rec.Recurring, &rec.OneOff, &rec.Offset, &rec.Gross, &components,
		&rec.OvertimeSeconds, &rec.DeficitSeconds, &rec.OvertimePay, &rec.DeficitDeduction,
		&rec.AttendanceAdjustment, &rec.Net, &rec.Warning, &rec.SupersededCount, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.EmployeeName, &rec.CycleName,
	)
	if err != nil {
		return payroll.Record{}, err
	}
	if len(components) > 0 {
		if err := json.Unmarshal(components, &rec.Components); err != nil {
			return payroll.Record{}, fmt.Errorf("failed to decode record components: %w", err)
		}
	}
	return rec, nil
}

// UpsertRecord keeps the row id stable across runs; a replaced row gets the new run id
// and its superseded_count goes up by one.
func (r *payrollRepository) UpsertRecord(ctx context.Context, rec payroll.Record) (payroll.Record, bool, error) {
	components, err := json.Marshal(rec.Components)
	if err != nil {
		return payroll.Record{}, false, fmt.Errorf("failed to encode record components: %w", err)
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_records (
			company_id, cycle_id, employee_id, run_id, period_start, period_end,
			base, prorated_base, recurring, one_off, offset_amount, gross, components,
			overtime_seconds, deficit_seconds, overtime_pay, deficit_deduction,
			attendance_adjustment, net, warning
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (cycle_id, employee_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			base = EXCLUDED.base,
			prorated_base = EXCLUDED.prorated_base,
			recurring = EXCLUDED.recurring,
			one_off = EXCLUDED.one_off,
			offset_amount = EXCLUDED.offset_amount,
			gross = EXCLUDED.gross,
			components = EXCLUDED.components,
			overtime_seconds = EXCLUDED.overtime_seconds,
			deficit_seconds = EXCLUDED.deficit_seconds,
			overtime_pay = EXCLUDED.overtime_pay,
			deficit_deduction = EXCLUDED.deficit_deduction,
			attendance_adjustment = EXCLUDED.attendance_adjustment,
			net = EXCLUDED.net,
			warning = EXCLUDED.warning,
			superseded_count = payroll_records.superseded_count + 1,
			updated_at = NOW()
		RETURNING id, superseded_count, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err = q.QueryRow(ctx, query,
		rec.CompanyID, rec.CycleID, rec.EmployeeID, rec.RunID, rec.PeriodStart, rec.PeriodEnd,
		rec.Base, rec.ProratedBase, rec.Recurring, rec.OneOff, rec.Offset, rec.Gross, components,
		rec.OvertimeSeconds, rec.DeficitSeconds, rec.OvertimePay, rec.DeficitDeduction,
		rec.AttendanceAdjustment, rec.Net, rec.Warning,
	).Scan(&rec.ID, &rec.SupersededCount, &rec.CreatedAt, &rec.UpdatedAt, &inserted)
	if err != nil {
		return payroll.Record{}, false, fmt.Errorf("failed to upsert payroll record: %w", err)
	}

	return rec, inserted, nil
}

func (r *payrollRepository) DeleteRecordsExcept(ctx context.Context, cycleID string, keep []string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	if keep == nil {
		keep = []string{}
	}
	tag, err := q.Exec(ctx, `DELETE FROM payroll_records WHERE cycle_id = $1 AND employee_id <> ALL($2)`, cycleID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale payroll records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *payrollRepository) GetRecordByID(ctx context.Context, id string, companyID string) (payroll.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + recordColumns + `
		FROM payroll_records pr
		LEFT JOIN employees e ON e.id = pr.employee_id
		LEFT JOIN pay_cycles pc ON pc.id = pr.cycle_id
		WHERE pr.id = $1 AND pr.company_id = $2
	`
	rec, err := scanRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Record{}, payroll.ErrRecordNotFound
		}
		return payroll.Record{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

func (r *payrollRepository) ListRecords(ctx context.Context, filter payroll.RecordFilter) ([]payroll.Record, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"pr.company_id = $1"}
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.CycleID != nil && *filter.CycleID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("pr.cycle_id = $%d", argIdx))
		args = append(args, *filter.CycleID)
		argIdx++
	}
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("pr.employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_records pr WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM payroll_records pr
		LEFT JOIN employees e ON e.id = pr.employee_id
		LEFT JOIN pay_cycles pc ON pc.id = pr.cycle_id
		WHERE %s
		ORDER BY pr.period_start DESC, e.full_name ASC
		LIMIT $%d OFFSET $%d
	`, recordColumns, whereSQL, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll records: %w", err)
	}

	return records, total, nil
}

// ========== REPORT ==========

func (r *payrollRepository) Report(ctx context.Context, companyID string, start, end time.Time) ([]payroll.ReportRow, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT pr.employee_id, COALESCE(e.full_name, ''), COUNT(*),
			   SUM(pr.gross), SUM(pr.attendance_adjustment), SUM(pr.net),
			   SUM(pr.overtime_seconds)::bigint, SUM(pr.deficit_seconds)::bigint
		FROM payroll_records pr
		LEFT JOIN employees e ON e.id = pr.employee_id
		WHERE pr.company_id = $1
		  AND pr.period_start >= $2
		  AND pr.period_end <= $3
		GROUP BY pr.employee_id, e.full_name
		ORDER BY SUM(pr.net) DESC, e.full_name ASC
	`
	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build payroll report: %w", err)
	}
	defer rows.Close()

	var report []payroll.ReportRow
	for rows.Next() {
		var row payroll.ReportRow
		if err := rows.Scan(
			&row.EmployeeID, &row.EmployeeName, &row.Records,
			&row.Gross, &row.AttendanceAdjustment, &row.Net,
			&row.OvertimeSeconds, &row.DeficitSeconds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll report row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll report: %w", err)
	}

	return report, nil
}

// ========== HELPERS ==========

func toInt32s(in []int) []int32 {
	out := make([]int32, 0, len(in))
	for _, v := range in {
		out = append(out, int32(v))
	}
	return out
}

func fromInt32s(in []int32) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		out = append(out, int(v))
	}
	return out
}
