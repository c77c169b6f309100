package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const compensationColumns = `
	c.id, c.company_id, c.employee_id, c.total, c.is_active, c.created_at, c.updated_at,
	e.full_name`

type compensationRepository struct {
	db *database.DB
}

func scanCompensation(row pgx.Row) (compensation.Compensation, error) {
	var c compensation.Compensation
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.EmployeeID, &c.Total, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		&c.EmployeeName,
	)
	return c, err
}

// Create implements compensation.CompensationRepository.
// The partial unique index on active aggregates decides concurrent creates.
func (r *compensationRepository) Create(ctx context.Context, c compensation.Compensation) (compensation.Compensation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO compensations (company_id, employee_id, total, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query, c.CompanyID, c.EmployeeID, c.Total, c.IsActive).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_compensations_active_employee") {
			return compensation.Compensation{}, compensation.ErrCompensationExists
		}
		return compensation.Compensation{}, fmt.Errorf("failed to create compensation: %w", err)
	}
	return c, nil
}

// GetByID implements compensation.CompensationRepository.
func (r *compensationRepository) GetByID(ctx context.Context, id, companyID string) (compensation.Compensation, error) {
	return r.getOne(ctx, "c.id = $1 AND c.company_id = $2", false, id, companyID)
}

// GetByIDForUpdate implements compensation.CompensationRepository.
func (r *compensationRepository) GetByIDForUpdate(ctx context.Context, id, companyID string) (compensation.Compensation, error) {
	return r.getOne(ctx, "c.id = $1 AND c.company_id = $2", true, id, companyID)
}

// GetActiveByEmployee implements compensation.CompensationRepository.
func (r *compensationRepository) GetActiveByEmployee(ctx context.Context, employeeID, companyID string) (compensation.Compensation, error) {
	return r.getOne(ctx, "c.employee_id = $1 AND c.company_id = $2 AND c.is_active", false, employeeID, companyID)
}

func (r *compensationRepository) getOne(ctx context.Context, where string, lock bool, args ...interface{}) (compensation.Compensation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + compensationColumns + `
		FROM compensations c
		LEFT JOIN employees e ON e.id = c.employee_id
		WHERE ` + where
	if lock {
		query += " FOR UPDATE OF c"
	}

	c, err := scanCompensation(q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNotFound(err) {
			return compensation.Compensation{}, compensation.ErrCompensationNotFound
		}
		return compensation.Compensation{}, fmt.Errorf("failed to get compensation: %w", err)
	}

	c.Components, err = r.ListComponents(ctx, c.ID)
	if err != nil {
		return compensation.Compensation{}, err
	}
	return c, nil
}

// ListActiveByEmployees implements compensation.CompensationRepository.
// Components are loaded in one query and grouped in memory.
func (r *compensationRepository) ListActiveByEmployees(ctx context.Context, companyID string, employeeIDs []string) (map[string]compensation.Compensation, error) {
	q := GetQuerier(ctx, r.db)
	result := make(map[string]compensation.Compensation, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `
		SELECT `+compensationColumns+`
		FROM compensations c
		LEFT JOIN employees e ON e.id = c.employee_id
		WHERE c.company_id = $1 AND c.is_active AND c.employee_id = ANY($2)
	`, companyID, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list compensations: %w", err)
	}
	byID := make(map[string]string)
	for rows.Next() {
		c, err := scanCompensation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan compensation: %w", err)
		}
		result[c.EmployeeID] = c
		byID[c.ID] = c.EmployeeID
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compensations: %w", err)
	}
	if len(byID) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	components, err := r.listComponents(ctx, "compensation_id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	for _, sc := range components {
		empID := byID[sc.CompensationID]
		c := result[empID]
		c.Components = append(c.Components, sc)
		result[empID] = c
	}
	return result, nil
}

// List implements compensation.CompensationRepository.
func (r *compensationRepository) List(ctx context.Context, filter compensation.CompensationFilter) ([]compensation.Compensation, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"c.company_id = $1"}
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if !filter.IncludeInactive {
		whereClauses = append(whereClauses, "c.is_active")
	}
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("c.employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	whereSQL := "WHERE " + strings.Join(whereClauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM compensations c ` + whereSQL
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count compensations: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`
		SELECT %s
		FROM compensations c
		LEFT JOIN employees e ON e.id = c.employee_id
		%s
		ORDER BY e.full_name ASC, c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, compensationColumns, whereSQL, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list compensations: %w", err)
	}
	var out []compensation.Compensation
	for rows.Next() {
		c, err := scanCompensation(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan compensation: %w", err)
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate compensations: %w", err)
	}

	for i := range out {
		if out[i].Components, err = r.ListComponents(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// UpdateTotal implements compensation.CompensationRepository.
func (r *compensationRepository) UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `UPDATE compensations SET total = $2, updated_at = NOW() WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("failed to update compensation total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return compensation.ErrCompensationNotFound
	}
	return nil
}

// Deactivate implements compensation.CompensationRepository.
func (r *compensationRepository) Deactivate(ctx context.Context, id, companyID string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE compensations SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to deactivate compensation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return compensation.ErrCompensationNotFound
	}
	return nil
}

// Delete implements compensation.CompensationRepository. Components cascade.
func (r *compensationRepository) Delete(ctx context.Context, id, companyID string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM compensations WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete compensation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return compensation.ErrCompensationNotFound
	}
	return nil
}

// CreateComponents implements compensation.CompensationRepository.
func (r *compensationRepository) CreateComponents(ctx context.Context, compensationID string, components []compensation.SalaryComponent) ([]compensation.SalaryComponent, error) {
	if len(components) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	values := make([]string, 0, len(components))
	args := make([]interface{}, 0, len(components)*3+1)
	args = append(args, compensationID)
	for i, c := range components {
		base := i*3 + 2
		values = append(values, fmt.Sprintf("($1, $%d, $%d, $%d)", base, base+1, base+2))
		args = append(args, string(c.Kind), c.Amount, c.Label)
	}

	query := `
		INSERT INTO salary_components (compensation_id, kind, amount, label)
		VALUES ` + strings.Join(values, ", ") + `
		RETURNING id, compensation_id, kind, amount, label, created_at, updated_at
	`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create salary components: %w", err)
	}
	return collectComponents(rows)
}

// UpdateComponent implements compensation.CompensationRepository.
func (r *compensationRepository) UpdateComponent(ctx context.Context, c compensation.SalaryComponent) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE salary_components
		SET kind = $3, amount = $4, label = $5, updated_at = NOW()
		WHERE id = $1 AND compensation_id = $2
	`, c.ID, c.CompensationID, string(c.Kind), c.Amount, c.Label)
	if err != nil {
		return fmt.Errorf("failed to update salary component: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return compensation.ErrComponentNotFound
	}
	return nil
}

// DeleteComponent implements compensation.CompensationRepository.
func (r *compensationRepository) DeleteComponent(ctx context.Context, id, compensationID string) error {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM salary_components WHERE id = $1 AND compensation_id = $2`, id, compensationID)
	if err != nil {
		return fmt.Errorf("failed to delete salary component: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return compensation.ErrComponentNotFound
	}
	return nil
}

// ListComponents implements compensation.CompensationRepository.
func (r *compensationRepository) ListComponents(ctx context.Context, compensationID string) ([]compensation.SalaryComponent, error) {
	return r.listComponents(ctx, "compensation_id = $1", compensationID)
}

func (r *compensationRepository) listComponents(ctx context.Context, where string, arg interface{}) ([]compensation.SalaryComponent, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT id, compensation_id, kind, amount, label, created_at, updated_at
		FROM salary_components
		WHERE `+where+`
		ORDER BY created_at ASC, id ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary components: %w", err)
	}
	return collectComponents(rows)
}

func collectComponents(rows pgx.Rows) ([]compensation.SalaryComponent, error) {
	defer rows.Close()

	var out []compensation.SalaryComponent
	for rows.Next() {
		var (
			c    compensation.SalaryComponent
			kind string
		)
		if err := rows.Scan(&c.ID, &c.CompensationID, &kind, &c.Amount, &c.Label, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan salary component: %w", err)
		}
		c.Kind = compensation.ComponentKind(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary components: %w", err)
	}
	return out, nil
}

func NewCompensationRepository(db *database.DB) compensation.CompensationRepository {
	return &compensationRepository{db: db}
}

