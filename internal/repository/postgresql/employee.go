package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const employeeColumns = `
	id, company_id, user_id, full_name, manager_id, scheduled_hours, office,
	employment_status, hire_date, termination_date, created_at, updated_at`

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var (
		emp    employee.Employee
		status string
	)
	err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.UserID, &emp.FullName, &emp.ManagerID, &emp.ScheduledHours, &emp.Office,
		&status, &emp.HireDate, &emp.TerminationDate, &emp.CreatedAt, &emp.UpdatedAt,
	)
	emp.EmploymentStatus = employee.EmploymentStatus(status)
	return emp, err
}

func (e *employeeRepositoryImpl) queryEmployees(ctx context.Context, where string, args ...interface{}) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE deleted_at IS NULL AND ` + where + ` ORDER BY full_name`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (e *employeeRepositoryImpl) getOne(ctx context.Context, where string, arg interface{}) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE deleted_at IS NULL AND ` + where

	emp, err := scanEmployee(q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNotFound(err) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	return e.getOne(ctx, "id = $1", id)
}

// GetByUserID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	return e.getOne(ctx, "user_id = $1", userID)
}

// GetByIDs implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByIDs(ctx context.Context, companyID string, ids []string) ([]employee.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return e.queryEmployees(ctx, "company_id = $1 AND id = ANY($2)", companyID, ids)
}

// ListByCriteria implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListByCriteria(ctx context.Context, companyID string, c employee.Criteria) ([]employee.Employee, error) {
	where := "company_id = $1"
	args := []interface{}{companyID}
	argIdx := 2

	if c.ActiveOnly {
		where += fmt.Sprintf(" AND employment_status = $%d", argIdx)
		args = append(args, string(employee.EmploymentStatusActive))
		argIdx++
	}
	if c.Office != nil && *c.Office != "" {
		where += fmt.Sprintf(" AND office ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, containsPattern(*c.Office))
		argIdx++
	}
	if c.HiredOnOrBefore != nil {
		where += fmt.Sprintf(" AND hire_date <= $%d", argIdx)
		args = append(args, *c.HiredOnOrBefore)
	}

	return e.queryEmployees(ctx, where, args...)
}

// ListDirectReports implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListDirectReports(ctx context.Context, managerID string) ([]employee.Employee, error) {
	return e.queryEmployees(ctx, "manager_id = $1", managerID)
}
