package employee

import "context"

// EmployeeRepository is the read-only port onto the HR directory.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	GetByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error)
	GetByUserID(ctx context.Context, userID string) (Employee, error)
	ListByCriteria(ctx context.Context, companyID string, criteria Criteria) ([]Employee, error)
	ListDirectReports(ctx context.Context, managerID string) ([]Employee, error)
}
