package compensation

import (
	"context"

	"github.com/shopspring/decimal"
)

// CompensationRepository persists aggregates and their components.
// Reads of a single aggregate include its components.
type CompensationRepository interface {
	Create(ctx context.Context, c Compensation) (Compensation, error)
	GetByID(ctx context.Context, id, companyID string) (Compensation, error)
	GetByIDForUpdate(ctx context.Context, id, companyID string) (Compensation, error)
	GetActiveByEmployee(ctx context.Context, employeeID, companyID string) (Compensation, error)
	ListActiveByEmployees(ctx context.Context, companyID string, employeeIDs []string) (map[string]Compensation, error)
	List(ctx context.Context, filter CompensationFilter) ([]Compensation, int64, error)
	UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error
	Deactivate(ctx context.Context, id, companyID string) error
	Delete(ctx context.Context, id, companyID string) error

	CreateComponents(ctx context.Context, compensationID string, components []SalaryComponent) ([]SalaryComponent, error)
	UpdateComponent(ctx context.Context, c SalaryComponent) error
	DeleteComponent(ctx context.Context, id, compensationID string) error
	ListComponents(ctx context.Context, compensationID string) ([]SalaryComponent, error)
}
