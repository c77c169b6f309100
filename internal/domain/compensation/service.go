package compensation

import (
	"context"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
)

type CompensationService interface {
	Create(ctx context.Context, actor user.Actor, req CreateCompensationRequest) (CompensationResponse, error)
	Get(ctx context.Context, actor user.Actor, id string) (CompensationResponse, error)
	GetByEmployee(ctx context.Context, actor user.Actor, employeeID string) (CompensationResponse, error)
	List(ctx context.Context, actor user.Actor, filter CompensationFilter) (ListCompensationResponse, error)
	Delete(ctx context.Context, actor user.Actor, id string) error

	AddComponent(ctx context.Context, actor user.Actor, req AddComponentRequest) (CompensationResponse, error)
	UpdateComponent(ctx context.Context, actor user.Actor, req UpdateComponentRequest) (CompensationResponse, error)
	RemoveComponent(ctx context.Context, actor user.Actor, compensationID, componentID string) (CompensationResponse, error)

	ApplyToEmployee(ctx context.Context, actor user.Actor, req ApplyToEmployeeRequest) (CompensationResponse, error)
}
