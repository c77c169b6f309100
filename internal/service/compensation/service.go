package compensation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

type CompensationServiceImpl struct {
	tx               database.Transactor
	compensationRepo compensation.CompensationRepository
	employeeRepo     employee.EmployeeRepository
}

func NewCompensationService(
	tx database.Transactor,
	compensationRepo compensation.CompensationRepository,
	employeeRepo employee.EmployeeRepository,
) compensation.CompensationService {
	return &CompensationServiceImpl{
		tx:               tx,
		compensationRepo: compensationRepo,
		employeeRepo:     employeeRepo,
	}
}

// Create implements compensation.CompensationService.
func (s *CompensationServiceImpl) Create(ctx context.Context, actor user.Actor, req compensation.CreateCompensationRequest) (compensation.CompensationResponse, error) {
	if err := req.Validate(); err != nil {
		return compensation.CompensationResponse{}, err
	}
	if err := requireManage(actor); err != nil {
		return compensation.CompensationResponse{}, err
	}
	if _, err := s.employee(ctx, actor, req.EmployeeID); err != nil {
		return compensation.CompensationResponse{}, err
	}

	var id string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureNoActive(ctx, req.EmployeeID, actor.CompanyID); err != nil {
			return err
		}
		var err error
		id, err = s.createWithComponents(ctx, actor.CompanyID, req.EmployeeID, req.ToComponents())
		return err
	})
	if err != nil {
		return compensation.CompensationResponse{}, err
	}

	return s.load(ctx, id, actor.CompanyID)
}

// Get implements compensation.CompensationService.
func (s *CompensationServiceImpl) Get(ctx context.Context, actor user.Actor, id string) (compensation.CompensationResponse, error) {
	c, err := s.compensationRepo.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		return compensation.CompensationResponse{}, err
	}
	if err := authorizeView(actor, c.EmployeeID); err != nil {
		return compensation.CompensationResponse{}, err
	}
	return compensation.NewCompensationResponse(c), nil
}

// GetByEmployee implements compensation.CompensationService.
func (s *CompensationServiceImpl) GetByEmployee(ctx context.Context, actor user.Actor, employeeID string) (compensation.CompensationResponse, error) {
	if err := authorizeView(actor, employeeID); err != nil {
		return compensation.CompensationResponse{}, err
	}
	c, err := s.compensationRepo.GetActiveByEmployee(ctx, employeeID, actor.CompanyID)
	if err != nil {
		return compensation.CompensationResponse{}, err
	}
	return compensation.NewCompensationResponse(c), nil
}

// List implements compensation.CompensationService. Non-elevated callers only see their own.
func (s *CompensationServiceImpl) List(ctx context.Context, actor user.Actor, filter compensation.CompensationFilter) (compensation.ListCompensationResponse, error) {
	if err := filter.Validate(); err != nil {
		return compensation.ListCompensationResponse{}, err
	}
	filter.CompanyID = actor.CompanyID
	if !user.HasPermission(actor.Role, user.PermissionCompensationView) {
		if actor.EmployeeID == "" {
			return compensation.ListCompensationResponse{}, user.Deny(user.ErrEmployeeProfileRequired)
		}
		own := actor.EmployeeID
		filter.EmployeeID = &own
	}

	items, total, err := s.compensationRepo.List(ctx, filter)
	if err != nil {
		return compensation.ListCompensationResponse{}, err
	}

	responses := make([]compensation.CompensationResponse, 0, len(items))
	for _, c := range items {
		responses = append(responses, compensation.NewCompensationResponse(c))
	}

	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return compensation.ListCompensationResponse{
		TotalCount:    total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    int(math.Ceil(float64(total) / float64(filter.Limit))),
		Showing:       showing,
		Compensations: responses,
	}, nil
}

// Delete implements compensation.CompensationService.
func (s *CompensationServiceImpl) Delete(ctx context.Context, actor user.Actor, id string) error {
	if err := requireManage(actor); err != nil {
		return err
	}
	return s.compensationRepo.Delete(ctx, id, actor.CompanyID)
}

// AddComponent implements compensation.CompensationService.
func (s *CompensationServiceImpl) AddComponent(ctx context.Context, actor user.Actor, req compensation.AddComponentRequest) (compensation.CompensationResponse, error) {
	if err := req.Validate(); err != nil {
		return compensation.CompensationResponse{}, err
	}
	return s.mutate(ctx, actor, req.CompensationID, func(ctx context.Context, c compensation.Compensation) error {
		_, err := s.compensationRepo.CreateComponents(ctx, c.ID, []compensation.SalaryComponent{req.ToComponent()})
		return err
	})
}

// UpdateComponent implements compensation.CompensationService.
func (s *CompensationServiceImpl) UpdateComponent(ctx context.Context, actor user.Actor, req compensation.UpdateComponentRequest) (compensation.CompensationResponse, error) {
	if err := req.Validate(); err != nil {
		return compensation.CompensationResponse{}, err
	}
	return s.mutate(ctx, actor, req.CompensationID, func(ctx context.Context, c compensation.Compensation) error {
		for _, sc := range c.Components {
			if sc.ID == req.ComponentID {
				req.Apply(&sc)
				return s.compensationRepo.UpdateComponent(ctx, sc)
			}
		}
		return compensation.ErrComponentNotFound
	})
}

// RemoveComponent implements compensation.CompensationService.
func (s *CompensationServiceImpl) RemoveComponent(ctx context.Context, actor user.Actor, compensationID, componentID string) (compensation.CompensationResponse, error) {
	return s.mutate(ctx, actor, compensationID, func(ctx context.Context, c compensation.Compensation) error {
		return s.compensationRepo.DeleteComponent(ctx, componentID, c.ID)
	})
}

// ApplyToEmployee implements compensation.CompensationService.
// The source is copied, never modified. With Replace the target's current aggregate is deactivated first.
func (s *CompensationServiceImpl) ApplyToEmployee(ctx context.Context, actor user.Actor, req compensation.ApplyToEmployeeRequest) (compensation.CompensationResponse, error) {
	if err := req.Validate(); err != nil {
		return compensation.CompensationResponse{}, err
	}
	if err := requireManage(actor); err != nil {
		return compensation.CompensationResponse{}, err
	}
	if _, err := s.employee(ctx, actor, req.EmployeeID); err != nil {
		return compensation.CompensationResponse{}, err
	}

	var id string
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		source, err := s.compensationRepo.GetByID(ctx, req.SourceID, actor.CompanyID)
		if err != nil {
			return err
		}
		if source.EmployeeID == req.EmployeeID {
			return validator.ValidationErrors{{Field: "employee_id", Message: "employee_id must differ from the source employee"}}
		}

		current, err := s.compensationRepo.GetActiveByEmployee(ctx, req.EmployeeID, actor.CompanyID)
		switch {
		case err == nil && !req.Replace:
			return compensation.ErrCompensationExists
		case err == nil:
			if err := s.compensationRepo.Deactivate(ctx, current.ID, actor.CompanyID); err != nil {
				return err
			}
		case !errors.Is(err, compensation.ErrCompensationNotFound):
			return err
		}

		id, err = s.createWithComponents(ctx, actor.CompanyID, req.EmployeeID, compensation.Clone(source.Components))
		return err
	})
	if err != nil {
		return compensation.CompensationResponse{}, err
	}

	return s.load(ctx, id, actor.CompanyID)
}

// ========================================
// helpers
// ========================================

// mutate locks the aggregate, runs fn and recalculates the total in the same transaction.
func (s *CompensationServiceImpl) mutate(ctx context.Context, actor user.Actor, id string, fn func(ctx context.Context, c compensation.Compensation) error) (compensation.CompensationResponse, error) {
	if err := requireManage(actor); err != nil {
		return compensation.CompensationResponse{}, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.compensationRepo.GetByIDForUpdate(ctx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return compensation.ErrCompensationInactive
		}
		if err := fn(ctx, c); err != nil {
			return err
		}
		return s.recalcTotal(ctx, c.ID)
	})
	if err != nil {
		return compensation.CompensationResponse{}, err
	}

	return s.load(ctx, id, actor.CompanyID)
}

func (s *CompensationServiceImpl) createWithComponents(ctx context.Context, companyID, employeeID string, components []compensation.SalaryComponent) (string, error) {
	created, err := s.compensationRepo.Create(ctx, compensation.Compensation{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Total:      compensation.Total(components),
		IsActive:   true,
	})
	if err != nil {
		return "", err
	}
	if _, err := s.compensationRepo.CreateComponents(ctx, created.ID, components); err != nil {
		return "", err
	}
	return created.ID, s.recalcTotal(ctx, created.ID)
}

// recalcTotal rewrites the cached total from the stored components.
func (s *CompensationServiceImpl) recalcTotal(ctx context.Context, id string) error {
	components, err := s.compensationRepo.ListComponents(ctx, id)
	if err != nil {
		return err
	}
	return s.compensationRepo.UpdateTotal(ctx, id, compensation.Total(components))
}

func (s *CompensationServiceImpl) ensureNoActive(ctx context.Context, employeeID, companyID string) error {
	_, err := s.compensationRepo.GetActiveByEmployee(ctx, employeeID, companyID)
	if err == nil {
		return compensation.ErrCompensationExists
	}
	if errors.Is(err, compensation.ErrCompensationNotFound) {
		return nil
	}
	return err
}

func (s *CompensationServiceImpl) load(ctx context.Context, id, companyID string) (compensation.CompensationResponse, error) {
	c, err := s.compensationRepo.GetByID(ctx, id, companyID)
	if err != nil {
		return compensation.CompensationResponse{}, err
	}
	return compensation.NewCompensationResponse(c), nil
}

func (s *CompensationServiceImpl) employee(ctx context.Context, actor user.Actor, id string) (employee.Employee, error) {
	emp, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.Employee{}, err
	}
	if emp.CompanyID != actor.CompanyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func requireManage(actor user.Actor) error {
	if !user.HasPermission(actor.Role, user.PermissionCompensationManage) {
		return user.Deny(user.ErrElevatedAccessRequired)
	}
	return nil
}

func authorizeView(actor user.Actor, employeeID string) error {
	if actor.IsSelf(employeeID) || user.HasPermission(actor.Role, user.PermissionCompensationView) {
		return nil
	}
	return user.Forbidden("cannot view this employee's compensation")
}
