package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CompensationHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	GetByEmployee(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	// Components
	AddComponent(w http.ResponseWriter, r *http.Request)
	UpdateComponent(w http.ResponseWriter, r *http.Request)
	RemoveComponent(w http.ResponseWriter, r *http.Request)

	ApplyToEmployee(w http.ResponseWriter, r *http.Request)
}

type compensationHandlerImpl struct {
	compensationService compensation.CompensationService
}

func NewCompensationHandler(compensationService compensation.CompensationService) CompensationHandler {
	return &compensationHandlerImpl{compensationService: compensationService}
}

func (h *compensationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req compensation.CreateCompensationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.compensationService.Create(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Compensation created", result)
}

func (h *compensationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.compensationService.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *compensationHandlerImpl) GetByEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.compensationService.GetByEmployee(r.Context(), actor, chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *compensationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter := compensation.CompensationFilter{
		EmployeeID:      optionalQuery(r, "employee_id"),
		IncludeInactive: getBoolQueryParam(r, "include_inactive", false),
		Page:            getIntQueryParam(r, "page", 1),
		Limit:           getIntQueryParam(r, "limit", 20),
	}

	result, err := h.compensationService.List(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *compensationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.compensationService.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Compensation deleted", nil)
}

// ========== COMPONENTS ==========

func (h *compensationHandlerImpl) AddComponent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req compensation.AddComponentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompensationID = chi.URLParam(r, "id")

	result, err := h.compensationService.AddComponent(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary component added", result)
}

func (h *compensationHandlerImpl) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req compensation.UpdateComponentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompensationID = chi.URLParam(r, "id")
	req.ComponentID = chi.URLParam(r, "componentID")

	result, err := h.compensationService.UpdateComponent(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary component updated", result)
}

func (h *compensationHandlerImpl) RemoveComponent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.compensationService.RemoveComponent(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "componentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary component removed", result)
}

// ApplyToEmployee copies the compensation's components to another employee.
func (h *compensationHandlerImpl) ApplyToEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req compensation.ApplyToEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SourceID = chi.URLParam(r, "id")

	result, err := h.compensationService.ApplyToEmployee(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Compensation applied", result)
}
