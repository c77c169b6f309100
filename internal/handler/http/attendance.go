package http

import (
	"net/http"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	// Lifecycle
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	AdjustPaidTime(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	RevokeApproval(w http.ResponseWriter, r *http.Request)
	ListAdjustments(w http.ResponseWriter, r *http.Request)

	// Self-service
	Today(w http.ResponseWriter, r *http.Request)
	Check(w http.ResponseWriter, r *http.Request)
	NetworkStatus(w http.ResponseWriter, r *http.Request)
	MySummary(w http.ResponseWriter, r *http.Request)
	TeamSummary(w http.ResponseWriter, r *http.Request)

	// CRUD
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	// Jobs
	Reconcile(w http.ResponseWriter, r *http.Request)

	// Office networks
	ListOfficeNetworks(w http.ResponseWriter, r *http.Request)
	CreateOfficeNetwork(w http.ResponseWriter, r *http.Request)
	DeleteOfficeNetwork(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// ========== LIFECYCLE ==========

// ClockIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.ClockInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ClockIn(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clock in successful", result)
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.ClockOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ClockOut(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", result)
}

// AdjustPaidTime implements AttendanceHandler.
func (h *attendanceHandlerImpl) AdjustPaidTime(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.AdjustPaidTimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.attendanceService.AdjustPaidTime(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Paid time adjusted successfully", result)
}

// Approve implements AttendanceHandler.
func (h *attendanceHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.ApproveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.attendanceService.Approve(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance approved successfully", result)
}

// RevokeApproval implements AttendanceHandler.
func (h *attendanceHandlerImpl) RevokeApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.RevokeApproval(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance approval revoked", result)
}

// ListAdjustments implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.ListAdjustments(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== SELF-SERVICE ==========

// Today implements AttendanceHandler.
func (h *attendanceHandlerImpl) Today(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var errs validator.ValidationErrors
	date := validator.ParseOptionalDate("date", optionalQuery(r, "date"), &errs)
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.Today(r.Context(), actor, r.URL.Query().Get("employee_id"), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Check implements AttendanceHandler.
func (h *attendanceHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientIP = middleware.ClientIP(r)
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.Check(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if req.Action == attendance.CheckActionClockIn {
		response.Created(w, "Clock in successful", result)
		return
	}
	response.SuccessWithMessage(w, "Clock out successful", result)
}

// NetworkStatus implements AttendanceHandler.
func (h *attendanceHandlerImpl) NetworkStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.NetworkStatus(r.Context(), actor, r.URL.Query().Get("employee_id"), middleware.ClientIP(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func summaryFilterFromQuery(r *http.Request) attendance.SummaryFilter {
	return attendance.SummaryFilter{
		StartDate: optionalQuery(r, "start_date"),
		EndDate:   optionalQuery(r, "end_date"),
		Status:    optionalQuery(r, "status"),
		Office:    optionalQuery(r, "office"),
	}
}

// MySummary implements AttendanceHandler.
func (h *attendanceHandlerImpl) MySummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter := summaryFilterFromQuery(r)
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.MySummary(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// TeamSummary implements AttendanceHandler.
func (h *attendanceHandlerImpl) TeamSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter := summaryFilterFromQuery(r)
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.TeamSummary(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CRUD ==========

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter := attendance.AttendanceFilter{
		EmployeeID: optionalQuery(r, "employee_id"),
		Date:       optionalQuery(r, "date"),
		StartDate:  optionalQuery(r, "start_date"),
		EndDate:    optionalQuery(r, "end_date"),
		Status:     optionalQuery(r, "status"),
		Location:   optionalQuery(r, "location"),
		Office:     optionalQuery(r, "office"),
		Page:       getIntQueryParam(r, "page", 1),
		Limit:      getIntQueryParam(r, "limit", 20),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.attendanceService.ListAttendance(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.GetAttendance(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Create implements AttendanceHandler.
func (h *attendanceHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.CreateAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.CreateAttendance(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance created successfully", result)
}

// Update implements AttendanceHandler.
func (h *attendanceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.UpdateAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.UpdateAttendance(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance updated successfully", result)
}

// Delete implements AttendanceHandler.
func (h *attendanceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.attendanceService.DeleteAttendance(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance deleted successfully", nil)
}

// ========== JOBS ==========

type reconcileRequest struct {
	Date *string `json:"date,omitempty"`
}

// Reconcile runs overtime reconciliation on demand. An empty body reconciles yesterday.
func (h *attendanceHandlerImpl) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var errs validator.ValidationErrors
	date := validator.ParseOptionalDate("date", req.Date, &errs)
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ReconcileOvertime(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== OFFICE NETWORKS ==========

// ListOfficeNetworks implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListOfficeNetworks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.ListOfficeNetworks(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreateOfficeNetwork implements AttendanceHandler.
func (h *attendanceHandlerImpl) CreateOfficeNetwork(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.CreateOfficeNetworkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.CreateOfficeNetwork(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Office network created", result)
}

// DeleteOfficeNetwork implements AttendanceHandler.
func (h *attendanceHandlerImpl) DeleteOfficeNetwork(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.attendanceService.DeleteOfficeNetwork(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Office network deleted", nil)
}
