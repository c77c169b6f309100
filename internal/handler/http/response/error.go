package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/duration"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Permission errors
	case errors.Is(err, user.ErrInvalidClaims):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrForbidden):
		Forbidden(w, err.Error())
	case errors.Is(err, attendance.ErrOutsideOfficeNetwork):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrOfficeNetworkNotFound):
		NotFound(w, "Office network not found")
	case errors.Is(err, compensation.ErrCompensationNotFound):
		NotFound(w, "Compensation not found")
	case errors.Is(err, compensation.ErrComponentNotFound):
		NotFound(w, "Salary component not found")
	case errors.Is(err, payroll.ErrCycleNotFound):
		NotFound(w, "Pay cycle not found")
	case errors.Is(err, payroll.ErrRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Conflicts
	case errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrNotClockedIn),
		errors.Is(err, attendance.ErrAttendanceStillOpen),
		errors.Is(err, attendance.ErrOfficeNetworkExists),
		errors.Is(err, compensation.ErrCompensationExists),
		errors.Is(err, compensation.ErrCompensationInactive),
		errors.Is(err, payroll.ErrRunInProgress),
		errors.Is(err, payroll.ErrCycleLocked):
		Conflict(w, err.Error())

	// Rejected values outside struct validation
	case errors.Is(err, attendance.ErrClockOutBeforeIn),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, duration.ErrInvalidFormat),
		errors.Is(err, payroll.ErrUnknownProration),
		errors.Is(err, payroll.ErrInvalidWorkingWeekday):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, notification.ErrInvalidNotificationType):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
