package attendance

import "errors"

// Attendance domain errors
var (
	// Lifecycle
	ErrAlreadyClockedIn     = errors.New("attendance already exists for this employee and date")
	ErrAlreadyClockedOut    = errors.New("attendance has already been clocked out")
	ErrNotClockedIn         = errors.New("no open attendance for this employee today")
	ErrClockOutBeforeIn     = errors.New("clock_out must not be earlier than clock_in")
	ErrAttendanceStillOpen  = errors.New("attendance has not been clocked out yet")
	ErrInvalidStatus        = errors.New("status is not valid for the configured scheme")
	ErrOutsideOfficeNetwork = errors.New("request did not originate from an office network")

	// General errors
	ErrAttendanceNotFound    = errors.New("attendance record not found")
	ErrOfficeNetworkNotFound = errors.New("office network not found")
	ErrOfficeNetworkExists   = errors.New("office network already registered")
)
