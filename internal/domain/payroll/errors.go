package payroll

import "errors"

var (
	ErrSettingsNotFound      = errors.New("payroll settings not found")
	ErrCycleNotFound         = errors.New("pay cycle not found")
	ErrCycleLocked           = errors.New("pay cycle is closed and can no longer be changed")
	ErrRunInProgress         = errors.New("a payroll run for this cycle is already in progress")
	ErrRecordNotFound        = errors.New("payroll record not found")
	ErrUnknownProration      = errors.New("unknown proration policy")
	ErrMissingCompensation   = errors.New("employee has no active compensation")
	ErrNotEmployedInPeriod   = errors.New("employee was not employed during the pay period")
	ErrEmptyPeriod           = errors.New("pay period contains no working days; base salary not paid")
	ErrInvalidWorkingWeekday = errors.New("working weekdays must be between 0 (Sunday) and 6 (Saturday)")
)
