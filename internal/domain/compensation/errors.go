package compensation

import "errors"

var (
	ErrCompensationNotFound = errors.New("compensation not found")
	ErrComponentNotFound    = errors.New("salary component not found")
	ErrCompensationExists   = errors.New("employee already has an active compensation")
	ErrCompensationInactive = errors.New("compensation is no longer active")
)
