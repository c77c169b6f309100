package attendance

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusPresent   Status = "PRESENT"
	StatusAbsent    Status = "ABSENT"
	StatusPermitted Status = "PERMITTED"
)

// StatusScheme is the closed set of statuses a deployment uses.
// Both schemes share PENDING as the review state.
type StatusScheme string

const (
	SchemeApproval StatusScheme = "approval"
	SchemePresence StatusScheme = "presence"
)

// ParseScheme reads ATTENDANCE_STATUS_SCHEME. Empty means approval.
func ParseScheme(s string) (StatusScheme, error) {
	switch StatusScheme(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemeApproval:
		return SchemeApproval, nil
	case SchemePresence:
		return SchemePresence, nil
	}
	return "", fmt.Errorf("unknown attendance status scheme %q", s)
}

// Statuses lists every status valid under the scheme, review state first.
func (s StatusScheme) Statuses() []Status {
	if s == SchemePresence {
		return []Status{StatusPending, StatusPresent, StatusAbsent, StatusPermitted}
	}
	return []Status{StatusPending, StatusApproved}
}

func (s StatusScheme) Valid(st Status) bool {
	for _, v := range s.Statuses() {
		if v == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether st is a reviewed (approved) status.
func (s StatusScheme) IsTerminal(st Status) bool {
	return st != StatusPending && s.Valid(st)
}

// DefaultApproved is the status Approve sets when the caller gives none.
func (s StatusScheme) DefaultApproved() Status {
	if s == SchemePresence {
		return StatusPresent
	}
	return StatusApproved
}

// InvalidStatusMessage is the field error for a status outside the scheme.
func (s StatusScheme) InvalidStatusMessage() string {
	names := make([]string, 0, 4)
	for _, st := range s.Statuses() {
		names = append(names, string(st))
	}
	return "status must be one of " + strings.Join(names, ", ")
}

// ParseStatus normalises st and checks it against the scheme.
func (s StatusScheme) ParseStatus(st string) (Status, bool) {
	v := Status(strings.ToUpper(strings.TrimSpace(st)))
	return v, s.Valid(v)
}
