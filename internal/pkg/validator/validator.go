package validator

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// ValidationError is one rejected field. Field uses the JSON name.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects field problems; the response layer renders it as a 422.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// ToMap keys messages by field. A later message for the same field wins.
func (v ValidationErrors) ToMap() map[string]string {
	m := make(map[string]string, len(v))
	for _, fe := range v {
		m[fe.Field] = fe.Message
	}
	return m
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns nil for an empty collection so callers can `return errs.Err()`.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsValidUUID accepts only the canonical 36-character hyphenated form.
func IsValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return uuid.Validate(s) == nil
}

// IsValidDate parses a YYYY-MM-DD calendar date.
func IsValidDate(s string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, s)
	return d, err == nil
}

func IsInSlice(value string, allowed []string) bool {
	return slices.Contains(allowed, value)
}

// IsValidDateTime parses an RFC 3339 instant, with or without fractional seconds.
func IsValidDateTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseOptionalDate parses an optional YYYY-MM-DD field, recording a problem in errs when it is malformed.
// Nil and blank values yield nil without an error.
func ParseOptionalDate(field string, s *string, errs *ValidationErrors) *time.Time {
	if s == nil || IsEmpty(*s) {
		return nil
	}
	d, ok := IsValidDate(strings.TrimSpace(*s))
	if !ok {
		errs.Add(field, field+" must be in YYYY-MM-DD format")
		return nil
	}
	return &d
}
